package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resumeiq-backend/internal/apperr"
	"resumeiq-backend/internal/domain/plans"
	"resumeiq-backend/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.OpenDB(t, &User{}))
}

func mustCreate(t *testing.T, s *Service, id, email string) *User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), id, email, nil)
	if err != nil {
		t.Fatalf("CreateUser(%s) error = %v", id, err)
	}
	return u
}

func TestCreateUserStartsWithThreeCredits(t *testing.T) {
	s := newTestService(t)
	name := "  Ada Lovelace "

	u, err := s.CreateUser(context.Background(), "u1", " A@Example.com ", &name)
	if err != nil {
		t.Fatalf("CreateUser error = %v", err)
	}
	if u.Credits != 3 || u.TotalCreditsPurchased != 0 {
		t.Fatalf("new user credits = %d/%d, want 3/0", u.Credits, u.TotalCreditsPurchased)
	}
	if u.Email != "a@example.com" {
		t.Fatalf("email = %q, want lower-cased", u.Email)
	}
	if u.FullName == nil || *u.FullName != "Ada Lovelace" {
		t.Fatalf("full name = %v", u.FullName)
	}
	if u.CurrentPlan != "free" {
		t.Fatalf("current plan = %q, want free", u.CurrentPlan)
	}

	stored, err := s.GetUserByEmail(context.Background(), "a@EXAMPLE.com")
	if err != nil || stored == nil || stored.ID != "u1" {
		t.Fatalf("GetUserByEmail = (%+v,%v)", stored, err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestService(t)
	mustCreate(t, s, "u1", "a@example.com")

	if _, err := s.CreateUser(context.Background(), "u1", "b@example.com", nil); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate id error = %v, want ErrConflict", err)
	}
	if _, err := s.CreateUser(context.Background(), "u2", "a@example.com", nil); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate email error = %v, want ErrConflict", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestService(t)
	if _, err := s.CreateUser(context.Background(), "", "a@example.com", nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("empty id error = %v", err)
	}
	if _, err := s.CreateUser(context.Background(), "u1", "  ", nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("empty email error = %v", err)
	}
}

func TestEnsureUser(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u, created, err := s.EnsureUser(ctx, "u1", "a@example.com", nil)
	if err != nil || !created || u.Credits != 3 {
		t.Fatalf("first EnsureUser = (%+v,%v,%v)", u, created, err)
	}
	if _, err := s.DeductCredits(ctx, "u1", 2); err != nil {
		t.Fatalf("DeductCredits error = %v", err)
	}

	u, created, err = s.EnsureUser(ctx, "u1", "a@example.com", nil)
	if err != nil || created {
		t.Fatalf("second EnsureUser = (%v,%v)", created, err)
	}
	if u.Credits != 1 {
		t.Fatalf("EnsureUser must not reset credits, got %d", u.Credits)
	}

	if _, _, err := s.EnsureUser(ctx, "u2", "a@example.com", nil); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("EnsureUser with taken email error = %v, want ErrConflict", err)
	}
}

func TestGetUserAbsent(t *testing.T) {
	s := newTestService(t)
	u, err := s.GetUserByID(context.Background(), "nobody")
	if err != nil || u != nil {
		t.Fatalf("GetUserByID(absent) = (%v,%v), want (nil,nil)", u, err)
	}
	u, err = s.GetUserByEmail(context.Background(), "nobody@example.com")
	if err != nil || u != nil {
		t.Fatalf("GetUserByEmail(absent) = (%v,%v), want (nil,nil)", u, err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")
	mustCreate(t, s, "u2", "b@example.com")

	name := "Grace"
	email := "Grace@Example.com"
	u, err := s.UpdateUser(ctx, "u1", UserUpdate{FullName: &name, Email: &email})
	if err != nil {
		t.Fatalf("UpdateUser error = %v", err)
	}
	if *u.FullName != "Grace" || u.Email != "grace@example.com" {
		t.Fatalf("UpdateUser result = %+v", u)
	}

	if _, err := s.UpdateUser(ctx, "missing", UserUpdate{FullName: &name}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("UpdateUser(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateUser(ctx, "missing", UserUpdate{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("empty UpdateUser(missing) error = %v, want ErrNotFound", err)
	}

	taken := "b@example.com"
	if _, err := s.UpdateUser(ctx, "u1", UserUpdate{Email: &taken}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("UpdateUser with taken email error = %v, want ErrConflict", err)
	}
}

func TestSetUsername(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")
	mustCreate(t, s, "u2", "b@example.com")

	if _, err := s.SetUsername(ctx, "u1", "ab"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("SetUsername(ab) error = %v, want ErrInvalidInput", err)
	}

	u, err := s.SetUsername(ctx, "u1", "Ab_1")
	if err != nil || u.Username == nil || *u.Username != "ab_1" {
		t.Fatalf("SetUsername(Ab_1) = (%+v,%v), want stored as ab_1", u, err)
	}

	u, err = s.SetUsername(ctx, "u1", "abc")
	if err != nil || *u.Username != "abc" {
		t.Fatalf("SetUsername(abc) = (%+v,%v)", u, err)
	}

	if _, err := s.SetUsername(ctx, "u2", "abc"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second claim error = %v, want ErrConflict", err)
	}
	if _, err := s.SetUsername(ctx, "u2", "ABC"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("case-folded claim error = %v, want ErrConflict", err)
	}

	again, err := s.SetUsername(ctx, "u1", "abc")
	if err != nil || *again.Username != "abc" {
		t.Fatalf("re-claiming own username = (%+v,%v)", again, err)
	}

	if _, err := s.SetUsername(ctx, "missing", "free_name"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("SetUsername(missing user) error = %v, want ErrNotFound", err)
	}
}

func TestSetUsernameRaceLostIsConflict(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")
	mustCreate(t, s, "u2", "b@example.com")

	// u2 claims the name directly, bypassing the availability pre-check,
	// the way a concurrent writer would between u1's check and write.
	name := "racer"
	if _, err := s.UpdateUser(ctx, "u2", UserUpdate{Username: &name}); err != nil {
		t.Fatalf("UpdateUser error = %v", err)
	}
	if _, err := s.UpdateUser(ctx, "u1", UserUpdate{Username: &name}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("write guarded by unique index error = %v, want ErrConflict", err)
	}
}

func TestConcurrentSetUsernameOneWinner(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	ids := []string{"u1", "u2", "u3", "u4"}
	for i, id := range ids {
		mustCreate(t, s, id, string(rune('a'+i))+"@example.com")
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = s.SetUsername(ctx, id, "hotname")
		}(i, id)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, apperr.ErrConflict):
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
}

func TestIsUsernameAvailable(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "other", "o@example.com")

	ok, err := s.IsUsernameAvailable(ctx, "existing")
	if err != nil || !ok {
		t.Fatalf("IsUsernameAvailable before claim = (%v,%v)", ok, err)
	}
	if _, err := s.SetUsername(ctx, "other", "existing"); err != nil {
		t.Fatalf("SetUsername error = %v", err)
	}
	ok, err = s.IsUsernameAvailable(ctx, "existing")
	if err != nil || ok {
		t.Fatalf("IsUsernameAvailable after claim = (%v,%v), want false", ok, err)
	}
	if _, err := s.IsUsernameAvailable(ctx, "x"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("IsUsernameAvailable(x) error = %v", err)
	}
}

func TestDeductCredits(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")

	ok, err := s.DeductCredits(ctx, "u1", 5)
	if err != nil || ok {
		t.Fatalf("DeductCredits(5) over balance 3 = (%v,%v), want (false,nil)", ok, err)
	}
	if bal, _ := s.GetCreditBalance(ctx, "u1"); bal != 3 {
		t.Fatalf("balance after failed deduction = %d, want 3", bal)
	}

	ok, err = s.DeductCredits(ctx, "u1", 2)
	if err != nil || !ok {
		t.Fatalf("DeductCredits(2) = (%v,%v)", ok, err)
	}
	if bal, _ := s.GetCreditBalance(ctx, "u1"); bal != 1 {
		t.Fatalf("balance = %d, want 1", bal)
	}

	if _, err := s.DeductCredits(ctx, "u1", 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("DeductCredits(0) error = %v", err)
	}
	if ok, err := s.DeductCredits(ctx, "ghost", 1); ok || err != nil {
		t.Fatalf("DeductCredits(unknown user) = (%v,%v), want (false,nil)", ok, err)
	}
}

func TestConcurrentDeductionExactlyOneWins(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")
	if ok, err := s.DeductCredits(ctx, "u1", 2); !ok || err != nil {
		t.Fatalf("setup deduction = (%v,%v)", ok, err)
	}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.DeductCredits(ctx, "u1", 1)
			if err != nil {
				t.Errorf("DeductCredits error = %v", err)
			}
			results[i] = ok
		}(i)
	}
	wg.Wait()

	if results[0] == results[1] {
		t.Fatalf("results = %v, want exactly one success", results)
	}
	if bal, _ := s.GetCreditBalance(ctx, "u1"); bal != 0 {
		t.Fatalf("balance = %d, want 0", bal)
	}
}

func TestConcurrentDeductionNeverNegative(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")
	if _, err := s.AddCredits(ctx, "u1", 7); err != nil {
		t.Fatalf("AddCredits error = %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.DeductCredits(ctx, "u1", 1)
			if err != nil {
				t.Errorf("DeductCredits error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 10 {
		t.Fatalf("successful deductions = %d, want 10", wins)
	}
	if bal, _ := s.GetCreditBalance(ctx, "u1"); bal != 0 {
		t.Fatalf("balance = %d, want 0", bal)
	}
}

func TestAddCredits(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")

	ok, err := s.AddCredits(ctx, "u1", 10)
	if err != nil || !ok {
		t.Fatalf("AddCredits(10) = (%v,%v)", ok, err)
	}
	for _, n := range []int{0, -4} {
		ok, err := s.AddCredits(ctx, "u1", n)
		if ok || !errors.Is(err, apperr.ErrInvalidInput) {
			t.Fatalf("AddCredits(%d) = (%v,%v), want (false, ErrInvalidInput)", n, ok, err)
		}
	}

	u, _ := s.GetUserByID(ctx, "u1")
	if u.Credits != 13 || u.TotalCreditsPurchased != 10 {
		t.Fatalf("after purchase credits=%d total=%d, want 13/10", u.Credits, u.TotalCreditsPurchased)
	}

	if ok, err := s.AddCredits(ctx, "ghost", 5); ok || err != nil {
		t.Fatalf("AddCredits(unknown) = (%v,%v), want (false,nil)", ok, err)
	}
}

func TestPurchasePackage(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")

	if ok, err := s.PurchasePackage(ctx, "u1", "professional"); !ok || err != nil {
		t.Fatalf("PurchasePackage = (%v,%v)", ok, err)
	}
	if bal, _ := s.GetCreditBalance(ctx, "u1"); bal != 28 {
		t.Fatalf("balance = %d, want 28", bal)
	}
	if _, err := s.PurchasePackage(ctx, "u1", "mega"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("unknown package error = %v", err)
	}
}

func TestHasEnoughCreditsAndBalance(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")

	if ok, _ := s.HasEnoughCredits(ctx, "u1", 3); !ok {
		t.Fatalf("HasEnoughCredits(3) should be true")
	}
	if ok, _ := s.HasEnoughCredits(ctx, "u1", 4); ok {
		t.Fatalf("HasEnoughCredits(4) should be false")
	}
	if ok, err := s.HasEnoughCredits(ctx, "ghost", 1); ok || err != nil {
		t.Fatalf("HasEnoughCredits(ghost) = (%v,%v)", ok, err)
	}
	if bal, err := s.GetCreditBalance(ctx, "ghost"); bal != 0 || err != nil {
		t.Fatalf("GetCreditBalance(ghost) = (%d,%v), want (0,nil)", bal, err)
	}
}

func TestListUsersAndStats(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), time.Second)
	s := newTestService(t).WithClock(clock.Now)
	ctx := context.Background()
	mustCreate(t, s, "u1", "a@example.com")
	mustCreate(t, s, "u2", "b@example.com")
	mustCreate(t, s, "u3", "c@example.com")
	if _, err := s.AddCredits(ctx, "u2", 10); err != nil {
		t.Fatalf("AddCredits error = %v", err)
	}

	list, err := s.ListUsers(ctx, 2, 0)
	if err != nil || len(list) != 2 || list[0].ID != "u3" || list[1].ID != "u2" {
		t.Fatalf("ListUsers(2,0) = (%+v,%v)", list, err)
	}
	list, _ = s.ListUsers(ctx, 2, 2)
	if len(list) != 1 || list[0].ID != "u1" {
		t.Fatalf("ListUsers(2,2) = %+v", list)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats error = %v", err)
	}
	if stats.TotalUsers != 3 || stats.TotalCredits != 19 || stats.TotalCreditsPurchased != 10 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.UsersPerPlan[plans.Free] != 3 {
		t.Fatalf("users per plan = %v", stats.UsersPerPlan)
	}
}
