package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resumeiq-backend/internal/apperr"
	"resumeiq-backend/internal/domain/billing"
	"resumeiq-backend/internal/domain/plans"

	"gorm.io/gorm"
)

// Service owns every read and write of the users table.
//
// Credit mutations are single conditional UPDATE statements so the balance
// check and the write happen atomically inside the store. Reading the balance
// first and writing it back from Go would let two concurrent requests both
// spend the last credit.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateUser inserts the account row with the starting credit grant.
// A duplicate id or email fails with apperr.ErrConflict; callers provisioning
// on sign-in should treat that as "already exists" and read instead.
func (s *Service) CreateUser(ctx context.Context, id, email string, fullName *string) (*User, error) {
	id = strings.TrimSpace(id)
	email = normalizeEmail(email)
	if id == "" {
		return nil, apperr.Invalid("user id is required")
	}
	if email == "" {
		return nil, apperr.Invalid("email is required")
	}

	now := s.now()
	user := User{
		ID:          id,
		Email:       email,
		FullName:    nonEmpty(fullName),
		Credits:     billing.InitialCredits,
		CurrentPlan: plans.Free,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.FromStore("create user", err)
	}
	return &user, nil
}

// EnsureUser returns the existing row for id or creates it. created reports
// whether this call inserted the row.
func (s *Service) EnsureUser(ctx context.Context, id, email string, fullName *string) (*User, bool, error) {
	existing, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	user, err := s.CreateUser(ctx, id, email, fullName)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, apperr.ErrConflict) {
		return nil, false, err
	}

	// Lost a race with a concurrent sign-in for the same id.
	existing, rerr := s.GetUserByID(ctx, id)
	if rerr != nil {
		return nil, false, rerr
	}
	if existing == nil {
		// The conflict was on email: another account already owns it.
		return nil, false, err
	}
	return existing, false, nil
}

// GetUserByID returns nil, nil when no row exists.
func (s *Service) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, "id = ?", id)
}

// GetUserByEmail returns nil, nil when no row exists.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, "email = ?", normalizeEmail(email))
}

func (s *Service) findOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where(query, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromStore("get user", err)
	}
	return &user, nil
}

// UpdateUser applies a partial profile update and returns the fresh row.
func (s *Service) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	updates := map[string]interface{}{}

	if upd.FullName != nil {
		updates["full_name"] = nonEmpty(upd.FullName)
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return nil, apperr.Invalid("email cannot be empty")
		}
		updates["email"] = email
	}
	if upd.Username != nil {
		name, err := NormalizeUsername(*upd.Username)
		if err != nil {
			return nil, err
		}
		updates["username"] = name
	}

	if len(updates) > 0 {
		updates["updated_at"] = s.now()
		res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, apperr.FromStore("update user", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("update user %s: %w", id, apperr.ErrNotFound)
		}
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("update user %s: %w", id, apperr.ErrNotFound)
	}
	return user, nil
}

// IsUsernameAvailable is a UX hint only: the unique index decides at write time.
func (s *Service) IsUsernameAvailable(ctx context.Context, candidate string) (bool, error) {
	name, err := NormalizeUsername(candidate)
	if err != nil {
		return false, err
	}
	owner, err := s.findOne(ctx, "username = ?", name)
	if err != nil {
		return false, err
	}
	return owner == nil, nil
}

// SetUsername claims candidate for id. If another account holds the name, or
// claims it between the availability check and the write, it fails with
// apperr.ErrConflict.
func (s *Service) SetUsername(ctx context.Context, id, candidate string) (*User, error) {
	name, err := NormalizeUsername(candidate)
	if err != nil {
		return nil, err
	}

	owner, err := s.findOne(ctx, "username = ?", name)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		if owner.ID == id {
			return owner, nil
		}
		return nil, fmt.Errorf("username %q is already taken: %w", name, apperr.ErrConflict)
	}

	user, err := s.UpdateUser(ctx, id, UserUpdate{Username: &name})
	if errors.Is(err, apperr.ErrConflict) {
		return nil, fmt.Errorf("username %q is already taken: %w", name, apperr.ErrConflict)
	}
	return user, err
}

// HasEnoughCredits is advisory. Use DeductCredits to actually spend.
func (s *Service) HasEnoughCredits(ctx context.Context, id string, required int) (bool, error) {
	if required < 1 {
		return false, apperr.Invalid("required credits must be positive")
	}
	balance, err := s.GetCreditBalance(ctx, id)
	if err != nil {
		return false, err
	}
	return balance >= required, nil
}

// GetCreditBalance returns 0 for an unknown user.
func (s *Service) GetCreditBalance(ctx context.Context, id string) (int, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, nil
	}
	return user.Credits, nil
}

// DeductCredits spends amount credits. It returns false without an error when
// the balance is too small or the user does not exist; the balance is then
// unchanged. Store failures are returned as errors and must not be treated as
// a successful charge.
func (s *Service) DeductCredits(ctx context.Context, id string, amount int) (bool, error) {
	if amount < 1 {
		return false, apperr.Invalid("credit amount must be positive")
	}

	res := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND credits >= ?", id, amount).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits - ?", amount),
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return false, apperr.FromStore("deduct credits", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AddCredits credits a purchase: balance and lifetime total grow by amount
// in the same statement.
func (s *Service) AddCredits(ctx context.Context, id string, amount int) (bool, error) {
	if amount < 1 {
		return false, apperr.Invalid("credit amount must be positive")
	}

	res := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"credits":                 gorm.Expr("credits + ?", amount),
			"total_credits_purchased": gorm.Expr("total_credits_purchased + ?", amount),
			"updated_at":              s.now(),
		})
	if res.Error != nil {
		return false, apperr.FromStore("add credits", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PurchasePackage adds the credits of a catalog package. Payment is settled
// before this is called.
func (s *Service) PurchasePackage(ctx context.Context, id, packageID string) (bool, error) {
	pkg, ok := billing.PackageByID(packageID)
	if !ok {
		return false, apperr.Invalid("unknown credit package %q", packageID)
	}
	return s.AddCredits(ctx, id, pkg.Credits)
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// ListUsers returns accounts newest first.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var list []User
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id").
		Limit(limit).Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, apperr.FromStore("list users", err)
	}
	return list, nil
}

// Stats is the admin dashboard summary. Plan counts read the cached plan
// column, so they are as fresh as the last sync.
type Stats struct {
	TotalUsers            int              `json:"total_users"`
	TotalCredits          int              `json:"total_credits"`
	TotalCreditsPurchased int              `json:"total_credits_purchased"`
	UsersPerPlan          map[plans.ID]int `json:"users_per_plan"`
}

func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	var totals struct {
		Users     int
		Credits   int
		Purchased int
	}
	err := s.db.WithContext(ctx).Model(&User{}).
		Select("COUNT(*) AS users, COALESCE(SUM(credits), 0) AS credits, COALESCE(SUM(total_credits_purchased), 0) AS purchased").
		Scan(&totals).Error
	if err != nil {
		return nil, apperr.FromStore("user stats", err)
	}

	var counts []struct {
		CurrentPlan plans.ID
		Count       int
	}
	err = s.db.WithContext(ctx).Model(&User{}).
		Select("current_plan, COUNT(*) AS count").
		Group("current_plan").
		Scan(&counts).Error
	if err != nil {
		return nil, apperr.FromStore("user stats", err)
	}

	stats := &Stats{
		TotalUsers:            totals.Users,
		TotalCredits:          totals.Credits,
		TotalCreditsPurchased: totals.Purchased,
		UsersPerPlan:          map[plans.ID]int{},
	}
	for _, c := range counts {
		stats.UsersPerPlan[c.CurrentPlan] = c.Count
	}
	return stats, nil
}
