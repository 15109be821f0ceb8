package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"resumeiq-backend/internal/apperr"
	"resumeiq-backend/internal/domain/access"
	"resumeiq-backend/internal/domain/plans"
	"resumeiq-backend/internal/domain/users"

	"gorm.io/gorm"
)

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

// GetUserSubscription returns the most recently created active row, or nil
// when the user has none (callers treat that as the free tier).
func (s *Service) GetUserSubscription(ctx context.Context, userID string) (*Subscription, error) {
	var sub Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, StatusActive).
		Order("created_at DESC").
		Order("seq DESC").
		Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromStore("get subscription", err)
	}
	return &sub, nil
}

// BillingState is the state shown to the user. It follows the governing row,
// except that a paid row newer than it and stuck in past_due wins: it no
// longer grants the plan, but it is what the user has to act on.
func (s *Service) BillingState(ctx context.Context, userID string, governing *Subscription) (State, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND plan_id <> ?", userID, StatusPastDue, plans.Free)
	if governing != nil {
		q = q.Where("(created_at > ? OR (created_at = ? AND seq > ?))", governing.CreatedAt, governing.CreatedAt, governing.Seq)
	}

	var dunning Subscription
	err := q.Order("created_at DESC").Order("seq DESC").Take(&dunning).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EffectiveState(s.now(), governing), nil
	}
	if err != nil {
		return StateFree, apperr.FromStore("billing state", err)
	}
	return EffectiveState(s.now(), &dunning), nil
}

func (s *Service) GetSubscription(ctx context.Context, subID string) (*Subscription, error) {
	var sub Subscription
	if err := s.db.WithContext(ctx).Where("id = ?", subID).Take(&sub).Error; err != nil {
		return nil, apperr.FromStore("get subscription "+subID, err)
	}
	return &sub, nil
}

// CreateSubscription inserts a new active row for planID and then points the
// user's cached plan at it. The user must exist (ErrNotFound otherwise). If the
// cache update fails the subscription still exists; SyncUserPlan repairs the
// cache on the next sign-in or sweep.
func (s *Service) CreateSubscription(ctx context.Context, userID string, planID plans.ID, externalSubID, externalCustomerID *string) (*Subscription, error) {
	plan := plans.Lookup(planID)
	if plan == nil {
		return nil, fmt.Errorf("plan %q: %w", planID, apperr.ErrInvalidPlan)
	}
	if userID == "" {
		return nil, apperr.Invalid("user id is required")
	}

	start := s.now()
	sub := Subscription{
		UserID:               userID,
		PlanID:               plan.ID,
		Status:               StatusActive,
		CurrentPeriodStart:   start,
		CurrentPeriodEnd:     plans.PeriodEnd(plan, start),
		StripeSubscriptionID: externalSubID,
		StripeCustomerID:     externalCustomerID,
		CreatedAt:            start,
		UpdatedAt:            start,
	}

	var err error
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		err = s.insert(ctx, &sub)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		// Another insert for this user took the same seq.
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.FromStore("create subscription", err)
	}

	if err := s.SyncUserPlan(ctx, userID); err != nil {
		log.Printf("⚠️ subscription %s created but plan cache for user %s is stale: %v", sub.ID, userID, err)
	}
	return &sub, nil
}

const maxInsertAttempts = 3

// insert checks the owner and assigns the next per-user seq in the same
// transaction as the write.
func (s *Service) insert(ctx context.Context, sub *Subscription) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&users.User{}).Where("id = ?", sub.UserID).Count(&owners).Error; err != nil {
			return err
		}
		if owners == 0 {
			return fmt.Errorf("create subscription for user %s: %w", sub.UserID, apperr.ErrNotFound)
		}

		var last int64
		err := tx.Model(&Subscription{}).
			Where("user_id = ?", sub.UserID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error
		if err != nil {
			return err
		}
		sub.Seq = last + 1
		return tx.Create(sub).Error
	})
}

// EnsureSubscription creates a free subscription when the user has no active one.
func (s *Service) EnsureSubscription(ctx context.Context, userID string) (*Subscription, bool, error) {
	sub, err := s.GetUserSubscription(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if sub != nil {
		return sub, false, nil
	}
	sub, err = s.CreateSubscription(ctx, userID, plans.Free, nil, nil)
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

// UpdateSubscriptionStatus moves a subscription along the transition table.
// Setting the current status again is a no-op. The write is conditional on the
// status read, so two concurrent transitions cannot both apply.
func (s *Service) UpdateSubscriptionStatus(ctx context.Context, subID string, status Status) error {
	if !status.Valid() {
		return apperr.Invalid("unknown subscription status %q", status)
	}

	sub, err := s.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}
	if sub.Status == status {
		return nil
	}
	if !CanTransition(sub.Status, status) {
		return fmt.Errorf("%s -> %s: %w", sub.Status, status, apperr.ErrInvalidTransition)
	}

	res := s.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ? AND status = ?", subID, sub.Status).
		Updates(map[string]interface{}{"status": status, "updated_at": s.now()})
	if res.Error != nil {
		return apperr.FromStore("update subscription status", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subscription %s changed concurrently: %w", subID, apperr.ErrConflict)
	}

	if err := s.SyncUserPlan(ctx, sub.UserID); err != nil {
		log.Printf("⚠️ plan cache sync after status change of %s failed: %v", subID, err)
	}
	return nil
}

// CancelSubscription flags the subscription to end at period end. The status
// stays active until the billing system reports the period as over.
func (s *Service) CancelSubscription(ctx context.Context, subID string) error {
	res := s.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ?", subID).
		Updates(map[string]interface{}{"cancel_at_period_end": true, "updated_at": s.now()})
	if res.Error != nil {
		return apperr.FromStore("cancel subscription", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subscription %s: %w", subID, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) GetPlanByID(id plans.ID) *plans.Plan {
	return plans.Lookup(id)
}

// GetUserPlan returns the governing plan, defaulting to free.
func (s *Service) GetUserPlan(ctx context.Context, userID string) (plans.ID, error) {
	sub, err := s.GetUserSubscription(ctx, userID)
	if err != nil {
		return plans.Free, err
	}
	if sub == nil {
		return plans.Free, nil
	}
	return sub.PlanID, nil
}

func (s *Service) HasFeatureAccess(ctx context.Context, userID string, c access.Capability) (bool, error) {
	plan, err := s.GetUserPlan(ctx, userID)
	if err != nil {
		return false, err
	}
	return access.Allows(plan, c), nil
}

// SyncUserPlan points users.current_plan and users.subscription_id at the
// latest active subscription. It reads before writing and can be repeated
// safely.
func (s *Service) SyncUserPlan(ctx context.Context, userID string) error {
	_, err := s.syncUserPlan(ctx, userID, nil)
	return err
}

// syncUserPlan skips the write when cached already matches. It reports
// whether a row was written.
func (s *Service) syncUserPlan(ctx context.Context, userID string, cached *users.User) (bool, error) {
	latest, err := s.GetUserSubscription(ctx, userID)
	if err != nil {
		return false, err
	}

	plan := plans.Free
	var subID *string
	if latest != nil {
		plan = latest.PlanID
		subID = &latest.ID
	}

	if cached != nil && cached.CurrentPlan == plan && sameID(cached.SubscriptionID, subID) {
		return false, nil
	}

	res := s.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"current_plan":    plan,
			"subscription_id": subID,
			"updated_at":      s.now(),
		})
	if res.Error != nil {
		return false, apperr.FromStore("sync user plan", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, fmt.Errorf("sync user plan %s: %w", userID, apperr.ErrNotFound)
	}
	return true, nil
}

// ReconcileAll repairs stale plan caches across all users and returns how many
// rows were rewritten. Per-user failures are logged and skipped.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	fixed := 0
	var batch []users.User
	res := s.db.WithContext(ctx).
		Select("id", "current_plan", "subscription_id").
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				changed, err := s.syncUserPlan(ctx, batch[i].ID, &batch[i])
				if err != nil {
					log.Printf("⚠️ reconcile user %s: %v", batch[i].ID, err)
					continue
				}
				if changed {
					fixed++
				}
			}
			return nil
		})
	if res.Error != nil {
		return fixed, apperr.FromStore("reconcile plans", res.Error)
	}
	return fixed, nil
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
