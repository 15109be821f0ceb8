package subscriptions

import (
	"time"

	"resumeiq-backend/internal/domain/plans"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
	StatusPastDue  Status = "past_due"
)

// transitions lists the legal status changes. Canceled and expired are final.
var transitions = map[Status][]Status{
	StatusActive:  {StatusCanceled, StatusExpired, StatusPastDue},
	StatusPastDue: {StatusActive, StatusExpired},
}

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCanceled, StatusExpired, StatusPastDue:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Subscription rows are never edited to change plan: a plan change inserts a
// new row. The most recently created active row governs the user's plan.
type Subscription struct {
	ID                 string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID             string     `gorm:"type:varchar(64);not null;index:idx_subscriptions_user_status;uniqueIndex:idx_subscriptions_user_seq" json:"user_id"`
	PlanID             plans.ID   `gorm:"type:varchar(20);not null" json:"plan_id"`
	Status             Status     `gorm:"type:varchar(20);not null;default:'active';index:idx_subscriptions_user_status" json:"status"`
	CurrentPeriodStart time.Time  `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`

	// Per-user creation order. Breaks created_at ties in "most recent wins".
	Seq int64 `gorm:"not null;default:0;uniqueIndex:idx_subscriptions_user_seq" json:"-"`

	// Opaque payment references, passed through untouched.
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	StripeCustomerID     *string `gorm:"column:stripe_customer_id" json:"stripe_customer_id,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
