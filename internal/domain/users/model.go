package users

import (
	"time"

	"resumeiq-backend/internal/domain/plans"
)

type User struct {
	ID                    string   `gorm:"primaryKey;type:varchar(64)" json:"id"` // identity-provider user id
	Email                 string   `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	FullName              *string  `gorm:"column:full_name" json:"full_name,omitempty"`
	Username              *string  `gorm:"type:varchar(20);uniqueIndex:idx_users_username" json:"username,omitempty"`
	Credits               int      `gorm:"not null;default:0;check:chk_users_credits,credits >= 0" json:"credits"`
	TotalCreditsPurchased int      `gorm:"not null;default:0" json:"total_credits_purchased"`
	CurrentPlan           plans.ID `gorm:"type:varchar(20);not null;default:'free'" json:"current_plan"`
	SubscriptionID        *string  `gorm:"column:subscription_id" json:"subscription_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserUpdate is a partial profile update; nil fields are left untouched.
type UserUpdate struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Username *string `json:"username"`
}
