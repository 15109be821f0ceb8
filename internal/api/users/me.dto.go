package users

import (
	"time"

	"resumeiq-backend/internal/domain/access"
)

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Credits CreditsDTO `json:"credits"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	Username  *string   `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

/* ---------- CREDITS ---------- */

type CreditsDTO struct {
	Balance        int `json:"balance"`
	TotalPurchased int `json:"total_purchased"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan         *PlanDTO         `json:"plan"`
	Subscription *SubscriptionDTO `json:"subscription"`
}

type PlanDTO struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Price            float64  `json:"price"`
	Period           string   `json:"period"`
	CreditsPerPeriod int      `json:"credits_per_period"`
	Features         []string `json:"features"`
}

type SubscriptionDTO struct {
	ID                   string     `json:"id"`
	Status               string     `json:"status"`
	StartsAt             time.Time  `json:"starts_at"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State        string              `json:"state"` // free|active|canceling|past_due|lapsed
	Capabilities []access.Capability `json:"capabilities"`
}
