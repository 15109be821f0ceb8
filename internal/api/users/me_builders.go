package users

import (
	"resumeiq-backend/internal/domain/access"
	"resumeiq-backend/internal/domain/plans"
	"resumeiq-backend/internal/domain/subscriptions"
	"resumeiq-backend/internal/domain/users"
)

func BuildPlanDTO(p *plans.Plan) *PlanDTO {
	if p == nil {
		return nil
	}
	return &PlanDTO{
		ID:               string(p.ID),
		Name:             p.Name,
		Price:            p.Price,
		Period:           p.Period,
		CreditsPerPeriod: p.CreditsPerPeriod,
		Features:         p.Features,
	}
}

func BuildSubscriptionDTO(sub *subscriptions.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:                   sub.ID,
		Status:               string(sub.Status),
		StartsAt:             sub.CurrentPeriodStart,
		CurrentPeriodEnd:     sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		StripeSubscriptionID: sub.StripeSubscriptionID,
	}
}

// BuildMeResponse assembles /me from the account row, its governing
// subscription (nil means free) and the billing state.
func BuildMeResponse(u users.User, sub *subscriptions.Subscription, state subscriptions.State) MeResponse {
	planID := plans.Free
	if sub != nil {
		planID = sub.PlanID
	}

	return MeResponse{
		User: UserDTO{
			ID:        u.ID,
			Email:     u.Email,
			FullName:  u.FullName,
			Username:  u.Username,
			CreatedAt: u.CreatedAt,
		},
		Credits: CreditsDTO{
			Balance:        u.Credits,
			TotalPurchased: u.TotalCreditsPurchased,
		},
		Billing: BillingDTO{
			Plan:         BuildPlanDTO(plans.Lookup(planID)),
			Subscription: BuildSubscriptionDTO(sub),
		},
		Access: AccessDTO{
			State:        string(state),
			Capabilities: access.CapabilitiesFor(planID),
		},
	}
}
