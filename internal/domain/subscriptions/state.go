package subscriptions

import (
	"time"

	"resumeiq-backend/internal/domain/plans"
)

// State is the billing state shown to the user.
type State string

const (
	StateFree      State = "free"      // no paid subscription
	StateActive    State = "active"    // paid and renewing
	StateCanceling State = "canceling" // active until period end, will not renew
	StatePastDue   State = "past_due"
	StateLapsed    State = "lapsed" // active row whose period already ended; waiting for the billing event
)

// EffectiveState interprets one subscription row at now.
func EffectiveState(now time.Time, sub *Subscription) State {
	if sub == nil || sub.PlanID == plans.Free {
		return StateFree
	}

	switch sub.Status {
	case StatusPastDue:
		return StatePastDue
	case StatusActive:
		if sub.CurrentPeriodEnd != nil && !now.Before(*sub.CurrentPeriodEnd) {
			return StateLapsed
		}
		if sub.CancelAtPeriodEnd {
			return StateCanceling
		}
		return StateActive
	default:
		return StateFree
	}
}
