package stripe

import (
	"strings"

	"resumeiq-backend/internal/domain/subscriptions"
)

// NormalizeStatus maps a payment-processor subscription status onto the
// subscription lifecycle. ok is false for statuses with no equivalent
// (for example "paused"), which callers should ignore rather than apply.
func NormalizeStatus(s string) (st subscriptions.Status, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "trialing":
		return subscriptions.StatusActive, true
	case "past_due", "unpaid", "incomplete":
		return subscriptions.StatusPastDue, true
	case "canceled", "cancelled":
		return subscriptions.StatusCanceled, true
	case "expired", "incomplete_expired":
		return subscriptions.StatusExpired, true
	default:
		return "", false
	}
}
