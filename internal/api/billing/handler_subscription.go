package billing

import (
	"net/http"

	"resumeiq-backend/internal/api/respond"
	"resumeiq-backend/internal/domain/plans"
	"resumeiq-backend/internal/domain/subscriptions"
	"resumeiq-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	users *users.Service
	subs  *subscriptions.Service
}

func NewHandler(u *users.Service, s *subscriptions.Service) *Handler {
	return &Handler{users: u, subs: s}
}

type subscriptionResponse struct {
	Plan         *plans.Plan                 `json:"plan"`
	Subscription *subscriptions.Subscription `json:"subscription"`
	State        subscriptions.State         `json:"state"`
}

// GET /subscription
func (h *Handler) GetSubscription(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sub, err := h.subs.GetUserSubscription(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	state, err := h.subs.BillingState(ctx, userID, sub)
	if err != nil {
		respond.Error(c, err)
		return
	}

	planID := plans.Free
	if sub != nil {
		planID = sub.PlanID
	}
	c.JSON(http.StatusOK, subscriptionResponse{
		Plan:         h.subs.GetPlanByID(planID),
		Subscription: sub,
		State:        state,
	})
}

// POST /subscription/cancel flags the caller's current subscription to end
// at its period end.
func (h *Handler) CancelSubscription(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	sub, err := h.subs.GetUserSubscription(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if sub == nil || sub.PlanID == plans.Free {
		c.JSON(http.StatusNotFound, gin.H{"error": "No paid subscription to cancel"})
		return
	}
	if sub.CancelAtPeriodEnd {
		c.JSON(http.StatusOK, gin.H{"message": "Subscription already set to cancel", "current_period_end": sub.CurrentPeriodEnd})
		return
	}

	if err := h.subs.CancelSubscription(ctx, sub.ID); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription will cancel at period end", "current_period_end": sub.CurrentPeriodEnd})
}
