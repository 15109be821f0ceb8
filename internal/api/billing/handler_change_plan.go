package billing

import (
	"net/http"

	"resumeiq-backend/internal/api/respond"
	"resumeiq-backend/internal/domain/plans"

	"github.com/gin-gonic/gin"
)

// ChangePlan records a paid plan for a user once the payment processor has
// confirmed it. Admin only: the caller is the billing integration.
//
// POST /admin/users/:id/subscription
func (h *Handler) ChangePlan(c *gin.Context) {
	userID := c.Param("id")

	var body struct {
		PlanID               string  `json:"plan_id" binding:"required"`
		StripeSubscriptionID *string `json:"stripe_subscription_id"`
		StripeCustomerID     *string `json:"stripe_customer_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid plan_id"})
		return
	}
	planID, ok := plans.Parse(body.PlanID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	current, err := h.subs.GetUserSubscription(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if current != nil && current.PlanID == planID && body.StripeSubscriptionID == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Already on this plan", "subscription": current})
		return
	}

	sub, err := h.subs.CreateSubscription(ctx, userID, planID, body.StripeSubscriptionID, body.StripeCustomerID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription": sub})
}
