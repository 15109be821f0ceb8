package billing

import (
	"net/http"

	"resumeiq-backend/internal/api/respond"
	"resumeiq-backend/internal/domain/access"

	"github.com/gin-gonic/gin"
)

// GET /features/:capability
func (h *Handler) GetFeatureAccess(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}
	capability := access.Capability(c.Param("capability"))
	if !access.Known(capability) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown capability"})
		return
	}

	ctx := c.Request.Context()
	plan, err := h.subs.GetUserPlan(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"capability": capability,
		"plan":       plan,
		"allowed":    access.Allows(plan, capability),
	})
}
