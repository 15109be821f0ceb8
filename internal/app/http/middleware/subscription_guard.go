package middleware

import (
	"context"
	"log"
	"net/http"

	"resumeiq-backend/internal/domain/access"

	"github.com/gin-gonic/gin"
)

// FeatureChecker is satisfied by *subscriptions.Service.
type FeatureChecker interface {
	HasFeatureAccess(ctx context.Context, userID string, c access.Capability) (bool, error)
}

// RequireCapability lets the request through only when the caller's current
// plan grants capability.
func RequireCapability(checker FeatureChecker, capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User token required"})
			return
		}

		ok, err := checker.HasFeatureAccess(c.Request.Context(), userID, capability)
		if err != nil {
			log.Printf("⚠️ feature check %s for %s failed: %v", capability, userID, err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Could not verify plan"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "Your plan does not include this feature",
				"capability": capability,
			})
			return
		}

		c.Next()
	}
}
