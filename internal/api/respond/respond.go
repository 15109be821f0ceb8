// Package respond writes error responses for the account API.
package respond

import (
	"errors"
	"log"
	"net/http"

	"resumeiq-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Status maps an error from the services onto an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, apperr.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts with {"error": ...}. Client errors carry the error text;
// server errors are logged and replaced by a generic message.
func Error(c *gin.Context, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		msg := "Internal server error"
		if status == http.StatusServiceUnavailable {
			msg = "Service temporarily unavailable, please retry"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// UserID returns the authenticated caller, aborting with 401 when absent.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString("user_id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return id, true
}
