package plans

import (
	"net/http"

	"resumeiq-backend/internal/domain/billing"
	"resumeiq-backend/internal/domain/plans"

	"github.com/gin-gonic/gin"
)

// ListPlans returns the pricing table in display order.
func ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, plans.Catalog)
}

func GetPlan(c *gin.Context) {
	id, ok := plans.Parse(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}
	c.JSON(http.StatusOK, plans.Lookup(id))
}

func ListCreditPackages(c *gin.Context) {
	c.JSON(http.StatusOK, billing.CreditPackages)
}
