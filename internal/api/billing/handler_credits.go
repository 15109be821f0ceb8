package billing

import (
	"log"
	"net/http"

	"resumeiq-backend/internal/api/respond"
	"resumeiq-backend/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

// GET /credits
func (h *Handler) GetCredits(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}
	user, err := h.users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"balance": 0, "total_purchased": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": user.Credits, "total_purchased": user.TotalCreditsPurchased})
}

// POST /credits/transactions spends credits on the caller's account. Only
// deductions are accepted here; purchases are credited by the billing
// integration through GrantCredits.
func (h *Handler) CreateTransaction(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}
	var tx billing.CreditTransaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx.UserID = userID

	if tx.Type != billing.TransactionDeduct {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only deductions can be made from this endpoint"})
		return
	}
	amount := tx.Amount
	if amount < 0 {
		amount = -amount
	}

	h.spend(c, userID, amount, tx.Description)
}

// POST /ai/bullet-points/check charges one credit for an AI generation.
func (h *Handler) ChargeAIGeneration(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}
	h.spend(c, userID, 1, "ai bullet points")
}

func (h *Handler) spend(c *gin.Context, userID string, amount int, description string) {
	ctx := c.Request.Context()
	ok, err := h.users.DeductCredits(ctx, userID, amount)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if !ok {
		balance, _ := h.users.GetCreditBalance(ctx, userID)
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient credits", "balance": balance, "required": amount})
		return
	}

	balance, err := h.users.GetCreditBalance(ctx, userID)
	if err != nil {
		log.Printf("⚠️ balance read after deduction for %s failed: %v", userID, err)
	}
	log.Printf("💳 %s spent %d credits (%s)", userID, amount, description)
	c.JSON(http.StatusOK, gin.H{"success": true, "charged": amount, "balance": balance})
}

// GrantCredits credits a settled purchase, either a catalog package or a raw
// amount. Admin only.
//
// POST /admin/users/:id/credits
func (h *Handler) GrantCredits(c *gin.Context) {
	userID := c.Param("id")
	var body struct {
		PackageID string `json:"package_id"`
		Amount    int    `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var (
		ok  bool
		err error
	)
	if body.PackageID != "" {
		ok, err = h.users.PurchasePackage(ctx, userID, body.PackageID)
	} else {
		ok, err = h.users.AddCredits(ctx, userID, body.Amount)
	}
	if err != nil {
		respond.Error(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	balance, _ := h.users.GetCreditBalance(ctx, userID)
	c.JSON(http.StatusOK, gin.H{"success": true, "balance": balance})
}
