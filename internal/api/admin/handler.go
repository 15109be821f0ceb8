package admin

import (
	"log"
	"net/http"
	"strconv"

	"resumeiq-backend/internal/api/respond"
	"resumeiq-backend/internal/domain/onboarding"
	"resumeiq-backend/internal/domain/subscriptions"
	"resumeiq-backend/internal/domain/users"
	"resumeiq-backend/internal/infra/stripe"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	users *users.Service
	subs  *subscriptions.Service
	rec   *onboarding.Recorder
}

func NewHandler(u *users.Service, s *subscriptions.Service, rec *onboarding.Recorder) *Handler {
	return &Handler{users: u, subs: s, rec: rec}
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

// GET /admin/stats
func (h *Handler) GetAdminStats(c *gin.Context) {
	stats, err := h.users.GetStats(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /admin/users?limit=&offset=
func (h *Handler) ListAllUsers(c *gin.Context) {
	list, err := h.users.ListUsers(c.Request.Context(), queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /admin/users/:id
func (h *Handler) GetUserDetails(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

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
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"subscription": sub,
		"state":        state,
	})
}

// PUT /admin/subscriptions/:id/status applies a status reported by the
// payment processor. Processor statuses with no lifecycle equivalent are
// acknowledged and ignored.
func (h *Handler) UpdateSubscriptionStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing status"})
		return
	}

	status, ok := stripe.NormalizeStatus(body.Status)
	if !ok {
		log.Printf("ℹ️ ignoring processor status %q for subscription %s", body.Status, c.Param("id"))
		c.JSON(http.StatusAccepted, gin.H{"ignored": true, "status": body.Status})
		return
	}

	ctx := c.Request.Context()
	if err := h.subs.UpdateSubscriptionStatus(ctx, c.Param("id"), status); err != nil {
		respond.Error(c, err)
		return
	}
	sub, err := h.subs.GetSubscription(ctx, c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// POST /admin/reconcile runs the plan-cache sweep on demand.
func (h *Handler) Reconcile(c *gin.Context) {
	fixed, err := h.subs.ReconcileAll(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	log.Printf("🔄 admin reconcile fixed %d users", fixed)
	c.JSON(http.StatusOK, gin.H{"fixed": fixed})
}

// GET /admin/onboarding?limit=
func (h *Handler) ListOnboarding(c *gin.Context) {
	rows, err := h.rec.List(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
