package users

import (
	"net/http"

	"resumeiq-backend/internal/api/respond"
	"resumeiq-backend/internal/app/provisioning"
	"resumeiq-backend/internal/domain/identity"
	"resumeiq-backend/internal/domain/subscriptions"
	"resumeiq-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	users *users.Service
	subs  *subscriptions.Service
	prov  *provisioning.Provisioner
}

func NewHandler(u *users.Service, s *subscriptions.Service, p *provisioning.Provisioner) *Handler {
	return &Handler{users: u, subs: s, prov: p}
}

// GetCurrentUser returns the caller's account. Callers who signed in directly
// against the identity provider are provisioned here on first sight.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	id, ok := respond.UserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetUserByID(ctx, id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if user == nil {
		email := c.GetString("email")
		if email == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		who := identity.User{ID: id, Email: email}
		if name := c.GetString("full_name"); name != "" {
			who.FullName = &name
		}
		if user, err = h.prov.Provision(ctx, who); err != nil {
			respond.Error(c, err)
			return
		}
	}

	sub, err := h.subs.GetUserSubscription(ctx, id)
	if err != nil {
		respond.Error(c, err)
		return
	}

	state, err := h.subs.BillingState(ctx, id, sub)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, BuildMeResponse(*user, sub, state))
}

func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	id, ok := respond.UserID(c)
	if !ok {
		return
	}
	var input users.UserUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), id, input)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) SetUsername(c *gin.Context) {
	id, ok := respond.UserID(c)
	if !ok {
		return
	}
	var input struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.SetUsername(c.Request.Context(), id, input.Username)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

// GET /usernames/:username/available
func (h *Handler) UsernameAvailable(c *gin.Context) {
	candidate := c.Param("username")
	available, err := h.users.IsUsernameAvailable(c.Request.Context(), candidate)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": candidate, "available": available})
}
