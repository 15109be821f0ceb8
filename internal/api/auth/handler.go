package auth

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"time"

	"resumeiq-backend/internal/api/respond"
	"resumeiq-backend/internal/apperr"
	"resumeiq-backend/internal/app/provisioning"
	"resumeiq-backend/internal/domain/identity"
	"resumeiq-backend/internal/infra/supabase"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

type Config struct {
	ResetRedirect string

	// OAuth sign-in through the identity provider.
	AuthorizeURL     string
	OAuthCallbackURL string
	FrontendRedirect string
}

type Handler struct {
	idp  identity.Provider
	prov *provisioning.Provisioner
	cfg  Config
}

func NewHandler(idp identity.Provider, prov *provisioning.Provisioner, cfg Config) *Handler {
	return &Handler{idp: idp, prov: prov, cfg: cfg}
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isEmailValid(email string) bool {
	return emailPattern.MatchString(email)
}

type sessionDTO struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func buildSessionDTO(tok *oauth2.Token) *sessionDTO {
	if tok == nil {
		return nil
	}
	return &sessionDTO{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		ExpiresAt:    tok.Expiry,
	}
}

type userDTO struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FullName       *string `json:"full_name,omitempty"`
	EmailConfirmed bool    `json:"email_confirmed"`
}

func buildUserDTO(u identity.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, FullName: u.FullName, EmailConfirmed: u.EmailConfirmed}
}

func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Email    string  `json:"email" binding:"required,email"`
		Password string  `json:"password" binding:"required"`
		FullName *string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}
	if !isEmailValid(input.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	user, session, err := h.idp.SignUp(c.Request.Context(), input.Email, input.Password, input.FullName)
	if err != nil {
		respond.Error(c, err)
		return
	}

	// With a session the SIGNED_IN listener has already provisioned the
	// account. Without one (confirmation pending) create it now so the
	// starting credits exist before the first sign-in.
	if session == nil {
		if _, err := h.prov.Provision(c.Request.Context(), *user); err != nil {
			log.Printf("⚠️ provisioning after sign-up of %s failed: %v", user.ID, err)
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered successfully. Please check your email to verify your account.",
			"user":    buildUserDTO(*user),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user":    buildUserDTO(session.User),
		"session": buildSessionDTO(session.Token),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.idp.SignIn(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		if supabase.IsAPIError(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    buildUserDTO(session.User),
		"session": buildSessionDTO(session.Token),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	token := c.GetString("access_token")
	if err := h.idp.SignOut(c.Request.Context(), token); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func (h *Handler) ResendVerification(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !isEmailValid(body.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid email"})
		return
	}

	if err := h.idp.ResendConfirmation(c.Request.Context(), body.Email); err != nil && !supabase.IsAPIError(err) {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification email resent"})
}

// RequestPasswordReset answers the same way whether or not the address has an
// account.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !isEmailValid(body.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid email"})
		return
	}

	err := h.idp.ResetPassword(c.Request.Context(), body.Email, h.cfg.ResetRedirect)
	if err != nil && errors.Is(err, apperr.ErrTransient) {
		respond.Error(c, err)
		return
	}
	if err != nil {
		log.Printf("⚠️ password reset for %s rejected: %v", body.Email, err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset link has been sent"})
}

// ChangePassword sets a new password for the bearer's account. The recovery
// link from RequestPasswordReset signs the user in, so it also completes a
// reset.
func (h *Handler) ChangePassword(c *gin.Context) {
	var input struct {
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !isPasswordStrong(input.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	if err := h.idp.UpdatePassword(c.Request.Context(), c.GetString("access_token"), input.NewPassword); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
