package auth

import (
	"net/http"
	"net/url"
	"strconv"

	"resumeiq-backend/internal/api/respond"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const verifierCookie = "oauth_verifier"

func (h *Handler) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		Endpoint: oauth2.Endpoint{AuthURL: h.cfg.AuthorizeURL},
	}
}

// GET /auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	verifier := oauth2.GenerateVerifier()

	c.SetCookie(
		verifierCookie,
		verifier,
		300, // 5 minutes
		"/",
		"",
		c.Request.TLS != nil,
		true,
	)

	authURL := h.oauthConfig().AuthCodeURL("",
		oauth2.SetAuthURLParam("provider", "google"),
		oauth2.SetAuthURLParam("redirect_to", h.cfg.OAuthCallbackURL),
		oauth2.S256ChallengeOption(verifier),
	)
	c.Redirect(http.StatusFound, authURL)
}

// GET /auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	verifier, err := c.Cookie(verifierCookie)
	if err != nil || verifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sign-in session expired, please start again"})
		return
	}
	c.SetCookie(verifierCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	session, err := h.idp.ExchangeCode(c.Request.Context(), code, verifier)
	if err != nil {
		respond.Error(c, err)
		return
	}

	if h.cfg.FrontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{
			"user":    buildUserDTO(session.User),
			"session": buildSessionDTO(session.Token),
		})
		return
	}

	// Tokens go in the fragment so they never reach server logs.
	frag := url.Values{}
	frag.Set("access_token", session.Token.AccessToken)
	frag.Set("refresh_token", session.Token.RefreshToken)
	frag.Set("expires_at", strconv.FormatInt(session.Token.Expiry.Unix(), 10))
	c.Redirect(http.StatusFound, h.cfg.FrontendRedirect+"#"+frag.Encode())
}
