package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by AuthMiddleware.
const (
	CtxUserID      = "user_id"
	CtxEmail       = "email"
	CtxRole        = "role"
	CtxFullName    = "full_name"
	CtxAccessToken = "access_token"
)

// Claims are the fields of an identity-provider access token the API uses.
type Claims struct {
	Subject  string
	Email    string
	Role     string
	FullName *string
}

type Verifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

type tokenClaims struct {
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

func (tc tokenClaims) toClaims(sub string) *Claims {
	c := &Claims{Subject: sub, Email: tc.Email, Role: tc.Role}
	if name, ok := tc.UserMetadata["full_name"].(string); ok && name != "" {
		c.FullName = &name
	}
	return c
}

// issuerFor is the token issuer of a Supabase project.
func issuerFor(projectURL string) string {
	return strings.TrimRight(projectURL, "/") + "/auth/v1"
}

// HMACVerifier checks tokens signed with the project's shared JWT secret.
// User tokens must come from the project's auth server and name audience.
// Service keys carry no subject and are matched on their role claim only.
type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewHMACVerifier(secret, projectURL, audience string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), issuer: issuerFor(projectURL), audience: audience}
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (*Claims, error) {
	var tc tokenClaims
	token, err := jwt.ParseWithClaims(raw, &tc, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if tc.Subject != "" {
		if tc.Issuer != v.issuer {
			return nil, fmt.Errorf("unexpected issuer %q", tc.Issuer)
		}
		if !slices.Contains(tc.Audience, v.audience) {
			return nil, fmt.Errorf("token audience %v does not include %q", tc.Audience, v.audience)
		}
	}
	return tc.toClaims(tc.Subject), nil
}

// OIDCVerifier checks asymmetrically signed tokens against the auth server's
// published key set.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier trusts tokens issued by <projectURL>/auth/v1 for audience.
func NewOIDCVerifier(ctx context.Context, projectURL, audience string) *OIDCVerifier {
	issuer := issuerFor(projectURL)
	keys := oidc.NewRemoteKeySet(ctx, issuer+"/.well-known/jwks.json")
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{
			ClientID:             audience,
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
		}),
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var tc tokenClaims
	if err := tok.Claims(&tc); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return tc.toClaims(tok.Subject), nil
}

func AuthMiddleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			c.Abort()
			return
		}

		claims, err := v.Verify(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}
		if claims.Subject == "" && claims.Role == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxAccessToken, tokenString)
		if claims.FullName != nil {
			c.Set(CtxFullName, *claims.FullName)
		}
		c.Next()
	}
}

// RequireUser rejects tokens that do not identify an end user, such as
// service keys.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User token required"})
			return
		}
		c.Next()
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(CtxRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Role not found in token"})
			c.Abort()
			return
		}

		if value != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
