package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resumeiq-backend/internal/domain/access"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret  = "super-secret-jwt-token-with-at-least-32-characters"
	testProject = "https://proj.supabase.co"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func userClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":           "u1",
		"email":         "a@example.com",
		"role":          "authenticated",
		"aud":           "authenticated",
		"iss":           testProject + "/auth/v1",
		"exp":           time.Now().Add(10 * time.Minute).Unix(),
		"user_metadata": map[string]interface{}{"full_name": "Ada"},
	}
}

func protectedRouter(v Verifier, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(v)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   c.GetString(CtxUserID),
			"email":     c.GetString(CtxEmail),
			"role":      c.GetString(CtxRole),
			"full_name": c.GetString(CtxFullName),
		})
	})
	r.GET("/protected", chain...)
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAuthMiddlewareRejectsMissingOrMalformed(t *testing.T) {
	r := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"))

	for _, h := range []string{"", "Token abc", "Bearer ", "Bearer not-a-jwt"} {
		if resp := get(r, h); resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", h, resp.Code)
		}
	}
}

func TestHMACVerifierValidToken(t *testing.T) {
	r := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"))
	resp := get(r, "Bearer "+signHS256(t, userClaims()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["user_id"] != "u1" || body["email"] != "a@example.com" || body["full_name"] != "Ada" || body["role"] != "authenticated" {
		t.Fatalf("context = %v", body)
	}
}

func TestHMACVerifierRejectsExpiredAndForeign(t *testing.T) {
	r := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"))

	expired := userClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	if resp := get(r, "Bearer "+signHS256(t, expired)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: expected 401, got %d", resp.Code)
	}

	noExp := userClaims()
	delete(noExp, "exp")
	if resp := get(r, "Bearer "+signHS256(t, noExp)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("token without exp: expected 401, got %d", resp.Code)
	}

	other, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, userClaims()).SignedString([]byte("another-secret"))
	if resp := get(r, "Bearer "+other); resp.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: expected 401, got %d", resp.Code)
	}
}

func TestHMACVerifierPinsIssuerAndAudience(t *testing.T) {
	r := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"))

	foreign := userClaims()
	foreign["aud"] = "some-other-service"
	foreign["iss"] = "https://elsewhere.example/auth/v1"
	if resp := get(r, "Bearer "+signHS256(t, foreign)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("foreign issuer and audience: expected 401, got %d", resp.Code)
	}

	wrongAud := userClaims()
	wrongAud["aud"] = "some-other-service"
	if resp := get(r, "Bearer "+signHS256(t, wrongAud)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("wrong audience: expected 401, got %d", resp.Code)
	}

	noIss := userClaims()
	delete(noIss, "iss")
	if resp := get(r, "Bearer "+signHS256(t, noIss)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("missing issuer: expected 401, got %d", resp.Code)
	}

	listAud := userClaims()
	listAud["aud"] = []string{"other", "authenticated"}
	if resp := get(r, "Bearer "+signHS256(t, listAud)); resp.Code != http.StatusOK {
		t.Fatalf("audience list: expected 200, got %d", resp.Code)
	}

	// Trailing slash on the configured project URL.
	slashed := protectedRouter(NewHMACVerifier(testSecret, testProject+"/", "authenticated"))
	if resp := get(slashed, "Bearer "+signHS256(t, userClaims())); resp.Code != http.StatusOK {
		t.Fatalf("trailing slash project: expected 200, got %d", resp.Code)
	}
}

func TestRequireUserAndRole(t *testing.T) {
	service := jwt.MapClaims{"role": "service_role", "exp": time.Now().Add(time.Minute).Unix()}
	token := "Bearer " + signHS256(t, service)

	userOnly := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"), RequireUser())
	if resp := get(userOnly, token); resp.Code != http.StatusUnauthorized {
		t.Fatalf("service key on user route: expected 401, got %d", resp.Code)
	}

	admin := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"), RequireRole("service_role"))
	if resp := get(admin, token); resp.Code != http.StatusOK {
		t.Fatalf("service key on admin route: expected 200, got %d", resp.Code)
	}
	if resp := get(admin, "Bearer "+signHS256(t, userClaims())); resp.Code != http.StatusForbidden {
		t.Fatalf("user on admin route: expected 403, got %d", resp.Code)
	}
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func newJWKSServer(t *testing.T, key *rsa.PrivateKey, kid string) *httptest.Server {
	t.Helper()
	keys := map[string][]jwk{"keys": {{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(keys)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to create key: %v", err)
	}
	srv := newJWKSServer(t, key, "k1")
	v := NewOIDCVerifier(context.Background(), srv.URL, "authenticated")
	r := protectedRouter(v)

	claims := userClaims()
	claims["iss"] = srv.URL + "/auth/v1"
	if resp := get(r, "Bearer "+signRS256(t, key, "k1", claims)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	wrongIssuer := userClaims()
	wrongIssuer["iss"] = "https://elsewhere.example/auth/v1"
	if resp := get(r, "Bearer "+signRS256(t, key, "k1", wrongIssuer)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("wrong issuer: expected 401, got %d", resp.Code)
	}

	badKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	if resp := get(r, "Bearer "+signRS256(t, badKey, "k1", claims)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("unknown key: expected 401, got %d", resp.Code)
	}
}

func TestSanitizeStripsMarkupRecursively(t *testing.T) {
	r := gin.New()
	r.Use(SanitizeAndCleanInputMiddleware())
	var got map[string]interface{}
	r.POST("/echo", func(c *gin.Context) {
		c.ShouldBindJSON(&got)
		c.Status(http.StatusOK)
	})

	body := `{"full_name":"<script>x</script>Ada <b>L</b>","password":"<p>keep</p>",
		"profile":{"bio":"<i>hi</i>","tags":["<u>a</u>", 3]},"credits":5}`
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got["full_name"] != "Ada L" {
		t.Fatalf("full_name = %q", got["full_name"])
	}
	if got["password"] != "<p>keep</p>" {
		t.Fatalf("password must not be altered, got %q", got["password"])
	}
	profile := got["profile"].(map[string]interface{})
	if profile["bio"] != "hi" || profile["tags"].([]interface{})[0] != "a" {
		t.Fatalf("nested values not sanitized: %v", profile)
	}
	if got["credits"] != float64(5) {
		t.Fatalf("numbers must pass through, got %v", got["credits"])
	}
}

func TestSanitizeRejectsMalformedAndAllowsEmpty(t *testing.T) {
	r := gin.New()
	r.Use(SanitizeAndCleanInputMiddleware())
	r.POST("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("{not json"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("malformed: expected 400, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/echo", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("empty body: expected 204, got %d", resp.Code)
	}
}

type fakeChecker struct {
	allowed map[access.Capability]bool
	err     error
}

func (f fakeChecker) HasFeatureAccess(_ context.Context, _ string, c access.Capability) (bool, error) {
	return f.allowed[c], f.err
}

func TestRequireCapability(t *testing.T) {
	token := "Bearer " + signHS256(t, userClaims())
	checker := fakeChecker{allowed: map[access.Capability]bool{access.PDFExport: true}}

	allowed := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"), RequireCapability(checker, access.PDFExport))
	if resp := get(allowed, token); resp.Code != http.StatusOK {
		t.Fatalf("allowed capability: expected 200, got %d", resp.Code)
	}

	denied := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"), RequireCapability(checker, access.AIBulletPoints))
	if resp := get(denied, token); resp.Code != http.StatusForbidden {
		t.Fatalf("denied capability: expected 403, got %d", resp.Code)
	}

	broken := protectedRouter(NewHMACVerifier(testSecret, testProject, "authenticated"), RequireCapability(fakeChecker{err: errors.New("db down")}, access.PDFExport))
	if resp := get(broken, token); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("checker failure: expected 503, got %d", resp.Code)
	}
}
