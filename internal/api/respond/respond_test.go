package respond

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resumeiq-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Invalid("bad"), http.StatusBadRequest},
		{fmt.Errorf("x: %w", apperr.ErrInvalidPlan), http.StatusBadRequest},
		{apperr.ErrUnauthorized, http.StatusUnauthorized},
		{apperr.FromStore("get", errors.New("boom")), http.StatusServiceUnavailable},
		{fmt.Errorf("x: %w", apperr.ErrNotFound), http.StatusNotFound},
		{apperr.ErrConflict, http.StatusConflict},
		{apperr.ErrInvalidTransition, http.StatusConflict},
		{apperr.ErrInsufficientCredits, http.StatusPaymentRequired},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestErrorHidesServerDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/client", func(c *gin.Context) { Error(c, apperr.Invalid("username too short")) })
	r.GET("/server", func(c *gin.Context) { Error(c, apperr.FromStore("get", errors.New("dial tcp 10.0.0.1"))) })

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/client", nil))
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "username too short") {
		t.Fatalf("client error = %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/server", nil))
	if resp.Code != http.StatusServiceUnavailable || strings.Contains(resp.Body.String(), "10.0.0.1") {
		t.Fatalf("server error = %d %s", resp.Code, resp.Body.String())
	}
}
