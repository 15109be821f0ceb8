// Package supabase is a small client for the Supabase Auth (GoTrue) REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resumeiq-backend/internal/apperr"
	"resumeiq-backend/internal/domain/identity"

	"golang.org/x/oauth2"
)

// APIError is a 4xx answer from the auth server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth: %s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.ErrUnauthorized
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		return apperr.ErrConflict
	default:
		return apperr.ErrInvalidInput
	}
}

type AuthClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time

	identity.Notifier
}

var _ identity.Provider = (*AuthClient)(nil)

func NewAuthClient(projectURL, anonKey string) *AuthClient {
	if !strings.HasPrefix(projectURL, "http") {
		projectURL = "https://" + projectURL
	}
	return &AuthClient{
		baseURL: strings.TrimRight(projectURL, "/"),
		apiKey:  anonKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

type userPayload struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	Role             string                 `json:"role"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata"`
}

func (p userPayload) toUser() identity.User {
	u := identity.User{
		ID:             p.ID,
		Email:          p.Email,
		Role:           p.Role,
		EmailConfirmed: p.EmailConfirmedAt != nil,
	}
	if name, ok := p.UserMetadata["full_name"].(string); ok && name != "" {
		u.FullName = &name
	}
	return u
}

type sessionPayload struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	User         *userPayload `json:"user"`
}

func (c *AuthClient) toSession(p sessionPayload) *identity.Session {
	tok := &oauth2.Token{
		AccessToken:  p.AccessToken,
		TokenType:    p.TokenType,
		RefreshToken: p.RefreshToken,
	}
	if p.ExpiresIn > 0 {
		tok.Expiry = c.now().Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	s := &identity.Session{Token: tok}
	if p.User != nil {
		s.User = p.User.toUser()
	}
	return s
}

// SignUp registers an account. The session is nil when the project requires
// email confirmation before the first sign-in.
func (c *AuthClient) SignUp(ctx context.Context, email, password string, fullName *string) (*identity.User, *identity.Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	if fullName != nil {
		body["data"] = map[string]string{"full_name": *fullName}
	}

	raw, err := c.makeRequest(ctx, http.MethodPost, "/signup", "", body)
	if err != nil {
		return nil, nil, err
	}

	var sp sessionPayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return nil, nil, fmt.Errorf("decode signup: %w", err)
	}
	if sp.AccessToken != "" && sp.User != nil {
		session := c.toSession(sp)
		c.Publish(ctx, identity.Event{Type: identity.SignedIn, Session: session})
		return &session.User, session, nil
	}

	var up userPayload
	if err := json.Unmarshal(raw, &up); err != nil {
		return nil, nil, fmt.Errorf("decode signup user: %w", err)
	}
	u := up.toUser()
	return &u, nil, nil
}

func (c *AuthClient) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	raw, err := c.makeRequest(ctx, http.MethodPost, "/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return c.startSession(ctx, raw)
}

func (c *AuthClient) startSession(ctx context.Context, raw []byte) (*identity.Session, error) {
	var sp sessionPayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sp.AccessToken == "" || sp.User == nil {
		return nil, fmt.Errorf("auth: sign-in returned no session: %w", apperr.ErrTransient)
	}

	session := c.toSession(sp)
	c.Publish(ctx, identity.Event{Type: identity.SignedIn, Session: session})
	return session, nil
}

// ExchangeCode completes an OAuth (PKCE) sign-in started at AuthorizeURL.
func (c *AuthClient) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*identity.Session, error) {
	raw, err := c.makeRequest(ctx, http.MethodPost, "/token?grant_type=pkce", "", map[string]string{
		"auth_code":     authCode,
		"code_verifier": codeVerifier,
	})
	if err != nil {
		return nil, err
	}
	return c.startSession(ctx, raw)
}

// AuthorizeURL is where the browser goes to sign in with an external
// provider such as "google".
func (c *AuthClient) AuthorizeURL() string {
	return c.baseURL + "/auth/v1/authorize"
}

func (c *AuthClient) ResendConfirmation(ctx context.Context, email string) error {
	_, err := c.makeRequest(ctx, http.MethodPost, "/resend", "", map[string]string{
		"type":  "signup",
		"email": email,
	})
	return err
}

func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	if _, err := c.makeRequest(ctx, http.MethodPost, "/logout", accessToken, nil); err != nil {
		return err
	}
	c.Publish(ctx, identity.Event{Type: identity.SignedOut})
	return nil
}

func (c *AuthClient) GetUser(ctx context.Context, accessToken string) (*identity.User, error) {
	raw, err := c.makeRequest(ctx, http.MethodGet, "/user", accessToken, nil)
	if err != nil {
		return nil, err
	}
	var up userPayload
	if err := json.Unmarshal(raw, &up); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	u := up.toUser()
	return &u, nil
}

func (c *AuthClient) ResetPassword(ctx context.Context, email, redirectTo string) error {
	endpoint := "/recover"
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	_, err := c.makeRequest(ctx, http.MethodPost, endpoint, "", map[string]string{"email": email})
	return err
}

func (c *AuthClient) UpdatePassword(ctx context.Context, accessToken, password string) error {
	_, err := c.makeRequest(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": password})
	return err
}

// makeRequest calls an /auth/v1 endpoint. accessToken, when set, replaces the
// anon key as bearer.
func (c *AuthClient) makeRequest(ctx context.Context, method, endpoint, accessToken string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/auth/v1"+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	bearer := c.apiKey
	if accessToken != "" {
		bearer = accessToken
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth %s %s: %w: %v", method, endpoint, apperr.ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth: read response: %w: %v", apperr.ErrTransient, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("auth %s %s: status %d: %w", method, endpoint, resp.StatusCode, apperr.ErrTransient)
	case resp.StatusCode >= 400:
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return respBody, nil
}

// errorMessage extracts the human message from the several error shapes the
// auth server uses.
func errorMessage(body []byte) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
			if m != "" {
				return m
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "request rejected"
}

// IsAPIError reports whether err is a 4xx answer from the auth server.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
