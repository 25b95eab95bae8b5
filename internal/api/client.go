// Package api is the HTTP client for the upstream REST backend that owns
// accounts, credentials, and profiles.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brightpath-hq/brightpath/internal/shared"
)

// Credentials is the login request payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput is the registration payload. InviteToken and ClassID come
// from the invitation link's query parameters and are validated upstream,
// not here.
type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	InviteToken string `json:"inviteToken,omitempty"`
	ClassID     string `json:"classId,omitempty"`
}

// LoginResult is the upstream response to a successful login or
// registration.
type LoginResult struct {
	Token string          `json:"token"`
	User  shared.Identity `json:"user"`
}

// Client talks JSON over HTTP to the upstream backend.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Login exchanges credentials for a bearer token and identity.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", "", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and, on success, returns a live session.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/v1/auth/register", "", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile resolves the bearer token into the current identity.
func (c *Client) Profile(ctx context.Context, token string) (*shared.Identity, error) {
	var out shared.Identity
	if err := c.do(ctx, http.MethodGet, "/v1/users/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword requests a password reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/forgot-password", "", map[string]string{"email": email}, nil)
}

// ResetPassword completes a password reset with the emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/reset-password", "", map[string]string{
		"token":    token,
		"password": password,
	}, nil)
}

// VerifyEmail confirms an email address with the emailed token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/verify-email", "", map[string]string{"token": token}, nil)
}

// ResendVerification asks the upstream to send a fresh verification email.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/resend-verification", "", map[string]string{"email": email}, nil)
}

type upstreamError struct {
	Message string `json:"message"`
}

// do performs one request and maps failures onto the portal error taxonomy:
// transport failures wrap ErrNetwork, a 401 on an authenticated call becomes
// ErrSessionExpired, and any other rejection surfaces the upstream message
// as an AuthError.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	if res.StatusCode == http.StatusUnauthorized && token != "" {
		return shared.ErrSessionExpired
	}
	if res.StatusCode >= 400 {
		var ue upstreamError
		if err := json.NewDecoder(res.Body).Decode(&ue); err != nil || ue.Message == "" {
			ue.Message = http.StatusText(res.StatusCode)
		}
		if c.logger != nil {
			c.logger.Debug("upstream rejected request",
				slog.String("path", path),
				slog.Int("status", res.StatusCode))
		}
		return &shared.AuthError{Message: ue.Message}
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("api: decode response: %w", err)
		}
	}
	return nil
}
