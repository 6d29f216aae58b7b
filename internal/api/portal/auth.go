package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"jobportal-bot/internal/models"
)

type tokenResponse struct {
	Access  string         `json:"access"`
	Refresh string         `json:"refresh"`
	Tokens  *models.Tokens `json:"tokens"`
	Role    models.Role    `json:"role"`
	User    *struct {
		Role models.Role `json:"role"`
	} `json:"user"`
}

func (t tokenResponse) pair() models.Tokens {
	if t.Tokens != nil {
		return *t.Tokens
	}
	return models.Tokens{Access: t.Access, Refresh: t.Refresh}
}

func (t tokenResponse) role() models.Role {
	if t.User != nil && t.User.Role.Valid() {
		return t.User.Role
	}
	if t.Role.Valid() {
		return t.Role
	}
	return ""
}

func (c *Client) anonymousJSON(ctx context.Context, path string, payload, dest any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	r := request{
		method:      http.MethodPost,
		path:        path,
		body:        data,
		contentType: "application/json",
		anonymous:   true,
	}
	return c.do(ctx, r, dest)
}

// Register creates an unverified account; the portal then sends an OTP
// to the email address.
func (c *Client) Register(ctx context.Context, reg models.Registration) error {
	if err := c.anonymousJSON(ctx, "/api/auth/register/", reg, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	c.logger.Info("registration submitted", zap.String("role", string(reg.Role)))
	return nil
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) (models.Tokens, error) {
	var resp tokenResponse
	payload := map[string]string{"email": email, "otp": code}
	if err := c.anonymousJSON(ctx, "/api/auth/verify-otp/", payload, &resp); err != nil {
		return models.Tokens{}, fmt.Errorf("verify otp: %w", err)
	}
	return resp.pair(), nil
}

func (c *Client) ResendOTP(ctx context.Context, email string) error {
	if err := c.anonymousJSON(ctx, "/api/auth/resend-otp/", map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("resend otp: %w", err)
	}
	return nil
}

// Login returns the issued pair and the account role. The role is empty
// when the portal does not report one.
func (c *Client) Login(ctx context.Context, email, password string) (models.Tokens, models.Role, error) {
	var resp tokenResponse
	payload := map[string]string{"email": email, "password": password}
	if err := c.anonymousJSON(ctx, "/api/auth/login/", payload, &resp); err != nil {
		return models.Tokens{}, "", fmt.Errorf("login: %w", err)
	}
	tokens := resp.pair()
	if tokens.Access == "" {
		return models.Tokens{}, "", fmt.Errorf("login: empty access token")
	}
	return tokens, resp.role(), nil
}

// RefreshTokens implements Refresher.
func (c *Client) RefreshTokens(ctx context.Context, refresh string) (models.Tokens, error) {
	var resp tokenResponse
	if err := c.anonymousJSON(ctx, "/api/auth/token/refresh/", map[string]string{"refresh": refresh}, &resp); err != nil {
		return models.Tokens{}, fmt.Errorf("refresh token: %w", err)
	}
	tokens := resp.pair()
	if tokens.Access == "" {
		return models.Tokens{}, fmt.Errorf("refresh token: empty access token")
	}
	return tokens, nil
}
