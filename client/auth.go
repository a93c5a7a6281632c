package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"unihive/models"
)

type AuthResponse struct {
	Message string             `json:"message"`
	Token   string             `json:"token,omitempty"`
	User    *models.PublicUser `json:"user,omitempty"`
}

// postAuth posts payload to an auth endpoint and keeps any token it returns.
func (c *Client) postAuth(ctx context.Context, endpoint string, payload any) (AuthResponse, error) {
	var out AuthResponse
	raw, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("encode %s: %w", endpoint, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/"+endpoint, nil, bytes.NewReader(raw))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.do(req, endpoint, "", &out); err != nil {
		return out, err
	}
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (AuthResponse, error) {
	return c.postAuth(ctx, "register", map[string]string{"username": username, "email": email, "password": password})
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	return c.postAuth(ctx, "login", map[string]string{"username": username, "password": password})
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (AuthResponse, error) {
	return c.postAuth(ctx, "verify-otp", map[string]string{"email": email, "otp": otp})
}

func (c *Client) RequestOTP(ctx context.Context, email string) (AuthResponse, error) {
	return c.postAuth(ctx, "request-otp", map[string]string{"email": email})
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (AuthResponse, error) {
	return c.postAuth(ctx, "forgot-password", map[string]string{"email": email})
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, password string) (AuthResponse, error) {
	return c.postAuth(ctx, "reset-password", map[string]string{"email": email, "otp": otp, "password": password})
}

// Logout forgets the stored token.
func (c *Client) Logout() { c.SetToken("") }
