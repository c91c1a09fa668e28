package apiclient

import (
	"context"
	"net/http"

	"casedesk/internal/models"
)

type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.sendJSON(ctx, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	var out AuthResult
	err := c.sendJSON(ctx, http.MethodPost, "/auth/register", "", req, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, token string) (models.User, error) {
	var out models.User
	err := c.getJSON(ctx, "/auth/profile", token, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, token string, req ProfileUpdate) (models.User, error) {
	var out models.User
	err := c.sendJSON(ctx, http.MethodPut, "/auth/profile", token, req, &out)
	return out, err
}

func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	return c.sendJSON(ctx, http.MethodPut, "/auth/change-password", token,
		map[string]string{"currentPassword": current, "newPassword": next}, nil)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.sendJSON(ctx, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) error {
	return c.sendJSON(ctx, http.MethodPost, "/auth/reset-password/"+escape(resetToken), "", map[string]string{"password": password}, nil)
}
