package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// ErrEmptyToken means the login response carried no access token.
var ErrEmptyToken = errors.New("apiclient: login returned no access token")

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for an access token. A 401 here is a wrong
// password, not an expired session, so it surfaces as *APIError.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok tokenResponse
	if err := c.PostForm(ctx, "/auth/login", form, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", ErrEmptyToken
	}
	return tok.AccessToken, nil
}

// SignupResult is the created account.
type SignupResult struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email,omitempty"`
	IsActive bool   `json:"is_active"`
}

// Signup registers a Customer account. Other roles are created by admins.
func (c *Client) Signup(ctx context.Context, username, password string) (*SignupResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
		"role":     "Customer",
	}
	var out SignupResult
	if err := c.DoPublic(ctx, http.MethodPost, "/auth/signup", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword asks the backend to alert an admin and returns its message.
func (c *Client) ForgotPassword(ctx context.Context, username string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.DoPublic(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"username": username}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
