package sdk

import (
	"context"
	"time"
)

// AuthService handles sign-in and session lookup.
type AuthService struct {
	client *Client
}

// LoginRequest is the request for signing in with a password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful sign-in.
type LoginResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionInfo is the identity behind the current token.
type SessionInfo struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

// Login signs in with email and password. The returned token is kept by the
// client and sent on every later call.
//
// Example:
//
//	resp, err := client.Auth.Login(ctx, "admin@example.com", "secret-password")
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := s.client.post(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	s.client.token = resp.Token
	return &resp, nil
}

// Logout ends the current session and forgets the token.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.client.post(ctx, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	s.client.token = ""
	return nil
}

// Session returns the user and session of the current token.
func (s *AuthService) Session(ctx context.Context) (*SessionInfo, error) {
	var resp SessionInfo
	if err := s.client.get(ctx, "/api/auth/session", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword requests a reset email. A rate-limited call returns an
// *Error whose Cooldown says how long to wait.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.client.post(ctx, "/api/auth/forgot-password", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password with a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	return s.client.post(ctx, "/api/auth/reset-password", map[string]string{
		"token":    token,
		"password": password,
	}, nil)
}
