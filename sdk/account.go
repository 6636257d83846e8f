package sdk

import (
	"context"
	"net/url"
)

// AccountService handles the profile, sessions and consent of the current user.
type AccountService struct {
	client *Client
}

// UpdateProfileRequest is the request for changing name or email.
type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Profile returns the current user.
func (s *AccountService) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := s.client.get(ctx, "/api/account/profile", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes name or email.
func (s *AccountService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Result, error) {
	var res Result
	if err := s.client.patch(ctx, "/api/account/profile", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdatePreferences changes the interface locale and theme.
func (s *AccountService) UpdatePreferences(ctx context.Context, locale, theme string) (*Result, error) {
	var res Result
	body := map[string]string{"locale": locale, "theme": theme}
	if err := s.client.put(ctx, "/api/account/profile/preferences", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Sessions lists the active sessions of the current user.
func (s *AccountService) Sessions(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	if err := s.client.get(ctx, "/api/account/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// RevokeSession ends one of the user's other sessions.
func (s *AccountService) RevokeSession(ctx context.Context, id string) error {
	return s.client.delete(ctx, "/api/account/sessions/"+url.PathEscape(id), nil)
}

// ConsentStatus returns the health-data consent state.
func (s *AccountService) ConsentStatus(ctx context.Context) (*ConsentStatus, error) {
	var status ConsentStatus
	if err := s.client.get(ctx, "/api/account/consent", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GrantConsent records health-data consent. It fails with a conflict
// error when consent was already granted.
func (s *AccountService) GrantConsent(ctx context.Context) (*ConsentStatus, error) {
	var status ConsentStatus
	if err := s.client.post(ctx, "/api/account/consent", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ConsentHistory lists every recorded consent decision.
func (s *AccountService) ConsentHistory(ctx context.Context) ([]*ConsentHistory, error) {
	var history []*ConsentHistory
	if err := s.client.get(ctx, "/api/account/consent/history", &history); err != nil {
		return nil, err
	}
	return history, nil
}
