package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the platform role of a user.
type Role string

const (
	RoleUser               Role = "USER"
	RoleHealthcareProvider Role = "HEALTHCARE_PROVIDER"
	RoleAdmin              Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleHealthcareProvider, RoleAdmin:
		return true
	}
	return false
}

// BypassesSubscription reports whether the role has access without a paid subscription.
func (r Role) BypassesSubscription() bool {
	return r == RoleHealthcareProvider || r == RoleAdmin
}

// Locale is a supported interface language.
type Locale string

const (
	LocaleFR Locale = "fr"
	LocaleEN Locale = "en"
)

// Theme is the preferred color scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// User represents a user account.
type User struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	Name             string     `json:"name" db:"name"`
	PasswordHash     *string    `json:"-" db:"password_hash"`
	Role             Role       `json:"role" db:"role"`
	ConsentGrantedAt *time.Time `json:"health_data_consent_granted_at,omitempty" db:"health_data_consent_granted_at"`
	Locale           Locale     `json:"locale" db:"locale"`
	Theme            Theme      `json:"theme" db:"theme"`
	EmailVerified    bool       `json:"email_verified" db:"email_verified"`
	OAuthProvider    *string    `json:"oauth_provider,omitempty" db:"oauth_provider"`
	OAuthProviderID  *string    `json:"-" db:"oauth_provider_id"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// HasConsented reports whether health-data consent has been granted.
func (u *User) HasConsented() bool {
	return u.ConsentGrantedAt != nil
}

// Session represents an authenticated user session.
type Session struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"-" db:"token"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the session has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Verification is a single-use password-reset token bound to an email.
type Verification struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Identifier string    `json:"identifier" db:"identifier"`
	Value      string    `json:"-" db:"value"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// UserListQuery filters the admin user listing.
type UserListQuery struct {
	Search string
	Limit  int
	Offset int
}
