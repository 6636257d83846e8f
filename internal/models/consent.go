package models

import (
	"time"

	"github.com/google/uuid"
)

// ConsentType identifies what a consent entry covers.
type ConsentType string

const (
	ConsentTypeHealthData ConsentType = "HEALTH_DATA"
)

// ConsentHistory is an append-only record of a consent decision.
type ConsentHistory struct {
	ID          string      `json:"id" db:"id"`
	UserID      uuid.UUID   `json:"user_id" db:"user_id"`
	ConsentType ConsentType `json:"consent_type" db:"consent_type"`
	Granted     bool        `json:"granted" db:"granted"`
	IPAddress   *string     `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent   *string     `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// ConsentStatus is the current consent state of a user.
type ConsentStatus struct {
	Granted   bool       `json:"granted"`
	GrantedAt *time.Time `json:"granted_at,omitempty"`
}
