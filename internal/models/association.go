package models

import (
	"time"

	"github.com/google/uuid"
)

// AssociationStatus is the state of a patient-provider invitation.
type AssociationStatus string

const (
	AssociationPending   AssociationStatus = "PENDING"
	AssociationAccepted  AssociationStatus = "ACCEPTED"
	AssociationDeclined  AssociationStatus = "DECLINED"
	AssociationCancelled AssociationStatus = "CANCELLED"
)

// InvitationTTL is how long a pending invitation can be accepted.
const InvitationTTL = 7 * 24 * time.Hour

// Association links a patient to a healthcare provider.
type Association struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	PatientID        uuid.UUID         `json:"patient_id" db:"patient_id"`
	ProviderID       uuid.UUID         `json:"provider_id" db:"provider_id"`
	Status           AssociationStatus `json:"status" db:"status"`
	InvitationToken  string            `json:"-" db:"invitation_token"`
	InvitationSentAt time.Time         `json:"invitation_sent_at" db:"invitation_sent_at"`
	RespondedAt      *time.Time        `json:"responded_at,omitempty" db:"responded_at"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`

	// Populated by listing queries.
	Patient  *UserSummary `json:"patient,omitempty" db:"-"`
	Provider *UserSummary `json:"provider,omitempty" db:"-"`
}

// InvitationExpired reports whether the invitation is 7 days old or more at now.
func (a *Association) InvitationExpired(now time.Time) bool {
	return !now.Before(a.InvitationSentAt.Add(InvitationTTL))
}

// UserSummary is the public projection of a user shown to their counterpart.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
