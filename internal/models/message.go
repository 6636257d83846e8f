package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a note exchanged between an associated patient and provider.
type Message struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	AssociationID uuid.UUID  `json:"association_id" db:"association_id"`
	SenderID      uuid.UUID  `json:"sender_id" db:"sender_id"`
	RecipientID   uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	Body          string     `json:"body" db:"body"`
	ReadAt        *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
