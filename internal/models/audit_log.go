package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEvent represents the type of audit event.
type AuditEvent string

const (
	// Auth events
	AuditEventAuthLogin         AuditEvent = "auth.login"
	AuditEventAuthLogout        AuditEvent = "auth.logout"
	AuditEventAuthRegister      AuditEvent = "auth.register"
	AuditEventAuthPasswordReset AuditEvent = "auth.password_reset"

	// Session events
	AuditEventSessionRevoked AuditEvent = "session.revoked"

	// Consent events
	AuditEventConsentGranted AuditEvent = "consent.granted"

	// User events
	AuditEventUserDeleted     AuditEvent = "user.deleted"
	AuditEventUserRoleUpdated AuditEvent = "user.role_updated"

	// Association events
	AuditEventAssociationInvited   AuditEvent = "association.invited"
	AuditEventAssociationAccepted  AuditEvent = "association.accepted"
	AuditEventAssociationDeclined  AuditEvent = "association.declined"
	AuditEventAssociationCancelled AuditEvent = "association.cancelled"

	// Billing events
	AuditEventSubscriptionUpdated AuditEvent = "subscription.updated"
)

// ResourceType represents the type of resource being acted upon.
type ResourceType string

const (
	ResourceTypeUser         ResourceType = "user"
	ResourceTypeSession      ResourceType = "session"
	ResourceTypeConsent      ResourceType = "consent"
	ResourceTypeAssociation  ResourceType = "association"
	ResourceTypeSubscription ResourceType = "subscription"
)

// AuditLog represents an audit log entry.
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Event        AuditEvent      `json:"event" db:"event"`
	ActorID      *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	ResourceType *ResourceType   `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   *string         `json:"resource_id,omitempty" db:"resource_id"`
	IPAddress    *string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    *string         `json:"user_agent,omitempty" db:"user_agent"`
	Metadata     json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// AuditLogQuery represents query parameters for fetching audit logs.
type AuditLogQuery struct {
	Event   *AuditEvent
	ActorID *uuid.UUID
	Limit   int
	Offset  int
}
