package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/internal/repository"
)

// AuditEntry describes an event to record.
type AuditEntry struct {
	Event        models.AuditEvent
	ActorID      *uuid.UUID
	ResourceType models.ResourceType
	ResourceID   string
	IPAddress    string
	UserAgent    string
	Metadata     map[string]any
}

// AuditService records and queries security and admin events.
type AuditService interface {
	Log(ctx context.Context, entry AuditEntry) error
	List(ctx context.Context, query models.AuditLogQuery) ([]*models.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new audit service.
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// Log writes an audit log entry.
func (s *auditService) Log(ctx context.Context, entry AuditEntry) error {
	log := &models.AuditLog{
		Event:     entry.Event,
		ActorID:   entry.ActorID,
		IPAddress: strPtr(entry.IPAddress),
		UserAgent: strPtr(entry.UserAgent),
	}
	if entry.ResourceType != "" {
		rt := entry.ResourceType
		log.ResourceType = &rt
	}
	log.ResourceID = strPtr(entry.ResourceID)

	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		log.Metadata = raw
	}

	return s.auditRepo.Create(ctx, log)
}

// List returns audit logs matching the query.
func (s *auditService) List(ctx context.Context, query models.AuditLogQuery) ([]*models.AuditLog, error) {
	return s.auditRepo.List(ctx, query)
}

// Compile-time check
var _ AuditService = (*auditService)(nil)
