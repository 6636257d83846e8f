package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
)

// AuditRepository defines the interface for audit log operations.
type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, query models.AuditLogQuery) ([]*models.AuditLog, error)
}

type auditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit log repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepo{pool: pool}
}

// Create inserts a new audit log entry.
func (r *auditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	query := `
		INSERT INTO audit_logs (id, event, actor_id, resource_type, resource_id, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return database.Conn(ctx, r.pool).QueryRow(ctx, query,
		log.ID,
		log.Event,
		log.ActorID,
		log.ResourceType,
		log.ResourceID,
		log.IPAddress,
		log.UserAgent,
		log.Metadata,
	).Scan(&log.CreatedAt)
}

// List retrieves audit logs based on query parameters, newest first.
func (r *auditRepo) List(ctx context.Context, q models.AuditLogQuery) ([]*models.AuditLog, error) {
	query := `
		SELECT id, event, actor_id, resource_type, resource_id, ip_address, user_agent, metadata, created_at
		FROM audit_logs
		WHERE 1 = 1`
	var args []any

	if q.Event != nil {
		args = append(args, *q.Event)
		query += fmt.Sprintf(` AND event = $%d`, len(args))
	}
	if q.ActorID != nil {
		args = append(args, *q.ActorID)
		query += fmt.Sprintf(` AND actor_id = $%d`, len(args))
	}

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	args = append(args, limit, q.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(
			&l.ID,
			&l.Event,
			&l.ActorID,
			&l.ResourceType,
			&l.ResourceID,
			&l.IPAddress,
			&l.UserAgent,
			&l.Metadata,
			&l.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// Compile-time check
var _ AuditRepository = (*auditRepo)(nil)
