package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/internal/pkg/ulid"
)

// ConsentRepository is the append-only consent log. It has no update or delete.
type ConsentRepository interface {
	Append(ctx context.Context, entry *models.ConsentHistory) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ConsentHistory, error)
}

type consentRepo struct {
	pool *pgxpool.Pool
}

// NewConsentRepository creates a new consent history repository.
func NewConsentRepository(pool *pgxpool.Pool) ConsentRepository {
	return &consentRepo{pool: pool}
}

// Append inserts a consent history entry.
func (r *consentRepo) Append(ctx context.Context, entry *models.ConsentHistory) error {
	if entry.ID == "" {
		entry.ID = ulid.New()
	}
	query := `
		INSERT INTO consent_history (id, user_id, consent_type, granted, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return database.Conn(ctx, r.pool).QueryRow(ctx, query,
		entry.ID,
		entry.UserID,
		entry.ConsentType,
		entry.Granted,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.CreatedAt)
}

// ListByUser lists a user's consent history, newest first.
func (r *consentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ConsentHistory, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, user_id, consent_type, granted, ip_address, user_agent, created_at
		FROM consent_history WHERE user_id = $1
		ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ConsentHistory
	for rows.Next() {
		var e models.ConsentHistory
		if err := rows.Scan(&e.ID, &e.UserID, &e.ConsentType, &e.Granted, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Compile-time check
var _ ConsentRepository = (*consentRepo)(nil)
