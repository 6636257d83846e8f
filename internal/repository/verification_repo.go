package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
)

// VerificationRepository stores password-reset tokens.
type VerificationRepository interface {
	Create(ctx context.Context, v *models.Verification) error
	GetByValue(ctx context.Context, value string) (*models.Verification, error)
	// Consume deletes a token that is still live at now and returns it.
	// It returns nil when the token is unknown, expired or already consumed.
	Consume(ctx context.Context, value string, now time.Time) (*models.Verification, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByIdentifier(ctx context.Context, identifier string) (int64, error)
}

type verificationRepo struct {
	pool *pgxpool.Pool
}

// NewVerificationRepository creates a new verification repository.
func NewVerificationRepository(pool *pgxpool.Pool) VerificationRepository {
	return &verificationRepo{pool: pool}
}

// Create stores a new token.
func (r *verificationRepo) Create(ctx context.Context, v *models.Verification) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return database.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO verifications (id, identifier, value, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		v.ID, v.Identifier, v.Value, v.ExpiresAt,
	).Scan(&v.CreatedAt)
}

// GetByValue looks a token up by its value.
func (r *verificationRepo) GetByValue(ctx context.Context, value string) (*models.Verification, error) {
	var v models.Verification
	err := database.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, identifier, value, expires_at, created_at
		FROM verifications WHERE value = $1`, value,
	).Scan(&v.ID, &v.Identifier, &v.Value, &v.ExpiresAt, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Consume claims a live token. The DELETE locks the row, so of two concurrent
// callers only one gets it back.
func (r *verificationRepo) Consume(ctx context.Context, value string, now time.Time) (*models.Verification, error) {
	var v models.Verification
	err := database.Conn(ctx, r.pool).QueryRow(ctx, `
		DELETE FROM verifications
		WHERE value = $1 AND expires_at > $2
		RETURNING id, identifier, value, expires_at, created_at`, value, now,
	).Scan(&v.ID, &v.Identifier, &v.Value, &v.ExpiresAt, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteByID removes a single token.
func (r *verificationRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM verifications WHERE id = $1`, id)
	return err
}

// DeleteByIdentifier removes every token issued for an identifier.
func (r *verificationRepo) DeleteByIdentifier(ctx context.Context, identifier string) (int64, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM verifications WHERE lower(identifier) = lower($1)`, identifier)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Compile-time check
var _ VerificationRepository = (*verificationRepo)(nil)
