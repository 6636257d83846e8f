package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
)

// SessionRepository defines the interface for login session operations.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)
	// Delete removes the session only if it belongs to userID.
	Delete(ctx context.Context, userID, sessionID uuid.UUID) (bool, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteOthers(ctx context.Context, userID, keepID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, token, ip_address, user_agent, expires_at, created_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.IPAddress, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session.
func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	query := `
		INSERT INTO sessions (id, user_id, token, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return database.Conn(ctx, r.pool).QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
	).Scan(&session.CreatedAt)
}

// GetByToken retrieves a session by its token.
func (r *sessionRepo) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token = $1`
	return scanSession(database.Conn(ctx, r.pool).QueryRow(ctx, query, token))
}

// ListByUser lists the live sessions of a user, newest first.
func (r *sessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Delete removes one session owned by userID.
func (r *sessionRepo) Delete(ctx context.Context, userID, sessionID uuid.UUID) (bool, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByToken removes the session with the given token.
func (r *sessionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteByUser removes every session of a user.
func (r *sessionRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteOthers removes every session of a user except keepID.
func (r *sessionRepo) DeleteOthers(ctx context.Context, userID, keepID uuid.UUID) (int64, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND id <> $2`, userID, keepID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired purges sessions past their expiry.
func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Compile-time check
var _ SessionRepository = (*sessionRepo)(nil)
