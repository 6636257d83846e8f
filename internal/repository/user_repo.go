// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
)

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines the interface for user operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByOAuth(ctx context.Context, provider, providerID string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) error
	UpdatePreferences(ctx context.Context, id uuid.UUID, locale models.Locale, theme models.Theme) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	LinkOAuth(ctx context.Context, id uuid.UUID, provider, providerID string) error
	// MarkConsentGranted sets the consent timestamp only if it is unset.
	// It reports false when another grant already landed.
	MarkConsentGranted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q models.UserListQuery) ([]*models.User, int64, error)
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
	CountConsented(ctx context.Context) (int64, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

const userColumns = `id, email, name, password_hash, role, health_data_consent_granted_at, locale, theme,
	email_verified, oauth_provider, oauth_provider_id, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Role,
		&u.ConsentGrantedAt,
		&u.Locale,
		&u.Theme,
		&u.EmailVerified,
		&u.OAuthProvider,
		&u.OAuthProviderID,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new user.
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Locale == "" {
		user.Locale = models.LocaleFR
	}
	if user.Theme == "" {
		user.Theme = models.ThemeSystem
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, role, locale, theme, email_verified, oauth_provider, oauth_provider_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Locale,
		user.Theme,
		user.EmailVerified,
		user.OAuthProvider,
		user.OAuthProviderID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a user by ID.
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(database.Conn(ctx, r.pool).QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(database.Conn(ctx, r.pool).QueryRow(ctx, query, email))
}

// GetByOAuth retrieves a user by OAuth provider identity.
func (r *userRepo) GetByOAuth(ctx context.Context, provider, providerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE oauth_provider = $1 AND oauth_provider_id = $2`
	return scanUser(database.Conn(ctx, r.pool).QueryRow(ctx, query, provider, providerID))
}

func (r *userRepo) exec(ctx context.Context, query string, args ...any) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateProfile updates the display name and email.
func (r *userRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) error {
	return r.exec(ctx, `UPDATE users SET name = $2, email = $3, updated_at = NOW() WHERE id = $1`, id, name, email)
}

// UpdatePreferences updates locale and theme.
func (r *userRepo) UpdatePreferences(ctx context.Context, id uuid.UUID, locale models.Locale, theme models.Theme) error {
	return r.exec(ctx, `UPDATE users SET locale = $2, theme = $3, updated_at = NOW() WHERE id = $1`, id, locale, theme)
}

// UpdatePassword replaces the password hash.
func (r *userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
}

// UpdateRole changes the user's role.
func (r *userRepo) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	return r.exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
}

// UpdateLastLogin stamps the last login time.
func (r *userRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
}

// LinkOAuth attaches an OAuth identity to an existing account.
func (r *userRepo) LinkOAuth(ctx context.Context, id uuid.UUID, provider, providerID string) error {
	return r.exec(ctx, `
		UPDATE users SET oauth_provider = $2, oauth_provider_id = $3, email_verified = TRUE, updated_at = NOW()
		WHERE id = $1`, id, provider, providerID)
}

// MarkConsentGranted sets the consent timestamp if it is still unset.
func (r *userRepo) MarkConsentGranted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET health_data_consent_granted_at = $2, updated_at = NOW()
		WHERE id = $1 AND health_data_consent_granted_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a user. Owned rows go with it through ON DELETE CASCADE.
func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

// List returns a page of users matching the search term and the total match count.
func (r *userRepo) List(ctx context.Context, q models.UserListQuery) ([]*models.User, int64, error) {
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pattern := "%" + q.Search + "%"

	db := database.Conn(ctx, r.pool)

	var total int64
	if err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE email ILIKE $1 OR name ILIKE $1`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email ILIKE $1 OR name ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, pattern, limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// CountByRole returns the number of users per role.
func (r *userRepo) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Role]int64)
	for rows.Next() {
		var role models.Role
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

// CountConsented returns the number of users who granted health-data consent.
func (r *userRepo) CountConsented(ctx context.Context) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE health_data_consent_granted_at IS NOT NULL`).Scan(&n)
	return n, err
}

// Compile-time check
var _ UserRepository = (*userRepo)(nil)
