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

// ExerciseRepository defines the interface for the exercise catalogue and completions.
type ExerciseRepository interface {
	List(ctx context.Context, category *models.ExerciseCategory) ([]*models.Exercise, error)
	GetBySlug(ctx context.Context, slug string) (*models.Exercise, error)
	CreateCompletion(ctx context.Context, c *models.ExerciseCompletion) error
	ListCompletions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ExerciseCompletion, error)
	CountCompletionsSince(ctx context.Context, since time.Time) (int64, error)
}

type exerciseRepo struct {
	pool *pgxpool.Pool
}

// NewExerciseRepository creates a new exercise repository.
func NewExerciseRepository(pool *pgxpool.Pool) ExerciseRepository {
	return &exerciseRepo{pool: pool}
}

const exerciseColumns = `id, slug, category, title, description, body_part, difficulty, duration_seconds, video_url, created_at`

func scanExercise(row pgx.Row) (*models.Exercise, error) {
	var e models.Exercise
	err := row.Scan(
		&e.ID,
		&e.Slug,
		&e.Category,
		&e.Title,
		&e.Description,
		&e.BodyPart,
		&e.Difficulty,
		&e.DurationSeconds,
		&e.VideoURL,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns the catalogue, optionally filtered by category.
func (r *exerciseRepo) List(ctx context.Context, category *models.ExerciseCategory) ([]*models.Exercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM exercises`
	var args []any
	if category != nil {
		query += ` WHERE category = $1`
		args = append(args, *category)
	}
	query += ` ORDER BY category, title`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetBySlug retrieves an exercise by slug.
func (r *exerciseRepo) GetBySlug(ctx context.Context, slug string) (*models.Exercise, error) {
	return scanExercise(database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE slug = $1`, slug))
}

// CreateCompletion records a completed exercise.
func (r *exerciseRepo) CreateCompletion(ctx context.Context, c *models.ExerciseCompletion) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return database.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO exercise_completions (id, user_id, exercise_id, pain_level, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING completed_at`,
		c.ID, c.UserID, c.ExerciseID, c.PainLevel, c.Notes,
	).Scan(&c.CompletedAt)
}

// ListCompletions lists a user's completions with exercise details, newest first.
func (r *exerciseRepo) ListCompletions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ExerciseCompletion, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `
		SELECT c.id, c.user_id, c.exercise_id, c.pain_level, c.notes, c.completed_at, e.slug, e.title
		FROM exercise_completions c
		JOIN exercises e ON e.id = c.exercise_id
		WHERE c.user_id = $1
		ORDER BY c.completed_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ExerciseCompletion
	for rows.Next() {
		var c models.ExerciseCompletion
		if err := rows.Scan(&c.ID, &c.UserID, &c.ExerciseID, &c.PainLevel, &c.Notes, &c.CompletedAt,
			&c.ExerciseSlug, &c.ExerciseTitle); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CountCompletionsSince counts completions recorded after since.
func (r *exerciseRepo) CountCompletionsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM exercise_completions WHERE completed_at >= $1`, since).Scan(&n)
	return n, err
}

// Compile-time check
var _ ExerciseRepository = (*exerciseRepo)(nil)
