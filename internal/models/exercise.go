package models

import (
	"time"

	"github.com/google/uuid"
)

// ExerciseCategory groups exercises by rehabilitation program.
type ExerciseCategory string

const (
	CategoryNeuro ExerciseCategory = "NEURO"
	CategoryOrtho ExerciseCategory = "ORTHO"
)

// Exercise is a rehabilitation exercise from the catalogue.
type Exercise struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	Slug            string           `json:"slug" db:"slug"`
	Category        ExerciseCategory `json:"category" db:"category"`
	Title           string           `json:"title" db:"title"`
	Description     string           `json:"description" db:"description"`
	BodyPart        string           `json:"body_part" db:"body_part"`
	Difficulty      string           `json:"difficulty" db:"difficulty"`
	DurationSeconds int              `json:"duration_seconds" db:"duration_seconds"`
	VideoURL        *string          `json:"video_url,omitempty" db:"video_url"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// ExerciseCompletion records a patient finishing an exercise.
type ExerciseCompletion struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	ExerciseID  uuid.UUID `json:"exercise_id" db:"exercise_id"`
	PainLevel   int       `json:"pain_level" db:"pain_level"`
	Notes       string    `json:"notes" db:"notes"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`

	// Populated by listing queries.
	ExerciseSlug  string `json:"exercise_slug,omitempty" db:"-"`
	ExerciseTitle string `json:"exercise_title,omitempty" db:"-"`
}
