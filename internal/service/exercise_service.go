package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

const (
	maxPainLevel        = 10
	maxNotesLength      = 1000
	defaultHistoryLimit = 50
)

// ExerciseService serves the exercise catalogue and records completions.
type ExerciseService interface {
	ListExercises(ctx context.Context, category string) ([]*models.Exercise, error)
	GetExercise(ctx context.Context, slug string) (*models.Exercise, error)
	RecordCompletion(ctx context.Context, userID uuid.UUID, slug string, painLevel int, notes string) (*models.ExerciseCompletion, error)
	ListCompletions(ctx context.Context, userID uuid.UUID) ([]*models.ExerciseCompletion, error)
}

type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	clock        Clock
}

// NewExerciseService creates a new exercise service.
func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{exerciseRepo: exerciseRepo}
}

// ParseCategory maps a query or path value to a category. Empty means all.
func ParseCategory(raw string) (*models.ExerciseCategory, error) {
	if raw == "" {
		return nil, nil
	}
	c := models.ExerciseCategory(strings.ToUpper(raw))
	switch c {
	case models.CategoryNeuro, models.CategoryOrtho:
		return &c, nil
	}
	return nil, apierrors.NewValidationError("category", "Catégorie inconnue")
}

func (s *exerciseService) ListExercises(ctx context.Context, category string) ([]*models.Exercise, error) {
	c, err := ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.exerciseRepo.List(ctx, c)
}

func (s *exerciseService) GetExercise(ctx context.Context, slug string) (*models.Exercise, error) {
	ex, err := s.exerciseRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, apierrors.NewNotFoundError("Exercice")
	}
	return ex, nil
}

func (s *exerciseService) RecordCompletion(ctx context.Context, userID uuid.UUID, slug string, painLevel int, notes string) (*models.ExerciseCompletion, error) {
	if painLevel < 0 || painLevel > maxPainLevel {
		return nil, apierrors.NewValidationError("pain_level", "Le niveau de douleur doit être compris entre 0 et 10")
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return nil, apierrors.NewValidationError("notes", "Les notes ne doivent pas dépasser 1000 caractères")
	}

	ex, err := s.GetExercise(ctx, slug)
	if err != nil {
		return nil, err
	}

	completion := &models.ExerciseCompletion{
		UserID:        userID,
		ExerciseID:    ex.ID,
		PainLevel:     painLevel,
		Notes:         notes,
		CompletedAt:   s.clock.now(),
		ExerciseSlug:  ex.Slug,
		ExerciseTitle: ex.Title,
	}
	if err := s.exerciseRepo.CreateCompletion(ctx, completion); err != nil {
		return nil, err
	}
	return completion, nil
}

func (s *exerciseService) ListCompletions(ctx context.Context, userID uuid.UUID) ([]*models.ExerciseCompletion, error) {
	return s.exerciseRepo.ListCompletions(ctx, userID, defaultHistoryLimit)
}

// Compile-time check
var _ ExerciseService = (*exerciseService)(nil)
