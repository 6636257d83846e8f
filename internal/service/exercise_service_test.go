package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
)

func newExerciseRepoWithCatalogue() *mockExerciseRepo {
	return &mockExerciseRepo{exercises: []*models.Exercise{
		{ID: uuid.New(), Slug: "mirror-therapy", Category: models.CategoryNeuro, Title: "Thérapie miroir"},
		{ID: uuid.New(), Slug: "knee-flexion", Category: models.CategoryOrtho, Title: "Flexion du genou"},
	}}
}

func TestExerciseService_ListByCategory(t *testing.T) {
	svc := NewExerciseService(newExerciseRepoWithCatalogue())

	all, err := svc.ListExercises(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	neuro, err := svc.ListExercises(context.Background(), "neuro")
	require.NoError(t, err)
	require.Len(t, neuro, 1)
	assert.Equal(t, "mirror-therapy", neuro[0].Slug)

	_, err = svc.ListExercises(context.Background(), "cardio")
	assert.Equal(t, "validation_error", apierrors.AsAPIError(err).Code)
}

func TestExerciseService_RecordCompletion(t *testing.T) {
	repo := newExerciseRepoWithCatalogue()
	svc := NewExerciseService(repo)
	userID := uuid.New()

	c, err := svc.RecordCompletion(context.Background(), userID, "knee-flexion", 3, "  un peu raide ")
	require.NoError(t, err)
	assert.Equal(t, "un peu raide", c.Notes)
	assert.Equal(t, "knee-flexion", c.ExerciseSlug)

	_, err = svc.RecordCompletion(context.Background(), userID, "knee-flexion", 11, "")
	assert.Equal(t, "validation_error", apierrors.AsAPIError(err).Code)

	_, err = svc.RecordCompletion(context.Background(), userID, "unknown", 1, "")
	assert.ErrorIs(t, err, apierrors.ErrNotFound)

	history, err := svc.ListCompletions(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
