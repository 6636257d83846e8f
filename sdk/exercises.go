package sdk

import (
	"context"
	"net/url"
)

// ExercisesService handles the exercise catalogue. Every call requires
// consent and an active subscription unless the caller is staff.
type ExercisesService struct {
	client *Client
}

// CompleteRequest is the request for recording a finished exercise.
type CompleteRequest struct {
	PainLevel int    `json:"pain_level"`
	Notes     string `json:"notes,omitempty"`
}

// List returns the catalogue, optionally filtered by category (NEURO, ORTHO).
func (s *ExercisesService) List(ctx context.Context, category string) ([]*Exercise, error) {
	path := "/api/exercises"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var exercises []*Exercise
	if err := s.client.get(ctx, path, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// Get returns one exercise by slug.
func (s *ExercisesService) Get(ctx context.Context, slug string) (*Exercise, error) {
	var exercise Exercise
	if err := s.client.get(ctx, "/api/exercises/"+url.PathEscape(slug), &exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

// Complete records that the current user finished an exercise.
func (s *ExercisesService) Complete(ctx context.Context, slug string, req CompleteRequest) (*Completion, error) {
	var completion Completion
	path := "/api/exercises/" + url.PathEscape(slug) + "/complete"
	if err := s.client.post(ctx, path, req, &completion); err != nil {
		return nil, err
	}
	return &completion, nil
}

// Completions lists the current user's finished exercises, newest first.
func (s *ExercisesService) Completions(ctx context.Context) ([]*Completion, error) {
	var completions []*Completion
	if err := s.client.get(ctx, "/api/exercises/completions", &completions); err != nil {
		return nil, err
	}
	return completions, nil
}
