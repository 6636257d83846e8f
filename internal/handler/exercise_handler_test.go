package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/internal/service"
)

type mockExerciseService struct {
	listFunc     func(ctx context.Context, category string) ([]*models.Exercise, error)
	completeFunc func(ctx context.Context, userID uuid.UUID, slug string, pain int, notes string) (*models.ExerciseCompletion, error)
}

func (m *mockExerciseService) ListExercises(ctx context.Context, category string) ([]*models.Exercise, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, category)
	}
	return nil, nil
}

func (m *mockExerciseService) GetExercise(ctx context.Context, slug string) (*models.Exercise, error) {
	return nil, nil
}

func (m *mockExerciseService) RecordCompletion(ctx context.Context, userID uuid.UUID, slug string, pain int, notes string) (*models.ExerciseCompletion, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, userID, slug, pain, notes)
	}
	return nil, nil
}

func (m *mockExerciseService) ListCompletions(ctx context.Context, userID uuid.UUID) ([]*models.ExerciseCompletion, error) {
	return nil, nil
}

func consented(id *service.Identity) *service.Identity {
	now := time.Now()
	id.User.ConsentGrantedAt = &now
	return id
}

func TestExerciseHandler_GatePolicy(t *testing.T) {
	paid := &mockBillingService{
		hasAccessFunc: func(ctx context.Context, userID uuid.UUID) (bool, error) { return true, nil },
	}
	unpaid := &mockBillingService{}

	tests := []struct {
		name       string
		subs       *mockBillingService
		id         *service.Identity
		wantStatus int
		wantCode   string
	}{
		{name: "anonymous", subs: paid, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "no subscription", subs: unpaid, id: consented(testIdentity(models.RoleUser)), wantStatus: http.StatusForbidden, wantCode: "subscription_required"},
		{name: "no consent", subs: paid, id: testIdentity(models.RoleUser), wantStatus: http.StatusForbidden, wantCode: "consent_required"},
		{name: "allowed", subs: paid, id: consented(testIdentity(models.RoleUser)), wantStatus: http.StatusOK},
		{name: "provider bypasses subscription", subs: unpaid, id: consented(testIdentity(models.RoleHealthcareProvider)), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := service.NewAccessGate(tt.subs, testLogger())
			svc := &mockExerciseService{
				listFunc: func(ctx context.Context, category string) ([]*models.Exercise, error) {
					return []*models.Exercise{{Slug: "wrist-flexion"}}, nil
				},
			}
			router := NewExerciseHandler(svc, gate, testLogger()).Routes()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(t, http.MethodGet, "/", nil, tt.id, nil))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Error.Code)
			}
		})
	}
}

func TestExerciseHandler_CompleteValidatesPain(t *testing.T) {
	called := false
	svc := &mockExerciseService{
		completeFunc: func(ctx context.Context, userID uuid.UUID, slug string, pain int, notes string) (*models.ExerciseCompletion, error) {
			called = true
			return &models.ExerciseCompletion{ID: uuid.New(), UserID: userID, PainLevel: pain}, nil
		},
	}
	h := NewExerciseHandler(svc, service.NewAccessGate(&mockBillingService{}, testLogger()), testLogger())
	id := consented(testIdentity(models.RoleUser))
	params := map[string]string{"slug": "wrist-flexion"}

	rec := httptest.NewRecorder()
	h.Complete(rec, newRequest(t, http.MethodPost, "/api/exercises/wrist-flexion/complete", CompleteRequest{PainLevel: 11}, id, params))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	h.Complete(rec, newRequest(t, http.MethodPost, "/api/exercises/wrist-flexion/complete", CompleteRequest{PainLevel: 3, Notes: "ok"}, id, params))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, called)
}
