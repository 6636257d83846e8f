package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
)

func newTestConsentService(now time.Time) (*consentService, *mockUserRepo, *mockConsentRepo, *mockAuditRepo) {
	users := newMockUserRepo()
	consents := &mockConsentRepo{}
	audits := &mockAuditRepo{}
	svc := NewConsentService(&mockTx{}, users, consents, NewAuditService(audits), testLogger()).(*consentService)
	svc.clock = fixedClock(now)
	return svc, users, consents, audits
}

func TestConsentService_GrantConsent(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	svc, users, consents, audits := newTestConsentService(now)
	user := users.add(&models.User{Email: "patient@example.com"})

	status, err := svc.GrantConsent(context.Background(), user.ID, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.True(t, status.Granted)
	require.NotNil(t, status.GrantedAt)
	assert.Equal(t, now, *status.GrantedAt)

	assert.Equal(t, now, *users.users[user.ID].ConsentGrantedAt)
	require.Len(t, consents.entries, 1)
	assert.Equal(t, models.ConsentTypeHealthData, consents.entries[0].ConsentType)
	assert.True(t, consents.entries[0].Granted)
	assert.Equal(t, "10.0.0.1", *consents.entries[0].IPAddress)
	assert.Equal(t, []models.AuditEvent{models.AuditEventConsentGranted}, audits.events())
}

func TestConsentService_GrantConsentTwiceFails(t *testing.T) {
	svc, users, consents, _ := newTestConsentService(time.Now())
	user := users.add(&models.User{Email: "patient@example.com"})

	_, err := svc.GrantConsent(context.Background(), user.ID, "", "")
	require.NoError(t, err)

	_, err = svc.GrantConsent(context.Background(), user.ID, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrConsentAlreadyGranted)
	assert.Equal(t, "Le consentement a déjà été accordé", err.Error())
	assert.Len(t, consents.entries, 1)
}

func TestConsentService_ConcurrentGrantsSucceedOnce(t *testing.T) {
	svc, users, _, _ := newTestConsentService(time.Now())
	user := users.add(&models.User{Email: "patient@example.com"})
	// Hide the timestamp from the pre-check so every caller reaches the guarded update.
	svc.userRepo = &staleUserRepo{mockUserRepo: users}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GrantConsent(context.Background(), user.ID, "", ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestConsentService_UnknownUser(t *testing.T) {
	svc, _, _, _ := newTestConsentService(time.Now())
	_, err := svc.GrantConsent(context.Background(), uuid.New(), "", "")
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}

func TestConsentService_ConsentStatus(t *testing.T) {
	svc, users, _, _ := newTestConsentService(time.Now())
	user := users.add(&models.User{Email: "patient@example.com"})

	status, err := svc.ConsentStatus(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, status.Granted)
	assert.Nil(t, status.GrantedAt)
}

// staleUserRepo returns users as if read before any consent landed.
type staleUserRepo struct {
	*mockUserRepo
}

func (r *staleUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := r.mockUserRepo.GetByID(ctx, id)
	if u == nil || err != nil {
		return u, err
	}
	c := *u
	c.ConsentGrantedAt = nil
	return &c, nil
}
