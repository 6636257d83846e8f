package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
)

type resetFixture struct {
	svc           *passwordResetService
	users         *mockUserRepo
	verifications *mockVerificationRepo
	sessions      *mockSessionRepo
	mailer        *MockMailer
	audits        *mockAuditRepo
	now           time.Time
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	f := &resetFixture{
		users:         newMockUserRepo(),
		verifications: newMockVerificationRepo(),
		sessions:      newMockSessionRepo(),
		mailer:        new(MockMailer),
		audits:        &mockAuditRepo{},
		now:           time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewPasswordResetService(
		&mockTx{},
		f.users,
		f.verifications,
		f.sessions,
		NewResetLimiter(newMemoryEventStore()),
		f.mailer,
		NewAuditService(f.audits),
		"https://rehab.example.com/",
		testLogger(),
	).(*passwordResetService)
	f.svc.clock = func() time.Time { return f.now }
	return f
}

func TestPasswordReset_RequestSendsLocalizedLink(t *testing.T) {
	f := newResetFixture(t)
	f.users.add(&models.User{Email: "patient@example.com", Locale: models.LocaleEN})

	var sentURL string
	f.mailer.On("SendPasswordReset", mock.Anything, "patient@example.com", models.LocaleEN, mock.Anything).
		Run(func(args mock.Arguments) { sentURL = args.String(3) }).
		Return(nil)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "patient@example.com"))

	assert.True(t, strings.HasPrefix(sentURL, "https://rehab.example.com/en/auth/reset-password?token="), sentURL)
	require.Len(t, f.verifications.items, 1)
	for _, v := range f.verifications.items {
		assert.Equal(t, f.now.Add(ResetTokenTTL), v.ExpiresAt)
		assert.Contains(t, sentURL, v.Value)
	}
	f.mailer.AssertExpectations(t)
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newResetFixture(t)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.verifications.items)
	f.mailer.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPasswordReset_FourthRequestInHourIsRateLimited(t *testing.T) {
	f := newResetFixture(t)
	f.users.add(&models.User{Email: "patient@example.com"})
	f.mailer.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	start := f.now
	for i := 0; i < 3; i++ {
		f.now = start.Add(time.Duration(i) * 10 * time.Minute)
		require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "patient@example.com"))
	}

	f.now = start.Add(25 * time.Minute)
	err := f.svc.RequestPasswordReset(context.Background(), "patient@example.com")
	require.Error(t, err)

	var rl *apierrors.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Greater(t, rl.CooldownSeconds(), 0)
	assert.Equal(t, 429, apierrors.AsAPIError(err).StatusCode)
	assert.Len(t, f.verifications.items, 3)
}

func TestPasswordReset_ConsumeRevokesTokensAndSessions(t *testing.T) {
	f := newResetFixture(t)
	user := f.users.add(&models.User{Email: "patient@example.com"})
	other := f.users.add(&models.User{Email: "other@example.com"})

	for _, v := range []string{"tok-1", "tok-2", "tok-3"} {
		require.NoError(t, f.verifications.Create(context.Background(), &models.Verification{
			Identifier: user.Email, Value: v, ExpiresAt: f.now.Add(30 * time.Minute),
		}))
	}
	require.NoError(t, f.verifications.Create(context.Background(), &models.Verification{
		Identifier: other.Email, Value: "other-tok", ExpiresAt: f.now.Add(30 * time.Minute),
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.sessions.Create(context.Background(), &models.Session{UserID: user.ID, Token: "s" + string(rune('a'+i))}))
	}
	require.NoError(t, f.sessions.Create(context.Background(), &models.Session{UserID: other.ID, Token: "other"}))

	require.NoError(t, f.svc.ResetPassword(context.Background(), "tok-2", "nouveau-mot-de-passe"))

	assert.Zero(t, f.verifications.countFor(user.Email))
	assert.Equal(t, 1, f.verifications.countFor(other.Email))
	assert.Zero(t, f.sessions.countFor(user.ID))
	assert.Equal(t, 1, f.sessions.countFor(other.ID))
	assert.True(t, checkPassword(f.users.users[user.ID].PasswordHash, "nouveau-mot-de-passe"))
	assert.Equal(t, []models.AuditEvent{models.AuditEventAuthPasswordReset}, f.audits.events())

	err := f.svc.ResetPassword(context.Background(), "tok-1", "encore-un-autre")
	assert.ErrorIs(t, err, apierrors.ErrInvalidResetToken)
}

func TestPasswordReset_ConcurrentResetsConsumeTokenOnce(t *testing.T) {
	f := newResetFixture(t)
	user := f.users.add(&models.User{Email: "patient@example.com"})
	require.NoError(t, f.verifications.Create(context.Background(), &models.Verification{
		Identifier: user.Email, Value: "shared", ExpiresAt: f.now.Add(30 * time.Minute),
	}))

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.ResetPassword(context.Background(), "shared", "mot-de-passe-"+string(rune('a'+i))+"-long")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apierrors.ErrInvalidResetToken)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, []models.AuditEvent{models.AuditEventAuthPasswordReset}, f.audits.events())
	assert.Zero(t, f.verifications.countFor(user.Email))
}

func TestPasswordReset_ExpiredTokenRejectedAndDeleted(t *testing.T) {
	f := newResetFixture(t)
	user := f.users.add(&models.User{Email: "patient@example.com"})
	require.NoError(t, f.verifications.Create(context.Background(), &models.Verification{
		Identifier: user.Email, Value: "old", ExpiresAt: f.now,
	}))
	require.NoError(t, f.sessions.Create(context.Background(), &models.Session{UserID: user.ID, Token: "live"}))

	err := f.svc.ValidateResetToken(context.Background(), "old")
	assert.ErrorIs(t, err, apierrors.ErrResetTokenExpired)
	assert.Empty(t, f.verifications.items)
	assert.Equal(t, 1, f.sessions.countFor(user.ID))
}

func TestPasswordReset_WeakPasswordRejected(t *testing.T) {
	f := newResetFixture(t)
	err := f.svc.ResetPassword(context.Background(), "whatever", "court")
	require.Error(t, err)
	assert.Equal(t, "validation_error", apierrors.AsAPIError(err).Code)
}
