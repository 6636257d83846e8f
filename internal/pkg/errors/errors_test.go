package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAsAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"api error", ErrConsentAlreadyGranted, "consent_already_granted"},
		{"wrapped api error", fmt.Errorf("grant: %w", ErrInvitationExpired), "invitation_expired"},
		{"rate limit", &RateLimitError{Cooldown: time.Minute}, "rate_limited"},
		{"plain error", fmt.Errorf("boom"), "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, AsAPIError(tt.err).Code)
		})
	}
}

func TestAPIError_IsMatchesCopies(t *testing.T) {
	custom := ErrForbidden.WithMessage("Accès réservé")
	assert.ErrorIs(t, custom, ErrForbidden)
	assert.NotErrorIs(t, custom, ErrUnauthorized)
	assert.Equal(t, http.StatusForbidden, custom.StatusCode)
}

func TestRateLimitError_CooldownSeconds(t *testing.T) {
	assert.Equal(t, 300, (&RateLimitError{Cooldown: 5 * time.Minute}).CooldownSeconds())
	assert.Equal(t, 2, (&RateLimitError{Cooldown: 1500 * time.Millisecond}).CooldownSeconds())
	assert.Equal(t, 0, (&RateLimitError{}).CooldownSeconds())
}

func TestConsentAlreadyGrantedMessage(t *testing.T) {
	assert.Equal(t, "Le consentement a déjà été accordé", ErrConsentAlreadyGranted.Error())
	assert.Equal(t, "Cannot delete your own account", ErrCannotDeleteSelf.Error())
}
