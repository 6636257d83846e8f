package mailer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/models"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendPasswordReset_Localized(t *testing.T) {
	tests := []struct {
		locale  models.Locale
		subject string
	}{
		{models.LocaleFR, "Réinitialisation de votre mot de passe"},
		{models.LocaleEN, "Reset your password"},
	}
	for _, tt := range tests {
		t.Run(string(tt.locale), func(t *testing.T) {
			sender := new(MockSender)
			sender.On("SendWithContext", mock.Anything, mock.MatchedBy(func(p *resend.SendEmailRequest) bool {
				return p.Subject == tt.subject &&
					p.From == "Rehab <noreply@rehab.test>" &&
					len(p.To) == 1 && p.To[0] == "alice@example.com" &&
					strings.Contains(p.Html, "https://app.test/fr/auth/reset-password?token=abc")
			})).Return(&resend.SendEmailResponse{Id: "em_1"}, nil)

			m := NewWithSender(sender, "Rehab <noreply@rehab.test>", discardLogger())
			err := m.SendPasswordReset(context.Background(), "alice@example.com", tt.locale,
				"https://app.test/fr/auth/reset-password?token=abc")

			require.NoError(t, err)
			sender.AssertExpectations(t)
		})
	}
}

func TestSendInvitation_EscapesProviderName(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendWithContext", mock.Anything, mock.AnythingOfType("*resend.SendEmailRequest")).
		Return(&resend.SendEmailResponse{Id: "em_2"}, nil)

	m := NewWithSender(sender, "from@test", discardLogger())
	err := m.SendInvitation(context.Background(), "bob@example.com", models.LocaleEN, "<b>Dr Who</b>", "https://app.test/accept")
	require.NoError(t, err)

	params := sender.Calls[0].Arguments.Get(1).(*resend.SendEmailRequest)
	assert.Equal(t, "Invitation from your healthcare provider", params.Subject)
	assert.Contains(t, params.Html, "&lt;b&gt;Dr Who&lt;/b&gt;")
	assert.NotContains(t, params.Html, "<b>Dr Who</b>")
}

func TestSend_ProviderError(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendWithContext", mock.Anything, mock.Anything).Return(nil, errors.New("503"))

	m := NewWithSender(sender, "from@test", discardLogger())
	err := m.SendPasswordReset(context.Background(), "a@b.c", models.LocaleFR, "https://x")
	assert.ErrorContains(t, err, "failed to send email")
}

func TestNew_WithoutAPIKeyLogsOnly(t *testing.T) {
	m := New(config.EmailConfig{}, discardLogger())
	_, ok := m.(*logMailer)
	require.True(t, ok)
	assert.NoError(t, m.SendInvitation(context.Background(), "a@b.c", models.LocaleFR, "Dr", "https://x"))
}
