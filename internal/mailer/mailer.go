// Package mailer sends transactional emails through Resend.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/a-h/templ"
	"github.com/resend/resend-go/v2"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/models"
)

// Mailer sends the platform's transactional emails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to string, locale models.Locale, resetURL string) error
	SendInvitation(ctx context.Context, to string, locale models.Locale, providerName, acceptURL string) error
}

// Sender is the part of the Resend client the mailer uses.
type Sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// New returns a Resend-backed mailer, or a logging mailer when no API key is configured.
func New(cfg config.EmailConfig, logger *slog.Logger) Mailer {
	if cfg.ResendAPIKey == "" {
		logger.Warn("email API key not configured, emails will only be logged")
		return &logMailer{logger: logger}
	}
	client := resend.NewClient(cfg.ResendAPIKey)
	return NewWithSender(client.Emails, cfg.From, logger)
}

// NewWithSender creates a mailer over an explicit sender.
func NewWithSender(sender Sender, from string, logger *slog.Logger) Mailer {
	return &resendMailer{sender: sender, from: from, logger: logger}
}

type resendMailer struct {
	sender Sender
	from   string
	logger *slog.Logger
}

func (m *resendMailer) send(ctx context.Context, to, subject string, body templ.Component) error {
	var buf bytes.Buffer
	if err := body.Render(ctx, &buf); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	sent, err := m.sender.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    buf.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Debug("email sent", slog.String("id", sent.Id), slog.String("subject", subject))
	return nil
}

// SendPasswordReset emails a password-reset link.
func (m *resendMailer) SendPasswordReset(ctx context.Context, to string, locale models.Locale, resetURL string) error {
	c := copyFor(locale)
	return m.send(ctx, to, c.resetSubject, actionEmail(c.resetBody, c.resetAction, resetURL, c.resetFooter))
}

// SendInvitation emails a provider invitation link.
func (m *resendMailer) SendInvitation(ctx context.Context, to string, locale models.Locale, providerName, acceptURL string) error {
	c := copyFor(locale)
	return m.send(ctx, to, c.inviteSubject, actionEmail(fmt.Sprintf(c.inviteBody, providerName), c.inviteAction, acceptURL, c.inviteFooter))
}

type logMailer struct {
	logger *slog.Logger
}

func (m *logMailer) SendPasswordReset(_ context.Context, to string, locale models.Locale, resetURL string) error {
	m.logger.Info("password reset email",
		slog.String("to", to),
		slog.String("locale", string(locale)),
		slog.String("url", resetURL),
	)
	return nil
}

func (m *logMailer) SendInvitation(_ context.Context, to string, locale models.Locale, providerName, acceptURL string) error {
	m.logger.Info("invitation email",
		slog.String("to", to),
		slog.String("locale", string(locale)),
		slog.String("provider", providerName),
		slog.String("url", acceptURL),
	)
	return nil
}
