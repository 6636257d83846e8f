package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/mailer"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

// ResetTokenTTL is how long a password-reset token stays valid.
const ResetTokenTTL = time.Hour

// PasswordResetService handles the forgotten-password flow.
type PasswordResetService interface {
	// RequestPasswordReset issues a token and emails it. Unknown emails
	// succeed without issuing anything.
	RequestPasswordReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) error
	// ResetPassword consumes the token, then revokes every other token for
	// the account and every session of the user.
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type passwordResetService struct {
	tx               database.TxManager
	userRepo         repository.UserRepository
	verificationRepo repository.VerificationRepository
	sessionRepo      repository.SessionRepository
	limiter          ResetLimiter
	mailer           mailer.Mailer
	audit            AuditService
	baseURL          string
	logger           *slog.Logger
	clock            Clock
}

// NewPasswordResetService creates a new password reset service.
func NewPasswordResetService(
	tx database.TxManager,
	userRepo repository.UserRepository,
	verificationRepo repository.VerificationRepository,
	sessionRepo repository.SessionRepository,
	limiter ResetLimiter,
	m mailer.Mailer,
	audit AuditService,
	baseURL string,
	logger *slog.Logger,
) PasswordResetService {
	return &passwordResetService{
		tx:               tx,
		userRepo:         userRepo,
		verificationRepo: verificationRepo,
		sessionRepo:      sessionRepo,
		limiter:          limiter,
		mailer:           m,
		audit:            audit,
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		logger:           logger,
	}
}

func (s *passwordResetService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	now := s.clock.now()

	wait, err := s.limiter.Allow(ctx, email, now)
	if err != nil {
		return fmt.Errorf("failed to check reset rate limit: %w", err)
	}
	if wait > 0 {
		return &apierrors.RateLimitError{Cooldown: wait}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}

	token, err := generateToken(32)
	if err != nil {
		return err
	}
	if err := s.verificationRepo.Create(ctx, &models.Verification{
		Identifier: user.Email,
		Value:      token,
		ExpiresAt:  now.Add(ResetTokenTTL),
	}); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := s.baseURL + locale.Path(user.Locale, "/auth/reset-password") + "?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Locale, resetURL); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// lookup returns the live token or the matching error. Expired tokens are deleted.
func (s *passwordResetService) lookup(ctx context.Context, token string) (*models.Verification, error) {
	if token == "" {
		return nil, apierrors.ErrInvalidResetToken
	}
	v, err := s.verificationRepo.GetByValue(ctx, token)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apierrors.ErrInvalidResetToken
	}
	if !s.clock.now().Before(v.ExpiresAt) {
		if err := s.verificationRepo.DeleteByID(ctx, v.ID); err != nil {
			s.logger.Warn("failed to delete expired reset token", slog.String("error", err.Error()))
		}
		return nil, apierrors.ErrResetTokenExpired
	}
	return v, nil
}

func (s *passwordResetService) ValidateResetToken(ctx context.Context, token string) error {
	_, err := s.lookup(ctx, token)
	return err
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	v, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	var user *models.User
	var revoked int64
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		claimed, err := s.verificationRepo.Consume(ctx, v.Value, s.clock.now())
		if err != nil {
			return fmt.Errorf("failed to consume reset token: %w", err)
		}
		if claimed == nil {
			return apierrors.ErrInvalidResetToken
		}

		user, err = s.userRepo.GetByEmail(ctx, claimed.Identifier)
		if err != nil {
			return err
		}
		if user == nil {
			return apierrors.ErrInvalidResetToken
		}
		if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if _, err := s.verificationRepo.DeleteByIdentifier(ctx, claimed.Identifier); err != nil {
			return fmt.Errorf("failed to delete reset tokens: %w", err)
		}
		revoked, err = s.sessionRepo.DeleteByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.audit.Log(ctx, AuditEntry{
		Event:        models.AuditEventAuthPasswordReset,
		ActorID:      &user.ID,
		ResourceType: models.ResourceTypeUser,
		ResourceID:   user.ID.String(),
		Metadata:     map[string]any{"sessions_revoked": revoked},
	}); err != nil {
		s.logger.Warn("failed to audit password reset", slog.String("error", err.Error()))
	}
	return nil
}

// Compile-time check
var _ PasswordResetService = (*passwordResetService)(nil)
