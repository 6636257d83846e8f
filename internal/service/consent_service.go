package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

// ConsentService manages health-data consent.
type ConsentService interface {
	// GrantConsent records the user's health-data consent. It is not
	// idempotent: a second call fails with ErrConsentAlreadyGranted.
	GrantConsent(ctx context.Context, userID uuid.UUID, ip, userAgent string) (*models.ConsentStatus, error)
	ConsentStatus(ctx context.Context, userID uuid.UUID) (*models.ConsentStatus, error)
	ConsentHistory(ctx context.Context, userID uuid.UUID) ([]*models.ConsentHistory, error)
}

type consentService struct {
	tx          database.TxManager
	userRepo    repository.UserRepository
	consentRepo repository.ConsentRepository
	audit       AuditService
	logger      *slog.Logger
	clock       Clock
}

// NewConsentService creates a new consent service.
func NewConsentService(
	tx database.TxManager,
	userRepo repository.UserRepository,
	consentRepo repository.ConsentRepository,
	audit AuditService,
	logger *slog.Logger,
) ConsentService {
	return &consentService{
		tx:          tx,
		userRepo:    userRepo,
		consentRepo: consentRepo,
		audit:       audit,
		logger:      logger,
	}
}

func (s *consentService) GrantConsent(ctx context.Context, userID uuid.UUID, ip, userAgent string) (*models.ConsentStatus, error) {
	now := s.clock.now()

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apierrors.NewNotFoundError("Utilisateur")
		}
		if user.HasConsented() {
			return apierrors.ErrConsentAlreadyGranted
		}

		if err := s.consentRepo.Append(ctx, &models.ConsentHistory{
			UserID:      userID,
			ConsentType: models.ConsentTypeHealthData,
			Granted:     true,
			IPAddress:   strPtr(ip),
			UserAgent:   strPtr(userAgent),
		}); err != nil {
			return fmt.Errorf("failed to append consent history: %w", err)
		}

		// The guarded update loses to a concurrent grant that committed first.
		marked, err := s.userRepo.MarkConsentGranted(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("failed to mark consent: %w", err)
		}
		if !marked {
			return apierrors.ErrConsentAlreadyGranted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, AuditEntry{
		Event:        models.AuditEventConsentGranted,
		ActorID:      &userID,
		ResourceType: models.ResourceTypeConsent,
		ResourceID:   userID.String(),
		IPAddress:    ip,
		UserAgent:    userAgent,
		Metadata:     map[string]any{"consent_type": models.ConsentTypeHealthData},
	}); err != nil {
		s.logger.Warn("failed to audit consent grant", slog.String("error", err.Error()))
	}

	return &models.ConsentStatus{Granted: true, GrantedAt: &now}, nil
}

func (s *consentService) ConsentStatus(ctx context.Context, userID uuid.UUID) (*models.ConsentStatus, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierrors.NewNotFoundError("Utilisateur")
	}
	return &models.ConsentStatus{Granted: user.HasConsented(), GrantedAt: user.ConsentGrantedAt}, nil
}

func (s *consentService) ConsentHistory(ctx context.Context, userID uuid.UUID) ([]*models.ConsentHistory, error) {
	return s.consentRepo.ListByUser(ctx, userID)
}

// Compile-time check
var _ ConsentService = (*consentService)(nil)
