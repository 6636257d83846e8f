package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/mailer"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

// AssociationService manages patient-provider invitations.
type AssociationService interface {
	// Invite creates a PENDING association and emails the patient.
	// A declined or cancelled association for the same pair is reopened.
	Invite(ctx context.Context, providerID uuid.UUID, patientEmail string) (*models.Association, error)

	// Accept moves the invitation to ACCEPTED. An invitation 7 days old or
	// more is moved to CANCELLED instead and ErrInvitationExpired is returned.
	Accept(ctx context.Context, patientID uuid.UUID, token string) (*models.Association, error)
	Decline(ctx context.Context, patientID uuid.UUID, token string) (*models.Association, error)

	// Cancel withdraws a pending invitation or ends an accepted association.
	Cancel(ctx context.Context, providerID, associationID uuid.UUID) (*models.Association, error)

	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.Association, error)
	ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*models.Association, error)
}

type associationService struct {
	tx              database.TxManager
	userRepo        repository.UserRepository
	associationRepo repository.AssociationRepository
	mailer          mailer.Mailer
	audit           AuditService
	baseURL         string
	logger          *slog.Logger
	clock           Clock
}

// NewAssociationService creates a new association service.
func NewAssociationService(
	tx database.TxManager,
	userRepo repository.UserRepository,
	associationRepo repository.AssociationRepository,
	m mailer.Mailer,
	audit AuditService,
	baseURL string,
	logger *slog.Logger,
) AssociationService {
	return &associationService{
		tx:              tx,
		userRepo:        userRepo,
		associationRepo: associationRepo,
		mailer:          m,
		audit:           audit,
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		logger:          logger,
	}
}

func (s *associationService) Invite(ctx context.Context, providerID uuid.UUID, patientEmail string) (*models.Association, error) {
	provider, err := s.userRepo.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider == nil || provider.Role != models.RoleHealthcareProvider {
		return nil, apierrors.ErrForbidden.WithMessage("Seuls les professionnels de santé peuvent inviter un patient")
	}

	patient, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(patientEmail))
	if err != nil {
		return nil, err
	}
	if patient == nil || patient.Role != models.RoleUser {
		return nil, apierrors.NewNotFoundError("Patient")
	}

	token, err := generateToken(32)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()

	var assoc *models.Association
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.associationRepo.GetByPairForUpdate(ctx, patient.ID, provider.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			assoc = &models.Association{
				PatientID:        patient.ID,
				ProviderID:       provider.ID,
				Status:           models.AssociationPending,
				InvitationToken:  token,
				InvitationSentAt: now,
			}
			return s.associationRepo.Create(ctx, assoc)
		}

		switch existing.Status {
		case models.AssociationAccepted:
			return apierrors.ErrAssociationExists
		case models.AssociationPending:
			if !existing.InvitationExpired(now) {
				return apierrors.ErrAssociationExists
			}
			// A stale invitation is cancelled before being reissued.
			if err := s.associationRepo.UpdateStatus(ctx, existing.ID, models.AssociationCancelled, &now); err != nil {
				return err
			}
		}

		if err := s.associationRepo.Reopen(ctx, existing.ID, token, now); err != nil {
			return fmt.Errorf("failed to reopen association: %w", err)
		}
		existing.Status = models.AssociationPending
		existing.InvitationToken = token
		existing.InvitationSentAt = now
		existing.RespondedAt = nil
		assoc = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	acceptURL := s.baseURL + locale.Path(patient.Locale, "/invitation") + "?token=" + url.QueryEscape(token)
	if err := s.mailer.SendInvitation(ctx, patient.Email, patient.Locale, provider.Name, acceptURL); err != nil {
		// The invitation stays valid; the patient also sees it in their dashboard.
		s.logger.Error("failed to send invitation email",
			slog.String("association_id", assoc.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logEvent(ctx, models.AuditEventAssociationInvited, provider.ID, assoc)
	return assoc, nil
}

func (s *associationService) Accept(ctx context.Context, patientID uuid.UUID, token string) (*models.Association, error) {
	return s.respond(ctx, patientID, token, models.AssociationAccepted)
}

func (s *associationService) Decline(ctx context.Context, patientID uuid.UUID, token string) (*models.Association, error) {
	return s.respond(ctx, patientID, token, models.AssociationDeclined)
}

func (s *associationService) respond(ctx context.Context, patientID uuid.UUID, token string, to models.AssociationStatus) (*models.Association, error) {
	if token == "" {
		return nil, apierrors.ErrInvitationNotFound
	}
	now := s.clock.now()

	var assoc *models.Association
	expired := false
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		assoc, err = s.associationRepo.GetByTokenForUpdate(ctx, token)
		if err != nil {
			return err
		}
		if assoc == nil {
			return apierrors.ErrInvitationNotFound
		}
		if assoc.PatientID != patientID {
			return apierrors.ErrInvitationWrongPatient
		}
		if assoc.Status != models.AssociationPending {
			return apierrors.ErrInvitationNotPending
		}

		target := to
		if to == models.AssociationAccepted && assoc.InvitationExpired(now) {
			// Committed as CANCELLED, then reported as a failure below.
			target = models.AssociationCancelled
			expired = true
		}
		if err := s.associationRepo.UpdateStatus(ctx, assoc.ID, target, &now); err != nil {
			return err
		}
		assoc.Status = target
		assoc.RespondedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired {
		s.logger.Info("expired invitation cancelled on accept", slog.String("association_id", assoc.ID.String()))
		s.logEvent(ctx, models.AuditEventAssociationCancelled, patientID, assoc)
		return nil, apierrors.ErrInvitationExpired
	}

	event := models.AuditEventAssociationAccepted
	if to == models.AssociationDeclined {
		event = models.AuditEventAssociationDeclined
	}
	s.logEvent(ctx, event, patientID, assoc)
	return assoc, nil
}

func (s *associationService) Cancel(ctx context.Context, providerID, associationID uuid.UUID) (*models.Association, error) {
	now := s.clock.now()

	var assoc *models.Association
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		assoc, err = s.associationRepo.GetByIDForUpdate(ctx, associationID)
		if err != nil {
			return err
		}
		if assoc == nil || assoc.ProviderID != providerID {
			return apierrors.ErrInvitationNotFound
		}
		if assoc.Status != models.AssociationPending && assoc.Status != models.AssociationAccepted {
			return apierrors.ErrInvitationNotPending
		}
		if err := s.associationRepo.UpdateStatus(ctx, assoc.ID, models.AssociationCancelled, &now); err != nil {
			return err
		}
		assoc.Status = models.AssociationCancelled
		assoc.RespondedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, models.AuditEventAssociationCancelled, providerID, assoc)
	return assoc, nil
}

func (s *associationService) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.Association, error) {
	return s.associationRepo.ListForPatient(ctx, patientID)
}

func (s *associationService) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*models.Association, error) {
	return s.associationRepo.ListForProvider(ctx, providerID)
}

func (s *associationService) logEvent(ctx context.Context, event models.AuditEvent, actorID uuid.UUID, assoc *models.Association) {
	if err := s.audit.Log(ctx, AuditEntry{
		Event:        event,
		ActorID:      &actorID,
		ResourceType: models.ResourceTypeAssociation,
		ResourceID:   assoc.ID.String(),
		Metadata: map[string]any{
			"patient_id":  assoc.PatientID.String(),
			"provider_id": assoc.ProviderID.String(),
		},
	}); err != nil {
		s.logger.Warn("failed to audit association change", slog.String("event", string(event)), slog.String("error", err.Error()))
	}
}

// Compile-time check
var _ AssociationService = (*associationService)(nil)
