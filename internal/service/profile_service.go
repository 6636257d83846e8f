package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

const genericErrorMessage = "Une erreur est survenue, veuillez réessayer"

// Result reports the outcome of an update that never returns an error value.
// Callers check Success and show Error to the user.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ok() Result { return Result{Success: true} }

func fail(msg string) Result { return Result{Error: msg} }

// ProfileService manages the caller's own account.
type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string) Result
	UpdatePreferences(ctx context.Context, userID uuid.UUID, locale models.Locale, theme models.Theme) Result
	// DeleteAccount removes the user and everything they own.
	DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error
}

type profileService struct {
	userRepo repository.UserRepository
	audit    AuditService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(userRepo repository.UserRepository, audit AuditService, logger *slog.Logger) ProfileService {
	return &profileService{
		userRepo: userRepo,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierrors.NewNotFoundError("Utilisateur")
	}
	return user, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string) Result {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" || len(name) > 100 {
		return fail("Le nom doit contenir entre 1 et 100 caractères")
	}
	if err := s.validate.Var(email, "required,email,max=255"); err != nil {
		return fail("Adresse email invalide")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to look up email", slog.String("error", err.Error()))
		return fail(genericErrorMessage)
	}
	if existing != nil && existing.ID != userID {
		return fail(apierrors.ErrEmailTaken.Message)
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, name, email); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fail(apierrors.ErrEmailTaken.Message)
		}
		s.logger.Error("failed to update profile",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return fail(genericErrorMessage)
	}
	return ok()
}

func (s *profileService) UpdatePreferences(ctx context.Context, userID uuid.UUID, locale models.Locale, theme models.Theme) Result {
	switch locale {
	case models.LocaleFR, models.LocaleEN:
	default:
		return fail("Langue non prise en charge")
	}
	switch theme {
	case models.ThemeLight, models.ThemeDark, models.ThemeSystem:
	default:
		return fail("Thème invalide")
	}

	if err := s.userRepo.UpdatePreferences(ctx, userID, locale, theme); err != nil {
		s.logger.Error("failed to update preferences",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return fail(genericErrorMessage)
	}
	return ok()
}

func (s *profileService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	// OAuth-only accounts have no password to confirm.
	if user.PasswordHash != nil && !checkPassword(user.PasswordHash, password) {
		return apierrors.ErrInvalidCredentials.WithMessage("Mot de passe incorrect")
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	if err := s.audit.Log(ctx, AuditEntry{
		// The actor row is gone, so only the resource id identifies it.
		Event:        models.AuditEventUserDeleted,
		ResourceType: models.ResourceTypeUser,
		ResourceID:   userID.String(),
		Metadata:     map[string]any{"self": true},
	}); err != nil {
		s.logger.Warn("failed to audit account deletion", slog.String("error", err.Error()))
	}
	return nil
}

// Compile-time check
var _ ProfileService = (*profileService)(nil)
