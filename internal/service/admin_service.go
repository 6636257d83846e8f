package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	statsWindowDays = 30
)

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users    []*models.User `json:"users"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// AdminService implements the admin console. Callers must already hold role ADMIN.
type AdminService interface {
	ListUsers(ctx context.Context, page, pageSize int, search string) (*UserPage, error)
	UpdateRole(ctx context.Context, adminID, userID uuid.UUID, role models.Role) (*models.User, error)
	DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error
	Stats(ctx context.Context) (*models.PlatformStats, error)
	AuditLogs(ctx context.Context, query models.AuditLogQuery) ([]*models.AuditLog, error)
}

type adminService struct {
	userRepo         repository.UserRepository
	subscriptionRepo repository.SubscriptionRepository
	associationRepo  repository.AssociationRepository
	exerciseRepo     repository.ExerciseRepository
	audit            AuditService
	logger           *slog.Logger
	clock            Clock
}

// NewAdminService creates a new admin service.
func NewAdminService(
	userRepo repository.UserRepository,
	subscriptionRepo repository.SubscriptionRepository,
	associationRepo repository.AssociationRepository,
	exerciseRepo repository.ExerciseRepository,
	audit AuditService,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		associationRepo:  associationRepo,
		exerciseRepo:     exerciseRepo,
		audit:            audit,
		logger:           logger,
	}
}

func (s *adminService) ListUsers(ctx context.Context, page, pageSize int, search string) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	users, total, err := s.userRepo.List(ctx, models.UserListQuery{
		Search: strings.TrimSpace(search),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &UserPage{Users: users, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *adminService) UpdateRole(ctx context.Context, adminID, userID uuid.UUID, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apierrors.NewValidationError("role", "Rôle invalide")
	}
	if adminID == userID && role != models.RoleAdmin {
		return nil, apierrors.ErrCannotDemoteSelf
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierrors.NewNotFoundError("Utilisateur")
	}
	previous := user.Role
	if previous == role {
		return user, nil
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	user.Role = role

	s.logEvent(ctx, models.AuditEventUserRoleUpdated, adminID, userID, map[string]any{
		"from": previous,
		"to":   role,
	})
	return user, nil
}

func (s *adminService) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	if adminID == userID {
		return apierrors.ErrCannotDeleteSelf
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apierrors.NewNotFoundError("Utilisateur")
	}

	// Sessions, consent, subscription, associations, messages and completions cascade.
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user deleted by admin",
		slog.String("admin_id", adminID.String()),
		slog.String("user_id", userID.String()),
	)
	s.logEvent(ctx, models.AuditEventUserDeleted, adminID, userID, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	})
	return nil
}

func (s *adminService) Stats(ctx context.Context) (*models.PlatformStats, error) {
	byRole, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	byStatus, err := s.subscriptionRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	consented, err := s.userRepo.CountConsented(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count consents: %w", err)
	}
	associations, err := s.associationRepo.CountAccepted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count associations: %w", err)
	}
	completions, err := s.exerciseRepo.CountCompletionsSince(ctx, s.clock.now().AddDate(0, 0, -statsWindowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}

	stats := &models.PlatformStats{
		UsersByRole:           byRole,
		SubscriptionsByStatus: byStatus,
		ConsentedUsers:        consented,
		ActiveAssociations:    associations,
		CompletionsLast30Days: completions,
	}
	for _, n := range byRole {
		stats.TotalUsers += n
	}
	return stats, nil
}

func (s *adminService) AuditLogs(ctx context.Context, query models.AuditLogQuery) ([]*models.AuditLog, error) {
	if query.Limit <= 0 || query.Limit > maxPageSize {
		query.Limit = maxPageSize
	}
	return s.audit.List(ctx, query)
}

func (s *adminService) logEvent(ctx context.Context, event models.AuditEvent, adminID, userID uuid.UUID, metadata map[string]any) {
	if err := s.audit.Log(ctx, AuditEntry{
		Event:        event,
		ActorID:      &adminID,
		ResourceType: models.ResourceTypeUser,
		ResourceID:   userID.String(),
		Metadata:     metadata,
	}); err != nil {
		s.logger.Warn("failed to audit admin action", slog.String("event", string(event)), slog.String("error", err.Error()))
	}
}

// Compile-time check
var _ AdminService = (*adminService)(nil)
