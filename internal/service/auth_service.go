package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

const (
	defaultSessionExpiry = 7 * 24 * time.Hour
	minPasswordLength    = 8
	maxPasswordLength    = 128
)

// RegisterInput holds the fields of a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Locale   models.Locale
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
	Token   string          `json:"token"`
}

// AuthService handles password accounts and login sessions.
type AuthService interface {
	RegistrationEnabled() bool
	Register(ctx context.Context, in RegisterInput, ip, userAgent string) (*LoginResult, error)
	Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	// ResolveSession returns the identity behind a session token, or nil.
	// Expired sessions are deleted and treated as absent.
	ResolveSession(ctx context.Context, token string) (*Identity, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID, currentSessionID uuid.UUID) error
	RevokeOtherSessions(ctx context.Context, userID, currentSessionID uuid.UUID) (int64, error)
}

type authService struct {
	userRepo            repository.UserRepository
	sessionRepo         repository.SessionRepository
	audit               AuditService
	sessionExpiry       time.Duration
	registrationEnabled bool
	logger              *slog.Logger
	clock               Clock
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	audit AuditService,
	authCfg config.AuthConfig,
	regCfg config.RegistrationConfig,
	logger *slog.Logger,
) AuthService {
	expiry := authCfg.SessionExpiry
	if expiry == 0 {
		expiry = defaultSessionExpiry
	}
	return &authService{
		userRepo:            userRepo,
		sessionRepo:         sessionRepo,
		audit:               audit,
		sessionExpiry:       expiry,
		registrationEnabled: regCfg.Enabled,
		logger:              logger,
	}
}

func (s *authService) RegistrationEnabled() bool {
	return s.registrationEnabled
}

func (s *authService) Register(ctx context.Context, in RegisterInput, ip, userAgent string) (*LoginResult, error) {
	if !s.registrationEnabled {
		return nil, apierrors.ErrRegistrationDisabled
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierrors.ErrEmailTaken
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: &hash,
		Role:         models.RoleUser,
		Locale:       in.Locale,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := issueSession(ctx, s.sessionRepo, user.ID, s.sessionExpiry, ip, userAgent, s.clock.now())
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, models.AuditEventAuthRegister, user.ID, ip, userAgent)
	return &LoginResult{User: user, Session: session, Token: session.Token}, nil
}

func (s *authService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil {
		// Burn comparable time so unknown emails are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, apierrors.ErrInvalidCredentials
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, apierrors.ErrInvalidCredentials
	}

	session, err := issueSession(ctx, s.sessionRepo, user.ID, s.sessionExpiry, ip, userAgent, s.clock.now())
	if err != nil {
		return nil, err
	}
	_ = s.userRepo.UpdateLastLogin(ctx, user.ID)

	s.logEvent(ctx, models.AuditEventAuthLogin, user.ID, ip, userAgent)
	return &LoginResult{User: user, Session: session, Token: session.Token}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessionRepo.DeleteByToken(ctx, token)
}

func (s *authService) ResolveSession(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(s.clock.now()) {
		if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", slog.String("error", err.Error()))
		}
		return nil, nil
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &Identity{User: user, Session: session}, nil
}

func (s *authService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	return s.sessionRepo.ListByUser(ctx, userID)
}

func (s *authService) RevokeSession(ctx context.Context, userID, sessionID, currentSessionID uuid.UUID) error {
	if sessionID == currentSessionID {
		return apierrors.ErrCannotRevokeCurrentSession
	}
	deleted, err := s.sessionRepo.Delete(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if !deleted {
		return apierrors.NewNotFoundError("Session")
	}

	if err := s.audit.Log(ctx, AuditEntry{
		Event:        models.AuditEventSessionRevoked,
		ActorID:      &userID,
		ResourceType: models.ResourceTypeSession,
		ResourceID:   sessionID.String(),
	}); err != nil {
		s.logger.Warn("failed to audit session revocation", slog.String("error", err.Error()))
	}
	return nil
}

func (s *authService) RevokeOtherSessions(ctx context.Context, userID, currentSessionID uuid.UUID) (int64, error) {
	return s.sessionRepo.DeleteOthers(ctx, userID, currentSessionID)
}

func (s *authService) logEvent(ctx context.Context, event models.AuditEvent, userID uuid.UUID, ip, userAgent string) {
	if err := s.audit.Log(ctx, AuditEntry{
		Event:        event,
		ActorID:      &userID,
		ResourceType: models.ResourceTypeUser,
		ResourceID:   userID.String(),
		IPAddress:    ip,
		UserAgent:    userAgent,
	}); err != nil {
		s.logger.Warn("failed to write audit log", slog.String("event", string(event)), slog.String("error", err.Error()))
	}
}

// issueSession creates a login session with a fresh random token.
func issueSession(
	ctx context.Context,
	repo repository.SessionRepository,
	userID uuid.UUID,
	expiry time.Duration,
	ip, userAgent string,
	now time.Time,
) (*models.Session, error) {
	token, err := generateToken(32)
	if err != nil {
		return nil, err
	}
	session := &models.Session{
		UserID:    userID,
		Token:     token,
		IPAddress: strPtr(ip),
		UserAgent: strPtr(userAgent),
		ExpiresAt: now.Add(expiry),
	}
	if err := repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// dummyHash is compared against when no account matches, so failed logins take similar time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("rehab-dummy-password"), bcrypt.DefaultCost)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash *string, password string) bool {
	if hash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return apierrors.NewValidationError("password", "Le mot de passe doit contenir au moins 8 caractères")
	}
	if n > maxPasswordLength || len(password) > 72 {
		return apierrors.NewValidationError("password", "Le mot de passe est trop long")
	}
	return nil
}

// Compile-time check
var _ AuthService = (*authService)(nil)
