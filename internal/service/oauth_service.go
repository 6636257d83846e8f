package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

// OAuthUserInfo contains user information fetched from OAuth providers.
type OAuthUserInfo struct {
	ID    string
	Email string
	Name  string
}

// OAuthService defines the OAuth authentication interface.
type OAuthService interface {
	// GetAuthURL returns the OAuth authorization URL for the given provider.
	GetAuthURL(provider, state string) (string, error)

	// HandleCallback exchanges the code, finds or creates the user and opens a session.
	HandleCallback(ctx context.Context, provider, code, ip, userAgent string) (*LoginResult, error)

	// GetSupportedProviders returns the configured providers.
	GetSupportedProviders() []string
}

type oauthService struct {
	configs             map[string]*oauth2.Config
	userInfoURLs        map[string]string
	userRepo            repository.UserRepository
	sessionRepo         repository.SessionRepository
	sessionExpiry       time.Duration
	registrationEnabled bool
	logger              *slog.Logger
	clock               Clock
}

// NewOAuthService creates a new OAuth service with the given configuration.
func NewOAuthService(
	cfg config.AuthConfig,
	regCfg config.RegistrationConfig,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	logger *slog.Logger,
) OAuthService {
	callbackBaseURL := strings.TrimSuffix(cfg.OAuthCallbackURL, "/")
	configs := make(map[string]*oauth2.Config)

	if cfg.OAuthGitHubID != "" && cfg.OAuthGitHubSecret != "" {
		configs["github"] = &oauth2.Config{
			ClientID:     cfg.OAuthGitHubID,
			ClientSecret: cfg.OAuthGitHubSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  callbackBaseURL + "/api/auth/callback/github",
			Scopes:       []string{"user:email"},
		}
	}

	if cfg.OAuthGoogleID != "" && cfg.OAuthGoogleSecret != "" {
		configs["google"] = &oauth2.Config{
			ClientID:     cfg.OAuthGoogleID,
			ClientSecret: cfg.OAuthGoogleSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  callbackBaseURL + "/api/auth/callback/google",
			Scopes:       []string{"email", "profile"},
		}
	}

	expiry := cfg.SessionExpiry
	if expiry == 0 {
		expiry = defaultSessionExpiry
	}

	return &oauthService{
		configs: configs,
		userInfoURLs: map[string]string{
			"github":        "https://api.github.com/user",
			"github_emails": "https://api.github.com/user/emails",
			"google":        "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		userRepo:            userRepo,
		sessionRepo:         sessionRepo,
		sessionExpiry:       expiry,
		registrationEnabled: regCfg.Enabled,
		logger:              logger,
	}
}

func (s *oauthService) GetAuthURL(provider, state string) (string, error) {
	cfg, ok := s.configs[provider]
	if !ok {
		return "", apierrors.NewNotFoundError("Fournisseur")
	}
	return cfg.AuthCodeURL(state), nil
}

func (s *oauthService) HandleCallback(ctx context.Context, provider, code, ip, userAgent string) (*LoginResult, error) {
	cfg, ok := s.configs[provider]
	if !ok {
		return nil, apierrors.NewNotFoundError("Fournisseur")
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	info, err := s.fetchUserInfo(provider, client)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	user, err := s.findOrCreateUser(ctx, provider, info)
	if err != nil {
		return nil, err
	}

	session, err := issueSession(ctx, s.sessionRepo, user.ID, s.sessionExpiry, ip, userAgent, s.clock.now())
	if err != nil {
		return nil, err
	}
	_ = s.userRepo.UpdateLastLogin(ctx, user.ID)

	return &LoginResult{User: user, Session: session, Token: session.Token}, nil
}

func (s *oauthService) GetSupportedProviders() []string {
	providers := make([]string, 0, len(s.configs))
	for provider := range s.configs {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}

func (s *oauthService) fetchUserInfo(provider string, client *http.Client) (*OAuthUserInfo, error) {
	switch provider {
	case "github":
		return s.fetchGitHubUser(client)
	case "google":
		return s.fetchGoogleUser(client)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func getJSON(client *http.Client, url string, dst any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (s *oauthService) fetchGitHubUser(client *http.Client) (*OAuthUserInfo, error) {
	var data struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(client, s.userInfoURLs["github"], &data); err != nil {
		return nil, fmt.Errorf("failed to fetch GitHub user: %w", err)
	}

	email := data.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(client, s.userInfoURLs["github_emails"], &emails); err == nil {
			for _, e := range emails {
				if e.Verified && (e.Primary || email == "") {
					email = e.Email
				}
			}
		}
	}

	name := data.Name
	if name == "" {
		name = data.Login
	}

	return &OAuthUserInfo{
		ID:    fmt.Sprintf("%d", data.ID),
		Email: email,
		Name:  name,
	}, nil
}

func (s *oauthService) fetchGoogleUser(client *http.Client) (*OAuthUserInfo, error) {
	var data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(client, s.userInfoURLs["google"], &data); err != nil {
		return nil, fmt.Errorf("failed to fetch Google user: %w", err)
	}
	return &OAuthUserInfo{ID: data.ID, Email: data.Email, Name: data.Name}, nil
}

func (s *oauthService) findOrCreateUser(ctx context.Context, provider string, info *OAuthUserInfo) (*models.User, error) {
	user, err := s.userRepo.GetByOAuth(ctx, provider, info.ID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	// Link by email to an existing password account.
	if info.Email != "" {
		user, err = s.userRepo.GetByEmail(ctx, info.Email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			if err := s.userRepo.LinkOAuth(ctx, user.ID, provider, info.ID); err != nil {
				return nil, err
			}
			user.OAuthProvider = &provider
			user.OAuthProviderID = &info.ID
			user.EmailVerified = true
			return user, nil
		}
	}

	if !s.registrationEnabled {
		return nil, apierrors.ErrRegistrationDisabled
	}
	if info.Email == "" {
		return nil, apierrors.NewValidationError("email", "Le fournisseur n'a communiqué aucune adresse email")
	}

	user = &models.User{
		Email:           info.Email,
		Name:            info.Name,
		Role:            models.RoleUser,
		EmailVerified:   true,
		OAuthProvider:   &provider,
		OAuthProviderID: &info.ID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created via oauth", slog.String("provider", provider), slog.String("user_id", user.ID.String()))
	return user, nil
}

// Compile-time check
var _ OAuthService = (*oauthService)(nil)
