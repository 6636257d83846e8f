package handler

import (
	"crypto/rand"
	"encoding/base64"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

const oauthStateKey = "oauth_state"

// AuthHandler handles registration, login, OAuth and password reset.
type AuthHandler struct {
	authService  service.AuthService
	oauthService service.OAuthService
	resetService service.PasswordResetService
	cookies      *middleware.SessionCookies
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	authService service.AuthService,
	oauthService service.OAuthService,
	resetService service.PasswordResetService,
	cookies *middleware.SessionCookies,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		oauthService: oauthService,
		resetService: resetService,
		cookies:      cookies,
		validate:     newValidator(),
		logger:       logger,
	}
}

// Routes returns a chi router with auth routes.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/session", h.Session)
	r.Get("/registration-status", h.RegistrationStatus)

	r.Post("/forgot-password", h.ForgotPassword)
	r.Get("/reset-password/{token}", h.ValidateResetToken)
	r.Post("/reset-password", h.ResetPassword)

	r.Get("/callback/{provider}", h.OAuthCallback)
	r.Get("/{provider}", h.OAuthStart)

	return r
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,max=100"`
	Locale   string `json:"locale" validate:"omitempty,oneof=fr en"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned after a successful login or registration.
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	loc := models.Locale(req.Locale)
	if loc == "" {
		loc = locale.Negotiate(r.Header.Get("Accept-Language"))
	}

	res, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Locale:   loc,
	}, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	h.startSession(w, r, res)
	response.Created(w, AuthResponse{User: res.User, Token: res.Token, ExpiresAt: res.Session.ExpiresAt})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	res, err := h.authService.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	h.startSession(w, r, res)
	response.OK(w, AuthResponse{User: res.User, Token: res.Token, ExpiresAt: res.Session.ExpiresAt})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), h.cookies.Token(r)); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	_ = h.cookies.Clear(w, r)
	response.NoContent(w)
}

// SessionResponse describes the current session.
type SessionResponse struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	response.OK(w, SessionResponse{User: id.User, Session: id.Session})
}

// RegistrationStatus handles GET /api/auth/registration-status
func (h *AuthHandler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{
		"enabled":   h.authService.RegistrationEnabled(),
		"providers": h.oauthService.GetSupportedProviders(),
	})
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.resetService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		var rl *apierrors.RateLimitError
		if stderrors.As(err, &rl) {
			middleware.RecordRateLimited("password_reset")
		}
		fail(w, r, h.logger, err)
		return
	}

	// Same answer whether or not the account exists.
	response.OK(w, map[string]string{
		"message": "Si un compte existe pour cette adresse, un email de réinitialisation a été envoyé",
	})
}

// ValidateResetToken handles GET /api/auth/reset-password/{token}
func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	if err := h.resetService.ValidateResetToken(r.Context(), chi.URLParam(r, "token")); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, map[string]bool{"valid": true})
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.resetService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	// Every session was revoked, including this browser's.
	_ = h.cookies.Clear(w, r)
	response.OK(w, map[string]string{"message": "Mot de passe mis à jour"})
}

// OAuthStart handles GET /api/auth/{provider}
func (h *AuthHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	url, err := h.oauthService.GetAuthURL(chi.URLParam(r, "provider"), state)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if err := h.cookies.Set(w, r, oauthStateKey, state); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// OAuthCallback handles GET /api/auth/callback/{provider}
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	loc := locale.Negotiate(r.Header.Get("Accept-Language"))
	loginURL := locale.Path(loc, "/auth/login")

	expected := h.cookies.Pop(w, r, oauthStateKey)
	if expected == "" || r.URL.Query().Get("state") != expected {
		h.logger.Warn("oauth state mismatch", slog.String("provider", chi.URLParam(r, "provider")))
		http.Redirect(w, r, loginURL+"?error=oauth_state", http.StatusFound)
		return
	}
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		http.Redirect(w, r, loginURL+"?error=oauth_denied", http.StatusFound)
		return
	}

	res, err := h.oauthService.HandleCallback(r.Context(), chi.URLParam(r, "provider"), r.URL.Query().Get("code"), middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		code := "oauth_failed"
		if stderrors.Is(err, apierrors.ErrRegistrationDisabled) {
			code = "registration_disabled"
		} else {
			h.logger.Error("oauth callback failed", slog.String("error", err.Error()))
		}
		http.Redirect(w, r, loginURL+"?error="+code, http.StatusFound)
		return
	}

	h.startSession(w, r, res)
	userLoc := res.User.Locale
	if userLoc == "" {
		userLoc = loc
	}
	http.Redirect(w, r, locale.Path(userLoc, "/dashboard"), http.StatusFound)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, res *service.LoginResult) {
	if err := h.cookies.Save(w, r, res.Token); err != nil {
		h.logger.Warn("failed to write session cookie", slog.String("error", err.Error()))
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
