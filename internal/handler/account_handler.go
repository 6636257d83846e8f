package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

// AccountHandler serves the caller's own profile, sessions and consent.
type AccountHandler struct {
	authService    service.AuthService
	profileService service.ProfileService
	consentService service.ConsentService
	cookies        *middleware.SessionCookies
	validate       *validator.Validate
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(
	authService service.AuthService,
	profileService service.ProfileService,
	consentService service.ConsentService,
	cookies *middleware.SessionCookies,
	logger *slog.Logger,
) *AccountHandler {
	return &AccountHandler{
		authService:    authService,
		profileService: profileService,
		consentService: consentService,
		cookies:        cookies,
		validate:       newValidator(),
		logger:         logger,
	}
}

// Routes returns a chi router with account routes. Every route requires a session.
func (h *AccountHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireAuth)

	r.Route("/profile", func(r chi.Router) {
		r.Get("/", h.GetProfile)
		r.Patch("/", h.UpdateProfile)
		r.Put("/preferences", h.UpdatePreferences)
		r.Delete("/", h.DeleteAccount)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Delete("/", h.RevokeOtherSessions)
		r.Delete("/{id}", h.RevokeSession)
	})

	r.Route("/consent", func(r chi.Router) {
		r.Get("/", h.ConsentStatus)
		r.Post("/", h.GrantConsent)
		r.Get("/history", h.ConsentHistory)
	})

	return r
}

// GetProfile handles GET /api/account/profile
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	user, err := h.profileService.GetProfile(r.Context(), id.User.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, user)
}

// UpdateProfileRequest is the body of PATCH /api/account/profile.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateProfile handles PATCH /api/account/profile
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	var req UpdateProfileRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}
	writeResult(w, h.profileService.UpdateProfile(r.Context(), id.User.ID, req.Name, req.Email))
}

// UpdatePreferencesRequest is the body of PUT /api/account/profile/preferences.
type UpdatePreferencesRequest struct {
	Locale string `json:"locale"`
	Theme  string `json:"theme"`
}

// UpdatePreferences handles PUT /api/account/profile/preferences
func (h *AccountHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	var req UpdatePreferencesRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}
	writeResult(w, h.profileService.UpdatePreferences(r.Context(), id.User.ID, models.Locale(req.Locale), models.Theme(req.Theme)))
}

// DeleteAccountRequest is the body of DELETE /api/account/profile.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// DeleteAccount handles DELETE /api/account/profile
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	var req DeleteAccountRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := h.profileService.DeleteAccount(r.Context(), id.User.ID, req.Password); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	_ = h.cookies.Clear(w, r)
	response.NoContent(w)
}

// ListSessions handles GET /api/account/sessions
func (h *AccountHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	sessions, err := h.authService.ListSessions(r.Context(), id.User.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionInfo{Session: s, Current: s.ID == id.Session.ID})
	}
	response.OK(w, out)
}

// SessionInfo marks which listed session belongs to the caller.
type SessionInfo struct {
	*models.Session
	Current bool `json:"current"`
}

// RevokeSession handles DELETE /api/account/sessions/{id}
func (h *AccountHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	sessionID, ok := pathUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}
	if err := h.authService.RevokeSession(r.Context(), id.User.ID, sessionID, id.Session.ID); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.NoContent(w)
}

// RevokeOtherSessions handles DELETE /api/account/sessions
func (h *AccountHandler) RevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	n, err := h.authService.RevokeOtherSessions(r.Context(), id.User.ID, id.Session.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, map[string]int64{"revoked": n})
}

// ConsentStatus handles GET /api/account/consent
func (h *AccountHandler) ConsentStatus(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	status, err := h.consentService.ConsentStatus(r.Context(), id.User.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, status)
}

// GrantConsent handles POST /api/account/consent
func (h *AccountHandler) GrantConsent(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	status, err := h.consentService.GrantConsent(r.Context(), id.User.ID, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.Created(w, status)
}

// ConsentHistory handles GET /api/account/consent/history
func (h *AccountHandler) ConsentHistory(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	history, err := h.consentService.ConsentHistory(r.Context(), id.User.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, history)
}

// writeResult renders a service Result: 200 with the result, or 400 with its message.
func writeResult(w http.ResponseWriter, res service.Result) {
	if !res.Success {
		response.Error(w, apierrors.ErrBadRequest.WithMessage(res.Error))
		return
	}
	response.OK(w, res)
}
