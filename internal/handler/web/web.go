// Package web serves the localized HTML pages.
package web

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/service"
)

// Services groups the services the pages call.
type Services struct {
	Auth        service.AuthService
	OAuth       service.OAuthService
	Reset       service.PasswordResetService
	Consent     service.ConsentService
	Profile     service.ProfileService
	Billing     service.BillingService
	Association service.AssociationService
	Exercise    service.ExerciseService
	Message     service.MessageService
	Admin       service.AdminService
}

// WebHandler handles HTTP requests for the HTML pages.
type WebHandler struct {
	svc     Services
	gate    service.AccessGate
	cookies *middleware.SessionCookies
	baseURL string
	logger  *slog.Logger
}

// NewWebHandler creates a new WebHandler instance.
func NewWebHandler(svc Services, gate service.AccessGate, cookies *middleware.SessionCookies, baseURL string, logger *slog.Logger) *WebHandler {
	return &WebHandler{
		svc:     svc,
		gate:    gate,
		cookies: cookies,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Routes returns the chi router with all page routes configured.
func (h *WebHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Root)

	r.Route("/{lang}", func(r chi.Router) {
		r.Use(requireLocale)

		r.Get("/", h.Root)

		// Public pages
		r.Get("/auth/login", h.LoginPage)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/forgot-password", h.ForgotPasswordPage)
		r.Post("/auth/forgot-password", h.ForgotPassword)
		r.Get("/auth/reset-password", h.ResetPasswordPage)
		r.Post("/auth/reset-password", h.ResetPassword)

		// Everything else goes through the access gate.
		r.Group(func(r chi.Router) {
			r.Use(middleware.PageGate(h.gate))

			r.Get("/consent", h.ConsentPage)
			r.Post("/consent", h.GrantConsent)

			r.Get("/subscription", h.SubscriptionPage)
			r.Post("/subscription/checkout", h.Checkout)
			r.Post("/subscription/portal", h.Portal)

			r.Get("/invitation", h.InvitationPage)
			r.Post("/invitation", h.RespondInvitation)

			r.Get("/dashboard", h.Dashboard)
			r.Get("/exercises", h.Exercises)
			r.Get("/exercises/{slug}", h.ExerciseDetail)
			r.Post("/exercises/{slug}", h.RecordCompletion)
			r.Get("/neuro", h.Exercises)
			r.Get("/ortho", h.Exercises)

			r.Get("/profile", h.ProfilePage)
			r.Post("/profile", h.UpdateProfile)
			r.Post("/profile/preferences", h.UpdatePreferences)

			r.Get("/admin", h.AdminPage)
		})
	})

	return r
}

// Root redirects to the dashboard in the negotiated locale.
func (h *WebHandler) Root(w http.ResponseWriter, r *http.Request) {
	loc := models.Locale(chi.URLParam(r, "lang"))
	if !locale.Supported(string(loc)) {
		loc = locale.Negotiate(r.Header.Get("Accept-Language"))
	}
	http.Redirect(w, r, locale.Path(loc, "/dashboard"), http.StatusFound)
}

func requireLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !locale.Supported(chi.URLParam(r, "lang")) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func lang(r *http.Request) models.Locale {
	return models.Locale(chi.URLParam(r, "lang"))
}

// user returns the caller. Gated routes always have one.
func user(r *http.Request) *models.User {
	if id := middleware.IdentityFrom(r.Context()); id != nil {
		return id.User
	}
	return nil
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func redirect(w http.ResponseWriter, r *http.Request, loc models.Locale, path string) {
	http.Redirect(w, r, locale.Path(loc, path), http.StatusSeeOther)
}

// errorMessage returns the user-facing message of err, and logs errors
// outside the catalogue.
func (h *WebHandler) errorMessage(r *http.Request, err error) (int, string) {
	var apiErr *apierrors.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Message
	}
	var rl *apierrors.RateLimitError
	if stderrors.As(err, &rl) {
		return http.StatusTooManyRequests, fmt.Sprintf(locale.MessagesFor(lang(r)).ForgotCooldown, rl.CooldownSeconds())
	}
	h.logger.Error("page request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	return http.StatusInternalServerError, locale.MessagesFor(lang(r)).GenericError
}
