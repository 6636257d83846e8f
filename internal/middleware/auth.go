package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityKey contextKey = "identity"

// SessionResolver turns a session token into the caller's identity.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*service.Identity, error)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *service.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the authenticated caller, or nil.
func IdentityFrom(ctx context.Context) *service.Identity {
	id, _ := ctx.Value(identityKey).(*service.Identity)
	return id
}

// LoadIdentity resolves the session token on every request and stores the
// identity in the context. Requests without a valid session continue anonymously.
func LoadIdentity(resolver SessionResolver, cookies *SessionCookies, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookies.Token(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := resolver.ResolveSession(r.Context(), token)
			if err != nil {
				logger.Error("failed to resolve session", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if id == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth rejects API requests without a session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()) == nil {
			response.Error(w, apierrors.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects API requests whose caller does not hold one of roles.
func RequireRole(roles ...models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r.Context())
			if id == nil {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if id.User.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, apierrors.ErrForbidden)
		})
	}
}

// RequireAdmin rejects API requests from non-admins.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(models.RoleAdmin)(next)
}

// PageGate applies the access gate to page requests and redirects on denial.
func PageGate(gate service.AccessGate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := gate.Evaluate(r.Context(), service.AccessRequest{
				Path:     r.URL.Path,
				Identity: IdentityFrom(r.Context()),
			})
			recordDecision(decision)
			if decision.Allow {
				next.ServeHTTP(w, r)
				return
			}
			if wantsJSON(r) {
				response.Error(w, denialError(decision))
				return
			}
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
		})
	}
}

// APIGate applies the policy of the page at pagePath to an API route and
// renders denials as JSON errors instead of redirects.
func APIGate(gate service.AccessGate, pagePath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r.Context())
			loc := locale.Default
			if id != nil && id.User.Locale != "" {
				loc = id.User.Locale
			}
			decision := gate.Evaluate(r.Context(), service.AccessRequest{
				Path:     locale.Path(loc, pagePath),
				Identity: id,
			})
			recordDecision(decision)
			if decision.Allow {
				next.ServeHTTP(w, r)
				return
			}
			response.Error(w, denialError(decision))
		})
	}
}

// denialError maps a gate denial to its API error. Details carry the page
// the browser flow would have redirected to.
func denialError(d service.Decision) error {
	var err *apierrors.APIError
	switch d.Reason {
	case service.ReasonUnauthenticated:
		err = apierrors.ErrUnauthorized
	case service.ReasonSubscriptionRequired:
		err = apierrors.ErrSubscriptionRequired
	case service.ReasonConsentRequired:
		err = apierrors.ErrConsentRequired
	default:
		err = apierrors.ErrForbidden
	}
	return err.WithDetails(map[string]string{"redirect_to": d.RedirectTo})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func recordDecision(d service.Decision) {
	outcome := "allow"
	if !d.Allow {
		outcome = strings.ToLower(string(d.Reason))
	}
	gateDecisionsTotal.WithLabelValues(outcome).Inc()
}
