package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubResolver struct {
	identities map[string]*service.Identity
	err        error
}

func (s *stubResolver) ResolveSession(ctx context.Context, token string) (*service.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identities[token], nil
}

type stubGate struct {
	decision service.Decision
	lastPath string
}

func (g *stubGate) Evaluate(ctx context.Context, req service.AccessRequest) service.Decision {
	g.lastPath = req.Path
	return g.decision
}

type stubSubscriptions struct{ ok bool }

func (s stubSubscriptions) HasAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.ok, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func identity(role models.Role) *service.Identity {
	return &service.Identity{
		User:    &models.User{ID: uuid.New(), Role: role, Locale: models.LocaleEN},
		Session: &models.Session{ID: uuid.New()},
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Success, body.Error.Code
}

func TestLoadIdentity_BearerAndCookie(t *testing.T) {
	cookies := NewSessionCookies("0123456789abcdef0123456789abcdef", 3600, false)
	id := identity(models.RoleUser)
	resolver := &stubResolver{identities: map[string]*service.Identity{"tok": id}}

	var seen *service.Identity
	h := LoadIdentity(resolver, cookies, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer tok")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Same(t, id, seen)

	// Round-trip the token through a signed cookie.
	rec := httptest.NewRecorder()
	require.NoError(t, cookies.Save(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), "tok"))
	req = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	seen = nil
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Same(t, id, seen)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, seen)
}

func TestLoadIdentity_ResolverErrorContinuesAnonymously(t *testing.T) {
	cookies := NewSessionCookies("0123456789abcdef0123456789abcdef", 3600, false)
	h := LoadIdentity(&stubResolver{err: errors.New("db down")}, cookies, discardLogger())(
		RequireAuth(okHandler),
	)
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		identity *service.Identity
		want     int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"patient", identity(models.RoleUser), http.StatusForbidden},
		{"provider", identity(models.RoleHealthcareProvider), http.StatusForbidden},
		{"admin", identity(models.RoleAdmin), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			RequireAdmin(okHandler).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestPageGate_Redirects(t *testing.T) {
	gate := &stubGate{decision: service.Decision{RedirectTo: "/fr/consent", Reason: service.ReasonConsentRequired}}
	rec := httptest.NewRecorder()
	PageGate(gate)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fr/neuro", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/fr/consent", rec.Header().Get("Location"))
	assert.Equal(t, "/fr/neuro", gate.lastPath)

	gate.decision = service.Decision{Allow: true}
	rec = httptest.NewRecorder()
	PageGate(gate)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fr/neuro", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestPageGate_JSONClientsGetErrorWithTarget(t *testing.T) {
	gate := &stubGate{decision: service.Decision{RedirectTo: "/en/subscription?blocked=true", Reason: service.ReasonSubscriptionRequired}}
	req := httptest.NewRequest(http.MethodGet, "/en/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	PageGate(gate)(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "subscription_required", body.Error.Code)
	assert.Equal(t, "/en/subscription?blocked=true", body.Error.Details["redirect_to"])
}

func TestAPIGate_JSONDenials(t *testing.T) {
	tests := []struct {
		name       string
		identity   *service.Identity
		hasAccess  bool
		wantStatus int
		wantCode   string
	}{
		{"anonymous", nil, false, http.StatusUnauthorized, "unauthorized"},
		{"no subscription", identity(models.RoleUser), false, http.StatusForbidden, "subscription_required"},
		{"no consent", identity(models.RoleUser), true, http.StatusForbidden, "consent_required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := service.NewAccessGate(stubSubscriptions{ok: tt.hasAccess}, discardLogger())
			req := httptest.NewRequest(http.MethodGet, "/api/exercises", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			APIGate(gate, "/exercises")(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			success, code := decodeError(t, rec)
			assert.False(t, success)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
