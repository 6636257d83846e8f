package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
)

func newTestOAuthService(registration bool) (*oauthService, *mockUserRepo, *mockSessionRepo) {
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	svc := NewOAuthService(
		config.AuthConfig{
			OAuthGitHubID:     "gh-id",
			OAuthGitHubSecret: "gh-secret",
			OAuthCallbackURL:  "https://rehab.example.com/",
		},
		config.RegistrationConfig{Enabled: registration},
		users,
		sessions,
		testLogger(),
	).(*oauthService)
	return svc, users, sessions
}

// fakeGitHub serves the token and user endpoints the GitHub flow calls.
func fakeGitHub(t *testing.T, user map[string]any, emails []map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pointAt(svc *oauthService, srv *httptest.Server) {
	svc.configs["github"].Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	svc.userInfoURLs["github"] = srv.URL + "/user"
	svc.userInfoURLs["github_emails"] = srv.URL + "/user/emails"
}

func TestOAuthService_GetAuthURL(t *testing.T) {
	svc, _, _ := newTestOAuthService(true)
	assert.Equal(t, []string{"github"}, svc.GetSupportedProviders())

	raw, err := svc.GetAuthURL("github", "state-1")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "https://rehab.example.com/api/auth/callback/github", u.Query().Get("redirect_uri"))

	_, err = svc.GetAuthURL("google", "s")
	assert.ErrorIs(t, err, apierrors.ErrNotFound)
}

func TestOAuthService_CallbackCreatesUser(t *testing.T) {
	svc, users, sessions := newTestOAuthService(true)
	srv := fakeGitHub(t,
		map[string]any{"id": 42, "login": "camille", "email": ""},
		[]map[string]any{{"email": "camille@example.com", "primary": true, "verified": true}},
	)
	pointAt(svc, srv)

	res, err := svc.HandleCallback(context.Background(), "github", "code", "", "")
	require.NoError(t, err)
	assert.Equal(t, "camille@example.com", res.User.Email)
	assert.Equal(t, "camille", res.User.Name)
	assert.Equal(t, "42", *res.User.OAuthProviderID)
	assert.Equal(t, 1, sessions.countFor(res.User.ID))
	assert.Len(t, users.users, 1)

	again, err := svc.HandleCallback(context.Background(), "github", "code", "", "")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)
	assert.Len(t, users.users, 1)
}

func TestOAuthService_CallbackLinksExistingEmail(t *testing.T) {
	svc, users, _ := newTestOAuthService(false)
	existing := users.add(&models.User{Email: "camille@example.com"})
	srv := fakeGitHub(t, map[string]any{"id": 7, "login": "c", "email": "camille@example.com"}, nil)
	pointAt(svc, srv)

	res, err := svc.HandleCallback(context.Background(), "github", "code", "", "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.User.ID)
	assert.Equal(t, "github", *users.users[existing.ID].OAuthProvider)
}

func TestOAuthService_CallbackRespectsRegistrationSwitch(t *testing.T) {
	svc, users, _ := newTestOAuthService(false)
	srv := fakeGitHub(t, map[string]any{"id": 9, "login": "new", "email": "new@example.com"}, nil)
	pointAt(svc, srv)

	_, err := svc.HandleCallback(context.Background(), "github", "code", "", "")
	assert.ErrorIs(t, err, apierrors.ErrRegistrationDisabled)
	assert.Empty(t, users.users)
}
