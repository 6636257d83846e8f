package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/service"
)

type authMocks struct {
	auth  *MockAuthService
	oauth *MockOAuthService
	reset *MockPasswordResetService
}

func newAuthHandler() (*AuthHandler, authMocks) {
	m := authMocks{
		auth:  new(MockAuthService),
		oauth: new(MockOAuthService),
		reset: new(MockPasswordResetService),
	}
	return NewAuthHandler(m.auth, m.oauth, m.reset, testCookies(), testLogger()), m
}

func loginResult() *service.LoginResult {
	return &service.LoginResult{
		User:    &models.User{ID: uuid.New(), Email: "a@example.com", Role: models.RoleUser, Locale: models.LocaleEN},
		Session: &models.Session{ID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)},
		Token:   "session-token",
	}
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("sets the session cookie", func(t *testing.T) {
		h, m := newAuthHandler()
		m.auth.On("Login", mock.Anything, "a@example.com", "password123", mock.Anything, mock.Anything).
			Return(loginResult(), nil)

		rec := httptest.NewRecorder()
		h.Login(rec, newRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"}, nil, nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out AuthResponse
		decodeData(t, rec, &out)
		assert.Equal(t, "session-token", out.Token)
		assert.NotEmpty(t, rec.Result().Cookies())
	})

	t.Run("bad credentials", func(t *testing.T) {
		h, m := newAuthHandler()
		m.auth.On("Login", mock.Anything, "a@example.com", "wrong-pass", mock.Anything, mock.Anything).
			Return(nil, apierrors.ErrInvalidCredentials)

		rec := httptest.NewRecorder()
		h.Login(rec, newRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "a@example.com", Password: "wrong-pass"}, nil, nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_credentials", decodeError(t, rec).Error.Code)
	})

	t.Run("validation reports the first failing field", func(t *testing.T) {
		h, _ := newAuthHandler()

		rec := httptest.NewRecorder()
		h.Login(rec, newRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "not-an-email", Password: "x"}, nil, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "validation_error", body.Error.Code)
		assert.Equal(t, "email", body.Error.Details["field"])
		assert.Equal(t, "Adresse email invalide", body.Error.Message)
	})
}

func TestAuthHandler_RegisterDisabled(t *testing.T) {
	h, m := newAuthHandler()
	m.auth.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apierrors.ErrRegistrationDisabled)

	rec := httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Email: "new@example.com", Password: "password123", Name: "New",
	}, nil, nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "registration_disabled", decodeError(t, rec).Error.Code)
}

func TestAuthHandler_Session(t *testing.T) {
	h, _ := newAuthHandler()

	rec := httptest.NewRecorder()
	h.Session(rec, newRequest(t, http.MethodGet, "/api/auth/session", nil, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	id := testIdentity(models.RoleUser)
	rec = httptest.NewRecorder()
	h.Session(rec, newRequest(t, http.MethodGet, "/api/auth/session", nil, id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		User models.User `json:"user"`
	}
	decodeData(t, rec, &out)
	assert.Equal(t, id.User.ID, out.User.ID)
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	t.Run("rate limited carries the cooldown", func(t *testing.T) {
		h, m := newAuthHandler()
		m.reset.On("RequestPasswordReset", mock.Anything, "a@example.com").
			Return(&apierrors.RateLimitError{Cooldown: 4*time.Minute + 30*time.Second})

		rec := httptest.NewRecorder()
		h.ForgotPassword(rec, newRequest(t, http.MethodPost, "/api/auth/forgot-password", ForgotPasswordRequest{Email: "a@example.com"}, nil, nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		body := decodeError(t, rec)
		assert.False(t, body.Success)
		assert.Equal(t, 270, body.Cooldown)
	})

	t.Run("accepted", func(t *testing.T) {
		h, m := newAuthHandler()
		m.reset.On("RequestPasswordReset", mock.Anything, "ghost@example.com").Return(nil)

		rec := httptest.NewRecorder()
		h.ForgotPassword(rec, newRequest(t, http.MethodPost, "/api/auth/forgot-password", ForgotPasswordRequest{Email: "ghost@example.com"}, nil, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	h, m := newAuthHandler()
	m.reset.On("ResetPassword", mock.Anything, "expired", "newpassword1").Return(apierrors.ErrResetTokenExpired)
	m.reset.On("ResetPassword", mock.Anything, "good", "newpassword1").Return(nil)

	rec := httptest.NewRecorder()
	h.ResetPassword(rec, newRequest(t, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{Token: "expired", Password: "newpassword1"}, nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reset_token_expired", decodeError(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	h.ResetPassword(rec, newRequest(t, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{Token: "good", Password: "newpassword1"}, nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_OAuthRoundTrip(t *testing.T) {
	h, m := newAuthHandler()
	router := h.Routes()

	m.oauth.On("GetAuthURL", "github", mock.AnythingOfType("string")).
		Return("https://github.com/login/oauth/authorize?state=x", nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/github", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	state := m.oauth.Calls[0].Arguments.String(1)
	require.NotEmpty(t, state)

	res := loginResult()
	m.oauth.On("HandleCallback", mock.Anything, "github", "the-code", mock.Anything, mock.Anything).Return(res, nil)

	q := url.Values{"state": {state}, "code": {"the-code"}}
	req := httptest.NewRequest(http.MethodGet, "/callback/github?"+q.Encode(), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/en/dashboard", rec.Header().Get("Location"))
}

func TestAuthHandler_OAuthCallbackRejectsBadState(t *testing.T) {
	h, m := newAuthHandler()

	req := httptest.NewRequest(http.MethodGet, "/callback/github?state=forged&code=c", nil)
	req.Header.Set("Accept-Language", "fr-FR")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/fr/auth/login?error=oauth_state", rec.Header().Get("Location"))
	m.oauth.AssertNotCalled(t, "HandleCallback", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
