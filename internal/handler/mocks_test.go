package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCookies() *middleware.SessionCookies {
	return middleware.NewSessionCookies("test-secret-test-secret-test-secret", 3600, false)
}

func testIdentity(role models.Role) *service.Identity {
	return &service.Identity{
		User: &models.User{
			ID:     uuid.New(),
			Email:  "user@example.com",
			Name:   "Test User",
			Role:   role,
			Locale: models.LocaleFR,
		},
		Session: &models.Session{
			ID:        uuid.New(),
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

// newRequest builds a JSON request, optionally authenticated and with chi URL params.
func newRequest(t *testing.T, method, path string, body any, id *service.Identity, params map[string]string) *http.Request {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if id != nil {
		ctx = middleware.WithIdentity(ctx, id)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Cooldown int `json:"cooldown"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	resp := response.Response{Data: dst}
	require.NoError(t, decodeJSON(rec, &resp))
	require.True(t, resp.Success, rec.Body.String())
}

func decodeJSON(rec *httptest.ResponseRecorder, dst any) error {
	return json.Unmarshal(rec.Body.Bytes(), dst)
}

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) RegistrationEnabled() bool {
	return m.Called().Bool(0)
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput, ip, userAgent string) (*service.LoginResult, error) {
	args := m.Called(ctx, in, ip, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password, ip, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAuthService) ResolveSession(ctx context.Context, token string) (*service.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Identity), args.Error(1)
}

func (m *MockAuthService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *MockAuthService) RevokeSession(ctx context.Context, userID, sessionID, currentSessionID uuid.UUID) error {
	return m.Called(ctx, userID, sessionID, currentSessionID).Error(0)
}

func (m *MockAuthService) RevokeOtherSessions(ctx context.Context, userID, currentSessionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, currentSessionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockOAuthService is a mock implementation of service.OAuthService.
type MockOAuthService struct {
	mock.Mock
}

func (m *MockOAuthService) GetAuthURL(provider, state string) (string, error) {
	args := m.Called(provider, state)
	return args.String(0), args.Error(1)
}

func (m *MockOAuthService) HandleCallback(ctx context.Context, provider, code, ip, userAgent string) (*service.LoginResult, error) {
	args := m.Called(ctx, provider, code, ip, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockOAuthService) GetSupportedProviders() []string {
	return m.Called().Get(0).([]string)
}

// MockPasswordResetService is a mock implementation of service.PasswordResetService.
type MockPasswordResetService struct {
	mock.Mock
}

func (m *MockPasswordResetService) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockPasswordResetService) ValidateResetToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

// MockProfileService is a mock implementation of service.ProfileService.
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string) service.Result {
	return m.Called(ctx, userID, name, email).Get(0).(service.Result)
}

func (m *MockProfileService) UpdatePreferences(ctx context.Context, userID uuid.UUID, locale models.Locale, theme models.Theme) service.Result {
	return m.Called(ctx, userID, locale, theme).Get(0).(service.Result)
}

func (m *MockProfileService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	return m.Called(ctx, userID, password).Error(0)
}

// MockConsentService is a mock implementation of service.ConsentService.
type MockConsentService struct {
	mock.Mock
}

func (m *MockConsentService) GrantConsent(ctx context.Context, userID uuid.UUID, ip, userAgent string) (*models.ConsentStatus, error) {
	args := m.Called(ctx, userID, ip, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsentStatus), args.Error(1)
}

func (m *MockConsentService) ConsentStatus(ctx context.Context, userID uuid.UUID) (*models.ConsentStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsentStatus), args.Error(1)
}

func (m *MockConsentService) ConsentHistory(ctx context.Context, userID uuid.UUID) ([]*models.ConsentHistory, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ConsentHistory), args.Error(1)
}

// MockAssociationService is a mock implementation of service.AssociationService.
type MockAssociationService struct {
	mock.Mock
}

func (m *MockAssociationService) assoc(args mock.Arguments) (*models.Association, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Association), args.Error(1)
}

func (m *MockAssociationService) list(args mock.Arguments) ([]*models.Association, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Association), args.Error(1)
}

func (m *MockAssociationService) Invite(ctx context.Context, providerID uuid.UUID, patientEmail string) (*models.Association, error) {
	return m.assoc(m.Called(ctx, providerID, patientEmail))
}

func (m *MockAssociationService) Accept(ctx context.Context, patientID uuid.UUID, token string) (*models.Association, error) {
	return m.assoc(m.Called(ctx, patientID, token))
}

func (m *MockAssociationService) Decline(ctx context.Context, patientID uuid.UUID, token string) (*models.Association, error) {
	return m.assoc(m.Called(ctx, patientID, token))
}

func (m *MockAssociationService) Cancel(ctx context.Context, providerID, associationID uuid.UUID) (*models.Association, error) {
	return m.assoc(m.Called(ctx, providerID, associationID))
}

func (m *MockAssociationService) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*models.Association, error) {
	return m.list(m.Called(ctx, patientID))
}

func (m *MockAssociationService) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]*models.Association, error) {
	return m.list(m.Called(ctx, providerID))
}

// MockAdminService is a mock implementation of service.AdminService.
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListUsers(ctx context.Context, page, pageSize int, search string) (*service.UserPage, error) {
	args := m.Called(ctx, page, pageSize, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UserPage), args.Error(1)
}

func (m *MockAdminService) UpdateRole(ctx context.Context, adminID, userID uuid.UUID, role models.Role) (*models.User, error) {
	args := m.Called(ctx, adminID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAdminService) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	return m.Called(ctx, adminID, userID).Error(0)
}

func (m *MockAdminService) Stats(ctx context.Context) (*models.PlatformStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformStats), args.Error(1)
}

func (m *MockAdminService) AuditLogs(ctx context.Context, query models.AuditLogQuery) ([]*models.AuditLog, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

// mockBillingService is a func-field implementation of service.BillingService.
type mockBillingService struct {
	hasAccessFunc       func(ctx context.Context, userID uuid.UUID) (bool, error)
	getSubscriptionFunc func(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	checkoutFunc        func(ctx context.Context, user *models.User, plan string) (string, error)
	portalFunc          func(ctx context.Context, userID uuid.UUID, returnURL string) (string, error)
	handleWebhookFunc   func(ctx context.Context, payload []byte, signature string) error
	publicKey           string
}

func (m *mockBillingService) HasAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	if m.hasAccessFunc != nil {
		return m.hasAccessFunc(ctx, userID)
	}
	return false, nil
}

func (m *mockBillingService) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if m.getSubscriptionFunc != nil {
		return m.getSubscriptionFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockBillingService) CreateCheckoutSession(ctx context.Context, user *models.User, plan string) (string, error) {
	if m.checkoutFunc != nil {
		return m.checkoutFunc(ctx, user, plan)
	}
	return "", nil
}

func (m *mockBillingService) CreatePortalSession(ctx context.Context, userID uuid.UUID, returnURL string) (string, error) {
	if m.portalFunc != nil {
		return m.portalFunc(ctx, userID, returnURL)
	}
	return "", nil
}

func (m *mockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if m.handleWebhookFunc != nil {
		return m.handleWebhookFunc(ctx, payload, signature)
	}
	return nil
}

func (m *mockBillingService) GetPublicKey() string {
	return m.publicKey
}
