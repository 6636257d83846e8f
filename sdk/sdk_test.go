package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient()

	if client.baseURL != DefaultBaseURL {
		t.Errorf("expected baseURL %q, got %q", DefaultBaseURL, client.baseURL)
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.httpClient.Timeout)
	}
	if client.Auth == nil || client.Account == nil || client.Billing == nil {
		t.Error("expected services to be initialized")
	}
	if client.Exercises == nil || client.Admin == nil {
		t.Error("expected services to be initialized")
	}
}

func TestNewClient_WithOptions(t *testing.T) {
	custom := &http.Client{Timeout: time.Minute}
	client := NewClient(
		WithBaseURL("https://rehab.example.org"),
		WithHTTPClient(custom),
		WithToken("tok"),
	)

	if client.BaseURL() != "https://rehab.example.org" {
		t.Errorf("unexpected base URL %q", client.BaseURL())
	}
	if client.httpClient != custom {
		t.Error("expected custom HTTP client to be set")
	}
	if client.Token() != "tok" {
		t.Errorf("expected token to be set, got %q", client.Token())
	}
}

func TestNewClient_WithTimeout(t *testing.T) {
	client := NewClient(WithTimeout(5 * time.Second))
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", client.httpClient.Timeout)
	}
}

// newTestServer creates a test server and a client pointed at it.
func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(WithBaseURL(server.URL))
}

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestAuth_LoginStoresToken(t *testing.T) {
	var sawAuth string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			var req LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Email != "admin@example.org" {
				t.Errorf("unexpected email %q", req.Email)
			}
			writeEnvelope(w, http.StatusOK, map[string]any{
				"success": true,
				"data": map[string]any{
					"user":  map[string]any{"id": "u-1", "email": req.Email, "role": "ADMIN"},
					"token": "session-token",
				},
			})
		case "/api/auth/session":
			sawAuth = r.Header.Get("Authorization")
			writeEnvelope(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]any{"user": map[string]any{"id": "u-1", "role": "ADMIN"}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	resp, err := client.Auth.Login(context.Background(), "admin@example.org", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.User.Role != RoleAdmin {
		t.Errorf("expected role ADMIN, got %q", resp.User.Role)
	}
	if client.Token() != "session-token" {
		t.Errorf("expected token to be stored, got %q", client.Token())
	}

	if _, err := client.Auth.Session(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawAuth != "Bearer session-token" {
		t.Errorf("expected bearer header, got %q", sawAuth)
	}
}

func TestAuth_ForgotPasswordCooldown(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusTooManyRequests, map[string]any{
			"success":  false,
			"error":    map[string]any{"code": "rate_limited", "message": "Trop de demandes"},
			"cooldown": 270,
		})
	})

	err := client.Auth.ForgotPassword(context.Background(), "a@example.org")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !apiErr.IsRateLimited() {
		t.Error("expected rate limited error")
	}
	if apiErr.Cooldown != 270*time.Second {
		t.Errorf("expected cooldown 270s, got %v", apiErr.Cooldown)
	}
}

func TestAccount_GrantConsentConflict(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, map[string]any{
			"success": false,
			"error":   map[string]any{"code": "conflict", "message": "Le consentement a déjà été accordé"},
		})
	})

	_, err := client.Account.GrantConsent(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Le consentement a déjà été accordé" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestAdmin_ListUsersMeta(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search"); got != "dupont" {
			t.Errorf("expected search=dupont, got %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("expected page=2, got %q", got)
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "u-1", "email": "dupont@example.org"}},
			"meta":    map[string]any{"page": 2, "per_page": 20, "total": 41, "total_pages": 3},
		})
	})

	list, err := client.Admin.ListUsers(context.Background(), &ListUsersOptions{Page: 2, Search: "dupont"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Users) != 1 || list.Users[0].Email != "dupont@example.org" {
		t.Errorf("unexpected users %+v", list.Users)
	}
	if list.Meta.TotalPages != 3 || list.Meta.Total != 41 {
		t.Errorf("unexpected meta %+v", list.Meta)
	}
}

func TestAdmin_DeleteUserNoContent(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/admin/users/u-2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.Admin.DeleteUser(context.Background(), "u-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseError_NonJSON(t *testing.T) {
	err := parseError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Message != "Bad Gateway" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
	if apiErr.Error() != "Bad Gateway" {
		t.Errorf("unexpected Error() %q", apiErr.Error())
	}
}

func TestExercises_ListCategoryQuery(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("category"); got != "NEURO" {
			t.Errorf("expected category NEURO, got %q", got)
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"slug": "finger-tapping", "category": "NEURO"}},
		})
	})

	exercises, err := client.Exercises.List(context.Background(), "NEURO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exercises) != 1 || exercises[0].Slug != "finger-tapping" {
		t.Errorf("unexpected exercises %+v", exercises)
	}
}
