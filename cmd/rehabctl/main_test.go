package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs rehabctl with a throwaway config file.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	viper.Reset()
	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	jsonOut = false

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	return rootCmd.Execute()
}

func TestUsersRole_RejectsUnknownRole(t *testing.T) {
	err := execute(t, "--token", "tok", "users", "role", "some-id", "SUPERUSER")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid role")
}

func TestUsersList_RequiresLogin(t *testing.T) {
	t.Setenv("REHAB_TOKEN", "")
	err := execute(t, "--token", "", "users", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestUsersRole_CallsAPI(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"u-1","email":"pro@example.org","role":"HEALTHCARE_PROVIDER"}}`))
	}))
	defer server.Close()

	err := execute(t, "--api-url", server.URL, "--token", "tok", "users", "role", "u-1", "healthcare_provider")
	require.NoError(t, err)
	assert.Equal(t, "/api/admin/users/u-1/role", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "HEALTHCARE_PROVIDER", gotBody["role"])
}

func TestUsersDelete_SelfRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"bad_request","message":"Cannot delete your own account"}}`))
	}))
	defer server.Close()

	err := execute(t, "--api-url", server.URL, "--token", "tok", "users", "delete", "me", "--force")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot delete your own account")
}

func TestMigrateDown_RejectsZeroSteps(t *testing.T) {
	err := execute(t, "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps")
}

func TestSortedKeys(t *testing.T) {
	keys := sortedKeys(map[string]int64{"USER": 3, "ADMIN": 1, "HEALTHCARE_PROVIDER": 2})
	assert.Equal(t, []string{"ADMIN", "HEALTHCARE_PROVIDER", "USER"}, keys)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 8))
	assert.Equal(t, "abcdefgh", truncate("abcdefghij", 8))
}
