package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

func TestAdminHandler_RequiresAdmin(t *testing.T) {
	svc := new(MockAdminService)
	h := NewAdminHandler(svc, testLogger())

	for _, role := range []models.Role{models.RoleUser, models.RoleHealthcareProvider} {
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, newRequest(t, http.MethodGet, "/stats", nil, testIdentity(role), nil))
		assert.Equal(t, http.StatusForbidden, rec.Code, role)
	}
	svc.AssertNotCalled(t, "Stats", mock.Anything)
}

func TestAdminHandler_DeleteUser(t *testing.T) {
	admin := testIdentity(models.RoleAdmin)

	t.Run("self", func(t *testing.T) {
		svc := new(MockAdminService)
		svc.On("DeleteUser", mock.Anything, admin.User.ID, admin.User.ID).Return(apierrors.ErrCannotDeleteSelf)
		h := NewAdminHandler(svc, testLogger())

		rec := httptest.NewRecorder()
		h.DeleteUser(rec, newRequest(t, http.MethodDelete, "/api/admin/users/x", nil, admin, map[string]string{"id": admin.User.ID.String()}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Cannot delete your own account", decodeError(t, rec).Error.Message)
	})

	t.Run("other user", func(t *testing.T) {
		target := uuid.New()
		svc := new(MockAdminService)
		svc.On("DeleteUser", mock.Anything, admin.User.ID, target).Return(nil)
		h := NewAdminHandler(svc, testLogger())

		rec := httptest.NewRecorder()
		h.DeleteUser(rec, newRequest(t, http.MethodDelete, "/api/admin/users/x", nil, admin, map[string]string{"id": target.String()}))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockAdminService)
		h := NewAdminHandler(svc, testLogger())

		rec := httptest.NewRecorder()
		h.DeleteUser(rec, newRequest(t, http.MethodDelete, "/api/admin/users/x", nil, admin, map[string]string{"id": "nope"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAdminHandler_ListUsersMeta(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("ListUsers", mock.Anything, 2, 10, "ali").Return(&service.UserPage{
		Users:    []*models.User{{ID: uuid.New()}},
		Total:    25,
		Page:     2,
		PageSize: 10,
	}, nil)
	h := NewAdminHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.ListUsers(rec, newRequest(t, http.MethodGet, "/api/admin/users?page=2&per_page=10&search=ali", nil, testIdentity(models.RoleAdmin), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var users []*models.User
	resp := response.Response{Data: &users}
	require.NoError(t, decodeJSON(rec, &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Len(t, users, 1)
}

func TestAdminHandler_UpdateRoleValidation(t *testing.T) {
	svc := new(MockAdminService)
	h := NewAdminHandler(svc, testLogger())
	admin := testIdentity(models.RoleAdmin)

	rec := httptest.NewRecorder()
	h.UpdateRole(rec, newRequest(t, http.MethodPut, "/api/admin/users/x/role", UpdateRoleRequest{Role: "ROOT"}, admin, map[string]string{"id": uuid.NewString()}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role", decodeError(t, rec).Error.Details["field"])
}
