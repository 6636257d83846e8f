package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

// AdminHandler serves the admin console API.
type AdminHandler struct {
	adminService service.AdminService
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(adminService service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		validate:     newValidator(),
		logger:       logger,
	}
}

// Routes returns a chi router with admin routes. Every route requires role ADMIN.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireAdmin)

	r.Get("/users", h.ListUsers)
	r.Put("/users/{id}/role", h.UpdateRole)
	r.Delete("/users/{id}", h.DeleteUser)
	r.Get("/stats", h.Stats)
	r.Get("/audit-logs", h.AuditLogs)

	return r
}

// ListUsers handles GET /api/admin/users?page=&per_page=&search=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	result, err := h.adminService.ListUsers(r.Context(), page, perPage, q.Get("search"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	totalPages := 0
	if result.PageSize > 0 {
		totalPages = int((result.Total + int64(result.PageSize) - 1) / int64(result.PageSize))
	}
	response.JSONWithMeta(w, http.StatusOK, result.Users, &response.Meta{
		Page:       result.Page,
		PerPage:    result.PageSize,
		Total:      result.Total,
		TotalPages: totalPages,
	})
}

// UpdateRoleRequest is the body of PUT /api/admin/users/{id}/role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER HEALTHCARE_PROVIDER ADMIN"`
}

// UpdateRole handles PUT /api/admin/users/{id}/role
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	userID, ok := pathUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := h.adminService.UpdateRole(r.Context(), id.User.ID, userID, models.Role(req.Role))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, user)
}

// DeleteUser handles DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	userID, ok := pathUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteUser(r.Context(), id.User.ID, userID); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.NoContent(w)
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, stats)
}

// AuditLogs handles GET /api/admin/audit-logs?event=&actor_id=&limit=&offset=
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.AuditLogQuery{}
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.Offset, _ = strconv.Atoi(q.Get("offset"))

	if event := q.Get("event"); event != "" {
		e := models.AuditEvent(event)
		query.Event = &e
	}
	if actor := q.Get("actor_id"); actor != "" {
		actorID, err := uuid.Parse(actor)
		if err != nil {
			response.ValidationError(w, "actor_id", "Identifiant invalide")
			return
		}
		query.ActorID = &actorID
	}

	logs, err := h.adminService.AuditLogs(r.Context(), query)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, logs)
}
