package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

// AssociationHandler handles patient-provider invitations.
type AssociationHandler struct {
	associationService service.AssociationService
	validate           *validator.Validate
	logger             *slog.Logger
}

// NewAssociationHandler creates a new association handler.
func NewAssociationHandler(associationService service.AssociationService, logger *slog.Logger) *AssociationHandler {
	return &AssociationHandler{
		associationService: associationService,
		validate:           newValidator(),
		logger:             logger,
	}
}

// Routes returns a chi router with association routes.
func (h *AssociationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireAuth)

	r.Get("/", h.List)
	r.Post("/accept", h.Accept)
	r.Post("/decline", h.Decline)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(models.RoleHealthcareProvider))
		r.Post("/", h.Invite)
		r.Post("/{id}/cancel", h.Cancel)
	})

	return r
}

// List handles GET /api/associations
// Providers see their patients; everyone else sees their providers.
func (h *AssociationHandler) List(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}

	var (
		list []*models.Association
		err  error
	)
	if id.User.Role == models.RoleHealthcareProvider {
		list, err = h.associationService.ListForProvider(r.Context(), id.User.ID)
	} else {
		list, err = h.associationService.ListForPatient(r.Context(), id.User.ID)
	}
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, list)
}

// InviteRequest is the body of POST /api/associations.
type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Invite handles POST /api/associations
func (h *AssociationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	var req InviteRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	assoc, err := h.associationService.Invite(r.Context(), id.User.ID, req.Email)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.Created(w, assoc)
}

// InvitationRequest carries the invitation token from the email link.
type InvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

// Accept handles POST /api/associations/accept
func (h *AssociationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.associationService.Accept)
}

// Decline handles POST /api/associations/decline
func (h *AssociationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.associationService.Decline)
}

type respondFunc func(ctx context.Context, patientID uuid.UUID, token string) (*models.Association, error)

func (h *AssociationHandler) respond(w http.ResponseWriter, r *http.Request, fn respondFunc) {
	id := identity(w, r)
	if id == nil {
		return
	}
	var req InvitationRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	assoc, err := fn(r.Context(), id.User.ID, req.Token)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, assoc)
}

// Cancel handles POST /api/associations/{id}/cancel
func (h *AssociationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	assocID, ok := pathUUID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}

	assoc, err := h.associationService.Cancel(r.Context(), id.User.ID, assocID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, assoc)
}
