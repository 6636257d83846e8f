package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

// ExerciseHandler serves the exercise catalogue and completion log.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
	gate            service.AccessGate
	validate        *validator.Validate
	logger          *slog.Logger
}

// NewExerciseHandler creates a new exercise handler.
func NewExerciseHandler(exerciseService service.ExerciseService, gate service.AccessGate, logger *slog.Logger) *ExerciseHandler {
	return &ExerciseHandler{
		exerciseService: exerciseService,
		gate:            gate,
		validate:        newValidator(),
		logger:          logger,
	}
}

// Routes returns a chi router with exercise routes. They share the access
// policy of the exercise pages.
func (h *ExerciseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.APIGate(h.gate, "/exercises"))

	r.Get("/", h.List)
	r.Get("/completions", h.ListCompletions)
	r.Get("/{slug}", h.Get)
	r.Post("/{slug}/complete", h.Complete)

	return r
}

// List handles GET /api/exercises
func (h *ExerciseHandler) List(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.exerciseService.ListExercises(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, exercises)
}

// Get handles GET /api/exercises/{slug}
func (h *ExerciseHandler) Get(w http.ResponseWriter, r *http.Request) {
	exercise, err := h.exerciseService.GetExercise(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, exercise)
}

// CompleteRequest is the body of POST /api/exercises/{slug}/complete.
type CompleteRequest struct {
	PainLevel int    `json:"pain_level" validate:"gte=0,lte=10"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// Complete handles POST /api/exercises/{slug}/complete
func (h *ExerciseHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	var req CompleteRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	completion, err := h.exerciseService.RecordCompletion(r.Context(), id.User.ID, chi.URLParam(r, "slug"), req.PainLevel, req.Notes)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.Created(w, completion)
}

// ListCompletions handles GET /api/exercises/completions
func (h *ExerciseHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	completions, err := h.exerciseService.ListCompletions(r.Context(), id.User.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, completions)
}
