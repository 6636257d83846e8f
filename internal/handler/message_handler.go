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

// MessageHandler handles messaging between associated patients and providers.
type MessageHandler struct {
	messageService service.MessageService
	validate       *validator.Validate
	logger         *slog.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(messageService service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		validate:       newValidator(),
		logger:         logger,
	}
}

// Routes returns a chi router with message routes.
func (h *MessageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireAuth)

	r.Get("/unread", h.UnreadCount)
	r.Get("/{userID}", h.Conversation)
	r.Post("/{userID}", h.Send)

	return r
}

// SendMessageRequest is the body of POST /api/messages/{userID}.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// Send handles POST /api/messages/{userID}
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	recipientID, ok := pathUUID(w, chi.URLParam(r, "userID"), "userID")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	msg, err := h.messageService.Send(r.Context(), id.User.ID, recipientID, req.Body)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.Created(w, msg)
}

// Conversation handles GET /api/messages/{userID}
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	otherID, ok := pathUUID(w, chi.URLParam(r, "userID"), "userID")
	if !ok {
		return
	}

	msgs, err := h.messageService.Conversation(r.Context(), id.User.ID, otherID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, msgs)
}

// UnreadCount handles GET /api/messages/unread
func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	n, err := h.messageService.UnreadCount(r.Context(), id.User.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, map[string]int64{"unread": n})
}
