package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/service"
)

// Stripe events are small; anything larger is not a Stripe payload.
const maxWebhookBytes = 64 << 10

// BillingHandler handles subscription billing endpoints.
type BillingHandler struct {
	billingService service.BillingService
	baseURL        string
	validate       *validator.Validate
	logger         *slog.Logger
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(billingService service.BillingService, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		baseURL:        strings.TrimRight(baseURL, "/"),
		validate:       newValidator(),
		logger:         logger,
	}
}

// Routes returns a chi router with billing routes.
func (h *BillingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Stripe calls the webhook without a session.
	r.Post("/webhook", h.HandleWebhook)
	r.Get("/public-key", h.GetPublicKey)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/subscription", h.GetSubscription)
		r.Post("/checkout", h.CreateCheckoutSession)
		r.Post("/portal", h.CreatePortalSession)
	})

	return r
}

// SubscriptionResponse is the caller's subscription and whether it grants access.
type SubscriptionResponse struct {
	Subscription *models.Subscription `json:"subscription"`
	HasAccess    bool                 `json:"has_access"`
}

// GetSubscription handles GET /api/billing/subscription
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}

	sub, err := h.billingService.GetSubscription(r.Context(), id.User.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	access, err := h.billingService.HasAccess(r.Context(), id.User.ID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, SubscriptionResponse{Subscription: sub, HasAccess: access})
}

// CheckoutRequest is the body of POST /api/billing/checkout.
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly yearly"`
}

// CreateCheckoutSession handles POST /api/billing/checkout
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}
	var req CheckoutRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		response.Error(w, err)
		return
	}

	url, err := h.billingService.CreateCheckoutSession(r.Context(), id.User, req.Plan)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, map[string]string{"url": url})
}

// CreatePortalSession handles POST /api/billing/portal
func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	id := identity(w, r)
	if id == nil {
		return
	}

	returnURL := h.baseURL + locale.Path(id.User.Locale, "/subscription")
	url, err := h.billingService.CreatePortalSession(r.Context(), id.User.ID, returnURL)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, map[string]string{"url": url})
}

// HandleWebhook handles POST /api/billing/webhook
func (h *BillingHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Impossible de lire le corps de la requête"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Signature Stripe manquante"))
		return
	}

	if err := h.billingService.HandleWebhook(r.Context(), payload, signature); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	response.OK(w, map[string]bool{"received": true})
}

// GetPublicKey handles GET /api/billing/public-key
func (h *BillingHandler) GetPublicKey(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"publishable_key": h.billingService.GetPublicKey()})
}
