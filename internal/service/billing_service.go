package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	billingportalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/repository"
)

// Billing plans offered at checkout.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// BillingService defines the interface for subscription billing operations.
type BillingService interface {
	SubscriptionChecker

	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CreateCheckoutSession(ctx context.Context, user *models.User, plan string) (string, error)
	CreatePortalSession(ctx context.Context, userID uuid.UUID, returnURL string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	GetPublicKey() string
}

// StripeGateway is the subset of the Stripe API the billing service calls.
type StripeGateway interface {
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	GetSubscription(id string) (*stripe.Subscription, error)
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type stripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the Stripe SDK with the secret key and returns a gateway over it.
func NewStripeGateway(cfg config.StripeConfig) StripeGateway {
	stripe.Key = cfg.SecretKey
	return &stripeGateway{webhookSecret: cfg.WebhookSecret}
}

func (g *stripeGateway) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return checkoutsession.New(params)
}

func (g *stripeGateway) NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return billingportalsession.New(params)
}

func (g *stripeGateway) GetSubscription(id string) (*stripe.Subscription, error) {
	return subscription.Get(id, nil)
}

func (g *stripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

type billingService struct {
	subRepo repository.SubscriptionRepository
	gateway StripeGateway
	audit   AuditService
	config  config.StripeConfig
	baseURL string
	logger  *slog.Logger
	clock   Clock
}

// NewBillingService creates a new billing service.
func NewBillingService(
	subRepo repository.SubscriptionRepository,
	gateway StripeGateway,
	audit AuditService,
	cfg config.StripeConfig,
	baseURL string,
	logger *slog.Logger,
) BillingService {
	return &billingService{
		subRepo: subRepo,
		gateway: gateway,
		audit:   audit,
		config:  cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// GetSubscription returns the user's subscription, or nil when there is none.
func (s *billingService) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return s.subRepo.GetByUserID(ctx, userID)
}

// HasAccess reports whether the user's subscription grants access now.
func (s *billingService) HasAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub.GrantsAccess(s.clock.now()), nil
}

// CreateCheckoutSession starts a Stripe Checkout for the plan and returns its URL.
func (s *billingService) CreateCheckoutSession(ctx context.Context, user *models.User, plan string) (string, error) {
	priceID := s.planToPriceID(plan)
	if priceID == "" {
		return "", apierrors.NewValidationError("plan", "Formule inconnue")
	}

	existing, err := s.subRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if existing.GrantsAccess(s.clock.now()) && existing.Status != models.SubscriptionPastDue {
		return "", apierrors.NewConflictError("Vous avez déjà un abonnement actif")
	}

	returnURL := s.baseURL + locale.Path(user.Locale, "/subscription")
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(user.ID.String()),
		SuccessURL:        stripe.String(returnURL + "?success=true"),
		CancelURL:         stripe.String(returnURL + "?canceled=true"),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": user.ID.String()},
		},
	}
	// Trials are only offered to users who never subscribed.
	if existing == nil && s.config.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(s.config.TrialDays)
	}
	if existing != nil && existing.StripeCustomerID != nil {
		params.Customer = existing.StripeCustomerID
	} else {
		params.CustomerEmail = stripe.String(user.Email)
	}

	session, err := s.gateway.NewCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session.URL, nil
}

// CreatePortalSession opens the Stripe customer portal for the user.
func (s *billingService) CreatePortalSession(ctx context.Context, userID uuid.UUID, returnURL string) (string, error) {
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if sub == nil || sub.StripeCustomerID == nil || *sub.StripeCustomerID == "" {
		return "", apierrors.NewNotFoundError("Abonnement")
	}

	session, err := s.gateway.NewPortalSession(&stripe.BillingPortalSessionParams{
		Customer:  sub.StripeCustomerID,
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return session.URL, nil
}

// HandleWebhook verifies and processes a Stripe webhook event.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		return apierrors.ErrBadRequest.WithMessage("Signature du webhook invalide")
	}

	s.logger.Info("stripe webhook received",
		slog.String("event_id", event.ID),
		slog.String("type", string(event.Type)),
	)

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		return s.handleCheckoutCompleted(ctx, &cs)

	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		return s.syncSubscription(ctx, &sub, uuid.Nil)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("failed to unmarshal invoice: %w", err)
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			return nil
		}
		sub, err := s.gateway.GetSubscription(inv.Subscription.ID)
		if err != nil {
			return fmt.Errorf("failed to retrieve subscription: %w", err)
		}
		return s.syncSubscription(ctx, sub, uuid.Nil)
	}

	return nil
}

func (s *billingService) handleCheckoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) error {
	if cs.Subscription == nil || cs.Subscription.ID == "" {
		return nil
	}
	userID, err := uuid.Parse(cs.ClientReferenceID)
	if err != nil {
		s.logger.Warn("checkout session without user reference", slog.String("session_id", cs.ID))
		userID = uuid.Nil
	}

	sub, err := s.gateway.GetSubscription(cs.Subscription.ID)
	if err != nil {
		return fmt.Errorf("failed to retrieve subscription: %w", err)
	}
	return s.syncSubscription(ctx, sub, userID)
}

// syncSubscription upserts the local row from a Stripe subscription object.
// Unknown subscriptions whose owner cannot be resolved are ignored.
func (s *billingService) syncSubscription(ctx context.Context, sub *stripe.Subscription, userID uuid.UUID) error {
	if userID == uuid.Nil {
		resolved, err := s.resolveUser(ctx, sub)
		if err != nil {
			return err
		}
		if resolved == uuid.Nil {
			s.logger.Warn("stripe subscription has no local owner", slog.String("subscription_id", sub.ID))
			return nil
		}
		userID = resolved
	}

	row := subscriptionFromStripe(sub)
	row.UserID = userID
	if err := s.subRepo.Upsert(ctx, row); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	actor := userID
	if err := s.audit.Log(ctx, AuditEntry{
		Event:        models.AuditEventSubscriptionUpdated,
		ActorID:      &actor,
		ResourceType: models.ResourceTypeSubscription,
		ResourceID:   row.ID.String(),
		Metadata:     map[string]any{"status": row.Status},
	}); err != nil {
		s.logger.Warn("failed to audit subscription change", slog.String("error", err.Error()))
	}
	return nil
}

func (s *billingService) resolveUser(ctx context.Context, sub *stripe.Subscription) (uuid.UUID, error) {
	existing, err := s.subRepo.GetByStripeSubscriptionID(ctx, sub.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		return existing.UserID, nil
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		existing, err = s.subRepo.GetByStripeCustomerID(ctx, sub.Customer.ID)
		if err != nil {
			return uuid.Nil, err
		}
		if existing != nil {
			return existing.UserID, nil
		}
	}
	if id, err := uuid.Parse(sub.Metadata["user_id"]); err == nil {
		return id, nil
	}
	return uuid.Nil, nil
}

// subscriptionFromStripe maps a Stripe subscription to the local model.
func subscriptionFromStripe(sub *stripe.Subscription) *models.Subscription {
	row := &models.Subscription{
		Status:               models.SubscriptionStatus(strings.ToUpper(string(sub.Status))),
		StripeSubscriptionID: strPtr(sub.ID),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CurrentPeriodStart:   unixPtr(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     unixPtr(sub.CurrentPeriodEnd),
		TrialEnd:             unixPtr(sub.TrialEnd),
	}
	if sub.Customer != nil {
		row.StripeCustomerID = strPtr(sub.Customer.ID)
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		row.StripePriceID = strPtr(sub.Items.Data[0].Price.ID)
	}
	return row
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// planToPriceID converts a plan name to a Stripe price ID.
func (s *billingService) planToPriceID(plan string) string {
	switch plan {
	case PlanMonthly:
		return s.config.MonthlyPriceID
	case PlanYearly:
		return s.config.YearlyPriceID
	default:
		return ""
	}
}

// GetPublicKey returns the Stripe publishable key.
func (s *billingService) GetPublicKey() string {
	return s.config.PublishableKey
}

// Compile-time check
var _ BillingService = (*billingService)(nil)
