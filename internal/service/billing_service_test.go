package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
)

// MockStripeGateway is a testify mock of StripeGateway.
type MockStripeGateway struct {
	mock.Mock
}

func (m *MockStripeGateway) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.CheckoutSession), args.Error(1)
}

func (m *MockStripeGateway) NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.BillingPortalSession), args.Error(1)
}

func (m *MockStripeGateway) GetSubscription(id string) (*stripe.Subscription, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockStripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(stripe.Event), args.Error(1)
}

func newTestBillingService(gw StripeGateway, subs *mockSubscriptionRepo, now time.Time) *billingService {
	cfg := config.StripeConfig{
		PublishableKey: "pk_test",
		MonthlyPriceID: "price_monthly",
		YearlyPriceID:  "price_yearly",
		TrialDays:      14,
	}
	svc := NewBillingService(subs, gw, NewAuditService(&mockAuditRepo{}), cfg, "https://rehab.example.com", testLogger()).(*billingService)
	svc.clock = fixedClock(now)
	return svc
}

func stripeEvent(t *testing.T, typ string, obj any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	return stripe.Event{ID: "evt_1", Type: stripe.EventType(typ), Data: &stripe.EventData{Raw: raw}}
}

func TestBillingService_HasAccess(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()
	subs := newMockSubscriptionRepo()
	svc := newTestBillingService(new(MockStripeGateway), subs, now)

	ok, err := svc.HasAccess(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, ok, "no subscription row")

	end := now.Add(-6 * 24 * time.Hour)
	subs.byUser[userID] = &models.Subscription{UserID: userID, Status: models.SubscriptionPastDue, CurrentPeriodEnd: &end}
	ok, err = svc.HasAccess(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ok, "inside grace period")

	subs.getErr = errors.New("db down")
	_, err = svc.HasAccess(context.Background(), userID)
	assert.Error(t, err)
}

func TestBillingService_CreateCheckoutSession(t *testing.T) {
	gw := new(MockStripeGateway)
	subs := newMockSubscriptionRepo()
	svc := newTestBillingService(gw, subs, time.Now())
	user := &models.User{ID: uuid.New(), Email: "p@example.com", Locale: models.LocaleEN}

	gw.On("NewCheckoutSession", mock.MatchedBy(func(p *stripe.CheckoutSessionParams) bool {
		return *p.LineItems[0].Price == "price_yearly" &&
			*p.ClientReferenceID == user.ID.String() &&
			*p.SubscriptionData.TrialPeriodDays == 14 &&
			*p.SuccessURL == "https://rehab.example.com/en/subscription?success=true" &&
			*p.CustomerEmail == "p@example.com"
	})).Return(&stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/1"}, nil)

	url, err := svc.CreateCheckoutSession(context.Background(), user, PlanYearly)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/1", url)
	gw.AssertExpectations(t)

	_, err = svc.CreateCheckoutSession(context.Background(), user, "weekly")
	assert.Equal(t, "validation_error", apierrors.AsAPIError(err).Code)
}

func TestBillingService_CheckoutRejectsActiveSubscriber(t *testing.T) {
	gw := new(MockStripeGateway)
	subs := newMockSubscriptionRepo()
	svc := newTestBillingService(gw, subs, time.Now())
	user := &models.User{ID: uuid.New(), Email: "p@example.com"}
	subs.byUser[user.ID] = &models.Subscription{UserID: user.ID, Status: models.SubscriptionActive}

	_, err := svc.CreateCheckoutSession(context.Background(), user, PlanMonthly)
	assert.ErrorIs(t, err, apierrors.ErrConflict)
	gw.AssertNotCalled(t, "NewCheckoutSession", mock.Anything)
}

func TestBillingService_WebhookSubscriptionUpdated(t *testing.T) {
	gw := new(MockStripeGateway)
	subs := newMockSubscriptionRepo()
	svc := newTestBillingService(gw, subs, time.Now())
	userID := uuid.New()
	customer := "cus_123"
	subs.byUser[userID] = &models.Subscription{ID: uuid.New(), UserID: userID, Status: models.SubscriptionActive, StripeCustomerID: &customer}

	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	payload := map[string]any{
		"id":                 "sub_1",
		"object":             "subscription",
		"status":             "past_due",
		"customer":           "cus_123",
		"current_period_end": periodEnd.Unix(),
		"items": map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": "si_1", "price": map[string]any{"id": "price_monthly"}}},
		},
	}
	gw.On("ConstructEvent", []byte("body"), "sig").Return(stripeEvent(t, "customer.subscription.updated", payload), nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("body"), "sig"))

	got := subs.byUser[userID]
	require.NotNil(t, got)
	assert.Equal(t, models.SubscriptionPastDue, got.Status)
	assert.Equal(t, "sub_1", *got.StripeSubscriptionID)
	assert.Equal(t, "price_monthly", *got.StripePriceID)
	assert.Equal(t, periodEnd, *got.CurrentPeriodEnd)
}

func TestBillingService_WebhookCheckoutCompleted(t *testing.T) {
	gw := new(MockStripeGateway)
	subs := newMockSubscriptionRepo()
	svc := newTestBillingService(gw, subs, time.Now())
	userID := uuid.New()

	cs := map[string]any{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"client_reference_id": userID.String(),
		"subscription":        "sub_9",
	}
	gw.On("ConstructEvent", mock.Anything, mock.Anything).Return(stripeEvent(t, "checkout.session.completed", cs), nil)
	gw.On("GetSubscription", "sub_9").Return(&stripe.Subscription{
		ID:       "sub_9",
		Status:   stripe.SubscriptionStatusTrialing,
		Customer: &stripe.Customer{ID: "cus_9"},
	}, nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	require.Contains(t, subs.byUser, userID)
	assert.Equal(t, models.SubscriptionTrialing, subs.byUser[userID].Status)
	assert.Equal(t, "cus_9", *subs.byUser[userID].StripeCustomerID)
}

func TestBillingService_WebhookBadSignature(t *testing.T) {
	gw := new(MockStripeGateway)
	svc := newTestBillingService(gw, newMockSubscriptionRepo(), time.Now())
	gw.On("ConstructEvent", mock.Anything, mock.Anything).Return(stripe.Event{}, errors.New("bad signature"))

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "nope")
	assert.ErrorIs(t, err, apierrors.ErrBadRequest)
}

func TestBillingService_WebhookUnknownOwnerIgnored(t *testing.T) {
	gw := new(MockStripeGateway)
	subs := newMockSubscriptionRepo()
	svc := newTestBillingService(gw, subs, time.Now())
	payload := map[string]any{"id": "sub_x", "object": "subscription", "status": "active", "customer": "cus_x"}
	gw.On("ConstructEvent", mock.Anything, mock.Anything).Return(stripeEvent(t, "customer.subscription.created", payload), nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Empty(t, subs.upserted)
}

func TestSubscriptionFromStripe(t *testing.T) {
	sub := &stripe.Subscription{
		ID:                "sub_1",
		Status:            stripe.SubscriptionStatusIncompleteExpired,
		CancelAtPeriodEnd: true,
		TrialEnd:          0,
	}
	row := subscriptionFromStripe(sub)
	assert.Equal(t, models.SubscriptionIncompleteExpired, row.Status)
	assert.True(t, row.CancelAtPeriodEnd)
	assert.Nil(t, row.TrialEnd)
	assert.Nil(t, row.StripeCustomerID)
}
