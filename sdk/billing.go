package sdk

import "context"

// BillingService handles the subscription of the current user.
type BillingService struct {
	client *Client
}

// SubscriptionStatus is the billing state together with the access verdict.
type SubscriptionStatus struct {
	Subscription *Subscription `json:"subscription"`
	HasAccess    bool          `json:"has_access"`
}

// Subscription returns the current subscription, if any, and whether it grants access.
func (s *BillingService) Subscription(ctx context.Context) (*SubscriptionStatus, error) {
	var resp SubscriptionStatus
	if err := s.client.get(ctx, "/api/billing/subscription", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Checkout starts a hosted checkout for plan "monthly" or "yearly" and
// returns the URL to redirect the user to.
func (s *BillingService) Checkout(ctx context.Context, plan string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := s.client.post(ctx, "/api/billing/checkout", map[string]string{"plan": plan}, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Portal returns the URL of the billing portal.
func (s *BillingService) Portal(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := s.client.post(ctx, "/api/billing/portal", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
