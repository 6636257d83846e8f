package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the payment processor's subscription states.
type SubscriptionStatus string

const (
	SubscriptionTrialing          SubscriptionStatus = "TRIALING"
	SubscriptionActive            SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue           SubscriptionStatus = "PAST_DUE"
	SubscriptionCanceled          SubscriptionStatus = "CANCELED"
	SubscriptionIncomplete        SubscriptionStatus = "INCOMPLETE"
	SubscriptionIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	SubscriptionUnpaid            SubscriptionStatus = "UNPAID"
	SubscriptionPaused            SubscriptionStatus = "PAUSED"
)

// PastDueGracePeriod is how long a PAST_DUE subscription keeps access after its period ends.
const PastDueGracePeriod = 7 * 24 * time.Hour

// Subscription is the one-to-one billing state of a user.
type Subscription struct {
	ID                   uuid.UUID          `json:"id" db:"id"`
	UserID               uuid.UUID          `json:"user_id" db:"user_id"`
	Status               SubscriptionStatus `json:"status" db:"status"`
	StripeCustomerID     *string            `json:"-" db:"stripe_customer_id"`
	StripeSubscriptionID *string            `json:"-" db:"stripe_subscription_id"`
	StripePriceID        *string            `json:"price_id,omitempty" db:"stripe_price_id"`
	CurrentPeriodStart   *time.Time         `json:"current_period_start,omitempty" db:"current_period_start"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty" db:"current_period_end"`
	TrialEnd             *time.Time         `json:"trial_end,omitempty" db:"trial_end"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CreatedAt            time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at" db:"updated_at"`
}

// GrantsAccess reports whether the subscription gives access at now.
// TRIALING and ACTIVE always do. PAST_DUE does until the grace period after
// CurrentPeriodEnd has elapsed. Every other status denies.
func (s *Subscription) GrantsAccess(now time.Time) bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case SubscriptionTrialing, SubscriptionActive:
		return true
	case SubscriptionPastDue:
		if s.CurrentPeriodEnd == nil {
			return false
		}
		return now.Before(s.CurrentPeriodEnd.Add(PastDueGracePeriod))
	default:
		return false
	}
}
