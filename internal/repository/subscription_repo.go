package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
)

// SubscriptionRepository defines the interface for subscription operations.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	// Upsert writes the subscription keyed on user_id.
	Upsert(ctx context.Context, sub *models.Subscription) error
	CountByStatus(ctx context.Context) (map[models.SubscriptionStatus]int64, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, status, stripe_customer_id, stripe_subscription_id, stripe_price_id,
	current_period_start, current_period_end, trial_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Status,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&s.StripePriceID,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.TrialEnd,
		&s.CancelAtPeriodEnd,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByUserID retrieves the subscription of a user.
func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	return scanSubscription(database.Conn(ctx, r.pool).QueryRow(ctx, query, userID))
}

// GetByStripeSubscriptionID retrieves a subscription by its Stripe id.
func (r *subscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, stripeSubID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`
	return scanSubscription(database.Conn(ctx, r.pool).QueryRow(ctx, query, stripeSubID))
}

// GetByStripeCustomerID retrieves a subscription by its Stripe customer.
func (r *subscriptionRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_customer_id = $1`
	return scanSubscription(database.Conn(ctx, r.pool).QueryRow(ctx, query, customerID))
}

// Upsert inserts or replaces the subscription of sub.UserID.
func (r *subscriptionRepo) Upsert(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	query := `
		INSERT INTO subscriptions (id, user_id, status, stripe_customer_id, stripe_subscription_id, stripe_price_id,
			current_period_start, current_period_end, trial_end, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
			stripe_subscription_id = COALESCE(EXCLUDED.stripe_subscription_id, subscriptions.stripe_subscription_id),
			stripe_price_id = COALESCE(EXCLUDED.stripe_price_id, subscriptions.stripe_price_id),
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			trial_end = EXCLUDED.trial_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return database.Conn(ctx, r.pool).QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Status,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.StripePriceID,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.TrialEnd,
		sub.CancelAtPeriodEnd,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

// CountByStatus returns the number of subscriptions per status.
func (r *subscriptionRepo) CountByStatus(ctx context.Context) (map[models.SubscriptionStatus]int64, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `SELECT status, COUNT(*) FROM subscriptions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.SubscriptionStatus]int64)
	for rows.Next() {
		var status models.SubscriptionStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Compile-time check
var _ SubscriptionRepository = (*subscriptionRepo)(nil)
