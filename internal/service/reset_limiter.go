package service

import (
	"context"
	"strings"
	"time"
)

// Password-reset issuance limits per account.
const (
	ResetMaxPerWindow = 3
	ResetWindow       = time.Hour
	ResetCooldown     = 5 * time.Minute
)

// EventStore keeps timestamped events per key. *database.Redis implements it
// with a sorted set and a script.
type EventStore interface {
	// ReserveEvent atomically records an event at now unless the last event
	// is within cooldown or limit events fall inside window. It returns the
	// wait, zero when the event was recorded.
	ReserveEvent(ctx context.Context, key string, now time.Time, window, cooldown time.Duration, limit int) (time.Duration, error)
}

// ResetLimiter throttles password-reset requests per account.
type ResetLimiter interface {
	// Allow records the request and returns zero, or returns how long the
	// caller must wait without recording anything.
	Allow(ctx context.Context, account string, now time.Time) (time.Duration, error)
}

type resetLimiter struct {
	store EventStore
}

// NewResetLimiter creates a limiter over an event store.
func NewResetLimiter(store EventStore) ResetLimiter {
	return &resetLimiter{store: store}
}

func (l *resetLimiter) Allow(ctx context.Context, account string, now time.Time) (time.Duration, error) {
	key := "pwreset:" + strings.ToLower(strings.TrimSpace(account))

	return l.store.ReserveEvent(ctx, key, now, ResetWindow, ResetCooldown, ResetMaxPerWindow)
}

// eventWait returns how long to wait before another event is allowed,
// given the event times of the last window in ascending order.
func eventWait(events []time.Time, now time.Time, window, cooldown time.Duration, limit int) time.Duration {
	if len(events) == 0 {
		return 0
	}

	var wait time.Duration
	if d := events[len(events)-1].Add(cooldown).Sub(now); d > 0 {
		wait = d
	}
	if len(events) >= limit {
		oldest := events[len(events)-limit]
		if d := oldest.Add(window).Sub(now); d > wait {
			wait = d
		}
	}
	return wait
}
