package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/models"
)

// DenyReason explains why the gate redirected a request.
type DenyReason string

const (
	ReasonUnauthenticated      DenyReason = "unauthenticated"
	ReasonForbidden            DenyReason = "forbidden"
	ReasonSubscriptionRequired DenyReason = "subscription_required"
	ReasonConsentRequired      DenyReason = "consent_required"
)

var (
	protectedPrefixes    = []string{"/dashboard", "/neuro", "/ortho", "/profile", "/admin", "/exercises"}
	subscriptionPrefixes = []string{"/dashboard", "/neuro", "/ortho", "/exercises"}
)

const (
	adminPrefix = "/admin"
	consentPath = "/consent"
)

// AccessRequest is a page request submitted to the gate.
type AccessRequest struct {
	// Path is the request path, optionally prefixed with a locale segment.
	Path     string
	Identity *Identity
}

// Decision is the outcome of evaluating an AccessRequest.
type Decision struct {
	Allow      bool
	RedirectTo string
	Reason     DenyReason
}

// SubscriptionChecker decides whether a user has paid, trial or grace-period access.
type SubscriptionChecker interface {
	HasAccess(ctx context.Context, userID uuid.UUID) (bool, error)
}

// AccessGate decides whether a page request may proceed.
type AccessGate interface {
	Evaluate(ctx context.Context, req AccessRequest) Decision
}

type accessGate struct {
	subscriptions SubscriptionChecker
	logger        *slog.Logger
}

// NewAccessGate creates the page access gate.
func NewAccessGate(subscriptions SubscriptionChecker, logger *slog.Logger) AccessGate {
	return &accessGate{subscriptions: subscriptions, logger: logger}
}

// Evaluate runs the checks in order and stops at the first that fails:
// session, protected path, admin role, subscription, consent.
func (g *accessGate) Evaluate(ctx context.Context, req AccessRequest) Decision {
	loc, _, path := locale.FromPath(req.Path)

	if req.Identity == nil || req.Identity.User == nil {
		return deny(loc, "/auth/login", ReasonUnauthenticated)
	}
	user := req.Identity.User

	if !matchesAny(path, protectedPrefixes) {
		return Decision{Allow: true}
	}

	if matchesPrefix(path, adminPrefix) && user.Role != models.RoleAdmin {
		return deny(loc, "/dashboard", ReasonForbidden)
	}

	if matchesAny(path, subscriptionPrefixes) && !user.Role.BypassesSubscription() {
		ok, err := g.subscriptions.HasAccess(ctx, user.ID)
		if err != nil {
			g.logger.Error("subscription check failed, denying access",
				slog.String("user_id", user.ID.String()),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			ok = false
		}
		if !ok {
			return deny(loc, "/subscription?blocked=true", ReasonSubscriptionRequired)
		}
	}

	if !user.HasConsented() && path != consentPath {
		return deny(loc, consentPath, ReasonConsentRequired)
	}

	return Decision{Allow: true}
}

func deny(loc models.Locale, target string, reason DenyReason) Decision {
	return Decision{RedirectTo: locale.Path(loc, target), Reason: reason}
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if matchesPrefix(path, p) {
			return true
		}
	}
	return false
}

// matchesPrefix matches whole path segments, so "/admin" matches
// "/admin" and "/admin/users" but not "/administrator".
func matchesPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Compile-time check
var _ AccessGate = (*accessGate)(nil)
