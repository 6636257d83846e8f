// Package errors provides standardized API error types.
//
// Messages are user facing and written in French, the default locale of the platform.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// APIError represents a standardized API error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so wrapped copies
// made by WithMessage or WithDetails still match the catalogue entry.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details any) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Details:    details,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
		Details:    e.Details,
	}
}

// Standard error definitions
var (
	// ErrUnauthorized is returned when authentication is required but missing or invalid.
	ErrUnauthorized = &APIError{
		Code:       "unauthorized",
		Message:    "Authentification requise",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrForbidden is returned when the user lacks permission for an action.
	ErrForbidden = &APIError{
		Code:       "forbidden",
		Message:    "Vous n'avez pas la permission d'effectuer cette action",
		StatusCode: http.StatusForbidden,
	}

	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Ressource introuvable",
		StatusCode: http.StatusNotFound,
	}

	// ErrBadRequest is returned when the request is malformed.
	ErrBadRequest = &APIError{
		Code:       "bad_request",
		Message:    "Requête invalide",
		StatusCode: http.StatusBadRequest,
	}

	// ErrRateLimited is returned when rate limits are exceeded.
	ErrRateLimited = &APIError{
		Code:       "rate_limited",
		Message:    "Trop de requêtes. Veuillez réessayer plus tard.",
		StatusCode: http.StatusTooManyRequests,
	}

	// ErrInternal is returned for unexpected server errors.
	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "Une erreur interne est survenue",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrConflict is returned when a resource already exists.
	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "La ressource existe déjà",
		StatusCode: http.StatusConflict,
	}

	// ErrServiceUnavailable is returned when a dependent service is unavailable.
	ErrServiceUnavailable = &APIError{
		Code:       "service_unavailable",
		Message:    "Service temporairement indisponible",
		StatusCode: http.StatusServiceUnavailable,
	}
)

// Domain errors.
var (
	ErrInvalidCredentials = &APIError{
		Code:       "invalid_credentials",
		Message:    "Email ou mot de passe incorrect",
		StatusCode: http.StatusUnauthorized,
	}

	ErrRegistrationDisabled = &APIError{
		Code:       "registration_disabled",
		Message:    "Les inscriptions sont actuellement fermées",
		StatusCode: http.StatusForbidden,
	}

	ErrEmailTaken = &APIError{
		Code:       "email_taken",
		Message:    "Un compte existe déjà avec cet email",
		StatusCode: http.StatusConflict,
	}

	ErrConsentAlreadyGranted = &APIError{
		Code:       "consent_already_granted",
		Message:    "Le consentement a déjà été accordé",
		StatusCode: http.StatusConflict,
	}

	ErrConsentRequired = &APIError{
		Code:       "consent_required",
		Message:    "Le consentement aux données de santé est requis",
		StatusCode: http.StatusForbidden,
	}

	ErrSubscriptionRequired = &APIError{
		Code:       "subscription_required",
		Message:    "Un abonnement actif est requis",
		StatusCode: http.StatusForbidden,
	}

	ErrInvalidResetToken = &APIError{
		Code:       "invalid_reset_token",
		Message:    "Lien de réinitialisation invalide",
		StatusCode: http.StatusBadRequest,
	}

	ErrResetTokenExpired = &APIError{
		Code:       "reset_token_expired",
		Message:    "Le lien de réinitialisation a expiré",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvitationNotFound = &APIError{
		Code:       "invitation_not_found",
		Message:    "Invitation introuvable",
		StatusCode: http.StatusNotFound,
	}

	ErrInvitationNotPending = &APIError{
		Code:       "invitation_not_pending",
		Message:    "Cette invitation n'est plus en attente",
		StatusCode: http.StatusConflict,
	}

	ErrInvitationExpired = &APIError{
		Code:       "invitation_expired",
		Message:    "Cette invitation a expiré",
		StatusCode: http.StatusGone,
	}

	ErrInvitationWrongPatient = &APIError{
		Code:       "invitation_wrong_patient",
		Message:    "Cette invitation ne vous est pas destinée",
		StatusCode: http.StatusForbidden,
	}

	ErrAssociationExists = &APIError{
		Code:       "association_exists",
		Message:    "Une association existe déjà avec ce patient",
		StatusCode: http.StatusConflict,
	}

	ErrNoAssociation = &APIError{
		Code:       "no_association",
		Message:    "Aucune association active avec cet utilisateur",
		StatusCode: http.StatusForbidden,
	}

	ErrCannotRevokeCurrentSession = &APIError{
		Code:       "cannot_revoke_current_session",
		Message:    "Impossible de révoquer la session en cours",
		StatusCode: http.StatusBadRequest,
	}

	ErrCannotDeleteSelf = &APIError{
		Code:       "cannot_delete_self",
		Message:    "Cannot delete your own account",
		StatusCode: http.StatusBadRequest,
	}

	ErrCannotDemoteSelf = &APIError{
		Code:       "cannot_demote_self",
		Message:    "Vous ne pouvez pas modifier votre propre rôle",
		StatusCode: http.StatusBadRequest,
	}
)

// RateLimitError is returned when an action is throttled. Cooldown is the
// time the caller has to wait before retrying.
type RateLimitError struct {
	Cooldown time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.Cooldown)
}

// CooldownSeconds rounds the cooldown up to whole seconds.
func (e *RateLimitError) CooldownSeconds() int {
	secs := int(e.Cooldown / time.Second)
	if e.Cooldown%time.Second != 0 {
		secs++
	}
	return secs
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:       "validation_error",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details: map[string]string{
			"field": field,
			"error": message,
		},
	}
}

// NewNotFoundError creates a not found error for a specific resource type.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "not_found",
		Message:    fmt.Sprintf("%s introuvable", resource),
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error with a custom message.
func NewConflictError(message string) *APIError {
	return &APIError{
		Code:       "conflict",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// IsAPIError checks if an error is, or wraps, an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return stderrors.As(err, &apiErr)
}

// AsAPIError converts an error to an APIError if possible.
// Returns ErrInternal if the error is not an APIError.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	var rl *RateLimitError
	if stderrors.As(err, &rl) {
		return ErrRateLimited
	}
	return ErrInternal
}
