package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Error represents an API error response.
type Error struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"-"`
	// Code is the error code (e.g., "unauthorized", "consent_required").
	Code string `json:"code"`
	// Message is the localized, human-readable message.
	Message string `json:"message"`
	// Details contains additional error details, such as the failing field.
	Details map[string]any `json:"details,omitempty"`
	// Cooldown is how long to wait before retrying a rate-limited call.
	Cooldown time.Duration `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsNotFound returns true if the error is a not found error.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == "not_found"
}

// IsUnauthorized returns true if the caller has no valid session.
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "unauthorized"
}

// IsForbidden returns true if the error is a permission error.
func (e *Error) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// IsRateLimited returns true if the error is a rate limit error.
func (e *Error) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limited"
}

// IsValidationError returns true if the error is a validation error.
func (e *Error) IsValidationError() bool {
	return e.Code == "validation_error"
}

// parseError parses an error response from the API.
func parseError(statusCode int, body []byte) error {
	var apiError struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details,omitempty"`
		} `json:"error"`
		Cooldown int `json:"cooldown"`
	}

	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error.Code != "" {
		return &Error{
			StatusCode: statusCode,
			Code:       apiError.Error.Code,
			Message:    apiError.Error.Message,
			Details:    apiError.Error.Details,
			Cooldown:   time.Duration(apiError.Cooldown) * time.Second,
		}
	}

	return &Error{
		StatusCode: statusCode,
		Message:    http.StatusText(statusCode),
	}
}
