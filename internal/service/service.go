// Package service provides business logic implementations.
package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/eRom/health-sub001/internal/models"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	User    *models.User
	Session *models.Session
}

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// generateToken returns a URL-safe random token of n bytes of entropy.
func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
