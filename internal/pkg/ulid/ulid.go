// Package ulid issues identifiers for consent history entries. Identifiers
// sort by creation time, so ordering by id is chronological.
package ulid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu     sync.Mutex
	source = ulid.Monotonic(rand.Reader, 0)
)

// New returns an identifier stamped with the current time.
func New() string {
	return At(time.Now())
}

// At returns an identifier stamped with t. Identifiers issued within the
// same millisecond still increase.
func At(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), source).String()
}

// Timestamp returns the creation time encoded in id.
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
