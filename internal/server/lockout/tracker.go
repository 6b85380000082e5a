// Package lockout counts consecutive failed password attempts per identifier
// and reports when an identifier has reached the lockout threshold.
//
// Identifiers are used exactly as submitted; no normalisation is applied, so
// "A@x.com" and "a@x.com" are tracked separately.
package lockout

import "context"

// DefaultThreshold is the number of consecutive failures after which password
// attempts for an identifier are rejected.
const DefaultThreshold = 5

// Tracker is shared by every in-flight login. Implementations must make
// RecordFailure atomic per identifier so that concurrent failures are never
// lost.
type Tracker interface {
	// RecordFailure increments the counter for identifier and returns the new
	// value. A missing entry starts at 1.
	RecordFailure(ctx context.Context, identifier string) (int, error)

	// Reset zeroes the counter for identifier.
	Reset(ctx context.Context, identifier string) error

	// IsLocked reports whether the counter has reached the threshold.
	IsLocked(ctx context.Context, identifier string) (bool, error)

	// Count returns the current counter value (0 when absent).
	Count(ctx context.Context, identifier string) (int, error)

	// ResetAll drops every entry.
	ResetAll(ctx context.Context) error

	// Threshold returns the configured lockout threshold.
	Threshold() int
}

func normalizeThreshold(threshold int) int {
	if threshold <= 0 {
		return DefaultThreshold
	}
	return threshold
}
