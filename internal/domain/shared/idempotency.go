package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyStore records completed posting requests keyed by their
// caller-supplied idempotency key, so that re-submitting the same request
// returns the original result instead of posting again.
type IdempotencyStore interface {
	// Remember stores the result ID for a key with a TTL.
	// Returns false if the key was already recorded (the stored result wins).
	Remember(ctx context.Context, key string, resultID uuid.UUID, ttl time.Duration) (bool, error)

	// Lookup returns the result ID previously recorded for a key, if any.
	Lookup(ctx context.Context, key string) (uuid.UUID, bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for recorded keys.
	// After this duration, the same key is accepted as a fresh request.
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
