package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event IDs a handler has already
// seen, so outbox redeliveries do not run side effects twice.
type IdempotencyStore interface {
	// MarkProcessed records the event ID with a TTL. The bool is true
	// when the ID was new, false when it had been recorded before.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the event ID has been recorded
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources
	Close() error
}

// IdempotencyConfig tunes duplicate suppression
type IdempotencyConfig struct {
	// TTL is how long a processed event ID is remembered. Once it
	// expires the same ID would be handled again.
	TTL time.Duration

	// Enabled turns duplicate suppression off entirely when false
	Enabled bool
}

// DefaultIdempotencyConfig remembers event IDs for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
