package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed webhook event IDs to prevent duplicate
// processing. It is a fast-path optimization only: the database uniqueness
// constraint on the payment transaction id remains the final arbiter.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}
