// Package cache provides idempotency stores for webhook deduplication.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vidgen/backend/internal/domain/shared"
)

// Ensure InMemoryIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// InMemoryIdempotencyStore remembers processed webhook event ids in a map.
// Suitable for single-instance deployments and tests; multi-instance
// deployments should use the Redis store so all instances share state.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	deadlines map[string]time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a background
// sweep of expired entries.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		deadlines: make(map[string]time.Time),
		stop:      make(chan struct{}),
	}
	store.wg.Add(1)
	go store.sweepLoop()
	return store
}

// MarkProcessed marks an event as processed with a TTL.
// Returns true if the event was newly marked, false if already processed.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, exists := s.deadlines[eventID]; exists && time.Now().Before(deadline) {
		return false, nil
	}
	s.deadlines[eventID] = time.Now().Add(ttl)
	return true, nil
}

// IsProcessed checks if an event has already been processed
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deadline, exists := s.deadlines[eventID]
	return exists && time.Now().Before(deadline), nil
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for eventID, deadline := range s.deadlines {
		if now.After(deadline) {
			delete(s.deadlines, eventID)
		}
	}
}

// Size returns the number of remembered entries (for tests and monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deadlines)
}
