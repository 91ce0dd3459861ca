package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
)

type seenEntry struct {
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps processed event IDs in a local map. State
// is not shared across instances, so it only suits single-process
// deployments and tests.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	seen      map[string]seenEntry
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a background
// sweep of expired entries.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		seen: make(map[string]seenEntry),
		stop: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop()
	return s
}

// MarkProcessed records the event ID with a TTL. Returns false when the
// ID is already recorded and not yet expired.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.seen[eventID]; ok && time.Now().Before(e.expiresAt) {
		return false, nil
	}

	s.seen[eventID] = seenEntry{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// IsProcessed checks whether the event ID is recorded and unexpired
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.seen[eventID]
	if !ok || time.Now().After(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of recorded entries, expired or not
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
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
	for eventID, e := range s.seen {
		if now.After(e.expiresAt) {
			delete(s.seen, eventID)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
