// Package idempotency remembers the payload hash of the last successful
// submission per batch, so an unchanged batch is not re-uploaded when a
// caller retries the submit operation.
package idempotency

import (
	"context"
	"sync"
	"time"

	id "infrastat/pkg/domain"
)

// Store is the payload-hash memory consulted before a portal upload.
type Store interface {
	// LastHash returns the payload hash of the most recent successful
	// submission for the batch, or "" when none is recorded.
	LastHash(ctx context.Context, batchID id.BatchID) (string, error)
	// Remember records the payload hash of a successful submission.
	Remember(ctx context.Context, batchID id.BatchID, hash string, ttl time.Duration) error
	// Forget drops the recorded hash, re-arming the batch for submission.
	Forget(ctx context.Context, batchID id.BatchID) error
}

type memoryEntry struct {
	hash      string
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[id.BatchID]memoryEntry
	clock   func() time.Time
}

// NewMemoryStore constructs an empty in-process idempotency store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[id.BatchID]memoryEntry), clock: time.Now}
}

func (s *MemoryStore) LastHash(_ context.Context, batchID id.BatchID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[batchID]
	if !ok {
		return "", nil
	}
	if !entry.expiresAt.IsZero() && s.clock().After(entry.expiresAt) {
		delete(s.entries, batchID)
		return "", nil
	}
	return entry.hash, nil
}

func (s *MemoryStore) Remember(_ context.Context, batchID id.BatchID, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{hash: hash}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.entries[batchID] = entry
	return nil
}

func (s *MemoryStore) Forget(_ context.Context, batchID id.BatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, batchID)
	return nil
}
