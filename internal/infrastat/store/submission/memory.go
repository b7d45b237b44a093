// Package submission persists the audit trail of batch submissions.
package submission

import (
	"context"
	"sort"
	"sync"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
	"infrastat/pkg/platform/sentinel"
)

// MemoryStore is an in-memory submission log store. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[id.SubmissionID]models.SubmissionLog
}

// NewMemoryStore constructs an empty in-memory submission log store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[id.SubmissionID]models.SubmissionLog)}
}

// Append records a new submission log entry.
func (s *MemoryStore) Append(_ context.Context, log models.SubmissionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[log.ID]; ok {
		return sentinel.ErrConflict
	}
	s.logs[log.ID] = log
	return nil
}

// Update overwrites an existing log entry with its terminal outcome.
func (s *MemoryStore) Update(_ context.Context, log models.SubmissionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[log.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.logs[log.ID] = log
	return nil
}

// ListByBatch returns the batch's submission history, oldest first.
func (s *MemoryStore) ListByBatch(_ context.Context, batchID id.BatchID) ([]models.SubmissionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SubmissionLog
	for _, l := range s.logs {
		if l.BatchID == batchID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
