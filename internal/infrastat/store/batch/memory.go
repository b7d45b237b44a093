// Package batch persists declaration batches with their lines and
// validation findings. The memory store backs unit tests and local runs;
// the postgres store is the production implementation.
package batch

import (
	"context"
	"sort"
	"sync"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
	"infrastat/pkg/platform/sentinel"
)

type periodKey struct {
	tenant id.TenantID
	period id.RefPeriod
	flow   id.FlowType
}

// MemoryStore is an in-memory batch store. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	batches  map[id.BatchID]models.DeclarationBatch
	lines    map[id.BatchID][]models.DeclarationLine
	findings map[id.BatchID][]models.ValidationError
	byPeriod map[periodKey]id.BatchID
}

// NewMemoryStore constructs an empty in-memory batch store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:  make(map[id.BatchID]models.DeclarationBatch),
		lines:    make(map[id.BatchID][]models.DeclarationLine),
		findings: make(map[id.BatchID][]models.ValidationError),
		byPeriod: make(map[periodKey]id.BatchID),
	}
}

func keyOf(b models.DeclarationBatch) periodKey {
	return periodKey{tenant: b.TenantID, period: b.RefPeriod, flow: b.FlowType}
}

// Create persists a new batch. Returns sentinel.ErrConflict when another
// batch already covers the same tenant, period and flow.
func (s *MemoryStore) Create(_ context.Context, batch models.DeclarationBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[batch.ID]; ok {
		return sentinel.ErrConflict
	}
	key := keyOf(batch)
	if _, ok := s.byPeriod[key]; ok {
		return sentinel.ErrConflict
	}
	s.batches[batch.ID] = batch
	s.byPeriod[key] = batch.ID
	return nil
}

// Save updates an existing batch's mutable fields.
func (s *MemoryStore) Save(_ context.Context, batch models.DeclarationBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[batch.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.batches[batch.ID] = batch
	return nil
}

// ReplaceLines swaps the batch's line set wholesale.
func (s *MemoryStore) ReplaceLines(_ context.Context, batchID id.BatchID, lines []models.DeclarationLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[batchID]; !ok {
		return sentinel.ErrNotFound
	}
	s.lines[batchID] = append([]models.DeclarationLine(nil), lines...)
	return nil
}

// ReplaceFindings swaps the batch's validation findings wholesale.
func (s *MemoryStore) ReplaceFindings(_ context.Context, batchID id.BatchID, findings []models.ValidationError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[batchID]; !ok {
		return sentinel.ErrNotFound
	}
	s.findings[batchID] = append([]models.ValidationError(nil), findings...)
	return nil
}

// FindByID returns the batch for the given tenant.
func (s *MemoryStore) FindByID(_ context.Context, tenantID id.TenantID, batchID id.BatchID) (models.DeclarationBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[batchID]
	if !ok || batch.TenantID != tenantID {
		return models.DeclarationBatch{}, sentinel.ErrNotFound
	}
	return batch, nil
}

// FindByPeriod returns the batch covering the given tenant, period and flow.
func (s *MemoryStore) FindByPeriod(_ context.Context, tenantID id.TenantID, period id.RefPeriod, flow id.FlowType) (models.DeclarationBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batchID, ok := s.byPeriod[periodKey{tenant: tenantID, period: period, flow: flow}]
	if !ok {
		return models.DeclarationBatch{}, sentinel.ErrNotFound
	}
	return s.batches[batchID], nil
}

// Lines returns the batch's lines ordered by sequence number.
func (s *MemoryStore) Lines(_ context.Context, batchID id.BatchID) ([]models.DeclarationLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := append([]models.DeclarationLine(nil), s.lines[batchID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].SeqNo < lines[j].SeqNo })
	return lines, nil
}

// Findings returns the batch's validation findings.
func (s *MemoryStore) Findings(_ context.Context, batchID id.BatchID) ([]models.ValidationError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ValidationError(nil), s.findings[batchID]...), nil
}

// ListByTenant returns all batches for a tenant, newest first.
func (s *MemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]models.DeclarationBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DeclarationBatch
	for _, b := range s.batches {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
