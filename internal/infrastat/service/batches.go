package service

import (
	"context"
	"errors"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
	dErrors "infrastat/pkg/domain-errors"
	"infrastat/pkg/platform/sentinel"
)

// BatchDetail is a batch with its owned collections resolved.
type BatchDetail struct {
	Batch       models.DeclarationBatch
	Lines       []models.DeclarationLine
	Findings    []models.ValidationError
	Submissions []models.SubmissionLog
}

// GetBatch returns one batch with lines, findings and submission history.
func (s *Service) GetBatch(ctx context.Context, tenantID id.TenantID, batchID id.BatchID) (*BatchDetail, error) {
	batch, err := s.batches.FindByID(ctx, tenantID, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
		}
		return nil, err
	}

	lines, err := s.batches.Lines(ctx, batchID)
	if err != nil {
		return nil, err
	}
	findings, err := s.batches.Findings(ctx, batchID)
	if err != nil {
		return nil, err
	}
	logs, err := s.submissions.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &BatchDetail{Batch: batch, Lines: lines, Findings: findings, Submissions: logs}, nil
}

// ListBatches returns the tenant's batches, newest first.
func (s *Service) ListBatches(ctx context.Context, tenantID id.TenantID) ([]models.DeclarationBatch, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	return s.batches.ListByTenant(ctx, tenantID)
}

// Archive moves a SUBMITTED batch into its terminal ARCHIVED state.
func (s *Service) Archive(ctx context.Context, tenantID id.TenantID, batchID id.BatchID) (*models.DeclarationBatch, error) {
	batch, err := s.batches.FindByID(ctx, tenantID, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
		}
		return nil, err
	}

	if err := batch.Apply(models.TriggerArchived, s.clock()); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "only submitted batches can be archived")
		}
		return nil, err
	}
	if err := s.batches.Save(ctx, batch); err != nil {
		return nil, err
	}

	s.logAttrs(ctx, "batch archived", "batch_id", batchID.String())
	return &batch, nil
}
