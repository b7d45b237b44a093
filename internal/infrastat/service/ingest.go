package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"infrastat/internal/infrastat/ingest"
	"infrastat/internal/infrastat/models"
	"infrastat/internal/infrastat/validate"
	id "infrastat/pkg/domain"
	dErrors "infrastat/pkg/domain-errors"
	"infrastat/pkg/platform/sentinel"
	"infrastat/pkg/requestcontext"
)

// IngestParams carries one ingestion run's input.
type IngestParams struct {
	TenantID  id.TenantID
	FlowType  id.FlowType
	RefPeriod id.RefPeriod
	Metadata  models.BatchMetadata
	Records   []ingest.RawRecord
}

// IngestResult reports the persisted batch and what happened to the input.
type IngestResult struct {
	Batch         models.DeclarationBatch
	Warnings      []string
	Findings      []models.ValidationError
	LinesIngested int
	LinesSkipped  int
	Duration      time.Duration
}

// IngestAndValidate loads raw records into the batch covering the given
// tenant, period and flow, validates the result, and settles the batch in
// READY or ERROR. All writes happen in one transaction; lifecycle events
// fire only after it commits. A batch already past validation rejects
// re-ingestion with a conflict.
func (s *Service) IngestAndValidate(ctx context.Context, params IngestParams) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "infrastat.ingest")
	defer span.End()
	start := s.clock()

	if params.TenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	if _, err := id.ParseFlowType(string(params.FlowType)); err != nil {
		return nil, err
	}
	if _, err := id.ParseRefPeriod(string(params.RefPeriod)); err != nil {
		return nil, err
	}
	if len(params.Records) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no records to ingest")
	}

	create, warnings := ingest.Transform(ingest.TransformParams{
		TenantID:  params.TenantID,
		FlowType:  params.FlowType,
		RefPeriod: params.RefPeriod,
		Metadata:  params.Metadata,
	}, params.Records)
	s.metrics.AddLinesIngested(len(create.Lines))
	s.metrics.AddLinesSkipped(len(warnings))
	for _, w := range warnings {
		s.logAttrs(ctx, "ingestion warning", "warning", w)
	}

	validator := validate.New(s.refdata.Snapshot())
	findings, validLines := validator.Validate(create.Lines)

	var batch models.DeclarationBatch
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.resolveBatch(ctx, params)
		if err != nil {
			return err
		}

		if err := batch.Apply(models.TriggerIngest, s.clock()); err != nil {
			return err
		}
		if err := s.batches.ReplaceLines(ctx, batch.ID, create.Lines); err != nil {
			return err
		}
		if err := s.batches.ReplaceFindings(ctx, batch.ID, findings); err != nil {
			return err
		}

		batch.LineCount = len(create.Lines)
		batch.RecomputeTotals(validLines)

		trigger := models.TriggerValidationPassed
		if len(findings) > 0 || len(validLines) == 0 {
			trigger = models.TriggerValidationFailed
		}
		if err := batch.Apply(trigger, s.clock()); err != nil {
			return err
		}
		return s.batches.Save(ctx, batch)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "batch for this period already exists")
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("batch.id", batch.ID.String()),
		attribute.String("batch.status", string(batch.Status)),
		attribute.Int("batch.lines", batch.LineCount),
	)

	event := models.LifecycleEvent{
		Type:      models.EventValidationCompleted,
		BatchID:   batch.ID,
		TenantID:  batch.TenantID,
		RefPeriod: batch.RefPeriod,
		FlowType:  batch.FlowType,
		Timestamp: s.clock(),
	}
	if batch.Status == models.StatusError {
		event.Type = models.EventValidationFailed
		event.ErrorCount = len(findings)
	}
	s.publisher.Publish(ctx, event)

	duration := s.clock().Sub(start)
	s.metrics.IncrementValidation(outcomeOf(batch.Status))
	s.metrics.ObserveIngestLatency(duration)
	s.logAttrs(ctx, "batch ingested",
		"batch_id", batch.ID.String(),
		"status", string(batch.Status),
		"lines", batch.LineCount,
		"skipped", len(warnings),
		"findings", len(findings),
	)

	if len(validLines) == 0 {
		return nil, dErrors.New(dErrors.CodeUnprocessable, "batch contains no valid lines")
	}
	return &IngestResult{
		Batch:         batch,
		Warnings:      warnings,
		Findings:      findings,
		LinesIngested: batch.LineCount,
		LinesSkipped:  len(warnings),
		Duration:      duration,
	}, nil
}

// resolveBatch finds or creates the batch for the given period. A batch in
// ERROR is reopened for collection; a batch past validation conflicts.
func (s *Service) resolveBatch(ctx context.Context, params IngestParams) (models.DeclarationBatch, error) {
	existing, err := s.batches.FindByPeriod(ctx, params.TenantID, params.RefPeriod, params.FlowType)
	if err == nil {
		switch existing.Status {
		case models.StatusCollecting:
			return existing, nil
		case models.StatusError:
			if err := existing.Apply(models.TriggerReopened, s.clock()); err != nil {
				return models.DeclarationBatch{}, err
			}
			return existing, nil
		default:
			return models.DeclarationBatch{}, dErrors.New(dErrors.CodeConflict,
				"batch is "+string(existing.Status)+" and cannot be re-ingested")
		}
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return models.DeclarationBatch{}, err
	}

	batch, err := models.NewBatch(id.NewBatchID(), params.TenantID, params.FlowType, params.RefPeriod, params.Metadata, s.clock())
	if err != nil {
		return models.DeclarationBatch{}, err
	}
	if err := s.batches.Create(ctx, *batch); err != nil {
		return models.DeclarationBatch{}, err
	}
	return *batch, nil
}

func outcomeOf(status models.BatchStatus) string {
	if status == models.StatusError {
		return "failed"
	}
	return "passed"
}

func (s *Service) logAttrs(ctx context.Context, msg string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, attributes...)
}
