package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"

	"infrastat/internal/datml"
	"infrastat/internal/infrastat/models"
	"infrastat/internal/portal"
	id "infrastat/pkg/domain"
	dErrors "infrastat/pkg/domain-errors"
	"infrastat/pkg/platform/sentinel"
)

// SubmitParams selects the delivery mode for one submission call.
type SubmitParams struct {
	// DryRun builds and records the payload without touching the network
	// or the batch lifecycle.
	DryRun bool
	// Reference overrides the generated submission reference used for the
	// upload and the confirmation document. The portal's own reference
	// still wins on a successful upload.
	Reference string
}

// SubmitResult reports one logical submission, dry run or real.
type SubmitResult struct {
	Batch        models.DeclarationBatch
	Log          models.SubmissionLog
	Payload      []byte
	PayloadHash  string
	Confirmation []byte
}

// Submit builds the outbound document for a READY batch and delivers it to
// the statistics portal, retrying transient failures on a fixed delay. One
// call is one logical submission: the log records only the terminal outcome.
func (s *Service) Submit(ctx context.Context, tenantID id.TenantID, batchID id.BatchID, params SubmitParams) (*SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "infrastat.submit")
	defer span.End()
	start := s.clock()

	dryRun := params.DryRun || s.submitCfg.Disabled

	batch, err := s.batches.FindByID(ctx, tenantID, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
		}
		return nil, err
	}
	if err := batch.CanSubmit(); err != nil {
		return nil, err
	}

	lines, err := s.batches.Lines(ctx, batchID)
	if err != nil {
		return nil, err
	}
	payload, err := datml.BuildDeclaration(&batch, lines)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build declaration document")
	}
	sum := sha256.Sum256(payload)
	payloadHash := hex.EncodeToString(sum[:])

	span.SetAttributes(
		attribute.String("batch.id", batchID.String()),
		attribute.Bool("submit.dry_run", dryRun),
	)

	if !dryRun {
		last, err := s.idem.LastHash(ctx, batchID)
		if err != nil {
			s.logAttrs(ctx, "idempotency lookup failed", "batch_id", batchID.String(), "error", err.Error())
		} else if last == payloadHash {
			return nil, dErrors.New(dErrors.CodeConflict, "identical payload was already submitted")
		}
	}

	now := s.clock()
	log := models.SubmissionLog{
		ID:          id.NewSubmissionID(),
		BatchID:     batchID,
		Channel:     s.submitCfg.Channel,
		PayloadHash: payloadHash,
		Status:      models.SubmissionGenerated,
		DryRun:      dryRun,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	reference := params.Reference
	if reference == "" {
		reference = log.ID.String()
	}

	if dryRun {
		if err := s.submissions.Append(ctx, log); err != nil {
			return nil, err
		}
		confirmation, err := datml.BuildConfirmation(reference, nil)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build confirmation document")
		}
		s.metrics.IncrementSubmission("dry_run")
		s.logAttrs(ctx, "dry run submission generated",
			"batch_id", batchID.String(), "payload_hash", payloadHash)
		return &SubmitResult{
			Batch: batch, Log: log,
			Payload: payload, PayloadHash: payloadHash,
			Confirmation: confirmation,
		}, nil
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := batch.Apply(models.TriggerSubmissionStarted, s.clock()); err != nil {
			return err
		}
		if err := s.batches.Save(ctx, batch); err != nil {
			return err
		}
		return s.submissions.Append(ctx, log)
	})
	if err != nil {
		return nil, err
	}
	s.publishSubmission(ctx, models.EventSubmissionStarted, batch, log, nil, "")

	outcome, uploadErr := s.upload(ctx, payload, reference)

	log.UpdatedAt = s.clock()
	if uploadErr != nil {
		log.Status = models.SubmissionFailed
		log.Error = uploadErr.Error()
	} else {
		log.Status = models.SubmissionSubmitted
		log.Success = true
		log.Reference = outcome.Reference
		log.RawResponse = string(outcome.RawResponse)
	}

	trigger := models.TriggerSubmissionSucceeded
	if uploadErr != nil {
		trigger = models.TriggerSubmissionFailed
	}
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := batch.Apply(trigger, s.clock()); err != nil {
			return err
		}
		if err := s.batches.Save(ctx, batch); err != nil {
			return err
		}
		return s.submissions.Update(ctx, log)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetFailureRatio(s.outcomes.record(uploadErr == nil))
	s.metrics.ObserveSubmitLatency(s.clock().Sub(start))

	if uploadErr != nil {
		s.metrics.IncrementSubmission("failed")
		s.publishSubmission(ctx, models.EventSubmissionFailed, batch, log, nil, uploadErr.Error())
		s.logAttrs(ctx, "submission failed",
			"batch_id", batchID.String(), "submission_id", log.ID.String(), "error", uploadErr.Error())
		return nil, dErrors.Wrap(uploadErr, dErrors.CodeUnavailable, "submission failed after all attempts")
	}

	confirmation, err := datml.BuildConfirmation(log.Reference, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build confirmation document")
	}

	if err := s.idem.Remember(ctx, batchID, payloadHash, s.submitCfg.IdempotencyTTL); err != nil {
		s.logAttrs(ctx, "idempotency record failed", "batch_id", batchID.String(), "error", err.Error())
	}
	s.metrics.IncrementSubmission("submitted")
	s.publishSubmission(ctx, models.EventSubmissionCompleted, batch, log, confirmation, "")
	s.logAttrs(ctx, "batch submitted",
		"batch_id", batchID.String(), "submission_id", log.ID.String(), "reference", log.Reference)
	return &SubmitResult{
		Batch: batch, Log: log,
		Payload: payload, PayloadHash: payloadHash,
		Confirmation: confirmation,
	}, nil
}

// upload runs the bounded fixed-delay retry loop against the portal. The
// loop is detached from caller cancellation: once a submission has started
// it runs to its terminal outcome.
func (s *Service) upload(ctx context.Context, payload []byte, submissionID string) (*portal.Outcome, error) {
	ctx = context.WithoutCancel(ctx)

	var outcome *portal.Outcome
	attempt := 0
	op := func() error {
		attempt++
		s.metrics.IncrementUploadAttempt()

		var err error
		outcome, err = s.portal.Upload(ctx, payload, submissionID)
		if err == nil {
			return nil
		}
		s.logAttrs(ctx, "upload attempt failed",
			"submission_id", submissionID, "attempt", attempt, "error", err.Error())
		if errors.Is(err, sentinel.ErrUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(s.submitCfg.RetryDelay),
		uint64(s.submitCfg.MaxAttempts-1),
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *Service) publishSubmission(ctx context.Context, typ models.EventType, batch models.DeclarationBatch, log models.SubmissionLog, confirmation []byte, errMsg string) {
	event := models.LifecycleEvent{
		Type:         typ,
		BatchID:      batch.ID,
		TenantID:     batch.TenantID,
		RefPeriod:    batch.RefPeriod,
		FlowType:     batch.FlowType,
		Timestamp:    s.clock(),
		SubmissionID: log.ID.String(),
		PayloadHash:  log.PayloadHash,
		Error:        errMsg,
	}
	if typ == models.EventSubmissionCompleted {
		event.Reference = log.Reference
		event.ConfirmationXML = string(confirmation)
	}
	s.publisher.Publish(ctx, event)
}
