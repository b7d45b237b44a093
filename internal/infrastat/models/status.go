package models

import (
	"fmt"

	"infrastat/pkg/platform/sentinel"
)

// BatchStatus is the lifecycle state of a declaration batch.
type BatchStatus string

const (
	StatusCollecting BatchStatus = "COLLECTING"
	StatusValidating BatchStatus = "VALIDATING"
	StatusReady      BatchStatus = "READY"
	StatusError      BatchStatus = "ERROR"
	StatusSubmitting BatchStatus = "SUBMITTING"
	StatusSubmitted  BatchStatus = "SUBMITTED"
	StatusArchived   BatchStatus = "ARCHIVED"
)

// Trigger is an event that drives a batch lifecycle transition. The set is
// part of the external contract: scheduler and workflow collaborators re-drive
// the pipeline by causing these triggers, never by writing status directly.
type Trigger string

const (
	// TriggerIngest fires when ingestion is invoked for a batch.
	TriggerIngest Trigger = "ingestion_invoked"
	// TriggerValidationPassed fires when a validation pass finds zero errors.
	TriggerValidationPassed Trigger = "validation_passed"
	// TriggerValidationFailed fires when a validation pass finds one or more errors.
	TriggerValidationFailed Trigger = "validation_failed"
	// TriggerSubmissionStarted fires when a non-dry-run submission begins.
	TriggerSubmissionStarted Trigger = "submission_started"
	// TriggerSubmissionSucceeded fires when the portal accepts the payload.
	TriggerSubmissionSucceeded Trigger = "submission_succeeded"
	// TriggerSubmissionFailed fires when all upload attempts are exhausted.
	TriggerSubmissionFailed Trigger = "submission_failed"
	// TriggerArchived fires on the external archival trigger.
	TriggerArchived Trigger = "archived"
	// TriggerReopened fires when a retry workflow reopens a failed batch
	// for collection.
	TriggerReopened Trigger = "reopened"
)

// transitions is the authoritative lifecycle table. Dry-run submission is
// deliberately absent: it causes no transition at all.
var transitions = map[BatchStatus]map[Trigger]BatchStatus{
	StatusCollecting: {
		TriggerIngest: StatusValidating,
	},
	StatusValidating: {
		TriggerValidationPassed: StatusReady,
		TriggerValidationFailed: StatusError,
	},
	StatusReady: {
		TriggerSubmissionStarted: StatusSubmitting,
	},
	StatusSubmitting: {
		TriggerSubmissionSucceeded: StatusSubmitted,
		TriggerSubmissionFailed:    StatusError,
	},
	StatusError: {
		TriggerReopened: StatusCollecting,
	},
	StatusSubmitted: {
		TriggerArchived: StatusArchived,
	},
	// StatusArchived is terminal.
}

// Transition returns the state reached from the current state via trigger.
// An undefined pair yields sentinel.ErrInvalidState so services can map it
// onto a conflict for the caller.
func Transition(from BatchStatus, trigger Trigger) (BatchStatus, error) {
	if next, ok := transitions[from][trigger]; ok {
		return next, nil
	}
	return from, fmt.Errorf("no transition from %s on %s: %w", from, trigger, sentinel.ErrInvalidState)
}

// CanTrigger reports whether trigger is defined for the given state.
func CanTrigger(from BatchStatus, trigger Trigger) bool {
	_, ok := transitions[from][trigger]
	return ok
}

// IsTerminal reports whether no trigger leaves the given state.
func IsTerminal(s BatchStatus) bool {
	return len(transitions[s]) == 0
}
