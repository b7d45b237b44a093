package models

import (
	"time"

	id "infrastat/pkg/domain"
)

// SubmissionStatus is the outcome state of a submission log entry.
type SubmissionStatus string

const (
	// SubmissionGenerated means the payload was built but not (yet) sent.
	// Dry runs terminate in this state.
	SubmissionGenerated SubmissionStatus = "generated"
	// SubmissionSubmitted means the portal accepted the payload.
	SubmissionSubmitted SubmissionStatus = "submitted"
	// SubmissionFailed means every upload attempt was exhausted.
	SubmissionFailed SubmissionStatus = "failed"
)

// SubmissionLog records one logical submission of a batch. A retry loop is
// one logical submission: intermediate attempts are logged, only the terminal
// outcome is recorded here.
type SubmissionLog struct {
	ID          id.SubmissionID  `json:"id"`
	BatchID     id.BatchID       `json:"batch_id"`
	Channel     string           `json:"channel"`
	PayloadHash string           `json:"payload_hash"`
	Reference   string           `json:"reference,omitempty"`
	Status      SubmissionStatus `json:"status"`
	Success     bool             `json:"success"`
	DryRun      bool             `json:"dry_run"`
	RawResponse string           `json:"raw_response,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
