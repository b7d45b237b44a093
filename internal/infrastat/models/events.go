package models

import (
	"time"

	id "infrastat/pkg/domain"
)

// EventType names a lifecycle event consumed by the workflow collaborator.
type EventType string

const (
	EventValidationCompleted EventType = "infrastat.validation.completed"
	EventValidationFailed    EventType = "infrastat.validation.failed"
	EventSubmissionStarted   EventType = "infrastat.submission.started"
	EventSubmissionCompleted EventType = "infrastat.submission.completed"
	EventSubmissionFailed    EventType = "infrastat.submission.failed"
)

// LifecycleEvent is the envelope published for every batch transition the
// pipeline drives. Type-specific detail rides in the optional fields.
type LifecycleEvent struct {
	Type      EventType    `json:"type"`
	BatchID   id.BatchID   `json:"batch_id"`
	TenantID  id.TenantID  `json:"tenant_id"`
	RefPeriod id.RefPeriod `json:"reference_period"`
	FlowType  id.FlowType  `json:"flow_type"`
	Timestamp time.Time    `json:"timestamp"`

	// ErrorCount is set on validation.failed.
	ErrorCount int `json:"error_count,omitempty"`
	// SubmissionID and PayloadHash are set on submission.* events.
	SubmissionID string `json:"submission_id,omitempty"`
	PayloadHash  string `json:"payload_hash,omitempty"`
	// Reference is the externally assigned number, set on submission.completed.
	Reference string `json:"reference,omitempty"`
	// ConfirmationXML embeds the receipt document on submission.completed.
	ConfirmationXML string `json:"confirmation_xml,omitempty"`
	// Error carries the last attempt's error on submission.failed.
	Error string `json:"error,omitempty"`
}
