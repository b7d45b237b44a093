package handler

import (
	"strings"

	"infrastat/internal/infrastat/ingest"
	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
	dErrors "infrastat/pkg/domain-errors"
)

const maxRecordsPerIngest = 50000

// IngestRequest is the HTTP request body for POST /infrastat/batches/ingest.
type IngestRequest struct {
	FlowType  string             `json:"flow_type"`
	RefPeriod string             `json:"reference_period"`
	Metadata  MetadataRequest    `json:"metadata"`
	Records   []ingest.RawRecord `json:"records"`

	// Parsed values (populated by Validate)
	parsedFlow   id.FlowType
	parsedPeriod id.RefPeriod
}

// MetadataRequest is the sender/receiver block of an ingest request.
type MetadataRequest struct {
	SenderID      string `json:"sender_id"`
	SenderName    string `json:"sender_name"`
	ReceiverID    string `json:"receiver_id"`
	ReceiverName  string `json:"receiver_name"`
	MaterialCode  string `json:"material_code"`
	SourceSystem  string `json:"source_system"`
	ContactPerson string `json:"contact_person"`
}

// Validate validates and parses the request.
func (r *IngestRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.FlowType = strings.TrimSpace(r.FlowType)
	if r.FlowType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "flow_type is required")
	}
	flow, err := id.ParseFlowType(r.FlowType)
	if err != nil {
		return err
	}
	r.parsedFlow = flow

	r.RefPeriod = strings.TrimSpace(r.RefPeriod)
	if r.RefPeriod == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reference_period is required")
	}
	period, err := id.ParseRefPeriod(r.RefPeriod)
	if err != nil {
		return err
	}
	r.parsedPeriod = period

	if len(r.Records) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "records must not be empty")
	}
	if len(r.Records) > maxRecordsPerIngest {
		return dErrors.New(dErrors.CodeInvalidInput, "too many records in one ingestion")
	}
	return nil
}

// ParsedFlow returns the validated flow type.
func (r *IngestRequest) ParsedFlow() id.FlowType { return r.parsedFlow }

// ParsedPeriod returns the validated reference period.
func (r *IngestRequest) ParsedPeriod() id.RefPeriod { return r.parsedPeriod }

// BatchMetadata converts the request metadata block to the domain shape.
func (r *IngestRequest) BatchMetadata() models.BatchMetadata {
	return models.BatchMetadata{
		SenderID:      strings.TrimSpace(r.Metadata.SenderID),
		SenderName:    strings.TrimSpace(r.Metadata.SenderName),
		ReceiverID:    strings.TrimSpace(r.Metadata.ReceiverID),
		ReceiverName:  strings.TrimSpace(r.Metadata.ReceiverName),
		MaterialCode:  strings.TrimSpace(r.Metadata.MaterialCode),
		SourceSystem:  strings.TrimSpace(r.Metadata.SourceSystem),
		ContactPerson: strings.TrimSpace(r.Metadata.ContactPerson),
	}
}

// SubmitRequest is the HTTP request body for POST
// /infrastat/batches/{batchID}/submit. An empty body means a real submission.
type SubmitRequest struct {
	DryRun bool `json:"dry_run"`
	// Reference optionally overrides the generated submission reference.
	Reference string `json:"reference,omitempty"`
}
