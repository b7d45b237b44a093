package models

import (
	"time"

	id "infrastat/pkg/domain"
	dErrors "infrastat/pkg/domain-errors"
)

// BatchMetadata carries sender/receiver identity and provenance for the
// outbound document. Free-form beyond the named fields.
type BatchMetadata struct {
	SenderID      string `json:"sender_id,omitempty"`
	SenderName    string `json:"sender_name,omitempty"`
	ReceiverID    string `json:"receiver_id,omitempty"`
	ReceiverName  string `json:"receiver_name,omitempty"`
	MaterialCode  string `json:"material_code,omitempty"`
	SourceSystem  string `json:"source_system,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
}

// DeclarationBatch is the aggregate root for one unit of statistical
// reporting: one tenant, one reference period, one flow direction.
//
// Invariants:
//   - Unique per (tenant, reference period, flow type)
//   - TotalValue/TotalWeight are always the sum over the batch's valid lines
//     and are recomputed whenever lines are (re)ingested
//   - Identity fields are immutable; Status and the aggregate totals are the
//     only fields mutated across the lifetime
//
// The batch owns its lines, validation errors and submission logs: they are
// deleted with it and never outlive it.
type DeclarationBatch struct {
	ID          id.BatchID    `json:"id"`
	TenantID    id.TenantID   `json:"tenant_id"`
	FlowType    id.FlowType   `json:"flow_type"`
	RefPeriod   id.RefPeriod  `json:"reference_period"`
	Status      BatchStatus   `json:"status"`
	TotalValue  float64       `json:"total_value"`
	TotalWeight float64       `json:"total_weight"`
	LineCount   int           `json:"line_count"`
	Metadata    BatchMetadata `json:"metadata"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewBatch constructs a batch in the initial COLLECTING state.
func NewBatch(batchID id.BatchID, tenantID id.TenantID, flow id.FlowType, period id.RefPeriod, meta BatchMetadata, now time.Time) (*DeclarationBatch, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "batch requires a tenant")
	}
	if _, err := id.ParseFlowType(string(flow)); err != nil {
		return nil, err
	}
	if _, err := id.ParseRefPeriod(string(period)); err != nil {
		return nil, err
	}
	return &DeclarationBatch{
		ID:        batchID,
		TenantID:  tenantID,
		FlowType:  flow,
		RefPeriod: period,
		Status:    StatusCollecting,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Apply advances the batch along the lifecycle table.
func (b *DeclarationBatch) Apply(trigger Trigger, now time.Time) error {
	next, err := Transition(b.Status, trigger)
	if err != nil {
		return err
	}
	b.Status = next
	b.UpdatedAt = now
	return nil
}

// CanSubmit checks the submission precondition. Rejecting non-READY batches
// here keeps idempotency violations from ever reaching the network.
func (b *DeclarationBatch) CanSubmit() error {
	switch b.Status {
	case StatusReady:
		return nil
	case StatusSubmitted, StatusArchived:
		return dErrors.New(dErrors.CodeConflict, "batch has already been submitted")
	default:
		return dErrors.New(dErrors.CodeConflict, "batch is not ready for submission")
	}
}

// RecomputeTotals resets aggregate totals from the given valid lines only.
func (b *DeclarationBatch) RecomputeTotals(validLines []DeclarationLine) {
	var value, weight float64
	for _, l := range validLines {
		value += l.InvoiceValue
		weight += l.NetMassKG
	}
	b.TotalValue = value
	b.TotalWeight = weight
}
