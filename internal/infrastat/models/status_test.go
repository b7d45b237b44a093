package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "infrastat/pkg/domain"
	dErrors "infrastat/pkg/domain-errors"
	"infrastat/pkg/platform/sentinel"
)

func TestTransition_Table(t *testing.T) {
	cases := []struct {
		from    BatchStatus
		trigger Trigger
		want    BatchStatus
	}{
		{StatusCollecting, TriggerIngest, StatusValidating},
		{StatusValidating, TriggerValidationPassed, StatusReady},
		{StatusValidating, TriggerValidationFailed, StatusError},
		{StatusReady, TriggerSubmissionStarted, StatusSubmitting},
		{StatusSubmitting, TriggerSubmissionSucceeded, StatusSubmitted},
		{StatusSubmitting, TriggerSubmissionFailed, StatusError},
		{StatusError, TriggerReopened, StatusCollecting},
		{StatusSubmitted, TriggerArchived, StatusArchived},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.trigger)
		require.NoError(t, err, "%s on %s", tc.from, tc.trigger)
		assert.Equal(t, tc.want, got)
	}
}

func TestTransition_RejectsUndefinedPairs(t *testing.T) {
	cases := []struct {
		from    BatchStatus
		trigger Trigger
	}{
		{StatusCollecting, TriggerValidationPassed},
		{StatusReady, TriggerIngest},
		{StatusSubmitted, TriggerSubmissionStarted},
		{StatusArchived, TriggerReopened},
		{StatusError, TriggerSubmissionStarted},
	}
	for _, tc := range cases {
		_, err := Transition(tc.from, tc.trigger)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState, "%s on %s", tc.from, tc.trigger)
	}
}

func TestTransition_ErrorIsReenterable(t *testing.T) {
	// Failed validation and failed submission both land in ERROR, and a
	// retry workflow can reopen from there.
	s, err := Transition(StatusValidating, TriggerValidationFailed)
	require.NoError(t, err)
	require.Equal(t, StatusError, s)

	s, err = Transition(s, TriggerReopened)
	require.NoError(t, err)
	assert.Equal(t, StatusCollecting, s)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusArchived))
	assert.False(t, IsTerminal(StatusSubmitted))
	assert.False(t, IsTerminal(StatusError))
}

func TestBatch_Apply(t *testing.T) {
	now := time.Now()
	b, err := NewBatch(id.NewBatchID(), id.TenantID(uuid.New()), id.FlowDispatch, "2025-04", BatchMetadata{}, now)
	require.NoError(t, err)
	require.Equal(t, StatusCollecting, b.Status)

	later := now.Add(time.Minute)
	require.NoError(t, b.Apply(TriggerIngest, later))
	assert.Equal(t, StatusValidating, b.Status)
	assert.Equal(t, later, b.UpdatedAt)

	// Undefined trigger leaves status untouched.
	err = b.Apply(TriggerArchived, later)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	assert.Equal(t, StatusValidating, b.Status)
}

func TestBatch_CanSubmit(t *testing.T) {
	now := time.Now()
	b, err := NewBatch(id.NewBatchID(), id.TenantID(uuid.New()), id.FlowArrival, "2025-04", BatchMetadata{}, now)
	require.NoError(t, err)

	err = b.CanSubmit()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	b.Status = StatusReady
	assert.NoError(t, b.CanSubmit())

	b.Status = StatusSubmitted
	err = b.CanSubmit()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestBatch_RecomputeTotals(t *testing.T) {
	now := time.Now()
	b, err := NewBatch(id.NewBatchID(), id.TenantID(uuid.New()), id.FlowDispatch, "2025-04", BatchMetadata{}, now)
	require.NoError(t, err)

	b.RecomputeTotals([]DeclarationLine{
		{SeqNo: 1, NetMassKG: 100, InvoiceValue: 15000},
		{SeqNo: 2, NetMassKG: 2.5, InvoiceValue: 300},
	})
	assert.Equal(t, 15300.0, b.TotalValue)
	assert.Equal(t, 102.5, b.TotalWeight)

	b.RecomputeTotals(nil)
	assert.Zero(t, b.TotalValue)
	assert.Zero(t, b.TotalWeight)
}

func TestNewBatch_Invariants(t *testing.T) {
	now := time.Now()

	_, err := NewBatch(id.NewBatchID(), id.TenantID{}, id.FlowArrival, "2025-04", BatchMetadata{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewBatch(id.NewBatchID(), id.TenantID(uuid.New()), "sideways", "2025-04", BatchMetadata{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewBatch(id.NewBatchID(), id.TenantID(uuid.New()), id.FlowArrival, "April 2025", BatchMetadata{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
