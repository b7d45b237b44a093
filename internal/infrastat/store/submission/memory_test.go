package submission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
	"infrastat/pkg/platform/sentinel"
)

func TestMemoryStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	batchID := id.NewBatchID()

	first := models.SubmissionLog{
		ID:        id.NewSubmissionID(),
		BatchID:   batchID,
		Channel:   "portal",
		Status:    models.SubmissionGenerated,
		CreatedAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
	second := first
	second.ID = id.NewSubmissionID()
	second.CreatedAt = first.CreatedAt.Add(time.Hour)

	require.NoError(t, store.Append(ctx, second))
	require.NoError(t, store.Append(ctx, first))

	logs, err := store.ListByBatch(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, first.ID, logs[0].ID)

	other, err := store.ListByBatch(ctx, id.NewBatchID())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStoreAppendDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	log := models.SubmissionLog{ID: id.NewSubmissionID(), BatchID: id.NewBatchID()}

	require.NoError(t, store.Append(ctx, log))
	assert.ErrorIs(t, store.Append(ctx, log), sentinel.ErrConflict)
}

func TestMemoryStoreUpdateTerminalOutcome(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	log := models.SubmissionLog{
		ID:      id.NewSubmissionID(),
		BatchID: id.NewBatchID(),
		Status:  models.SubmissionGenerated,
	}
	require.NoError(t, store.Append(ctx, log))

	log.Status = models.SubmissionSubmitted
	log.Success = true
	log.Reference = "REC-42"
	require.NoError(t, store.Update(ctx, log))

	logs, err := store.ListByBatch(ctx, log.BatchID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SubmissionSubmitted, logs[0].Status)
	assert.True(t, logs[0].Success)
	assert.Equal(t, "REC-42", logs[0].Reference)

	missing := models.SubmissionLog{ID: id.NewSubmissionID()}
	assert.ErrorIs(t, store.Update(ctx, missing), sentinel.ErrNotFound)
}
