package batch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
	"infrastat/pkg/platform/sentinel"
)

func newTestBatch(t *testing.T, tenant id.TenantID, period, flow string) models.DeclarationBatch {
	t.Helper()
	b, err := models.NewBatch(
		id.NewBatchID(), tenant,
		id.FlowType(flow), id.RefPeriod(period),
		models.BatchMetadata{SenderID: "10000001"},
		time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return *b
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenant := id.TenantID(uuid.New())

	batch := newTestBatch(t, tenant, "2026-01", "arrival")
	require.NoError(t, store.Create(ctx, batch))

	got, err := store.FindByID(ctx, tenant, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)
	assert.Equal(t, models.StatusCollecting, got.Status)

	got, err = store.FindByPeriod(ctx, tenant, "2026-01", "arrival")
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)
}

func TestMemoryStoreCreateConflictsOnPeriod(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenant := id.TenantID(uuid.New())

	require.NoError(t, store.Create(ctx, newTestBatch(t, tenant, "2026-01", "arrival")))

	err := store.Create(ctx, newTestBatch(t, tenant, "2026-01", "arrival"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	// A different flow over the same period is a distinct batch.
	assert.NoError(t, store.Create(ctx, newTestBatch(t, tenant, "2026-01", "dispatch")))
}

func TestMemoryStoreTenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenantA := id.TenantID(uuid.New())
	tenantB := id.TenantID(uuid.New())

	batch := newTestBatch(t, tenantA, "2026-01", "arrival")
	require.NoError(t, store.Create(ctx, batch))

	_, err := store.FindByID(ctx, tenantB, batch.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	list, err := store.ListByTenant(ctx, tenantB)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStoreReplaceLinesAndFindings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenant := id.TenantID(uuid.New())

	batch := newTestBatch(t, tenant, "2026-01", "dispatch")
	require.NoError(t, store.Create(ctx, batch))

	require.NoError(t, store.ReplaceLines(ctx, batch.ID, []models.DeclarationLine{
		{SeqNo: 2, CommodityCode: "85171200"},
		{SeqNo: 1, CommodityCode: "12099190"},
	}))
	lines, err := store.Lines(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].SeqNo)
	assert.Equal(t, "12099190", lines[0].CommodityCode)

	// A re-ingest replaces the previous set wholesale.
	require.NoError(t, store.ReplaceLines(ctx, batch.ID, []models.DeclarationLine{
		{SeqNo: 1, CommodityCode: "09041100"},
	}))
	lines, err = store.Lines(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "09041100", lines[0].CommodityCode)

	require.NoError(t, store.ReplaceFindings(ctx, batch.ID, []models.ValidationError{
		{Code: models.CodeNegativeWeight, Severity: models.SeverityError, LineSeq: 1},
	}))
	findings, err := store.Findings(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	require.NoError(t, store.ReplaceFindings(ctx, batch.ID, nil))
	findings, err = store.Findings(ctx, batch.ID)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestMemoryStoreSaveUnknownBatch(t *testing.T) {
	store := NewMemoryStore()
	batch := newTestBatch(t, id.TenantID(uuid.New()), "2026-01", "arrival")
	assert.ErrorIs(t, store.Save(context.Background(), batch), sentinel.ErrNotFound)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenant := id.TenantID(uuid.New())

	older := newTestBatch(t, tenant, "2026-01", "arrival")
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := newTestBatch(t, tenant, "2026-02", "arrival")
	newer.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))

	list, err := store.ListByTenant(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
}
