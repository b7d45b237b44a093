//go:build integration

package batch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"infrastat/internal/infrastat/models"
	"infrastat/internal/infrastat/store/batch"
	id "infrastat/pkg/domain"
	"infrastat/pkg/platform/sentinel"
	"infrastat/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *batch.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = batch.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "submission_logs", "validation_errors", "declaration_lines", "declaration_batches")
	s.Require().NoError(err)
}

func newTestBatch(tenantID id.TenantID, period id.RefPeriod, flow id.FlowType) models.DeclarationBatch {
	now := time.Now().UTC().Truncate(time.Microsecond)
	b, err := models.NewBatch(id.NewBatchID(), tenantID, flow, period, models.BatchMetadata{
		SenderID:     "DE-12345",
		SourceSystem: "erp-export",
	}, now)
	if err != nil {
		panic(err)
	}
	return *b
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	b := newTestBatch(tenantID, "2026-03", id.FlowArrival)
	b.TotalValue = 15000.50
	b.TotalWeight = 320.25
	b.LineCount = 2

	s.Require().NoError(s.store.Create(ctx, b))

	got, err := s.store.FindByID(ctx, tenantID, b.ID)
	s.Require().NoError(err)
	s.Equal(b.ID, got.ID)
	s.Equal(b.TenantID, got.TenantID)
	s.Equal(id.FlowArrival, got.FlowType)
	s.Equal(id.RefPeriod("2026-03"), got.RefPeriod)
	s.Equal(models.StatusCollecting, got.Status)
	s.Equal(15000.50, got.TotalValue)
	s.Equal(320.25, got.TotalWeight)
	s.Equal(2, got.LineCount)
	s.Equal("DE-12345", got.Metadata.SenderID)
	s.Equal("erp-export", got.Metadata.SourceSystem)
	s.WithinDuration(b.CreatedAt, got.CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestFindByIDScopedToTenant() {
	ctx := context.Background()
	owner := id.TenantID(uuid.New())
	b := newTestBatch(owner, "2026-03", id.FlowDispatch)
	s.Require().NoError(s.store.Create(ctx, b))

	_, err := s.store.FindByID(ctx, id.TenantID(uuid.New()), b.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPeriodUniqueness() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	first := newTestBatch(tenantID, "2026-03", id.FlowArrival)
	s.Require().NoError(s.store.Create(ctx, first))

	dup := newTestBatch(tenantID, "2026-03", id.FlowArrival)
	err := s.store.Create(ctx, dup)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// Same period, opposite flow direction is a distinct batch.
	other := newTestBatch(tenantID, "2026-03", id.FlowDispatch)
	s.Require().NoError(s.store.Create(ctx, other))
}

// TestConcurrentPeriodUniqueness verifies that concurrent creation attempts
// for the same (tenant, period, flow) result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentPeriodUniqueness() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			b := newTestBatch(tenantID, "2026-05", id.FlowArrival)
			err := s.store.Create(ctx, b)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestReplaceLinesWholesale() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	b := newTestBatch(tenantID, "2026-03", id.FlowArrival)
	s.Require().NoError(s.store.Create(ctx, b))

	statVal := 1200.0
	first := []models.DeclarationLine{
		{
			SeqNo:              1,
			CommodityCode:      "12099190",
			OriginCountry:      "DE",
			DestinationCountry: "FR",
			NetMassKG:          100,
			InvoiceValue:       1000,
			StatisticalValue:   &statVal,
			TransactionNature:  "11",
			TransportMode:      "3",
			Extensions: models.Extensions{}.
				Set("warehouse", models.ExtensionValue{Kind: models.ExtensionString, Str: "HH-02"}),
		},
		{
			SeqNo:              2,
			CommodityCode:      "85171200",
			OriginCountry:      "NL",
			DestinationCountry: "FR",
			NetMassKG:          5,
			InvoiceValue:       250,
		},
	}
	s.Require().NoError(s.store.ReplaceLines(ctx, b.ID, first))

	got, err := s.store.Lines(ctx, b.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("12099190", got[0].CommodityCode)
	s.Require().NotNil(got[0].StatisticalValue)
	s.Equal(1200.0, *got[0].StatisticalValue)
	s.Nil(got[0].SupplementaryUnits)
	wh, ok := got[0].Extensions.Get("warehouse")
	s.Require().True(ok)
	s.Equal("HH-02", wh.Str)
	s.Nil(got[1].StatisticalValue)

	// Re-ingestion replaces the whole set, never appends.
	second := []models.DeclarationLine{
		{SeqNo: 1, CommodityCode: "85171200", OriginCountry: "NL", DestinationCountry: "DE", NetMassKG: 8, InvoiceValue: 400},
	}
	s.Require().NoError(s.store.ReplaceLines(ctx, b.ID, second))

	got, err = s.store.Lines(ctx, b.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("85171200", got[0].CommodityCode)
}

func (s *PostgresStoreSuite) TestReplaceFindings() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	b := newTestBatch(tenantID, "2026-03", id.FlowArrival)
	s.Require().NoError(s.store.Create(ctx, b))

	findings := []models.ValidationError{
		{
			Code:     models.CodeInvalidTaric,
			Severity: models.SeverityError,
			Message:  "commodity code 99999999 is not in the TARIC nomenclature",
			LineSeq:  2,
			Details:  map[string]string{"commodity_code": "99999999"},
		},
	}
	s.Require().NoError(s.store.ReplaceFindings(ctx, b.ID, findings))

	got, err := s.store.Findings(ctx, b.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(models.CodeInvalidTaric, got[0].Code)
	s.Equal(2, got[0].LineSeq)
	s.Equal("99999999", got[0].Details["commodity_code"])

	s.Require().NoError(s.store.ReplaceFindings(ctx, b.ID, nil))
	got, err = s.store.Findings(ctx, b.ID)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *PostgresStoreSuite) TestSavePersistsStatusAndTotals() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	b := newTestBatch(tenantID, "2026-03", id.FlowArrival)
	s.Require().NoError(s.store.Create(ctx, b))

	s.Require().NoError(b.Apply(models.TriggerIngest, time.Now()))
	s.Require().NoError(b.Apply(models.TriggerValidationPassed, time.Now()))
	b.TotalValue = 999
	b.LineCount = 3
	s.Require().NoError(s.store.Save(ctx, b))

	got, err := s.store.FindByID(ctx, tenantID, b.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReady, got.Status)
	s.Equal(999.0, got.TotalValue)
	s.Equal(3, got.LineCount)
}

func (s *PostgresStoreSuite) TestSaveUnknownBatch() {
	ctx := context.Background()
	b := newTestBatch(id.TenantID(uuid.New()), "2026-03", id.FlowArrival)
	err := s.store.Save(ctx, b)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByTenantNewestFirst() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	older := newTestBatch(tenantID, "2026-01", id.FlowArrival)
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	s.Require().NoError(s.store.Create(ctx, older))

	newer := newTestBatch(tenantID, "2026-02", id.FlowArrival)
	s.Require().NoError(s.store.Create(ctx, newer))

	// Another tenant's batch must not leak into the listing.
	foreign := newTestBatch(id.TenantID(uuid.New()), "2026-02", id.FlowArrival)
	s.Require().NoError(s.store.Create(ctx, foreign))

	got, err := s.store.ListByTenant(ctx, tenantID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(newer.ID, got[0].ID)
	s.Equal(older.ID, got[1].ID)
}
