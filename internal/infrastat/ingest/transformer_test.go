package ingest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
)

func testParams() TransformParams {
	return TransformParams{
		TenantID:  id.TenantID(uuid.New()),
		FlowType:  id.FlowDispatch,
		RefPeriod: "2025-04",
	}
}

func validRecord() RawRecord {
	return RawRecord{
		"commodity_code":      "12099190",
		"origin_country":      "DE",
		"destination_country": "FR",
		"net_mass_kg":         100.0,
		"invoice_value":       15000.0,
	}
}

func TestTransform_ValidRecord(t *testing.T) {
	out, warnings := Transform(testParams(), []RawRecord{validRecord()})

	require.Empty(t, warnings)
	require.Len(t, out.Lines, 1)

	line := out.Lines[0]
	assert.Equal(t, 1, line.SeqNo)
	assert.Equal(t, "12099190", line.CommodityCode)
	assert.Equal(t, "DE", line.OriginCountry)
	assert.Equal(t, "FR", line.DestinationCountry)
	assert.Equal(t, 100.0, line.NetMassKG)
	assert.Equal(t, 15000.0, line.InvoiceValue)
	assert.Equal(t, "11", line.TransactionNature, "nature defaults when omitted")
}

func TestTransform_SkipsMalformedRecords(t *testing.T) {
	records := []RawRecord{
		validRecord(),
		{"origin_country": "DE", "destination_country": "FR", "net_mass_kg": 1.0, "invoice_value": 2.0},
		{"commodity_code": "85423110", "origin_country": "DE", "destination_country": "NL", "net_mass_kg": "heavy", "invoice_value": 2.0},
		validRecord(),
	}

	out, warnings := Transform(testParams(), records)

	require.Len(t, out.Lines, 2)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "Record 2 skipped")
	assert.Contains(t, warnings[0], "commodity_code")
	assert.Contains(t, warnings[1], "Record 3 skipped")
	assert.Contains(t, warnings[1], "net_mass_kg")

	// Sequence numbers stay dense over the survivors.
	assert.Equal(t, 1, out.Lines[0].SeqNo)
	assert.Equal(t, 2, out.Lines[1].SeqNo)
}

func TestTransform_AllRecordsSkipped(t *testing.T) {
	out, warnings := Transform(testParams(), []RawRecord{{}, {"commodity_code": "1234"}})
	assert.Empty(t, out.Lines)
	assert.Len(t, warnings, 2)
}

func TestTransform_CoercesScalarTypes(t *testing.T) {
	rec := validRecord()
	rec["commodity_code"] = 12099190.0 // JSON numbers arrive as float64
	rec["net_mass_kg"] = "100.5"
	rec["invoice_value"] = 15000

	out, warnings := Transform(testParams(), []RawRecord{rec})

	require.Empty(t, warnings)
	require.Len(t, out.Lines, 1)
	assert.Equal(t, "12099190", out.Lines[0].CommodityCode)
	assert.Equal(t, 100.5, out.Lines[0].NetMassKG)
	assert.Equal(t, 15000.0, out.Lines[0].InvoiceValue)
}

func TestTransform_OptionalFields(t *testing.T) {
	rec := validRecord()
	rec["statistical_value"] = 14900.0
	rec["supplementary_units"] = 12.0
	rec["transaction_nature"] = "21"
	rec["transport_mode"] = "3"
	rec["delivery_terms"] = "FOB"

	out, _ := Transform(testParams(), []RawRecord{rec})
	require.Len(t, out.Lines, 1)

	line := out.Lines[0]
	require.NotNil(t, line.StatisticalValue)
	assert.Equal(t, 14900.0, *line.StatisticalValue)
	require.NotNil(t, line.SupplementaryUnits)
	assert.Equal(t, 12.0, *line.SupplementaryUnits)
	assert.Equal(t, "21", line.TransactionNature)
	assert.Equal(t, "3", line.TransportMode)
	assert.Equal(t, "FOB", line.DeliveryTerms)
}

func TestTransform_PreservesUnrecognizedFields(t *testing.T) {
	rec := validRecord()
	rec["warehouse"] = "MUC-01"
	rec["pallet_count"] = 4.0
	rec["hazardous"] = false

	out, warnings := Transform(testParams(), []RawRecord{rec})

	require.Empty(t, warnings)
	require.Len(t, out.Lines, 1)
	ext := out.Lines[0].Extensions
	require.Len(t, ext, 3)

	// Sorted by key for deterministic encoding.
	assert.Equal(t, "hazardous", ext[0].Key)
	assert.Equal(t, models.ExtensionBool, ext[0].Value.Kind)
	assert.Equal(t, "pallet_count", ext[1].Key)
	assert.Equal(t, 4.0, ext[1].Value.Num)
	assert.Equal(t, "warehouse", ext[2].Key)
	assert.Equal(t, "MUC-01", ext[2].Value.Str)

	v, ok := ext.Get("warehouse")
	require.True(t, ok)
	assert.Equal(t, "MUC-01", v.String())
}
