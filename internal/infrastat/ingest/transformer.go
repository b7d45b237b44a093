package ingest

import (
	"fmt"
	"sort"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
)

// Recognized input field names. Everything else on a record is preserved
// verbatim in the line's extension list.
const (
	fieldCommodityCode      = "commodity_code"
	fieldOriginCountry      = "origin_country"
	fieldDestinationCountry = "destination_country"
	fieldNetMassKG          = "net_mass_kg"
	fieldInvoiceValue       = "invoice_value"
	fieldStatisticalValue   = "statistical_value"
	fieldSupplementaryUnits = "supplementary_units"
	fieldTransactionNature  = "transaction_nature"
	fieldTransportMode      = "transport_mode"
	fieldDeliveryTerms      = "delivery_terms"
)

var knownFields = map[string]struct{}{
	fieldCommodityCode:      {},
	fieldOriginCountry:      {},
	fieldDestinationCountry: {},
	fieldNetMassKG:          {},
	fieldInvoiceValue:       {},
	fieldStatisticalValue:   {},
	fieldSupplementaryUnits: {},
	fieldTransactionNature:  {},
	fieldTransportMode:      {},
	fieldDeliveryTerms:      {},
}

// defaultTransactionNature is assumed when the source omits the
// nature-of-transaction code. "11" is an outright sale/purchase.
const defaultTransactionNature = "11"

// TransformParams scope one transformation run to a tenant, period and flow.
type TransformParams struct {
	TenantID  id.TenantID
	FlowType  id.FlowType
	RefPeriod id.RefPeriod
	Metadata  models.BatchMetadata
}

// BatchCreate is the typed output of a transformation run, ready for the
// ingestion orchestrator to persist.
type BatchCreate struct {
	TenantID  id.TenantID
	FlowType  id.FlowType
	RefPeriod id.RefPeriod
	Metadata  models.BatchMetadata
	Lines     []models.DeclarationLine
}

// Transform maps raw records into declaration lines. Each record transforms
// independently: a record missing a required field or failing type coercion
// is skipped and recorded as a warning, never fatal to the batch. Sequence
// numbers are assigned densely starting at 1 over the survivors.
func Transform(params TransformParams, records []RawRecord) (BatchCreate, []string) {
	out := BatchCreate{
		TenantID:  params.TenantID,
		FlowType:  params.FlowType,
		RefPeriod: params.RefPeriod,
		Metadata:  params.Metadata,
		Lines:     make([]models.DeclarationLine, 0, len(records)),
	}
	var warnings []string

	seq := 1
	for i, rec := range records {
		line, err := transformRecord(rec)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Record %d skipped: %v", i+1, err))
			continue
		}
		line.SeqNo = seq
		seq++
		out.Lines = append(out.Lines, line)
	}
	return out, warnings
}

func transformRecord(rec RawRecord) (models.DeclarationLine, error) {
	var line models.DeclarationLine

	code, ok := rec.StringField(fieldCommodityCode)
	if !ok {
		return line, fmt.Errorf("missing commodity_code")
	}
	origin, ok := rec.StringField(fieldOriginCountry)
	if !ok {
		return line, fmt.Errorf("missing origin_country")
	}
	destination, ok := rec.StringField(fieldDestinationCountry)
	if !ok {
		return line, fmt.Errorf("missing destination_country")
	}
	mass, ok := rec.FloatField(fieldNetMassKG)
	if !ok {
		return line, fmt.Errorf("invalid or missing net_mass_kg")
	}
	value, ok := rec.FloatField(fieldInvoiceValue)
	if !ok {
		return line, fmt.Errorf("invalid or missing invoice_value")
	}

	line.CommodityCode = code
	line.OriginCountry = origin
	line.DestinationCountry = destination
	line.NetMassKG = mass
	line.InvoiceValue = value

	if v, ok := rec.FloatField(fieldStatisticalValue); ok {
		line.StatisticalValue = &v
	}
	if v, ok := rec.FloatField(fieldSupplementaryUnits); ok {
		line.SupplementaryUnits = &v
	}
	if v, ok := rec.StringField(fieldTransactionNature); ok {
		line.TransactionNature = v
	} else {
		line.TransactionNature = defaultTransactionNature
	}
	if v, ok := rec.StringField(fieldTransportMode); ok {
		line.TransportMode = v
	}
	if v, ok := rec.StringField(fieldDeliveryTerms); ok {
		line.DeliveryTerms = v
	}

	// Unrecognized fields survive in the extension list, sorted by key so
	// the outbound document stays deterministic.
	extras := make([]string, 0)
	for k := range rec {
		if _, known := knownFields[k]; !known {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		line.Extensions = line.Extensions.Set(k, scalarValue(rec[k]))
	}

	return line, nil
}
