// Package validate applies business and reference-data rules to proposed
// declaration lines. Rules are independently evaluable: one pass can attach
// several findings to the same line.
package validate

import (
	"fmt"

	"infrastat/internal/infrastat/models"
)

// ReferenceData is the tenant-scoped codesets lines are checked against.
// An empty set disables the corresponding rule rather than failing every
// line, so partial reference data degrades gracefully.
type ReferenceData struct {
	CommodityCodes map[string]struct{}
	CountryCodes   map[string]struct{}
}

// Validator checks declaration lines against a reference dataset.
type Validator struct {
	ref ReferenceData
}

// New builds a validator over the given reference data.
func New(ref ReferenceData) *Validator {
	return &Validator{ref: ref}
}

// Validate partitions lines into findings and the valid subset. A line with
// zero findings joins the valid set; a line with one or more contributes all
// of them, tagged with its sequence number, and is excluded.
func (v *Validator) Validate(lines []models.DeclarationLine) ([]models.ValidationError, []models.DeclarationLine) {
	var errs []models.ValidationError
	valid := make([]models.DeclarationLine, 0, len(lines))

	for _, line := range lines {
		found := v.checkLine(line)
		if len(found) == 0 {
			valid = append(valid, line)
			continue
		}
		errs = append(errs, found...)
	}
	return errs, valid
}

func (v *Validator) checkLine(line models.DeclarationLine) []models.ValidationError {
	var found []models.ValidationError

	add := func(code models.ValidationCode, msg string, details map[string]string) {
		found = append(found, models.ValidationError{
			Code:     code,
			Severity: models.SeverityError,
			Message:  msg,
			LineSeq:  line.SeqNo,
			Details:  details,
		})
	}

	if len(v.ref.CommodityCodes) > 0 {
		if _, ok := v.ref.CommodityCodes[line.CommodityCode]; !ok {
			add(models.CodeInvalidTaric,
				fmt.Sprintf("commodity code %q is not a known tariff code", line.CommodityCode),
				map[string]string{"commodity_code": line.CommodityCode})
		}
	}
	if len(v.ref.CountryCodes) > 0 {
		if _, ok := v.ref.CountryCodes[line.OriginCountry]; !ok {
			add(models.CodeInvalidCountryOrigin,
				fmt.Sprintf("origin country %q is not a known country code", line.OriginCountry),
				map[string]string{"origin_country": line.OriginCountry})
		}
		if _, ok := v.ref.CountryCodes[line.DestinationCountry]; !ok {
			add(models.CodeInvalidCountryDestination,
				fmt.Sprintf("destination country %q is not a known country code", line.DestinationCountry),
				map[string]string{"destination_country": line.DestinationCountry})
		}
	}
	if line.NetMassKG <= 0 {
		add(models.CodeNegativeWeight,
			fmt.Sprintf("%s: net mass must be positive, got %v kg", line.Ref(), line.NetMassKG), nil)
	}
	if line.InvoiceValue <= 0 {
		add(models.CodeNegativeValue,
			fmt.Sprintf("%s: invoice value must be positive, got %v", line.Ref(), line.InvoiceValue), nil)
	}
	return found
}
