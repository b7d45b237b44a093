package models

// ValidationCode is the stable identifier of a validation rule violation.
type ValidationCode string

const (
	CodeInvalidTaric              ValidationCode = "INVALID_TARIC"
	CodeInvalidCountryOrigin      ValidationCode = "INVALID_COUNTRY_ORIGIN"
	CodeInvalidCountryDestination ValidationCode = "INVALID_COUNTRY_DESTINATION"
	CodeNegativeWeight            ValidationCode = "NEGATIVE_WEIGHT"
	CodeNegativeValue             ValidationCode = "NEGATIVE_VALUE"
)

// Severity ranks a finding for downstream triage.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one finding against a line (LineSeq > 0) or the batch
// as a whole (LineSeq == 0). Findings are never mutated; each validation
// pass replaces the previous set wholesale.
type ValidationError struct {
	Code     ValidationCode    `json:"code"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	LineSeq  int               `json:"line_seq,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}
