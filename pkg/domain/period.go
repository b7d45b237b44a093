package domain

import (
	"fmt"
	"time"

	dErrors "infrastat/pkg/domain-errors"
)

// FlowType is the direction of a goods movement for statistical reporting.
// An arrival is an inbound movement, a dispatch an outbound one.
type FlowType string

const (
	FlowArrival  FlowType = "arrival"
	FlowDispatch FlowType = "dispatch"
)

// ParseFlowType validates the string form of a flow type.
func ParseFlowType(s string) (FlowType, error) {
	switch FlowType(s) {
	case FlowArrival, FlowDispatch:
		return FlowType(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("flow type must be %q or %q", FlowArrival, FlowDispatch))
	}
}

// RefPeriod is the calendar month a declaration batch covers, in "YYYY-MM" form.
type RefPeriod string

// ParseRefPeriod validates the "YYYY-MM" form of a reference period.
func ParseRefPeriod(s string) (RefPeriod, error) {
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "reference period must be formatted as YYYY-MM")
	}
	return RefPeriod(s), nil
}

func (p RefPeriod) String() string { return string(p) }

// Year returns the four-digit year component.
func (p RefPeriod) Year() string { return string(p)[:4] }

// Month returns the two-digit month component.
func (p RefPeriod) Month() string { return string(p)[5:] }
