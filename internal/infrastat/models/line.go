package models

import (
	"fmt"
	"strconv"
)

// ExtensionKind is the closed value variant for line extension fields.
type ExtensionKind int

const (
	ExtensionString ExtensionKind = iota
	ExtensionNumber
	ExtensionBool
)

// ExtensionValue holds one source-specific field value. Only the field
// matching Kind is meaningful.
type ExtensionValue struct {
	Kind ExtensionKind `json:"kind"`
	Str  string        `json:"str,omitempty"`
	Num  float64       `json:"num,omitempty"`
	Bool bool          `json:"bool,omitempty"`
}

// String renders the value for wire encoding. Keeping the variant closed is
// what makes the XML encoder total: every extension renders to text.
func (v ExtensionValue) String() string {
	switch v.Kind {
	case ExtensionNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ExtensionBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// ExtensionField is one key/value pair in a line's extension list.
type ExtensionField struct {
	Key   string         `json:"key"`
	Value ExtensionValue `json:"value"`
}

// Extensions is an ordered list of source-specific fields preserved verbatim
// through ingestion. The transformer sorts keys, which keeps the outbound
// document deterministic.
type Extensions []ExtensionField

// Set appends or replaces the field with the given key, preserving position
// on replace.
func (e Extensions) Set(key string, value ExtensionValue) Extensions {
	for i := range e {
		if e[i].Key == key {
			e[i].Value = value
			return e
		}
	}
	return append(e, ExtensionField{Key: key, Value: value})
}

// Get returns the value for key if present.
func (e Extensions) Get(key string) (ExtensionValue, bool) {
	for i := range e {
		if e[i].Key == key {
			return e[i].Value, true
		}
	}
	return ExtensionValue{}, false
}

// DeclarationLine is a single trade transaction inside a batch.
//
// Invariants:
//   - SeqNo is 1-based and dense per batch, assigned at transform time
//   - NetMassKG and InvoiceValue must be strictly positive to validate
//   - Lines are immutable once persisted; corrections create a new batch
type DeclarationLine struct {
	SeqNo              int        `json:"seq_no"`
	CommodityCode      string     `json:"commodity_code"`
	OriginCountry      string     `json:"origin_country"`
	DestinationCountry string     `json:"destination_country"`
	NetMassKG          float64    `json:"net_mass_kg"`
	InvoiceValue       float64    `json:"invoice_value"`
	StatisticalValue   *float64   `json:"statistical_value,omitempty"`
	SupplementaryUnits *float64   `json:"supplementary_units,omitempty"`
	TransactionNature  string     `json:"transaction_nature"`
	TransportMode      string     `json:"transport_mode"`
	DeliveryTerms      string     `json:"delivery_terms,omitempty"`
	Extensions         Extensions `json:"extensions,omitempty"`
}

// Ref renders a stable human-readable line reference for findings and logs.
func (l DeclarationLine) Ref() string {
	return fmt.Sprintf("line %d", l.SeqNo)
}
