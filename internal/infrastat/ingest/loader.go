// Package ingest turns raw key/value transaction records into typed
// declaration lines for a reporting period. Loading and transformation are
// pure: no store or network access, malformed records are skipped with a
// warning rather than failing the batch.
package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"infrastat/internal/infrastat/models"
)

// RawRecord is one externally supplied transaction record. Values are
// scalars as produced by a JSON decoder or CSV reader: string, float64,
// int, bool.
type RawRecord map[string]any

// StringField coerces the value under key into a trimmed string. Numeric
// values render without an exponent so commodity codes supplied as numbers
// survive intact.
func (r RawRecord) StringField(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		trimmed := strings.TrimSpace(s)
		return trimmed, trimmed != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}

// FloatField coerces the value under key into a float64. String values are
// parsed; anything else fails coercion.
func (r RawRecord) FloatField(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// scalarValue maps a raw value into the closed extension variant. Unsupported
// types degrade to their fmt rendering so no source field is silently lost.
func scalarValue(v any) models.ExtensionValue {
	switch s := v.(type) {
	case string:
		return models.ExtensionValue{Kind: models.ExtensionString, Str: s}
	case float64:
		return models.ExtensionValue{Kind: models.ExtensionNumber, Num: s}
	case int:
		return models.ExtensionValue{Kind: models.ExtensionNumber, Num: float64(s)}
	case int64:
		return models.ExtensionValue{Kind: models.ExtensionNumber, Num: float64(s)}
	case bool:
		return models.ExtensionValue{Kind: models.ExtensionBool, Bool: s}
	default:
		return models.ExtensionValue{Kind: models.ExtensionString, Str: fmt.Sprintf("%v", s)}
	}
}
