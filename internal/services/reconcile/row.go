package reconcile

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one record from an upstream extract, keyed by field name. How the
// extract file was parsed is the producer's problem; by the time rows reach
// the engine they are plain maps.
type Row map[string]interface{}

// Str returns the named field as a trimmed string. Numeric JSON values are
// formatted, so numbers used as identifiers (employee numbers and the like)
// survive the trip through an extract.
func (r Row) Str(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Decimal returns the named field as a decimal amount, zero when absent or
// unparseable.
func (r Row) Decimal(key string) decimal.Decimal {
	switch v := r[key].(type) {
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	}
	return decimal.Zero
}

// TimePtr parses the named field as a date, trying ISO date then RFC 3339.
func (r Row) TimePtr(key string) *time.Time {
	raw := r.Str(key)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
