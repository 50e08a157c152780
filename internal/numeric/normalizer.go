// Package numeric turns the loosely formatted numbers found in supplier
// spreadsheets into floats and decimals.
//
// Separator heuristic: when a value carries both a comma and a period the
// comma is a thousands separator and is dropped; when it carries only a comma
// the comma is the decimal separator. "1,234" therefore parses as 1.234 and
// "1.234,56" as 1.23456. The rule is kept as-is because existing workbooks
// were captured with it.
package numeric

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Rounding precisions used for persisted fields.
const (
	MoneyPlaces int32 = 2
	FinePlaces  int32 = 6
)

// ParseNumber converts raw into a float64, returning def whenever the value
// cannot be interpreted as a number.
func ParseNumber(raw interface{}, def float64) float64 {
	switch v := raw.(type) {
	case nil:
		return def
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return v
	case float32:
		return ParseNumber(float64(v), def)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case decimal.Decimal:
		return v.InexactFloat64()
	case decimal.NullDecimal:
		if !v.Valid {
			return def
		}
		return v.Decimal.InexactFloat64()
	case string:
		f, ok := parseText(v)
		if !ok {
			return def
		}
		return f
	default:
		return def
	}
}

// ParseInteger parses raw as a number and truncates it. def (which may be nil)
// is returned when parsing fails.
func ParseInteger(raw interface{}, def *int) *int {
	f := ParseNumber(raw, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	n := int(f)
	return &n
}

// ParseDecimal parses raw into a nullable decimal; unparseable or empty input
// yields an invalid NullDecimal.
func ParseDecimal(raw interface{}) decimal.NullDecimal {
	f := ParseNumber(raw, math.NaN())
	if math.IsNaN(f) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

func parseText(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	hasComma := strings.Contains(clean, ",")
	hasPeriod := strings.Contains(clean, ".")
	switch {
	case hasComma && hasPeriod:
		clean = strings.ReplaceAll(clean, ",", "")
	case hasComma:
		clean = strings.ReplaceAll(clean, ",", ".")
	}
	if clean == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	if negative {
		f = -math.Abs(f)
	}
	return f, true
}
