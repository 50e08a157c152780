package numeric

import "github.com/shopspring/decimal"

// Round rounds d half away from zero.
func Round(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// RoundNull rounds a nullable decimal, leaving null values untouched.
func RoundNull(d decimal.NullDecimal, places int32) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(places))
}

// Money rounds d to two decimals.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// NullOf wraps d as a valid NullDecimal.
func NullOf(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// IsZeroOrNull reports whether d is null or zero.
func IsZeroOrNull(d decimal.NullDecimal) bool {
	return !d.Valid || d.Decimal.IsZero()
}

// ValueOrZero returns the decimal carried by d, or zero when d is null.
func ValueOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
