package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundFloat converts v to a decimal rounded to places. NaN and infinities
// have no decimal form and come back invalid, which marshals as JSON null.
func RoundFloat(v float64, places int32) decimal.NullDecimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v).Round(places), Valid: true}
}

// RoundFloats applies RoundFloat to every element
func RoundFloats(values []float64, places int32) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(values))
	for i, v := range values {
		out[i] = RoundFloat(v, places)
	}
	return out
}

// FormatFloat renders v with exactly places decimals, or "NaN"/"+Inf"/"-Inf"
func FormatFloat(v float64, places int32) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
