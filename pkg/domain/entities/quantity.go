package entities

import "github.com/shopspring/decimal"

const (
	// NeededPrecision is the number of decimal places kept for scaled recipe quantities.
	NeededPrecision int32 = 3
	// ConversionPrecision is the number of decimal places kept after a unit conversion.
	ConversionPrecision int32 = 6
)

// RoundNeeded rounds a scaled quantity to NeededPrecision decimal places
func RoundNeeded(q decimal.Decimal) decimal.Decimal {
	return q.Round(NeededPrecision)
}

// RoundConverted rounds a converted quantity to ConversionPrecision decimal places
func RoundConverted(q decimal.Decimal) decimal.Decimal {
	return q.Round(ConversionPrecision)
}

// ToMicroUnits expresses q as an integer count of 10^-ConversionPrecision units.
func ToMicroUnits(q decimal.Decimal) int64 {
	return RoundConverted(q).Shift(ConversionPrecision).IntPart()
}

// FromMicroUnits is the inverse of ToMicroUnits
func FromMicroUnits(v int64) decimal.Decimal {
	return decimal.New(v, -ConversionPrecision)
}
