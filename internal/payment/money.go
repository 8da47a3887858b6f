package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// threeDecimalCurrencies have 1000 minor units per major unit.
var threeDecimalCurrencies = map[string]struct{}{
	"KWD": {}, "BHD": {}, "OMR": {}, "JOD": {},
}

func minorUnitExponent(currency string) int32 {
	if _, ok := threeDecimalCurrencies[strings.ToUpper(currency)]; ok {
		return 3
	}
	return 2
}

// ToMinorUnits converts a major-unit amount to the smallest denomination.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(minorUnitExponent(currency)).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -minorUnitExponent(currency))
}

// FormatAmount renders an amount with exactly two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
