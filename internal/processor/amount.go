package processor

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currencies the processor expects without a fractional part.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true,
	"xpf": true,
}

// Currencies with three minor digits.
var threeDecimalCurrencies = map[string]bool{
	"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
}

// NormalizeCurrency returns the processor's lower-case currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToLower(strings.TrimSpace(currency))
}

// MinorUnitExponent returns the number of minor digits for a currency.
func MinorUnitExponent(currency string) int32 {
	c := NormalizeCurrency(currency)
	switch {
	case zeroDecimalCurrencies[c]:
		return 0
	case threeDecimalCurrencies[c]:
		return 3
	default:
		return 2
	}
}

// ToMinorUnits converts a major-unit amount to the processor's integer
// amount, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	exp := MinorUnitExponent(currency)
	minor := amount.Shift(exp).Round(0).IntPart()

	// Three-decimal currencies must be sent with a trailing zero.
	if exp == 3 {
		minor = (minor + 5) / 10 * 10
	}
	return minor
}

// FromMinorUnits converts a processor amount back to major units.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-MinorUnitExponent(currency))
}
