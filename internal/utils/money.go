package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to the currency minor unit.
func RoundMoney(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(MinorUnitDecimals).InexactFloat64()
}

// Commission returns orderTotal * ratePercent / 100 rounded to the minor unit.
func Commission(orderTotal float64, ratePercent int) float64 {
	return decimal.NewFromFloat(orderTotal).
		Mul(decimal.NewFromInt(int64(ratePercent))).
		Div(hundred).
		Round(MinorUnitDecimals).
		InexactFloat64()
}

// PercentOf returns value percent of amount, rounded to the minor unit.
func PercentOf(amount, percent float64) float64 {
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(percent)).
		Div(hundred).
		Round(MinorUnitDecimals).
		InexactFloat64()
}

// SumMoney adds amounts exactly and rounds the result to the minor unit.
func SumMoney(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(MinorUnitDecimals).InexactFloat64()
}

// Ratio returns numerator/denominator*100 rounded to two places, or 0 when
// the denominator is zero.
func Ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return decimal.NewFromInt(numerator).
		Mul(hundred).
		Div(decimal.NewFromInt(denominator)).
		Round(2).
		InexactFloat64()
}

// Currencies whose minor unit is not a hundredth, as Stripe counts them.
var minorUnitExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "JPY": 0, "KMF": 0, "KRW": 0, "MGA": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "JOD": 3, "KWD": 3, "OMR": 3, "TND": 3,
}

// MinorUnitExponent returns how many decimal places the currency's minor
// unit has.
func MinorUnitExponent(currency string) int32 {
	if exp, ok := minorUnitExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return MinorUnitDecimals
}

// MinorUnitsToAmount converts an integer amount in the currency's smallest
// unit (cents, yen) to currency units.
func MinorUnitsToAmount(minor int64, currency string) float64 {
	return decimal.New(minor, -MinorUnitExponent(currency)).InexactFloat64()
}
