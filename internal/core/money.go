// Package core provides the ledger domain types and their presentation helpers.
//
// Amounts are int64 miliunits everywhere (1 currency unit = 1000 miliunits).
// FormatAmount and ParseAmount are the only places where decimal text appears.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MiliunitsPerUnit is the scale between a currency unit and the stored integer.
const MiliunitsPerUnit = 1000

const miliunitsExp = 3

var (
	maxMiliunits = decimal.NewFromInt(math.MaxInt64)
	minMiliunits = decimal.NewFromInt(math.MinInt64)
)

// FormatAmount renders miliunits as a decimal string with two fraction digits,
// or three when the value carries a sub-cent part, so ParseAmount can always
// recover the exact integer.
//
//	FormatAmount(-2550) -> "-2.55"
//	FormatAmount(1234)  -> "1.234"
//	FormatAmount(0)     -> "0.00"
func FormatAmount(miliunits int64) string {
	d := decimal.New(miliunits, -miliunitsExp)
	if miliunits%10 == 0 {
		return d.StringFixed(2)
	}
	return d.StringFixed(miliunitsExp)
}

// ParseAmount converts a signed decimal string into miliunits. Both "." and ","
// are accepted as decimal separator; digits beyond the third fraction digit are
// rounded half away from zero.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Shift(miliunitsExp).Round(0)
	if d.GreaterThan(maxMiliunits) || d.LessThan(minMiliunits) {
		return 0, ErrInvalidAmount
	}
	return d.IntPart(), nil
}

// ToUnits returns the amount as a float in currency units, for spreadsheet
// cells only. Never use it for arithmetic.
func ToUnits(miliunits int64) float64 {
	f, _ := decimal.New(miliunits, -miliunitsExp).Float64()
	return f
}
