package inventory

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Gram arithmetic goes through decimal so 1187.30-1000 is 187.30 and not
// 187.29999999999995.

func grams(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func round2(v float64) float64 {
	return grams(v).Round(2).InexactFloat64()
}

func sub2(a, b float64) float64 {
	return grams(a).Sub(grams(b)).Round(2).InexactFloat64()
}

func usedSince(previous, current float64) float64 {
	d := grams(previous).Sub(grams(current)).Round(2)
	if d.IsNegative() {
		return 0
	}
	return d.InexactFloat64()
}

func isEmpty(amount, threshold float64) bool {
	return grams(amount).LessThanOrEqual(grams(threshold))
}

func checkWeight(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is not a number", ErrInvalid, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, name)
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }
