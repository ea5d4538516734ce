// Package money provides decimal helpers shared across the sizing,
// strategy and journal packages.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Bucket implements the price-bucketing rule used by the signal hash:
// floor(price*100)/5, which collapses near-duplicate prices within a
// 5-cent band into the same bucket value.
func Bucket(price decimal.Decimal) decimal.Decimal {
	cents := price.Mul(decimal.NewFromInt(100)).Floor()
	return cents.Div(decimal.NewFromInt(5)).Floor()
}

// Min returns the smaller of two decimals.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of two decimals.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Clamp restricts value to [lo, hi].
func Clamp(value, lo, hi decimal.Decimal) decimal.Decimal {
	if value.LessThan(lo) {
		return lo
	}
	if value.GreaterThan(hi) {
		return hi
	}
	return value
}

// PercentChange computes (newVal - old) / old, sign-aware so a short
// position's gain is positive when price falls.
func PercentChange(old, newVal decimal.Decimal, isShort bool) decimal.Decimal {
	if old.IsZero() {
		return decimal.Zero
	}
	pct := newVal.Sub(old).Div(old)
	if isShort {
		return pct.Neg()
	}
	return pct
}

// Mean computes the arithmetic mean of a decimal slice.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// PopStdDev computes the population standard deviation (divide by N, not
// N-1), the sigma convention indicators.BollingerBands uses;
// indicators.ZScore uses the sample (N-1) deviation instead.
func PopStdDev(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	mean := Mean(values)
	sumSq := decimal.Zero
	for _, v := range values {
		d := v.Sub(mean)
		sumSq = sumSq.Add(d.Mul(d))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(len(values))))
	f, _ := variance.Float64()
	return decimal.NewFromFloat(math.Sqrt(f))
}

// ToFloat64Slice converts a decimal slice to float64, the shape most
// numeric libraries such as gonum expect.
func ToFloat64Slice(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i], _ = v.Float64()
	}
	return out
}
