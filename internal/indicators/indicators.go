// Package indicators implements the pure numeric functions of §4.1: moving
// averages, oscillators, volatility bands and trend indicators. Every
// function is deterministic and side-effect-free; any NaN in the input
// propagates to dependent output positions, and windows shorter than the
// required lookback are left as math.NaN().
package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(xs []float64, from, to int) bool {
	for i := from; i <= to; i++ {
		if math.IsNaN(xs[i]) {
			return true
		}
	}
	return false
}

// SMA returns the simple moving average aligned to xs; the first n-1
// positions are NaN.
func SMA(xs []float64, n int) []float64 {
	out := nanSeries(len(xs))
	if n <= 0 || len(xs) < n {
		return out
	}
	sum := 0.0
	for i, x := range xs {
		sum += x
		if i >= n {
			sum -= xs[i-n]
		}
		if i >= n-1 {
			if hasNaN(xs, i-n+1, i) {
				continue
			}
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA returns the exponential moving average, seeded from the first value,
// with smoothing factor 2/(n+1).
func EMA(xs []float64, n int) []float64 {
	out := nanSeries(len(xs))
	if n <= 0 || len(xs) == 0 {
		return out
	}
	k := 2.0 / float64(n+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		if math.IsNaN(out[i-1]) || math.IsNaN(xs[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (xs[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI computes the Relative Strength Index as a simple n-period rolling
// mean of up/down moves (not Wilder's exponential smoothing): avgGain and
// avgLoss are each an n-bar SMA of the per-bar gain/loss, and
// RSI = 100 - 100/(1+RS) where RS = avgGain/avgLoss. avgLoss==0 is
// reported as RSI==100 rather than dividing by zero.
func RSI(closes []float64, n int) []float64 {
	out := nanSeries(len(closes))
	if n <= 0 || len(closes) < n+1 {
		return out
	}
	gains := nanSeries(len(closes))
	losses := nanSeries(len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
			losses[i] = 0
		} else {
			gains[i] = 0
			losses[i] = -delta
		}
	}
	avgGain := SMA(gains, n)
	avgLoss := SMA(losses, n)
	for i := range closes {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD returns (line, signal, histogram) aligned to closes.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// ATR computes the Average True Range: SMA of true range over n, where
// true range is max(h-l, |h-c_prev|, |l-c_prev|).
func ATR(h, l, c []float64, n int) []float64 {
	tr := make([]float64, len(c))
	for i := range c {
		if i == 0 {
			tr[i] = h[i] - l[i]
			continue
		}
		tr[i] = math.Max(h[i]-l[i], math.Max(math.Abs(h[i]-c[i-1]), math.Abs(l[i]-c[i-1])))
	}
	return SMA(tr, n)
}

// BollingerBands returns (upper, middle, lower) using population sigma.
func BollingerBands(closes []float64, n int, k float64) (upper, middle, lower []float64) {
	middle = SMA(closes, n)
	upper = nanSeries(len(closes))
	lower = nanSeries(len(closes))
	for i := range closes {
		if i < n-1 || math.IsNaN(middle[i]) {
			continue
		}
		window := closes[i-n+1 : i+1]
		_, sd := stat.MeanStdDev(window, nil)
		popSD := sd * math.Sqrt(float64(n-1)/float64(n))
		upper[i] = middle[i] + k*popSD
		lower[i] = middle[i] - k*popSD
	}
	return upper, middle, lower
}

// Donchian returns (upperHigh, mid, lowerLow) over trailing n bars.
func Donchian(h, l []float64, n int) (upper, mid, lower []float64) {
	upper = nanSeries(len(h))
	lower = nanSeries(len(h))
	mid = nanSeries(len(h))
	for i := range h {
		if i < n-1 {
			continue
		}
		hi, lo := h[i-n+1], l[i-n+1]
		for j := i - n + 2; j <= i; j++ {
			hi = math.Max(hi, h[j])
			lo = math.Min(lo, l[j])
		}
		upper[i] = hi
		lower[i] = lo
		mid[i] = (hi + lo) / 2
	}
	return upper, mid, lower
}

// ZScore returns (x - mean_n) / (stddev_n + eps).
func ZScore(xs []float64, n int) []float64 {
	const eps = 1e-9
	out := nanSeries(len(xs))
	for i := range xs {
		if i < n-1 {
			continue
		}
		window := xs[i-n+1 : i+1]
		mean, sd := stat.MeanStdDev(window, nil)
		out[i] = (xs[i] - mean) / (sd + eps)
	}
	return out
}

// StochRSI normalizes RSI to [0,1] over a trailing stochN window.
func StochRSI(closes []float64, rsiN, stochN int) []float64 {
	rsi := RSI(closes, rsiN)
	out := nanSeries(len(closes))
	for i := range rsi {
		if i < stochN-1 || hasNaN(rsi, i-stochN+1, i) {
			continue
		}
		window := rsi[i-stochN+1 : i+1]
		lo, hi := window[0], window[0]
		for _, v := range window {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi == lo {
			out[i] = 0.5
			continue
		}
		out[i] = (rsi[i] - lo) / (hi - lo)
	}
	return out
}

// CCI computes the Commodity Channel Index: (TP - SMA(TP,n)) / (0.015*MAD).
func CCI(h, l, c []float64, n int) []float64 {
	tp := make([]float64, len(c))
	for i := range c {
		tp[i] = (h[i] + l[i] + c[i]) / 3
	}
	smaTP := SMA(tp, n)
	out := nanSeries(len(c))
	for i := range c {
		if i < n-1 || math.IsNaN(smaTP[i]) {
			continue
		}
		window := tp[i-n+1 : i+1]
		mad := 0.0
		for _, v := range window {
			mad += math.Abs(v - smaTP[i])
		}
		mad /= float64(n)
		if mad == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - smaTP[i]) / (0.015 * mad)
	}
	return out
}

// SuperTrend returns (level, direction) where direction is +1 (bullish) or
// -1 (bearish). The final bands use the classic locked-band recurrence:
// the upper band cannot rise while price sat below it, and symmetrically
// for the lower band; trend flips when close crosses the active band.
func SuperTrend(h, l, c []float64, n int, factor float64) (level []float64, direction []int) {
	atr := ATR(h, l, c, n)
	level = nanSeries(len(c))
	direction = make([]int, len(c))
	finalUpper := nanSeries(len(c))
	finalLower := nanSeries(len(c))

	for i := range c {
		if math.IsNaN(atr[i]) {
			direction[i] = 1
			continue
		}
		hl2 := (h[i] + l[i]) / 2
		basicUpper := hl2 + factor*atr[i]
		basicLower := hl2 - factor*atr[i]

		if i == 0 || math.IsNaN(finalUpper[i-1]) {
			finalUpper[i] = basicUpper
			finalLower[i] = basicLower
			direction[i] = 1
			level[i] = finalLower[i]
			continue
		}

		if basicUpper < finalUpper[i-1] || c[i-1] > finalUpper[i-1] {
			finalUpper[i] = basicUpper
		} else {
			finalUpper[i] = finalUpper[i-1]
		}
		if basicLower > finalLower[i-1] || c[i-1] < finalLower[i-1] {
			finalLower[i] = basicLower
		} else {
			finalLower[i] = finalLower[i-1]
		}

		prevDir := direction[i-1]
		switch {
		case prevDir == 1 && c[i] < finalLower[i]:
			direction[i] = -1
		case prevDir == -1 && c[i] > finalUpper[i]:
			direction[i] = 1
		default:
			direction[i] = prevDir
		}

		if direction[i] == 1 {
			level[i] = finalLower[i]
		} else {
			level[i] = finalUpper[i]
		}
	}
	return level, direction
}

// Aroon returns (up, down) oscillators over n bars: the percentage of n
// elapsed since the most recent n-bar high / low.
func Aroon(h, l []float64, n int) (up, down []float64) {
	up = nanSeries(len(h))
	down = nanSeries(len(h))
	for i := range h {
		if i < n {
			continue
		}
		hiIdx, loIdx := i-n, i-n
		for j := i - n; j <= i; j++ {
			if h[j] >= h[hiIdx] {
				hiIdx = j
			}
			if l[j] <= l[loIdx] {
				loIdx = j
			}
		}
		up[i] = float64(n-(i-hiIdx)) / float64(n) * 100
		down[i] = float64(n-(i-loIdx)) / float64(n) * 100
	}
	return up, down
}

// UltimateOscillator blends three Williams-style buying-pressure ratios
// over short/medium/long periods, weighted 4:2:1.
func UltimateOscillator(h, l, c []float64, p1, p2, p3 int) []float64 {
	bp := make([]float64, len(c))
	tr := make([]float64, len(c))
	for i := range c {
		prevClose := c[0]
		if i > 0 {
			prevClose = c[i-1]
		}
		trueLow := math.Min(l[i], prevClose)
		trueHigh := math.Max(h[i], prevClose)
		bp[i] = c[i] - trueLow
		tr[i] = trueHigh - trueLow
	}
	avg := func(n int, i int) float64 {
		if i < n-1 {
			return math.NaN()
		}
		sumBP, sumTR := 0.0, 0.0
		for j := i - n + 1; j <= i; j++ {
			sumBP += bp[j]
			sumTR += tr[j]
		}
		if sumTR == 0 {
			return 0
		}
		return sumBP / sumTR
	}
	out := nanSeries(len(c))
	maxP := p3
	for i := range c {
		if i < maxP-1 {
			continue
		}
		a1, a2, a3 := avg(p1, i), avg(p2, i), avg(p3, i)
		out[i] = 100 * (4*a1 + 2*a2 + a3) / 7
	}
	return out
}

// WilliamsR computes %R = (highestHigh - close) / (highestHigh - lowestLow) * -100.
func WilliamsR(h, l, c []float64, n int) []float64 {
	upper, _, lower := Donchian(h, l, n)
	out := nanSeries(len(c))
	for i := range c {
		if math.IsNaN(upper[i]) {
			continue
		}
		rng := upper[i] - lower[i]
		if rng == 0 {
			out[i] = 0
			continue
		}
		out[i] = (upper[i] - c[i]) / rng * -100
	}
	return out
}

// MFI computes the Money Flow Index, a volume-weighted RSI analogue.
func MFI(h, l, c []float64, vol []int64, n int) []float64 {
	tp := make([]float64, len(c))
	for i := range c {
		tp[i] = (h[i] + l[i] + c[i]) / 3
	}
	out := nanSeries(len(c))
	for i := range c {
		if i < n {
			continue
		}
		posFlow, negFlow := 0.0, 0.0
		for j := i - n + 1; j <= i; j++ {
			mf := tp[j] * float64(vol[j])
			if tp[j] > tp[j-1] {
				posFlow += mf
			} else if tp[j] < tp[j-1] {
				negFlow += mf
			}
		}
		if negFlow == 0 {
			out[i] = 100
			continue
		}
		ratio := posFlow / negFlow
		out[i] = 100 - 100/(1+ratio)
	}
	return out
}

// ROC computes the rate of change over n bars as a percentage.
func ROC(xs []float64, n int) []float64 {
	out := nanSeries(len(xs))
	for i := range xs {
		if i < n {
			continue
		}
		if xs[i-n] == 0 {
			continue
		}
		out[i] = (xs[i] - xs[i-n]) / xs[i-n] * 100
	}
	return out
}

// PivotPoint is the classic floor-trader pivot and its support/resistance
// bands, computed from the prior bar's high/low/close.
type PivotPoint struct {
	Pivot, R1, R2, S1, S2 float64
}

// ClassicPivot computes a pivot set from a single prior bar.
func ClassicPivot(h, l, c float64) PivotPoint {
	p := (h + l + c) / 3
	return PivotPoint{
		Pivot: p,
		R1:    2*p - l,
		S1:    2*p - h,
		R2:    p + (h - l),
		S2:    p - (h - l),
	}
}

// Keltner returns (upper, middle, lower) bands: an EMA of closes plus/minus
// a multiple of ATR.
func Keltner(h, l, c []float64, n int, multiple float64) (upper, middle, lower []float64) {
	middle = EMA(c, n)
	atr := ATR(h, l, c, n)
	upper = nanSeries(len(c))
	lower = nanSeries(len(c))
	for i := range c {
		if math.IsNaN(atr[i]) || math.IsNaN(middle[i]) {
			continue
		}
		upper[i] = middle[i] + multiple*atr[i]
		lower[i] = middle[i] - multiple*atr[i]
	}
	return upper, middle, lower
}

// LinearRegression fits a least-squares line over the trailing n closes and
// returns (slope, intercept, projectedValue) for the last point in window.
func LinearRegression(closes []float64, n int) (slope, intercept, projected float64) {
	if len(closes) < n {
		return math.NaN(), math.NaN(), math.NaN()
	}
	window := closes[len(closes)-n:]
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope = stat.LinearRegression(xs, window, nil, false)
	projected = intercept + slope*float64(n-1)
	return slope, intercept, projected
}
