package catalog

import (
	"fmt"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/indicators"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// pullback is A4: trades a retracement into a Fibonacci band within an
// established trend, confirmed by volume, with a trailing-watermark exit.
type pullback struct {
	baseStrategy
}

func newPullback(id string, cfg config.StrategyConfig) strategy.Strategy {
	return &pullback{baseStrategy{id: id, description: "Fibonacci pullback within an established MA20/MA50 trend", cfg: cfg}}
}

func (pb *pullback) lookback() int { return paramInt(pb.params(), "pullback_lookback", 15) }

// swingRange returns the high/low over the trailing lookback window ending
// at the second-to-last bar (the swing that formed before the pullback).
func swingRange(highs, lows []float64, endExclusive, lookback int) (hi, lo float64) {
	start := endExclusive - lookback
	if start < 0 {
		start = 0
	}
	hi, lo = highs[start], lows[start]
	for j := start; j < endExclusive; j++ {
		if highs[j] > hi {
			hi = highs[j]
		}
		if lows[j] < lo {
			lo = lows[j]
		}
	}
	return hi, lo
}

func (pb *pullback) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	closes := bars.Closes()
	lb := pb.lookback()
	if len(closes) < 50+lb {
		return nil, nil
	}
	floats := toFloats(closes)
	highsF := toFloats(bars.Highs())
	lowsF := toFloats(bars.Lows())
	ma20 := indicators.SMA(floats, 20)
	ma50 := indicators.SMA(floats, 50)
	i := lastIdx(len(closes))
	last, _ := bars.Last()

	strengthMin := paramFloat(pb.params(), "trend_strength_min", 0.0065)
	volMin := paramFloat(pb.params(), "volume_ratio_min", 1.0)
	vr := volumeRatio(bars, 20)
	if vr < volMin {
		return nil, nil
	}

	uptrend := floats[i] > ma20[i] && ma20[i] > ma50[i] && ma50[i] != 0 && (ma20[i]-ma50[i])/ma50[i] >= strengthMin
	downtrend := floats[i] < ma20[i] && ma20[i] < ma50[i] && ma50[i] != 0 && (ma50[i]-ma20[i])/ma50[i] >= strengthMin

	if uptrend {
		hi, lo := swingRange(highsF, lowsF, i, lb)
		rng := hi - lo
		if rng <= 0 {
			return nil, nil
		}
		bandLow, bandHigh := hi-0.618*rng, hi-0.382*rng
		if floats[i] >= bandLow && floats[i] <= bandHigh {
			s := entrySignal(symbol, types.SignalReversalEntry, types.ActionBuy, last.Close,
				confidenceFromDistance(floats[i], (bandLow+bandHigh)/2), fmt.Sprintf("uptrend pullback into fib band [%.2f,%.2f]", bandLow, bandHigh), last.Timestamp)
			return []types.Signal{s}, nil
		}
	} else if downtrend {
		hi, lo := swingRange(highsF, lowsF, i, lb)
		rng := hi - lo
		if rng <= 0 {
			return nil, nil
		}
		bandLow, bandHigh := lo+0.382*rng, lo+0.618*rng
		if floats[i] >= bandLow && floats[i] <= bandHigh {
			s := entrySignal(symbol, types.SignalReversalEntry, types.ActionSell, last.Close,
				confidenceFromDistance(floats[i], (bandLow+bandHigh)/2), fmt.Sprintf("downtrend pullback into fib band [%.2f,%.2f]", bandLow, bandHigh), last.Timestamp)
			return []types.Signal{s}, nil
		}
	}
	return nil, nil
}

// CheckExitConditions implements A4's exit set: MA cross against the
// position, a break of the swing support/resistance, or a retreat from
// the trailing watermark. It has no volume-based exit.
func (pb *pullback) CheckExitConditions(symbol string, pos types.Position, price decimal.Decimal, now time.Time, bars types.BarSeries) (*types.Signal, bool) {
	if pos.IsFlat() {
		return nil, false
	}
	closes := bars.Closes()
	lb := pb.lookback()
	if len(closes) < 50+lb {
		return nil, false
	}
	floats := toFloats(closes)
	lowsF := toFloats(bars.Lows())
	highsF := toFloats(bars.Highs())
	ma20 := indicators.SMA(floats, 20)
	ma50 := indicators.SMA(floats, 50)
	i := lastIdx(len(closes))
	size := pos.Size
	if size < 0 {
		size = -size
	}
	action := types.ActionSell
	if pos.IsShort() {
		action = types.ActionBuy
	}
	hi, lo := swingRange(highsF, lowsF, i, lb)

	trailPct := paramFloat(pb.params(), "trailing_stop_pct", 0.02)
	var trailBreach bool
	if pos.IsLong() && !pos.HighestPrice.IsZero() {
		trailBreach = price.LessThan(pos.HighestPrice.Mul(decimal.NewFromFloat(1 - trailPct)))
	} else if pos.IsShort() && !pos.LowestPrice.IsZero() {
		trailBreach = price.GreaterThan(pos.LowestPrice.Mul(decimal.NewFromFloat(1 + trailPct)))
	}

	switch {
	case pos.IsLong() && ma20[i] < ma50[i]:
		sig := entrySignal(symbol, types.SignalMADeathCross, action, price, 1.0, "MA20/MA50 cross against long", now)
		sig.PositionSize = size
		return &sig, true
	case pos.IsShort() && ma20[i] > ma50[i]:
		sig := entrySignal(symbol, types.SignalMAGoldenCross, action, price, 1.0, "MA20/MA50 cross against short", now)
		sig.PositionSize = size
		return &sig, true
	case pos.IsLong() && floats[i] < lo:
		sig := entrySignal(symbol, types.SignalStopLoss, action, price, 1.0, "swing support broken", now)
		sig.PositionSize = size
		return &sig, true
	case pos.IsShort() && floats[i] > hi:
		sig := entrySignal(symbol, types.SignalStopLoss, action, price, 1.0, "swing resistance broken", now)
		sig.PositionSize = size
		return &sig, true
	case trailBreach:
		sig := entrySignal(symbol, types.SignalTrailingStop, action, price, 1.0, "trailing watermark breached", now)
		sig.PositionSize = size
		return &sig, true
	}
	return nil, false
}
