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

// zscoreMeanReversion is A2: enters against a statistically extreme
// deviation from the rolling mean, corroborated by RSI and short-trend
// direction, and exits once the deviation reverts or a trend MA crosses
// against the position.
type zscoreMeanReversion struct {
	baseStrategy
}

func newZScore(id string, cfg config.StrategyConfig) strategy.Strategy {
	return &zscoreMeanReversion{baseStrategy{id: id, description: "z-score mean reversion entry/exit", cfg: cfg}}
}

func (z *zscoreMeanReversion) entryExit() (entry, exit float64) {
	p := z.params()
	return paramFloat(p, "entry", 2.0), paramFloat(p, "exit", 0.5)
}

func (z *zscoreMeanReversion) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	closes := bars.Closes()
	if len(closes) < 25 {
		return nil, nil
	}
	floats := toFloats(closes)
	n := paramInt(z.params(), "window", 20)
	zs := indicators.ZScore(floats, n)
	rsi := indicators.RSI(floats, 14)
	maShort := indicators.SMA(floats, 10)

	i := lastIdx(len(closes))
	entry, _ := z.entryExit()
	last, _ := bars.Last()

	trendUp := i > 0 && maShort[i] >= maShort[i-1]
	trendDown := i > 0 && maShort[i] <= maShort[i-1]

	if zs[i] <= -entry && rsi[i] < 40 && !trendDown {
		s := entrySignal(symbol, types.SignalZScoreOversold, types.ActionBuy, last.Close,
			confidenceFromDistance(zs[i], -entry), fmt.Sprintf("z=%.2f oversold with corroborating RSI %.1f", zs[i], rsi[i]), last.Timestamp)
		return []types.Signal{s}, nil
	}
	if zs[i] >= entry && rsi[i] > 60 && !trendUp {
		s := entrySignal(symbol, types.SignalZScoreOverbought, types.ActionSell, last.Close,
			confidenceFromDistance(zs[i], entry), fmt.Sprintf("z=%.2f overbought with corroborating RSI %.1f", zs[i], rsi[i]), last.Timestamp)
		return []types.Signal{s}, nil
	}
	return nil, nil
}

// CheckExitConditions implements the bespoke A2 exit set: revert past the
// exit threshold, a short/long MA cross, or an adverse move on expanded
// volume.
func (z *zscoreMeanReversion) CheckExitConditions(symbol string, pos types.Position, price decimal.Decimal, now time.Time, bars types.BarSeries) (*types.Signal, bool) {
	closes := bars.Closes()
	if len(closes) < 25 || pos.IsFlat() {
		return nil, false
	}
	floats := toFloats(closes)
	n := paramInt(z.params(), "window", 20)
	zs := indicators.ZScore(floats, n)
	maShort := indicators.SMA(floats, 10)
	maLong := indicators.SMA(floats, 30)
	i := lastIdx(len(closes))
	_, exit := z.entryExit()

	size := pos.Size
	if size < 0 {
		size = -size
	}
	action := types.ActionSell
	if pos.IsShort() {
		action = types.ActionBuy
	}

	crossed := i > 0 && maLong[i-1] != 0 && ((maShort[i-1] >= maLong[i-1]) != (maShort[i] >= maLong[i]))

	adverse := false
	if pos.IsLong() && price.LessThan(pos.AvgCost) {
		adverse = true
	} else if pos.IsShort() && price.GreaterThan(pos.AvgCost) {
		adverse = true
	}
	volSurge := volumeRatio(bars, 20) >= paramFloat(z.params(), "volume_exit_ratio", 1.5)

	switch {
	case zs[i] > -exit && zs[i] < exit:
		sig := entrySignal(symbol, types.SignalZScoreExit, action, price, 1.0, fmt.Sprintf("z reverted to %.2f", zs[i]), now)
		sig.PositionSize = size
		return &sig, true
	case crossed:
		sig := entrySignal(symbol, types.SignalZScoreExit, action, price, 1.0, "short/long MA cross", now)
		sig.PositionSize = size
		return &sig, true
	case adverse && volSurge:
		sig := entrySignal(symbol, types.SignalZScoreExit, action, price, 1.0, "adverse move on volume surge", now)
		sig.PositionSize = size
		return &sig, true
	}
	return nil, false
}
