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

// ctaTrend is A7: a Donchian channel breakout traded only in the direction
// of the MA50/MA200 alignment, with exit on a 10-bar Donchian reversal,
// loss of either trend MA, or an MA50/MA200 cross.
type ctaTrend struct {
	baseStrategy
}

func newCTATrend(id string, cfg config.StrategyConfig) strategy.Strategy {
	return &ctaTrend{baseStrategy{id: id, description: "Donchian(20/60) breakout filtered by MA50/MA200 trend alignment", cfg: cfg}}
}

func (c *ctaTrend) periods() (entry, exit int) {
	p := c.params()
	return paramInt(p, "donchian_entry", 20), paramInt(p, "donchian_exit", 10)
}

func (c *ctaTrend) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	closes := bars.Closes()
	if len(closes) < 201 {
		return nil, nil
	}
	floats := toFloats(closes)
	highsF := toFloats(bars.Highs())
	lowsF := toFloats(bars.Lows())
	entryN, _ := c.periods()
	ma50 := indicators.SMA(floats, 50)
	ma200 := indicators.SMA(floats, 200)
	upper, _, lower := indicators.Donchian(highsF, lowsF, entryN)
	i := lastIdx(len(floats))
	last, _ := bars.Last()

	trendUp := ma50[i] > ma200[i]
	trendDown := ma50[i] < ma200[i]

	if trendUp && floats[i] >= upper[i] {
		s := entrySignal(symbol, types.SignalMomentumEntry, types.ActionBuy, last.Close,
			confidenceFromDistance(floats[i], upper[i]), fmt.Sprintf("Donchian(%d) breakout with MA50>MA200", entryN), last.Timestamp)
		return []types.Signal{s}, nil
	}
	if trendDown && floats[i] <= lower[i] {
		s := entrySignal(symbol, types.SignalMomentumEntry, types.ActionSell, last.Close,
			confidenceFromDistance(floats[i], lower[i]), fmt.Sprintf("Donchian(%d) breakdown with MA50<MA200", entryN), last.Timestamp)
		return []types.Signal{s}, nil
	}
	return nil, nil
}

func (c *ctaTrend) CheckExitConditions(symbol string, pos types.Position, price decimal.Decimal, now time.Time, bars types.BarSeries) (*types.Signal, bool) {
	if pos.IsFlat() {
		return nil, false
	}
	closes := bars.Closes()
	if len(closes) < 201 {
		return nil, false
	}
	floats := toFloats(closes)
	highsF := toFloats(bars.Highs())
	lowsF := toFloats(bars.Lows())
	_, exitN := c.periods()
	ma50 := indicators.SMA(floats, 50)
	ma200 := indicators.SMA(floats, 200)
	upper, _, lower := indicators.Donchian(highsF, lowsF, exitN)
	i := lastIdx(len(floats))
	size := pos.Size
	if size < 0 {
		size = -size
	}
	action := types.ActionSell
	if pos.IsShort() {
		action = types.ActionBuy
	}

	crossedAgainst := (pos.IsLong() && ma50[i] < ma200[i]) || (pos.IsShort() && ma50[i] > ma200[i])

	switch {
	case pos.IsLong() && floats[i] <= lower[i]:
		sig := entrySignal(symbol, types.SignalTrailingStop, action, price, 1.0, fmt.Sprintf("Donchian(%d) reversal", exitN), now)
		sig.PositionSize = size
		return &sig, true
	case pos.IsShort() && floats[i] >= upper[i]:
		sig := entrySignal(symbol, types.SignalTrailingStop, action, price, 1.0, fmt.Sprintf("Donchian(%d) reversal", exitN), now)
		sig.PositionSize = size
		return &sig, true
	case pos.IsLong() && floats[i] < ma50[i]:
		sig := entrySignal(symbol, types.SignalStopLoss, action, price, 1.0, "lost MA50 support", now)
		sig.PositionSize = size
		return &sig, true
	case pos.IsShort() && floats[i] > ma50[i]:
		sig := entrySignal(symbol, types.SignalStopLoss, action, price, 1.0, "lost MA50 resistance", now)
		sig.PositionSize = size
		return &sig, true
	case crossedAgainst:
		sig := entrySignal(symbol, types.SignalMADeathCross, action, price, 1.0, "MA50/MA200 cross against position", now)
		sig.PositionSize = size
		return &sig, true
	}
	return nil, false
}
