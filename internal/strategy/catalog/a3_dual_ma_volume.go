package catalog

import (
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/indicators"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// dualMAVolume is A3: EMA(9)/EMA(21) golden cross confirmed by a volume
// surge, with a multi-tier sell (death-cross, close-below-slow-MA,
// volume-expansion-with-drop, RSI-extreme).
type dualMAVolume struct {
	baseStrategy
}

func newDualMAVolume(id string, cfg config.StrategyConfig) strategy.Strategy {
	return &dualMAVolume{baseStrategy{id: id, description: "EMA(9)/EMA(21) cross with volume confirmation", cfg: cfg}}
}

func (d *dualMAVolume) emas(floats []float64) (fast, slow []float64) {
	p := d.params()
	return indicators.EMA(floats, paramInt(p, "fast_period", 9)), indicators.EMA(floats, paramInt(p, "slow_period", 21))
}

func (d *dualMAVolume) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	closes := bars.Closes()
	if len(closes) < 22 {
		return nil, nil
	}
	floats := toFloats(closes)
	fast, slow := d.emas(floats)
	i := lastIdx(len(closes))
	if i == 0 || fast[i-1] == 0 || slow[i-1] == 0 {
		return nil, nil
	}
	surgeRatio := paramFloat(d.params(), "volume_surge_ratio", 1.3)
	vr := volumeRatio(bars, 20)
	last, _ := bars.Last()

	goldenCross := fast[i-1] <= slow[i-1] && fast[i] > slow[i]
	if goldenCross && vr >= surgeRatio {
		s := entrySignal(symbol, types.SignalMAGoldenCross, types.ActionBuy, last.Close,
			confidenceFromDistance(vr, surgeRatio), "EMA9/21 golden cross with volume surge", last.Timestamp)
		return []types.Signal{s}, nil
	}
	return nil, nil
}

// CheckExitConditions implements A3's multi-tier sell: death-cross, close
// below the slow MA, volume-expansion-with-drop, or an RSI extreme. The
// first rule that fires wins, in that order.
func (d *dualMAVolume) CheckExitConditions(symbol string, pos types.Position, price decimal.Decimal, now time.Time, bars types.BarSeries) (*types.Signal, bool) {
	if pos.IsFlat() || !pos.IsLong() {
		return nil, false
	}
	closes := bars.Closes()
	if len(closes) < 22 {
		return nil, false
	}
	floats := toFloats(closes)
	fast, slow := d.emas(floats)
	rsi := indicators.RSI(floats, 14)
	i := lastIdx(len(closes))
	size := pos.Size

	deathCross := i > 0 && fast[i-1] >= slow[i-1] && fast[i] < slow[i]
	belowSlowMA := slow[i] != 0 && price.LessThan(decimal.NewFromFloat(slow[i]))
	volDrop := volumeRatio(bars, 20) >= paramFloat(d.params(), "volume_drop_exit_ratio", 1.5) && i > 0 && floats[i] < floats[i-1]
	rsiExtreme := rsi[i] >= 80

	switch {
	case deathCross:
		sig := entrySignal(symbol, types.SignalMADeathCross, types.ActionSell, price, 1.0, "EMA9/21 death cross", now)
		sig.PositionSize = size
		return &sig, true
	case belowSlowMA:
		sig := entrySignal(symbol, types.SignalMADeathCross, types.ActionSell, price, 1.0, "close below slow MA", now)
		sig.PositionSize = size
		return &sig, true
	case volDrop:
		sig := entrySignal(symbol, types.SignalPartialExit, types.ActionSell, price, 1.0, "volume expansion with price drop", now)
		sig.PositionSize = size
		return &sig, true
	case rsiExtreme:
		sig := entrySignal(symbol, types.SignalPartialExit, types.ActionSell, price, 1.0, "RSI extreme", now)
		sig.PositionSize = size
		return &sig, true
	}
	return nil, false
}
