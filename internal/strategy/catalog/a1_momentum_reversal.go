package catalog

import (
	"fmt"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/indicators"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
)

// momentumReversal is A1: two sub-detectors keyed by wall-clock bucket.
// Morning looks for a mid-range RSI with a confirmed breakout above MA20;
// midday/afternoon looks for RSI extremes near the session's 20-bar
// high/low, a classic reversal setup.
type momentumReversal struct {
	baseStrategy
}

func newMomentumReversal(id string, cfg config.StrategyConfig) strategy.Strategy {
	return &momentumReversal{baseStrategy{id: id, description: "momentum reversal: RSI band / extreme-near-range reversal", cfg: cfg}}
}

func (m *momentumReversal) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	closes := bars.Closes()
	if len(closes) < 21 {
		return nil, nil
	}
	floats := toFloats(closes)
	highsF := toFloats(bars.Highs())
	lowsF := toFloats(bars.Lows())
	rsi := indicators.RSI(floats, 14)
	ma20 := indicators.SMA(floats, 20)
	donchUp, _, donchLow := indicators.Donchian(highsF, lowsF, 20)

	i := lastIdx(len(closes))
	p := m.params()
	morningEnd := paramInt(p, "morning_end_hour", 11)
	volRatioMin := paramFloat(p, "volume_ratio_min", 1.1)

	last, _ := bars.Last()
	hour := last.Timestamp.Hour()
	vr := volumeRatio(bars, 20)
	if vr < volRatioMin {
		return nil, nil
	}

	var sig *types.Signal
	if hour < morningEnd {
		if rsi[i] >= 50 && rsi[i] <= 67 && ma20[i] != 0 {
			dev := (floats[i] - ma20[i]) / ma20[i]
			if dev >= 0.003 {
				s := entrySignal(symbol, types.SignalMomentumEntry, types.ActionBuy, last.Close,
					confidenceFromDistance(rsi[i], 58.5), fmt.Sprintf("morning RSI %.1f with MA20 deviation %.3f%%", rsi[i], dev*100), last.Timestamp)
				sig = &s
			}
		}
	} else {
		overbought, oversold := 70.0, 30.0
		nearHighTol, nearLowTol := 0.003, 0.003
		if rsi[i] > overbought && donchUp[i] != 0 && (donchUp[i]-floats[i])/donchUp[i] <= nearHighTol {
			s := entrySignal(symbol, types.SignalReversalEntry, types.ActionSell, last.Close,
				confidenceFromDistance(rsi[i], overbought), "afternoon RSI overbought near 20-bar high", last.Timestamp)
			sig = &s
		} else if rsi[i] < oversold && donchLow[i] != 0 && (floats[i]-donchLow[i])/donchLow[i] <= nearLowTol {
			s := entrySignal(symbol, types.SignalReversalEntry, types.ActionBuy, last.Close,
				confidenceFromDistance(rsi[i], oversold), "afternoon RSI oversold near 20-bar low", last.Timestamp)
			sig = &s
		}
	}
	if sig == nil {
		return nil, nil
	}
	return []types.Signal{*sig}, nil
}
