package catalog

import (
	"fmt"
	"math"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/indicators"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// multifactor is A5: a weighted composite of four deterministic bar-derived
// factors (liquidity, fundamental-proxy, sentiment-proxy, momentum), each
// squashed to [0,1]. Weights are read from config once at construction and
// normalized to sum to 1.0, per spec.
type multifactor struct {
	baseStrategy
	wLiquidity, wFundamental, wSentiment, wMomentum float64
}

func newMultifactor(id string, cfg config.StrategyConfig) strategy.Strategy {
	p := cfg.Params
	wl := paramFloat(p, "weight_liquidity", 0.25)
	wf := paramFloat(p, "weight_fundamental", 0.25)
	ws := paramFloat(p, "weight_sentiment", 0.25)
	wm := paramFloat(p, "weight_momentum", 0.25)
	total := wl + wf + ws + wm
	if total <= 0 {
		wl, wf, ws, wm, total = 0.25, 0.25, 0.25, 0.25, 1.0
	}
	return &multifactor{
		baseStrategy: baseStrategy{id: id, description: "multifactor composite score over liquidity/fundamental/sentiment/momentum proxies", cfg: cfg},
		wLiquidity:   wl / total, wFundamental: wf / total, wSentiment: ws / total, wMomentum: wm / total,
	}
}

// squash maps an unbounded value into [0,1] via a logistic curve centered
// on 0, so every factor contributes on the same scale regardless of the
// underlying indicator's native range.
func squash(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func (m *multifactor) factors(floats, volF []float64, vol []int64) (liquidity, fundamental, sentiment, momentum float64) {
	i := lastIdx(len(floats))
	vr := 1.0
	if i >= 20 {
		sum := 0.0
		for _, v := range vol[i-20 : i] {
			sum += float64(v)
		}
		avg := sum / 20
		if avg > 0 {
			vr = float64(vol[i]) / avg
		}
	}
	liquidity = squash((vr - 1.0) * 2)

	slope, _, _ := indicators.LinearRegression(floats, min(60, len(floats)))
	fundamental = squash(slope * 50)

	ma20 := indicators.SMA(floats, 20)
	sentiment = 0.5
	if ma20[i] != 0 {
		sentiment = squash((floats[i]/ma20[i] - 1) * 20)
	}

	roc := indicators.ROC(floats, 10)
	momentum = squash(roc[i] / 5)
	return
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (m *multifactor) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	closes := bars.Closes()
	if len(closes) < 30 {
		return nil, nil
	}
	floats := toFloats(closes)
	vol := bars.Volumes()
	liquidity, fundamental, sentiment, momentum := m.factors(floats, nil, vol)
	score := m.wLiquidity*liquidity + m.wFundamental*fundamental + m.wSentiment*sentiment + m.wMomentum*momentum

	buyThresh := paramFloat(m.params(), "buy_threshold", 0.65)
	last, _ := bars.Last()
	if score >= buyThresh && liquidity >= 0.65 && momentum >= 0.65 {
		s := entrySignal(symbol, types.SignalMomentumEntry, types.ActionBuy, last.Close,
			confidenceFromDistance(score, buyThresh), fmt.Sprintf("composite score %.2f (liq=%.2f mom=%.2f)", score, liquidity, momentum), last.Timestamp)
		return []types.Signal{s}, nil
	}
	return nil, nil
}

func (m *multifactor) exitThreshold() float64 { return paramFloat(m.params(), "exit_threshold", 0.35) }

// CheckExitConditions exits a long position once the composite score
// drops to or below exit_threshold.
func (m *multifactor) CheckExitConditions(symbol string, pos types.Position, price decimal.Decimal, now time.Time, bars types.BarSeries) (*types.Signal, bool) {
	if pos.IsFlat() || !pos.IsLong() {
		return nil, false
	}
	closes := bars.Closes()
	if len(closes) < 30 {
		return nil, false
	}
	floats := toFloats(closes)
	vol := bars.Volumes()
	liquidity, fundamental, sentiment, momentum := m.factors(floats, nil, vol)
	score := m.wLiquidity*liquidity + m.wFundamental*fundamental + m.wSentiment*sentiment + m.wMomentum*momentum
	if score > m.exitThreshold() {
		return nil, false
	}
	sig := entrySignal(symbol, types.SignalPartialExit, types.ActionSell, price, 1.0,
		fmt.Sprintf("composite score fell to %.2f", score), now)
	sig.PositionSize = pos.Size
	return &sig, true
}
