// Package catalog implements the concrete strategy family of spec §4.5:
// A1-A7 fully bespoke, A8-A35 as a generic single-indicator state machine
// parameterized by config. Every strategy except A28 (which remembers when
// it last retrained each symbol's model) is a stateless value; all
// per-symbol trading state (positions, cooldowns, executed-set) lives in
// the shared strategy.State the cycle controller constructs once per
// strategy_id.
package catalog

import (
	"math"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// paramFloat reads a float64 strategy param, falling back to def if absent
// or of the wrong shape. Config blocks arrive as untyped
// map[string]interface{} off viper, so numeric values may decode as
// float64, int or int64 depending on the source format.
func paramFloat(p map[string]interface{}, key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	}
	return def
}

func paramInt(p map[string]interface{}, key string, def int) int {
	return int(paramFloat(p, key, float64(def)))
}

func paramString(p map[string]interface{}, key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

func paramBool(p map[string]interface{}, key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// volumeRatio compares the last bar's volume to the trailing n-bar average,
// the volume confirmation the A1, A3 and A4 entry rules gate on (A2 and A3
// also use it in their exit rules).
func volumeRatio(bars types.BarSeries, n int) float64 {
	if len(bars) < n+1 {
		return 1.0
	}
	last := bars[len(bars)-1]
	sum := int64(0)
	for _, b := range bars[len(bars)-1-n : len(bars)-1] {
		sum += b.Volume
	}
	avg := float64(sum) / float64(n)
	if avg == 0 {
		return 1.0
	}
	return float64(last.Volume) / avg
}

// confidenceFromDistance maps how far a value sits beyond threshold into
// spec's "deterministic confidence function of the indicator distance from
// threshold" contract: 0.5 right at the threshold, saturating to 1.0 once
// the value is at least 2x threshold away from zero.
func confidenceFromDistance(value, threshold float64) float64 {
	if threshold == 0 {
		return 0.5
	}
	dist := math.Abs(value-threshold) / math.Abs(threshold)
	c := 0.5 + dist*0.5
	if c > 1.0 {
		c = 1.0
	}
	if c < 0.5 {
		c = 0.5
	}
	return c
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// entrySignal builds a BUY/SELL entry at the last bar's close. position_size
// is a placeholder of 1; strategy.ExecuteSignal recomputes the real size
// via the sizing formula for any flat-to-entry order and overwrites it.
func entrySignal(symbol string, st types.SignalType, action types.Action, price decimal.Decimal, confidence float64, reason string, generatedAt time.Time) types.Signal {
	sig := types.Signal{
		Symbol:         symbol,
		SignalType:     st,
		Action:         action,
		ReferencePrice: price,
		PositionSize:   1,
		Confidence:     clampConfidence(confidence),
		Reason:         reason,
		GeneratedAt:    generatedAt,
	}
	sig.SignalHash = strategy.SignalHash(symbol, st, action, reason, price)
	return sig
}

// lastIdx is the index of the most recently closed bar.
func lastIdx(n int) int { return n - 1 }

// priceFloat converts a decimal close to float64 for indicator math.
func priceFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// toFloats converts a decimal series to float64, the shape every indicator
// function in internal/indicators takes.
func toFloats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = priceFloat(d)
	}
	return out
}

// baseStrategy is embedded by every concrete strategy; it supplies ID()
// and Description() so each catalog entry only needs to implement
// GenerateSignals (and, where spec calls for bespoke exits, ExitChecker).
type baseStrategy struct {
	id          string
	description string
	cfg         config.StrategyConfig
}

func (b baseStrategy) ID() string          { return b.id }
func (b baseStrategy) Description() string { return b.description }

func (b baseStrategy) params() map[string]interface{} {
	if b.cfg.Params == nil {
		return map[string]interface{}{}
	}
	return b.cfg.Params
}
