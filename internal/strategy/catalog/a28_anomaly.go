package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/indicators"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
)

// anomalyModel is a persisted feature-space summary standing in for a
// fitted isolation forest: per-feature mean/stddev from the training
// window, used to score new bars by distance in standardized feature
// space. A full isolation-forest serialization format has no home in
// this pack, so the persisted artifact is these summary statistics
// instead, re-fit on a schedule.
type anomalyModel struct {
	TrainedAt time.Time `json:"trained_at"`
	Mean      []float64 `json:"mean"`
	StdDev    []float64 `json:"std_dev"`
}

func anomalyModelPath(symbol, strategyVersion string) string {
	return filepath.Join("data", "models", fmt.Sprintf("%s_%s.json", symbol, strategyVersion))
}

func loadAnomalyModel(symbol, strategyVersion string) (*anomalyModel, error) {
	b, err := os.ReadFile(anomalyModelPath(symbol, strategyVersion))
	if err != nil {
		return nil, err
	}
	var m anomalyModel
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func saveAnomalyModel(symbol, strategyVersion string, m *anomalyModel) error {
	path := anomalyModelPath(symbol, strategyVersion)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// anomalyFeatures extracts the per-bar feature vector the model trains and
// scores on: return, volume ratio, RSI deviation from 50, and ATR-normalized
// range.
func anomalyFeatures(bars types.BarSeries) [][]float64 {
	closes := toFloats(bars.Closes())
	highs := toFloats(bars.Highs())
	lows := toFloats(bars.Lows())
	n := len(closes)
	if n < 15 {
		return nil
	}
	rsi := indicators.RSI(closes, 14)
	atr := indicators.ATR(highs, lows, closes, 14)
	out := make([][]float64, 0, n-1)
	for i := 1; i < n; i++ {
		ret := 0.0
		if closes[i-1] != 0 {
			ret = (closes[i] - closes[i-1]) / closes[i-1]
		}
		volR := 1.0
		if i >= 20 {
			sumV := 0.0
			for j := i - 20; j < i; j++ {
				sumV += float64(bars[j].Volume)
			}
			if sumV > 0 {
				volR = float64(bars[i].Volume) / (sumV / 20)
			}
		}
		rsiDev := rsi[i] - 50
		rng := 0.0
		if atr[i] != 0 {
			rng = (highs[i] - lows[i]) / atr[i]
		}
		out = append(out, []float64{ret, volR, rsiDev, rng})
	}
	return out
}

func fitAnomalyModel(features [][]float64) *anomalyModel {
	if len(features) == 0 {
		return nil
	}
	dims := len(features[0])
	mean := make([]float64, dims)
	for _, f := range features {
		for d := 0; d < dims; d++ {
			mean[d] += f[d]
		}
	}
	for d := range mean {
		mean[d] /= float64(len(features))
	}
	stddev := make([]float64, dims)
	for _, f := range features {
		for d := 0; d < dims; d++ {
			diff := f[d] - mean[d]
			stddev[d] += diff * diff
		}
	}
	for d := range stddev {
		stddev[d] = math.Sqrt(stddev[d] / float64(len(features)))
		if stddev[d] == 0 {
			stddev[d] = 1
		}
	}
	return &anomalyModel{Mean: mean, StdDev: stddev}
}

// anomalyScore is a standardized Euclidean distance from the trained
// centroid, the same notion of isolation an isolation forest approximates
// via path length: points far from the bulk of training data score high.
func anomalyScore(m *anomalyModel, feature []float64) float64 {
	sum := 0.0
	for d, v := range feature {
		if d >= len(m.Mean) {
			break
		}
		z := (v - m.Mean[d]) / m.StdDev[d]
		sum += z * z
	}
	return math.Sqrt(sum)
}

// anomalyDetection is A28: a standing-in-for-isolation-forest anomaly
// detector. Its model is fit per symbol from a trailing feature window and
// persisted; retrain fires when the persisted model is missing or older
// than the configured threshold. A per-symbol cooldown on retrains
// themselves (not signals) avoids refitting every cycle once a retrain
// has just happened.
type anomalyDetection struct {
	baseStrategy
	lastRetrain map[string]time.Time
}

func newAnomalyDetection(id string, cfg config.StrategyConfig) strategy.Strategy {
	return &anomalyDetection{
		baseStrategy: baseStrategy{id: id, description: "feature-space anomaly detector, isolation-forest-style scoring", cfg: cfg},
		lastRetrain:  make(map[string]time.Time),
	}
}

func (a *anomalyDetection) retrainThreshold() time.Duration {
	days := paramFloat(a.params(), "retrain_days", 30)
	return time.Duration(days * 24 * float64(time.Hour))
}

func (a *anomalyDetection) retrainCooldown() time.Duration {
	days := paramFloat(a.params(), "retrain_cooldown_days", 7)
	return time.Duration(days * 24 * float64(time.Hour))
}

func (a *anomalyDetection) GenerateSignals(symbol string, bars types.BarSeries, _ types.IndicatorSet) ([]types.Signal, error) {
	features := anomalyFeatures(bars)
	if len(features) < 30 {
		return nil, nil
	}
	now := time.Now()
	model, err := loadAnomalyModel(symbol, a.id)
	needsTrain := err != nil || now.Sub(model.TrainedAt) > a.retrainThreshold()
	if needsTrain {
		if last, ok := a.lastRetrain[symbol]; ok && now.Sub(last) < a.retrainCooldown() {
			if model == nil {
				return nil, nil
			}
		} else {
			trainWindow := features
			if len(trainWindow) > 60 {
				trainWindow = trainWindow[len(trainWindow)-60:]
			}
			fitted := fitAnomalyModel(trainWindow)
			fitted.TrainedAt = now
			if err := saveAnomalyModel(symbol, a.id, fitted); err == nil {
				model = fitted
				a.lastRetrain[symbol] = now
			} else if model == nil {
				return nil, nil
			}
		}
	}
	if model == nil {
		return nil, nil
	}

	last := features[len(features)-1]
	score := anomalyScore(model, last)
	threshold := paramFloat(a.params(), "anomaly_threshold", 3.0)
	if score < threshold {
		return nil, nil
	}
	lastBar, _ := bars.Last()
	// A positive-return anomaly is treated as a breakout to follow; a
	// negative-return anomaly is treated as a breakdown to sell into.
	action := types.ActionBuy
	if last[0] < 0 {
		action = types.ActionSell
	}
	s := entrySignal(symbol, types.SignalReversalEntry, action, lastBar.Close,
		confidenceFromDistance(score, threshold), fmt.Sprintf("anomaly score %.2f exceeds threshold %.2f", score, threshold), lastBar.Timestamp)
	return []types.Signal{s}, nil
}
