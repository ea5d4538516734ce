package catalog

import (
	"testing"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

func makeBars(closes []float64) types.BarSeries {
	out := make(types.BarSeries, len(closes))
	base := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		out[i] = types.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      d,
			High:      d.Mul(decimal.NewFromFloat(1.001)),
			Low:       d.Mul(decimal.NewFromFloat(0.999)),
			Close:     d,
			Volume:    1_000_000,
		}
	}
	return out
}

func TestZScoreEntersOnOversoldDeviation(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	// a dip ten bars back keeps the 10-bar short trend from reading as
	// down, so the sharp drop on the last bar, which drives the z-score and
	// RSI down together, is allowed to enter.
	closes[len(closes)-11] = 70
	closes[len(closes)-1] = 80
	bars := makeBars(closes)

	strat := newZScore("a2", config.StrategyConfig{})
	sigs, err := strat.GenerateSignals("AAPL", bars, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected exactly one entry signal, got %d", len(sigs))
	}
	if sigs[0].SignalType != types.SignalZScoreOversold {
		t.Errorf("expected SignalZScoreOversold, got %s", sigs[0].SignalType)
	}
	if sigs[0].Action != types.ActionBuy {
		t.Errorf("expected a BUY on oversold deviation, got %s", sigs[0].Action)
	}
}

func TestZScoreExitsOnReversion(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	bars := makeBars(closes)

	strat := newZScore("a2", config.StrategyConfig{})
	pos := types.Position{Symbol: "AAPL", Size: 10, AvgCost: decimal.NewFromInt(90), EntryTime: time.Now()}
	sig, ok := strat.(interface {
		CheckExitConditions(string, types.Position, decimal.Decimal, time.Time, types.BarSeries) (*types.Signal, bool)
	}).CheckExitConditions("AAPL", pos, decimal.NewFromInt(100), time.Now(), bars)
	if !ok || sig == nil {
		t.Fatalf("expected a z-score reversion exit once |z| < exit threshold")
	}
	if sig.SignalType != types.SignalZScoreExit {
		t.Errorf("expected SignalZScoreExit, got %s", sig.SignalType)
	}
}

func TestZScoreNoSignalBelowMinimumBars(t *testing.T) {
	bars := makeBars([]float64{100, 101, 102})
	strat := newZScore("a2", config.StrategyConfig{})
	sigs, err := strat.GenerateSignals("AAPL", bars, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) != 0 {
		t.Errorf("expected no signals with insufficient bar history, got %d", len(sigs))
	}
}
