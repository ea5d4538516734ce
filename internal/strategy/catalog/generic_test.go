package catalog

import (
	"testing"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
)

func TestRegisterAllWiresEveryVariant(t *testing.T) {
	registry := strategy.NewRegistry()
	RegisterAll(registry)

	want := []string{
		"a1_momentum_reversal", "a2_zscore_mean_reversion", "a3_dual_ma_volume",
		"a4_pullback", "a5_multifactor", "a6_news_sentiment", "a7_cta_trend",
		"a8_rsi_reversal", "a20_donchian_breakout", "a28_anomaly_detection",
		"a35_macd_histogram",
	}
	for _, strategyType := range want {
		if _, ok := registry.Build(strategyType, "x", config.StrategyConfig{}); !ok {
			t.Errorf("expected strategy_type %q to be registered", strategyType)
		}
	}
	if got := len(registry.Types()); got != 35 {
		t.Errorf("expected all 35 strategy types registered, got %d", got)
	}
}

func TestGenericRSIReversalEntersOnOversoldCross(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 - float64(i)*0.5 // steady decline drives RSI down
	}
	closes[len(closes)-1] = 100 // last bar snaps back up sharply
	bars := makeBars(closes)

	strat := newGenericVariant(types.SignalReversalEntry, rsiDetect(14, 30, 70), "test")("a8", config.StrategyConfig{})
	sigs, err := strat.GenerateSignals("AAPL", bars, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) == 0 {
		t.Fatalf("expected an RSI reversal entry after a sharp bounce off a decline")
	}
}

func TestGenericMACrossGoldenCross(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	// lift only the last bar so the fast MA overtakes the slow MA exactly
	// there; the detector only reports a cross on the most recent bar.
	closes[len(closes)-1] = 130
	bars := makeBars(closes)

	strat := newGenericVariant(types.SignalMAGoldenCross, maCrossDetect(5, 20, false), "test")("a12", config.StrategyConfig{})
	sigs, err := strat.GenerateSignals("AAPL", bars, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, s := range sigs {
		if s.Action == types.ActionBuy {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a golden-cross BUY once the fast MA overtakes the slow MA")
	}
}

func TestCrossUpAndCrossDown(t *testing.T) {
	if !crossUp(1, 3, 2) {
		t.Errorf("expected crossUp(1,3,2) to be true")
	}
	if crossUp(3, 4, 2) {
		t.Errorf("did not expect crossUp when already above the level")
	}
	if !crossDown(3, 1, 2) {
		t.Errorf("expected crossDown(3,1,2) to be true")
	}
}
