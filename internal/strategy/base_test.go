package strategy_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestSignalHashBucketsWithinFiveCents(t *testing.T) {
	a := strategy.SignalHash("AAPL", types.SignalMomentumEntry, types.ActionBuy, "r", decimal.NewFromFloat(100.01))
	b := strategy.SignalHash("AAPL", types.SignalMomentumEntry, types.ActionBuy, "r", decimal.NewFromFloat(100.02))
	if a != b {
		t.Errorf("expected prices in the same 5-cent bucket to collide, got %s vs %s", a, b)
	}
	c := strategy.SignalHash("AAPL", types.SignalMomentumEntry, types.ActionBuy, "r", decimal.NewFromFloat(101.50))
	if a == c {
		t.Errorf("expected prices in different buckets not to collide")
	}
}

func TestCooldownExpires(t *testing.T) {
	s := strategy.NewState("a1", config.StrategyConfig{}, zap.NewNop())
	s.AddCooldown("hash1", 10*time.Millisecond)
	if !s.InCooldown("hash1") {
		t.Fatalf("expected hash to be in cooldown immediately after adding")
	}
	time.Sleep(20 * time.Millisecond)
	if s.InCooldown("hash1") {
		t.Errorf("expected cooldown to have expired")
	}
}

func TestMarkExecutedPreventsDuplicateWithinCycle(t *testing.T) {
	s := strategy.NewState("a1", config.StrategyConfig{}, zap.NewNop())
	if !s.MarkExecuted("h1") {
		t.Fatalf("expected first mark to succeed")
	}
	if s.MarkExecuted("h1") {
		t.Errorf("expected second mark of the same hash to be rejected")
	}
	s.ResetCycle(time.Now(), time.UTC)
	if !s.MarkExecuted("h1") {
		t.Errorf("expected hash to be markable again after cycle reset")
	}
}

func TestCheckGenericExitStopLossTakesPriorityOverTakeProfit(t *testing.T) {
	pos := &types.Position{
		Symbol:    "AAPL",
		Size:      10,
		AvgCost:   decimal.NewFromInt(100),
		EntryTime: time.Now(),
	}
	cfg := config.StrategyConfig{StopLossPct: 0.05, TakeProfitPct: 0.10}
	sig := strategy.CheckGenericExit(pos, "AAPL", decimal.NewFromFloat(94), time.Now(), cfg, nil, "")
	if sig == nil {
		t.Fatalf("expected a stop-loss exit signal")
	}
	if sig.SignalType != types.SignalStopLoss {
		t.Errorf("expected SignalStopLoss, got %s", sig.SignalType)
	}
}

func TestCheckGenericExitMaxHoldingBeatsEverythingElse(t *testing.T) {
	pos := &types.Position{
		Symbol:    "AAPL",
		Size:      10,
		AvgCost:   decimal.NewFromInt(100),
		EntryTime: time.Now().Add(-2 * time.Hour),
	}
	cfg := config.StrategyConfig{MaxHoldingMinutes: 60, StopLossPct: 0.05}
	sig := strategy.CheckGenericExit(pos, "AAPL", decimal.NewFromFloat(94), time.Now(), cfg, nil, "")
	if sig == nil || sig.SignalType != types.SignalMaxHolding {
		t.Fatalf("expected max-holding exit to take priority, got %+v", sig)
	}
}

func TestCheckGenericExitTieredTakeProfitPicksHighestMetThreshold(t *testing.T) {
	pos := &types.Position{
		Symbol:    "AAPL",
		Size:      10,
		AvgCost:   decimal.NewFromInt(100),
		EntryTime: time.Now(),
	}
	cfg := config.StrategyConfig{}
	sig := strategy.CheckGenericExit(pos, "AAPL", decimal.NewFromFloat(106), time.Now(), cfg, nil, "")
	if sig == nil {
		t.Fatalf("expected a tiered take-profit exit")
	}
	if sig.Confidence != 0.8 {
		t.Errorf("expected the 5%% tier (confidence 0.8) to win at a 6%% gain, got %f", sig.Confidence)
	}
}

func TestPassesFiltersGatesOnConfidencePriceAndVolume(t *testing.T) {
	cfg := config.StrategyConfig{MinConfidence: 0.6, MinPrice: 10, MaxPrice: 1000, MinVolume: 100000}
	s := strategy.NewState("a1", cfg, zap.NewNop())

	lowConf := types.Signal{Confidence: 0.5, ReferencePrice: decimal.NewFromInt(50)}
	if s.PassesFilters(lowConf, 200000, false) {
		t.Errorf("expected low-confidence signal to be filtered out")
	}

	cheap := types.Signal{Confidence: 0.9, ReferencePrice: decimal.NewFromInt(5)}
	if s.PassesFilters(cheap, 200000, false) {
		t.Errorf("expected below-min-price signal to be filtered out")
	}

	thin := types.Signal{Confidence: 0.9, ReferencePrice: decimal.NewFromInt(50)}
	if s.PassesFilters(thin, 1000, false) {
		t.Errorf("expected thin-volume signal to be filtered out")
	}
	if !s.PassesFilters(thin, 1000, true) {
		t.Errorf("expected volume gate to be skipped when skipVolumeCheck is set")
	}

	ok := types.Signal{Confidence: 0.9, ReferencePrice: decimal.NewFromInt(50)}
	if !s.PassesFilters(ok, 200000, false) {
		t.Errorf("expected a signal clearing every gate to pass")
	}
}
