package engine_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/internal/strategy/catalog"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Scenario 2 (z-score mean-reversion exit): a long position opened at
// avg_cost 100.00 when z was deeply oversold reverts to z inside
// (-0.5, 0.5) on the latest bar. Expected: exactly one ZSCORE_EXIT SELL
// signal sized to the held position, submitted and recorded.
func TestZScoreMeanReversionExitScenario(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	bars := makeBars(closes, nil)
	last, _ := bars.Last()

	registry := strategy.NewRegistry()
	catalog.RegisterAll(registry)

	cfg := config.DefaultStrategyConfig("a2")
	cfg.Params = map[string]interface{}{"entry": 2.0, "exit": 0.5}
	impl, ok := registry.Build("a2_zscore_mean_reversion", "a2", cfg)
	if !ok {
		t.Fatalf("expected a2_zscore_mean_reversion to be registered")
	}
	exitChecker, ok := impl.(strategy.ExitChecker)
	if !ok {
		t.Fatalf("expected A2 to implement ExitChecker")
	}

	pos := types.Position{
		Symbol:    "AAPL",
		Size:      10,
		AvgCost:   decimal.NewFromInt(100),
		EntryTime: last.Timestamp.Add(-30 * time.Minute),
	}

	sig, handled := exitChecker.CheckExitConditions("AAPL", pos, last.Close, last.Timestamp, bars)
	if !handled || sig == nil {
		t.Fatalf("expected a z-score reversion exit once |z| falls inside the exit band")
	}
	if sig.SignalType != types.SignalZScoreExit {
		t.Fatalf("expected SignalZScoreExit, got %s", sig.SignalType)
	}
	if sig.Action != types.ActionSell {
		t.Errorf("expected a SELL against the long position, got %s", sig.Action)
	}
	if sig.PositionSize != pos.Size {
		t.Errorf("expected position_size to equal the held size %d, got %d", pos.Size, sig.PositionSize)
	}

	state := strategy.NewState("a2", cfg, nopLogger())
	state.Positions["AAPL"] = &pos
	sizer, jr := newTestEnv()
	broker := newFakeBroker("Filled")

	if !state.MarkExecuted(sig.SignalHash) {
		t.Fatalf("expected the exit signal to mark as executable")
	}
	tr, err := state.ExecuteSignal(*sig, strategy.ExecContext{
		Broker:   broker,
		Sizer:    sizer,
		Account:  testAccount(100000),
		Now:      last.Timestamp,
		Location: last.Timestamp.Location(),
		Journal:  jr,
	})
	if err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	if tr.Status != types.StatusExecuted {
		t.Fatalf("expected the exit to execute, got %s", tr.Status)
	}
	if tr.Size != pos.Size {
		t.Errorf("expected the executed size to equal the held position, got %d", tr.Size)
	}
}
