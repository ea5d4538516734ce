package engine_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Scenario 3 (forced liquidation): at the configured close_positions_time
// with two open long positions, each position gets exactly one
// CLOSE_ALL_POSITIONS SELL submitted as a market order; both are
// journaled, and once both closes fill the position cache is empty.
func TestForcedLiquidationScenario(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 45, 0, 0, time.UTC)
	cfg := config.DefaultStrategyConfig("default")
	state := strategy.NewState("default", cfg, nopLogger())
	state.Positions["AAA"] = &types.Position{Symbol: "AAA", Size: 10, AvgCost: decimal.NewFromInt(50), EntryTime: now.Add(-time.Hour)}
	state.Positions["BBB"] = &types.Position{Symbol: "BBB", Size: 20, AvgCost: decimal.NewFromInt(30), EntryTime: now.Add(-time.Hour)}

	sizer, jr := newTestEnv()
	broker := newFakeBroker("Filled")
	account := testAccount(100000)

	for symbol, pos := range map[string]*types.Position{"AAA": state.Positions["AAA"], "BBB": state.Positions["BBB"]} {
		price := pos.AvgCost
		sig := types.Signal{
			Symbol:         symbol,
			SignalType:     types.SignalCloseAllPositions,
			Action:         types.ActionSell,
			ReferencePrice: price,
			PositionSize:   pos.Size,
			Confidence:     1.0,
			Reason:         "scheduled close-all-positions",
			ForceMarketOrder: true,
			GeneratedAt:    now,
		}
		sig.SignalHash = strategy.SignalHash(symbol, sig.SignalType, sig.Action, "forced", price)
		if !state.MarkExecuted(sig.SignalHash) {
			t.Fatalf("expected the forced-close signal for %s to mark as executable", symbol)
		}
		tr, err := state.ExecuteSignal(sig, strategy.ExecContext{
			Broker:   broker,
			Sizer:    sizer,
			Account:  account,
			Now:      now,
			Location: time.UTC,
			Journal:  jr,
		})
		if err != nil {
			t.Fatalf("unexpected execute error for %s: %v", symbol, err)
		}
		if tr.OrderType != types.OrderTypeMarket {
			t.Errorf("expected %s's forced close to submit as MKT, got %s", symbol, tr.OrderType)
		}
		if tr.Status != types.StatusExecuted {
			t.Errorf("expected %s's forced close to execute, got %s", symbol, tr.Status)
		}
	}

	if len(jr.Records()) != 2 {
		t.Fatalf("expected both forced closes to be journaled, got %d records", len(jr.Records()))
	}
	if len(state.Positions) != 0 {
		t.Errorf("expected the position cache to be empty after both closes, got %+v", state.Positions)
	}
}
