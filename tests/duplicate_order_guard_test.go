package engine_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Scenario 4 (duplicate-order guard): a BUY for SYM is submitted and
// accepted; a second BUY for the same symbol/side arrives before
// reconciliation, at a nearby but not identical price. Expected: the
// first is accepted PENDING, the second is rejected because an existing
// open order already matches.
func TestDuplicateOrderGuardScenario(t *testing.T) {
	now := time.Now()
	cfg := config.DefaultStrategyConfig("default")
	state := strategy.NewState("default", cfg, nopLogger())
	sizer, jr := newTestEnv()
	broker := newFakeBroker("Submitted")
	account := testAccount(100000)

	first := types.Signal{
		Symbol:         "SYM",
		SignalType:     types.SignalMomentumEntry,
		Action:         types.ActionBuy,
		ReferencePrice: decimal.NewFromFloat(50.00),
		PositionSize:   10,
		Confidence:     0.9,
		Reason:         "momentum entry",
		GeneratedAt:    now,
	}
	first.SignalHash = strategy.SignalHash("SYM", first.SignalType, first.Action, first.Reason, first.ReferencePrice)
	if !state.MarkExecuted(first.SignalHash) {
		t.Fatalf("expected the first signal to mark as executable")
	}
	tr1, err := state.ExecuteSignal(first, strategy.ExecContext{
		Broker: broker, Sizer: sizer, Account: account, Now: now, Location: time.UTC, Journal: jr,
	})
	if err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	if tr1.Status != types.StatusPending {
		t.Fatalf("expected the first order accepted PENDING, got %s", tr1.Status)
	}

	second := types.Signal{
		Symbol:         "SYM",
		SignalType:     types.SignalMomentumEntry,
		Action:         types.ActionBuy,
		ReferencePrice: decimal.NewFromFloat(50.02),
		PositionSize:   10,
		Confidence:     0.9,
		Reason:         "momentum entry reattempt",
		GeneratedAt:    now,
	}
	second.SignalHash = strategy.SignalHash("SYM", second.SignalType, second.Action, second.Reason, second.ReferencePrice)
	if !state.MarkExecuted(second.SignalHash) {
		t.Fatalf("expected the second signal's distinct hash to mark as executable")
	}
	tr2, err := state.ExecuteSignal(second, strategy.ExecContext{
		Broker: broker, Sizer: sizer, Account: account, Now: now, Location: time.UTC, Journal: jr,
	})
	if err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	if tr2.Status != types.StatusRejected {
		t.Fatalf("expected the second order rejected, got %s", tr2.Status)
	}
	if tr2.Reason == "" {
		t.Errorf("expected a rejection reason")
	}
	if broker.orderCount() != 1 {
		t.Errorf("expected only one order to actually reach the broker, got %d", broker.orderCount())
	}
}
