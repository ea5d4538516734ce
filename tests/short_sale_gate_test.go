package engine_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Scenario 5 (short-sale gate): with allow_short_selling left at its
// conservative default (disabled) and no held position in SYM, a SELL
// signal must be rejected rather than opening a short, with no order
// reaching the broker.
func TestShortSaleGateScenario(t *testing.T) {
	now := time.Now()
	cfg := config.DefaultStrategyConfig("default")
	if cfg.AllowShortSellingEnabled() {
		t.Fatalf("expected short selling disabled by default")
	}
	state := strategy.NewState("default", cfg, nopLogger())
	sizer, jr := newTestEnv()
	broker := newFakeBroker("Filled")

	sig := types.Signal{
		Symbol:         "SYM",
		SignalType:     types.SignalMomentumEntry,
		Action:         types.ActionSell,
		ReferencePrice: decimal.NewFromFloat(50.00),
		PositionSize:   10,
		Confidence:     0.9,
		Reason:         "momentum exit without a position",
		GeneratedAt:    now,
	}
	sig.SignalHash = strategy.SignalHash("SYM", sig.SignalType, sig.Action, sig.Reason, sig.ReferencePrice)
	if !state.MarkExecuted(sig.SignalHash) {
		t.Fatalf("expected the signal to mark as executable")
	}

	tr, err := state.ExecuteSignal(sig, strategy.ExecContext{
		Broker: broker, Sizer: sizer, Account: testAccount(100000), Now: now, Location: time.UTC, Journal: jr,
	})
	if err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	if tr.Status != types.StatusRejected {
		t.Fatalf("expected the order rejected, got %s", tr.Status)
	}
	if tr.Reason != "no position, shorting disabled" {
		t.Errorf("expected the shorting-disabled reason, got %q", tr.Reason)
	}
	if broker.orderCount() != 0 {
		t.Errorf("expected no order to reach the broker, got %d", broker.orderCount())
	}
	if len(jr.Records()) != 1 {
		t.Errorf("expected exactly one journal record, got %d", len(jr.Records()))
	}
}
