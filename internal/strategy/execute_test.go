package strategy_test

import (
	"sync"
	"testing"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/journal"
	"github.com/atlas-desktop/signal-engine/internal/sizing"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// execFakeBroker is a minimal strategy.Broker double for exercising
// ExecuteSignal's gate chain without a live TCP gateway.
type execFakeBroker struct {
	mu       sync.Mutex
	status   string
	active   bool
	placed   int
}

func (b *execFakeBroker) PlaceOrder(symbol string, side types.Action, qty int64, orderType types.OrderType, price *decimal.Decimal) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.placed++
	b.active = true
	return "ORD-" + symbol, b.status, nil
}

func (b *execFakeBroker) HasActiveOrder(symbol string, side types.Action, qty int64, price *decimal.Decimal, tol float64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active, nil
}

var _ strategy.Broker = (*execFakeBroker)(nil)

func execTestEnv() (*sizing.Sizer, *journal.Journal) {
	logger := zap.NewNop()
	return sizing.New(logger), journal.New(logger, "", 0)
}

func execTestAccount(available float64) types.AccountSnapshot {
	return types.AccountSnapshot{
		NetLiquidation: decimal.NewFromFloat(available),
		AvailableFunds: decimal.NewFromFloat(available),
		Currency:       "USD",
		AsOf:           time.Now(),
	}
}

func TestExecuteSignalRejectsDuplicateOpenOrder(t *testing.T) {
	now := time.Now()
	cfg := config.DefaultStrategyConfig("a1")
	s := strategy.NewState("a1", cfg, zap.NewNop())
	sizer, jr := execTestEnv()
	broker := &execFakeBroker{status: "Submitted"}

	sig := types.Signal{
		Symbol: "AAPL", SignalType: types.SignalMomentumEntry, Action: types.ActionBuy,
		ReferencePrice: decimal.NewFromFloat(100), PositionSize: 5, Confidence: 0.9,
		Reason: "entry", GeneratedAt: now,
	}
	sig.SignalHash = strategy.SignalHash("AAPL", sig.SignalType, sig.Action, sig.Reason, sig.ReferencePrice)
	s.MarkExecuted(sig.SignalHash)
	tr, err := s.ExecuteSignal(sig, strategy.ExecContext{Broker: broker, Sizer: sizer, Account: execTestAccount(100000), Now: now, Location: time.UTC, Journal: jr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Status != types.StatusPending {
		t.Fatalf("expected the first order PENDING, got %s", tr.Status)
	}

	sig2 := sig
	sig2.Reason = "entry retry"
	sig2.SignalHash = strategy.SignalHash("AAPL", sig2.SignalType, sig2.Action, sig2.Reason, sig2.ReferencePrice)
	s.MarkExecuted(sig2.SignalHash)
	tr2, err := s.ExecuteSignal(sig2, strategy.ExecContext{Broker: broker, Sizer: sizer, Account: execTestAccount(100000), Now: now, Location: time.UTC, Journal: jr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr2.Status != types.StatusRejected {
		t.Fatalf("expected the duplicate rejected, got %s", tr2.Status)
	}
	if broker.placed != 1 {
		t.Errorf("expected only one order placed, got %d", broker.placed)
	}
}

func TestExecuteSignalShortSellingGate(t *testing.T) {
	now := time.Now()
	sizer, jr := execTestEnv()

	cfgDisabled := config.DefaultStrategyConfig("a1")
	sDisabled := strategy.NewState("a1", cfgDisabled, zap.NewNop())
	sig := types.Signal{
		Symbol: "AAPL", SignalType: types.SignalMomentumEntry, Action: types.ActionSell,
		ReferencePrice: decimal.NewFromFloat(100), PositionSize: 5, Confidence: 0.9,
		Reason: "short exit", GeneratedAt: now,
	}
	sig.SignalHash = strategy.SignalHash("AAPL", sig.SignalType, sig.Action, sig.Reason, sig.ReferencePrice)
	sDisabled.MarkExecuted(sig.SignalHash)
	tr, err := sDisabled.ExecuteSignal(sig, strategy.ExecContext{Broker: &execFakeBroker{status: "Filled"}, Sizer: sizer, Account: execTestAccount(100000), Now: now, Location: time.UTC, Journal: jr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Status != types.StatusRejected || tr.Reason != "no position, shorting disabled" {
		t.Fatalf("expected shorting-disabled rejection, got %s / %q", tr.Status, tr.Reason)
	}

	cfgEnabled := config.DefaultStrategyConfig("a1")
	cfgEnabled.AllowShortSelling = true
	sEnabled := strategy.NewState("a1", cfgEnabled, zap.NewNop())
	sig2 := sig
	sig2.SignalHash = strategy.SignalHash("AAPL", sig2.SignalType, sig2.Action, "short exit allowed", sig2.ReferencePrice)
	sig2.Reason = "short exit allowed"
	sEnabled.MarkExecuted(sig2.SignalHash)
	broker := &execFakeBroker{status: "Filled"}
	tr2, err := sEnabled.ExecuteSignal(sig2, strategy.ExecContext{Broker: broker, Sizer: sizer, Account: execTestAccount(100000), Now: now, Location: time.UTC, Journal: jr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr2.Status != types.StatusExecuted {
		t.Fatalf("expected the short to execute once enabled, got %s / %q", tr2.Status, tr2.Reason)
	}
	if broker.placed != 1 {
		t.Errorf("expected exactly one order placed once shorting is enabled, got %d", broker.placed)
	}
}

func TestExecuteSignalCloseAllPositionsForcesMarketOrder(t *testing.T) {
	now := time.Now()
	cfg := config.DefaultStrategyConfig("a1")
	s := strategy.NewState("a1", cfg, zap.NewNop())
	s.Positions["AAPL"] = &types.Position{Symbol: "AAPL", Size: 10, AvgCost: decimal.NewFromInt(100), EntryTime: now.Add(-time.Hour)}
	sizer, jr := execTestEnv()
	broker := &execFakeBroker{status: "Filled"}

	sig := types.Signal{
		Symbol: "AAPL", SignalType: types.SignalCloseAllPositions, Action: types.ActionSell,
		ReferencePrice: decimal.NewFromInt(100), PositionSize: 10, Confidence: 1.0,
		Reason: "scheduled close-all-positions", GeneratedAt: now, ForceMarketOrder: true,
	}
	sig.SignalHash = strategy.SignalHash("AAPL", sig.SignalType, sig.Action, "forced", sig.ReferencePrice)
	s.MarkExecuted(sig.SignalHash)
	tr, err := s.ExecuteSignal(sig, strategy.ExecContext{Broker: broker, Sizer: sizer, Account: execTestAccount(100000), Now: now, Location: time.UTC, Journal: jr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.OrderType != types.OrderTypeMarket {
		t.Errorf("expected a forced market order, got %s", tr.OrderType)
	}
	if tr.Status != types.StatusExecuted {
		t.Fatalf("expected the close to execute, got %s", tr.Status)
	}
	if _, stillOpen := s.Positions["AAPL"]; stillOpen {
		t.Errorf("expected the position to be cleared after the forced close")
	}
}

func TestExecuteSignalSameDaySellOnlyGate(t *testing.T) {
	now := time.Now()
	cfg := config.DefaultStrategyConfig("a1")
	cfg.SameDaySellOnly = true
	s := strategy.NewState("a1", cfg, zap.NewNop())
	s.Positions["AAPL"] = &types.Position{Symbol: "AAPL", Size: 20, AvgCost: decimal.NewFromInt(100), EntryTime: now.Add(-2 * time.Hour)}
	sizer, jr := execTestEnv()
	broker := &execFakeBroker{status: "Filled"}

	firstSell := types.Signal{
		Symbol: "AAPL", SignalType: types.SignalMomentumEntry, Action: types.ActionSell,
		ReferencePrice: decimal.NewFromInt(105), PositionSize: 10, Confidence: 0.9,
		Reason: "partial exit", GeneratedAt: now,
	}
	firstSell.SignalHash = strategy.SignalHash("AAPL", firstSell.SignalType, firstSell.Action, firstSell.Reason, firstSell.ReferencePrice)
	s.MarkExecuted(firstSell.SignalHash)
	tr1, err := s.ExecuteSignal(firstSell, strategy.ExecContext{Broker: broker, Sizer: sizer, Account: execTestAccount(100000), Now: now, Location: time.UTC, Journal: jr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr1.Status != types.StatusExecuted {
		t.Fatalf("expected the first partial sell to execute, got %s", tr1.Status)
	}

	secondSell := types.Signal{
		Symbol: "AAPL", SignalType: types.SignalMomentumEntry, Action: types.ActionSell,
		ReferencePrice: decimal.NewFromInt(106), PositionSize: 10, Confidence: 0.9,
		Reason: "second exit same day", GeneratedAt: now,
	}
	secondSell.SignalHash = strategy.SignalHash("AAPL", secondSell.SignalType, secondSell.Action, secondSell.Reason, secondSell.ReferencePrice)
	s.MarkExecuted(secondSell.SignalHash)
	tr2, err := s.ExecuteSignal(secondSell, strategy.ExecContext{Broker: broker, Sizer: sizer, Account: execTestAccount(100000), Now: now, Location: time.UTC, Journal: jr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr2.Status != types.StatusRejected || tr2.Reason != "symbol already sold today" {
		t.Fatalf("expected the second same-day sell rejected, got %s / %q", tr2.Status, tr2.Reason)
	}
}
