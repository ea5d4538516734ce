package engine_test

import (
	"testing"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/internal/strategy/catalog"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Scenario 1 (golden-cross entry): EMA(9) crosses above EMA(21) on the
// last bar, confirmed by a 4x volume surge, against A3 configured with
// fast=9, slow=21, volume_surge=1.5, per_trade_notional_cap=700.
// Expected: exactly one BUY signal at the crossing bar's close, sized no
// higher than floor(700 / close), and a trade record PENDING or EXECUTED.
func TestGoldenCrossEntryScenario(t *testing.T) {
	closes := make([]float64, 50)
	volumes := make([]int64, 50)
	for i := range closes {
		closes[i] = 100
		volumes[i] = 200_000
	}
	// a single sharp jump on the last bar: EMA(9) (faster smoothing
	// constant) overtakes EMA(21) only at this bar, not earlier in a
	// gradual ramp, so the golden cross lands exactly at bar 49.
	closes[49] = 150
	var trailingSum int64
	for i := 29; i < 49; i++ {
		trailingSum += volumes[i]
	}
	volumes[49] = 4 * (trailingSum / 20)
	bars := makeBars(closes, volumes)

	registry := strategy.NewRegistry()
	catalog.RegisterAll(registry)

	cfg := config.DefaultStrategyConfig("a3")
	cfg.PerTradeNotionalCap = 700
	cfg.Params = map[string]interface{}{
		"fast_period":        9,
		"slow_period":        21,
		"volume_surge_ratio": 1.5,
	}
	impl, ok := registry.Build("a3_dual_ma_volume", "a3", cfg)
	if !ok {
		t.Fatalf("expected a3_dual_ma_volume to be registered")
	}
	state := strategy.NewState("a3", cfg, nopLogger())

	signals, err := impl.GenerateSignals("AAPL", bars, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entries []types.Signal
	last, _ := bars.Last()
	for _, s := range signals {
		if s.Valid() && state.PassesFilters(s, last.Volume, false) {
			entries = append(entries, s)
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one golden-cross entry, got %d", len(entries))
	}
	sig := entries[0]
	if sig.Action != types.ActionBuy {
		t.Errorf("expected a BUY signal, got %s", sig.Action)
	}
	if !sig.ReferencePrice.Equal(last.Close) {
		t.Errorf("expected the reference price to be the crossing bar's close, got %s", sig.ReferencePrice)
	}

	sizer, jr := newTestEnv()
	account := testAccount(100000)
	broker := newFakeBroker("Submitted")

	sig.StrategyID = "a3"
	if !state.MarkExecuted(sig.SignalHash) {
		t.Fatalf("expected the first mark of this signal to succeed")
	}
	tr, err := state.ExecuteSignal(sig, strategy.ExecContext{
		Broker:   broker,
		Sizer:    sizer,
		Account:  account,
		Now:      last.Timestamp,
		Location: last.Timestamp.Location(),
		Journal:  jr,
	})
	if err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	maxShares := account.AvailableFunds.Div(sig.ReferencePrice).Floor()
	notionalCapShares := decimal.NewFromFloat(cfg.PerTradeNotionalCap).Div(sig.ReferencePrice).Floor()
	if notionalCapShares.LessThan(maxShares) {
		maxShares = notionalCapShares
	}
	if tr.Size <= 0 || decimal.NewFromInt(tr.Size).GreaterThan(maxShares) {
		t.Errorf("expected position_size in (0, %s], got %d", maxShares, tr.Size)
	}
	if tr.Status != types.StatusPending && tr.Status != types.StatusExecuted {
		t.Errorf("expected PENDING or EXECUTED, got %s", tr.Status)
	}
}
