package config_test

import (
	"testing"

	"github.com/atlas-desktop/signal-engine/internal/config"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.Trading.TradingHours.Start != "09:30" {
		t.Errorf("expected default trading hours start 09:30, got %q", cfg.Trading.TradingHours.Start)
	}
	if _, ok := cfg.Strategies["default"]; !ok {
		t.Errorf("expected a synthesized default strategy block")
	}
}

func TestStrategyForFallsBackToDefaultForUnmappedSymbol(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.SymbolStrategyMap = map[string]string{"AAPL": "a1_momentum_reversal"}
	cfg.Strategies["a1_momentum_reversal"] = config.StrategyConfig{ID: "a1_momentum_reversal"}

	sc, ok := cfg.StrategyFor("MSFT")
	if !ok {
		t.Fatalf("expected the default block to resolve for an unmapped symbol")
	}
	if sc.ID != "default" {
		t.Errorf("expected default strategy ID, got %q", sc.ID)
	}

	mapped, ok := cfg.StrategyFor("AAPL")
	if !ok || mapped.ID != "a1_momentum_reversal" {
		t.Errorf("expected AAPL to resolve to its mapped strategy, got %+v", mapped)
	}
}

func TestStrategyConfigCooldownWindowPrefersMinutes(t *testing.T) {
	sc := config.StrategyConfig{SignalCooldownMinutes: 5, SignalCooldownHours: 2}
	if got := sc.CooldownWindow(); got.Minutes() != 5 {
		t.Errorf("expected minutes to take priority over hours, got %v", got)
	}
}

func TestStrategyConfigMaxHoldingDefaultsToZero(t *testing.T) {
	sc := config.StrategyConfig{}
	if sc.MaxHolding() != 0 {
		t.Errorf("expected zero max holding when neither field is set")
	}
}
