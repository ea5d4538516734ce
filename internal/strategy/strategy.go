// Package strategy implements the generic lifecycle of spec §4.4 that
// wraps every concrete strategy, and the capability-set polymorphism of
// spec §9: a Strategy is a value exposing {id, config, generate_signals,
// on_exit_check?} rather than a class hierarchy with method override.
package strategy

import (
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Strategy is the capability every concrete strategy must expose.
type Strategy interface {
	ID() string
	Description() string
	GenerateSignals(symbol string, bars types.BarSeries, indicators types.IndicatorSet) ([]types.Signal, error)
}

// ExitChecker is an optional capability: strategies with bespoke exit
// logic (trailing stops, MA-cross exits, divergence detection) implement
// it to augment the generic exit policy in base.go. Strategies that don't
// implement it rely solely on the generic policy.
type ExitChecker interface {
	CheckExitConditions(symbol string, pos types.Position, price decimal.Decimal, now time.Time, bars types.BarSeries) (*types.Signal, bool)
}

// Factory builds a Strategy bound to a specific strategy_id and config
// block, the shape every catalog entry registers under.
type Factory func(id string, cfg config.StrategyConfig) Strategy

// Registry holds factories keyed by a strategy family name (e.g.
// "a1_momentum_reversal", "a8_rsi_reversal"). The cycle controller resolves a symbol's
// assigned strategy_id to a config block, looks up the block's
// strategy_type param in the registry, and constructs one Strategy
// instance per strategy_id.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(strategyType string, f Factory) {
	r.factories[strategyType] = f
}

func (r *Registry) Build(strategyType, id string, cfg config.StrategyConfig) (Strategy, bool) {
	f, ok := r.factories[strategyType]
	if !ok {
		return nil, false
	}
	return f(id, cfg), true
}

func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	return out
}
