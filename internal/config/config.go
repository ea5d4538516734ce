// Package config loads the engine's nested configuration tree once at
// startup into an immutable struct. The source format mirrors spec's
// recognized top-level options: data_server, ib_server, trading,
// strategy_aN (one block per strategy id) and symbol_strategy_map.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DataServerConfig describes the market-data HTTP collaborator.
type DataServerConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	CacheDuration time.Duration `mapstructure:"cache_duration"`
}

// IBServerConfig describes the broker gateway TCP endpoint.
type IBServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	ClientID   int    `mapstructure:"client_id"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// TradingHours is the daily window orders are allowed without override.
type TradingHours struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// TradingConfig is the process-wide trading policy.
type TradingConfig struct {
	Symbols                        []string     `mapstructure:"symbols"`
	ScanIntervalMinutes            int          `mapstructure:"scan_interval_minutes"`
	TradingHours                   TradingHours `mapstructure:"trading_hours"`
	AllowOrdersOutsideTradingHours bool         `mapstructure:"allow_orders_outside_trading_hours"`
	AutoCancelOrders               bool         `mapstructure:"auto_cancel_orders"`
	MaxSymbolsPerCycle             int          `mapstructure:"max_symbols_per_cycle"`
	CloseAllPositionsBeforeClose   bool         `mapstructure:"close_all_positions_before_market_close"`
	ClosePositionsTime             string       `mapstructure:"close_positions_time"`
	SkipVolumeCheck                bool         `mapstructure:"skip_volume_check"`
}

// StrategyConfig is one strategy_aN.* block. Strategy-specific indicator
// parameters that don't have a named field live in Params.
type StrategyConfig struct {
	ID                    string                 `mapstructure:"-"`
	InitialCapital        float64                `mapstructure:"initial_capital"`
	RiskPerTrade          float64                `mapstructure:"risk_per_trade"`
	MaxPositionSize       int64                  `mapstructure:"max_position_size"`
	MaxActivePositions    int                    `mapstructure:"max_active_positions"`
	PerTradeNotionalCap   float64                `mapstructure:"per_trade_notional_cap"`
	MaxPositionNotional   float64                `mapstructure:"max_position_notional"`
	MinCashBuffer         float64                `mapstructure:"min_cash_buffer"`
	StopLossPct           float64                `mapstructure:"stop_loss_pct"`
	TakeProfitPct         float64                `mapstructure:"take_profit_pct"`
	TakeProfitPnLThresh   float64                `mapstructure:"take_profit_pnl_threshold"`
	MaxHoldingMinutes     int                    `mapstructure:"max_holding_minutes"`
	MaxHoldingDays        int                    `mapstructure:"max_holding_days"`
	ForceCloseTime        string                 `mapstructure:"force_close_time"`
	IBOrderType           string                 `mapstructure:"ib_order_type"`
	IBLimitOffset         float64                `mapstructure:"ib_limit_offset"`
	SignalCooldownMinutes int                    `mapstructure:"signal_cooldown_minutes"`
	SignalCooldownHours   int                    `mapstructure:"signal_cooldown_hours"`
	MinConfidence         float64                `mapstructure:"min_confidence"`
	MinPrice              float64                `mapstructure:"min_price"`
	MaxPrice              float64                `mapstructure:"max_price"`
	MinVolume             int64                  `mapstructure:"min_volume"`
	StopLossATRMultiple   float64                `mapstructure:"stop_loss_atr_multiple"`
	SameDaySellOnly       bool                   `mapstructure:"same_day_sell_only"`
	AllowShortSelling     bool                   `mapstructure:"allow_short_selling"`
	SellExemptFromCap     bool                   `mapstructure:"sell_exempt_from_cap"`
	Params                map[string]interface{} `mapstructure:",remain"`
}

// SameDaySellOnlyEnabled reports whether a symbol may be sold at most once
// per calendar day under this strategy block.
func (s StrategyConfig) SameDaySellOnlyEnabled() bool { return s.SameDaySellOnly }

// AllowShortSellingEnabled reports whether this strategy may open short positions.
func (s StrategyConfig) AllowShortSellingEnabled() bool { return s.AllowShortSelling }

// SellExemptFromCapEnabled reports whether sell orders skip the per-trade
// notional cap (so closing a position is never blocked by the cap that
// bounds entries).
func (s StrategyConfig) SellExemptFromCapEnabled() bool { return s.SellExemptFromCap }

// CooldownWindow returns the configured signal cooldown as a duration,
// preferring minutes when both are set.
func (s StrategyConfig) CooldownWindow() time.Duration {
	if s.SignalCooldownMinutes > 0 {
		return time.Duration(s.SignalCooldownMinutes) * time.Minute
	}
	if s.SignalCooldownHours > 0 {
		return time.Duration(s.SignalCooldownHours) * time.Hour
	}
	return 15 * time.Minute
}

// MaxHolding returns the configured max-holding-time as a duration.
func (s StrategyConfig) MaxHolding() time.Duration {
	if s.MaxHoldingMinutes > 0 {
		return time.Duration(s.MaxHoldingMinutes) * time.Minute
	}
	if s.MaxHoldingDays > 0 {
		return time.Duration(s.MaxHoldingDays) * 24 * time.Hour
	}
	return 0
}

// Config is the full immutable configuration tree, built once at startup.
// No mutable global map exists anywhere else in the process.
type Config struct {
	LogLevel          string                     `mapstructure:"log_level"`
	DataServer        DataServerConfig           `mapstructure:"data_server"`
	IBServer          IBServerConfig             `mapstructure:"ib_server"`
	Trading           TradingConfig              `mapstructure:"trading"`
	Strategies        map[string]StrategyConfig  `mapstructure:"-"`
	SymbolStrategyMap map[string]string          `mapstructure:"symbol_strategy_map"`
	StatusAddr        string                     `mapstructure:"status_addr"`
}

// StrategyFor resolves the strategy assigned to symbol, falling back to
// "default" if the symbol is unlisted in symbol_strategy_map.
func (c *Config) StrategyFor(symbol string) (StrategyConfig, bool) {
	id, ok := c.SymbolStrategyMap[symbol]
	if !ok {
		id = "default"
	}
	sc, ok := c.Strategies[id]
	return sc, ok
}

// Load reads the nested configuration tree from built-in defaults, the
// file at path (if non-empty) and environment variables (prefix ENGINE_,
// nested keys joined with underscores). The file overrides the defaults
// and environment variables override both, per spec's "configuration
// loading is read once at init" contract.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Strategies = make(map[string]StrategyConfig)
	for key := range v.AllSettings() {
		if !strings.HasPrefix(key, "strategy_") {
			continue
		}
		var sc StrategyConfig
		sub := v.Sub(key)
		if sub == nil {
			continue
		}
		if err := sub.Unmarshal(&sc); err != nil {
			return nil, fmt.Errorf("config: unmarshal %s: %w", key, err)
		}
		sc.ID = key
		cfg.Strategies[key] = sc
	}

	if _, ok := cfg.Strategies["default"]; !ok {
		cfg.Strategies["default"] = DefaultStrategyConfig("default")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("status_addr", ":9090")
	v.SetDefault("data_server.retry_attempts", 3)
	v.SetDefault("data_server.cache_duration", 300*time.Second)
	v.SetDefault("ib_server.max_retries", 3)
	v.SetDefault("trading.scan_interval_minutes", 1)
	v.SetDefault("trading.trading_hours.start", "09:30")
	v.SetDefault("trading.trading_hours.end", "16:00")
	v.SetDefault("trading.close_positions_time", "15:55")
	v.SetDefault("trading.close_all_positions_before_market_close", true)
}

// DefaultStrategyConfig returns conservative defaults for a strategy block
// that was not found in the loaded file, so an unlisted symbol still has a
// usable assignment per spec's "default per symbol if unlisted" contract.
func DefaultStrategyConfig(id string) StrategyConfig {
	return StrategyConfig{
		ID:                  id,
		InitialCapital:      10000,
		RiskPerTrade:        0.01,
		MaxActivePositions:  5,
		PerTradeNotionalCap: 1000,
		MinCashBuffer:       0.1,
		StopLossPct:         0.02,
		TakeProfitPct:       0.05,
		ForceCloseTime:      "15:55",
		IBOrderType:         "LMT",
		IBLimitOffset:       0.001,
		SignalCooldownMinutes: 15,
		MinConfidence:       0.5,
		StopLossATRMultiple: 2.0,
	}
}
