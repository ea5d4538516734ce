// Package types provides the shared data model for the signal engine:
// bars, signals, positions, trade records and account snapshots.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the side of a signal or order.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// OrderType is the broker order type.
type OrderType string

const (
	OrderTypeMarket OrderType = "MKT"
	OrderTypeLimit  OrderType = "LMT"
)

// TradeStatus is the terminal or intermediate status of a journaled trade.
type TradeStatus string

const (
	StatusPending   TradeStatus = "PENDING"
	StatusExecuted  TradeStatus = "EXECUTED"
	StatusFailed    TradeStatus = "FAILED"
	StatusCancelled TradeStatus = "CANCELLED"
	StatusError     TradeStatus = "ERROR"
	StatusRejected  TradeStatus = "REJECTED"
)

// SignalType enumerates every signal variant a strategy may emit.
// SignalUnknown is never valid on a signal that reaches the base lifecycle.
type SignalType string

const (
	SignalUnknown           SignalType = "UNKNOWN"
	SignalMomentumEntry     SignalType = "MOMENTUM_ENTRY"
	SignalReversalEntry     SignalType = "REVERSAL_ENTRY"
	SignalZScoreOversold    SignalType = "ZSCORE_OVERSOLD"
	SignalZScoreOverbought  SignalType = "ZSCORE_OVERBOUGHT"
	SignalZScoreExit        SignalType = "ZSCORE_EXIT"
	SignalMAGoldenCross     SignalType = "MA_GOLDEN_CROSS"
	SignalMADeathCross      SignalType = "MA_DEATH_CROSS"
	SignalBBUpperBreakout   SignalType = "BB_UPPER_BREAKOUT"
	SignalBBLowerBreakout   SignalType = "BB_LOWER_BREAKOUT"
	SignalStopLoss          SignalType = "STOP_LOSS"
	SignalTakeProfit        SignalType = "TAKE_PROFIT"
	SignalMaxHolding        SignalType = "MAX_HOLDING"
	SignalTrailingStop      SignalType = "TRAILING_STOP"
	SignalForceClose        SignalType = "FORCE_CLOSE"
	SignalMarketClose       SignalType = "MARKET_CLOSE"
	SignalPartialExit       SignalType = "PARTIAL_EXIT"
	SignalCloseAllPositions SignalType = "CLOSE_ALL_POSITIONS"
)

// Bar is one OHLCV sample, minute-resolution.
type Bar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// BarSeries is an ordered, duplicate-free sequence of bars ascending by
// timestamp, bounded by the adapter's lookback window.
type BarSeries []Bar

// Closes extracts the close column, the input most indicator functions need.
func (s BarSeries) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

func (s BarSeries) Highs() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

func (s BarSeries) Lows() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

func (s BarSeries) Volumes() []int64 {
	out := make([]int64, len(s))
	for i, b := range s {
		out[i] = b.Volume
	}
	return out
}

// Last returns the most recent bar and true, or the zero value and false
// if the series is empty.
func (s BarSeries) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// IndicatorSet is an opaque mapping from indicator name to scalar or short
// series. The strategy owns which keys it reads.
type IndicatorSet map[string]interface{}

// Scalar reads a float64 indicator value, returning false if absent or of
// the wrong shape.
func (s IndicatorSet) Scalar(name string) (float64, bool) {
	v, ok := s[name]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case decimal.Decimal:
		f, _ := t.Float64()
		return f, true
	case []float64:
		if len(t) == 0 {
			return 0, false
		}
		return t[len(t)-1], true
	default:
		return 0, false
	}
}

// Series reads a []float64 indicator series, returning false if absent.
func (s IndicatorSet) Series(name string) ([]float64, bool) {
	v, ok := s[name]
	if !ok {
		return nil, false
	}
	series, ok := v.([]float64)
	return series, ok
}

// Signal is an intent-to-trade record produced by a strategy.
type Signal struct {
	Symbol             string                 `json:"symbol"`
	StrategyID         string                 `json:"strategy_id"`
	SignalType         SignalType             `json:"signal_type"`
	Action             Action                 `json:"action"`
	ReferencePrice     decimal.Decimal        `json:"reference_price"`
	PositionSize       int64                  `json:"position_size"`
	Confidence         float64                `json:"confidence"`
	Reason             string                 `json:"reason"`
	IndicatorsSnapshot map[string]interface{} `json:"indicators_snapshot,omitempty"`
	ForceMarketOrder   bool                   `json:"force_market_order"`
	SignalHash         string                 `json:"signal_hash"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

// Valid checks the data-model invariants: position_size > 0,
// 0 <= confidence <= 1, reference_price > 0. SignalUnknown is always
// invalid regardless of the other fields.
func (s Signal) Valid() bool {
	if s.SignalType == SignalUnknown || s.SignalType == "" {
		return false
	}
	if s.PositionSize <= 0 {
		return false
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return false
	}
	if !s.ReferencePrice.IsPositive() {
		return false
	}
	return true
}

// Position is a per-symbol, per-strategy cache entry. Positive Size is
// long, negative is short. A position is present iff Size != 0; zero size
// implies deletion from the owning map.
type Position struct {
	Symbol       string          `json:"symbol"`
	Size         int64           `json:"size"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	EntryTime    time.Time       `json:"entry_time"`
	HighestPrice decimal.Decimal `json:"highest_price,omitempty"`
	LowestPrice  decimal.Decimal `json:"lowest_price,omitempty"`
}

func (p Position) IsLong() bool  { return p.Size > 0 }
func (p Position) IsShort() bool { return p.Size < 0 }
func (p Position) IsFlat() bool  { return p.Size == 0 }

// TradeRecord is an append-only, immutable journal entry.
type TradeRecord struct {
	ID          string          `json:"id,omitempty"`
	Symbol      string          `json:"symbol"`
	Action      Action          `json:"action"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	Size        int64           `json:"size"`
	Timestamp   time.Time       `json:"timestamp"`
	SignalType  SignalType      `json:"signal_type"`
	Confidence  float64         `json:"confidence"`
	Status      TradeStatus     `json:"status"`
	OrderType   OrderType       `json:"order_type"`
	OrderID     string          `json:"order_id,omitempty"`
	OrderStatus string          `json:"order_status,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Simulated   bool            `json:"simulated,omitempty"`
}

// AccountSnapshot is the broker's account summary, refreshed at cycle
// start and on demand during sizing.
type AccountSnapshot struct {
	NetLiquidation decimal.Decimal `json:"net_liquidation"`
	AvailableFunds decimal.Decimal `json:"available_funds"`
	Currency       string          `json:"currency"`
	AsOf           time.Time       `json:"as_of"`
}

// BrokerPosition is a position as reported by the broker's positions() op.
type BrokerPosition struct {
	Symbol  string
	Size    int64
	AvgCost decimal.Decimal
}

// OpenOrder is an unfilled order as reported by open_orders().
type OpenOrder struct {
	Symbol     string
	Side       Action
	Quantity   int64
	OrderType  OrderType
	LimitPrice decimal.Decimal
	OrderID    string
	Status     string
	Remaining  int64
}
