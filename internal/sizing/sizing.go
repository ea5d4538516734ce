// Package sizing implements the position-sizing procedure of spec §4.4.3:
// a fixed risk-budget-and-notional-cap formula. The teacher's Kelly /
// regime / correlation extensions are dropped here (see DESIGN.md) since
// nothing in the engine's sizing contract takes a regime multiplier or a
// correlation input; what survives is the struct/logger/trade-history
// shape, repurposed to track realized win rate for diagnostics.
package sizing

import (
	"sync"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/pkg/money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request carries every input the formula needs for one signal.
type Request struct {
	Signal             decimal.Decimal // reference price
	Equity             decimal.Decimal
	Confidence         float64
	ATR                decimal.Decimal // falls back to price*0.02 if unavailable
	ActivePositions    int
	MaxActivePositions int
	Config             config.StrategyConfig
}

// Result carries the sized quantity plus the figures a caller needs to
// log or test against.
type Result struct {
	Shares          int64
	RiskAmount      decimal.Decimal
	RiskPerShare    decimal.Decimal
	SharesByRisk    int64
	SharesByNotional int64
	MaxNotional     decimal.Decimal
	Rejected        bool
	RejectReason    string
}

// TradeResult is one closed trade's outcome, used only for the realized
// win-rate diagnostic exposed by Sizer.Stats.
type TradeResult struct {
	Symbol    string
	ReturnPct decimal.Decimal
	IsWin     bool
}

// Sizer computes position sizes per the spec formula and keeps a rolling
// trade history for observability.
type Sizer struct {
	logger *zap.Logger

	mu      sync.Mutex
	history []TradeResult
}

func New(logger *zap.Logger) *Sizer {
	return &Sizer{logger: logger.With(zap.String("component", "sizing"))}
}

// Calculate implements the 7-step procedure of spec §4.4.3.
func (s *Sizer) Calculate(req Request) Result {
	// 2. Cap active positions.
	if req.MaxActivePositions > 0 && req.ActivePositions >= req.MaxActivePositions {
		return Result{Rejected: true, RejectReason: "max active positions reached"}
	}

	price := req.Signal
	atr := req.ATR
	if atr.IsZero() {
		atr = price.Mul(decimal.NewFromFloat(0.02)) // sigma-based fallback
	}

	// 3. Risk budget.
	riskPerTrade := decimal.NewFromFloat(req.Config.RiskPerTrade)
	riskAmount := req.Equity.Mul(riskPerTrade).Mul(decimal.NewFromFloat(req.Confidence))

	// 4. Risk per share.
	atrMultiple := req.Config.StopLossATRMultiple
	if atrMultiple <= 0 {
		atrMultiple = 2.0
	}
	riskPerShare := atr.Mul(decimal.NewFromFloat(atrMultiple))
	if !riskPerShare.IsPositive() {
		return Result{Rejected: true, RejectReason: "non-positive risk per share"}
	}

	// 5. Shares by risk, floored, minimum 1.
	sharesByRisk := riskAmount.Div(riskPerShare).Floor().IntPart()
	if sharesByRisk < 1 {
		sharesByRisk = 1
	}

	// 6. Notional cap.
	minBuffer := req.Config.MinCashBuffer
	equityBuffered := req.Equity.Mul(decimal.NewFromFloat(1 - minBuffer))
	perTradeCap := decimal.NewFromFloat(req.Config.PerTradeNotionalCap)
	maxNotional := money.Min(perTradeCap, equityBuffered)
	if !price.IsPositive() {
		return Result{Rejected: true, RejectReason: "non-positive reference price"}
	}
	sharesByNotional := maxNotional.Div(price).Floor().IntPart()

	// 7. Final size is the tighter of the two caps.
	shares := sharesByRisk
	if sharesByNotional < shares {
		shares = sharesByNotional
	}
	if shares < 0 {
		shares = 0
	}

	return Result{
		Shares:           shares,
		RiskAmount:       riskAmount,
		RiskPerShare:     riskPerShare,
		SharesByRisk:     sharesByRisk,
		SharesByNotional: sharesByNotional,
		MaxNotional:      maxNotional,
	}
}

// RecordTrade appends a closed trade's outcome to the rolling history.
func (s *Sizer) RecordTrade(r TradeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, r)
	if len(s.history) > 500 {
		s.history = s.history[len(s.history)-500:]
	}
}

// WinRate returns the realized win rate over the retained history.
func (s *Sizer) WinRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return 0
	}
	wins := 0
	for _, t := range s.history {
		if t.IsWin {
			wins++
		}
	}
	return float64(wins) / float64(len(s.history))
}
