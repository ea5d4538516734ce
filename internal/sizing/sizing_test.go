package sizing_test

import (
	"testing"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/sizing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestCalculateRejectsAtMaxActivePositions(t *testing.T) {
	s := sizing.New(zap.NewNop())
	res := s.Calculate(sizing.Request{
		Signal:             decimal.NewFromInt(100),
		Equity:             decimal.NewFromInt(100000),
		Confidence:         0.8,
		ActivePositions:    5,
		MaxActivePositions: 5,
		Config:             config.StrategyConfig{RiskPerTrade: 0.01},
	})
	if !res.Rejected {
		t.Fatalf("expected rejection at max active positions")
	}
}

func TestCalculatePicksTighterOfRiskAndNotionalCap(t *testing.T) {
	s := sizing.New(zap.NewNop())
	res := s.Calculate(sizing.Request{
		Signal:             decimal.NewFromInt(50),
		Equity:             decimal.NewFromInt(100000),
		Confidence:         1.0,
		ATR:                decimal.NewFromFloat(1.0),
		MaxActivePositions: 10,
		Config: config.StrategyConfig{
			RiskPerTrade:        0.02,
			StopLossATRMultiple: 2.0,
			PerTradeNotionalCap: 500,
			MinCashBuffer:       0,
		},
	})
	if res.Rejected {
		t.Fatalf("did not expect rejection, got reason %q", res.RejectReason)
	}
	// risk budget: 100000*0.02*1.0 = 2000, risk/share = 1*2 = 2 -> 1000 shares by risk
	// notional cap: 500/50 = 10 shares by notional
	if res.SharesByNotional != 10 {
		t.Errorf("expected 10 shares by notional cap, got %d", res.SharesByNotional)
	}
	if res.Shares != 10 {
		t.Errorf("expected notional cap to bind, got %d shares", res.Shares)
	}
}

func TestCalculateFloorsToMinimumOneShareByRisk(t *testing.T) {
	s := sizing.New(zap.NewNop())
	res := s.Calculate(sizing.Request{
		Signal:             decimal.NewFromInt(100),
		Equity:             decimal.NewFromInt(1000),
		Confidence:         0.1,
		ATR:                decimal.NewFromFloat(50),
		MaxActivePositions: 10,
		Config: config.StrategyConfig{
			RiskPerTrade:        0.001,
			StopLossATRMultiple: 2.0,
			PerTradeNotionalCap: 100000,
			MinCashBuffer:       0,
		},
	})
	if res.SharesByRisk != 1 {
		t.Errorf("expected risk-based sizing to floor to 1 share, got %d", res.SharesByRisk)
	}
}

func TestWinRateOverRollingHistory(t *testing.T) {
	s := sizing.New(zap.NewNop())
	if s.WinRate() != 0 {
		t.Fatalf("expected zero win rate with no history")
	}
	s.RecordTrade(sizing.TradeResult{Symbol: "AAPL", IsWin: true})
	s.RecordTrade(sizing.TradeResult{Symbol: "AAPL", IsWin: false})
	s.RecordTrade(sizing.TradeResult{Symbol: "AAPL", IsWin: true})
	if got := s.WinRate(); got != float64(2)/3 {
		t.Errorf("expected win rate 2/3, got %f", got)
	}
}
