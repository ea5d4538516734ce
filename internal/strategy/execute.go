package strategy

import (
	"fmt"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/broker"
	"github.com/atlas-desktop/signal-engine/internal/journal"
	"github.com/atlas-desktop/signal-engine/internal/observability"
	"github.com/atlas-desktop/signal-engine/internal/sizing"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// Broker is the subset of the broker adapter the order submission path
// needs; a narrow interface keeps this package testable without a live
// TCP gateway.
type Broker interface {
	PlaceOrder(symbol string, side types.Action, qty int64, orderType types.OrderType, price *decimal.Decimal) (orderID string, status string, err error)
	HasActiveOrder(symbol string, side types.Action, qty int64, price *decimal.Decimal, tol float64) (bool, error)
}

// ExecContext carries everything ExecuteSignal needs beyond the signal
// itself: broker handle, sizer, current account snapshot, trading-hours
// state and the trade journal.
type ExecContext struct {
	Broker           Broker
	Sizer            *sizing.Sizer
	Account          types.AccountSnapshot
	ATR              decimal.Decimal
	Simulate         bool
	OutsideTradingHours bool
	Now              time.Time
	Location         *time.Location
	Journal          *journal.Journal
	Recorder         *observability.Recorder
}

const minAvailableFunds = 500.0
const activeOrderTolerance = 0.02

// ExecuteSignal runs the order submission path of spec §4.4.4. It always
// returns a TradeRecord (PENDING/EXECUTED/REJECTED/FAILED), appended to
// the journal regardless of outcome, matching the "no signal is silently
// dropped after sizing" contract.
func (s *State) ExecuteSignal(sig types.Signal, ec ExecContext) (*types.TradeRecord, error) {
	record := func(status types.TradeStatus, orderType types.OrderType, reason string, fill ...func(*types.TradeRecord)) *types.TradeRecord {
		tr := &types.TradeRecord{
			Symbol:     sig.Symbol,
			Action:     sig.Action,
			EntryPrice: sig.ReferencePrice,
			Size:       sig.PositionSize,
			Timestamp:  ec.Now,
			SignalType: sig.SignalType,
			Confidence: sig.Confidence,
			Status:     status,
			OrderType:  orderType,
			Reason:     reason,
			Simulated:  ec.Simulate,
		}
		for _, f := range fill {
			f(tr)
		}
		if ec.Journal != nil {
			ec.Journal.Append(*tr)
		}
		if ec.Recorder != nil {
			if status == types.StatusRejected {
				ec.Recorder.OrdersRejected.WithLabelValues(reason).Inc()
			} else {
				ec.Recorder.OrdersSubmitted.WithLabelValues(string(status)).Inc()
			}
		}
		return tr
	}

	pos := s.Positions[sig.Symbol]

	// Size entries through the risk/notional formula; exits already carry
	// their held size from the exit check. A SELL from flat is a short
	// entry; it is sized only when shorting is allowed, since the
	// sell-side gate below rejects it otherwise.
	if (pos == nil || pos.IsFlat()) && (sig.Action == types.ActionBuy || s.Config.AllowShortSellingEnabled()) {
		result := ec.Sizer.Calculate(sizing.Request{
			Signal:             sig.ReferencePrice,
			Equity:             ec.Account.AvailableFunds,
			Confidence:         sig.Confidence,
			ATR:                ec.ATR,
			ActivePositions:    len(s.Positions),
			MaxActivePositions: s.Config.MaxActivePositions,
			Config:             s.Config,
		})
		if result.Rejected || result.Shares < 1 {
			return record(types.StatusRejected, types.OrderTypeMarket, "sizing: "+result.RejectReason), nil
		}
		sig.PositionSize = result.Shares
	}

	// 1. Reject if position_size <= 0.
	if sig.PositionSize <= 0 {
		return record(types.StatusRejected, types.OrderTypeMarket, "zero or negative position size"), nil
	}

	// 2. Reject if signal_hash is in cooldown.
	if s.InCooldown(sig.SignalHash) {
		return record(types.StatusRejected, types.OrderTypeMarket, "signal cooldown"), nil
	}

	// 3. Reject if broker is absent and simulation is not enabled.
	if ec.Broker == nil && !ec.Simulate {
		return record(types.StatusRejected, types.OrderTypeMarket, "broker unavailable, simulation disabled"), nil
	}

	qty := sig.PositionSize

	if sig.Action == types.ActionBuy {
		// Same-day repurchase gate: always active, independent of
		// same_day_sell_only (see SPEC_FULL.md open-question resolution).
		if pos != nil && !pos.IsFlat() && sameDay(pos.EntryTime, ec.Now, ec.Location) {
			return record(types.StatusRejected, types.OrderTypeMarket, "same-day repurchase disallowed"), nil
		}

		avail, _ := ec.Account.AvailableFunds.Float64()
		if avail != 0 && avail < minAvailableFunds {
			return record(types.StatusRejected, types.OrderTypeMarket, "available funds below minimum"), nil
		}
		notional := sig.ReferencePrice.Mul(decimal.NewFromInt(qty))
		if avail != 0 && notional.GreaterThan(ec.Account.AvailableFunds) {
			clamped := ec.Account.AvailableFunds.Div(sig.ReferencePrice).Floor().IntPart()
			if clamped < 1 {
				return record(types.StatusRejected, types.OrderTypeMarket, "insufficient available funds"), nil
			}
			qty = clamped
		}
	} else {
		// Sell-side gates.
		if (pos == nil || pos.IsFlat()) && !s.Config.AllowShortSellingEnabled() {
			return record(types.StatusRejected, types.OrderTypeMarket, "no position, shorting disabled"), nil
		}
		if pos != nil && pos.IsLong() && qty > pos.Size {
			qty = pos.Size
		}
		if !s.Config.SellExemptFromCapEnabled() {
			notionalCap := decimal.NewFromFloat(s.Config.PerTradeNotionalCap)
			if notionalCap.IsPositive() {
				maxQty := notionalCap.Div(sig.ReferencePrice).Floor().IntPart()
				if maxQty < qty {
					qty = maxQty
				}
			}
		}
		if s.Config.SameDaySellOnlyEnabled() && s.soldToday[sig.Symbol] {
			return record(types.StatusRejected, types.OrderTypeMarket, "symbol already sold today"), nil
		}
	}

	if qty < 1 {
		return record(types.StatusRejected, types.OrderTypeMarket, "quantity clamped to zero"), nil
	}
	sig.PositionSize = qty

	// 6. Duplicate-order gate.
	var limitPriceForCheck *decimal.Decimal
	if s.Config.IBOrderType == "LMT" {
		lp := limitPrice(sig.Action, sig.ReferencePrice, s.Config.IBLimitOffset)
		limitPriceForCheck = &lp
	}
	if ec.Broker != nil {
		dup, err := ec.Broker.HasActiveOrder(sig.Symbol, sig.Action, qty, limitPriceForCheck, activeOrderTolerance)
		if err != nil {
			return record(types.StatusRejected, types.OrderTypeMarket, fmt.Sprintf("duplicate-order check failed: %v", err)), err
		}
		if dup {
			return record(types.StatusRejected, types.OrderTypeMarket, "duplicate order: existing open order matches"), nil
		}
	}

	// 7. Choose order type.
	orderType := types.OrderType(s.Config.IBOrderType)
	if orderType == "" {
		orderType = types.OrderTypeLimit
	}
	if sig.ForceMarketOrder || ec.OutsideTradingHours || sig.SignalType == types.SignalCloseAllPositions {
		orderType = types.OrderTypeMarket
	}
	var limitPtr *decimal.Decimal
	if orderType == types.OrderTypeLimit {
		lp := limitPrice(sig.Action, sig.ReferencePrice, s.Config.IBLimitOffset)
		limitPtr = &lp
	}

	// 8. Submit.
	var orderID, brokerStatus string
	var err error
	if ec.Simulate || ec.Broker == nil {
		orderID = "SIM-" + sig.SignalHash
		brokerStatus = "Filled"
	} else {
		start := time.Now()
		orderID, brokerStatus, err = ec.Broker.PlaceOrder(sig.Symbol, sig.Action, qty, orderType, limitPtr)
		if ec.Recorder != nil {
			ec.Recorder.OrderLatency.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			tr := record(types.StatusFailed, orderType, fmt.Sprintf("broker submission failed: %v", err), func(tr *types.TradeRecord) {
				tr.OrderID = orderID
			})
			return tr, nil
		}
	}

	status := broker.StatusToTradeStatus(brokerStatus)
	tr := record(status, orderType, "submitted", func(tr *types.TradeRecord) {
		tr.OrderID = orderID
		tr.OrderStatus = brokerStatus
		tr.Size = qty
	})

	// 9. On EXECUTED: cooldown + position cache update.
	if status == types.StatusExecuted {
		s.AddCooldown(sig.SignalHash, s.Config.CooldownWindow())
		s.MarkExecuted(sig.SignalHash)
		s.applyFill(sig, qty)
		if sig.Action == types.ActionSell {
			s.soldToday[sig.Symbol] = true
		}
		s.TradesExecuted++
	}

	return tr, nil
}

func (s *State) applyFill(sig types.Signal, qty int64) {
	pos, ok := s.Positions[sig.Symbol]
	delta := qty
	if sig.Action == types.ActionSell {
		delta = -qty
	}

	if !ok || pos.IsFlat() {
		s.Positions[sig.Symbol] = &types.Position{
			Symbol:    sig.Symbol,
			Size:      delta,
			AvgCost:   sig.ReferencePrice,
			EntryTime: sig.GeneratedAt,
		}
		return
	}

	newSize := pos.Size + delta
	if newSize == 0 {
		delete(s.Positions, sig.Symbol)
		return
	}

	// Same-direction add merges into a volume-weighted average cost.
	if (pos.Size > 0) == (delta > 0) {
		totalCost := pos.AvgCost.Mul(decimal.NewFromInt(abs64(pos.Size))).
			Add(sig.ReferencePrice.Mul(decimal.NewFromInt(abs64(delta))))
		pos.AvgCost = totalCost.Div(decimal.NewFromInt(abs64(newSize)))
	}
	pos.Size = newSize
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func limitPrice(action types.Action, reference decimal.Decimal, offset float64) decimal.Decimal {
	off := decimal.NewFromFloat(offset)
	if action == types.ActionBuy {
		return reference.Mul(decimal.NewFromInt(1).Add(off))
	}
	return reference.Mul(decimal.NewFromInt(1).Sub(off))
}
