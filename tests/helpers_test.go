// Package engine_test holds the cross-package end-to-end scenarios named
// literally in SPEC_FULL.md's testable-properties section: a signal
// generated by a catalog strategy, sized, gated and submitted through
// ExecuteSignal exactly as the cycle controller drives it, without
// standing up the network broker/market-data adapters those scenarios
// don't actually exercise.
package engine_test

import (
	"sync"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/journal"
	"github.com/atlas-desktop/signal-engine/internal/sizing"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// makeBars builds a synthetic bar series with a distinct volume per bar,
// timestamped one minute apart starting at the regular session open.
func makeBars(closes []float64, volumes []int64) types.BarSeries {
	out := make(types.BarSeries, len(closes))
	base := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		v := int64(1_000_000)
		if i < len(volumes) {
			v = volumes[i]
		}
		out[i] = types.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      d,
			High:      d.Mul(decimal.NewFromFloat(1.001)),
			Low:       d.Mul(decimal.NewFromFloat(0.999)),
			Close:     d,
			Volume:    v,
		}
	}
	return out
}

// newTestEnv builds the non-network pieces ExecuteSignal needs: a sizer
// and a journal with persistence disabled (empty path). testAccount
// builds the account snapshot most scenarios submit against.
func newTestEnv() (*sizing.Sizer, *journal.Journal) {
	logger := zap.NewNop()
	return sizing.New(logger), journal.New(logger, "", 0)
}

func nopLogger() *zap.Logger { return zap.NewNop() }

func testAccount(available float64) types.AccountSnapshot {
	return types.AccountSnapshot{
		NetLiquidation: decimal.NewFromFloat(available),
		AvailableFunds: decimal.NewFromFloat(available),
		Currency:       "USD",
		AsOf:           time.Now(),
	}
}

// placedOrder records one call into fakeBroker.PlaceOrder.
type placedOrder struct {
	Symbol string
	Side   types.Action
	Qty    int64
	Price  *decimal.Decimal
}

// fakeBroker is a minimal strategy.Broker double: it remembers every
// order it has placed for a symbol/side and reports a duplicate the next
// time HasActiveOrder is asked about the same pair, without needing a
// live TCP gateway.
type fakeBroker struct {
	mu           sync.Mutex
	status       string
	placeErr     error
	placed       []placedOrder
	activeByPair map[string]bool
}

func newFakeBroker(status string) *fakeBroker {
	return &fakeBroker{status: status, activeByPair: make(map[string]bool)}
}

func (b *fakeBroker) PlaceOrder(symbol string, side types.Action, qty int64, orderType types.OrderType, price *decimal.Decimal) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.placeErr != nil {
		return "", "", b.placeErr
	}
	b.placed = append(b.placed, placedOrder{Symbol: symbol, Side: side, Qty: qty, Price: price})
	b.activeByPair[symbol+string(side)] = true
	return "ORD-" + symbol, b.status, nil
}

func (b *fakeBroker) HasActiveOrder(symbol string, side types.Action, qty int64, price *decimal.Decimal, tol float64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activeByPair[symbol+string(side)], nil
}

func (b *fakeBroker) orderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.placed)
}

var _ strategy.Broker = (*fakeBroker)(nil)
