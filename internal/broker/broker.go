// Package broker implements the adapter of spec §4.3: a single-threaded
// client wrapped around an external brokerage gateway, reached over a
// local TCP connection with an authenticated client ID. The engine's other
// components interact with the broker only through this adapter; workers
// must never touch it directly (spec §5).
package broker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config configures the gateway connection.
type Config struct {
	Host       string
	Port       int
	ClientID   int
	MaxRetries int
	DialTimeout time.Duration
}

type request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Adapter is the broker gateway client. Exactly one goroutine (the cycle
// controller) is expected to call it; it is not safe for concurrent use
// from strategy workers.
type Adapter struct {
	logger *zap.Logger
	config Config

	mu        sync.Mutex
	conn      net.Conn
	reader    *bufio.Reader
	connected bool
	nextID    atomic.Int64

	contractCache map[string]string // symbol -> qualified contract id
}

func New(logger *zap.Logger, config Config) *Adapter {
	return &Adapter{
		logger:        logger.With(zap.String("component", "broker")),
		config:        config,
		contractCache: make(map[string]string),
	}
}

// Connect is idempotent and retries up to 3x, per spec's contract table.
func (a *Adapter) Connect(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return true, nil
	}

	var lastErr error
	attempts := a.config.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	for i := 0; i < attempts; i++ {
		addr := fmt.Sprintf("%s:%d", a.config.Host, a.config.Port)
		dialer := net.Dialer{Timeout: a.config.DialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		a.conn = conn
		a.reader = bufio.NewReader(conn)
		if err := a.handshake(); err != nil {
			lastErr = err
			conn.Close()
			a.conn = nil
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		a.connected = true
		return true, nil
	}
	a.logger.Warn("broker connect failed after retries", zap.Error(lastErr))
	return false, lastErr
}

func (a *Adapter) handshake() error {
	_, err := a.callLocked("connect", map[string]int{"client_id": a.config.ClientID})
	return err
}

// Disconnect closes the connection; a closed connection can always be
// reconnected via Connect.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		a.conn.Close()
	}
	a.connected = false
}

func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Adapter) call(method string, params interface{}) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.callLocked(method, params)
}

func (a *Adapter) callLocked(method string, params interface{}) (json.RawMessage, error) {
	if a.conn == nil {
		return nil, fmt.Errorf("broker: not connected")
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("broker: marshal params: %w", err)
	}
	req := request{ID: a.nextID.Add(1), Method: method, Params: raw}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("broker: marshal request: %w", err)
	}
	if _, err := a.conn.Write(append(payload, '\n')); err != nil {
		a.connected = false
		return nil, fmt.Errorf("broker: write: %w", err)
	}

	line, err := a.reader.ReadBytes('\n')
	if err != nil {
		a.connected = false
		return nil, fmt.Errorf("broker: read: %w", err)
	}
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("broker: malformed response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("broker: %s", resp.Error)
	}
	return resp.Result, nil
}

// Qualify resolves an abstract symbol to a concrete contract id, cached
// for the lifetime of the adapter; Disconnect does not clear the cache.
func (a *Adapter) Qualify(symbol string) (string, error) {
	a.mu.Lock()
	if id, ok := a.contractCache[symbol]; ok {
		a.mu.Unlock()
		return id, nil
	}
	a.mu.Unlock()

	raw, err := a.call("qualify", map[string]string{"symbol": symbol})
	if err != nil {
		return "", err
	}
	var out struct {
		ContractID string `json:"contract_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("broker: qualify response: %w", err)
	}
	a.mu.Lock()
	a.contractCache[symbol] = out.ContractID
	a.mu.Unlock()
	return out.ContractID, nil
}

// PlaceOrder submits an order. LMT orders require price.
func (a *Adapter) PlaceOrder(symbol string, side types.Action, qty int64, orderType types.OrderType, price *decimal.Decimal) (orderID string, status string, err error) {
	if orderType == types.OrderTypeLimit && price == nil {
		return "", "", fmt.Errorf("broker: LMT order requires a price")
	}
	params := map[string]interface{}{
		"symbol": symbol,
		"side":   string(side),
		"qty":    qty,
		"type":   string(orderType),
	}
	if price != nil {
		params["price"] = price.String()
	}
	raw, err := a.call("place_order", params)
	if err != nil {
		return "", "", err
	}
	var out struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", "", fmt.Errorf("broker: place_order response: %w", err)
	}
	return out.OrderID, out.Status, nil
}

// Positions returns the broker's reported equity positions.
func (a *Adapter) Positions() ([]types.BrokerPosition, error) {
	raw, err := a.call("positions", nil)
	if err != nil {
		return nil, err
	}
	var out []struct {
		Symbol  string  `json:"symbol"`
		Size    int64   `json:"size"`
		AvgCost float64 `json:"avg_cost"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("broker: positions response: %w", err)
	}
	positions := make([]types.BrokerPosition, len(out))
	for i, p := range out {
		positions[i] = types.BrokerPosition{
			Symbol:  p.Symbol,
			Size:    p.Size,
			AvgCost: decimal.NewFromFloat(p.AvgCost),
		}
	}
	return positions, nil
}

// AccountSummary returns NetLiquidation, AvailableFunds and currency.
func (a *Adapter) AccountSummary() (types.AccountSnapshot, error) {
	raw, err := a.call("account_summary", nil)
	if err != nil {
		return types.AccountSnapshot{}, err
	}
	var out struct {
		NetLiquidation float64 `json:"net_liquidation"`
		AvailableFunds float64 `json:"available_funds"`
		Currency       string  `json:"currency"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.AccountSnapshot{}, fmt.Errorf("broker: account_summary response: %w", err)
	}
	return types.AccountSnapshot{
		NetLiquidation: decimal.NewFromFloat(out.NetLiquidation),
		AvailableFunds: decimal.NewFromFloat(out.AvailableFunds),
		Currency:       out.Currency,
		AsOf:           time.Now(),
	}, nil
}

// OpenOrders lists unfilled orders, optionally filtered by symbol.
func (a *Adapter) OpenOrders(symbol string) ([]types.OpenOrder, error) {
	raw, err := a.call("open_orders", map[string]string{"symbol": symbol})
	if err != nil {
		return nil, err
	}
	var out []struct {
		Symbol     string  `json:"symbol"`
		Side       string  `json:"side"`
		Quantity   int64   `json:"qty"`
		OrderType  string  `json:"order_type"`
		LimitPrice float64 `json:"limit_price"`
		OrderID    string  `json:"order_id"`
		Status     string  `json:"status"`
		Remaining  int64   `json:"remaining"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("broker: open_orders response: %w", err)
	}
	orders := make([]types.OpenOrder, len(out))
	for i, o := range out {
		orders[i] = types.OpenOrder{
			Symbol:     o.Symbol,
			Side:       types.Action(o.Side),
			Quantity:   o.Quantity,
			OrderType:  types.OrderType(o.OrderType),
			LimitPrice: decimal.NewFromFloat(o.LimitPrice),
			OrderID:    o.OrderID,
			Status:     o.Status,
			Remaining:  o.Remaining,
		}
	}
	return orders, nil
}

// HasActiveOrder reports true iff an open order matches side, quantity
// within tol*qty, and (if LMT) limit price within tol*price.
func (a *Adapter) HasActiveOrder(symbol string, side types.Action, qty int64, price *decimal.Decimal, tol float64) (bool, error) {
	orders, err := a.OpenOrders(symbol)
	if err != nil {
		return false, err
	}
	qtyTol := float64(qty) * tol
	for _, o := range orders {
		if o.Symbol != symbol || o.Side != side {
			continue
		}
		if diff := float64(o.Quantity - qty); diff < -qtyTol || diff > qtyTol {
			continue
		}
		if o.OrderType == types.OrderTypeLimit && price != nil {
			priceTol := price.Mul(decimal.NewFromFloat(tol))
			if o.LimitPrice.Sub(*price).Abs().GreaterThan(priceTol) {
				continue
			}
		}
		return true, nil
	}
	return false, nil
}

// StatusToTradeStatus maps a broker order status to the internal trade
// status per the fixed table in spec §4.4.4.
func StatusToTradeStatus(brokerStatus string) types.TradeStatus {
	switch brokerStatus {
	case "Filled":
		return types.StatusExecuted
	case "Cancelled":
		return types.StatusCancelled
	case "Inactive":
		return types.StatusFailed
	default:
		return types.StatusPending
	}
}
