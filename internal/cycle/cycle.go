// Package cycle implements the cycle controller of spec §4.7: the state
// machine that drives one tick of the engine end to end (reconcile,
// preselect, generate, size, submit, journal) on a cadence aligned to the
// top of the minute. Adapted from the teacher's TradingOrchestrator
// start/stop lifecycle in internal/orchestrator/orchestrator.go, stripped
// of the regime/Monte Carlo/optimization integration that orchestrator
// coordinated (spec has no analogue for any of it) and rebuilt around the
// strategy host, broker and market-data adapters instead.
package cycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/broker"
	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/enginerr"
	"github.com/atlas-desktop/signal-engine/internal/host"
	"github.com/atlas-desktop/signal-engine/internal/journal"
	"github.com/atlas-desktop/signal-engine/internal/marketdata"
	"github.com/atlas-desktop/signal-engine/internal/observability"
	"github.com/atlas-desktop/signal-engine/internal/sizing"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Phase is one state in the controller's lifecycle.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseConnected
	PhaseRunning
	PhaseStopping
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseConnected:
		return "CONNECTED"
	case PhaseRunning:
		return "RUNNING"
	case PhaseStopping:
		return "STOPPING"
	case PhaseStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// instance is one constructed strategy bound to its lifecycle State.
type instance struct {
	impl  strategy.Strategy
	state *strategy.State
}

// execRequest is one filter-passed signal waiting to be sized and
// submitted. Strategy workers only ever build these; sizing
// (inside ExecuteSignal) and submission itself happen on
// the controller's single execution lane (spec §4.4.4, §5: workers must
// not touch the broker adapter).
type execRequest struct {
	inst     *instance
	sig      types.Signal
	symbol   string
	lastClose decimal.Decimal
	account  types.AccountSnapshot
	atr      decimal.Decimal
	outsideHours bool
	now      time.Time
}

// Controller drives the engine's tick loop.
type Controller struct {
	logger *zap.Logger
	cfg    *config.Config

	broker     *broker.Adapter
	market     *marketdata.Adapter
	registry   *strategy.Registry
	journal    *journal.Journal
	perfSidecar *journal.PerformanceSidecar
	host       *host.Host
	sizer      *sizing.Sizer
	recorder   *observability.Recorder

	mu        sync.Mutex
	phase     Phase
	instances map[string]*instance // strategy_id -> instance

	// cycleCtx fields, refreshed at the top of every RunCycle and read by
	// the host's ProcessFunc closure.
	cycleAccount             types.AccountSnapshot
	cycleForceMarketOrder    bool
	cycleOutsideHours        bool
	cycleForceClose          bool
	cycleNow                 time.Time
	cycleDegraded            bool

	// execCh is the single controller-owned execution lane: strategy
	// workers generate and filter signals concurrently, but every order
	// submission drains through this one channel on one goroutine, so
	// PlaceOrder/HasActiveOrder are never called from more than one
	// goroutine at a time (spec §4.4.4, §5).
	execCh chan execRequest

	stopCh chan struct{}
	loc    *time.Location
}

// New builds an unstarted controller. Strategy instances are constructed
// lazily on first Start, one per distinct strategy_id referenced in
// symbol_strategy_map (or "default").
func New(logger *zap.Logger, cfg *config.Config, br *broker.Adapter, market *marketdata.Adapter, registry *strategy.Registry, jr *journal.Journal, perf *journal.PerformanceSidecar, recorder *observability.Recorder) *Controller {
	loc := time.Local
	return &Controller{
		logger:      logger.With(zap.String("component", "cycle")),
		cfg:         cfg,
		broker:      br,
		market:      market,
		registry:    registry,
		journal:     jr,
		perfSidecar: perf,
		recorder:    recorder,
		phase:       PhaseInit,
		instances:   make(map[string]*instance),
		sizer:       sizing.New(logger),
		execCh:      make(chan execRequest, 64),
		loc:         loc,
	}
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	c.logger.Info("phase transition", zap.String("phase", p.String()))
}

// Phase returns the controller's current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Start connects the broker, builds strategy instances, and runs the tick
// loop until ctx is cancelled or Stop is called. It returns nil on a
// clean shutdown.
func (c *Controller) Start(ctx context.Context) error {
	if ok, err := c.broker.Connect(ctx); !ok {
		return fmt.Errorf("cycle: broker connect failed: %w", err)
	}
	c.setPhase(PhaseConnected)

	if err := c.buildInstances(); err != nil {
		return fmt.Errorf("cycle: building strategy instances: %w", err)
	}

	c.stopCh = make(chan struct{})
	c.setPhase(PhaseRunning)

	go c.runExecutionLane(ctx)

	interval := time.Duration(c.cfg.Trading.ScanIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Minute
	}

	for {
		now := time.Now().In(c.loc)
		waitForTopOfInterval(ctx, c.stopCh, now, interval)

		select {
		case <-ctx.Done():
			c.setPhase(PhaseStopping)
			c.setPhase(PhaseStopped)
			return nil
		case <-c.stopCh:
			c.setPhase(PhaseStopping)
			c.setPhase(PhaseStopped)
			return nil
		default:
		}

		if err := c.RunCycle(ctx, time.Now().In(c.loc)); err != nil {
			c.logger.Error("cycle failed", zap.Error(err))
		}
	}
}

// waitForTopOfInterval blocks until the next interval boundary, ctx is
// cancelled, or stop is closed, per spec's "tick cadence aligned to the
// top of the minute" contract.
func waitForTopOfInterval(ctx context.Context, stop <-chan struct{}, now time.Time, interval time.Duration) {
	next := now.Truncate(interval).Add(interval)
	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-stop:
	}
}

// Stop requests a graceful shutdown; Start returns once the in-flight
// cycle (if any) completes.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseStopped || c.phase == PhaseStopping {
		return
	}
	close(c.stopCh)
}

func (c *Controller) buildInstances() error {
	seen := map[string]bool{"default": true}
	for _, id := range c.cfg.SymbolStrategyMap {
		seen[id] = true
	}
	for id := range seen {
		sc, ok := c.cfg.Strategies[id]
		if !ok {
			sc = config.DefaultStrategyConfig(id)
		}
		strategyType := sc.ID
		if v, ok := sc.Params["strategy_type"].(string); ok && v != "" {
			strategyType = v
		}
		impl, ok := c.registry.Build(strategyType, id, sc)
		if !ok {
			c.logger.Warn("no registered strategy type, skipping", zap.String("strategy_id", id), zap.String("strategy_type", strategyType))
			continue
		}
		c.instances[id] = &instance{
			impl:  impl,
			state: strategy.NewState(id, sc, c.logger),
		}
	}

	c.host = host.New(c.logger, host.DefaultConfig(), func(ctx context.Context, item host.WorkItem) error {
		inst, ok := c.instances[item.StrategyID]
		if !ok {
			return nil
		}
		return c.processSymbol(ctx, item.Symbol, inst, c.cycleAccount, c.cycleForceMarketOrder, c.cycleOutsideHours, c.cycleForceClose, c.cycleNow)
	})
	return nil
}

// RunCycle executes one full pass: reconciliation, preselect, signal
// generation and order submission for every assigned symbol, and forced
// liquidation if the close-positions time has passed.
func (c *Controller) RunCycle(ctx context.Context, now time.Time) error {
	cycleStart := time.Now()
	if c.recorder != nil {
		defer func() {
			c.recorder.CyclesRun.Inc()
			c.recorder.CycleDuration.Observe(time.Since(cycleStart).Seconds())
			c.recorder.BrokerConnected.Set(boolToFloat(c.broker.IsConnected()))
			total := 0
			for _, inst := range c.instances {
				total += len(inst.state.Positions)
			}
			c.recorder.ActivePositions.Set(float64(total))
		}()
	}

	account, err := c.broker.AccountSummary()
	if err != nil {
		c.logger.Warn("account summary unavailable this cycle", zap.Error(err))
	}

	positions, err := c.broker.Positions()
	degraded := err != nil
	if degraded {
		degErr := enginerr.New(enginerr.KindDegraded, "broker position sync failed, holding the local position cache and routing this cycle's orders through simulation", err)
		c.logger.Warn("cycle entering degraded mode", zap.Error(degErr))
	}
	c.cycleDegraded = degraded

	for _, inst := range c.instances {
		inst.state.ResetCycle(now, c.loc)
		// On a degraded broker, keep each strategy's last-known-good
		// position cache rather than overwriting it with an empty sync.
		if !degraded {
			inst.state.SyncPositionsFromBroker(positions)
		}
	}

	outsideHours := !withinTradingHours(now, c.cfg.Trading.TradingHours)
	forceMarketOrder := outsideHours && c.cfg.Trading.AllowOrdersOutsideTradingHours

	assignments := c.assignSymbols()

	if err := c.runPreselect(ctx, assignments); err != nil {
		c.logger.Warn("preselect sidecar failed", zap.Error(err))
	}

	forceClose := c.cfg.Trading.CloseAllPositionsBeforeClose &&
		c.cfg.Trading.ClosePositionsTime != "" &&
		afterClock(now, c.cfg.Trading.ClosePositionsTime)

	c.cycleAccount = account
	c.cycleForceMarketOrder = forceMarketOrder
	c.cycleOutsideHours = outsideHours
	c.cycleForceClose = forceClose
	c.cycleNow = now

	items := make([]host.WorkItem, 0, len(assignments))
	for symbol, stratID := range assignments {
		if _, ok := c.instances[stratID]; !ok {
			continue
		}
		items = append(items, host.WorkItem{Symbol: symbol, StrategyID: stratID})
	}
	if err := c.host.RunOnce(ctx, items); err != nil {
		c.logger.Warn("cycle host run_once reported an error", zap.Error(err))
	}

	return nil
}

func (c *Controller) assignSymbols() map[string]string {
	out := make(map[string]string, len(c.cfg.Trading.Symbols))
	for _, sym := range c.cfg.Trading.Symbols {
		id, ok := c.cfg.SymbolStrategyMap[sym]
		if !ok {
			id = "default"
		}
		out[sym] = id
	}
	if c.cfg.Trading.MaxSymbolsPerCycle > 0 && len(out) > c.cfg.Trading.MaxSymbolsPerCycle {
		truncated := make(map[string]string, c.cfg.Trading.MaxSymbolsPerCycle)
		i := 0
		for sym, id := range out {
			if i >= c.cfg.Trading.MaxSymbolsPerCycle {
				break
			}
			truncated[sym] = id
			i++
		}
		return truncated
	}
	return out
}

func (c *Controller) processSymbol(ctx context.Context, symbol string, inst *instance, account types.AccountSnapshot, forceMarketOrder, outsideHours, forceClose bool, now time.Time) error {
	bars, indicators := c.market.GetBarsAndIndicators(ctx, symbol, "1min", 200)
	if len(bars) == 0 {
		return nil
	}
	last, _ := bars.Last()

	var atr decimal.Decimal
	if v, ok := indicators.Scalar("atr"); ok {
		atr = decimal.NewFromFloat(v)
	}

	var signals []types.Signal

	if pos, held := inst.state.Positions[symbol]; held && !pos.IsFlat() {
		strategy.UpdateTrailingWatermarks(pos, last.Close)

		if forceClose {
			signals = append(signals, *forceCloseSignal(symbol, pos, last.Close))
		} else if sig := strategy.CheckGenericExit(pos, symbol, last.Close, now, inst.state.Config, nil, inst.state.Config.ForceCloseTime); sig != nil {
			signals = append(signals, *sig)
		} else if exitChecker, ok := inst.impl.(strategy.ExitChecker); ok {
			if sig, handled := exitChecker.CheckExitConditions(symbol, *pos, last.Close, now, bars); handled && sig != nil {
				signals = append(signals, *sig)
			}
		}
	}

	if len(signals) == 0 && !forceClose {
		generated, err := inst.impl.GenerateSignals(symbol, bars, indicators)
		if err != nil {
			return fmt.Errorf("generate signals: %w", err)
		}
		for _, s := range generated {
			if s.Valid() && inst.state.PassesFilters(s, last.Volume, c.cfg.Trading.SkipVolumeCheck) {
				signals = append(signals, s)
			}
		}
	}

	for _, sig := range signals {
		sig.StrategyID = inst.state.ID
		if forceMarketOrder {
			sig.ForceMarketOrder = true
		}
		if !inst.state.MarkExecuted(sig.SignalHash) {
			continue
		}
		inst.state.SignalsGenerated++
		if c.recorder != nil {
			c.recorder.SignalsGenerated.WithLabelValues(inst.state.ID, string(sig.SignalType)).Inc()
		}

		req := execRequest{
			inst:         inst,
			sig:          sig,
			symbol:       symbol,
			lastClose:    last.Close,
			account:      account,
			atr:          atr,
			outsideHours: outsideHours,
			now:          now,
		}
		select {
		case c.execCh <- req:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// runExecutionLane is the single goroutine permitted to call the broker
// adapter for order submission: strategy workers only ever build
// execRequests and hand them off, never call ExecuteSignal themselves
// (spec §4.4.4, §5).
func (c *Controller) runExecutionLane(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case req := <-c.execCh:
			c.submit(req)
		}
	}
}

func (c *Controller) submit(req execRequest) {
	var prior types.Position
	if pos, held := req.inst.state.Positions[req.symbol]; held && pos != nil {
		prior = *pos
	}
	tr, err := req.inst.state.ExecuteSignal(req.sig, strategy.ExecContext{
		Broker:              c.broker,
		Sizer:               c.sizer,
		Account:             req.account,
		ATR:                 req.atr,
		Simulate:            c.cycleDegraded,
		OutsideTradingHours: req.outsideHours,
		Now:                 req.now,
		Location:            c.loc,
		Journal:             c.journal,
		Recorder:            c.recorder,
	})
	if err != nil {
		c.logger.Warn("execute signal error", zap.String("symbol", req.symbol), zap.Error(err))
		return
	}
	closing := (prior.IsLong() && req.sig.Action == types.ActionSell) || (prior.IsShort() && req.sig.Action == types.ActionBuy)
	if tr.Status == types.StatusExecuted && c.perfSidecar != nil && closing {
		win := req.lastClose.GreaterThan(prior.AvgCost)
		if prior.IsShort() {
			win = req.lastClose.LessThan(prior.AvgCost)
		}
		c.perfSidecar.Record(journal.Outcome{
			SignalHash:      req.sig.SignalHash,
			Symbol:          req.symbol,
			EntryPrice:      prior.AvgCost,
			ExitPrice:       req.lastClose,
			HoldingDuration: req.now.Sub(prior.EntryTime),
			Win:             win,
			ClosedAt:        req.now,
		})
	}
}

func forceCloseSignal(symbol string, pos *types.Position, price decimal.Decimal) *types.Signal {
	size := pos.Size
	if size < 0 {
		size = -size
	}
	action := types.ActionSell
	if pos.IsShort() {
		action = types.ActionBuy
	}
	return &types.Signal{
		Symbol:           symbol,
		SignalType:       types.SignalCloseAllPositions,
		Action:           action,
		ReferencePrice:   price,
		PositionSize:     size,
		Confidence:       1.0,
		Reason:           "scheduled close-all-positions",
		ForceMarketOrder: true,
		SignalHash:       strategy.SignalHash(symbol, types.SignalCloseAllPositions, action, "forced", price),
		GeneratedAt:      time.Now(),
	}
}

func withinTradingHours(now time.Time, hours config.TradingHours) bool {
	if hours.Start == "" || hours.End == "" {
		return true
	}
	start := parseClock(now, hours.Start)
	end := parseClock(now, hours.End)
	return !now.Before(start) && now.Before(end)
}

func afterClock(now time.Time, hhmm string) bool {
	return !now.Before(parseClock(now, hhmm))
}

func parseClock(now time.Time, hhmm string) time.Time {
	var h, m int
	fmt.Sscanf(hhmm, "%d:%d", &h, &m)
	return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

