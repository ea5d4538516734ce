package strategy

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/pkg/money"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TieredTakeProfit is one (threshold, confidence) pair in the tiered
// take-profit ladder of spec §4.4.2.
type TieredTakeProfit struct {
	Threshold  float64
	Confidence float64
}

// DefaultTakeProfitLadder is the ordered ladder from spec §4.4.2; the
// highest threshold met wins.
var DefaultTakeProfitLadder = []TieredTakeProfit{
	{0.02, 0.7},
	{0.05, 0.8},
	{0.10, 0.9},
	{0.20, 1.0},
}

// State is the per-strategy instance state of spec §3's StrategyState:
// positions, signal cache, executed-set, config and running counters.
// It is confined to the owning worker; spec §9 notes a mutex is only
// needed if strategies are ever shared across workers, which they are
// not here, so State carries no lock of its own.
type State struct {
	ID     string
	Config config.StrategyConfig
	Logger *zap.Logger

	Positions map[string]*types.Position // symbol -> position, read-through cache of broker truth

	cooldowns   map[string]time.Time // signal_hash -> expiration
	executedSet map[string]bool      // signal_hash -> acted on this cycle

	soldToday map[string]bool // symbol -> sold already today, same_day_sell_only gate
	dayMark   time.Time

	SignalsGenerated int64
	TradesExecuted   int64
}

func NewState(id string, cfg config.StrategyConfig, logger *zap.Logger) *State {
	return &State{
		ID:          id,
		Config:      cfg,
		Logger:      logger.With(zap.String("strategy", id)),
		Positions:   make(map[string]*types.Position),
		cooldowns:   make(map[string]time.Time),
		executedSet: make(map[string]bool),
		soldToday:   make(map[string]bool),
	}
}

// SignalHash implements spec §4.4.1: first8(md5(symbol_signalType_action_reason_bucket(price))),
// where bucket(price) = floor(price*100)/5. Signals within the same
// 5-cent bucket collide deliberately.
func SignalHash(symbol string, signalType types.SignalType, action types.Action, reason string, price decimal.Decimal) string {
	bucket := money.Bucket(price)
	raw := fmt.Sprintf("%s_%s_%s_%s_%s", symbol, signalType, action, reason, bucket.String())
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:8]
}

// InCooldown reports whether hash is currently suppressed, pruning expired
// entries lazily as it goes.
func (s *State) InCooldown(hash string) bool {
	exp, ok := s.cooldowns[hash]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.cooldowns, hash)
		return false
	}
	return true
}

// AddCooldown puts hash into cooldown for window, evicting any expired
// entries opportunistically.
func (s *State) AddCooldown(hash string, window time.Duration) {
	now := time.Now()
	for h, exp := range s.cooldowns {
		if now.After(exp) {
			delete(s.cooldowns, h)
		}
	}
	s.cooldowns[hash] = now.Add(window)
}

// ResetCycle clears the executed-set and rolls soldToday over at a
// calendar-day boundary. Called once per cycle, before any signal is
// executed.
func (s *State) ResetCycle(now time.Time, loc *time.Location) {
	s.executedSet = make(map[string]bool)
	if s.soldToday == nil || !sameDay(s.dayMark, now, loc) {
		s.soldToday = make(map[string]bool)
		s.dayMark = now
	}
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	if a.IsZero() {
		return false
	}
	a, b = a.In(loc), b.In(loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MarkExecuted records hash as acted on this cycle. It returns false if the
// hash was already marked, implementing the within-cycle duplicate guard
// (spec §4.4.1: "an ExecutedSignalSet prevents the same hash from firing
// twice even if two strategies produce it").
func (s *State) MarkExecuted(hash string) bool {
	if s.executedSet[hash] {
		return false
	}
	s.executedSet[hash] = true
	return true
}

// SyncPositionsFromBroker overwrites the position cache with broker truth,
// per spec §9: positions are a read-through cache, writable only by
// reconciliation and by the post-EXECUTED update in ExecuteSignal.
func (s *State) SyncPositionsFromBroker(brokerPositions []types.BrokerPosition) {
	fresh := make(map[string]*types.Position, len(brokerPositions))
	for _, bp := range brokerPositions {
		if bp.Size == 0 {
			continue
		}
		prior, existed := s.Positions[bp.Symbol]
		pos := &types.Position{Symbol: bp.Symbol, Size: bp.Size, AvgCost: bp.AvgCost}
		if existed {
			// Preserve entry time and trailing watermarks across
			// reconciliation when the broker confirms the same position.
			pos.EntryTime = prior.EntryTime
			pos.HighestPrice = prior.HighestPrice
			pos.LowestPrice = prior.LowestPrice
		} else {
			pos.EntryTime = time.Now()
		}
		fresh[bp.Symbol] = pos
	}
	s.Positions = fresh
}

// CheckGenericExit applies the generic exit policy of spec §4.4.2: the
// first matching rule in trip order wins. The cycle controller calls this
// before a strategy's bespoke ExitChecker and consults the bespoke rules
// only when it returns nil.
func CheckGenericExit(pos *types.Position, symbol string, price decimal.Decimal, now time.Time, cfg config.StrategyConfig, unrealizedPnL *decimal.Decimal, forceCloseTime string) *types.Signal {
	if pos == nil || pos.IsFlat() {
		return nil
	}

	isShort := pos.IsShort()
	pctChange := money.PercentChange(pos.AvgCost, price, isShort)
	size := pos.Size
	if size < 0 {
		size = -size
	}

	// 1. Max holding time.
	if maxHold := cfg.MaxHolding(); maxHold > 0 && now.Sub(pos.EntryTime) >= maxHold {
		return exitSignal(symbol, types.SignalMaxHolding, pos, price, size, 1.0, "max holding time reached")
	}

	// 2. Forced close at configured time, if any position is still open.
	if forceCloseTime != "" && afterClockTime(now, forceCloseTime) {
		return exitSignal(symbol, types.SignalForceClose, pos, price, size, 1.0, "force close time reached")
	}

	// 3. Stop loss.
	if cfg.StopLossPct > 0 && pctChange.LessThanOrEqual(decimal.NewFromFloat(-cfg.StopLossPct)) {
		return exitSignal(symbol, types.SignalStopLoss, pos, price, size, 1.0, "stop loss triggered")
	}

	// 4. Tiered take-profit, highest threshold met wins; a single
	// take_profit_pct is also honored with confidence 1.0.
	if cfg.TakeProfitPct > 0 && pctChange.GreaterThanOrEqual(decimal.NewFromFloat(cfg.TakeProfitPct)) {
		return exitSignal(symbol, types.SignalTakeProfit, pos, price, size, 1.0, "take profit reached")
	}
	pctFloat, _ := pctChange.Float64()
	for i := len(DefaultTakeProfitLadder) - 1; i >= 0; i-- {
		tier := DefaultTakeProfitLadder[i]
		if pctFloat >= tier.Threshold {
			return exitSignal(symbol, types.SignalTakeProfit, pos, price, size, tier.Confidence,
				fmt.Sprintf("tiered take profit at %.0f%%", tier.Threshold*100))
		}
	}

	// 5. PnL-based take-profit.
	if unrealizedPnL != nil && cfg.TakeProfitPnLThresh > 0 &&
		unrealizedPnL.GreaterThanOrEqual(decimal.NewFromFloat(cfg.TakeProfitPnLThresh)) {
		return exitSignal(symbol, types.SignalTakeProfit, pos, price, size, 1.0, "unrealized PnL threshold reached")
	}

	return nil
}

func exitSignal(symbol string, st types.SignalType, pos *types.Position, price decimal.Decimal, size int64, confidence float64, reason string) *types.Signal {
	action := types.ActionSell
	if pos.IsShort() {
		action = types.ActionBuy
	}
	sig := &types.Signal{
		Symbol:         symbol,
		SignalType:     st,
		Action:         action,
		ReferencePrice: price,
		PositionSize:   size,
		Confidence:     confidence,
		Reason:         reason,
		GeneratedAt:    time.Now(),
	}
	sig.SignalHash = SignalHash(symbol, st, action, reason, price)
	return sig
}

func afterClockTime(now time.Time, hhmm string) bool {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return false
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	return !now.Before(target)
}

// PassesFilters applies the generic per-strategy price/volume/confidence
// gates of spec §6's strategy_aN config block, uniformly across every
// catalog strategy regardless of how its signal was produced.
func (s *State) PassesFilters(sig types.Signal, lastVolume int64, skipVolumeCheck bool) bool {
	if s.Config.MinConfidence > 0 && sig.Confidence < s.Config.MinConfidence {
		return false
	}
	price := sig.ReferencePrice
	if s.Config.MinPrice > 0 && price.LessThan(decimal.NewFromFloat(s.Config.MinPrice)) {
		return false
	}
	if s.Config.MaxPrice > 0 && price.GreaterThan(decimal.NewFromFloat(s.Config.MaxPrice)) {
		return false
	}
	if !skipVolumeCheck && s.Config.MinVolume > 0 && lastVolume < s.Config.MinVolume {
		return false
	}
	return true
}

// UpdateTrailingWatermarks updates highest_price / lowest_price on an open
// position. Per spec §9 these are mutated only from the exit check and
// reset when the position goes flat (handled in SyncPositionsFromBroker,
// which drops flat positions from the cache entirely).
func UpdateTrailingWatermarks(pos *types.Position, price decimal.Decimal) {
	if pos.HighestPrice.IsZero() || price.GreaterThan(pos.HighestPrice) {
		pos.HighestPrice = price
	}
	if pos.LowestPrice.IsZero() || price.LessThan(pos.LowestPrice) {
		pos.LowestPrice = price
	}
}
