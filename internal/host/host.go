// Package host implements the strategy host of spec §4.6: a pool of
// worker goroutines, each confined to a disjoint set of (symbol,
// strategy) assignments, run either in one-shot batch mode (run_once) or
// continuously against a bounded work queue (stream_run). Adapted from
// the teacher's general-purpose goroutine pool in internal/workers/pool.go,
// trimmed to the two run modes the cycle controller actually drives and
// specialized to strategy work items instead of an opaque Task interface.
//
// Items are partitioned by StrategyID before dispatch: every item
// belonging to a given strategy always lands on the same worker, so that
// strategy's State (positions, cooldowns, executed-signal set) is never
// touched by two goroutines at once, and the symbols within a group are
// processed serially by their one worker, per spec §5. ProcessFunc must
// not place orders itself — order submission runs through the single
// controller-owned execution lane spec §4.4.4 describes, not inside
// these workers.
package host

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// WorkItem is one (symbol, strategy) assignment a worker processes.
type WorkItem struct {
	Symbol     string
	StrategyID string
}

// ProcessFunc is the per-item work the host dispatches to workers. It
// must not block on anything outside its own symbol/strategy pair —
// strategy State is confined to the worker that owns it (spec §5).
type ProcessFunc func(ctx context.Context, item WorkItem) error

// Config configures the host's worker pool.
type Config struct {
	NumWorkers      int
	ShutdownTimeout time.Duration
}

// maxWorkers caps the pool at spec's min(8, num_strategy_groups) bound.
// Strategy groups beyond this count share a worker rather than growing
// the pool further; the serializing guarantee only needs a strategy to
// always land on the same worker, not to own one exclusively.
const maxWorkers = 8

// DefaultConfig sizes the pool at spec's min(8, num_strategy_groups)
// bound; the number of strategy groups actually present each cycle
// narrows this further at dispatch time.
func DefaultConfig() Config {
	return Config{
		NumWorkers:      maxWorkers,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Metrics tracks host throughput, a trimmed version of the teacher's
// PoolMetrics: counts only, no latency histogram, since the cycle
// controller's own cycle-duration gauge (internal/observability) already
// covers the timing concern end to end.
type Metrics struct {
	ItemsProcessed  atomic.Int64
	ItemsFailed     atomic.Int64
	PanicsRecovered atomic.Int64
}

// Host runs strategy work items across a fixed worker pool, one worker
// per strategy group.
type Host struct {
	logger  *zap.Logger
	config  Config
	metrics *Metrics
	process ProcessFunc

	groupMu     sync.Mutex
	groupQueues map[string]chan WorkItem

	wg      sync.WaitGroup
	running atomic.Bool
}

// New creates a host. NumWorkers is capped at spec's 8-worker bound
// regardless of what Config requests (spec.md:224 sizes the pool as
// min(8, num_strategy_groups)).
func New(logger *zap.Logger, config Config, process ProcessFunc) *Host {
	if config.NumWorkers <= 0 {
		config = DefaultConfig()
	}
	if config.NumWorkers > maxWorkers {
		config.NumWorkers = maxWorkers
	}
	return &Host{
		logger:  logger.With(zap.String("component", "host")),
		config:  config,
		metrics: &Metrics{},
		process: process,
	}
}

// bucketFor deterministically maps a strategy_id onto one of numWorkers
// buckets, so every item belonging to that strategy always routes to the
// same worker and never races another item from the same strategy.
func bucketFor(strategyID string, numWorkers int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strategyID))
	return int(h.Sum32() % uint32(numWorkers))
}

// groupByStrategy partitions items into per-strategy-group batches,
// preserving each group's input order for serial processing.
func groupByStrategy(items []WorkItem) map[string][]WorkItem {
	groups := make(map[string][]WorkItem)
	for _, it := range items {
		groups[it.StrategyID] = append(groups[it.StrategyID], it)
	}
	return groups
}

// RunOnce dispatches items across the worker pool and blocks until every
// item has been processed (or ctx is cancelled), implementing the batch
// run_once mode of spec §4.6. One worker is assigned per strategy group
// (capped at spec's 8-worker bound); the symbols within a group are
// processed serially by that one worker.
func (h *Host) RunOnce(ctx context.Context, items []WorkItem) error {
	groups := groupByStrategy(items)
	if len(groups) == 0 {
		return nil
	}

	numWorkers := len(groups)
	if numWorkers > h.config.NumWorkers {
		numWorkers = h.config.NumWorkers
	}

	buckets := make([][]WorkItem, numWorkers)
	for strategyID, group := range groups {
		b := bucketFor(strategyID, numWorkers)
		buckets[b] = append(buckets[b], group...)
	}

	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	for workerID, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		wg.Add(1)
		go func(workerID int, items []WorkItem) {
			defer wg.Done()
			for _, item := range items {
				if ctx.Err() != nil {
					return
				}
				if err := h.runItem(ctx, workerID, item); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}(workerID, bucket)
	}
	wg.Wait()
	return firstErr
}

// StreamRun starts the worker pool in continuous mode: each item pushed
// onto feed is routed to its strategy group's queue, lazily creating
// that group's worker the first time the group is seen (up to spec's
// 8-worker bound; groups beyond that bound share a worker via
// bucketFor). It runs until ctx is cancelled or feed is closed, then
// waits up to ShutdownTimeout for in-flight items to drain.
func (h *Host) StreamRun(ctx context.Context, feed <-chan WorkItem) error {
	if h.running.Swap(true) {
		return fmt.Errorf("host: already running")
	}
	defer h.running.Store(false)

	h.groupQueues = make(map[string]chan WorkItem)

	for {
		select {
		case <-ctx.Done():
			return h.drain()
		case item, ok := <-feed:
			if !ok {
				return h.drain()
			}
			h.dispatch(ctx, item)
		}
	}
}

// dispatch routes item onto its strategy group's queue, starting that
// group's worker goroutine the first time the group is seen. Once the
// pool is at its worker cap, further new groups are folded onto an
// existing bucket instead of spawning another goroutine.
func (h *Host) dispatch(ctx context.Context, item WorkItem) {
	h.groupMu.Lock()
	key := item.StrategyID
	if _, seen := h.groupQueues[key]; !seen && len(h.groupQueues) >= h.config.NumWorkers {
		keys := make([]string, 0, len(h.groupQueues))
		for k := range h.groupQueues {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		key = keys[bucketFor(item.StrategyID, len(keys))]
	}
	queue, ok := h.groupQueues[key]
	if !ok {
		queue = make(chan WorkItem, 2*h.config.NumWorkers)
		h.groupQueues[key] = queue
		h.wg.Add(1)
		go h.groupWorker(ctx, queue)
	}
	h.groupMu.Unlock()

	select {
	case queue <- item:
	case <-ctx.Done():
	}
}

// groupWorker drains one strategy group's queue, processing its items
// one at a time for as long as the queue stays open.
func (h *Host) groupWorker(ctx context.Context, queue chan WorkItem) {
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-queue:
			if !ok {
				return
			}
			if err := h.runItem(ctx, 0, item); err != nil {
				h.metrics.ItemsFailed.Add(1)
				h.logger.Debug("work item failed",
					zap.String("symbol", item.Symbol),
					zap.String("strategy", item.StrategyID),
					zap.Error(err))
			}
		}
	}
}

func (h *Host) closeGroups() {
	h.groupMu.Lock()
	for _, queue := range h.groupQueues {
		close(queue)
	}
	h.groupMu.Unlock()
}

func (h *Host) drain() error {
	h.closeGroups()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(h.config.ShutdownTimeout):
		return fmt.Errorf("host: shutdown timed out waiting for workers to drain")
	}
}

func (h *Host) runItem(ctx context.Context, workerID int, item WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.PanicsRecovered.Add(1)
			h.logger.Error("worker recovered from panic",
				zap.Int("worker_id", workerID),
				zap.String("symbol", item.Symbol),
				zap.Any("panic", r))
			err = fmt.Errorf("host: worker %d panicked processing %s: %v", workerID, item.Symbol, r)
		}
	}()
	if procErr := h.process(ctx, item); procErr != nil {
		return procErr
	}
	h.metrics.ItemsProcessed.Add(1)
	return nil
}

// Stats returns a snapshot of processing counters.
func (h *Host) Stats() (processed, failed, panics int64) {
	return h.metrics.ItemsProcessed.Load(), h.metrics.ItemsFailed.Load(), h.metrics.PanicsRecovered.Load()
}
