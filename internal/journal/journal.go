// Package journal implements the append-only trade journal of spec §6
// (data/trades.json, capped at 100 records) and the observational
// signal-performance sidecar supplementing it per SPEC_FULL.md §5.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxRecords = 100

// Journal is an append-only, size-capped trade log persisted as a single
// JSON array. Every EXECUTED, REJECTED and FAILED trade attempt is
// recorded, not just fills, so a reviewer can see why a signal never
// reached the broker.
type Journal struct {
	logger     *zap.Logger
	path       string
	maxRecords int

	mu      sync.Mutex
	records []types.TradeRecord
}

// New creates a journal backed by path, loading any pre-existing records.
// maxRecords <= 0 defaults to 100.
func New(logger *zap.Logger, path string, maxRecords int) *Journal {
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}
	j := &Journal{
		logger:     logger.With(zap.String("component", "journal")),
		path:       path,
		maxRecords: maxRecords,
	}
	if existing, err := load(path); err == nil {
		j.records = existing
	}
	return j
}

func load(path string) ([]types.TradeRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []types.TradeRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Append records tr, assigning it an ID if it doesn't already carry one,
// and persists the journal to disk. Persistence failures are logged, not
// returned: a trade that already executed must never be lost from memory
// just because the disk write failed.
func (j *Journal) Append(tr types.TradeRecord) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}

	j.mu.Lock()
	j.records = append(j.records, tr)
	if len(j.records) > j.maxRecords {
		j.records = j.records[len(j.records)-j.maxRecords:]
	}
	snapshot := make([]types.TradeRecord, len(j.records))
	copy(snapshot, j.records)
	j.mu.Unlock()

	if j.path == "" {
		return
	}
	if err := j.persist(snapshot); err != nil {
		j.logger.Warn("failed to persist trade journal", zap.Error(err))
	}
}

func (j *Journal) persist(records []types.TradeRecord) error {
	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, raw, 0o644)
}

// Records returns a snapshot of the retained trade records, most recent
// last.
func (j *Journal) Records() []types.TradeRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]types.TradeRecord, len(j.records))
	copy(out, j.records)
	return out
}
