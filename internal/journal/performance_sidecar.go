package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome is one realized entry/exit pair, written once a position closes.
// It is purely observational: nothing in the order submission path reads
// it back as a gate.
type Outcome struct {
	SignalHash      string
	Symbol          string
	EntryPrice      decimal.Decimal
	ExitPrice       decimal.Decimal
	HoldingDuration time.Duration
	Win             bool
	ClosedAt        time.Time
}

// PerformanceSidecar appends realized signal outcomes to a CSV file,
// mirroring the signal_performance_*.csv artifact referenced in spec §6.
type PerformanceSidecar struct {
	logger *zap.Logger
	path   string
	mu     sync.Mutex
}

func NewPerformanceSidecar(logger *zap.Logger, path string) *PerformanceSidecar {
	return &PerformanceSidecar{
		logger: logger.With(zap.String("component", "signal_performance")),
		path:   path,
	}
}

// Record appends o to the sidecar file, writing a header row if the file
// is new.
func (p *PerformanceSidecar) Record(o Outcome) {
	if p.path == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			p.logger.Warn("failed to create sidecar directory", zap.Error(err))
			return
		}
	}

	isNew := false
	if _, err := os.Stat(p.path); os.IsNotExist(err) {
		isNew = true
	}

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		p.logger.Warn("failed to open signal performance sidecar", zap.Error(err))
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if isNew {
		_ = w.Write([]string{"signal_hash", "symbol", "entry_price", "exit_price", "holding_minutes", "win", "closed_at"})
	}
	_ = w.Write([]string{
		o.SignalHash,
		o.Symbol,
		o.EntryPrice.String(),
		o.ExitPrice.String(),
		fmt.Sprintf("%.1f", o.HoldingDuration.Minutes()),
		fmt.Sprintf("%t", o.Win),
		o.ClosedAt.Format(time.RFC3339),
	})
}
