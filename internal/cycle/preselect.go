package cycle

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// runPreselect writes the batch pre-scan sidecar of SPEC_FULL.md §5: one
// row per (symbol, strategy_id) assignment evaluated this cycle, mirroring
// the preselect_signals_<date>.csv artifact referenced in spec §6. It is
// purely an audit trail; nothing downstream reads it back.
func (c *Controller) runPreselect(ctx context.Context, assignments map[string]string) error {
	dir := "data"
	path := filepath.Join(dir, fmt.Sprintf("preselect_signals_%s.csv", time.Now().Format("20060102")))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	isNew := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if isNew {
		if err := w.Write([]string{"timestamp", "symbol", "strategy_id"}); err != nil {
			return err
		}
	}
	ts := time.Now().Format(time.RFC3339)
	for symbol, stratID := range assignments {
		if err := w.Write([]string{ts, symbol, stratID}); err != nil {
			return err
		}
	}
	return nil
}
