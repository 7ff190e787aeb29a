package fieldbase

import (
	"context"

	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
)

// ExportJSONL writes one JSON lines file per table of the database to dir.
func (e *Engine) ExportJSONL(ctx context.Context, dir string) error {
	return e.view(ctx, func(tx *sqlite.Tx) error {
		return tx.ExportJSONL(dir)
	})
}

// ImportJSONL loads the JSON lines files in dir. Rows whose id already
// exists are skipped and counted.
func (e *Engine) ImportJSONL(ctx context.Context, dir string) (*ImportStats, error) {
	var stats *ImportStats
	err := e.update(ctx, "import", func(tx *sqlite.Tx) error {
		var err error
		stats, err = tx.ImportJSONL(dir)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Infow("imported backup", "dir", dir, "loaded", stats.Loaded, "skipped", stats.Skipped)
	return stats, nil
}
