package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roman-kulish/wristband-extract/internal/signal"
	"github.com/roman-kulish/wristband-extract/internal/storage"
)

// encodeSQLite stores the series in a fresh database file and returns the
// content of that file
func encodeSQLite(ctx context.Context, series *signal.Series, o options) (data []byte, err error) {
	if err = series.Validate(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "wristband-export-*")
	if err != nil {
		return nil, fmt.Errorf("creating temporary directory: %w", err)
	}
	defer os.RemoveAll(dir)

	dbPath := filepath.Join(dir, "series.sqlite")
	store := storage.NewSqliteStore(dbPath, storage.WithRollbackJournal())
	defer closeWithError(store, &err)

	id, err := store.CreateExtraction(ctx, o.measure, o.sources)
	if err != nil {
		return nil, fmt.Errorf("creating extraction: %w", err)
	}
	if err = store.StoreSeries(ctx, id, series); err != nil {
		return nil, fmt.Errorf("storing series: %w", err)
	}
	if err = store.Close(); err != nil {
		return nil, fmt.Errorf("closing database: %w", err)
	}

	return os.ReadFile(dbPath)
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
