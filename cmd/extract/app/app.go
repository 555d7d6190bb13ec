package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/wristband-extract/internal/avro"
	"github.com/roman-kulish/wristband-extract/internal/session"
	"github.com/roman-kulish/wristband-extract/internal/signal"
	"github.com/roman-kulish/wristband-extract/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	files, err := readInput(config.Input.Directory)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	s := session.New(session.WithLogger(logger))

	warnings, err := s.Upload(ctx, files)
	if err != nil {
		return fmt.Errorf("reading segments: %w", err)
	}
	for _, w := range warnings {
		logger.Warn(w.Error())
	}

	res, err := s.Extract(ctx, config.Measure())
	if err != nil {
		return fmt.Errorf("extracting %s: %w", config.Measure(), err)
	}
	logResult(res, logger)

	series := s.Series()
	if series == nil {
		return errors.New("no data found for the selected measure")
	}

	if config.Storage.DataDirectory != "" {
		if err = archive(ctx, &config.Storage, config.Measure(), s.Sources(), series, logger); err != nil {
			return err
		}
	}

	exporter := NewExporter(s, config.Output.Directory, logger)
	if _, err = exporter.Run(ctx, config.ExportFormats(), config.Output.Name); err != nil {
		return err
	}

	return nil
}

// readInput loads every regular file of the directory. Filtering and
// ordering of the segments is left to the session.
func readInput(dir string) ([]avro.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []avro.File
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, avro.File{Name: entry.Name(), Data: data})
	}

	return files, nil
}

func logResult(res *signal.Result, logger *slog.Logger) {
	for _, w := range res.Warnings {
		logger.Warn(w.Error())
	}

	for _, g := range res.Gaps {
		logger.Info(fmt.Sprintf("time gap between segment %d and %d", g.After, g.Before),
			slog.Float64("seconds", g.Seconds))
	}

	logger.Info(fmt.Sprintf("merged %s samples", humanize.Comma(int64(res.Series.Len()))),
		slog.Int("segments", len(res.Series.FS)),
		slog.Any("skipped", res.Skipped()))
}

// archive stores the series in a new timestamped database in the data directory
func archive(ctx context.Context, config *StorageConfig, measure signal.Measure, sources []string, series *signal.Series, logger *slog.Logger) (err error) {
	stat, err := os.Stat(config.DataDirectory)
	if err != nil {
		return fmt.Errorf("storage directory '%s': %w", config.DataDirectory, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("invalid storage directory '%s'", config.DataDirectory)
	}

	dbPath := filepath.Join(config.DataDirectory, fmt.Sprintf("extraction_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	store := storage.NewSqliteStore(dbPath, storage.WithMaxBatchSize(config.MaxBatchSize))
	defer closeWithError(store, &err)

	id, err := store.CreateExtraction(ctx, measure, sources)
	if err != nil {
		return fmt.Errorf("creating extraction: %w", err)
	}
	if err = store.StoreSeries(ctx, id, series); err != nil {
		return fmt.Errorf("storing series: %w", err)
	}

	logger.Info("archived series", slog.String("path", dbPath), slog.Int64("extraction", id))
	return nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = fmt.Errorf("closing storage: %w", cErr)
	}
}
