package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/wristband-extract/internal/export"
)

// Serializer produces the artifact of one format
type Serializer interface {
	Export(ctx context.Context, format export.Format, stem string) (*export.Artifact, error)
}

// Exporter serializes a series in several formats concurrently and writes
// the artifacts to a single directory
type Exporter struct {
	serializer Serializer
	directory  string
	logger     *slog.Logger
}

// NewExporter creates a new Exporter
func NewExporter(serializer Serializer, directory string, logger *slog.Logger) *Exporter {
	return &Exporter{
		serializer: serializer,
		directory:  directory,
		logger:     logger,
	}
}

type exportResult struct {
	format export.Format
	path   string
	size   int
	err    error
}

// Run exports every format and returns the written paths in the order of
// formats. All formats are attempted; failures are joined into the error.
func (e *Exporter) Run(ctx context.Context, formats []export.Format, stem string) ([]string, error) {
	if err := os.MkdirAll(e.directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var wg sync.WaitGroup
	results := make([]exportResult, len(formats))
	for i, f := range formats {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.write(ctx, f, stem)
		}()
	}
	wg.Wait()

	var paths []string
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("exporting %s: %w", r.format, r.err))
			continue
		}

		if r.format.DropsSamplingFrequency() {
			e.logger.Warn(fmt.Sprintf("%s output does not carry sampling frequencies", r.format), slog.String("path", r.path))
		}
		e.logger.Info("wrote "+r.format.String(),
			slog.String("path", r.path),
			slog.String("size", humanize.Bytes(uint64(r.size))))

		paths = append(paths, r.path)
	}

	return paths, errors.Join(errs...)
}

func (e *Exporter) write(ctx context.Context, format export.Format, stem string) exportResult {
	a, err := e.serializer.Export(ctx, format, stem)
	if err != nil {
		return exportResult{format: format, err: err}
	}

	path := filepath.Join(e.directory, a.Filename)
	if err = os.WriteFile(path, a.Data, 0o644); err != nil {
		return exportResult{format: format, err: err}
	}

	return exportResult{format: format, path: path, size: len(a.Data)}
}
