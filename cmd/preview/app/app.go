package app

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/wristband-extract/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	if _, err = os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	extraction, err := store.Extraction(ctx, config.ExtractionID)
	if err != nil {
		return fmt.Errorf("reading extraction %d: %w", config.ExtractionID, err)
	}

	series, err := store.ReadSeries(ctx, config.ExtractionID)
	if err != nil {
		return fmt.Errorf("reading series: %w", err)
	}

	chart := NewChartData(series, config.Width, config.Height, ValueRange{
		Min: config.MinValue,
		Max: config.MaxValue,
	})

	logger.Info("finished reading series",
		slog.Group("stats",
			slog.String("measure", string(extraction.Measure)),
			slog.Int("segments", chart.Segments),
			slog.Int("samples", chart.Samples),
			slog.String("minTimestamp", chart.TimestampStart.In(config.TimeZone).Format(time.DateTime)),
			slog.String("maxTimestamp", chart.TimestampEnd.In(config.TimeZone).Format(time.DateTime)),
			slog.String("minValue", fmt.Sprintf("%0.3f", chart.ValueMin)),
			slog.String("maxValue", fmt.Sprintf("%0.3f", chart.ValueMax)),
		))

	renderer := NewChartRenderer(RenderConfig{
		Location: config.TimeZone,
		Measure:  extraction.Measure,
	})

	logger.Info("rendering chart",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", chart.Width),
			slog.Int("height", chart.Height),
		))

	img, err := renderer.Render(chart)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	return encodeImage(out, img, config.Format)
}

func encodeImage(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 98})
	default:
		return png.Encode(w, img)
	}
}
