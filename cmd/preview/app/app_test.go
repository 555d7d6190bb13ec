package app

import (
	"context"
	"flag"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/wristband-extract/internal/signal"
	"github.com/roman-kulish/wristband-extract/internal/storage"
)

func testSeries() *signal.Series {
	s := &signal.Series{FS: []float64{4, 4}}
	for i := range 40 {
		s.Tstamps = append(s.Tstamps, 1_718_000_000+float64(i)*0.25)
		s.Samples = append(s.Samples, math.Sin(float64(i)/4))
	}
	for i := range 40 {
		s.Tstamps = append(s.Tstamps, 1_718_000_100+float64(i)*0.25)
		s.Samples = append(s.Samples, 2+math.Cos(float64(i)/4))
	}
	return s
}

func TestNewChartData(t *testing.T) {
	series := testSeries()
	series.Samples[3] = math.NaN()

	chart := NewChartData(series, 100, 60, ValueRange{})
	assert.Equal(t, 80, chart.Samples)
	assert.Equal(t, 2, chart.Segments)
	assert.Equal(t, time.Unix(1_718_000_000, 0).UTC(), chart.TimestampStart)
	assert.Equal(t, time.Unix(1_718_000_109, 750_000_000).UTC(), chart.TimestampEnd)
	assert.InDelta(t, -1, chart.ValueMin, 0.1)
	assert.InDelta(t, 3, chart.ValueMax, 0.1)

	counted := 0
	for _, col := range chart.Columns {
		counted += col.Count
	}
	assert.Equal(t, 79, counted)

	assert.True(t, chart.Columns[0].Valid())
	assert.True(t, chart.Columns[99].Valid())
	assert.False(t, chart.Columns[50].Valid(), "recording gap leaves empty columns")
}

func TestNewChartData_ValueRange(t *testing.T) {
	lo, hi := -5.0, 5.0
	chart := NewChartData(testSeries(), 100, 60, ValueRange{Min: &lo, Max: &hi})
	assert.Equal(t, -5.0, chart.ValueMin)
	assert.Equal(t, 5.0, chart.ValueMax)
}

func TestNewChartData_Flat(t *testing.T) {
	series := &signal.Series{FS: []float64{1}, Samples: []float64{7}, Tstamps: []float64{1_718_000_000}}

	chart := NewChartData(series, 100, 60, ValueRange{})
	assert.Equal(t, 6.0, chart.ValueMin)
	assert.Equal(t, 8.0, chart.ValueMax)
	assert.Equal(t, 1, chart.Columns[0].Count)
	assert.Zero(t, chart.Duration())
}

func TestChartRenderer_Render(t *testing.T) {
	chart := NewChartData(testSeries(), 300, 120, ValueRange{})
	r := NewChartRenderer(RenderConfig{Location: time.UTC, Measure: signal.EDA})

	img, err := r.Render(chart)
	require.NoError(t, err)

	b := r.config.BorderConfig
	assert.Equal(t, image.Rect(0, 0, 300+b.Left+b.Right, 120+b.Top+b.Bottom), img.Bounds())

	lines := 0
	for x := b.Left; x < b.Left+300; x++ {
		for y := b.Top; y < b.Top+120; y++ {
			if img.RGBAAt(x, y) == lineColor {
				lines++
			}
		}
	}
	assert.Positive(t, lines)
}

func TestCalculateNiceValueStep(t *testing.T) {
	assert.InDelta(t, 0.5, calculateNiceValueStep(4, 400), 1e-9)
	assert.InDelta(t, 0.5, calculateNiceValueStep(1, 100), 1e-9)
	assert.InDelta(t, 20, calculateNiceValueStep(100, 300), 1e-9)
	assert.InDelta(t, 1, calculateNiceValueStep(0, 100), 1e-9)
}

func TestCalculateNiceTimeStep(t *testing.T) {
	assert.Equal(t, 15*time.Second, calculateNiceTimeStep(110*time.Second, 1600))
	assert.Equal(t, time.Hour, calculateNiceTimeStep(8*time.Hour, 1600))
	assert.Equal(t, 24*time.Hour, calculateNiceTimeStep(30*24*time.Hour, 1600))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1,200", formatValue(1200, 100))
	assert.Equal(t, "0.50", formatValue(0.5, 0.05))
	assert.Equal(t, "-2", formatValue(-2, 1))
}

func TestNewConfigFromArgs(t *testing.T) {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	c, err := newConfigFromArgs(fs, []string{"-db", "x.sqlite", "-o", "chart", "-f", "JPEG", "-min", "0", "-tz", "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "chart.jpeg", c.OutputFile)
	assert.Equal(t, ImageFormat(ImageJPEG), c.Format)
	require.NotNil(t, c.MinValue)
	assert.Equal(t, 0.0, *c.MinValue)
	assert.Nil(t, c.MaxValue)
	assert.Equal(t, time.UTC, c.TimeZone)
}

func TestNewConfigFromArgs_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no db", []string{"-o", "chart"}},
		{"no output", []string{"-db", "x.sqlite"}},
		{"bad format", []string{"-db", "x.sqlite", "-o", "chart", "-f", "gif"}},
		{"tiny plot", []string{"-db", "x.sqlite", "-o", "chart", "-w", "10"}},
		{"inverted range", []string{"-db", "x.sqlite", "-o", "chart", "-min", "2", "-max", "1"}},
		{"bad zone", []string{"-db", "x.sqlite", "-o", "chart", "-tz", "Nowhere/City"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("preview", flag.ContinueOnError)
			fs.SetOutput(io.Discard)

			_, err := newConfigFromArgs(fs, tt.args)
			assert.Error(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "series.sqlite")

	store := storage.NewSqliteStore(dbPath)
	id, err := store.CreateExtraction(ctx, signal.EDA, []string{"a.avro", "b.avro"})
	require.NoError(t, err)
	require.NoError(t, store.StoreSeries(ctx, id, testSeries()))
	require.NoError(t, store.Close())

	c := NewConfig()
	c.DBPath = dbPath
	c.ExtractionID = id
	c.OutputFile = filepath.Join(dir, "chart.png")
	c.Width, c.Height = 200, 100
	c.TimeZone = time.UTC

	require.NoError(t, Run(ctx, c, slog.New(slog.NewTextHandler(io.Discard, nil))))

	f, err := os.Open(c.OutputFile)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 200+defaultLeftBorder+defaultRightBorder, img.Bounds().Dx())
}

func TestRun_MissingDatabase(t *testing.T) {
	c := NewConfig()
	c.DBPath = filepath.Join(t.TempDir(), "missing.sqlite")
	c.OutputFile = filepath.Join(t.TempDir(), "chart.png")

	err := Run(context.Background(), c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
