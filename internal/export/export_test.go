package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ogorek "github.com/kisielk/og-rek"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/wristband-extract/internal/signal"
	"github.com/roman-kulish/wristband-extract/internal/storage"
)

func testSeries() *signal.Series {
	return &signal.Series{
		FS:      []float64{4, 4},
		Samples: []float64{0.125, math.NaN(), math.Inf(-1), 2.5},
		Tstamps: []float64{1_718_000_000, 1_718_000_000.25, 1_718_000_100, 1_718_000_100.25},
	}
}

func TestSerialize_FilenamesAndMIMETypes(t *testing.T) {
	tests := []struct {
		format   Format
		filename string
		mime     string
	}{
		{Pickle, "eda.pkl", "application/octet-stream"},
		{JSON, "eda.json", "application/json"},
		{CSV, "eda.csv", "text/csv"},
		{SQLite, "eda.sqlite", "application/vnd.sqlite3"},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			a, err := Serialize(context.Background(), testSeries(), tt.format, "eda")
			require.NoError(t, err)
			assert.Equal(t, tt.filename, a.Filename)
			assert.Equal(t, tt.mime, a.MIMEType)
			assert.NotEmpty(t, a.Data)
		})
	}
}

func TestSerialize_PickleRoundTrip(t *testing.T) {
	series := testSeries()
	series.Samples[1] = math.Float64frombits(0x7ff8000000000123) // NaN with payload

	a, err := Serialize(context.Background(), series, Pickle, "x")
	require.NoError(t, err)

	obj, err := ogorek.NewDecoder(bytes.NewReader(a.Data)).Decode()
	require.NoError(t, err)

	dict, ok := obj.(map[any]any)
	require.True(t, ok, "pickle holds a dict, got %T", obj)
	require.Len(t, dict, 3)

	fields := map[string][]float64{
		"fs":      series.FS,
		"samples": series.Samples,
		"tstamps": series.Tstamps,
	}
	for k, v := range dict {
		want, ok := fields[fmt.Sprint(k)]
		require.True(t, ok, "unexpected key %v", k)

		list, ok := v.([]any)
		require.True(t, ok, "%v is %T", k, v)
		require.Len(t, list, len(want))
		for i := range want {
			got, ok := list[i].(float64)
			require.True(t, ok)
			assert.Equal(t, math.Float64bits(want[i]), math.Float64bits(got), "%v[%d]", k, i)
		}
	}
}

func TestSerialize_JSONSanitizesNonFinite(t *testing.T) {
	a, err := Serialize(context.Background(), testSeries(), JSON, "x")
	require.NoError(t, err)

	text := string(a.Data)
	assert.NotContains(t, text, "NaN")
	assert.NotContains(t, text, "Inf")
	assert.Equal(t, `{
  "fs": [4, 4],
  "samples": [0.125, null, null, 2.5],
  "tstamps": [1718000000, 1718000000.25, 1718000100, 1718000100.25]
}
`, text)

	var decoded struct {
		FS      []*float64 `json:"fs"`
		Samples []*float64 `json:"samples"`
		Tstamps []*float64 `json:"tstamps"`
	}
	require.NoError(t, json.Unmarshal(a.Data, &decoded))
	require.Len(t, decoded.Samples, 4)
	assert.Nil(t, decoded.Samples[1])
	assert.Nil(t, decoded.Samples[2])
	assert.Equal(t, 2.5, *decoded.Samples[3])
	assert.Equal(t, 1_718_000_100.25, *decoded.Tstamps[3])
}

func TestSerialize_JSONEmptySeries(t *testing.T) {
	a, err := Serialize(context.Background(), &signal.Series{}, JSON, "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fs": [], "samples": [], "tstamps": []}`, string(a.Data))
}

func TestAppendJSONFloat(t *testing.T) {
	for _, f := range []float64{0, -0.5, 1e-7, 3.2e21, 123456789.125, 1e20} {
		want, err := json.Marshal(f)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(appendJSONFloat(nil, f)))
	}
}

func TestSerialize_CSV(t *testing.T) {
	a, err := Serialize(context.Background(), testSeries(), CSV, "x")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(a.Data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "tstamps,samples", lines[0])
	assert.Equal(t, "1718000000,0.125", lines[1])
	assert.Equal(t, "1718000000.25,", lines[2])
	assert.Equal(t, "1718000100,", lines[3])
	assert.Equal(t, "1718000100.25,2.5", lines[4])
	assert.NotContains(t, string(a.Data), "fs")
	assert.True(t, CSV.DropsSamplingFrequency())
}

func TestSerialize_CSVShapeMismatch(t *testing.T) {
	series := &signal.Series{Samples: []float64{1, 2, 3}, Tstamps: []float64{1, 2}}

	a, err := Serialize(context.Background(), series, CSV, "x")
	assert.Nil(t, a)

	var shapeErr *signal.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 3, shapeErr.Samples)
	assert.Equal(t, 2, shapeErr.Tstamps)
}

func TestSerialize_SQLite(t *testing.T) {
	ctx := context.Background()
	series := testSeries()

	a, err := Serialize(ctx, series, SQLite, "x", WithMeasure(signal.EDA), WithSources([]string{"a.avro"}))
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), a.Filename)
	require.NoError(t, os.WriteFile(dbPath, a.Data, 0o644))

	store := storage.NewSqliteStore(dbPath)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	all, err := store.Extractions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, signal.EDA, all[0].Measure)
	assert.Equal(t, []string{"a.avro"}, all[0].Sources)

	got, err := store.ReadSeries(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, series.FS, got.FS)
	assert.Equal(t, series.Tstamps, got.Tstamps)
	assert.Equal(t, 2.5, got.Samples[3])
}

func TestSerializeNamed_UnsupportedFormat(t *testing.T) {
	a, err := SerializeNamed(context.Background(), testSeries(), "xml", "x")
	assert.Nil(t, a)

	var fmtErr *UnsupportedFormatError
	require.ErrorAs(t, err, &fmtErr)
	assert.Equal(t, "xml", fmtErr.Value)
	assert.Contains(t, err.Error(), `"xml"`)
}

func TestSerialize_UnknownFormatValue(t *testing.T) {
	a, err := Serialize(context.Background(), testSeries(), Format(42), "x")
	assert.Nil(t, a)

	var fmtErr *UnsupportedFormatError
	require.ErrorAs(t, err, &fmtErr)
}

func TestSerialize_LeavesSeriesUntouched(t *testing.T) {
	series := testSeries()
	before := series.Clone()

	for _, f := range Formats {
		_, err := Serialize(context.Background(), series, f, "x")
		require.NoError(t, err)
	}

	assert.Equal(t, before.FS, series.FS)
	assert.Equal(t, before.Tstamps, series.Tstamps)
	assert.True(t, math.IsNaN(series.Samples[1]))
	assert.True(t, math.IsInf(series.Samples[2], -1))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("  JSON ")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	for _, f := range Formats {
		parsed, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
}
