package export

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

var csvHeader = []string{"tstamps", "samples"}

// encodeCSV writes timestamps and samples as two columns. Sampling
// frequencies are not part of the output; non-finite values are written as
// empty cells.
func encodeCSV(series *signal.Series) ([]byte, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	row := make([]string, 2)
	for i := range series.Samples {
		row[0] = formatCSVFloat(series.Tstamps[i])
		row[1] = formatCSVFloat(series.Samples[i])
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCSVFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
