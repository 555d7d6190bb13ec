package export

import (
	"bytes"
	"math"
	"strconv"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

// jsonSeries is a series with non-finite values replaced by nil, which JSON
// can represent as null
type jsonSeries struct {
	FS      []*float64
	Samples []*float64
	Tstamps []*float64
}

func sanitize(series *signal.Series) jsonSeries {
	return jsonSeries{
		FS:      finiteOrNil(series.FS),
		Samples: finiteOrNil(series.Samples),
		Tstamps: finiteOrNil(series.Tstamps),
	}
}

func finiteOrNil(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
			out[i] = &values[i]
		}
	}
	return out
}

// encodeJSON writes the series as an indented object whose numeric arrays
// are kept on a single line each:
//
//	{
//	  "fs": [4, 4],
//	  "samples": [0.1, null],
//	  "tstamps": [1718000000, 1718000000.25]
//	}
func encodeJSON(series *signal.Series) ([]byte, error) {
	s := sanitize(series)

	fields := []struct {
		name   string
		values []*float64
	}{
		{"fs", s.FS},
		{"samples", s.Samples},
		{"tstamps", s.Tstamps},
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, f := range fields {
		buf.WriteString(`  "`)
		buf.WriteString(f.name)
		buf.WriteString(`": `)
		writeJSONArray(&buf, f.values)
		if i < len(fields)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	return buf.Bytes(), nil
}

func writeJSONArray(buf *bytes.Buffer, values []*float64) {
	buf.WriteByte('[')
	var scratch []byte
	for i, v := range values {
		if i > 0 {
			buf.WriteString(", ")
		}
		if v == nil {
			buf.WriteString("null")
			continue
		}
		scratch = appendJSONFloat(scratch[:0], *v)
		buf.Write(scratch)
	}
	buf.WriteByte(']')
}

// appendJSONFloat formats a finite float the way encoding/json does
func appendJSONFloat(b []byte, f float64) []byte {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}

	b = strconv.AppendFloat(b, f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return b
}
