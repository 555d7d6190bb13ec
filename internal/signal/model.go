package signal

import (
	"fmt"
	"slices"
	"strings"
)

const (
	EDA         Measure = "eda"
	Temperature Measure = "temperature"
	BVP         Measure = "bvp"
)

// Measure is one physiological channel recorded by the wristband
type Measure string

// Measures lists the supported measures in display order
var Measures = []Measure{EDA, Temperature, BVP}

// Valid reports whether m is one of the supported measures
func (m Measure) Valid() bool {
	return slices.Contains(Measures, m)
}

// ParseMeasure converts a user supplied measure name into a Measure
func ParseMeasure(s string) (Measure, error) {
	m := Measure(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", &InputError{Reason: fmt.Sprintf("unknown measure %q", s)}
	}
	return m, nil
}

// MeasureBlock is a single uniformly sampled run of one measure taken from
// one segment. Values[i] was sampled at StartTimeMicros/1e6 + i/SamplingFrequency.
type MeasureBlock struct {
	SamplingFrequency float64   // Sampling frequency in Hz
	StartTimeMicros   int64     // Unix epoch of the first sample, in microseconds
	Values            []float64 // Samples in acquisition order
}

// Record is the parsed content of one segment: the measure blocks it
// carries, keyed by measure name. A Record is not modified after creation.
type Record struct {
	Source   string // Segment identifier the record was read from
	Position int    // Index of the record within its source container

	blocks  map[Measure]MeasureBlock
	invalid map[Measure]error
}

// NewRecord creates a record from decoded measure blocks. Measures which were
// present in the container but could not be decoded are passed in invalid,
// so that extracting them reports the decode failure.
func NewRecord(source string, position int, blocks map[Measure]MeasureBlock, invalid map[Measure]error) Record {
	return Record{
		Source:   source,
		Position: position,
		blocks:   blocks,
		invalid:  invalid,
	}
}

// Measure returns the block of the requested measure
func (r Record) Measure(m Measure) (MeasureBlock, error) {
	if err, ok := r.invalid[m]; ok {
		return MeasureBlock{}, fmt.Errorf("malformed %s block: %w", m, err)
	}

	b, ok := r.blocks[m]
	if !ok {
		return MeasureBlock{}, fmt.Errorf("no %s block in record", m)
	}
	return b, nil
}

// Measures returns the measures available in the record
func (r Record) Measures() []Measure {
	out := make([]Measure, 0, len(r.blocks))
	for _, m := range Measures {
		if _, ok := r.blocks[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Series is the merged time series of one measure across all segments of a
// batch. Samples and Tstamps are parallel; timestamps are Unix seconds and
// are only guaranteed to be non-decreasing within a segment.
type Series struct {
	FS      []float64 `json:"fs"`      // Sampling frequency of every merged segment
	Samples []float64 `json:"samples"` // Concatenated samples
	Tstamps []float64 `json:"tstamps"` // Timestamp of every sample
}

// Len returns the number of samples in the series
func (s *Series) Len() int {
	return len(s.Samples)
}

// Empty reports whether the series holds neither samples nor timestamps
func (s *Series) Empty() bool {
	return s == nil || (len(s.Samples) == 0 && len(s.Tstamps) == 0)
}

// Validate checks that every sample has a timestamp
func (s *Series) Validate() error {
	if len(s.Samples) != len(s.Tstamps) {
		return &ShapeError{Samples: len(s.Samples), Tstamps: len(s.Tstamps)}
	}
	return nil
}

// Clone returns a deep copy of the series
func (s *Series) Clone() *Series {
	return &Series{
		FS:      slices.Clone(s.FS),
		Samples: slices.Clone(s.Samples),
		Tstamps: slices.Clone(s.Tstamps),
	}
}
