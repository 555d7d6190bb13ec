package signal

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const microsPerSecond = 1_000_000

// Gap describes the time between two consecutive merged segments. Seconds is
// positive for a recording dropout and negative for overlapping segments.
type Gap struct {
	After   int     // 1-based position of the segment holding the previous timestamp
	Before  int     // 1-based position of the segment that starts after the gap
	Seconds float64 // Start of Before minus last timestamp of After, millisecond precision
}

// Result is the outcome of an extraction. Warnings holds one
// *MeasureExtractionError per skipped segment.
type Result struct {
	Series   *Series
	Warnings []error
	Gaps     []Gap
}

// Extract merges the given measure of every record into a single series.
// Records must already be in recording order (see segment.Sort).
//
// A record that lacks the measure or carries a malformed block is skipped and
// reported in Result.Warnings; it never fails the extraction. Extract only
// fails for an unknown measure or when ctx is done, which is checked between
// records. A record is either merged entirely or not at all.
func Extract(ctx context.Context, records []Record, measure Measure) (*Result, error) {
	if !measure.Valid() {
		return nil, &InputError{Reason: fmt.Sprintf("unknown measure %q", measure)}
	}

	res := &Result{
		Series: &Series{
			FS:      []float64{},
			Samples: []float64{},
			Tstamps: []float64{},
		},
	}

	lastSegment := 0
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		segment := i + 1
		block, err := measureBlock(rec, measure)
		if err != nil {
			res.Warnings = append(res.Warnings, &MeasureExtractionError{
				Segment: segment,
				Source:  rec.Source,
				Measure: measure,
				Err:     err,
			})
			continue
		}

		start := float64(block.StartTimeMicros) / microsPerSecond
		tstamps := timeline(start, block.SamplingFrequency, len(block.Values))

		if n := len(res.Series.Tstamps); n > 0 {
			res.Gaps = append(res.Gaps, Gap{
				After:   lastSegment,
				Before:  segment,
				Seconds: roundMillis(start - res.Series.Tstamps[n-1]),
			})
		}

		res.Series.FS = append(res.Series.FS, block.SamplingFrequency)
		res.Series.Samples = append(res.Series.Samples, block.Values...)
		res.Series.Tstamps = append(res.Series.Tstamps, tstamps...)
		if len(tstamps) > 0 {
			lastSegment = segment
		}
	}

	return res, nil
}

func measureBlock(rec Record, measure Measure) (MeasureBlock, error) {
	block, err := rec.Measure(measure)
	if err != nil {
		return MeasureBlock{}, err
	}

	fs := block.SamplingFrequency
	switch {
	case math.IsNaN(fs) || math.IsInf(fs, 0):
		return MeasureBlock{}, fmt.Errorf("sampling frequency is not finite: %v", fs)
	case fs <= 0:
		return MeasureBlock{}, fmt.Errorf("sampling frequency must be positive: %v", fs)
	case block.StartTimeMicros < 0:
		return MeasureBlock{}, fmt.Errorf("negative start time: %d", block.StartTimeMicros)
	}
	return block, nil
}

// timeline returns n timestamps evenly spaced from start to the time of the
// n-th sample at rate fs, both ends included. Every timestamp is computed from
// its index rather than by accumulation, and the last one is pinned to the end.
func timeline(start, fs float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}

	out := make([]float64, n)
	out[0] = start
	if n == 1 {
		return out
	}

	end := start + float64(n-1)/fs
	step := (end - start) / float64(n-1)
	for i := 1; i < n-1; i++ {
		out[i] = start + float64(i)*step
	}
	out[n-1] = end
	return out
}

func roundMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}

// Skipped returns the 1-based segment positions reported in warnings
func (r *Result) Skipped() []int {
	var out []int
	for _, w := range r.Warnings {
		var mErr *MeasureExtractionError
		if errors.As(w, &mErr) {
			out = append(out, mErr.Segment)
		}
	}
	return out
}
