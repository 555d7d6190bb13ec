package app

import (
	"math"
	"time"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

const minPlotSize = 50

// Column aggregates the samples falling into one pixel column of the plot
type Column struct {
	Min, Max    float64
	First, Last float64
	Count       int
}

// Valid reports whether the column received at least one finite sample
func (c Column) Valid() bool {
	return c.Count > 0
}

// ChartData is a series reduced to one Column per pixel of the plot width
type ChartData struct {
	Width, Height                int
	ValueMin, ValueMax           float64
	TimestampStart, TimestampEnd time.Time
	Samples                      int
	Segments                     int
	Columns                      []Column
}

// ValueRange optionally overrides the value scale
type ValueRange struct {
	Min, Max *float64
}

// NewChartData bins the series into width columns by timestamp. Samples with
// a non-finite value or timestamp are left out, which breaks the line.
func NewChartData(series *signal.Series, width, height int, vr ValueRange) *ChartData {
	c := &ChartData{
		Width:    width,
		Height:   height,
		ValueMin: math.Inf(1),
		ValueMax: math.Inf(-1),
		Samples:  series.Len(),
		Segments: len(series.FS),
		Columns:  make([]Column, width),
	}

	tMin, tMax := math.Inf(1), math.Inf(-1)
	for i, t := range series.Tstamps {
		if !finite(t) || i >= len(series.Samples) || !finite(series.Samples[i]) {
			continue
		}
		tMin, tMax = min(tMin, t), max(tMax, t)
	}
	if math.IsInf(tMin, 1) {
		c.ValueMin, c.ValueMax = 0, 1
		c.applyRange(vr)
		return c
	}

	c.TimestampStart = epoch(tMin)
	c.TimestampEnd = epoch(tMax)

	span := tMax - tMin
	for i, t := range series.Tstamps {
		if i >= len(series.Samples) {
			break
		}
		v := series.Samples[i]
		if !finite(t) || !finite(v) {
			continue
		}

		x := 0
		if span > 0 {
			x = int((t - tMin) / span * float64(width-1))
		}
		c.Columns[x].add(v)

		c.ValueMin = min(c.ValueMin, v)
		c.ValueMax = max(c.ValueMax, v)
	}

	c.applyRange(vr)
	return c
}

func (c *ChartData) applyRange(vr ValueRange) {
	if vr.Min != nil {
		c.ValueMin = *vr.Min
	}
	if vr.Max != nil {
		c.ValueMax = *vr.Max
	}
	if c.ValueMin >= c.ValueMax {
		mid := c.ValueMin
		c.ValueMin, c.ValueMax = mid-1, mid+1
	}
}

// Duration is the time covered by the plot
func (c *ChartData) Duration() time.Duration {
	return c.TimestampEnd.Sub(c.TimestampStart)
}

func (col *Column) add(v float64) {
	if col.Count == 0 {
		col.Min, col.Max, col.First = v, v, v
	}
	col.Min = min(col.Min, v)
	col.Max = max(col.Max, v)
	col.Last = v
	col.Count++
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func epoch(seconds float64) time.Time {
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}
