package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

const (
	dpi            = 120.0
	fontSize       = 9.0
	tickMarkLength = 5
	pixelsPerLabel = 150.0

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 90
	defaultBottomBorder = 70
	defaultRightBorder  = 40

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

var (
	lineColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	gridColor  = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	frameColor = color.Black
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Space for the title
	Left   int // Space for the value scale
	Bottom int // Space for the time scale and information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for chart rendering
type RenderConfig struct {
	TimeFormat     string         // Format string for time ticks (e.g. "15:04:05")
	DatetimeFormat string         // Format string for date/time display
	Location       *time.Location // Timezone for time display
	FontSize       float64        // Font size in points
	Measure        signal.Measure // Measure shown in the title
	BorderConfig   BorderConfig
}

// ChartRenderer draws a merged series as a line chart
type ChartRenderer struct {
	config RenderConfig
}

// NewChartRenderer creates a new chart renderer with the given configuration
func NewChartRenderer(config RenderConfig) *ChartRenderer {
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &ChartRenderer{config: config}
}

// Render creates an image of the chart data with annotations
func (r *ChartRenderer) Render(chart *ChartData) (*image.RGBA, error) {
	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, chart.Width+b.Left+b.Right, chart.Height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	plot := image.Rect(b.Left, b.Top, b.Left+chart.Width, b.Top+chart.Height)

	ann, err := newAnnotator(r.config, plot)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err = ann.annotate(img, chart); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	drawFrame(img, plot)
	renderLine(img, plot, chart)

	return img, nil
}

// renderLine draws every valid column as a vertical span from its minimum to
// its maximum, joined to the previous column when that one has data too
func renderLine(img *image.RGBA, plot image.Rectangle, chart *ChartData) {
	scale := func(v float64) int {
		ratio := (v - chart.ValueMin) / (chart.ValueMax - chart.ValueMin)
		y := plot.Max.Y - 1 - int(math.Round(ratio*float64(plot.Dy()-1)))
		return min(max(y, plot.Min.Y), plot.Max.Y-1)
	}

	for x, col := range chart.Columns {
		if !col.Valid() {
			continue
		}

		top, bottom := scale(col.Max), scale(col.Min)
		if x > 0 && chart.Columns[x-1].Valid() {
			prev := scale(chart.Columns[x-1].Last)
			top, bottom = min(top, prev), max(bottom, prev)
		}

		for y := top; y <= bottom; y++ {
			img.Set(plot.Min.X+x, y, lineColor)
		}
	}
}

func drawFrame(img *image.RGBA, plot image.Rectangle) {
	for x := plot.Min.X - 1; x <= plot.Max.X; x++ {
		img.Set(x, plot.Min.Y-1, frameColor)
		img.Set(x, plot.Max.Y, frameColor)
	}
	for y := plot.Min.Y - 1; y <= plot.Max.Y; y++ {
		img.Set(plot.Min.X-1, y, frameColor)
		img.Set(plot.Max.X, y, frameColor)
	}
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	plot     image.Rectangle
	fontFace font.Face
}

func newAnnotator(config RenderConfig, plot image.Rectangle) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		plot:    plot,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, chart *ChartData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawTitle(chart); err != nil {
		return fmt.Errorf("drawing title: %w", err)
	}
	if err := a.drawValueScale(img, chart); err != nil {
		return fmt.Errorf("drawing value scale: %w", err)
	}
	if err := a.drawTimeScale(img, chart); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, chart); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawTitle(chart *ChartData) error {
	title := fmt.Sprintf("%s (%d segments)", strings.ToUpper(string(a.config.Measure)), chart.Segments)
	textY := a.plot.Min.Y - (a.config.BorderConfig.Top-a.fontHeight())/2 - a.fontFace.Metrics().Descent.Round()

	_, err := a.context.DrawString(title, freetype.Pt(a.plot.Min.X, textY))
	return err
}

func (a *annotator) drawValueScale(img *image.RGBA, chart *ChartData) error {
	step := calculateNiceValueStep(chart.ValueMax-chart.ValueMin, chart.Height)
	start := math.Ceil(chart.ValueMin/step) * step
	halfHeight := a.fontHeight() / 2

	for v := start; v <= chart.ValueMax; v += step {
		ratio := (v - chart.ValueMin) / (chart.ValueMax - chart.ValueMin)
		y := a.plot.Max.Y - 1 - int(math.Round(ratio*float64(chart.Height-1)))

		for x := a.plot.Min.X; x < a.plot.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
		for x := a.plot.Min.X - tickMarkLength; x < a.plot.Min.X; x++ {
			img.Set(x, y, frameColor)
		}

		label := formatValue(v, step)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(a.plot.Min.X-tickMarkLength-3-width, y+halfHeight-a.fontFace.Metrics().Descent.Round())
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing value label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, chart *ChartData) error {
	duration := chart.Duration()
	if duration <= 0 {
		return nil
	}

	step := calculateNiceTimeStep(duration, chart.Width)
	first := chart.TimestampStart.Truncate(step)
	if first.Before(chart.TimestampStart) {
		first = first.Add(step)
	}

	textY := a.plot.Max.Y + tickMarkLength + a.fontHeight()
	for t := first; !t.After(chart.TimestampEnd); t = t.Add(step) {
		ratio := float64(t.Sub(chart.TimestampStart)) / float64(duration)
		x := a.plot.Min.X + int(math.Round(ratio*float64(chart.Width-1)))

		for y := a.plot.Max.Y; y < a.plot.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, frameColor)
		}

		label := t.In(a.config.Location).Format(a.config.TimeFormat)
		width := font.MeasureString(a.fontFace, label).Round()
		if _, err := a.context.DrawString(label, freetype.Pt(x-width/2, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, chart *ChartData) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Time: %s - %s",
		chart.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		chart.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Samples: %s", humanize.Comma(int64(chart.Samples))))

	if chart.Width > 0 && chart.Duration() > 0 {
		perPixel := chart.Duration() / time.Duration(chart.Width)
		sb.WriteString("; ")
		sb.WriteString(fmt.Sprintf("1px = %s", perPixel.Round(time.Millisecond)))
	}

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - (a.config.BorderConfig.Bottom/2-a.fontHeight())/2 - metrics.Descent.Round()

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(a.plot.Min.X, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// calculateNiceValueStep picks a 1, 2 or 5 times power of ten step giving
// roughly one label per 50 pixels of height
func calculateNiceValueStep(span float64, height int) float64 {
	if span <= 0 {
		return 1
	}

	desiredSteps := max(float64(height)/50, 2)
	rough := span / desiredSteps
	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))

	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * magnitude; step >= rough {
			return step
		}
	}
	return 10 * magnitude
}

func formatValue(v, step float64) string {
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step)))
	}
	return humanize.FormatFloat("#,###."+strings.Repeat("#", decimals), v)
}

func calculateNiceTimeStep(duration time.Duration, width int) time.Duration {
	desiredSteps := max(float64(width)/pixelsPerLabel, 2)
	roughStep := duration.Seconds() / desiredSteps

	niceIntervals := []float64{
		1, 2, 5, 10, 15, 30, // seconds
		60, 120, 300, 600, 900, 1800, // minutes
		3600, 7200, 14400, 21600, 43200, // hours
	}

	for _, interval := range niceIntervals {
		if roughStep <= interval {
			return time.Duration(interval) * time.Second
		}
	}

	return 24 * time.Hour
}
