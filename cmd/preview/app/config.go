package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"

	defaultWidth  = 1600
	defaultHeight = 400
)

type ImageFormat string

type Config struct {
	DBPath       string
	ExtractionID int64
	OutputFile   string
	Format       ImageFormat
	Width        int
	Height       int
	MinValue     *float64
	MaxValue     *float64
	TimeZone     *time.Location
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		ExtractionID: 1,
		Format:       ImagePNG,
		Width:        defaultWidth,
		Height:       defaultHeight,
		TimeZone:     time.Local,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return newConfigFromArgs(flag.CommandLine, os.Args[1:])
}

func newConfigFromArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat, timeZone string
	var minValue, maxValue float64
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.ExtractionID, "e", 1, "Extraction ID")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.IntVar(&c.Width, "w", defaultWidth, "Plot width in pixels")
	fs.IntVar(&c.Height, "h", defaultHeight, "Plot height in pixels")
	fs.Float64Var(&minValue, "min", 0, "Define a manual minimum of the value scale")
	fs.Float64Var(&maxValue, "max", 0, "Define a manual maximum of the value scale")
	fs.StringVar(&timeZone, "tz", "Local", "Time zone of the time scale, e.g. Europe/Rome")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "min" {
			c.MinValue = &minValue
		}
		if f.Name == "max" {
			c.MaxValue = &maxValue
		}
	})

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.ExtractionID <= 0 {
		err = errors.New("extraction id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if c.Width < minPlotSize || c.Height < minPlotSize {
		err = fmt.Errorf("plot must be at least %dx%d pixels", minPlotSize, minPlotSize)
	} else if c.MinValue != nil && c.MaxValue != nil && *c.MinValue >= *c.MaxValue {
		err = errors.New("minimum value must be below maximum value")
	} else if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
		err = fmt.Errorf("invalid time zone: %w", err)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
