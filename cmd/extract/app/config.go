package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/wristband-extract/internal/export"
	"github.com/roman-kulish/wristband-extract/internal/signal"
)

const defaultMaxBatchSize = 500

// Config represents the extract application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Input    InputConfig   `yaml:"input"`
	Extract  ExtractConfig `yaml:"extract"`
	Output   OutputConfig  `yaml:"output"`
	Storage  StorageConfig `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level returns the configured log level, info when unset or unknown
func (s Settings) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// InputConfig represents where the recorded segments are read from
type InputConfig struct {
	Directory string `yaml:"directory"`
}

// ExtractConfig represents the measure to extract
type ExtractConfig struct {
	Measure string `yaml:"measure"`
}

// OutputConfig represents how the merged series is exported
type OutputConfig struct {
	Directory string   `yaml:"directory"`
	Name      string   `yaml:"name"`
	Formats   []string `yaml:"formats"`
}

// StorageConfig represents the optional database the series is archived in
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

func NewConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: "info"},
		Extract:  ExtractConfig{Measure: string(signal.EDA)},
		Output: OutputConfig{
			Directory: ".",
			Formats:   []string{export.Pickle.String()},
		},
		Storage: StorageConfig{MaxBatchSize: defaultMaxBatchSize},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	c := NewConfig()
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return c, nil
}

// NewConfigFromCLI loads the configuration file given with -c, if any, and
// applies the flags which were set explicitly on top of it.
func NewConfigFromCLI() (*Config, error) {
	return newConfigFromArgs(flag.CommandLine, os.Args[1:])
}

func newConfigFromArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	var configPath, logLevel, inputDir, measure, outputDir, name, formats, dataDir string
	fs.StringVar(&configPath, "c", "", "Path to the configuration file")
	fs.StringVar(&logLevel, "log-level", "info", "Log level. [debug, info, warn, error]")
	fs.StringVar(&inputDir, "i", "", "Directory with the .avro segments")
	fs.StringVar(&measure, "m", string(signal.EDA), "Measure to extract. [eda, temperature, bvp]")
	fs.StringVar(&outputDir, "o", ".", "Output directory")
	fs.StringVar(&name, "n", "", "Output file name without extension, defaults to the measure")
	fs.StringVar(&formats, "f", export.Pickle.String(), "Comma separated output formats. [pickle, json, csv, sqlite]")
	fs.StringVar(&dataDir, "db-dir", "", "Directory to archive the series in an SQLite database")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c := NewConfig()
	if configPath != "" {
		var err error
		if c, err = LoadConfig(configPath); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			c.Settings.LogLevel = logLevel
		case "i":
			c.Input.Directory = inputDir
		case "m":
			c.Extract.Measure = measure
		case "o":
			c.Output.Directory = outputDir
		case "n":
			c.Output.Name = name
		case "f":
			c.Output.Formats = strings.Split(formats, ",")
		case "db-dir":
			c.Storage.DataDirectory = dataDir
		}
	})

	if err := c.Validate(); err != nil {
		fs.Usage()
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration and normalizes the measure and format names
func (c *Config) Validate() error {
	if c.Input.Directory == "" {
		return errors.New("input directory is required")
	}

	m, err := signal.ParseMeasure(c.Extract.Measure)
	if err != nil {
		return err
	}
	c.Extract.Measure = string(m)

	if len(c.Output.Formats) == 0 {
		return errors.New("at least one output format is required")
	}
	for i, name := range c.Output.Formats {
		f, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		c.Output.Formats[i] = f.String()
	}

	if c.Storage.MaxBatchSize <= 0 {
		c.Storage.MaxBatchSize = defaultMaxBatchSize
	}
	return nil
}

// Measure returns the validated measure
func (c *Config) Measure() signal.Measure {
	return signal.Measure(c.Extract.Measure)
}

// ExportFormats returns the validated output formats without duplicates
func (c *Config) ExportFormats() []export.Format {
	var out []export.Format
	seen := make(map[export.Format]struct{})
	for _, name := range c.Output.Formats {
		f, err := export.ParseFormat(name)
		if err != nil {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
