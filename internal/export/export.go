package export

import (
	"context"
	"fmt"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

// Artifact is a serialized series ready to be downloaded or written to disk
type Artifact struct {
	Data     []byte
	Filename string
	MIMEType string
}

type options struct {
	measure signal.Measure
	sources []string
}

// WithMeasure records the extracted measure in formats which carry metadata
func WithMeasure(m signal.Measure) func(*options) {
	return func(o *options) {
		o.measure = m
	}
}

// WithSources records the merged segment identifiers in formats which carry metadata
func WithSources(sources []string) func(*options) {
	return func(o *options) {
		o.sources = sources
	}
}

// Serialize encodes the series in the given format. The artifact is named
// stem.ext after the canonical extension of the format. On error no artifact
// is returned and the series is left untouched.
func Serialize(ctx context.Context, series *signal.Series, format Format, stem string, opts ...func(*options)) (*Artifact, error) {
	if series == nil {
		return nil, &signal.InputError{Reason: "no series to serialize"}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var data []byte
	var err error
	switch format {
	case Pickle:
		data, err = encodePickle(series)
	case JSON:
		data, err = encodeJSON(series)
	case CSV:
		data, err = encodeCSV(series)
	case SQLite:
		data, err = encodeSQLite(ctx, series, o)
	default:
		return nil, &UnsupportedFormatError{Value: format.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}

	return &Artifact{
		Data:     data,
		Filename: fmt.Sprintf("%s.%s", stem, format.Extension()),
		MIMEType: format.MIMEType(),
	}, nil
}

// SerializeNamed is Serialize for a format given by name
func SerializeNamed(ctx context.Context, series *signal.Series, format, stem string, opts ...func(*options)) (*Artifact, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return Serialize(ctx, series, f, stem, opts...)
}
