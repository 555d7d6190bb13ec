package avro

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/linkedin/goavro/v2"

	"github.com/roman-kulish/wristband-extract/internal/segment"
	"github.com/roman-kulish/wristband-extract/internal/signal"
)

const rawDataField = "rawData"

// File is a named segment container as uploaded by the user
type File struct {
	Name string
	Data []byte
}

// WithLogger sets the logger for the reader
func WithLogger(logger *slog.Logger) func(r *Reader) {
	return func(r *Reader) {
		r.logger = logger.With(slog.String("component", "avro"))
	}
}

// Reader decodes wristband segment containers (Avro object container files)
// into signal records.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a new Reader instance with a discard logger
func NewReader(options ...func(r *Reader)) *Reader {
	r := Reader{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// ReadFiles decodes every eligible file, in recording order, and returns the
// records of all of them in that order. Files without the container suffix
// are ignored. A file which cannot be decoded is reported as a
// *signal.ContainerReadError in the returned warnings and contributes no
// records. The error is only set when ctx is done.
func (r *Reader) ReadFiles(ctx context.Context, files []File) (records []signal.Record, warnings []error, err error) {
	eligible := make([]File, 0, len(files))
	for _, f := range files {
		if segment.Eligible(f.Name) {
			eligible = append(eligible, f)
		}
	}
	segment.Sort(eligible, func(f File) string { return f.Name })

	r.logger.Info(fmt.Sprintf("%d avro files have been uploaded", len(eligible)),
		slog.Int("ignored", len(files)-len(eligible)))

	for _, f := range eligible {
		if err = ctx.Err(); err != nil {
			return nil, nil, err
		}

		recs, rErr := r.ReadFile(f)
		if rErr != nil {
			r.logger.Error("failed to read segment", slog.String("file", f.Name), slog.String("error", rErr.Error()))
			warnings = append(warnings, rErr)
			continue
		}

		r.logger.Info("read raw data",
			slog.String("file", f.Name),
			slog.String("size", humanize.Bytes(uint64(len(f.Data)))),
			slog.Int("records", len(recs)))

		records = append(records, recs...)
	}

	return records, warnings, nil
}

// ReadFile decodes a single container. All of its records are returned, or
// none when the container itself cannot be decoded. Records with a malformed
// rawData are returned too; extracting any measure from them fails.
func (r *Reader) ReadFile(f File) ([]signal.Record, error) {
	ocf, err := goavro.NewOCFReader(bytes.NewReader(f.Data))
	if err != nil {
		return nil, &signal.ContainerReadError{Source: f.Name, Err: fmt.Errorf("opening container: %w", err)}
	}

	var records []signal.Record
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, &signal.ContainerReadError{Source: f.Name, Err: fmt.Errorf("reading record %d: %w", len(records), err)}
		}

		records = append(records, toRecord(f.Name, len(records), datum))
	}
	if err = ocf.Err(); err != nil {
		return nil, &signal.ContainerReadError{Source: f.Name, Err: err}
	}

	return records, nil
}

// toRecord converts one decoded datum. A datum without a usable rawData
// record still yields a record, with every measure marked as undecodable,
// so that only extraction skips it and its siblings in the container are kept.
// A measure block that cannot be converted is kept as a decode error of that
// measure.
func toRecord(source string, position int, datum any) signal.Record {
	root, ok := datum.(map[string]any)
	if !ok {
		return undecodable(source, position, fmt.Errorf("datum is %T, not a record", datum))
	}

	raw, ok := unwrapRecord(root[rawDataField], signal.Measures).(map[string]any)
	if !ok {
		return undecodable(source, position, fmt.Errorf("missing %s record", rawDataField))
	}

	blocks := make(map[signal.Measure]signal.MeasureBlock)
	invalid := make(map[signal.Measure]error)
	for _, m := range signal.Measures {
		v, ok := raw[string(m)]
		if !ok || v == nil {
			continue
		}

		block, err := toMeasureBlock(v)
		if err != nil {
			invalid[m] = err
			continue
		}
		blocks[m] = block
	}

	return signal.NewRecord(source, position, blocks, invalid)
}

func undecodable(source string, position int, err error) signal.Record {
	invalid := make(map[signal.Measure]error, len(signal.Measures))
	for _, m := range signal.Measures {
		invalid[m] = err
	}
	return signal.NewRecord(source, position, nil, invalid)
}

// unwrapRecord returns the record of a non-null union, which goavro decodes as
// a single entry map keyed by the record type name. A map keyed by one of the
// record's own fields is already the record.
func unwrapRecord(v any, fields []signal.Measure) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	for k, inner := range m {
		if slices.Contains(fields, signal.Measure(k)) {
			return v
		}
		if rec, ok := inner.(map[string]any); ok {
			return rec
		}
	}
	return v
}

func toMeasureBlock(v any) (signal.MeasureBlock, error) {
	fields, ok := unwrapUnion(v).(map[string]any)
	if !ok {
		return signal.MeasureBlock{}, fmt.Errorf("block is %T, not a record", v)
	}

	fs, err := toFloat(fields["samplingFrequency"])
	if err != nil {
		return signal.MeasureBlock{}, fmt.Errorf("samplingFrequency: %w", err)
	}

	start, err := toInt(fields["timestampStart"])
	if err != nil {
		return signal.MeasureBlock{}, fmt.Errorf("timestampStart: %w", err)
	}

	items, ok := unwrapUnion(fields["values"]).([]any)
	if !ok {
		return signal.MeasureBlock{}, fmt.Errorf("values: %T is not an array", fields["values"])
	}

	values := make([]float64, len(items))
	for i, item := range items {
		if values[i], err = toFloat(item); err != nil {
			return signal.MeasureBlock{}, fmt.Errorf("values[%d]: %w", i, err)
		}
	}

	return signal.MeasureBlock{
		SamplingFrequency: fs,
		StartTimeMicros:   start,
		Values:            slices.Clip(values),
	}, nil
}

var errMissing = errors.New("missing")

// unwrapUnion returns the value of a non-null union, which goavro decodes
// as a single entry map keyed by the branch type name.
func unwrapUnion(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	for k, inner := range m {
		switch k {
		case "float", "double", "int", "long", "array":
			return inner
		}
	}
	return v
}

func toFloat(v any) (float64, error) {
	switch n := unwrapUnion(v).(type) {
	case nil:
		return 0, errMissing
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
}

func toInt(v any) (int64, error) {
	switch n := unwrapUnion(v).(type) {
	case nil:
		return 0, errMissing
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%T is not an integer", v)
	}
}
