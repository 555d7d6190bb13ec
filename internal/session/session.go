package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/roman-kulish/wristband-extract/internal/avro"
	"github.com/roman-kulish/wristband-extract/internal/export"
	"github.com/roman-kulish/wristband-extract/internal/signal"
)

// ErrNoSeries is returned by Export before a non-empty series was extracted
var ErrNoSeries = errors.New("no extracted series, run an extraction first")

// ErrBatchReplaced is returned by Extract when an upload replaced the batch
// while it was being extracted. The result belongs to the old batch and is
// not kept.
var ErrBatchReplaced = errors.New("segments were replaced during extraction")

// WithLogger sets the logger used by the session and its container reader
func WithLogger(logger *slog.Logger) func(s *Session) {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session holds the state of one user working through upload, extraction
// and export. Sessions are independent of each other and safe for
// concurrent use.
type Session struct {
	logger *slog.Logger
	reader *avro.Reader

	mu           sync.Mutex
	batch        uint64 // incremented by every upload
	records      []signal.Record
	sources      []string
	readWarnings []error
	measure      signal.Measure
	series       *signal.Series
	result       *signal.Result
}

// New creates an empty session
func New(options ...func(s *Session)) *Session {
	s := Session{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	s.reader = avro.NewReader(avro.WithLogger(s.logger))
	return &s
}

// Upload replaces the current batch with the given files. Any previously
// extracted series belongs to the old batch and is discarded. The returned
// warnings are the files which could not be read.
func (s *Session) Upload(ctx context.Context, files []avro.File) ([]error, error) {
	records, warnings, err := s.reader.ReadFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(records))
	for _, rec := range records {
		if len(sources) == 0 || sources[len(sources)-1] != rec.Source {
			sources = append(sources, rec.Source)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch++
	s.records = records
	s.sources = sources
	s.readWarnings = warnings
	s.measure = ""
	s.series = nil
	s.result = nil

	return warnings, nil
}

// Extract merges the given measure of the current batch. The series is kept
// for Export only when it holds samples or timestamps; a failed extraction
// leaves the session as it was. An upload during the extraction wins: the
// result is discarded with ErrBatchReplaced.
func (s *Session) Extract(ctx context.Context, measure signal.Measure) (*signal.Result, error) {
	s.mu.Lock()
	records, batch := s.records, s.batch
	s.mu.Unlock()

	res, err := signal.Extract(ctx, records, measure)
	if err != nil {
		return nil, err
	}

	s.logger.Info("extracted series",
		slog.String("measure", string(measure)),
		slog.Int("segments", len(records)),
		slog.Int("skipped", len(res.Warnings)),
		slog.Int("samples", res.Series.Len()))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != batch {
		return nil, ErrBatchReplaced
	}

	s.result = res
	s.measure = measure
	s.series = nil
	if !res.Series.Empty() {
		s.series = res.Series
	}

	return res, nil
}

// Export serializes the extracted series. An empty stem defaults to the name
// of the extracted measure.
func (s *Session) Export(ctx context.Context, format export.Format, stem string) (*export.Artifact, error) {
	s.mu.Lock()
	series, measure, sources := s.series, s.measure, s.sources
	s.mu.Unlock()

	if series == nil {
		return nil, ErrNoSeries
	}
	if stem == "" {
		stem = string(measure)
	}

	return export.Serialize(ctx, series, format, stem,
		export.WithMeasure(measure),
		export.WithSources(sources))
}

// Series returns a copy of the extracted series, or nil when there is none
func (s *Session) Series() *signal.Series {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.series == nil {
		return nil
	}
	return s.series.Clone()
}

// Sources returns the identifiers of the uploaded segments in recording order
func (s *Session) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.sources...)
}

// ReadWarnings returns the read failures of the last upload
func (s *Session) ReadWarnings() []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]error(nil), s.readWarnings...)
}

// LastResult returns the outcome of the last successful extraction
func (s *Session) LastResult() *signal.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result
}
