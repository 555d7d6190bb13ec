package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

const (
	maxBatchSize = 500

	journalModeWAL    = "WAL"
	journalModeDelete = "DELETE"
)

// WithMaxBatchSize sets the maximum number of samples inserted by a single
// statement
func WithMaxBatchSize(size int) func(*SqliteStore) {
	return func(s *SqliteStore) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// WithRollbackJournal makes the store use a rollback journal instead of WAL,
// leaving a single self-contained database file behind on Close.
func WithRollbackJournal() func(*SqliteStore) {
	return func(s *SqliteStore) {
		s.journalMode = journalModeDelete
	}
}

var _ Store = (*SqliteStore)(nil)

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath       string
	journalMode  string
	maxBatchSize int

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a new store backed by the Sqlite database at dbPath.
// Connections are opened lazily; the schema is created with the first write.
func NewSqliteStore(dbPath string, options ...func(*SqliteStore)) *SqliteStore {
	s := SqliteStore{
		dbPath:       dbPath,
		journalMode:  journalModeWAL,
		maxBatchSize: maxBatchSize,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_synchronous=NORMAL", s.dbPath, s.journalMode)
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateExtraction(ctx context.Context, measure signal.Measure, sources []string) (extractionID int64, err error) {
	var sourcesData sql.NullString
	if sources != nil {
		var p []byte
		if p, err = json.Marshal(sources); err != nil {
			err = fmt.Errorf("marshaling sources: %w", err)
			return
		}

		sourcesData.Valid = true
		sourcesData.String = string(p)
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertExtractionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, time.Now().UTC(), string(measure), sourcesData)
	if err != nil {
		err = fmt.Errorf("inserting extraction: %w", err)
		return
	}

	extractionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting extraction ID: %w", err)
	}
	return
}

func (s *SqliteStore) Extraction(ctx context.Context, id int64) (extraction *Extraction, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectExtractionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	return scanExtraction(stmt.QueryRowContext(ctx, id))
}

func (s *SqliteStore) Extractions(ctx context.Context) (extractions []*Extraction, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectExtractionsSQL)
	if err != nil {
		err = fmt.Errorf("querying extractions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var e *Extraction
		if e, err = scanExtraction(rows); err != nil {
			return
		}
		extractions = append(extractions, e)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating extractions: %w", err)
	}
	return
}

func scanExtraction(row interface{ Scan(...any) error }) (*Extraction, error) {
	var e Extraction
	var measure string
	var sources sql.NullString
	if err := row.Scan(&e.ID, &e.CreatedAt, &measure, &sources, &e.Segments, &e.Samples); err != nil {
		return nil, fmt.Errorf("scanning extraction: %w", err)
	}

	e.Measure = signal.Measure(measure)
	if sources.Valid {
		if err := json.Unmarshal([]byte(sources.String), &e.Sources); err != nil {
			return nil, fmt.Errorf("unmarshaling sources: %w", err)
		}
	}
	return &e, nil
}

func (s *SqliteStore) StoreSeries(ctx context.Context, extractionID int64, series *signal.Series) (err error) {
	if err = series.Validate(); err != nil {
		return err
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for i, fs := range series.FS {
		if _, err = tx.ExecContext(ctx, insertSegmentSQL, extractionID, i+1, toSQLFloat(fs)); err != nil {
			return fmt.Errorf("inserting segment %d: %w", i+1, err)
		}
	}

	for from := 0; from < len(series.Samples); from += s.maxBatchSize {
		to := min(from+s.maxBatchSize, len(series.Samples))
		if err = insertSamples(ctx, tx, extractionID, series, from, to); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func insertSamples(ctx context.Context, tx *sql.Tx, extractionID int64, series *signal.Series, from, to int) error {
	// Prepare values array
	values := make([]any, 0, (to-from)*4)

	// Build batch insert query
	valuesPlaceholder := "(?, ?, ?, ?)"

	var sb strings.Builder

	sb.WriteString(insertSamplesSQL)

	for i := from; i < to; i++ {
		values = append(values,
			extractionID,
			i,
			toSQLFloat(series.Tstamps[i]),
			toSQLFloat(series.Samples[i]),
		)

		if i > from {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting samples %d-%d: %w", from, to-1, err)
	}
	return nil
}

func (s *SqliteStore) ReadSeries(ctx context.Context, extractionID int64) (series *signal.Series, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	// an unknown extraction is an error, not an empty series
	if _, err = s.Extraction(ctx, extractionID); err != nil {
		return
	}

	series = &signal.Series{
		FS:      []float64{},
		Samples: []float64{},
		Tstamps: []float64{},
	}

	segRows, err := db.QueryContext(ctx, selectSegmentsSQL, extractionID)
	if err != nil {
		err = fmt.Errorf("querying segments: %w", err)
		return
	}
	defer closeWithError(segRows, &err)

	for segRows.Next() {
		var fs sql.NullFloat64
		if err = segRows.Scan(&fs); err != nil {
			err = fmt.Errorf("scanning segment: %w", err)
			return
		}
		series.FS = append(series.FS, fromSQLFloat(fs))
	}
	if err = segRows.Err(); err != nil {
		err = fmt.Errorf("iterating segments: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSamplesSQL, extractionID)
	if err != nil {
		err = fmt.Errorf("querying samples: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var tstamp, value sql.NullFloat64
		if err = rows.Scan(&tstamp, &value); err != nil {
			err = fmt.Errorf("scanning sample: %w", err)
			return
		}
		series.Tstamps = append(series.Tstamps, fromSQLFloat(tstamp))
		series.Samples = append(series.Samples, fromSQLFloat(value))
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating samples: %w", err)
	}
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}
