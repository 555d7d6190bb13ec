package storage

import (
	"context"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

// Store provides an interface for persisting merged series.
// All operations that write to the database should be considered atomic.
type Store interface {
	// CreateExtraction registers a new extraction and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - measure: Extracted measure
	//   - sources: Segment identifiers the series is merged from, in recording order
	//
	// Returns:
	//   - extractionID: Unique identifier for the created extraction
	//   - error: If creation fails or context is cancelled
	CreateExtraction(ctx context.Context, measure signal.Measure, sources []string) (extractionID int64, err error)

	// Extraction retrieves a specific extraction by its ID.
	Extraction(ctx context.Context, id int64) (*Extraction, error)

	// Extractions returns all extractions stored in the database, in creation order.
	Extractions(ctx context.Context) ([]*Extraction, error)

	// StoreSeries saves the sampling frequencies, samples and timestamps of a
	// merged series in a single transaction. Non-finite values are stored as NULL.
	StoreSeries(ctx context.Context, extractionID int64, series *signal.Series) error

	// ReadSeries loads a stored series. NULL values are read back as NaN.
	ReadSeries(ctx context.Context, extractionID int64) (*signal.Series, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
