package storage

import (
	"time"

	"github.com/roman-kulish/wristband-extract/internal/signal"
)

// Extraction describes one merged series stored in the database
type Extraction struct {
	ID        int64          `json:"id"`        // Unique identifier of the extraction
	CreatedAt time.Time      `json:"createdAt"` // When the series was stored
	Measure   signal.Measure `json:"measure"`   // Extracted measure
	Sources   []string       `json:"sources"`   // Segment identifiers the series was merged from
	Segments  int            `json:"segments"`  // Number of merged segments
	Samples   int            `json:"samples"`   // Number of stored samples
}
