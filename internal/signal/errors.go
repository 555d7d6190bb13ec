package signal

import "fmt"

// ContainerReadError is returned for a segment container which could not be
// parsed. Other containers of the batch are still read.
type ContainerReadError struct {
	Source string
	Err    error
}

func (e *ContainerReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Source, e.Err)
}

func (e *ContainerReadError) Unwrap() error {
	return e.Err
}

// MeasureExtractionError is returned for a segment which lacks the requested
// measure or carries a malformed block. Segment is the 1-based position of
// the record in the extracted batch.
type MeasureExtractionError struct {
	Segment int
	Source  string
	Measure Measure
	Err     error
}

func (e *MeasureExtractionError) Error() string {
	return fmt.Sprintf("extracting %s from segment %d (%s): %v", e.Measure, e.Segment, e.Source, e.Err)
}

func (e *MeasureExtractionError) Unwrap() error {
	return e.Err
}

// InputError is returned when the input of an extraction is unusable as a whole
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// ShapeError is returned when samples and timestamps of a series differ in length
type ShapeError struct {
	Samples int
	Tstamps int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("series shape mismatch: %d samples, %d timestamps", e.Samples, e.Tstamps)
}
