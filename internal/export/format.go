package export

import (
	"fmt"
	"strings"
)

const (
	Pickle Format = iota + 1
	JSON
	CSV
	SQLite
)

// Format is an output representation of a merged series
type Format int

// Formats lists the supported formats in display order
var Formats = []Format{Pickle, JSON, CSV, SQLite}

var formatNames = map[Format]string{
	Pickle: "pickle",
	JSON:   "json",
	CSV:    "csv",
	SQLite: "sqlite",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Extension returns the canonical file extension, without the dot
func (f Format) Extension() string {
	switch f {
	case Pickle:
		return "pkl"
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case SQLite:
		return "sqlite"
	default:
		return ""
	}
}

// MIMEType returns the registered media type of the format
func (f Format) MIMEType() string {
	switch f {
	case Pickle:
		return "application/octet-stream"
	case JSON:
		return "application/json"
	case CSV:
		return "text/csv"
	case SQLite:
		return "application/vnd.sqlite3"
	default:
		return ""
	}
}

// DropsSamplingFrequency reports whether the format omits the per-segment
// sampling frequencies; callers should warn the user about it.
func (f Format) DropsSamplingFrequency() bool {
	return f == CSV
}

// ParseFormat converts a user supplied format name, case-insensitively
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, &UnsupportedFormatError{Value: s}
}

// UnsupportedFormatError is returned for an unknown output format
type UnsupportedFormatError struct {
	Value string
}

func (e *UnsupportedFormatError) Error() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = f.String()
	}
	return fmt.Sprintf("unsupported format %q, use one of: %s", e.Value, strings.Join(names, ", "))
}
