package segment

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	// Suffix is the file suffix of a recording segment container.
	Suffix = ".avro"

	// NoMarker is the order key of an identifier without a start-time marker.
	// It sorts after every real marker.
	NoMarker int64 = math.MaxInt64
)

// markerPattern matches the 10-digit start-time marker right before the suffix
var markerPattern = regexp.MustCompile(`(\d{10})` + regexp.QuoteMeta(Suffix) + `$`)

// Eligible reports whether the identifier names a segment container
func Eligible(identifier string) bool {
	return strings.HasSuffix(identifier, Suffix)
}

// OrderKey returns the start-time marker embedded in a segment identifier,
// e.g. "1-1-01_1718000000.avro" yields 1718000000. Identifiers without a
// marker yield NoMarker.
func OrderKey(identifier string) int64 {
	m := markerPattern.FindStringSubmatch(identifier)
	if m == nil {
		return NoMarker
	}

	key, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return NoMarker
	}
	return key
}

// Sort orders items by the start-time marker of their identifier, earliest
// first. The sort is stable: items with equal keys, including those without
// a marker, keep their relative order.
func Sort[T any](items []T, identifier func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		ka, kb := OrderKey(identifier(a)), OrderKey(identifier(b))
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		default:
			return 0
		}
	})
}
