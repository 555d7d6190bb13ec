package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderKey(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       int64
	}{
		{"plain marker", "1718000000.avro", 1718000000},
		{"prefixed marker", "1-1-01_1718000123.avro", 1718000123},
		{"longer digit run", "x_991718000123.avro", 1718000123},
		{"nine digits", "x_171800012.avro", NoMarker},
		{"wrong suffix", "1718000123.avro.bak", NoMarker},
		{"other suffix", "1718000123.csv", NoMarker},
		{"no digits", "segment.avro", NoMarker},
		{"empty", "", NoMarker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderKey(tt.identifier))
		})
	}
}

func TestEligible(t *testing.T) {
	assert.True(t, Eligible("a_1718000000.avro"))
	assert.True(t, Eligible("notes.avro"))
	assert.False(t, Eligible("a_1718000000.avro.tmp"))
	assert.False(t, Eligible("readme.txt"))
}

func TestSort_AscendingMarkers(t *testing.T) {
	names := []string{
		"1-1-01_1718000300.avro",
		"1-1-01_1718000100.avro",
		"1-1-01_1718000200.avro",
	}

	Sort(names, func(s string) string { return s })

	assert.Equal(t, []string{
		"1-1-01_1718000100.avro",
		"1-1-01_1718000200.avro",
		"1-1-01_1718000300.avro",
	}, names)
}

func TestSort_UnmarkedLastAndStable(t *testing.T) {
	type file struct {
		name string
		id   int
	}
	files := []file{
		{"zeta.avro", 1},
		{"b_1718000200.avro", 2},
		{"alpha.avro", 3},
		{"a_1718000100.avro", 4},
		{"c_1718000100.avro", 5}, // same marker as id 4
		{"beta.avro", 6},
	}

	Sort(files, func(f file) string { return f.name })

	ids := make([]int, len(files))
	for i, f := range files {
		ids[i] = f.id
	}
	require.Len(t, ids, 6)
	assert.Equal(t, []int{4, 5, 2, 1, 3, 6}, ids)
}

func TestSort_Empty(t *testing.T) {
	var names []string
	Sort(names, func(s string) string { return s })
	assert.Empty(t, names)
}
