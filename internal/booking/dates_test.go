package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rng(in, out string) DateRange {
	return DateRange{CheckIn: date(in), CheckOut: date(out)}
}

func TestDateRangeOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{
			name: "full overlap",
			a:    rng("2026-01-25", "2026-01-27"),
			b:    rng("2026-01-24", "2026-01-28"),
			want: true,
		},
		{
			name: "partial overlap",
			a:    rng("2026-01-25", "2026-01-27"),
			b:    rng("2026-01-26", "2026-01-29"),
			want: true,
		},
		{
			name: "same range",
			a:    rng("2026-01-25", "2026-01-27"),
			b:    rng("2026-01-25", "2026-01-27"),
			want: true,
		},
		{
			name: "back to back stays",
			a:    rng("2026-01-25", "2026-01-27"),
			b:    rng("2026-01-27", "2026-01-29"),
			want: false,
		},
		{
			name: "disjoint",
			a:    rng("2026-01-25", "2026-01-27"),
			b:    rng("2026-02-01", "2026-02-03"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestNewDateRange(t *testing.T) {
	_, err := NewDateRange(date("2026-01-27"), date("2026-01-25"))
	assert.Error(t, err)

	_, err = NewDateRange(date("2026-01-25"), date("2026-01-25"))
	assert.Error(t, err)

	r, err := NewDateRange(date("2026-01-25"), date("2026-01-27"))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Nights())
}

func TestParseBookedDates(t *testing.T) {
	t.Run("two canonical ranges", func(t *testing.T) {
		ranges := ParseBookedDates("2026-01-25 to 2026-01-27, 2026-02-01 to 2026-02-03")
		require.Len(t, ranges, 2)
		assert.Equal(t, rng("2026-01-25", "2026-01-27"), ranges[0])
		assert.Equal(t, rng("2026-02-01", "2026-02-03"), ranges[1])
	})

	t.Run("hand edited dash form", func(t *testing.T) {
		ranges := ParseBookedDates("2026-01-25-2026-01-27")
		require.Len(t, ranges, 1)
		assert.Equal(t, rng("2026-01-25", "2026-01-27"), ranges[0])
	})

	t.Run("garbage entries skipped", func(t *testing.T) {
		ranges := ParseBookedDates("not a date, 2026-01-25 to 2026-01-27, 25th Jan")
		require.Len(t, ranges, 1)
		assert.Equal(t, rng("2026-01-25", "2026-01-27"), ranges[0])
	})

	t.Run("inverted range skipped", func(t *testing.T) {
		assert.Empty(t, ParseBookedDates("2026-01-27 to 2026-01-25"))
	})

	t.Run("empty cell", func(t *testing.T) {
		assert.Empty(t, ParseBookedDates(""))
		assert.Empty(t, ParseBookedDates("   "))
	})
}

func TestFormatBookedDatesRoundTrip(t *testing.T) {
	in := []DateRange{rng("2026-01-25", "2026-01-27"), rng("2026-02-01", "2026-02-03")}
	cell := FormatBookedDates(in)
	assert.Equal(t, "2026-01-25 to 2026-01-27, 2026-02-01 to 2026-02-03", cell)
	assert.Equal(t, in, ParseBookedDates(cell))
}

func TestDropExpired(t *testing.T) {
	today := date("2026-01-27")
	ranges := []DateRange{
		rng("2026-01-20", "2026-01-25"), // long gone
		rng("2026-01-25", "2026-01-27"), // checkout is today, sweep's job
		rng("2026-01-26", "2026-01-29"), // still in house
		rng("2026-02-01", "2026-02-03"), // future
	}

	kept := DropExpired(ranges, today)
	require.Len(t, kept, 3)
	assert.Equal(t, rng("2026-01-25", "2026-01-27"), kept[0])
	assert.Equal(t, rng("2026-01-26", "2026-01-29"), kept[1])
	assert.Equal(t, rng("2026-02-01", "2026-02-03"), kept[2])
}
