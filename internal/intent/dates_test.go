package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixed clock: Tuesday, January 20th 2026.
var testNow = time.Date(2026, time.January, 20, 9, 30, 0, 0, time.UTC)

func newTestExtractor() *DateExtractor {
	x := NewDateExtractor()
	x.now = func() time.Time { return testNow }
	return x
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtractDates(t *testing.T) {
	x := newTestExtractor()

	tests := []struct {
		name     string
		message  string
		recent   []string
		checkIn  time.Time
		checkOut time.Time
		nights   int
	}{
		{
			name:    "tomorrow",
			message: "do you have a room for tomorrow?",
			checkIn: day(2026, time.January, 21),
		},
		{
			name:     "tomorrow with nights",
			message:  "a twin for tomorrow, 2 nights",
			checkIn:  day(2026, time.January, 21),
			checkOut: day(2026, time.January, 23),
			nights:   2,
		},
		{
			name:    "ordinal day and month",
			message: "we arrive on the 21st January",
			checkIn: day(2026, time.January, 21),
		},
		{
			name:     "two explicit dates",
			message:  "from 25th January to 28th January please",
			checkIn:  day(2026, time.January, 25),
			checkOut: day(2026, time.January, 28),
		},
		{
			name:    "on day without month",
			message: "any rooms on 25?",
			checkIn: day(2026, time.January, 25),
		},
		{
			name:    "on day already passed rolls to next month",
			message: "rooms on 5 please",
			checkIn: day(2026, time.February, 5),
		},
		{
			name:    "month already passed rolls to next year",
			message: "we want 10 january",
			checkIn: day(2027, time.January, 10),
		},
		{
			name:    "next sunday",
			message: "checking in next sunday",
			checkIn: day(2026, time.January, 25),
		},
		{
			name:     "next sunday for 3 nights",
			message:  "next sunday for 3 nights",
			checkIn:  day(2026, time.January, 25),
			checkOut: day(2026, time.January, 28),
			nights:   3,
		},
		{
			name:     "until checkout day",
			message:  "check in on 25 till 28",
			checkIn:  day(2026, time.January, 25),
			checkOut: day(2026, time.January, 28),
		},
		{
			name:    "bare day uses this month",
			message: "25",
			checkIn: day(2026, time.January, 25),
		},
		{
			name:    "bare day with next month in history",
			message: "25",
			recent:  []string{"do you have rooms next month?"},
			checkIn: day(2026, time.February, 25),
		},
		{
			name:     "iso dates",
			message:  "2026-03-01 to 2026-03-04",
			checkIn:  day(2026, time.March, 1),
			checkOut: day(2026, time.March, 4),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Extract(tt.message, tt.recent)

			require.True(t, got.HasCheckIn, "expected a check-in")
			assert.Equal(t, tt.checkIn, got.CheckIn)

			if tt.checkOut.IsZero() {
				assert.False(t, got.HasCheckOut, "check-out should stay open, got %v", got.CheckOut)
			} else {
				require.True(t, got.HasCheckOut, "expected a check-out")
				assert.Equal(t, tt.checkOut, got.CheckOut)
			}
			if tt.nights > 0 {
				assert.Equal(t, tt.nights, got.Nights)
			}
		})
	}
}

func TestExtractNothing(t *testing.T) {
	x := newTestExtractor()
	got := x.Extract("how far is the airport?", nil)
	assert.False(t, got.HasCheckIn)
	assert.False(t, got.HasCheckOut)

	_, _, ok := got.Range()
	assert.False(t, ok)
}

func TestExtractCorrectionClearsCheckout(t *testing.T) {
	x := newTestExtractor()

	// "on 25 january" is a date correction: any previously derived
	// check-out no longer applies.
	got := x.Extract("no, on 25 january", nil)
	require.True(t, got.HasCheckIn)
	assert.Equal(t, day(2026, time.January, 25), got.CheckIn)
	assert.False(t, got.HasCheckOut)
}

func TestExtractRejectsImpossibleDay(t *testing.T) {
	x := newTestExtractor()
	got := x.Extract("we arrive on 31 february", nil)
	assert.False(t, got.HasCheckIn)
}

func TestRangeFromNights(t *testing.T) {
	e := Extraction{
		CheckIn:    day(2026, time.January, 25),
		HasCheckIn: true,
		Nights:     2,
	}
	in, out, ok := e.Range()
	require.True(t, ok)
	assert.Equal(t, day(2026, time.January, 25), in)
	assert.Equal(t, day(2026, time.January, 27), out)
}
