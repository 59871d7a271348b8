package booking

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is a half-open stay: the guest occupies the room from CheckIn
// up to but not including CheckOut.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// NewDateRange validates that check-out is strictly after check-in.
func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	if !checkOut.After(checkIn) {
		return DateRange{}, fmt.Errorf("check-out %s must be after check-in %s",
			FormatDate(checkOut), FormatDate(checkIn))
	}
	return DateRange{CheckIn: checkIn, CheckOut: checkOut}, nil
}

// Overlaps reports whether two stays conflict. Back-to-back stays where one
// guest checks out the day another checks in do not conflict.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && r.CheckOut.After(other.CheckIn)
}

// Nights returns the stay length in nights.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

func (r DateRange) String() string {
	return FormatDate(r.CheckIn) + " to " + FormatDate(r.CheckOut)
}

// ParseBookedDates parses a booked-dates cell. The canonical form is
// "2026-01-25 to 2026-01-27, 2026-02-01 to 2026-02-03" but staff sometimes
// hand-edit cells, so "2026-01-25-2026-01-27" is tolerated too. Entries that
// cannot be parsed are skipped.
func ParseBookedDates(cell string) []DateRange {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}

	var ranges []DateRange
	for _, part := range strings.Split(cell, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, ok := parseRange(part)
		if !ok {
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges
}

func parseRange(part string) (DateRange, bool) {
	var inStr, outStr string
	if i := strings.Index(part, " to "); i >= 0 {
		inStr, outStr = part[:i], part[i+4:]
	} else if len(part) == 21 && part[10] == '-' {
		// Hand-edited "YYYY-MM-DD-YYYY-MM-DD" form.
		inStr, outStr = part[:10], part[11:]
	} else {
		return DateRange{}, false
	}

	checkIn, err := ParseDate(inStr)
	if err != nil {
		return DateRange{}, false
	}
	checkOut, err := ParseDate(outStr)
	if err != nil {
		return DateRange{}, false
	}
	if !checkOut.After(checkIn) {
		return DateRange{}, false
	}
	return DateRange{CheckIn: checkIn, CheckOut: checkOut}, true
}

// FormatBookedDates renders ranges back into the canonical cell form.
func FormatBookedDates(ranges []DateRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

// DropExpired removes ranges whose check-out is before today. A range ending
// today is kept until the checkout sweep clears it; under half-open overlap
// it can no longer conflict with anything.
func DropExpired(ranges []DateRange, today time.Time) []DateRange {
	today = truncateToDay(today)
	kept := make([]DateRange, 0, len(ranges))
	for _, r := range ranges {
		if !r.CheckOut.Before(today) {
			kept = append(kept, r)
		}
	}
	return kept
}

// truncateToDay maps an instant to its wall-clock date at UTC midnight, the
// form sheet dates parse into, so day comparisons ignore the server timezone.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
