package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extraction is what the date grammar pulled out of a message.
type Extraction struct {
	CheckIn  time.Time
	CheckOut time.Time
	Nights   int

	HasCheckIn  bool
	HasCheckOut bool
}

// Range reports whether a complete stay was extracted, deriving a check-out
// from nights when only a check-in and a stay length were given.
func (e Extraction) Range() (checkIn, checkOut time.Time, ok bool) {
	if !e.HasCheckIn {
		return time.Time{}, time.Time{}, false
	}
	if e.HasCheckOut {
		return e.CheckIn, e.CheckOut, true
	}
	if e.Nights > 0 {
		return e.CheckIn, e.CheckIn.AddDate(0, 0, e.Nights), true
	}
	return time.Time{}, time.Time{}, false
}

// DateExtractor applies a fixed grammar of the date phrasings guests
// actually use over WhatsApp. It never guesses a check-out: without an
// explicit date or a nights count the stay stays open so the assistant asks.
type DateExtractor struct {
	now func() time.Time
}

func NewDateExtractor() *DateExtractor {
	return &DateExtractor{now: time.Now}
}

var (
	monthNames = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	}
	weekdayNames = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}

	reDayMonth   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(january|february|march|april|may|june|july|august|september|october|november|december)(?:\s+(\d{4}))?`)
	reOnDayMonth = regexp.MustCompile(`\bon\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(january|february|march|april|may|june|july|august|september|october|november|december)`)
	reOnDay      = regexp.MustCompile(`\bon\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\b`)
	reNights     = regexp.MustCompile(`\b(\d+)\s*nights?\b`)
	reNextDay    = regexp.MustCompile(`\b(?:next|coming|this)\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	reUntilDay   = regexp.MustCompile(`\b(?:until|till|checkout|check-out|check out)\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\b(?:\s+(january|february|march|april|may|june|july|august|september|october|november|december))?`)
	reBareDay    = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)
	reISODate    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// Extract parses dates out of a message. recentGuest carries the guest's
// last few messages so a bare "25" reply can inherit an earlier "next month".
func (x *DateExtractor) Extract(message string, recentGuest []string) Extraction {
	msg := strings.ToLower(message)
	now := x.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out Extraction

	// Explicit YYYY-MM-DD dates win over everything else.
	for _, m := range reISODate.FindAllStringSubmatch(msg, 2) {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if !out.HasCheckIn {
			out.CheckIn, out.HasCheckIn = t, true
		} else if t.After(out.CheckIn) {
			out.CheckOut, out.HasCheckOut = t, true
		}
	}

	if strings.Contains(msg, "tomorrow") && !out.HasCheckIn {
		out.CheckIn, out.HasCheckIn = today.AddDate(0, 0, 1), true
	} else if strings.Contains(msg, "today") && !out.HasCheckIn {
		out.CheckIn, out.HasCheckIn = today, true
	}

	if m := reNextDay.FindStringSubmatch(msg); m != nil && !out.HasCheckIn {
		target := weekdayNames[m[1]]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		out.CheckIn, out.HasCheckIn = today.AddDate(0, 0, ahead), true
	}

	// "on 25 january" overrides any earlier check-in and resets the
	// check-out: the guest is correcting the date.
	if m := reOnDayMonth.FindStringSubmatch(msg); m != nil {
		day, _ := strconv.Atoi(m[1])
		if t, ok := dateInMonth(day, monthNames[m[2]], today); ok {
			out.CheckIn, out.HasCheckIn = t, true
			out.CheckOut, out.HasCheckOut = time.Time{}, false
			out.Nights = 0
		}
	} else if matches := reDayMonth.FindAllStringSubmatch(msg, 2); matches != nil {
		for _, m := range matches {
			day, _ := strconv.Atoi(m[1])
			month := monthNames[m[2]]
			var t time.Time
			var ok bool
			if m[3] != "" {
				year, _ := strconv.Atoi(m[3])
				t, ok = safeDate(year, month, day)
			} else {
				t, ok = dateInMonth(day, month, today)
			}
			if !ok {
				continue
			}
			if !out.HasCheckIn {
				out.CheckIn, out.HasCheckIn = t, true
			} else if t.After(out.CheckIn) {
				out.CheckOut, out.HasCheckOut = t, true
			}
		}
	} else if m := reOnDay.FindStringSubmatch(msg); m != nil && !out.HasCheckIn {
		day, _ := strconv.Atoi(m[1])
		if t, ok := dayThisOrNextMonth(day, today); ok {
			out.CheckIn, out.HasCheckIn = t, true
		}
	}

	// A message that is just a day number leans on the surrounding
	// conversation for which month was meant.
	if m := reBareDay.FindStringSubmatch(msg); m != nil && !out.HasCheckIn {
		day, _ := strconv.Atoi(m[1])
		recent := strings.ToLower(strings.Join(recentGuest, " "))
		if strings.Contains(recent, "next month") {
			if t, ok := safeDate(today.Year(), today.Month(), day); ok {
				out.CheckIn, out.HasCheckIn = addMonth(t), true
			}
		} else if t, ok := dayThisOrNextMonth(day, today); ok {
			out.CheckIn, out.HasCheckIn = t, true
		}
	}

	if m := reUntilDay.FindStringSubmatch(msg); m != nil {
		day, _ := strconv.Atoi(m[1])
		var t time.Time
		var ok bool
		if m[2] != "" {
			t, ok = dateInMonth(day, monthNames[m[2]], today)
		} else if out.HasCheckIn {
			t, ok = safeDate(out.CheckIn.Year(), out.CheckIn.Month(), day)
			if ok && !t.After(out.CheckIn) {
				t = addMonth(t)
			}
		} else {
			t, ok = dayThisOrNextMonth(day, today)
		}
		if ok {
			out.CheckOut, out.HasCheckOut = t, true
		}
	}

	if m := reNights.FindStringSubmatch(msg); m != nil {
		out.Nights, _ = strconv.Atoi(m[1])
		if out.HasCheckIn && !out.HasCheckOut && out.Nights > 0 {
			out.CheckOut, out.HasCheckOut = out.CheckIn.AddDate(0, 0, out.Nights), true
		}
	}

	return out
}

// dateInMonth resolves a day in the named month, using next year when that
// month's date has already passed.
func dateInMonth(day int, month time.Month, today time.Time) (time.Time, bool) {
	t, ok := safeDate(today.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	if t.Before(today) {
		t, ok = safeDate(today.Year()+1, month, day)
	}
	return t, ok
}

// dayThisOrNextMonth resolves a bare day number, rolling into next month
// when the day has already passed this month.
func dayThisOrNextMonth(day int, today time.Time) (time.Time, bool) {
	t, ok := safeDate(today.Year(), today.Month(), day)
	if !ok {
		return time.Time{}, false
	}
	if t.Before(today) {
		return addMonth(t), true
	}
	return t, true
}

func addMonth(t time.Time) time.Time {
	y, m := t.Year(), t.Month()
	if m == time.December {
		return time.Date(y+1, time.January, t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(y, m+1, t.Day(), 0, 0, 0, 0, time.UTC)
}

// safeDate rejects day numbers the month does not have instead of letting
// time.Date normalize them into the next month.
func safeDate(year int, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
