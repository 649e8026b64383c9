// Package dateutil normalizes the mixed date representations coming back
// from the spreadsheet backend (ISO timestamps, slash dates, raw date-input
// values) into one display form and one sortable instant. Ambiguous slash
// dates are always read day-first; that heuristic lives here and nowhere
// else.
package dateutil

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// layouts tried in order for non-slash input.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
	"Mon Jan 02 2006 15:04:05 GMT-0700 (MST)",
}

// DisplayDate converts an arbitrary date string to DD/MM/YYYY. Input that
// cannot be interpreted as a calendar date is returned unchanged.
func DisplayDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	t, ok := parse(s)
	if !ok {
		slog.Debug("unparseable date left as-is", "value", s)
		return s
	}
	return t.Format("02/01/2006")
}

// DisplayDateTime converts an arbitrary timestamp string to
// "DD/MM/YYYY || HH:MM:SS". A stored midnight is preserved as 00:00:00
// rather than substituted with the current time. Unparseable input is
// returned unchanged.
func DisplayDateTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	t, ok := parse(s)
	if !ok {
		slog.Debug("unparseable timestamp left as-is", "value", s)
		return s
	}
	return t.Format("02/01/2006") + " || " + t.Format("15:04:05")
}

// SortInstant parses a timestamp for list ordering. Unparseable input maps
// to the Unix epoch so it sorts oldest.
func SortInstant(s string) time.Time {
	t, ok := parse(strings.TrimSpace(s))
	if !ok {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// Expired reports whether a renewal date lies strictly before today.
// Accepts DD/MM/YYYY (primary) and YYYY-MM-DD (from date inputs). A date
// that cannot be parsed is never expired, and a renewal due today is not
// expired.
func Expired(renewalDate string, today time.Time) bool {
	renewalDate = strings.TrimSpace(renewalDate)
	if renewalDate == "" {
		return false
	}

	sep := "/"
	if !strings.Contains(renewalDate, "/") {
		if !strings.Contains(renewalDate, "-") {
			return false
		}
		sep = "-"
	}

	parts := strings.Split(renewalDate, sep)
	if len(parts) != 3 {
		return false
	}

	var day, month, year int
	var err [3]error
	if len(parts[0]) == 4 {
		// YYYY-MM-DD
		year, err[0] = strconv.Atoi(parts[0])
		month, err[1] = strconv.Atoi(parts[1])
		day, err[2] = strconv.Atoi(parts[2])
	} else {
		// DD/MM/YYYY
		day, err[0] = strconv.Atoi(parts[0])
		month, err[1] = strconv.Atoi(parts[1])
		year, err[2] = strconv.Atoi(parts[2])
	}
	if err[0] != nil || err[1] != nil || err[2] != nil {
		return false
	}

	d, ok := calendarDate(year, month, day)
	if !ok {
		return false
	}

	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return d.Before(t)
}

// parse attempts every known representation, slash dates first.
func parse(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseSlashDate(s); ok {
		return t, true
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseSlashDate reads D/M/YYYY with an optional time suffix, day-first.
func parseSlashDate(s string) (time.Time, bool) {
	datePart := s
	timePart := ""
	if i := strings.IndexAny(s, " T"); i > 0 {
		datePart = s[:i]
		timePart = strings.TrimSpace(s[i+1:])
	}

	parts := strings.Split(datePart, "/")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, false
	}

	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	d, ok := calendarDate(year, month, day)
	if !ok {
		return time.Time{}, false
	}

	if timePart != "" {
		if hms, err := time.Parse("15:04:05", timePart); err == nil {
			return d.Add(time.Duration(hms.Hour())*time.Hour +
				time.Duration(hms.Minute())*time.Minute +
				time.Duration(hms.Second())*time.Second), true
		}
	}
	return d, true
}

// calendarDate builds a date and rejects component overflow (time.Date
// silently normalizes 32/01 into 01/02, which must not count as valid).
func calendarDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
