package pipeline

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// monthLayouts are tried in order; the first successful parse wins. Four-digit
// year layouts come before their two-digit variants.
var monthLayouts = []string{
	"Jan-2006",
	"Jan-06",
	"January 2006",
	"01/2006",
	"1/2006",
	"2006-01",
	"2006-01-02",
	"Jan 2006",
}

var monthAbbrevs = [12]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// MonthLayout is the canonical month rendering produced by FormatMonth.
const MonthLayout = "2006-01"

// ParseMonth normalises a month label to the first day of that month in UTC.
// When nothing can be recovered it returns today at midnight and false, so
// callers can tell a fallback date from a parsed one.
func ParseMonth(label string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return today(now), false
	}

	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthStart(t), true
		}
	}

	return scanMonth(s, now)
}

// scanMonth looks for a month abbreviation anywhere in s and takes the first
// 2 or 4 digit run as the year.
func scanMonth(s string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(s)

	month, pos := 0, -1
	for i, abbr := range monthAbbrevs {
		if idx := strings.Index(lower, abbr); idx >= 0 && (pos < 0 || idx < pos) {
			month, pos = i+1, idx
		}
	}
	if month == 0 {
		return today(now), false
	}

	rest := lower[:pos] + " " + lower[pos+3:]
	year := now.Year()
	for _, run := range digitRuns(rest) {
		n, err := strconv.Atoi(run)
		if err != nil {
			continue
		}
		if len(run) == 2 {
			year = 2000 + n
			break
		}
		if len(run) == 4 {
			year = n
			break
		}
	}

	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

func digitRuns(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
}

// FormatMonth renders t as YYYY-MM.
func FormatMonth(t time.Time) string {
	return t.Format(MonthLayout)
}

// MonthStart truncates t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// IsMonthColumn reports whether a header names a month: it contains one of the
// twelve three-letter abbreviations, case-insensitively. Headers such as
// "Margin" also match; callers exclude known id columns.
func IsMonthColumn(header string) bool {
	lower := strings.ToLower(header)
	for _, abbr := range monthAbbrevs {
		if strings.Contains(lower, abbr) {
			return true
		}
	}
	return false
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
