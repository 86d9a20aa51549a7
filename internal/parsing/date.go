package parsing

import (
	"regexp"
	"strconv"
	"time"
)

// DateLayout identifies one of the date shapes the parser understands.
type DateLayout int

const (
	// LayoutAny means no preference.
	LayoutAny DateLayout = iota
	// LayoutNumeric is "15/03/2024" or "15-03-24".
	LayoutNumeric
	// LayoutLong is "15 de marzo de 2024".
	LayoutLong
	// LayoutMixed is "15/mar/2024".
	LayoutMixed
)

// DateFormat is the output format of detected dates.
const DateFormat = "02/01/2006"

// Date is a calendar date found in OCR text.
type Date struct {
	Time time.Time
	Text string
}

var months = map[string]time.Month{
	"enero": time.January, "ene": time.January, "jan": time.January,
	"febrero": time.February, "feb": time.February,
	"marzo": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April, "apr": time.April,
	"mayo": time.May, "may": time.May,
	"junio": time.June, "jun": time.June,
	"julio": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August, "aug": time.August,
	"septiembre": time.September, "setiembre": time.September, "sep": time.September, "sept": time.September, "set": time.September,
	"octubre": time.October, "oct": time.October,
	"noviembre": time.November, "nov": time.November,
	"diciembre": time.December, "dic": time.December, "dec": time.December,
}

var (
	numericDate = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)
	longDate    = regexp.MustCompile(`\b(\d{1,2})\s+de\s+([a-z]+)\.?\s+(?:de|del)?\s*(\d{4})\b`)
	mixedDate   = regexp.MustCompile(`\b(\d{1,2})[/-]([a-z]{3})[/-](\d{4}|\d{2})\b`)
)

type dateMatcher struct {
	layout  DateLayout
	pattern *regexp.Regexp
	month   func(string) (time.Month, bool)
}

func numericMonth(s string) (time.Month, bool) {
	m, err := strconv.Atoi(s)
	if err != nil || m < 1 || m > 12 {
		return 0, false
	}
	return time.Month(m), true
}

func namedMonth(s string) (time.Month, bool) {
	m, ok := months[s]
	return m, ok
}

var dateMatchers = []dateMatcher{
	{LayoutNumeric, numericDate, numericMonth},
	{LayoutLong, longDate, namedMonth},
	{LayoutMixed, mixedDate, namedMonth},
}

// ParseDate returns the first date found in text, trying the numeric, long
// and mixed layouts in that order. A hinted layout is tried first. Impossible
// calendar dates are skipped.
func ParseDate(text string, hint DateLayout) (Date, bool) {
	folded := Fold(text)
	for _, m := range orderedMatchers(hint) {
		for _, sub := range m.pattern.FindAllStringSubmatch(folded, -1) {
			if d, ok := buildDate(sub[1], sub[2], sub[3], m.month); ok {
				return d, true
			}
		}
	}
	return Date{}, false
}

// HasDate reports whether line contains any recognizable date.
func HasDate(line string) bool {
	_, ok := ParseDate(line, LayoutAny)
	return ok
}

func orderedMatchers(hint DateLayout) []dateMatcher {
	if hint == LayoutAny {
		return dateMatchers
	}
	ordered := make([]dateMatcher, 0, len(dateMatchers))
	for _, m := range dateMatchers {
		if m.layout == hint {
			ordered = append(ordered, m)
		}
	}
	for _, m := range dateMatchers {
		if m.layout != hint {
			ordered = append(ordered, m)
		}
	}
	return ordered
}

func buildDate(day, month, year string, monthOf func(string) (time.Month, bool)) (Date, bool) {
	d, err := strconv.Atoi(day)
	if err != nil {
		return Date{}, false
	}
	m, ok := monthOf(month)
	if !ok {
		return Date{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Date{}, false
	}
	if len(year) == 2 {
		y = expandYear(y)
	}

	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != m {
		return Date{}, false
	}
	return Date{Time: t, Text: t.Format(DateFormat)}, true
}

// expandYear maps a two-digit year the way time.Parse does for "06":
// 69-99 are in the 1900s, 00-68 in the 2000s.
func expandYear(y int) int {
	if y >= 69 {
		return 1900 + y
	}
	return 2000 + y
}

// IsFuture reports whether the calendar date d lies strictly after the
// calendar day of now.
func IsFuture(d Date, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return d.Time.After(today)
}
