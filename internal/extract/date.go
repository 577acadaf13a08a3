package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateFormat is one recognized date layout: a pattern plus its own parse
// function. Formats are tried in a fixed priority order; dispatching on an
// explicit variant instead of on the pattern source keeps each layout's
// parsing self-contained.
type dateFormat struct {
	name  string
	re    *regexp.Regexp
	parse func(m []string) (time.Time, bool)
}

var dateFormats = []dateFormat{
	{
		name:  "NumericDayFirst",
		re:    regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`),
		parse: parseNumericDayFirst,
	},
	{
		name:  "NumericYearFirst",
		re:    regexp.MustCompile(`(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})`),
		parse: parseNumericYearFirst,
	},
	{
		name:  "MonthNameFirst",
		re:    regexp.MustCompile(`(?i)([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?\s*,?\s*(\d{4})`),
		parse: parseMonthNameFirst,
	},
	{
		name:  "DayMonthName",
		re:    regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?\.?\s+([A-Za-z]{3,9})\.?,?\s+(\d{4})`),
		parse: parseDayMonthName,
	},
}

// monthsByPrefix maps the first three letters of a month name (full or
// abbreviated, any case) to its month number.
var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ExtractDate finds the first calendar date in the text, trying each format
// in priority order. A match whose values do not form a valid calendar date
// is discarded silently; nil means no date was found.
func ExtractDate(doc Document) *time.Time {
	for _, format := range dateFormats {
		m := format.re.FindStringSubmatch(doc.Raw)
		if m == nil {
			continue
		}
		if date, ok := format.parse(m); ok {
			return &date
		}
	}
	return nil
}

// parseNumericDayFirst handles D/M/YYYY and its separator variants. When
// both components fit a month, day-first wins (international convention);
// when exactly one exceeds 12 it is the day regardless of position. This
// heuristic will misread some US-formatted receipts, which is accepted.
func parseNumericDayFirst(m []string) (time.Time, bool) {
	first, err1 := strconv.Atoi(m[1])
	second, err2 := strconv.Atoi(m[2])
	year, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	day, month := first, second
	if first <= 12 && second > 12 {
		day, month = second, first
	}
	return makeDate(year, month, day)
}

func parseNumericYearFirst(m []string) (time.Time, bool) {
	year, err1 := strconv.Atoi(m[1])
	month, err2 := strconv.Atoi(m[2])
	day, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	return makeDate(year, month, day)
}

func parseMonthNameFirst(m []string) (time.Time, bool) {
	month, ok := lookupMonth(m[1])
	if !ok {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(m[2])
	year, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil {
		return time.Time{}, false
	}
	return makeDate(year, int(month), day)
}

func parseDayMonthName(m []string) (time.Time, bool) {
	day, err1 := strconv.Atoi(m[1])
	month, ok := lookupMonth(m[2])
	year, err2 := strconv.Atoi(m[3])
	if err1 != nil || !ok || err2 != nil {
		return time.Time{}, false
	}
	return makeDate(year, int(month), day)
}

func lookupMonth(token string) (time.Month, bool) {
	if len(token) < 3 {
		return 0, false
	}
	month, ok := monthsByPrefix[strings.ToLower(token[:3])]
	return month, ok
}

// makeDate validates the components by round-tripping through time.Date,
// which normalizes overflow (e.g. Feb 31 becomes Mar 2/3).
func makeDate(year, month, day int) (time.Time, bool) {
	if year < 1000 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}
