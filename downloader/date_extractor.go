// downloader/date_extractor.go
package downloader

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrDateNotRecognized is returned when a filename matches none of the
// historical naming conventions. Callers must skip the file; there is no
// default date.
var ErrDateNotRecognized = errors.New("no reference date recognized in filename")

// ItalianMonths maps lowercase Italian month names to month numbers.
var ItalianMonths = map[string]time.Month{
	"gennaio": time.January, "febbraio": time.February, "marzo": time.March,
	"aprile": time.April, "maggio": time.May, "giugno": time.June,
	"luglio": time.July, "agosto": time.August, "settembre": time.September,
	"ottobre": time.October, "novembre": time.November, "dicembre": time.December,
}

// MonthAbbreviations maps month numbers to the Italian abbreviations used
// on the landings chart axis (1-gen, 2-gen, ...).
var MonthAbbreviations = map[time.Month]string{
	time.January: "gen", time.February: "feb", time.March: "mar",
	time.April: "apr", time.May: "mag", time.June: "giu",
	time.July: "lug", time.August: "ago", time.September: "set",
	time.October: "ott", time.November: "nov", time.December: "dic",
}

// The report filenames went through several naming conventions over the
// years. Patterns are tried in this order; the anchored underscore form
// comes before the bare one so that unrelated numeric substrings in long
// filenames do not win.
var (
	reDashDate      = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`)
	reSpelledDate   = regexp.MustCompile(`(\d{1,2})\s+(\w+)\s+(\d{4})`)
	reDotDate       = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{4})`)
	reCompactDate   = regexp.MustCompile(`(\d{2})(\d{2})(\d{4})`)
	rePrefixedDate  = regexp.MustCompile(`cruscotto_statistico_giornaliero_(\d{1,2})_(\w+)_(\d{4})`)
	reUnderscoreDat = regexp.MustCompile(`(\d{1,2})_(\w+)_(\d{4})`)
)

// ExtractDate parses the reference date out of a report filename, trying
// the historical naming conventions in priority order. The returned date
// is the one the document covers, not the upload or processing date.
func ExtractDate(filename string) (time.Time, error) {
	if m := reDashDate.FindStringSubmatch(filename); m != nil {
		if d, ok := buildDate(m[3], m[2], m[1]); ok {
			return d, nil
		}
	}

	if m := reSpelledDate.FindStringSubmatch(filename); m != nil {
		if d, ok := buildSpelledDate(m[3], m[2], m[1]); ok {
			return d, nil
		}
	}

	if m := reDotDate.FindStringSubmatch(filename); m != nil {
		if d, ok := buildDate(m[3], m[2], m[1]); ok {
			return d, nil
		}
	}

	// The concatenated ddmmyyyy form only ever appeared in 2017-2018
	// uploads; restricting the years avoids false positives on digit runs.
	if m := reCompactDate.FindStringSubmatch(filename); m != nil {
		if m[3] == "2017" || m[3] == "2018" {
			if d, ok := buildDate(m[3], m[2], m[1]); ok {
				return d, nil
			}
		}
	}

	if m := rePrefixedDate.FindStringSubmatch(filename); m != nil {
		if d, ok := buildSpelledDate(m[3], m[2], m[1]); ok {
			return d, nil
		}
	}

	if m := reUnderscoreDat.FindStringSubmatch(filename); m != nil {
		if d, ok := buildSpelledDate(m[3], m[2], m[1]); ok {
			return d, nil
		}
	}

	return time.Time{}, ErrDateNotRecognized
}

// ExtractDateString is ExtractDate with the ISO form the datasets store.
func ExtractDateString(filename string) (string, error) {
	d, err := ExtractDate(filename)
	if err != nil {
		return "", err
	}
	return d.Format("2006-01-02"), nil
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > LastDayOfMonth(y, time.Month(m)) {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

func buildSpelledDate(year, monthName, day string) (time.Time, bool) {
	// Unrecognized month words fall back to January. Questionable, but
	// the historical outputs were produced this way and downstream
	// consumers depend on it.
	month, ok := ItalianMonths[strings.ToLower(monthName)]
	if !ok {
		month = time.January
	}
	y, _ := strconv.Atoi(year)
	d, _ := strconv.Atoi(day)
	if d < 1 || d > LastDayOfMonth(y, month) {
		return time.Time{}, false
	}
	return time.Date(y, month, d, 0, 0, 0, 0, time.UTC), true
}

// LastDayOfMonth returns the number of days in the given month,
// accounting for leap years.
func LastDayOfMonth(year int, month time.Month) int {
	switch month {
	case time.January, time.March, time.May, time.July, time.August, time.October, time.December:
		return 31
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	}
}
