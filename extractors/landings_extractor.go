// extractors/landings_extractor.go
package extractors

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	pdfplumber "github.com/allieus/pdfplumber-go"

	"github.com/cruscotto/pipeline/downloader"
	"github.com/cruscotto/pipeline/models"
)

// maxDailyLandings is the plausibility ceiling for a single day's count.
// Anything above it is an extraction artifact (usually an axis label or a
// bleed from a neighbouring table), not data.
const maxDailyLandings = 10000

// LandingsExtractor pulls the daily landings bar chart. Unlike the other
// two datasets this is not a table: the numbers live in the chart's text
// layer, so the extraction isolates the chart region between its title
// and the two fixed caption lines printed underneath, and parses
// day/value pairs out of the remaining lines.
type LandingsExtractor struct {
	records []models.LandingRecord
}

func NewLandingsExtractor() *LandingsExtractor {
	return &LandingsExtractor{}
}

func (e *LandingsExtractor) Name() string { return "landings" }

func (e *LandingsExtractor) Records() []models.LandingRecord { return e.records }

// The chart is identified by its full title plus both caption lines.
// Requiring all three keeps pages whose tables merely mention landings
// from matching.
var (
	chartTitlePattern = regexp.MustCompile(`Migranti sbarcati per giorno al \d{1,2} \w+ \d{4}\* - mese di \w+`)
	chartCaptions     = []*regexp.Regexp{
		regexp.MustCompile(`\*I dati si riferiscono agli eventi di sbarco rilevati entro le ore 8:00 del giorno di riferimento`),
		regexp.MustCompile(`Fonte: Dipartimento della Pubblica sicurezza\. I dati sono suscettibili di successivo consolidamento\.`),
	}
)

// Lines belonging to neighbouring page elements that can bleed into the
// chart region.
var chartNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Note:.*`),
	regexp.MustCompile(`(?i)Tabella.*`),
	regexp.MustCompile(`(?i)PRESENZE.*`),
	regexp.MustCompile(`(?i)NAZIONALITÀ.*`),
	regexp.MustCompile(`(?i)Totale.*`),
}

// ExtractFile extracts the daily landings series from one PDF. The month
// geometry (abbreviation on the axis labels, number of days) comes from
// the filename's reference date. Validation is all-or-nothing: a series
// that fails any structural check emits no records at all.
func (e *LandingsExtractor) ExtractFile(pdfPath string) (int, error) {
	filename := filepath.Base(pdfPath)

	refDate, err := downloader.ExtractDate(filename)
	if err != nil {
		return 0, fmt.Errorf("skipping %s: %w", filename, err)
	}
	abbr := downloader.MonthAbbreviations[refDate.Month()]
	daysInMonth := downloader.LastDayOfMonth(refDate.Year(), refDate.Month())

	doc, err := pdfplumber.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer doc.Close()

	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.GetPage(i)
		if err != nil {
			continue
		}
		text := page.ExtractText()
		if text == "" || !hasChartMarkers(text) {
			continue
		}

		area, ok := isolateChartArea(text)
		if !ok {
			continue
		}

		series := parseChartArea(area, abbr, daysInMonth)
		if !validateSeries(series, daysInMonth) {
			continue
		}

		days := make([]int, 0, len(series))
		for day := range series {
			days = append(days, day)
		}
		sort.Ints(days)

		refDateStr := refDate.Format("2006-01-02")
		for _, day := range days {
			e.records = append(e.records, models.LandingRecord{
				Day:           int64(day),
				Landed:        int64(series[day]),
				ReferenceDate: refDateStr,
				Filename:      filename,
			})
		}
		return len(days), nil
	}

	return 0, ErrTableNotFound
}

func hasChartMarkers(text string) bool {
	if !chartTitlePattern.MatchString(text) {
		return false
	}
	for _, caption := range chartCaptions {
		if !caption.MatchString(text) {
			return false
		}
	}
	return true
}

// isolateChartArea cuts the page text down to the region between the end
// of the chart title and the first caption line, then strips lines that
// belong to adjacent elements. Everything outside that window is another
// table's text and must not be parsed.
func isolateChartArea(text string) (string, bool) {
	title := chartTitlePattern.FindStringIndex(text)
	if title == nil {
		return "", false
	}

	after := text[title[1]:]
	caption := chartCaptions[0].FindStringIndex(after)
	if caption == nil {
		return "", false
	}

	var kept []string
	for _, line := range strings.Split(after[:caption[0]], "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isChartNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), true
}

func isChartNoise(line string) bool {
	for _, pattern := range chartNoisePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// parseChartArea extracts (day, value) pairs from the isolated region.
// The primary pattern matches the axis label form "7-ago 125"; when it
// covers too little of the month the looser fallback patterns run, never
// overwriting a day the primary already filled.
func parseChartArea(area, monthAbbr string, daysInMonth int) map[int]int {
	series := make(map[int]int)

	primary := regexp.MustCompile(`(?i)(\d{1,2})-` + monthAbbr + `\s+(\d{1,6})`)
	for _, m := range primary.FindAllStringSubmatch(area, -1) {
		addSeriesPoint(series, m[1], m[2], daysInMonth, false)
	}

	// Fewer than 30% of the days from the primary pattern means the text
	// layer used a different label form; try the relaxed ones.
	if len(series) < daysInMonth*3/10 {
		fallbacks := []*regexp.Regexp{
			regexp.MustCompile(`(?i)(\d{1,2})\s+` + monthAbbr + `\s+(\d{1,6})`),
			regexp.MustCompile(`(?i)(\d{1,2})[` + monthAbbr + `]\s*(\d{1,6})`),
			regexp.MustCompile(`(\d{1,2})\s+(\d{1,6})`),
		}
		for _, pattern := range fallbacks {
			for _, m := range pattern.FindAllStringSubmatch(area, -1) {
				addSeriesPoint(series, m[1], m[2], daysInMonth, true)
			}
		}
	}

	return series
}

func addSeriesPoint(series map[int]int, dayStr, valueStr string, daysInMonth int, keepExisting bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return
	}
	if day < 1 || day > daysInMonth || value < 0 || value > maxDailyLandings {
		return
	}
	if keepExisting {
		if _, seen := series[day]; seen {
			return
		}
	}
	series[day] = value
}

// validateSeries applies the structural checks for a plausible month of
// chart data: enough days present, no implausible values, and the days
// spread across the month rather than clumped (a clump means the parser
// locked onto a different element). Partial results are rejected whole.
func validateSeries(series map[int]int, daysInMonth int) bool {
	if len(series) == 0 {
		return false
	}

	// At least a quarter of the month, never fewer than five days.
	if len(series) < 5 || len(series)*4 < daysInMonth {
		return false
	}

	minDay, maxDay := daysInMonth+1, 0
	for day, value := range series {
		if value < 0 || value > maxDailyLandings {
			return false
		}
		if day < minDay {
			minDay = day
		}
		if day > maxDay {
			maxDay = day
		}
	}

	span := maxDay - minDay + 1
	return span*10 >= len(series)*8
}
