// extractors/nationality_extractor.go
package extractors

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	pdfplumber "github.com/allieus/pdfplumber-go"

	"github.com/cruscotto/pipeline/downloader"
	"github.com/cruscotto/pipeline/models"
)

// NationalityExtractor pulls the "nationalities declared at landing"
// table out of each report.
type NationalityExtractor struct {
	records []models.NationalityRecord
}

func NewNationalityExtractor() *NationalityExtractor {
	return &NationalityExtractor{}
}

func (e *NationalityExtractor) Name() string { return "nationality" }

// Records returns everything accumulated so far, in extraction order.
func (e *NationalityExtractor) Records() []models.NationalityRecord { return e.records }

// The title appeared with a few spellings over the years.
var nationalityTitleIndicators = []string{
	"Nazionalità dichiarate al momento dello sbarco",
	"Nazionalità dichiarata al momento dello sbarco",
	"Nazionalità dichiarate",
}

var nationalityTitleRelaxed = regexp.MustCompile(`NAZIONALIT[ÀA].*DICHIARAT[AE].*SBARCO`)

// Noise rows inside the table: totals, repeated headers, footnotes.
var nationalityNoise = regexp.MustCompile(`(?i)TOTALE|NAZIONALITÀ|NAZIONALITA|NOTE|^\s*$`)

// ExtractFile extracts the nationality table from one PDF and appends
// the resulting records. The reference date comes from the filename; a
// file whose name carries no recognizable date is skipped outright.
func (e *NationalityExtractor) ExtractFile(pdfPath string) (int, error) {
	filename := filepath.Base(pdfPath)

	refDate, err := downloader.ExtractDateString(filename)
	if err != nil {
		return 0, fmt.Errorf("skipping %s: %w", filename, err)
	}

	doc, err := pdfplumber.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer doc.Close()

	pageNum, ok := findPage(doc, func(text string) bool {
		if containsAnyFold(text, nationalityTitleIndicators) {
			return true
		}
		return nationalityTitleRelaxed.MatchString(strings.ToUpper(text))
	})
	if !ok {
		return 0, ErrTableNotFound
	}

	page, err := doc.GetPage(pageNum)
	if err != nil {
		return 0, fmt.Errorf("failed to load page %d of %s: %w", pageNum, filename, err)
	}

	tables := page.ExtractTables(pdfplumber.WithTableStrategy("lines", "lines"))
	for _, table := range tables {
		if len(table.Rows) < 3 {
			continue
		}
		rows := e.parseTable(cleanTable(table.Rows))
		if len(rows) == 0 {
			continue
		}
		for i := range rows {
			rows[i].ReferenceDate = refDate
			rows[i].Filename = filename
		}
		e.records = append(e.records, rows...)
		return len(rows), nil
	}

	return 0, ErrNoData
}

// parseTable walks the cleaned table rows and keeps only plausible
// nationality entries: a non-empty category cell that is not noise and a
// measure cell containing at least one digit and a positive value.
func (e *NationalityExtractor) parseTable(rows [][]string) []models.NationalityRecord {
	var out []models.NationalityRecord
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		nationality, landed := row[0], row[1]
		if nationality == "" || nationalityNoise.MatchString(nationality) {
			continue
		}
		if !hasDigit(landed) {
			continue
		}

		value := cleanNumber(landed)
		if value <= 0 {
			continue
		}

		out = append(out, models.NationalityRecord{
			Nationality: normalizeNationality(nationality),
			Landed:      value,
		})
	}
	return out
}

// The "Costa d'Avorio" entry is the table's worst offender: different
// apostrophe glyphs, broken encodings, inconsistent capitalization.
var costaAvorioPattern = regexp.MustCompile(`(?i)costa\s*d(['’´` + "`" + `‘]|â€™|'')\s*avorio`)

func normalizeNationality(nationality string) string {
	if costaAvorioPattern.MatchString(nationality) {
		return "Costa d'Avorio"
	}
	return nationality
}
