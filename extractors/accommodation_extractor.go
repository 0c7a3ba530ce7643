// extractors/accommodation_extractor.go
package extractors

import (
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	pdfplumber "github.com/allieus/pdfplumber-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cruscotto/pipeline/downloader"
	"github.com/cruscotto/pipeline/models"
)

// CutoverDate is when the accommodation table switched from a
// single-total layout to the total-plus-breakdown layout.
var CutoverDate = time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)

// AccommodationExtractor pulls the per-region reception presence table.
// Two historical schemas exist: a pre-June-2019 table carrying only the
// regional total, and the later five-column table with the hot spot /
// reception centre / SIPROIMI-SAI breakdown.
type AccommodationExtractor struct {
	records []models.AccommodationRecord
}

func NewAccommodationExtractor() *AccommodationExtractor {
	return &AccommodationExtractor{}
}

func (e *AccommodationExtractor) Name() string { return "accommodation" }

func (e *AccommodationExtractor) Records() []models.AccommodationRecord { return e.records }

var accommodationTitleIndicators = []string{
	"PRESENZE MIGRANTI IN ACCOGLIENZA",
	"PRESENZA MIGRANTI IN ACCOGLIENZA",
	"PRESENZE IN ACCOGLIENZA",
	"PRESENZA IN ACCOGLIENZA",
}

var accommodationTitleRelaxed = regexp.MustCompile(`PRESENZ[AE]\s*(MIGRANTI)?\s*IN\s*ACCOGLIENZA`)

// Phrases that only ever appeared in the old single-total layout.
var pre2019Indicators = []string{
	"Totale immigrati presenti sul territorio regione",
	"percentuale di distribuzione",
	"Percentuale di distribuzione",
}

// Rows to skip inside the table: repeated headers, totals, footnotes and
// the pre-2019 distribution percentage row.
var accommodationSkipPhrases = []string{
	"presenze migranti", "presenza migranti", "totale",
	"aggiornamento", "regione", "note", "fonte", "percentuale",
}

// italianRegions is the closed category vocabulary, held in the folded
// form produced by foldRegion (lowercase, separators collapsed to spaces,
// diacritics stripped).
var italianRegions = map[string]bool{
	"abruzzo": true, "basilicata": true, "calabria": true, "campania": true,
	"emilia romagna": true, "friuli venezia giulia": true, "lazio": true,
	"liguria": true, "lombardia": true, "marche": true, "molise": true,
	"piemonte": true, "puglia": true, "sardegna": true, "sicilia": true,
	"toscana": true, "trentino alto adige": true, "umbria": true,
	"valle daosta": true, "valle d aosta": true, "veneto": true,
	"trentino alto adige sudtirol": true,
}

// regionKeywords catch rows where the table layer glued extra text onto
// the region cell.
var regionKeywords = []string{
	"lombardia", "lazio", "campania", "sicilia", "veneto", "piemonte",
	"toscana", "puglia", "emilia", "sardegna", "calabria", "liguria",
	"abruzzo", "marche", "umbria", "molise", "basilicata", "trentino",
	"alto adige", "friuli", "valle", "aosta",
}

// ExtractFile extracts the accommodation table from one PDF, detecting
// which historical schema is present, and appends the region records.
func (e *AccommodationExtractor) ExtractFile(pdfPath string) (int, error) {
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
		if containsAnyFold(text, accommodationTitleIndicators) {
			return true
		}
		if accommodationTitleRelaxed.MatchString(strings.ToUpper(text)) {
			return true
		}
		if containsAllFold(text, []string{"REGIONE", "HOT SPOT", "ACCOGLIENZA"}) {
			return true
		}
		// Old layout pages carry neither the new title nor the new
		// column headers.
		return containsAllFold(text, []string{"REGIONE", "TOTALE IMMIGRATI PRESENTI"})
	})
	if !ok {
		return 0, ErrTableNotFound
	}

	page, err := doc.GetPage(pageNum)
	if err != nil {
		return 0, fmt.Errorf("failed to load page %d of %s: %w", pageNum, filename, err)
	}

	pre2019 := e.detectPre2019(page.ExtractText(), filename)
	format := models.FormatPost2019
	if pre2019 {
		format = models.FormatPre2019
	}
	log.Printf("[%s]   detected %s layout", e.Name(), format)

	tables := page.ExtractTables(pdfplumber.WithTableStrategy("lines", "lines"))
	for _, table := range tables {
		if len(table.Rows) < 3 {
			continue
		}
		rows := e.parseTable(cleanTable(table.Rows), pre2019)
		if len(rows) == 0 {
			continue
		}
		for i := range rows {
			rows[i].ReferenceDate = refDate
			rows[i].Filename = filename
			rows[i].Format = format
		}
		e.records = append(e.records, rows...)
		return len(rows), nil
	}

	return 0, ErrNoData
}

// detectPre2019 decides the table schema: explicit phrase indicators
// first, then the file's reference date against the cutover, defaulting
// to the newer layout when both are inconclusive.
func (e *AccommodationExtractor) detectPre2019(pageText, filename string) bool {
	for _, indicator := range pre2019Indicators {
		if strings.Contains(pageText, indicator) {
			return true
		}
	}

	if date, err := downloader.ExtractDate(filename); err == nil {
		if date.Before(CutoverDate) {
			return true
		}
	}

	return false
}

// parseTable walks the cleaned rows, classifies each against the region
// vocabulary and emits one record per region. In the pre-2019 layout the
// second column is the regional total and the breakdown stays zero; in
// the post-2019 layout columns two through five are hot spot, reception
// centres, SIPROIMI/SAI and total, padding with zeros when the PDF layer
// dropped trailing cells.
func (e *AccommodationExtractor) parseTable(rows [][]string, pre2019 bool) []models.AccommodationRecord {
	var out []models.AccommodationRecord
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		region := strings.TrimSpace(row[0])
		if region == "" || !isRegionRow(region) {
			continue
		}

		var rec models.AccommodationRecord
		rec.Region = normalizeRegionName(region)

		if pre2019 {
			rec.Total = cleanNumber(row[1])
		} else {
			cells := make([]int64, 4)
			for j := 1; j < len(row) && j < 5; j++ {
				cells[j-1] = cleanNumber(row[j])
			}
			rec.HotSpot = cells[0]
			rec.Reception = cells[1]
			rec.SiproimiSai = cells[2]
			rec.Total = cells[3]
		}

		out = append(out, rec)
	}
	return out
}

// isRegionRow checks a category cell against the skip phrases, the
// closed vocabulary and the keyword list.
func isRegionRow(region string) bool {
	lower := strings.ToLower(region)
	for _, phrase := range accommodationSkipPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	folded := foldRegion(region)
	if italianRegions[folded] {
		return true
	}
	for _, word := range strings.Fields(folded) {
		if len(word) > 3 && italianRegions[word] {
			return true
		}
	}
	for _, keyword := range regionKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

var regionSeparators = strings.NewReplacer("-", " ", "'", "", "’", "", ".", "", "/", " ")

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldRegion lowercases, strips separators and removes diacritics so the
// many historical spellings of a region collapse to one vocabulary key.
func foldRegion(region string) string {
	s := regionSeparators.Replace(strings.ToLower(region))
	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// regionSynonyms maps the uppercase spellings seen in the wild to
// canonical names. Anything not in the map is title-cased as-is.
var regionSynonyms = map[string]string{
	"TRENTINO-ALTO ADIGE/SÜDTIROL": "Trentino-Alto Adige",
	"TRENTINO-ALTO ADIGE/SUDTIROL": "Trentino-Alto Adige",
	"TRENTINO-ALTO ADIGE":          "Trentino-Alto Adige",
	"TRENTINO ALTO ADIGE":          "Trentino-Alto Adige",
	"TRENTINO":                     "Trentino-Alto Adige",
	"ALTO ADIGE":                   "Trentino-Alto Adige",

	"VALLE D'AOSTA":                 "Valle D'Aosta",
	"VALLE D’AOSTA":                 "Valle D'Aosta",
	"VALLE D'AOSTA/VALLÉE D'AOSTE":  "Valle D'Aosta",
	"VALLE D'AOSTA/VALLEE D'AOSTE":  "Valle D'Aosta",
	"VALLE D AOSTA/VALLEE D AOSTE":  "Valle D'Aosta",
	"VALLE D AOSTA":                 "Valle D'Aosta",
	"VALLE DAOSTA":                  "Valle D'Aosta",

	"FRIULI-VENEZIA GIULIA": "Friuli-Venezia Giulia",
	"FRIULI VENEZIA GIULIA": "Friuli-Venezia Giulia",
	"FRIULI":                "Friuli-Venezia Giulia",

	"EMILIA-ROMAGNA": "Emilia-Romagna",
	"EMILIA ROMAGNA": "Emilia-Romagna",

	"PUGLIE":    "Puglia",
	"TOSCANE":   "Toscana",
	"LOMBARDIE": "Lombardia",
}

var italianTitle = cases.Title(language.Italian)

func normalizeRegionName(region string) string {
	upper := strings.ToUpper(strings.TrimSpace(region))
	if canonical, ok := regionSynonyms[upper]; ok {
		return canonical
	}
	return italianTitle.String(strings.ToLower(upper))
}
