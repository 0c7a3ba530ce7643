// extractors/base_extractor.go
package extractors

import (
	"errors"
	"log"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	pdfplumber "github.com/allieus/pdfplumber-go"

	"github.com/cruscotto/pipeline/downloader"
	"github.com/cruscotto/pipeline/models"
)

// ErrTableNotFound means no page of the document matched the dataset's
// indicators. ErrNoData means a page matched but nothing passed
// validation. Both are normal per-document outcomes, not batch failures.
var (
	ErrTableNotFound = errors.New("target table not found in document")
	ErrNoData        = errors.New("no valid data extracted")
)

// DocumentExtractor is the per-dataset capability the shared batch
// orchestration drives. ExtractFile processes one PDF and accumulates any
// records internally, returning the number of rows it emitted.
type DocumentExtractor interface {
	Name() string
	ExtractFile(pdfPath string) (int, error)
}

// ProcessAll runs one extractor over every PDF in the folder, in
// filename-sorted order. A single document's failure never aborts the
// batch; it is recorded and the next document is processed.
func ProcessAll(ext DocumentExtractor, pdfFiles []string, pdfDir string) models.ExtractionSummary {
	var summary models.ExtractionSummary

	if len(pdfFiles) == 0 {
		log.Printf("[%s] no PDF files to process", ext.Name())
		return summary
	}

	log.Printf("[%s] processing %d PDF files", ext.Name(), len(pdfFiles))

	for i, name := range pdfFiles {
		log.Printf("[%s] [%d/%d] %s", ext.Name(), i+1, len(pdfFiles), name)

		rows, err := ext.ExtractFile(filepath.Join(pdfDir, name))
		summary.Processed++
		switch {
		case err != nil:
			summary.FailedFiles = append(summary.FailedFiles, name)
			log.Printf("[%s]   extraction failed: %v", ext.Name(), err)
		case rows == 0:
			summary.FailedFiles = append(summary.FailedFiles, name)
			log.Printf("[%s]   no data extracted", ext.Name())
		default:
			summary.Succeeded++
			summary.Rows += rows
			if date, err := downloader.ExtractDate(name); err == nil {
				if summary.RowsByYear == nil {
					summary.RowsByYear = make(map[int]int)
				}
				summary.RowsByYear[date.Year()] += rows
			}
			log.Printf("[%s]   extracted %d rows", ext.Name(), rows)
		}
	}

	years := make([]int, 0, len(summary.RowsByYear))
	for year := range summary.RowsByYear {
		years = append(years, year)
	}
	sort.Ints(years)
	for _, year := range years {
		log.Printf("[%s]   %d: %d rows", ext.Name(), year, summary.RowsByYear[year])
	}

	log.Printf("[%s] summary: %d processed, %d succeeded, %d failed",
		ext.Name(), summary.Processed, summary.Succeeded, len(summary.FailedFiles))
	if n := len(summary.FailedFiles); n > 0 {
		show := summary.FailedFiles
		if n > 5 {
			show = show[:5]
		}
		for _, f := range show {
			log.Printf("[%s]   failed: %s", ext.Name(), f)
		}
	}

	return summary
}

// pageMatcher decides whether a page's text belongs to the dataset.
type pageMatcher func(text string) bool

// findPage scans the document for the first page whose extracted text
// satisfies the matcher and returns its index.
func findPage(doc pdfplumber.Document, match pageMatcher) (int, bool) {
	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.GetPage(i)
		if err != nil {
			continue
		}
		text := page.ExtractText()
		if text == "" {
			continue
		}
		if match(text) {
			return i, true
		}
	}
	return 0, false
}

// containsAnyFold reports whether text contains any of the phrases,
// case-insensitively.
func containsAnyFold(text string, phrases []string) bool {
	upper := strings.ToUpper(text)
	for _, p := range phrases {
		if strings.Contains(upper, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

// containsAllFold reports whether text contains every keyword,
// case-insensitively.
func containsAllFold(text string, keywords []string) bool {
	upper := strings.ToUpper(text)
	for _, k := range keywords {
		if !strings.Contains(upper, strings.ToUpper(k)) {
			return false
		}
	}
	return true
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanTable collapses whitespace in every cell and drops rows that are
// nil or entirely empty. The PDF layer frequently returns ragged rows
// with newline-filled cells; everything downstream assumes single-line
// trimmed cells.
func cleanTable(rows [][]string) [][]string {
	var cleaned [][]string
	for _, row := range rows {
		if row == nil {
			continue
		}
		clean := make([]string, len(row))
		empty := true
		for j, cell := range row {
			clean[j] = whitespaceRun.ReplaceAllString(strings.TrimSpace(cell), " ")
			if clean[j] != "" {
				empty = false
			}
		}
		if !empty {
			cleaned = append(cleaned, clean)
		}
	}
	return cleaned
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// cleanNumber strips thousands separators and any other non-digit noise
// from a numeric cell and parses what remains. Unparseable cells coerce
// to zero instead of failing the row: this loses information when a cell
// is genuinely garbled, but it is how every published dataset revision
// was produced, so it is kept for compatibility.
func cleanNumber(cell string) int64 {
	digits := nonDigits.ReplaceAllString(cell, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// hasDigit reports whether the cell contains at least one digit; rows
// whose measure column has none are layout noise, not data.
func hasDigit(cell string) bool {
	return strings.ContainsAny(cell, "0123456789")
}
