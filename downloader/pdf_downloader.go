// downloader/pdf_downloader.go
package downloader

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cruscotto/pipeline/config"
	"github.com/cruscotto/pipeline/models"
)

// PDFDownloader acquires the monthly report PDFs. Acquisition is
// idempotent: a file that already exists locally is never fetched again,
// and a month that cannot be resolved is a normal failure, not an error.
type PDFDownloader struct {
	BaseURL string
	Domain  string
	SaveDir string
	// ArchivePage is the listing page scanned when neither the override
	// table nor the generated variants resolve a month; empty disables
	// discovery.
	ArchivePage string
	MaxRetries  int
	RetryDelay  time.Duration

	// Overrides maps periods to the known-irregular relative URLs tried
	// before any generated filename variant.
	Overrides map[config.Period]string

	client *http.Client
	now    func() time.Time
}

// NewPDFDownloader builds a downloader from the application config with
// the given URL override table.
func NewPDFDownloader(cfg config.DownloadConfig, saveDir string, overrides map[config.Period]string) *PDFDownloader {
	return &PDFDownloader{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Domain:      strings.TrimRight(cfg.Domain, "/"),
		SaveDir:     saveDir,
		ArchivePage: cfg.ArchivePage,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  time.Second,
		Overrides:   overrides,
		client:      &http.Client{Timeout: cfg.Timeout},
		now:         time.Now,
	}
}

// ArchiveFolder returns the date-bucketed storage folder the site files a
// given month under. Everything up to May 2025 was re-uploaded into the
// 2025-05 bucket during a site migration.
func ArchiveFolder(year int, month time.Month) string {
	switch {
	case year < 2025:
		return "2025-05"
	case year == 2025 && month <= time.May:
		return "2025-05"
	case year == 2025 && month <= time.October:
		return "2025-10"
	default:
		return "2025-12"
	}
}

// FilenameVariants generates the casing/separator variants a regular
// month was published under, in the order they should be tried.
func FilenameVariants(year int, month time.Month) []string {
	day := LastDayOfMonth(year, month)
	return []string{
		fmt.Sprintf("Cruscotto statistico giornaliero %02d-%02d-%d.pdf", day, month, year),
		fmt.Sprintf("cruscotto_statistico_giornaliero_%02d-%02d-%d.pdf", day, month, year),
		fmt.Sprintf("Cruscotto_statistico_giornaliero_%02d-%02d-%d.pdf", day, month, year),
		fmt.Sprintf("cruscotto_statistico_giornaliero_%d_%d_%d.pdf", day, month, year),
	}
}

// Download fetches a single URL into the save directory under filename.
// If the file already exists it returns true without a network call.
// Transient failures (network errors, non-2xx responses) are retried up
// to MaxRetries with a fixed delay; exhausting the retries returns false.
func (d *PDFDownloader) Download(fileURL, filename string) bool {
	target := filepath.Join(d.SaveDir, filename)

	if _, err := os.Stat(target); err == nil {
		log.Printf("File already present: %s", filename)
		return true
	}

	for attempt := 1; attempt <= d.MaxRetries; attempt++ {
		if err := d.fetchOnce(fileURL, target); err != nil {
			log.Printf("Attempt %d/%d failed for %s: %v", attempt, d.MaxRetries, filename, err)
			if attempt < d.MaxRetries {
				time.Sleep(d.RetryDelay)
			}
			continue
		}
		return true
	}

	return false
}

func (d *PDFDownloader) fetchOnce(fileURL, target string) error {
	resp, err := d.client.Get(fileURL)
	if err != nil {
		return fmt.Errorf("failed to make GET request to %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("received status code %d from %s", resp.StatusCode, fileURL)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}

	// Write through a temp file so a killed process cannot leave a
	// half-written PDF that would later be trusted by the existence check.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", target, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy downloaded content for %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", tmp.Name(), err)
	}

	size := int64(0)
	if st, err := os.Stat(target); err == nil {
		size = st.Size()
	}
	log.Printf("Downloaded: %s (%d bytes)", filepath.Base(target), size)
	return nil
}

// ProcessMonth resolves and downloads the report for one period. The
// override table is tried first, then the generated filename variants
// against the expected archive folder, then the archive listing page.
// Returns false when nothing resolved; the batch keeps going.
func (d *PDFDownloader) ProcessMonth(year int, month time.Month) bool {
	log.Printf("Processing %d-%02d", year, month)

	if relative, ok := d.Overrides[config.Period{Year: year, Month: int(month)}]; ok {
		fullURL := d.Domain + relative
		filename := unescapedBasename(relative)
		if d.Download(fullURL, filename) {
			return true
		}
	}

	folder := ArchiveFolder(year, month)
	for _, variant := range FilenameVariants(year, month) {
		fileURL := fmt.Sprintf("%s/%s/%s", d.BaseURL, folder, url.PathEscape(variant))
		if d.Download(fileURL, variant) {
			return true
		}
	}

	if found := d.discoverFromArchive(year, month); found {
		return true
	}

	log.Printf("No variant found for %d-%02d", year, month)
	return false
}

// DownloadAll iterates months from the start period through the most
// recently completed calendar month. The current month is never fetched:
// its report would still be accumulating days.
func (d *PDFDownloader) DownloadAll(startYear, startMonth int) models.DownloadSummary {
	endYear, endMonth := previousMonth(d.now())

	log.Printf("Downloading PDFs from %02d/%d to %02d/%d", startMonth, startYear, endMonth, endYear)

	var summary models.DownloadSummary
	for year := startYear; year <= endYear; year++ {
		for month := 1; month <= 12; month++ {
			if year == startYear && month < startMonth {
				continue
			}
			if year == endYear && month > int(endMonth) {
				break
			}

			summary.Total++
			if d.ProcessMonth(year, time.Month(month)) {
				summary.Success++
			}
		}
	}
	summary.Failed = summary.Total - summary.Success

	log.Printf("Download summary: %d/%d periods acquired, %d missing",
		summary.Success, summary.Total, summary.Failed)
	return summary
}

// DownloadedFiles lists the local PDF basenames in sorted order.
func (d *PDFDownloader) DownloadedFiles() ([]string, error) {
	entries, err := os.ReadDir(d.SaveDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF directory %s: %w", d.SaveDir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func previousMonth(now time.Time) (int, time.Month) {
	year, month := now.Year(), now.Month()
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

func unescapedBasename(rawPath string) string {
	base := path.Base(rawPath)
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}
