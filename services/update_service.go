// services/update_service.go
package services

import (
	"fmt"
	"log"
	"time"

	"github.com/cruscotto/pipeline/config"
	"github.com/cruscotto/pipeline/database"
	"github.com/cruscotto/pipeline/dataset"
	"github.com/cruscotto/pipeline/downloader"
	"github.com/cruscotto/pipeline/extractors"
	"github.com/cruscotto/pipeline/models"
)

// UpdateService drives the whole pipeline: acquisition, the three
// extractors, canonical merge and columnar persistence. Extractors are
// isolated from each other; one dataset failing to extract or persist
// never blocks the other two.
type UpdateService struct {
	cfg   config.Config
	store *database.Store
	dl    *downloader.PDFDownloader

	now func() time.Time
}

func NewUpdateService(cfg config.Config, store *database.Store) (*UpdateService, error) {
	overrides, err := config.URLOverrides()
	if err != nil {
		return nil, fmt.Errorf("failed to load URL overrides: %w", err)
	}

	return &UpdateService{
		cfg:   cfg,
		store: store,
		dl:    downloader.NewPDFDownloader(cfg.Download, cfg.Paths.PDFDir, overrides),
		now:   time.Now,
	}, nil
}

// RunFull acquires every missing report from the configured start period
// through the previous month, reprocesses the whole local folder and
// rebuilds the canonical datasets.
func (s *UpdateService) RunFull() error {
	log.Println("=== full pipeline run ===")

	summary := s.dl.DownloadAll(s.cfg.Extraction.DefaultStartYear, s.cfg.Extraction.DefaultStartMonth)
	log.Printf("Acquisition: %d/%d periods available", summary.Success, summary.Total)

	files, err := s.dl.DownloadedFiles()
	if err != nil {
		return err
	}
	return s.processFiles(files)
}

// UpdateLatest is the monthly cron path: it targets only the previous
// calendar month, skips everything if that report is already on disk,
// and reprocesses just the recent files.
func (s *UpdateService) UpdateLatest() error {
	year, month := previousMonth(s.now())
	log.Printf("=== monthly update for %d-%02d ===", year, month)

	files, err := s.dl.DownloadedFiles()
	if err != nil {
		return err
	}
	for _, name := range files {
		if date, err := downloader.ExtractDate(name); err == nil {
			if date.Year() == year && date.Month() == month {
				log.Printf("Report for %d-%02d already present, nothing to do", year, month)
				return nil
			}
		}
	}

	if !s.dl.ProcessMonth(year, month) {
		log.Printf("Report for %d-%02d not yet published", year, month)
		return nil
	}

	files, err = s.dl.DownloadedFiles()
	if err != nil {
		return err
	}
	return s.processFiles(recentOnly(files, s.now(), 3))
}

// processFiles runs the three extractors over the given PDFs and merges
// each dataset's output into its canonical table with date-level
// supersede semantics.
func (s *UpdateService) processFiles(files []string) error {
	pdfDir := s.cfg.Paths.PDFDir
	var firstErr error

	log.Println("--- nationality dataset ---")
	nat := extractors.NewNationalityExtractor()
	extractors.ProcessAll(nat, files, pdfDir)
	if err := saveDataset(s.store, s.cfg.Paths.OutputDir,
		models.TableNationality, dataset.StartBoundaryDefault, nat.Records()); err != nil {
		log.Printf("Failed to persist nationality dataset: %v", err)
		firstErr = err
	}

	log.Println("--- accommodation dataset ---")
	acc := extractors.NewAccommodationExtractor()
	extractors.ProcessAll(acc, files, pdfDir)
	if err := saveDataset(s.store, s.cfg.Paths.OutputDir,
		models.TableAccommodation, dataset.StartBoundaryDefault, acc.Records()); err != nil {
		log.Printf("Failed to persist accommodation dataset: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	log.Println("--- landings dataset ---")
	land := extractors.NewLandingsExtractor()
	extractors.ProcessAll(land, files, pdfDir)
	if err := saveDataset(s.store, s.cfg.Paths.OutputDir,
		models.TableLandings, dataset.StartBoundaryLandings, land.Records()); err != nil {
		log.Printf("Failed to persist landings dataset: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// saveDataset merges a freshly extracted batch into the existing
// canonical table (date-level supersede), enforces the dataset's start
// boundary and rewrites the Parquet table and its CSV export.
func saveDataset[T models.Record](store *database.Store, outputDir, table, startsFrom string, rows []T) error {
	acc := dataset.NewAccumulator[T](table, startsFrom)
	acc.Add(rows)

	batch := acc.Canonical()
	if len(batch) == 0 {
		log.Printf("No new rows for %s, table left untouched", table)
		return nil
	}

	existing, err := database.LoadTyped[T](store, table)
	if err != nil {
		return err
	}

	canonical := dataset.SortAndFilter(dataset.MergeByDate(existing, batch), startsFrom)

	if err := database.SaveTable(store, table, canonical); err != nil {
		return err
	}
	return database.ExportCSV[T](outputDir, table, canonical)
}

// recentOnly keeps files whose reference date falls within the last
// months, so a monthly update does not reprocess eight years of PDFs.
func recentOnly(files []string, now time.Time, months int) []string {
	cutoff := now.AddDate(0, -months, 0)
	var recent []string
	for _, name := range files {
		date, err := downloader.ExtractDate(name)
		if err != nil {
			continue
		}
		if !date.Before(cutoff) {
			recent = append(recent, name)
		}
	}
	return recent
}

func previousMonth(now time.Time) (int, time.Month) {
	year, month := now.Year(), now.Month()
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}
