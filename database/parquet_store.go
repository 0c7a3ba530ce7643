// database/parquet_store.go
package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/cruscotto/pipeline/models"
)

// Store is the columnar database over the canonical datasets: one
// Parquet file per logical table plus cached metadata. Tables are read
// lazily and cached in memory on first access; there is exactly one
// writer (the accumulation step) and it runs before any reader, so no
// locking is needed.
type Store struct {
	dir   string
	meta  map[string]*models.TableInfo
	cache map[string][]map[string]any
}

// Open scans the data directory for Parquet tables and loads their
// metadata from the file footers without materializing any rows.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	s := &Store{
		dir:   dir,
		meta:  make(map[string]*models.TableInfo),
		cache: make(map[string][]map[string]any),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".parquet")
		if err := s.loadMetadata(name); err != nil {
			log.Printf("Failed to load metadata for %s: %v", name, err)
			continue
		}
		log.Printf("Loaded metadata for table: %s", name)
	}

	return s, nil
}

// loadMetadata reads one table's Parquet footer: column list, byte size,
// modification time, row count. Date coverage is filled in lazily when
// the table is first materialized.
func (s *Store) loadMetadata(name string) error {
	path := filepath.Join(s.dir, name+".parquet")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return fmt.Errorf("failed to read parquet footer of %s: %w", path, err)
	}

	var columns []string
	for _, field := range pf.Schema().Fields() {
		columns = append(columns, field.Name())
	}

	s.meta[name] = &models.TableInfo{
		Name:         name,
		Path:         path,
		Columns:      columns,
		SizeBytes:    st.Size(),
		LastModified: st.ModTime().Format("2006-01-02 15:04:05"),
		RowCount:     pf.NumRows(),
	}
	return nil
}

// Tables lists the available table names in sorted order.
func (s *Store) Tables() []string {
	names := make([]string, 0, len(s.meta))
	for name := range s.meta {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info returns the cached metadata for one table.
func (s *Store) Info(name string) (*models.TableInfo, bool) {
	info, ok := s.meta[name]
	return info, ok
}

// Table returns all rows of a table, loading and caching them on first
// access. The returned slice is the cache itself; callers that mutate
// rows must go through Query, which copies.
func (s *Store) Table(name string) ([]map[string]any, error) {
	if rows, ok := s.cache[name]; ok {
		return rows, nil
	}
	return s.materialize(name)
}

// ReloadTable discards the cached rows and metadata and re-reads the
// table from disk.
func (s *Store) ReloadTable(name string) ([]map[string]any, error) {
	delete(s.cache, name)
	if err := s.loadMetadata(name); err != nil {
		return nil, err
	}
	return s.materialize(name)
}

func (s *Store) materialize(name string) ([]map[string]any, error) {
	info, ok := s.meta[name]
	if !ok {
		return nil, fmt.Errorf("table %q not found", name)
	}

	rows, err := loadRows(name, info.Path)
	if err != nil {
		return nil, err
	}

	s.cache[name] = rows
	info.RowCount = int64(len(rows))
	info.DateMin, info.DateMax = dateRange(rows)
	log.Printf("Table loaded: %s (%d rows)", name, len(rows))
	return rows, nil
}

// loadRows reads one table's typed rows and flattens them into generic
// row maps for the query layer. The schemas are closed: this store only
// ever holds the three canonical datasets.
func loadRows(name, path string) ([]map[string]any, error) {
	switch name {
	case models.TableNationality:
		recs, err := parquet.ReadFile[models.NationalityRecord](path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows := make([]map[string]any, len(recs))
		for i, r := range recs {
			rows[i] = map[string]any{
				"nazionalita":       r.Nationality,
				"migranti_sbarcati": r.Landed,
				"data_riferimento":  r.ReferenceDate,
				"filename":          r.Filename,
			}
		}
		return rows, nil

	case models.TableAccommodation:
		recs, err := parquet.ReadFile[models.AccommodationRecord](path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows := make([]map[string]any, len(recs))
		for i, r := range recs {
			rows[i] = map[string]any{
				"regione":                     r.Region,
				"migranti_hot_spot":           r.HotSpot,
				"migranti_centri_accoglienza": r.Reception,
				"migranti_siproimi_sai":       r.SiproimiSai,
				"totale_accoglienza":          r.Total,
				"data_riferimento":            r.ReferenceDate,
				"filename":                    r.Filename,
				"formato":                     r.Format,
			}
		}
		return rows, nil

	case models.TableLandings:
		recs, err := parquet.ReadFile[models.LandingRecord](path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows := make([]map[string]any, len(recs))
		for i, r := range recs {
			rows[i] = map[string]any{
				"giorno":            r.Day,
				"migranti_sbarcati": r.Landed,
				"data_riferimento":  r.ReferenceDate,
				"filename":          r.Filename,
			}
		}
		return rows, nil
	}

	return nil, fmt.Errorf("table %q has no registered schema", name)
}

func dateRange(rows []map[string]any) (string, string) {
	var min, max string
	for _, row := range rows {
		date, _ := row["data_riferimento"].(string)
		if date == "" {
			continue
		}
		if min == "" || date < min {
			min = date
		}
		if date > max {
			max = date
		}
	}
	return min, max
}

// Query describes one request against a table. StartDate and EndDate are
// inclusive ISO dates; a filter value may be a scalar (equality) or a
// slice (membership); Columns projects the result when non-empty.
type Query struct {
	Table      string
	DateColumn string
	StartDate  string
	EndDate    string
	Filters    map[string]any
	Columns    []string
}

// Run executes the query: date-range filter, then per-column filters,
// then projection. The result is a fresh slice of fresh maps; the cached
// table is never handed out mutable.
func (s *Store) Run(q Query) ([]map[string]any, error) {
	rows, err := s.Table(q.Table)
	if err != nil {
		return nil, err
	}

	dateColumn := q.DateColumn
	if dateColumn == "" {
		dateColumn = "data_riferimento"
	}

	result := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if date, ok := row[dateColumn].(string); ok {
			if q.StartDate != "" && date < q.StartDate {
				continue
			}
			if q.EndDate != "" && date > q.EndDate {
				continue
			}
		}
		if !matchesFilters(row, q.Filters) {
			continue
		}
		result = append(result, projectRow(row, q.Columns))
	}
	return result, nil
}

func matchesFilters(row map[string]any, filters map[string]any) bool {
	for column, wanted := range filters {
		cell, ok := row[column]
		if !ok {
			continue
		}
		if !matchValue(cell, wanted) {
			return false
		}
	}
	return true
}

// matchValue compares a cell against a filter value. Slices mean
// membership; everything else is equality. Comparison goes through the
// string form so HTTP query parameters match int64 cells.
func matchValue(cell, wanted any) bool {
	v := reflect.ValueOf(wanted)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			if fmt.Sprint(cell) == fmt.Sprint(v.Index(i).Interface()) {
				return true
			}
		}
		return false
	}
	return fmt.Sprint(cell) == fmt.Sprint(wanted)
}

func projectRow(row map[string]any, columns []string) map[string]any {
	out := make(map[string]any, len(row))
	if len(columns) == 0 {
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

// coverageMeasures lists the numeric columns, in preference order, whose
// per-month sum represents a table in the coverage report.
var coverageMeasures = []string{
	"migranti_sbarcati", "totale_accoglienza", "migranti_hot_spot",
	"migranti_centri_accoglienza", "migranti_siproimi_sai",
}

// TemporalCoverage aggregates row counts and the main numeric measure
// per (year, month), for auditing which months actually carry data.
func (s *Store) TemporalCoverage(name string) ([]models.CoverageRow, error) {
	rows, err := s.Table(name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	measure := ""
	for _, candidate := range coverageMeasures {
		if _, ok := rows[0][candidate]; ok {
			measure = candidate
			break
		}
	}

	type bucket struct {
		rows  int
		total int64
	}
	buckets := make(map[[2]int]*bucket)

	for _, row := range rows {
		date, _ := row["data_riferimento"].(string)
		if len(date) < 7 {
			continue
		}
		year, err1 := strconv.Atoi(date[:4])
		month, err2 := strconv.Atoi(date[5:7])
		if err1 != nil || err2 != nil {
			continue
		}

		key := [2]int{year, month}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.rows++
		if measure != "" {
			if v, ok := row[measure].(int64); ok {
				b.total += v
			}
		}
	}

	coverage := make([]models.CoverageRow, 0, len(buckets))
	for key, b := range buckets {
		coverage = append(coverage, models.CoverageRow{
			Year: key[0], Month: key[1], Rows: b.rows, Total: b.total,
		})
	}
	sort.Slice(coverage, func(i, j int) bool {
		if coverage[i].Year != coverage[j].Year {
			return coverage[i].Year < coverage[j].Year
		}
		return coverage[i].Month < coverage[j].Month
	})
	return coverage, nil
}

// Stats summarizes the whole store for the admin surface.
func (s *Store) Stats() map[string]any {
	var totalRows, totalBytes int64
	tables := make(map[string]*models.TableInfo, len(s.meta))
	for name, info := range s.meta {
		tables[name] = info
		totalRows += info.RowCount
		totalBytes += info.SizeBytes
	}
	return map[string]any{
		"total_tables": len(s.meta),
		"total_rows":   totalRows,
		"total_bytes":  totalBytes,
		"tables":       tables,
	}
}

// SaveTable writes a table's rows to its Parquet file through a scoped
// temp file and rename, so a crash mid-write can never leave a truncated
// table behind, then refreshes the store's metadata and cache.
func SaveTable[T any](s *Store, name string, rows []T) error {
	path := filepath.Join(s.dir, name+".parquet")

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.parquet")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	writer := parquet.NewGenericWriter[T](tmp)
	if _, err := writer.Write(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write parquet rows for %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finalize parquet file for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", tmp.Name(), err)
	}

	delete(s.cache, name)
	if err := s.loadMetadata(name); err != nil {
		return err
	}
	log.Printf("Table saved: %s (%d rows)", name, len(rows))
	return nil
}

// LoadTyped reads a table back as its record type. A missing file is an
// empty dataset, not an error: first runs start from nothing.
func LoadTyped[T any](s *Store, name string) ([]T, error) {
	path := filepath.Join(s.dir, name+".parquet")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}
