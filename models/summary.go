// models/summary.go
package models

// DownloadSummary reports the outcome of a batch download run.
type DownloadSummary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// ExtractionSummary reports the outcome of a batch extraction run over
// the local PDF folder. RowsByYear buckets the emitted rows by the
// reference year of the source file, for spotting thin years at a glance.
type ExtractionSummary struct {
	Processed   int         `json:"processed"`
	Succeeded   int         `json:"succeeded"`
	FailedFiles []string    `json:"failed_files"`
	Rows        int         `json:"rows"`
	RowsByYear  map[int]int `json:"rows_by_year,omitempty"`
}

// TableInfo is the cached metadata of one columnar table. It is built
// from the Parquet footer alone; DateMin/DateMax are filled in once the
// table has been materialized.
type TableInfo struct {
	Name         string   `json:"name"`
	Path         string   `json:"-"`
	Columns      []string `json:"columns"`
	SizeBytes    int64    `json:"size_bytes"`
	LastModified string   `json:"last_modified"`
	RowCount     int64    `json:"row_count"`
	DateMin      string   `json:"date_min,omitempty"`
	DateMax      string   `json:"date_max,omitempty"`
}

// CoverageRow aggregates one (year, month) bucket of a table: how many
// rows carry data for that month and the sum of the main numeric measure.
type CoverageRow struct {
	Year  int   `json:"anno"`
	Month int   `json:"mese"`
	Rows  int   `json:"giorni_con_dati"`
	Total int64 `json:"totale"`
}
