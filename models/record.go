// models/record.go
package models

// Table names of the canonical datasets, shared by the accumulators,
// the Parquet store and the query handlers.
const (
	TableNationality   = "dati_nazionalita"
	TableAccommodation = "dati_accoglienza"
	TableLandings      = "dati_sbarchi"
)

// Accommodation table format tags. The source report switched from a
// single-total table to a total-plus-breakdown table in June 2019.
const (
	FormatPre2019  = "pre-2019"
	FormatPost2019 = "post-2019"
)

// Record is the common surface of all dataset rows. ReferenceDate is the
// ISO date (YYYY-MM-DD) the document covers, always derived from the
// source filename and never from text inside the document body.
type Record interface {
	RefDate() string
}

// NationalityRecord is one declared nationality from the landings
// nationality table of a single report.
type NationalityRecord struct {
	Nationality   string `csv:"nazionalita" parquet:"nazionalita"`
	Landed        int64  `csv:"migranti_sbarcati" parquet:"migranti_sbarcati"`
	ReferenceDate string `csv:"data_riferimento" parquet:"data_riferimento"`
	Filename      string `csv:"filename" parquet:"filename"`
}

func (r NationalityRecord) RefDate() string { return r.ReferenceDate }

// AccommodationRecord is one region row of the accommodation presence
// table. For pre-2019 reports only the total column exists; the breakdown
// columns are zero by construction.
type AccommodationRecord struct {
	Region        string `csv:"regione" parquet:"regione"`
	HotSpot       int64  `csv:"migranti_hot_spot" parquet:"migranti_hot_spot"`
	Reception     int64  `csv:"migranti_centri_accoglienza" parquet:"migranti_centri_accoglienza"`
	SiproimiSai   int64  `csv:"migranti_siproimi_sai" parquet:"migranti_siproimi_sai"`
	Total         int64  `csv:"totale_accoglienza" parquet:"totale_accoglienza"`
	ReferenceDate string `csv:"data_riferimento" parquet:"data_riferimento"`
	Filename      string `csv:"filename" parquet:"filename"`
	Format        string `csv:"formato" parquet:"formato"`
}

func (r AccommodationRecord) RefDate() string { return r.ReferenceDate }

// LandingRecord is one (day, landed) pair from the daily landings chart.
type LandingRecord struct {
	Day           int64  `csv:"giorno" parquet:"giorno"`
	Landed        int64  `csv:"migranti_sbarcati" parquet:"migranti_sbarcati"`
	ReferenceDate string `csv:"data_riferimento" parquet:"data_riferimento"`
	Filename      string `csv:"filename" parquet:"filename"`
}

func (r LandingRecord) RefDate() string { return r.ReferenceDate }
