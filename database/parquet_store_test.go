// database/parquet_store_test.go
package database

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruscotto/pipeline/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func sampleNationality() []models.NationalityRecord {
	return []models.NationalityRecord{
		{Nationality: "Tunisia", Landed: 120, ReferenceDate: "2024-01-31", Filename: "a.pdf"},
		{Nationality: "Egitto", Landed: 45, ReferenceDate: "2024-01-31", Filename: "a.pdf"},
		{Nationality: "Tunisia", Landed: 98, ReferenceDate: "2024-02-29", Filename: "b.pdf"},
		{Nationality: "Bangladesh", Landed: 60, ReferenceDate: "2024-03-31", Filename: "c.pdf"},
	}
}

func TestSaveTableRoundTrip(t *testing.T) {
	s := testStore(t)
	rows := sampleNationality()

	require.NoError(t, SaveTable(s, models.TableNationality, rows))

	got, err := LoadTyped[models.NationalityRecord](s, models.TableNationality)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	info, ok := s.Info(models.TableNationality)
	require.True(t, ok)
	assert.Equal(t, int64(4), info.RowCount)
	assert.Contains(t, info.Columns, "nazionalita")
	assert.Contains(t, info.Columns, "data_riferimento")
	assert.Greater(t, info.SizeBytes, int64(0))

	// No leftover temp files from the staged write.
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TableNationality+".parquet", entries[0].Name())
}

func TestLoadTypedMissingTableIsEmpty(t *testing.T) {
	s := testStore(t)
	got, err := LoadTyped[models.LandingRecord](s, models.TableLandings)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenDiscoversExistingTables(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, SaveTable(s, models.TableNationality, sampleNationality()))

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{models.TableNationality}, reopened.Tables())

	rows, err := reopened.Table(models.TableNationality)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, "Tunisia", rows[0]["nazionalita"])
	assert.Equal(t, int64(120), rows[0]["migranti_sbarcati"])

	info, _ := reopened.Info(models.TableNationality)
	assert.Equal(t, "2024-01-31", info.DateMin)
	assert.Equal(t, "2024-03-31", info.DateMax)
}

func TestRunDateRangeIsInclusive(t *testing.T) {
	s := testStore(t)
	require.NoError(t, SaveTable(s, models.TableNationality, sampleNationality()))

	rows, err := s.Run(Query{
		Table:     models.TableNationality,
		StartDate: "2024-01-31",
		EndDate:   "2024-02-29",
	})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// start == end == D returns exactly the rows on D.
	rows, err = s.Run(Query{
		Table:     models.TableNationality,
		StartDate: "2024-02-29",
		EndDate:   "2024-02-29",
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-02-29", rows[0]["data_riferimento"])
}

func TestRunFiltersAndMembership(t *testing.T) {
	s := testStore(t)
	require.NoError(t, SaveTable(s, models.TableNationality, sampleNationality()))

	rows, err := s.Run(Query{
		Table:   models.TableNationality,
		Filters: map[string]any{"nazionalita": "Tunisia"},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// Repeated parameter semantics: a slice filter means membership.
	rows, err = s.Run(Query{
		Table:   models.TableNationality,
		Filters: map[string]any{"nazionalita": []string{"Egitto", "Bangladesh"}},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// HTTP parameters arrive as strings even for numeric columns.
	rows, err = s.Run(Query{
		Table:   models.TableNationality,
		Filters: map[string]any{"migranti_sbarcati": "45"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Egitto", rows[0]["nazionalita"])
}

func TestRunProjectionCopiesRows(t *testing.T) {
	s := testStore(t)
	require.NoError(t, SaveTable(s, models.TableNationality, sampleNationality()))

	rows, err := s.Run(Query{
		Table:   models.TableNationality,
		Columns: []string{"nazionalita", "migranti_sbarcati"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Len(t, rows[0], 2)
	assert.NotContains(t, rows[0], "filename")

	// Mutating a result row must not poison the cache.
	rows[0]["nazionalita"] = "mutated"
	cached, err := s.Table(models.TableNationality)
	require.NoError(t, err)
	assert.Equal(t, "Tunisia", cached[0]["nazionalita"])
}

func TestRunUnknownTable(t *testing.T) {
	s := testStore(t)
	_, err := s.Run(Query{Table: "no_such_table"})
	assert.Error(t, err)
}

func TestTemporalCoverage(t *testing.T) {
	s := testStore(t)
	require.NoError(t, SaveTable(s, models.TableNationality, sampleNationality()))

	coverage, err := s.TemporalCoverage(models.TableNationality)
	require.NoError(t, err)
	require.Len(t, coverage, 3)

	assert.Equal(t, models.CoverageRow{Year: 2024, Month: 1, Rows: 2, Total: 165}, coverage[0])
	assert.Equal(t, models.CoverageRow{Year: 2024, Month: 2, Rows: 1, Total: 98}, coverage[1])
	assert.Equal(t, models.CoverageRow{Year: 2024, Month: 3, Rows: 1, Total: 60}, coverage[2])
}

func TestReloadTablePicksUpRewrite(t *testing.T) {
	s := testStore(t)
	require.NoError(t, SaveTable(s, models.TableNationality, sampleNationality()))

	_, err := s.Table(models.TableNationality)
	require.NoError(t, err)

	require.NoError(t, SaveTable(s, models.TableNationality, sampleNationality()[:1]))
	rows, err := s.ReloadTable(models.TableNationality)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStats(t *testing.T) {
	s := testStore(t)
	require.NoError(t, SaveTable(s, models.TableNationality, sampleNationality()))
	require.NoError(t, SaveTable(s, models.TableLandings, []models.LandingRecord{
		{Day: 1, Landed: 33, ReferenceDate: "2024-01-31", Filename: "a.pdf"},
	}))

	stats := s.Stats()
	assert.Equal(t, 2, stats["total_tables"])
	assert.Equal(t, int64(5), stats["total_rows"])
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ExportCSV(dir, models.TableNationality, sampleNationality()))

	f, err := os.Open(filepath.Join(dir, models.TableNationality+".csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "nazionalita", records[0][0])
	assert.True(t, strings.Contains(strings.Join(records[1], ","), "Tunisia"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
