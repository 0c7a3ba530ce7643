// services/update_service_test.go
package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruscotto/pipeline/database"
	"github.com/cruscotto/pipeline/dataset"
	"github.com/cruscotto/pipeline/models"
)

func TestSaveDatasetMergesIntoExistingTable(t *testing.T) {
	dir := t.TempDir()
	store, err := database.Open(dir)
	require.NoError(t, err)

	first := []models.NationalityRecord{
		{Nationality: "Tunisia", Landed: 100, ReferenceDate: "2024-01-31", Filename: "a.pdf"},
		{Nationality: "Egitto", Landed: 50, ReferenceDate: "2024-01-31", Filename: "a.pdf"},
	}
	require.NoError(t, saveDataset(store, dir, models.TableNationality,
		dataset.StartBoundaryDefault, first))

	// Reprocessing January with corrected numbers plus a new month must
	// replace the January rows wholesale and keep the table sorted.
	second := []models.NationalityRecord{
		{Nationality: "Bangladesh", Landed: 70, ReferenceDate: "2024-02-29", Filename: "b.pdf"},
		{Nationality: "Tunisia", Landed: 110, ReferenceDate: "2024-01-31", Filename: "a2.pdf"},
	}
	require.NoError(t, saveDataset(store, dir, models.TableNationality,
		dataset.StartBoundaryDefault, second))

	rows, err := database.LoadTyped[models.NationalityRecord](store, models.TableNationality)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-31", rows[0].ReferenceDate)
	assert.Equal(t, int64(110), rows[0].Landed)
	assert.Equal(t, "2024-02-29", rows[1].ReferenceDate)

	// The CSV export sits next to the Parquet table.
	_, err = os.Stat(filepath.Join(dir, models.TableNationality+".csv"))
	assert.NoError(t, err)
}

func TestSaveDatasetEmptyBatchLeavesTableAlone(t *testing.T) {
	dir := t.TempDir()
	store, err := database.Open(dir)
	require.NoError(t, err)

	existing := []models.NationalityRecord{
		{Nationality: "Tunisia", Landed: 100, ReferenceDate: "2024-01-31", Filename: "a.pdf"},
	}
	require.NoError(t, saveDataset(store, dir, models.TableNationality,
		dataset.StartBoundaryDefault, existing))

	// Rows entirely before the start boundary count as an empty batch.
	old := []models.NationalityRecord{
		{Nationality: "Tunisia", Landed: 5, ReferenceDate: "2016-06-30", Filename: "old.pdf"},
	}
	require.NoError(t, saveDataset(store, dir, models.TableNationality,
		dataset.StartBoundaryDefault, old))

	rows, err := database.LoadTyped[models.NationalityRecord](store, models.TableNationality)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].Landed)
}

func TestRecentOnly(t *testing.T) {
	now := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	files := []string{
		"Cruscotto statistico giornaliero 31-05-2025.pdf",
		"Cruscotto statistico giornaliero 30-04-2025.pdf",
		"Cruscotto statistico giornaliero 31-12-2024.pdf",
		"senza_data.pdf",
	}

	recent := recentOnly(files, now, 3)
	assert.Equal(t, []string{
		"Cruscotto statistico giornaliero 31-05-2025.pdf",
		"Cruscotto statistico giornaliero 30-04-2025.pdf",
	}, recent)
}

func TestPreviousMonth(t *testing.T) {
	year, month := previousMonth(time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.December, month)

	year, month = previousMonth(time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.June, month)
}
