// extractors/accommodation_extractor_test.go
package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPre2019(t *testing.T) {
	ext := NewAccommodationExtractor()

	// An explicit old-layout phrase wins regardless of the date.
	assert.True(t, ext.detectPre2019(
		"Totale immigrati presenti sul territorio regione e percentuale",
		"cruscotto_statistico_giornaliero_31-01-2022.pdf"))

	// No phrase: the filename date decides against the cutover.
	assert.True(t, ext.detectPre2019("testo qualunque",
		"cruscotto_statistico_giornaliero_31-05-2019.pdf"))
	assert.False(t, ext.detectPre2019("testo qualunque",
		"cruscotto_statistico_giornaliero_30-06-2019.pdf"))

	// No phrase and no parsable date defaults to the newer layout.
	assert.False(t, ext.detectPre2019("testo qualunque", "report.pdf"))
}

func TestAccommodationParseTablePost2019(t *testing.T) {
	ext := NewAccommodationExtractor()
	rows := ext.parseTable([][]string{
		{"REGIONE", "HOT SPOT", "CENTRI DI ACCOGLIENZA", "SIPROIMI/SAI", "TOTALE"},
		{"LOMBARDIA", "0", "9.512", "1.604", "11.116"},
		{"SICILIA", "226", "5.800", "2.100", "8.126"},
		{"Totale", "226", "15.312", "3.704", "19.242"},
		{"Fonte: Ministero dell'Interno", "", "", "", ""},
	}, false)

	require.Len(t, rows, 2)
	assert.Equal(t, "Lombardia", rows[0].Region)
	assert.Equal(t, int64(0), rows[0].HotSpot)
	assert.Equal(t, int64(9512), rows[0].Reception)
	assert.Equal(t, int64(1604), rows[0].SiproimiSai)
	assert.Equal(t, int64(11116), rows[0].Total)
	assert.Equal(t, "Sicilia", rows[1].Region)
}

func TestAccommodationParseTablePost2019PadsShortRows(t *testing.T) {
	ext := NewAccommodationExtractor()
	rows := ext.parseTable([][]string{
		{"MOLISE", "12", "340"},
	}, false)

	require.Len(t, rows, 1)
	assert.Equal(t, int64(12), rows[0].HotSpot)
	assert.Equal(t, int64(340), rows[0].Reception)
	assert.Equal(t, int64(0), rows[0].SiproimiSai)
	assert.Equal(t, int64(0), rows[0].Total)
}

func TestAccommodationParseTablePre2019(t *testing.T) {
	ext := NewAccommodationExtractor()
	rows := ext.parseTable([][]string{
		{"REGIONE", "TOTALE IMMIGRATI PRESENTI"},
		{"CAMPANIA", "14.212"},
		{"Percentuale di distribuzione", "8%"},
		{"VALLE D'AOSTA", "310"},
	}, true)

	require.Len(t, rows, 2)
	assert.Equal(t, "Campania", rows[0].Region)
	assert.Equal(t, int64(14212), rows[0].Total)
	assert.Equal(t, int64(0), rows[0].HotSpot)
	assert.Equal(t, "Valle D'Aosta", rows[1].Region)
	assert.Equal(t, int64(310), rows[1].Total)
}

func TestIsRegionRow(t *testing.T) {
	for _, region := range []string{
		"LOMBARDIA",
		"Emilia-Romagna",
		"FRIULI VENEZIA GIULIA",
		"Valle d'Aosta",
		"TRENTINO-ALTO ADIGE/SÜDTIROL",
	} {
		assert.True(t, isRegionRow(region), region)
	}

	for _, cell := range []string{
		"TOTALE",
		"REGIONE",
		"Presenze migranti al 31 gennaio",
		"Fonte: Ministero dell'Interno",
		"Note",
		"aggiornamento ore 8:00",
		"Percentuale di distribuzione",
	} {
		assert.False(t, isRegionRow(cell), cell)
	}
}

func TestFoldRegion(t *testing.T) {
	assert.Equal(t, "valle daosta", foldRegion("VALLE D'AOSTA"))
	assert.Equal(t, "trentino alto adige sudtirol", foldRegion("Trentino-Alto Adige/Südtirol"))
	assert.Equal(t, "emilia romagna", foldRegion("Emilia-Romagna"))
}

func TestNormalizeRegionName(t *testing.T) {
	assert.Equal(t, "Trentino-Alto Adige", normalizeRegionName("TRENTINO-ALTO ADIGE/SÜDTIROL"))
	assert.Equal(t, "Trentino-Alto Adige", normalizeRegionName("trentino alto adige"))
	assert.Equal(t, "Valle D'Aosta", normalizeRegionName("VALLE D’AOSTA"))
	assert.Equal(t, "Puglia", normalizeRegionName("PUGLIE"))
	assert.Equal(t, "Lombardia", normalizeRegionName("LOMBARDIA"))
	assert.Equal(t, "Sicilia", normalizeRegionName("sicilia"))
}
