// downloader/date_extractor_test.go
package downloader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDateHistoricalNamings(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Cruscotto statistico giornaliero 31-10-2025.pdf", "2025-10-31"},
		{"cruscotto_statistico_giornaliero_31-01-2019_0_0.pdf", "2019-01-31"},
		{"Cruscotto statistico al 30 giugno 2024.pdf", "2024-06-30"},
		{"cruscotto_statistico_giornaliero_31.03.2024.pdf", "2024-03-31"},
		{"report_01012017.pdf", "2017-01-01"},
		{"cruscotto_statistico_giornaliero_31_ottobre_2017_0.pdf", "2017-10-31"},
		{"cruscotto_statistico_giornaliero_del_31_maggio_2017_1.pdf", "2017-05-31"},
		{"cruscotto_statistico_giornaliero_28_febbraio_2018.pdf", "2018-02-28"},
	}

	for _, tt := range tests {
		got, err := ExtractDateString(tt.filename)
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}
}

func TestExtractDateNotRecognized(t *testing.T) {
	for _, filename := range []string{
		"report_final.pdf",
		"cruscotto.pdf",
		// Concatenated ddmmyyyy only counts for the 2017-2018 uploads.
		"report_01012024.pdf",
		// Truncated year in a legacy special upload.
		"cruscotto_statistico_giornaliero_30_settembre_1.pdf",
	} {
		_, err := ExtractDate(filename)
		assert.ErrorIs(t, err, ErrDateNotRecognized, filename)
	}
}

func TestExtractDatePatternPriority(t *testing.T) {
	// Both the dashed numeric form and the spelled-out form are present;
	// the dashed family is higher priority and must win.
	got, err := ExtractDateString("cruscotto 05 marzo 2021 backup 31-10-2025.pdf")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", got)

	// Dotted form loses to the spelled-out form that precedes it.
	got, err = ExtractDateString("cruscotto 5 marzo 2021 rev 31.10.2025.pdf")
	require.NoError(t, err)
	assert.Equal(t, "2021-03-05", got)
}

func TestExtractDateUnknownMonthFallsBackToJanuary(t *testing.T) {
	// Historical quirk kept for output compatibility.
	got, err := ExtractDateString("cruscotto_statistico_giornaliero_15_mrazo_2020.pdf")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-15", got)
}

func TestExtractDateRejectsImpossibleDates(t *testing.T) {
	_, err := ExtractDate("report 99-99-2025.pdf")
	assert.ErrorIs(t, err, ErrDateNotRecognized)

	_, err = ExtractDate("report 31-02-2021.pdf")
	assert.ErrorIs(t, err, ErrDateNotRecognized)
}

func TestLastDayOfMonth(t *testing.T) {
	assert.Equal(t, 31, LastDayOfMonth(2023, time.January))
	assert.Equal(t, 30, LastDayOfMonth(2023, time.April))
	assert.Equal(t, 28, LastDayOfMonth(2023, time.February))
	assert.Equal(t, 29, LastDayOfMonth(2024, time.February))
	assert.Equal(t, 28, LastDayOfMonth(2100, time.February))
	assert.Equal(t, 29, LastDayOfMonth(2000, time.February))
}
