// extractors/nationality_extractor_test.go
package extractors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNationalityParseTableKeepsPlausibleRows(t *testing.T) {
	ext := NewNationalityExtractor()
	rows := ext.parseTable([][]string{
		{"NAZIONALITA' DICHIARATE", "MIGRANTI SBARCATI"},
		{"TUNISIA", "1.234"},
		{"BANGLADESH", "567"},
		{"EGITTO", "0"},
		{"NOTE", "vedi fonte"},
		{"TOTALE", "1.801"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "TUNISIA", rows[0].Nationality)
	assert.Equal(t, int64(1234), rows[0].Landed)
	assert.Equal(t, "BANGLADESH", rows[1].Nationality)
	assert.Equal(t, int64(567), rows[1].Landed)
}

func TestNationalityParseTableSkipsRowsWithoutMeasure(t *testing.T) {
	ext := NewNationalityExtractor()
	rows := ext.parseTable([][]string{
		{"TUNISIA"},
		{"MAROCCO", "n.d."},
		{"", "44"},
	})
	assert.Empty(t, rows)
}

func TestNationalityNormalizesCostaAvorio(t *testing.T) {
	ext := NewNationalityExtractor()
	rows := ext.parseTable([][]string{
		{"COSTA D'AVORIO", "12"},
		{"Costa d’Avorio", "8"},
		{"costa dâ€™avorio", "3"},
	})
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, "Costa d'Avorio", r.Nationality)
	}
}

func TestNationalityTitleMatching(t *testing.T) {
	matcher := func(text string) bool {
		if containsAnyFold(text, nationalityTitleIndicators) {
			return true
		}
		return nationalityTitleRelaxed.MatchString(strings.ToUpper(text))
	}

	assert.True(t, matcher("Nazionalità dichiarate al momento dello sbarco"))
	assert.True(t, matcher("NAZIONALITA' DICHIARATE AL MOMENTO DELLO SBARCO (*)"))
	assert.False(t, matcher("Presenze migranti in accoglienza"))
}

func TestNormalizeNationalityPassthrough(t *testing.T) {
	assert.Equal(t, "TUNISIA", normalizeNationality("TUNISIA"))
}
