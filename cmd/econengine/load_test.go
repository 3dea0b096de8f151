package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPanel(t *testing.T) {
	path := writeFile(t, "prices.csv", `date,copper,aluminum
2025-01-01,9100.5,2400
2025-01-02,9120.0,2410
2025-01-03,9050.25,2395
`)
	panel, err := loadPanel(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"copper", "aluminum"}, panel.Names())
	assert.Equal(t, 3, panel.Len())
	assert.Equal(t, []float64{9050.25, 2395}, panel.LastRow())
}

func TestLoadPanelForwardFillsBlankCells(t *testing.T) {
	path := writeFile(t, "prices.csv", `date,copper,aluminum
2025-01-01,9100,2400
2025-01-02,9120,
2025-01-03,9050,2395
`)
	panel, err := loadPanel(path)
	require.NoError(t, err)
	require.Equal(t, 3, panel.Len())
	col, err := panel.Column("aluminum")
	require.NoError(t, err)
	assert.Equal(t, []float64{2400, 2400, 2395}, col.Values())
}

func TestLoadPanelRejectsBadInput(t *testing.T) {
	_, err := loadPanel(writeFile(t, "one.csv", "date\n2025-01-01\n"))
	require.Error(t, err)

	_, err = loadPanel(writeFile(t, "bad.csv", "date,copper\nnot-a-date,1\n"))
	require.Error(t, err)

	_, err = loadPanel(writeFile(t, "nan.csv", "date,copper\n2025-01-01,abc\n"))
	require.Error(t, err)
}

func TestLoadQuotes(t *testing.T) {
	path := writeFile(t, "quotes.csv", `supplier,unit_price,logistics_per_unit,payment_term_days
andes,95.50,3.25,30
pacific,97.00,1.10,60
`)
	quotes, err := loadQuotes(path)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "andes", quotes[0].Supplier)
	assert.Equal(t, "95.5", quotes[0].UnitPrice.String())
	assert.Equal(t, 60, quotes[1].PaymentTermDays)
}

func TestLoadQuotesRejectsEmpty(t *testing.T) {
	path := writeFile(t, "quotes.csv", "supplier,unit_price,logistics_per_unit,payment_term_days\n")
	_, err := loadQuotes(path)
	require.Error(t, err)
}
