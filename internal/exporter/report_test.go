package exporter

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/config"
	"salespulse/pkg/contracts/domain"
)

func newTestExporter(t *testing.T) (*ReportExporter, string) {
	t.Helper()
	dir := t.TempDir()
	return NewReportExporter(&config.Paths{ReportsDir: dir}), dir
}

func TestExportSummary(t *testing.T) {
	exporter, dir := newTestExporter(t)

	summary := domain.SalesSummary{
		TotalSales:        225,
		AverageRating:     23.0 / 3.0,
		TotalTransactions: 3,
	}

	filename, err := exporter.ExportSummary(summary)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "sales_summary_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	rows := readRows(t, filepath.Join(dir, filename))
	require.Len(t, rows, 2)
	assert.Equal(t, summaryHeaders, rows[0])
	assert.Equal(t, []string{"225.00", "7.67", "3"}, rows[1])
}

func TestExportSummaryEmptyDataset(t *testing.T) {
	exporter, dir := newTestExporter(t)

	filename, err := exporter.ExportSummary(domain.SalesSummary{
		AverageRating: math.NaN(),
	})
	require.NoError(t, err)

	rows := readRows(t, filepath.Join(dir, filename))
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0.00", "NaN", "0"}, rows[1])
}

func TestExportDailySales(t *testing.T) {
	exporter, dir := newTestExporter(t)

	series := []domain.DailySales{
		{Date: "2019-01-05", Total: 150},
		{Date: "2019-01-06", Total: 75.25},
	}

	filename, err := exporter.ExportDailySales(series)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "daily_sales_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	rows := readRows(t, filepath.Join(dir, filename))
	require.Len(t, rows, 3)
	assert.Equal(t, dailyHeaders, rows[0])
	assert.Equal(t, []string{"2019-01-05", "150.00"}, rows[1])
	assert.Equal(t, []string{"2019-01-06", "75.25"}, rows[2])
}

func TestExportDailySalesEmptySeries(t *testing.T) {
	exporter, dir := newTestExporter(t)

	filename, err := exporter.ExportDailySales(nil)
	require.NoError(t, err)

	rows := readRows(t, filepath.Join(dir, filename))
	require.Len(t, rows, 1)
	assert.Equal(t, dailyHeaders, rows[0])
}

func TestReportNameStamp(t *testing.T) {
	name := reportName("sales_summary", "csv")

	assert.Regexp(t, `^sales_summary_\d{4}_\d{2}_\d{2}\.csv$`, name)
}
