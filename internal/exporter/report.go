package exporter

import (
	"fmt"
	"time"

	"salespulse/internal/config"
	"salespulse/pkg/contracts/domain"
)

var (
	summaryHeaders = []string{"Total Sales", "Average Rating", "Total Transactions"}
	dailyHeaders   = []string{"Date", "Total Sales"}
)

// ReportExporter produces the CSV report files for a dataset.
type ReportExporter struct {
	csv *CSVWriter
}

// NewReportExporter creates an exporter writing into the reports directory.
func NewReportExporter(paths *config.Paths) *ReportExporter {
	return &ReportExporter{csv: NewCSVWriter(paths)}
}

// ExportSummary writes the aggregate figures as a single-row CSV report
// and returns the generated file name.
func (e *ReportExporter) ExportSummary(summary domain.SalesSummary) (string, error) {
	filename := reportName("sales_summary", "csv")

	row := []string{
		formatFloat(summary.TotalSales),
		formatFloat(summary.AverageRating),
		formatInt(summary.TotalTransactions),
	}

	if err := e.csv.WriteSimpleCSV(filename, summaryHeaders, [][]string{row}); err != nil {
		return "", fmt.Errorf("failed to export summary: %w", err)
	}
	return filename, nil
}

// ExportDailySales streams the per-day totals, preserving the ascending
// date order of the series, and returns the generated file name.
func (e *ReportExporter) ExportDailySales(series []domain.DailySales) (string, error) {
	filename := reportName("daily_sales", "csv")

	sw, err := e.csv.CreateStreamWriter(filename, dailyHeaders)
	if err != nil {
		return "", fmt.Errorf("failed to export daily sales: %w", err)
	}

	for _, day := range series {
		if err := sw.WriteRecord([]string{day.Date, formatFloat(day.Total)}); err != nil {
			sw.Close()
			return "", fmt.Errorf("failed to write daily row %s: %w", day.Date, err)
		}
	}

	if err := sw.Close(); err != nil {
		return "", fmt.Errorf("failed to export daily sales: %w", err)
	}
	return filename, nil
}

// reportName stamps report files with the generation date.
func reportName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("2006_01_02"), ext)
}
