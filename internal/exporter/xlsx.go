package exporter

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"salespulse/internal/chart"
	"salespulse/internal/config"
	"salespulse/pkg/contracts/domain"
)

const (
	summarySheet = "Summary"
	dailySheet   = "Daily Sales"
)

// XLSXExporter writes a workbook report with the summary figures, the
// daily sales table, and a native line chart built from the figure.
type XLSXExporter struct {
	paths *config.Paths
}

// NewXLSXExporter creates an exporter writing into the reports directory.
func NewXLSXExporter(paths *config.Paths) *XLSXExporter {
	return &XLSXExporter{paths: paths}
}

// Export writes the workbook and returns the generated file name. A NaN
// average rating leaves its cell empty rather than producing an invalid
// number. The chart is omitted when the series has no rows.
func (e *XLSXExporter) Export(summary domain.SalesSummary, series []domain.DailySales, figure *chart.Figure) (string, error) {
	if figure == nil {
		return "", fmt.Errorf("no figure provided for workbook chart")
	}

	filename := reportName("sales_report", "xlsx")
	fullPath := e.paths.GetReportPath(filename)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeSummarySheet(f, summary); err != nil {
		return "", err
	}
	if err := e.writeDailySheet(f, series, figure); err != nil {
		return "", err
	}

	index, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return "", fmt.Errorf("failed to locate summary sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook %s: %w", fullPath, err)
	}
	return filename, nil
}

func (e *XLSXExporter) writeSummarySheet(f *excelize.File, summary domain.SalesSummary) error {
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}

	for i, header := range summaryHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address summary header %d: %w", i+1, err)
		}
		if err := f.SetCellValue(summarySheet, cell, header); err != nil {
			return fmt.Errorf("failed to write summary header %q: %w", header, err)
		}
	}

	if err := f.SetCellValue(summarySheet, "A2", summary.TotalSales); err != nil {
		return fmt.Errorf("failed to write total sales: %w", err)
	}
	if !math.IsNaN(summary.AverageRating) {
		if err := f.SetCellValue(summarySheet, "B2", summary.AverageRating); err != nil {
			return fmt.Errorf("failed to write average rating: %w", err)
		}
	}
	if err := f.SetCellValue(summarySheet, "C2", summary.TotalTransactions); err != nil {
		return fmt.Errorf("failed to write transaction count: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A2", "B2", style); err != nil {
		return fmt.Errorf("failed to style summary row: %w", err)
	}

	if err := f.SetColWidth(summarySheet, "A", "C", 20); err != nil {
		return fmt.Errorf("failed to size summary columns: %w", err)
	}
	return nil
}

func (e *XLSXExporter) writeDailySheet(f *excelize.File, series []domain.DailySales, figure *chart.Figure) error {
	if _, err := f.NewSheet(dailySheet); err != nil {
		return fmt.Errorf("failed to create daily sheet: %w", err)
	}

	if err := f.SetCellValue(dailySheet, "A1", dailyHeaders[0]); err != nil {
		return fmt.Errorf("failed to write daily header: %w", err)
	}
	if err := f.SetCellValue(dailySheet, "B1", dailyHeaders[1]); err != nil {
		return fmt.Errorf("failed to write daily header: %w", err)
	}

	for i, day := range series {
		row := i + 2
		if err := f.SetCellValue(dailySheet, fmt.Sprintf("A%d", row), day.Date); err != nil {
			return fmt.Errorf("failed to write date for %s: %w", day.Date, err)
		}
		if math.IsNaN(day.Total) {
			continue
		}
		if err := f.SetCellValue(dailySheet, fmt.Sprintf("B%d", row), day.Total); err != nil {
			return fmt.Errorf("failed to write total for %s: %w", day.Date, err)
		}
	}

	if err := f.SetColWidth(dailySheet, "A", "B", 16); err != nil {
		return fmt.Errorf("failed to size daily columns: %w", err)
	}

	if len(series) == 0 {
		return nil
	}
	return e.addLineChart(f, len(series), figure)
}

func (e *XLSXExporter) addLineChart(f *excelize.File, rows int, figure *chart.Figure) error {
	lastRow := rows + 1

	lineChart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("'%s'!$B$1", dailySheet),
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", dailySheet, lastRow),
				Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", dailySheet, lastRow),
			},
		},
		Title: []excelize.RichTextRun{
			{Text: figure.Title},
		},
		XAxis: excelize.ChartAxis{
			Title:     []excelize.RichTextRun{{Text: figure.XLabel}},
			Alignment: excelize.Alignment{TextRotation: figure.XTickRotation},
		},
		YAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: figure.YLabel}},
		},
		Dimension: excelize.ChartDimension{
			Width:  uint(figure.Width),
			Height: uint(figure.Height),
		},
		Legend: excelize.ChartLegend{
			Position: "bottom",
		},
	}

	if err := f.AddChart(dailySheet, "D2", lineChart); err != nil {
		return fmt.Errorf("failed to add sales chart: %w", err)
	}
	return nil
}
