// Package chart builds in-memory figure descriptions for the sales data.
// Figures are JSON-serializable; rendering and export happen elsewhere.
package chart

import (
	"salespulse/internal/analytics"
	"salespulse/internal/errors"
	"salespulse/internal/sales"
)

const (
	// SalesOverTimeTitle is the title of the daily sales line chart.
	SalesOverTimeTitle = "Sales Over Time"

	defaultWidth  = 1000
	defaultHeight = 500
	xLabelDate    = "Date"
	yLabelTotal   = "Total Sales"
	xTickRotation = 45
)

// Figure describes a chart: canvas geometry, axis labels and the data
// series to draw. It carries everything a client needs to render the
// plot; the chart package itself writes nothing to disk.
type Figure struct {
	Title         string   `json:"title"`
	XLabel        string   `json:"x_label"`
	YLabel        string   `json:"y_label"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	XTickRotation int      `json:"x_tick_rotation"`
	Series        []Series `json:"series"`
}

// Series is one named line on a figure.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Point is a single {date, total} sample in a series.
type Point struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// SalesOverTime builds the daily sales line chart for a dataset. The
// series is date-ascending; an empty dataset yields a figure with an
// empty series.
func SalesOverTime(dataset *sales.Dataset) (*Figure, error) {
	if dataset == nil {
		return nil, errors.NewAppValidationError("no dataset to plot")
	}

	daily := analytics.DailyTotals(dataset)

	points := make([]Point, 0, len(daily))
	for _, day := range daily {
		points = append(points, Point{Date: day.Date, Total: day.Total})
	}

	return &Figure{
		Title:         SalesOverTimeTitle,
		XLabel:        xLabelDate,
		YLabel:        yLabelTotal,
		Width:         defaultWidth,
		Height:        defaultHeight,
		XTickRotation: xTickRotation,
		Series: []Series{
			{Name: yLabelTotal, Points: points},
		},
	}, nil
}
