// Package analytics computes aggregates over a loaded sales dataset.
// All functions are pure; they never touch disk or mutate the dataset.
package analytics

import (
	"math"
	"sort"

	"salespulse/internal/sales"
	"salespulse/pkg/contracts/domain"
)

// Summarize computes the headline aggregates for a dataset in one pass.
// The average rating of an empty dataset is NaN, which the domain type
// serializes as JSON null.
func Summarize(dataset *sales.Dataset) domain.SalesSummary {
	records := dataset.Records()

	var totalSales float64
	var ratingSum float64
	invoices := make(map[string]struct{}, len(records))

	for _, r := range records {
		totalSales += r.Total
		ratingSum += r.Rating
		invoices[r.InvoiceID] = struct{}{}
	}

	average := math.NaN()
	if len(records) > 0 {
		average = ratingSum / float64(len(records))
	}

	return domain.SalesSummary{
		TotalSales:        totalSales,
		AverageRating:     average,
		TotalTransactions: len(invoices),
	}
}

// DailyTotals groups rows by calendar date and sums Total per day,
// returning the series in ascending date order. Dates are ISO strings,
// so chronological order is plain lexicographic order.
func DailyTotals(dataset *sales.Dataset) []domain.DailySales {
	totals := make(map[string]float64)
	for _, r := range dataset.Records() {
		totals[r.Date.Format(domain.DateOnly)] += r.Total
	}

	dates := make([]string, 0, len(totals))
	for date := range totals {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	series := make([]domain.DailySales, 0, len(dates))
	for _, date := range dates {
		series = append(series, domain.DailySales{Date: date, Total: totals[date]})
	}
	return series
}
