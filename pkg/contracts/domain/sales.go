package domain

import (
	"encoding/json"
	"math"
	"time"
)

// DateOnly is the canonical wire format for calendar dates.
const DateOnly = "2006-01-02"

// SalesSummary is the single source of truth for the one-row aggregate
// computed over a sales dataset. All consumers (API, exporters, CLI)
// use this structure.
//
// AverageRating is NaN when the dataset is empty. JSON encodes that
// case as null so API payloads stay valid; CSV export prints "NaN".
type SalesSummary struct {
	// TotalSales is the exact sum of the Total column.
	TotalSales float64 `json:"total_sales"`

	// AverageRating is the arithmetic mean of the Rating column.
	AverageRating float64 `json:"average_rating"`

	// TotalTransactions is the count of distinct Invoice ID values.
	TotalTransactions int `json:"total_transactions"`
}

type salesSummaryJSON struct {
	TotalSales        float64  `json:"total_sales"`
	AverageRating     *float64 `json:"average_rating"`
	TotalTransactions int      `json:"total_transactions"`
}

// MarshalJSON encodes a NaN average rating as null.
func (s SalesSummary) MarshalJSON() ([]byte, error) {
	out := salesSummaryJSON{
		TotalSales:        s.TotalSales,
		TotalTransactions: s.TotalTransactions,
	}
	if !math.IsNaN(s.AverageRating) {
		rating := s.AverageRating
		out.AverageRating = &rating
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the NaN sentinel from a null average rating.
func (s *SalesSummary) UnmarshalJSON(data []byte) error {
	var in salesSummaryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.TotalSales = in.TotalSales
	s.TotalTransactions = in.TotalTransactions
	if in.AverageRating != nil {
		s.AverageRating = *in.AverageRating
	} else {
		s.AverageRating = math.NaN()
	}
	return nil
}

// DailySales is one point of the daily sales series: all transaction
// totals for one calendar day summed together. Date uses the DateOnly
// format, which sorts chronologically as a plain string.
type DailySales struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// DatasetInfo describes a loaded dataset without carrying its rows.
type DatasetInfo struct {
	Path      string    `json:"path"`
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
	LoadedAt  time.Time `json:"loaded_at"`
	FirstDate string    `json:"first_date,omitempty"`
	LastDate  string    `json:"last_date,omitempty"`
}

// ReportFile describes one generated report on disk.
type ReportFile struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	Format     string    `json:"format"`
}
