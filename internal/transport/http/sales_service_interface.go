package http

import (
	"context"
	"net/http"

	"salespulse/internal/chart"
	"salespulse/internal/services"
	"salespulse/pkg/contracts/domain"
)

// SalesServiceInterface defines the dataset operations consumed by SalesHandler.
// services.SalesService satisfies it; tests substitute mocks.
type SalesServiceInterface interface {
	// Summary returns the aggregate KPIs for the full dataset.
	Summary(ctx context.Context) (domain.SalesSummary, error)

	// DailySales returns per-day totals, optionally bounded by an
	// inclusive [from, to] date range in YYYY-MM-DD form.
	DailySales(ctx context.Context, from, to string) ([]domain.DailySales, error)

	// Chart returns the sales-over-time figure description.
	Chart(ctx context.Context) (*chart.Figure, error)

	// DatasetInfo returns metadata about the loaded dataset.
	DatasetInfo(ctx context.Context) (domain.DatasetInfo, error)

	// Refresh reloads the dataset from disk and reports whether it changed.
	Refresh(ctx context.Context, force bool) (*services.RefreshResult, error)
}

// ReportServiceInterface defines the report operations consumed by ReportsHandler.
type ReportServiceInterface interface {
	// GenerateReports writes report files in the requested format and
	// returns the generated file names.
	GenerateReports(ctx context.Context, format string) ([]string, error)

	// ListReports enumerates previously generated report files.
	ListReports(ctx context.Context) ([]domain.ReportFile, error)

	// DownloadReport streams a report file to the client.
	DownloadReport(ctx context.Context, w http.ResponseWriter, r *http.Request, filename string) error
}
