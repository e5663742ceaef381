package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"salespulse/internal/analytics"
	"salespulse/internal/chart"
	"salespulse/internal/config"
	"salespulse/internal/exporter"
	"salespulse/internal/infrastructure"
	"salespulse/internal/sales"
	"salespulse/pkg/contracts/domain"
	"salespulse/pkg/contracts/events"
)

// Report format selectors accepted by GenerateReports.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatAll  = "all"
)

// RefreshNotifier receives dataset refresh events for connected clients.
// The websocket hub implements it; a nil notifier disables broadcasting.
type RefreshNotifier interface {
	BroadcastDatasetRefreshed(snapshot events.DatasetSnapshot)
}

// RefreshResult describes the outcome of a dataset refresh.
type RefreshResult struct {
	Info    domain.DatasetInfo  `json:"info"`
	Summary domain.SalesSummary `json:"summary"`
	Changed bool                `json:"changed"`
}

// SalesService provides every dataset operation: the aggregate summary,
// the daily series, the chart figure, refresh with change detection,
// and report generation, listing and download.
type SalesService struct {
	loader   *sales.Loader
	paths    *config.Paths
	reports  *exporter.ReportExporter
	workbook *exporter.XLSXExporter
	notifier RefreshNotifier
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics

	// last holds the dataset pointer seen by the previous refresh.
	// Change detection is pointer identity against the loader's cache,
	// so a forced reload counts as changed even when the file bytes are
	// identical.
	last atomic.Pointer[sales.Dataset]
}

// NewSalesService creates the sales service. notifier and metrics may
// be nil; a nil logger falls back to slog.Default.
func NewSalesService(loader *sales.Loader, paths *config.Paths, notifier RefreshNotifier, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *SalesService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("sales service initialized",
		slog.String("data_file", loader.Path()),
		slog.String("reports_dir", paths.ReportsDir))

	return &SalesService{
		loader:   loader,
		paths:    paths,
		reports:  exporter.NewReportExporter(paths),
		workbook: exporter.NewXLSXExporter(paths),
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Summary returns the aggregate figures for the current dataset.
func (s *SalesService) Summary(ctx context.Context) (domain.SalesSummary, error) {
	dataset, err := s.loader.Load(ctx)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	return analytics.Summarize(dataset), nil
}

// DailySales returns per-day totals in ascending date order. from and
// to are optional DateOnly bounds; empty strings leave that side open.
// Bounds are inclusive.
func (s *SalesService) DailySales(ctx context.Context, from, to string) ([]domain.DailySales, error) {
	dataset, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	series := analytics.DailyTotals(dataset)
	if from == "" && to == "" {
		return series, nil
	}

	filtered := make([]domain.DailySales, 0, len(series))
	for _, day := range series {
		if from != "" && day.Date < from {
			continue
		}
		if to != "" && day.Date > to {
			continue
		}
		filtered = append(filtered, day)
	}
	return filtered, nil
}

// Chart returns the sales-over-time figure for the current dataset.
func (s *SalesService) Chart(ctx context.Context) (*chart.Figure, error) {
	dataset, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return chart.SalesOverTime(dataset)
}

// DatasetInfo describes the current dataset without returning its rows.
func (s *SalesService) DatasetInfo(ctx context.Context) (domain.DatasetInfo, error) {
	dataset, err := s.loader.Load(ctx)
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	return datasetInfo(dataset), nil
}

// Refresh reloads the dataset and reports whether it changed since the
// previous refresh. force drops the cache first so an unchanged file is
// re-read from disk. Connected clients receive a snapshot only when the
// dataset changed; unchanged refreshes stay silent so the scheduler
// does not spam dashboards every interval.
func (s *SalesService) Refresh(ctx context.Context, force bool) (*RefreshResult, error) {
	if force {
		s.loader.Invalidate()
	}

	dataset, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	previous := s.last.Swap(dataset)
	changed := previous != dataset

	summary := analytics.Summarize(dataset)
	info := datasetInfo(dataset)

	if changed {
		s.logger.InfoContext(ctx, "dataset refreshed",
			slog.String("path", info.Path),
			slog.Int("rows", info.Rows),
			slog.Bool("forced", force))
	} else {
		s.logger.DebugContext(ctx, "dataset unchanged on refresh",
			slog.String("path", info.Path))
	}

	if s.metrics != nil {
		s.metrics.DatasetRefreshes.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("forced", force),
			attribute.Bool("changed", changed)))
	}

	if changed && s.notifier != nil {
		s.notifier.BroadcastDatasetRefreshed(events.DatasetSnapshot{
			Path:       info.Path,
			Rows:       info.Rows,
			FirstDate:  info.FirstDate,
			LastDate:   info.LastDate,
			TotalSales: summary.TotalSales,
			LoadedAt:   info.LoadedAt,
			Changed:    changed,
		})
	}

	return &RefreshResult{
		Info:    info,
		Summary: summary,
		Changed: changed,
	}, nil
}

// GenerateReports writes the report files for the requested format
// ("csv", "xlsx" or "all") and returns the generated file names in
// lexical order. The exporters run concurrently.
func (s *SalesService) GenerateReports(ctx context.Context, format string) ([]string, error) {
	switch format {
	case "":
		format = FormatAll
	case FormatCSV, FormatXLSX, FormatAll:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidReportFormat, format)
	}

	dataset, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	summary := analytics.Summarize(dataset)
	series := analytics.DailyTotals(dataset)

	var (
		mu    sync.Mutex
		files []string
	)
	collect := func(name string) {
		mu.Lock()
		files = append(files, name)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if format == FormatCSV || format == FormatAll {
		g.Go(func() error {
			start := time.Now()
			name, err := s.reports.ExportSummary(summary)
			infrastructure.RecordReportGeneration(gctx, s.metrics, FormatCSV, time.Since(start), err)
			if err != nil {
				return err
			}
			collect(name)
			return nil
		})
		g.Go(func() error {
			start := time.Now()
			name, err := s.reports.ExportDailySales(series)
			infrastructure.RecordReportGeneration(gctx, s.metrics, FormatCSV, time.Since(start), err)
			if err != nil {
				return err
			}
			collect(name)
			return nil
		})
	}

	if format == FormatXLSX || format == FormatAll {
		g.Go(func() error {
			figure, err := chart.SalesOverTime(dataset)
			if err != nil {
				return err
			}
			start := time.Now()
			name, err := s.workbook.Export(summary, series, figure)
			infrastructure.RecordReportGeneration(gctx, s.metrics, FormatXLSX, time.Since(start), err)
			if err != nil {
				return err
			}
			collect(name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(files)

	s.logger.InfoContext(ctx, "reports generated",
		slog.String("format", format),
		slog.Int("files", len(files)))

	return files, nil
}

// ListReports returns the generated report files, newest first.
func (s *SalesService) ListReports(ctx context.Context) ([]domain.ReportFile, error) {
	entries, err := os.ReadDir(s.paths.ReportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.ReportFile{}, nil
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]domain.ReportFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, domain.ReportFile{
			Name:       entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
			Format:     strings.TrimPrefix(ext, "."),
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ModifiedAt.After(reports[j].ModifiedAt)
	})

	return reports, nil
}

// ReportPath resolves a report filename to an absolute path, rejecting
// names that escape the reports directory or carry an unknown extension.
func (s *SalesService) ReportPath(filename string) (string, error) {
	if filename == "" {
		return "", ErrInvalidReportName
	}

	cleaned := filepath.Clean(filepath.FromSlash(filename))
	if cleaned == "." || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidReportName
	}

	ext := strings.ToLower(filepath.Ext(cleaned))
	if ext != ".csv" && ext != ".xlsx" {
		return "", fmt.Errorf("%w: %s", ErrInvalidFileType, ext)
	}

	absDir, err := filepath.Abs(s.paths.ReportsDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve reports directory: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(absDir, cleaned))
	if err != nil {
		return "", ErrInvalidReportName
	}
	if !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		s.logger.Warn("rejected report path outside reports directory",
			slog.String("requested", filename),
			slog.String("resolved", absPath))
		return "", ErrInvalidReportName
	}

	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrReportNotFound, filename)
		}
		return "", fmt.Errorf("failed to stat report: %w", err)
	}

	return absPath, nil
}

// DownloadReport streams a generated report as an attachment.
func (s *SalesService) DownloadReport(ctx context.Context, w http.ResponseWriter, r *http.Request, filename string) error {
	path, err := s.ReportPath(filename)
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "serving report download",
		slog.String("filename", filename),
		slog.String("path", path))

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(path)))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
	return nil
}

func datasetInfo(dataset *sales.Dataset) domain.DatasetInfo {
	info := domain.DatasetInfo{
		Path:     dataset.Path(),
		Rows:     dataset.Len(),
		Columns:  dataset.Header(),
		LoadedAt: dataset.LoadedAt(),
	}
	if !dataset.FirstDate().IsZero() {
		info.FirstDate = dataset.FirstDate().Format(domain.DateOnly)
		info.LastDate = dataset.LastDate().Format(domain.DateOnly)
	}
	return info
}
