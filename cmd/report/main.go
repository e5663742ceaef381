// Command report generates the sales report files from the command line,
// without starting the HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"salespulse/internal/config"
	"salespulse/internal/infrastructure"
	"salespulse/internal/sales"
	"salespulse/internal/services"
	"salespulse/internal/validation"
	"salespulse/pkg/contracts/domain"
)

func main() {
	in := flag.String("in", "", "sales CSV file (defaults to the configured data file)")
	out := flag.String("out", "", "reports output directory (defaults to the configured reports dir)")
	format := flag.String("format", services.FormatAll, "report format: csv | xlsx | all")
	quiet := flag.Bool("quiet", false, "suppress the summary printed after generation")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := applyFlags(cfg, *in, *out); err != nil {
		slog.Error("invalid flags", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *quiet {
		cfg.Logging.Level = "error"
	}

	paths, err := config.NewPaths(cfg)
	if err != nil {
		slog.Error("failed to resolve paths", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("failed to create directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateCSVFile(paths.DataFile); err != nil {
		logger.Error("sales data file check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(paths.ReportsDir); err != nil {
		logger.Error("reports directory check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("generating sales reports",
		slog.String("data_file", paths.DataFile),
		slog.String("reports_dir", paths.ReportsDir),
		slog.String("format", *format))

	ctx := context.Background()
	loader := sales.NewLoader(paths.DataFile, logger, nil)
	service := services.NewSalesService(loader, paths, nil, logger, nil)

	summary, err := service.Summary(ctx)
	if err != nil {
		logger.Error("failed to load sales dataset", slog.String("error", err.Error()))
		os.Exit(1)
	}

	files, err := service.GenerateReports(ctx, *format)
	if err != nil {
		logger.Error("report generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !*quiet {
		printSummary(os.Stdout, paths, summary, files)
	}
}

// applyFlags overlays the -in and -out flags onto the loaded configuration.
func applyFlags(cfg *config.Config, in, out string) error {
	if in != "" {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("cannot resolve input file %s: %w", in, err)
		}
		cfg.Data.Dir = filepath.Dir(abs)
		cfg.Data.File = filepath.Base(abs)
	}

	if out != "" {
		abs, err := filepath.Abs(out)
		if err != nil {
			return fmt.Errorf("cannot resolve output directory %s: %w", out, err)
		}
		cfg.Reports.Dir = abs
	}

	return nil
}

// printSummary writes the dataset figures and generated files for human
// consumption.
func printSummary(w io.Writer, paths *config.Paths, summary domain.SalesSummary, files []string) {
	fmt.Fprintf(w, "Dataset: %s\n", paths.DataFile)
	fmt.Fprintf(w, "  Total sales:        %.2f\n", summary.TotalSales)
	if math.IsNaN(summary.AverageRating) {
		fmt.Fprintf(w, "  Average rating:     n/a\n")
	} else {
		fmt.Fprintf(w, "  Average rating:     %.2f\n", summary.AverageRating)
	}
	fmt.Fprintf(w, "  Total transactions: %d\n", summary.TotalTransactions)

	fmt.Fprintln(w, "Generated reports:")
	for _, name := range files {
		fmt.Fprintf(w, "  %s\n", paths.GetReportPath(name))
	}
}
