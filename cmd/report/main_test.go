package main

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

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		out      string
		wantDir  string
		wantFile string
	}{
		{
			name: "no flags keeps configuration",
		},
		{
			name:     "input flag splits into dir and file",
			in:       "/data/sales/january.csv",
			wantDir:  "/data/sales",
			wantFile: "january.csv",
		},
		{
			name: "output flag overrides reports dir",
			out:  "/tmp/reports",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			originalDir := cfg.Data.Dir
			originalFile := cfg.Data.File

			require.NoError(t, applyFlags(cfg, tt.in, tt.out))

			if tt.in == "" {
				assert.Equal(t, originalDir, cfg.Data.Dir)
				assert.Equal(t, originalFile, cfg.Data.File)
			} else {
				assert.Equal(t, filepath.FromSlash(tt.wantDir), cfg.Data.Dir)
				assert.Equal(t, tt.wantFile, cfg.Data.File)
			}

			if tt.out != "" {
				assert.Equal(t, filepath.FromSlash(tt.out), cfg.Reports.Dir)
			}
		})
	}
}

func TestApplyFlagsRelativeInput(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, applyFlags(cfg, "data/sales.csv", ""))

	assert.True(t, filepath.IsAbs(cfg.Data.Dir))
	assert.Equal(t, "sales.csv", cfg.Data.File)
}

func TestPrintSummary(t *testing.T) {
	paths := &config.Paths{
		DataFile:   "/srv/data/supermarket_sales.csv",
		ReportsDir: "/srv/reports",
	}
	summary := domain.SalesSummary{
		TotalSales:        322966.749,
		AverageRating:     6.9727,
		TotalTransactions: 1000,
	}

	var sb strings.Builder
	printSummary(&sb, paths, summary, []string{"daily_sales_2026_08_23.csv", "sales_summary_2026_08_23.csv"})
	output := sb.String()

	assert.Contains(t, output, "/srv/data/supermarket_sales.csv")
	assert.Contains(t, output, "Total sales:        322966.75")
	assert.Contains(t, output, "Average rating:     6.97")
	assert.Contains(t, output, "Total transactions: 1000")
	assert.Contains(t, output, filepath.Join("/srv/reports", "daily_sales_2026_08_23.csv"))
	assert.Contains(t, output, filepath.Join("/srv/reports", "sales_summary_2026_08_23.csv"))
}

func TestPrintSummaryWithoutRatings(t *testing.T) {
	paths := &config.Paths{DataFile: "sales.csv", ReportsDir: "reports"}
	summary := domain.SalesSummary{AverageRating: math.NaN()}

	var sb strings.Builder
	printSummary(&sb, paths, summary, nil)

	assert.Contains(t, sb.String(), "Average rating:     n/a")
}
