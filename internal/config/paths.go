package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all resolved file system paths used by the application.
// This is the single source of truth for file locations: the data CSV,
// the reports output directory and the logs directory.
type Paths struct {
	BaseDir    string
	DataDir    string
	DataFile   string
	ReportsDir string
	LogsDir    string
}

// NewPaths resolves all paths from the configuration. Relative directories
// resolve against cfg.Data.BaseDir, which defaults to the working directory.
// The working-directory default keeps the canonical csv_files/supermarket_sales.csv
// location working when the binary is started next to its data.
func NewPaths(cfg *Config) (*Paths, error) {
	base := cfg.Data.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	dataDir := resolveDir(base, cfg.Data.Dir)

	return &Paths{
		BaseDir:    base,
		DataDir:    dataDir,
		DataFile:   filepath.Join(dataDir, cfg.Data.File),
		ReportsDir: resolveDir(base, cfg.Reports.Dir),
		LogsDir:    resolveDir(base, DefaultLogsDir),
	}, nil
}

func resolveDir(base, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// EnsureDirectories creates all required directories if they don't exist.
// The data directory is created too so a fresh install has an obvious
// place to drop the CSV.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ReportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// DataFileExists reports whether the sales CSV is present.
func (p *Paths) DataFileExists() bool {
	return FileExists(p.DataFile)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("data_file",
			slog.String("path", p.DataFile),
			slog.Bool("exists", p.DataFileExists()),
		))
}
