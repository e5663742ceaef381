// Package validation provides pre-flight checks for the files the
// reporting tools read and write. The checks catch misconfigured paths
// before any parsing or generation work starts, so failures surface as
// one clear error instead of a mid-run parse failure.
package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"salespulse/internal/errors"
)

// FileValidator checks input files and output directories before the
// reporting pipeline touches them.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a validator. logger may be nil.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateCSVFile verifies that path names a readable, non-empty CSV
// file. It checks existence, that the path is a regular file with a
// .csv extension, and that the file can be opened for reading. Content
// is not inspected; header and row validation happen at load time.
func (v *FileValidator) ValidateCSVFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("sales data file").WithContext("path", path)
		}
		return errors.NewStorageError("cannot stat sales data file", err).WithContext("path", path)
	}

	if info.IsDir() {
		return errors.NewAppValidationError("sales data path is a directory, not a file").
			WithContext("path", path)
	}

	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return errors.NewAppValidationError("sales data file must have a .csv extension").
			WithContext("path", path)
	}

	if info.Size() == 0 {
		return errors.NewAppValidationError("sales data file is empty").
			WithContext("path", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.NewStorageError("cannot open sales data file", err).WithContext("path", path)
	}
	f.Close()

	v.logger.Debug("validated sales data file",
		slog.String("path", path),
		slog.Int64("size_bytes", info.Size()))
	return nil
}

// ValidateOutputDirectory verifies that path is a writable directory,
// creating it if it does not exist. Writability is proven with a probe
// file rather than inferred from permission bits.
func (v *FileValidator) ValidateOutputDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.NewStorageError("cannot create output directory", err).WithContext("path", path)
	}

	probe, err := os.CreateTemp(path, ".salespulse-probe-*")
	if err != nil {
		return errors.NewStorageError("output directory is not writable", err).WithContext("path", path)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("validated output directory", slog.String("path", path))
	return nil
}
