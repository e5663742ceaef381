package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"salespulse/internal/config"
)

// utf8BOM lets Excel detect UTF-8 encoded CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes CSV files into the reports directory.
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a CSV writer rooted at the configured report paths.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures a single CSV write.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool
}

// WriteCSV writes headers and records to filename in one shot. Headers and
// the BOM prefix are skipped when appending to an existing file.
func (w *CSVWriter) WriteCSV(filename string, options WriteOptions) error {
	fullPath := w.resolvePath(filename)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fullPath, err)
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 && !options.Append {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", fullPath, err)
	}

	slog.Debug("csv file written",
		slog.String("path", fullPath),
		slog.Int("records", len(options.Records)))

	return nil
}

// WriteSimpleCSV writes a fresh file with headers and a BOM prefix.
func (w *CSVWriter) WriteSimpleCSV(filename string, headers []string, records [][]string) error {
	return w.WriteCSV(filename, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// AppendToCSV appends records to an existing file without headers.
func (w *CSVWriter) AppendToCSV(filename string, records [][]string) error {
	return w.WriteCSV(filename, WriteOptions{
		Records: records,
		Append:  true,
	})
}

// StreamWriter writes CSV rows one at a time, keeping memory flat for
// long report series.
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter opens filename, writes the BOM and headers, and
// returns a writer for the remaining rows. Callers must Close it.
func (w *CSVWriter) CreateStreamWriter(filename string, headers []string) (*StreamWriter, error) {
	fullPath := w.resolvePath(filename)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", fullPath, err)
	}

	if _, err := file.Write(utf8BOM); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{file: file, writer: writer}, nil
}

// WriteRecord writes a single row.
func (sw *StreamWriter) WriteRecord(record []string) error {
	return sw.writer.Write(record)
}

// Close flushes buffered rows and closes the underlying file.
func (sw *StreamWriter) Close() error {
	sw.writer.Flush()
	if err := sw.writer.Error(); err != nil {
		sw.file.Close()
		return fmt.Errorf("failed to flush stream: %w", err)
	}
	return sw.file.Close()
}

// resolvePath keeps absolute filenames as given and places everything
// else inside the reports directory.
func (w *CSVWriter) resolvePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return w.paths.GetReportPath(filename)
}
