package sales

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"salespulse/internal/config"
	"salespulse/internal/errors"
	"salespulse/internal/infrastructure"
)

// requiredColumns must all be present in the CSV header for a load to
// succeed. Every other column is carried through untyped.
var requiredColumns = []string{
	config.ColumnInvoiceID,
	config.ColumnDate,
	config.ColumnTotal,
	config.ColumnRating,
}

// sourceSignature identifies one on-disk state of the source file.
type sourceSignature struct {
	size    int64
	modTime time.Time
}

func (s sourceSignature) matches(other sourceSignature) bool {
	return s.size == other.size && s.modTime.Equal(other.modTime)
}

// Loader reads the sales CSV and memoizes the parsed dataset, keyed by
// the source file's size and modification time. While the file is
// unchanged, Load costs one stat call and returns the shared *Dataset.
type Loader struct {
	path    string
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	mu     sync.Mutex
	sig    sourceSignature
	cached *Dataset
}

// NewLoader creates a loader for the CSV at path. metrics may be nil, in
// which case load outcomes are not recorded.
func NewLoader(path string, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		path:    path,
		logger:  logger.With(slog.String("component", "sales_loader")),
		metrics: metrics,
	}
}

// Path returns the source file path the loader reads from.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the parsed dataset, reusing the cached copy while the
// source file's size and modification time are unchanged. Parse failures
// are fatal for the whole load; no partial dataset is ever returned.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	info, err := os.Stat(l.path)
	if err != nil {
		infrastructure.RecordDatasetLoad(ctx, l.metrics, infrastructure.LoadResultError, 0, time.Since(start))
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("sales data file").WithContext("path", l.path)
		}
		return nil, errors.NewStorageError("cannot stat sales data file", err).WithContext("path", l.path)
	}
	if info.IsDir() {
		infrastructure.RecordDatasetLoad(ctx, l.metrics, infrastructure.LoadResultError, 0, time.Since(start))
		return nil, errors.NewStorageError("sales data path is a directory", nil).WithContext("path", l.path)
	}

	sig := sourceSignature{size: info.Size(), modTime: info.ModTime()}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && l.sig.matches(sig) {
		infrastructure.RecordDatasetLoad(ctx, l.metrics, infrastructure.LoadResultHit, l.cached.Len(), time.Since(start))
		l.logger.DebugContext(ctx, "dataset cache hit",
			slog.Int("rows", l.cached.Len()),
			slog.Time("loaded_at", l.cached.LoadedAt()))
		return l.cached, nil
	}

	dataset, err := l.parse(ctx)
	if err != nil {
		infrastructure.RecordDatasetLoad(ctx, l.metrics, infrastructure.LoadResultError, 0, time.Since(start))
		return nil, err
	}

	l.cached = dataset
	l.sig = sig

	infrastructure.RecordDatasetLoad(ctx, l.metrics, infrastructure.LoadResultMiss, dataset.Len(), time.Since(start))
	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", l.path),
		slog.Int("rows", dataset.Len()),
		slog.Int("columns", dataset.Columns()),
		slog.Duration("elapsed", time.Since(start)))

	return dataset, nil
}

// Invalidate clears the cached dataset so the next Load re-reads the file
// even when its signature is unchanged.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
	l.sig = sourceSignature{}
}

// parse reads and validates the whole CSV. Called with l.mu held.
func (l *Loader) parse(ctx context.Context) (*Dataset, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("sales data file").WithContext("path", l.path)
		}
		return nil, errors.NewStorageError("cannot open sales data file", err).WithContext("path", l.path)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewParsingError("sales data file is empty", nil).WithContext("path", l.path)
	}
	if err != nil {
		return nil, errors.NewParsingError("cannot read CSV header", err).WithContext("path", l.path)
	}

	// Excel saves CSVs with a UTF-8 BOM glued to the first header cell.
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	columns := make(map[string]int, len(header))
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		columns[header[i]] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 1 {
		return nil, errors.NewAppValidationError("missing required column: " + missing[0]).
			WithContext("path", l.path)
	}
	if len(missing) > 1 {
		return nil, errors.NewAppValidationError("missing required columns: " + strings.Join(missing, ", ")).
			WithContext("path", l.path)
	}

	idxInvoice := columns[config.ColumnInvoiceID]
	idxDate := columns[config.ColumnDate]
	idxTotal := columns[config.ColumnTotal]
	idxRating := columns[config.ColumnRating]

	var (
		records []Record
		layout  string
		first   time.Time
		last    time.Time
	)

	for row := 2; ; row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("malformed CSV row %d", row), err).
				WithContext("path", l.path).
				WithContext("row", row)
		}

		dateText := strings.TrimSpace(cells[idxDate])
		if layout == "" {
			layout, err = inferDateLayout(dateText)
			if err != nil {
				return nil, errors.NewParsingError(
					fmt.Sprintf("unrecognized date format %q in row %d", dateText, row), err).
					WithContext("path", l.path).
					WithContext("row", row)
			}
			l.logger.DebugContext(ctx, "date layout inferred", slog.String("layout", layout))
		}

		date, err := time.Parse(layout, dateText)
		if err != nil {
			return nil, errors.NewParsingError(
				fmt.Sprintf("cannot parse date %q in row %d", dateText, row), err).
				WithContext("path", l.path).
				WithContext("row", row)
		}
		date = normalizeDate(date)

		total, err := strconv.ParseFloat(strings.TrimSpace(cells[idxTotal]), 64)
		if err != nil {
			return nil, errors.NewParsingError(
				fmt.Sprintf("cannot parse total %q in row %d", cells[idxTotal], row), err).
				WithContext("path", l.path).
				WithContext("row", row)
		}

		rating, err := strconv.ParseFloat(strings.TrimSpace(cells[idxRating]), 64)
		if err != nil {
			return nil, errors.NewParsingError(
				fmt.Sprintf("cannot parse rating %q in row %d", cells[idxRating], row), err).
				WithContext("path", l.path).
				WithContext("row", row)
		}

		records = append(records, Record{
			InvoiceID: strings.TrimSpace(cells[idxInvoice]),
			Date:      date,
			Total:     total,
			Rating:    rating,
			Raw:       cells,
		})

		if first.IsZero() || date.Before(first) {
			first = date
		}
		if last.IsZero() || date.After(last) {
			last = date
		}
	}

	return &Dataset{
		path:      l.path,
		header:    header,
		columns:   columns,
		records:   records,
		firstDate: first,
		lastDate:  last,
		loadedAt:  time.Now(),
	}, nil
}
