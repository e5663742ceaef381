package sales

import (
	"time"
)

// Record is a single sales transaction parsed from the source CSV.
// Raw holds every cell of the original row in header order, so columns
// that are not typed here stay accessible to exporters.
type Record struct {
	InvoiceID string
	Date      time.Time
	Total     float64
	Rating    float64
	Raw       []string
}

// Dataset is an immutable snapshot of the sales CSV. All consumers share
// the same *Dataset; accessors return internal slices without copying,
// so treat them as read-only.
type Dataset struct {
	path      string
	header    []string
	columns   map[string]int
	records   []Record
	firstDate time.Time
	lastDate  time.Time
	loadedAt  time.Time
}

// Path returns the source file the dataset was loaded from.
func (d *Dataset) Path() string {
	return d.path
}

// Header returns the CSV header in file order.
func (d *Dataset) Header() []string {
	return d.header
}

// Records returns all rows in file order.
func (d *Dataset) Records() []Record {
	return d.records
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Empty reports whether the dataset has no data rows.
func (d *Dataset) Empty() bool {
	return len(d.records) == 0
}

// Columns returns the number of columns in the source file.
func (d *Dataset) Columns() int {
	return len(d.header)
}

// ColumnIndex returns the position of a named column in Raw cells.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	idx, ok := d.columns[name]
	return idx, ok
}

// FirstDate returns the earliest transaction date, or the zero time for
// an empty dataset.
func (d *Dataset) FirstDate() time.Time {
	return d.firstDate
}

// LastDate returns the latest transaction date, or the zero time for an
// empty dataset.
func (d *Dataset) LastDate() time.Time {
	return d.lastDate
}

// LoadedAt returns when the dataset was parsed from disk.
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}
