// Package exporter writes sales reports to disk.
//
// CSVWriter is the shared CSV layer: atomic single-shot writes with an
// optional UTF-8 BOM so Excel detects the encoding, plus a StreamWriter
// for row-at-a-time output. ReportExporter builds the summary and daily
// sales CSV reports on top of it, and XLSXExporter produces a workbook
// with a native line chart.
//
// All file names are resolved against the configured reports directory
// unless an absolute path is given.
package exporter
