package services

import "errors"

// Sentinel errors returned by the sales service. Handlers translate
// them into HTTP problem responses.
var (
	// Report errors
	ErrReportNotFound      = errors.New("report not found")
	ErrInvalidReportName   = errors.New("invalid report name")
	ErrInvalidFileType     = errors.New("invalid file type")
	ErrInvalidReportFormat = errors.New("unsupported report format")
)
