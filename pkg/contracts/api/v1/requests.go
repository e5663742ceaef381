// Package api contains API contract definitions for the sales service.
// Version v1 represents the current stable API version.
package api

// DateRangeRequest bounds the daily sales series. Both sides are
// optional and inclusive.
type DateRangeRequest struct {
	From string `json:"from" query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// RefreshRequest asks the service to reload the sales dataset. Force
// drops the cache so an unchanged file is re-read from disk.
type RefreshRequest struct {
	Force bool `json:"force"`
}

// GenerateReportsRequest selects which report files to produce. An
// empty format means all of them.
type GenerateReportsRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx all"`
}
