package sales

import (
	"fmt"
	"time"
)

// dateLayouts are the candidate layouts for date inference, tried in
// order. Month-first numeric forms come first because that is how the
// supermarket export writes its Date column; the non-padded layouts also
// accept zero-padded input.
var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"2006/1/2",
	"1-2-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// inferDateLayout picks the first candidate layout that parses sample.
// The chosen layout is then applied to the whole column, so a file mixing
// formats fails on the first row that deviates.
func inferDateLayout(sample string) (string, error) {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, sample); err == nil {
			return layout, nil
		}
	}
	return "", fmt.Errorf("no known date layout matches %q", sample)
}

// normalizeDate truncates a parsed timestamp to midnight UTC so dates
// compare and group correctly regardless of the source layout.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
