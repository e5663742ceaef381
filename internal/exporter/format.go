package exporter

import (
	"math"
	"strconv"
)

// formatFloat renders report numbers with two decimal places. NaN is
// spelled out so an empty-dataset average stays visible in the file.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}
