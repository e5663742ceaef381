package exporter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{name: "whole number", value: 225, want: "225.00"},
		{name: "fraction kept", value: 75.25, want: "75.25"},
		{name: "rounded up", value: 23.0 / 3.0, want: "7.67"},
		{name: "zero", value: 0, want: "0.00"},
		{name: "negative", value: -12.5, want: "-12.50"},
		{name: "nan spelled out", value: math.NaN(), want: "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFloat(tt.value))
		})
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "0", formatInt(0))
	assert.Equal(t, "3", formatInt(3))
	assert.Equal(t, "1000", formatInt(1000))
}
