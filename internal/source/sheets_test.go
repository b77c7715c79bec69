package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkerColumn(t *testing.T) {
	// Imported marker sits in the fifth column.
	assert.Equal(t, "E", markerColumn())
}

func TestCellString(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "string passes through", value: "PROJ-1", want: "PROJ-1"},
		{name: "whole number without decimals", value: float64(8), want: "8"},
		{name: "large whole number", value: float64(150000), want: "150000"},
		{name: "fractional number", value: 2.5, want: "2.5"},
		{name: "fraction keeps precision", value: 0.25, want: "0.25"},
		{name: "bool falls back to print", value: true, want: "true"},
		{name: "nil falls back to print", value: nil, want: "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cellString(tt.value))
		})
	}
}
