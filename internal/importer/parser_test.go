package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempoimport/internal/models"
)

func row(cells ...string) models.RawRow {
	return models.RawRow{Number: 2, Cells: cells}
}

func TestParseRowValid(t *testing.T) {
	entry, rejection := ParseRow(row("1.12.", "proj-1", "some work", "2,5", ""), 2024)
	require.Nil(t, rejection)

	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), entry.Date)
	assert.Equal(t, "PROJ-1", entry.TaskKey)
	assert.Equal(t, "some work", entry.Description)
	assert.Equal(t, 9000, entry.Seconds)
	assert.InDelta(t, 2.5, entry.Hours(), 0.0001)
}

func TestParseRowDates(t *testing.T) {
	tests := []struct {
		name   string
		date   string
		want   time.Time
		reason models.RejectionReason
	}{
		{name: "no leading zeros", date: "1.12.", want: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
		{name: "mid-month", date: "15.1.", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "leading zeros", date: "01.02.", want: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{name: "without trailing dot", date: "3.7", want: time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)},
		{name: "leap day accepted", date: "29.2.", want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "day overflows month", date: "31.2.", reason: models.ReasonInvalidDate},
		{name: "day out of range", date: "32.1.", reason: models.ReasonInvalidDate},
		{name: "month out of range", date: "1.13.", reason: models.ReasonInvalidDate},
		{name: "not numeric", date: "abc", reason: models.ReasonInvalidDate},
		{name: "full date not partial", date: "1.12.2024", reason: models.ReasonInvalidDate},
		{name: "missing", date: "", reason: models.ReasonMissingDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, rejection := ParseRow(row(tt.date, "PROJ-1", "", "1", ""), 2024)
			if tt.reason != "" {
				require.NotNil(t, rejection)
				assert.Equal(t, tt.reason, rejection.Reason)
				return
			}
			require.Nil(t, rejection)
			assert.Equal(t, tt.want, entry.Date)
		})
	}
}

func TestParseRowHours(t *testing.T) {
	tests := []struct {
		name    string
		hours   string
		seconds int
		reason  models.RejectionReason
	}{
		{name: "decimal comma", hours: "2,5", seconds: 9000},
		{name: "decimal point", hours: "2.5", seconds: 9000},
		{name: "whole hours", hours: "8", seconds: 28800},
		{name: "quarter hour", hours: "0.25", seconds: 900},
		{name: "zero", hours: "0", reason: models.ReasonInvalidHours},
		{name: "negative", hours: "-1", reason: models.ReasonInvalidHours},
		{name: "not a number", hours: "abc", reason: models.ReasonInvalidHours},
		{name: "missing", hours: "", reason: models.ReasonMissingHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, rejection := ParseRow(row("1.12.", "PROJ-1", "", tt.hours, ""), 2024)
			if tt.reason != "" {
				require.NotNil(t, rejection)
				assert.Equal(t, tt.reason, rejection.Reason)
				return
			}
			require.Nil(t, rejection)
			assert.Equal(t, tt.seconds, entry.Seconds)
		})
	}
}

func TestParseRowTaskKey(t *testing.T) {
	_, rejection := ParseRow(row("1.12.", "", "", "1", ""), 2024)
	require.NotNil(t, rejection)
	assert.Equal(t, models.ReasonMissingTaskKey, rejection.Reason)

	_, rejection = ParseRow(row("1.12.", "   ", "", "1", ""), 2024)
	require.NotNil(t, rejection)
	assert.Equal(t, models.ReasonMissingTaskKey, rejection.Reason)

	entry, rejection := ParseRow(row("1.12.", "  proj-42 ", "", "1", ""), 2024)
	require.Nil(t, rejection)
	assert.Equal(t, "PROJ-42", entry.TaskKey)
}

func TestParseRowMarkerShortCircuits(t *testing.T) {
	// Everything else is malformed; the marker check must win.
	_, rejection := ParseRow(row("garbage", "", "", "xyz", "05.12.2024"), 2024)
	require.NotNil(t, rejection)
	assert.Equal(t, models.ReasonAlreadyImported, rejection.Reason)
	assert.True(t, rejection.Skippable())
}

func TestParseRowBlank(t *testing.T) {
	_, rejection := ParseRow(row("", "", "", "", ""), 2024)
	require.NotNil(t, rejection)
	assert.Equal(t, models.ReasonBlankRow, rejection.Reason)
	assert.True(t, rejection.Skippable())

	// A short row from a ragged source behaves like a blank one.
	_, rejection = ParseRow(models.RawRow{Number: 7, Cells: nil}, 2024)
	require.NotNil(t, rejection)
	assert.Equal(t, models.ReasonBlankRow, rejection.Reason)
}
