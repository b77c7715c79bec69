package models

import "time"

// Column layout of a time-tracking sheet. Positions are fixed; the sources
// pad short rows so every RawRow carries all five cells.
const (
	ColDate        = 0
	ColTaskKey     = 1
	ColDescription = 2
	ColHours       = 3
	ColImported    = 4

	ColumnCount = 5
)

// MarkerDateFormat is the human-readable value written into the imported
// column after a successful submission (dd.mm.yyyy).
const MarkerDateFormat = "02.01.2006"

// RawRow is one row as read from a data source. Number is the 1-based row
// number in the source, including the header row, so it can be used directly
// for marker write-back and operator-facing reports.
type RawRow struct {
	Number int
	Cells  []string
}

// Cell returns the cell at idx or "" when the row is short.
func (r RawRow) Cell(idx int) string {
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return r.Cells[idx]
}

// WorkEntry is a validated row ready for resolution and submission.
type WorkEntry struct {
	Date        time.Time
	TaskKey     string
	Description string
	// Seconds is the tracked time converted for the worklog API.
	Seconds int
}

// Hours returns the tracked time in hours for display.
func (e WorkEntry) Hours() float64 {
	return float64(e.Seconds) / 3600
}
