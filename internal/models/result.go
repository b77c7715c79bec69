package models

import "fmt"

// RejectionReason classifies why a row could not be turned into a WorkEntry.
type RejectionReason string

const (
	ReasonAlreadyImported RejectionReason = "already_imported"
	ReasonBlankRow        RejectionReason = "blank_row"
	ReasonMissingDate     RejectionReason = "missing_date"
	ReasonInvalidDate     RejectionReason = "invalid_date"
	ReasonMissingTaskKey  RejectionReason = "missing_task_key"
	ReasonMissingHours    RejectionReason = "missing_hours"
	ReasonInvalidHours    RejectionReason = "invalid_hours"
)

// RowRejection explains why the parser refused a row.
type RowRejection struct {
	RowNumber int
	Reason    RejectionReason
	Detail    string
}

func (r *RowRejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("row %d: %s", r.RowNumber, r.Reason)
	}
	return fmt.Sprintf("row %d: %s (%s)", r.RowNumber, r.Reason, r.Detail)
}

// Skippable reports whether the rejection is routine (pre-marked or padding
// rows) rather than malformed input the operator should fix.
func (r *RowRejection) Skippable() bool {
	return r.Reason == ReasonAlreadyImported || r.Reason == ReasonBlankRow
}

// RowStatus is the terminal state of one row within a run.
type RowStatus string

const (
	StatusImported RowStatus = "imported"
	StatusSkipped  RowStatus = "skipped"
	StatusFailed   RowStatus = "failed"
	// StatusImportedNotMarked flags the dangerous case: the worklog exists
	// remotely but the marker write-back failed, so the next run would
	// submit a duplicate unless the operator marks the row by hand.
	StatusImportedNotMarked RowStatus = "imported_not_marked"
)

// RowResult records the outcome for a single row.
type RowResult struct {
	RowNumber int
	Status    RowStatus
	TaskKey   string
	Detail    string
}

// Summary aggregates one pipeline run.
type Summary struct {
	Total     int
	Imported  int
	Skipped   int
	Failed    int
	NotMarked int
	Results   []RowResult
	DryRun    bool
}

// Record appends a row result and bumps the matching counter.
func (s *Summary) Record(res RowResult) {
	s.Results = append(s.Results, res)
	switch res.Status {
	case StatusImported:
		s.Imported++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	case StatusImportedNotMarked:
		s.NotMarked++
	}
}

// Failures returns the results an operator has to act on.
func (s *Summary) Failures() []RowResult {
	var out []RowResult
	for _, r := range s.Results {
		if r.Status == StatusFailed || r.Status == StatusImportedNotMarked {
			out = append(out, r)
		}
	}
	return out
}
