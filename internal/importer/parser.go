package importer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tempoimport/internal/models"
)

// datePattern matches the partial "d.m." notation used in the sheet: day and
// month without leading zeros, trailing dot optional.
var datePattern = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.?$`)

// ParseRow validates one raw row and produces a WorkEntry, or a RowRejection
// describing why the row cannot be imported. Pure function: the marker
// short-circuit comes first so pre-imported rows never pay for validation,
// then blank padding rows, then field checks.
func ParseRow(row models.RawRow, refYear int) (models.WorkEntry, *models.RowRejection) {
	reject := func(reason models.RejectionReason, detail string) (models.WorkEntry, *models.RowRejection) {
		return models.WorkEntry{}, &models.RowRejection{RowNumber: row.Number, Reason: reason, Detail: detail}
	}

	if strings.TrimSpace(row.Cell(models.ColImported)) != "" {
		return reject(models.ReasonAlreadyImported, "")
	}

	dateStr := strings.TrimSpace(row.Cell(models.ColDate))
	taskKey := strings.TrimSpace(row.Cell(models.ColTaskKey))
	hoursStr := strings.TrimSpace(row.Cell(models.ColHours))

	// Sheets commonly carry empty padding rows below the data; those are
	// not operator mistakes.
	if dateStr == "" && taskKey == "" && hoursStr == "" {
		return reject(models.ReasonBlankRow, "")
	}

	if dateStr == "" {
		return reject(models.ReasonMissingDate, "")
	}
	date, err := parseDate(dateStr, refYear)
	if err != nil {
		return reject(models.ReasonInvalidDate, err.Error())
	}

	if taskKey == "" {
		return reject(models.ReasonMissingTaskKey, "")
	}

	if hoursStr == "" {
		return reject(models.ReasonMissingHours, "")
	}
	seconds, err := parseHours(hoursStr)
	if err != nil {
		return reject(models.ReasonInvalidHours, err.Error())
	}

	return models.WorkEntry{
		Date:        date,
		TaskKey:     strings.ToUpper(taskKey),
		Description: strings.TrimSpace(row.Cell(models.ColDescription)),
		Seconds:     seconds,
	}, nil
}

// parseDate expands "d.m." into a full calendar date in refYear. The policy
// for impossible combinations is strict: time.Date normalizes overflow
// (31.2. becomes March), so a round-trip mismatch means rejection.
func parseDate(s string, refYear int) (time.Time, error) {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("%q does not match d.m.", s)
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day %d out of range", day)
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", month)
	}

	date := time.Date(refYear, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("%d.%d. is not a valid date in %d", day, month, refYear)
	}
	return date, nil
}

// parseHours accepts decimal-comma and decimal-point numerals and returns the
// tracked time in whole seconds.
func parseHours(s string) (int, error) {
	normalized := strings.ReplaceAll(s, ",", ".")
	hours, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if hours <= 0 {
		return 0, fmt.Errorf("hours must be positive, got %v", hours)
	}
	return int(math.Round(hours * 3600)), nil
}
