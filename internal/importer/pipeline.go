package importer

import (
	"context"
	"fmt"
	"time"

	"tempoimport/internal/models"
	"tempoimport/internal/worker"

	"github.com/rs/zerolog"
)

// DataSource supplies the ordered rows of a time-tracking sheet and accepts
// the imported-marker write-back. Implementations live in internal/source.
type DataSource interface {
	Name() string
	ReadAllRows(ctx context.Context) ([]models.RawRow, error)
	WriteImportedMarker(ctx context.Context, rowNumber int, value string) error
}

// WorklogSubmitter sends one resolved entry to the time-tracking API.
type WorklogSubmitter interface {
	Submit(ctx context.Context, issueID string, entry models.WorkEntry) error
}

// Options configures a pipeline run.
type Options struct {
	// ReferenceYear completes the partial d.m. dates. Zero means the year
	// of the run clock.
	ReferenceYear int
	DryRun        bool
	// WriteBackRetry guards against transient marker write-back failures;
	// a row whose marker cannot be written is reported separately because
	// the next run would duplicate its worklog.
	WriteBackRetry worker.RetryPolicy
}

// Pipeline walks a data source once and imports every unimported row:
// parse, resolve the ticket key, submit the worklog, write the marker back.
// Row-level problems never abort the batch.
type Pipeline struct {
	source    DataSource
	resolver  *Resolver
	submitter WorklogSubmitter
	opts      Options
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewPipeline wires the three stages together.
func NewPipeline(source DataSource, resolver *Resolver, submitter WorklogSubmitter, opts Options, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		source:    source,
		resolver:  resolver,
		submitter: submitter,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes the whole source and returns the run summary. The returned
// error is non-nil only for fatal problems (the source cannot be read);
// per-row failures are carried in the summary.
func (p *Pipeline) Run(ctx context.Context) (*models.Summary, error) {
	rows, err := p.source.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows from %s: %w", p.source.Name(), err)
	}

	summary := &models.Summary{DryRun: p.opts.DryRun}

	if len(rows) <= 1 {
		p.logger.Info().Str("source", p.source.Name()).Msg("source is empty or has only a header row")
		return summary, nil
	}

	refYear := p.opts.ReferenceYear
	if refYear == 0 {
		refYear = p.now().Year()
	}

	// First row is the header.
	for _, row := range rows[1:] {
		summary.Total++
		summary.Record(p.processRow(ctx, row, refYear))
	}

	p.logger.Info().
		Int("total", summary.Total).
		Int("imported", summary.Imported).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("not_marked", summary.NotMarked).
		Bool("dry_run", summary.DryRun).
		Msg("import run finished")

	return summary, nil
}

func (p *Pipeline) processRow(ctx context.Context, row models.RawRow, refYear int) models.RowResult {
	entry, rejection := ParseRow(row, refYear)
	if rejection != nil {
		if rejection.Skippable() {
			return models.RowResult{RowNumber: row.Number, Status: models.StatusSkipped, Detail: string(rejection.Reason)}
		}
		p.logger.Warn().Int("row", row.Number).Str("reason", string(rejection.Reason)).Str("detail", rejection.Detail).Msg("row rejected")
		return models.RowResult{
			RowNumber: row.Number,
			Status:    models.StatusFailed,
			TaskKey:   row.Cell(models.ColTaskKey),
			Detail:    rejection.Error(),
		}
	}

	issueID, err := p.resolver.Resolve(ctx, entry.TaskKey)
	if err != nil {
		p.logger.Warn().Int("row", row.Number).Str("task_key", entry.TaskKey).Err(err).Msg("issue resolution failed")
		return models.RowResult{RowNumber: row.Number, Status: models.StatusFailed, TaskKey: entry.TaskKey, Detail: err.Error()}
	}

	if p.opts.DryRun {
		p.logger.Info().
			Int("row", row.Number).
			Str("task_key", entry.TaskKey).
			Str("date", entry.Date.Format("2006-01-02")).
			Float64("hours", entry.Hours()).
			Msg("dry run: would import")
		return models.RowResult{RowNumber: row.Number, Status: models.StatusImported, TaskKey: entry.TaskKey}
	}

	if err := p.submitter.Submit(ctx, issueID, entry); err != nil {
		p.logger.Warn().Int("row", row.Number).Str("task_key", entry.TaskKey).Err(err).Msg("worklog submission failed")
		return models.RowResult{RowNumber: row.Number, Status: models.StatusFailed, TaskKey: entry.TaskKey, Detail: err.Error()}
	}

	marker := p.now().Format(models.MarkerDateFormat)
	err = p.opts.WriteBackRetry.Do(ctx, func() error {
		return p.source.WriteImportedMarker(ctx, row.Number, marker)
	})
	if err != nil {
		// The worklog exists remotely now. Without the marker the row is
		// picked up again next run, so this must not hide inside Failed.
		p.logger.Error().
			Int("row", row.Number).
			Str("task_key", entry.TaskKey).
			Err(err).
			Msg("worklog created but marker write-back failed; mark the row by hand before the next run")
		return models.RowResult{
			RowNumber: row.Number,
			Status:    models.StatusImportedNotMarked,
			TaskKey:   entry.TaskKey,
			Detail:    fmt.Sprintf("write-back failed: %v", err),
		}
	}

	p.logger.Info().
		Int("row", row.Number).
		Str("task_key", entry.TaskKey).
		Str("date", entry.Date.Format("2006-01-02")).
		Float64("hours", entry.Hours()).
		Msg("imported")
	return models.RowResult{RowNumber: row.Number, Status: models.StatusImported, TaskKey: entry.TaskKey}
}
