// Package cli provides the command-line interface of the importer.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"tempoimport/internal/config"
	"tempoimport/internal/importer"
	"tempoimport/internal/jira"
	"tempoimport/internal/logging"
	"tempoimport/internal/models"
	"tempoimport/internal/setup"
	"tempoimport/internal/source"
	"tempoimport/internal/tempo"
	"tempoimport/internal/worker"
)

// NewRootCommand creates the root command. Running it imports all unimported
// rows of the configured source into the time-tracking API.
func NewRootCommand(version string) *cobra.Command {
	var (
		configPath string
		dryRun     bool
		runSetup   bool
		filePath   string
		refYear    int
	)

	root := &cobra.Command{
		Use:   "tempoimport",
		Short: "Import time-tracking rows from a spreadsheet into Tempo",
		Long: `tempoimport reads time entries from Google Sheets, a CSV file or an
Excel workbook and creates the matching Tempo worklogs, marking each row as
imported after success. Re-running is safe: marked rows are never submitted
again.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := runOptions{
				configPath: configPath,
				dryRun:     dryRun,
				runSetup:   runSetup,
				filePath:   filePath,
				refYear:    refYear,
				stdin:      cmd.InOrStdin(),
				stdout:     cmd.OutOrStdout(),
			}
			return runImport(cmd.Context(), opts)
		},
	}

	root.Flags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be imported without writing anything")
	root.Flags().BoolVar(&runSetup, "setup", false, "Run the setup wizard again")
	root.Flags().StringVar(&filePath, "file", "", "One-off override: import from this local file")
	root.Flags().IntVar(&refYear, "year", 0, "Year for date parsing (default: current year)")

	return root
}

type runOptions struct {
	configPath string
	dryRun     bool
	runSetup   bool
	filePath   string
	refYear    int
	stdin      io.Reader
	stdout     io.Writer
}

func runImport(ctx context.Context, opts runOptions) error {
	cfg, logger, logCloser, err := loadConfigAndLogger(ctx, opts)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	if opts.filePath != "" {
		if _, err := os.Stat(opts.filePath); err != nil {
			return fmt.Errorf("file override: %w", err)
		}
		cfg.Source.Type = config.SourceLocalFile
		cfg.Source.File.Path = opts.filePath
		logger.Info().Str("path", opts.filePath).Msg("using file override")
	}

	src, err := source.Open(ctx, cfg.Source, logger)
	if err != nil {
		return fmt.Errorf("open data source: %w", err)
	}
	if closer, ok := src.(io.Closer); ok {
		defer closer.Close()
	}

	jiraClient, err := jira.NewClient(cfg.Jira, rate.Limit(cfg.Import.RateRPS), cfg.Import.RateBurst, logger)
	if err != nil {
		return err
	}

	// The account ID attributes worklogs to the operator. Hand-written
	// configs may omit it; look it up once at startup.
	if cfg.Jira.AccountID == "" {
		account, err := jiraClient.Myself(ctx)
		if err != nil {
			return fmt.Errorf("discover jira account id: %w", err)
		}
		cfg.Jira.AccountID = account.AccountID
		logger.Info().Str("account_id", account.AccountID).Msg("discovered jira account id")
	}

	submitter := tempo.NewClient(cfg.Tempo, cfg.Jira.AccountID, cfg.Import.StartTime,
		rate.Limit(cfg.Import.RateRPS), cfg.Import.RateBurst, logger)
	resolver := importer.NewResolver(jiraClient)

	pipeline := importer.NewPipeline(src, resolver, submitter, importer.Options{
		ReferenceYear: opts.refYear,
		DryRun:        opts.dryRun,
		WriteBackRetry: worker.RetryPolicy{
			MaxRetries:    cfg.Import.WriteBackRetries,
			InitialDelay:  2 * time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2,
		},
	}, logger)

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(opts.stdout, summary)
	// A completed run exits zero even when rows failed; the summary carries
	// everything the operator needs for a corrected re-run.
	return nil
}

func loadConfigAndLogger(ctx context.Context, opts runOptions) (*config.Config, *zerolog.Logger, io.Closer, error) {
	cfg, loadErr := config.Load(opts.configPath)

	if opts.runSetup || loadErr != nil {
		cfg = config.LoadPartial(opts.configPath)

		logger, closer, err := logging.New(cfg.Logging, cfg.App)
		if err != nil {
			return nil, nil, nil, err
		}

		if !opts.runSetup {
			fmt.Fprintln(opts.stdout, "Configuration missing or incomplete, starting setup.")
		}

		wizard := setup.NewWizard(opts.stdin, opts.stdout, logger)
		if err := wizard.Run(ctx, cfg, opts.configPath); err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, nil, nil, fmt.Errorf("configuration still invalid after setup: %w", err)
		}
		return cfg, logger, closer, nil
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}

func printSummary(out io.Writer, summary *models.Summary) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  Rows:      %d\n", summary.Total)
	fmt.Fprintf(out, "  Imported:  %d\n", summary.Imported)
	fmt.Fprintf(out, "  Skipped:   %d\n", summary.Skipped)
	fmt.Fprintf(out, "  Failed:    %d\n", summary.Failed)
	if summary.NotMarked > 0 {
		fmt.Fprintf(out, "  IMPORTED BUT NOT MARKED: %d\n", summary.NotMarked)
	}

	failures := summary.Failures()
	if len(failures) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Rows needing attention:")
		for _, f := range failures {
			key := f.TaskKey
			if key == "" {
				key = "-"
			}
			fmt.Fprintf(out, "  row %d  %-12s %s: %s\n", f.RowNumber, key, f.Status, f.Detail)
		}
	}

	if summary.NotMarked > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "WARNING: some worklogs were created but their rows could not be")
		fmt.Fprintln(out, "marked as imported. Mark them by hand before the next run to avoid")
		fmt.Fprintln(out, "duplicate worklogs.")
	}

	if summary.DryRun {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "(dry run - nothing was written)")
	}
}
