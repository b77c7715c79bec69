// Package setup implements the interactive configuration wizard: it collects
// connection settings for the two remote APIs and the data source, verifies
// them live, and persists the result.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tempoimport/internal/config"
	"tempoimport/internal/jira"
	"tempoimport/internal/tempo"
)

// errInputClosed aborts the wizard when stdin is drained mid-dialogue; the
// prompt loops would otherwise spin on empty answers forever.
var errInputClosed = errors.New("setup cancelled: input closed")

// Wizard prompts on in/out and fills a Config. Connection checks are
// swappable for tests.
type Wizard struct {
	in     *bufio.Scanner
	out    io.Writer
	logger *zerolog.Logger

	// inputClosed flips once Scan fails; a drained bufio.Scanner never
	// recovers, so every prompt loop has to bail out.
	inputClosed bool

	checkJira  func(ctx context.Context, cfg config.JiraConfig) (*jira.Account, error)
	checkTempo func(ctx context.Context, cfg config.TempoConfig) error
}

// NewWizard builds a wizard reading prompts from in and writing to out.
func NewWizard(in io.Reader, out io.Writer, logger *zerolog.Logger) *Wizard {
	return &Wizard{
		in:         bufio.NewScanner(in),
		out:        out,
		logger:     logger,
		checkJira:  defaultJiraCheck(logger),
		checkTempo: defaultTempoCheck(logger),
	}
}

// Run walks the operator through the full configuration and writes the result
// to configPath. The passed config's current values survive as defaults where
// it makes sense.
func (w *Wizard) Run(ctx context.Context, cfg *config.Config, configPath string) error {
	fmt.Fprintln(w.out, "Tempo importer - initial setup")
	fmt.Fprintln(w.out)

	if err := w.configureJira(ctx, cfg); err != nil {
		return err
	}
	if err := w.configureTempo(ctx, cfg); err != nil {
		return err
	}
	if err := w.configureSource(cfg); err != nil {
		return err
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}

	fmt.Fprintf(w.out, "\nConfiguration saved to %s\n", configPath)
	return nil
}

func (w *Wizard) configureJira(ctx context.Context, cfg *config.Config) error {
	fmt.Fprintln(w.out, "-- Jira --")

	for {
		cfg.Jira.BaseURL = strings.TrimRight(w.prompt("Jira URL (e.g. https://company.atlassian.net)"), "/")
		cfg.Jira.Email = w.prompt("Jira email")
		cfg.Jira.APIToken = w.prompt("Jira API token")
		if w.inputClosed {
			return errInputClosed
		}

		fmt.Fprintln(w.out, "Testing Jira connection...")
		account, err := w.checkJira(ctx, cfg.Jira)
		if err == nil {
			cfg.Jira.AccountID = account.AccountID
			fmt.Fprintf(w.out, "  Connected as %s (%s)\n", account.DisplayName, account.EmailAddress)
			return nil
		}

		fmt.Fprintf(w.out, "  Failed: %v\n", err)
		if !w.confirm("Retry?") {
			return fmt.Errorf("jira setup cancelled: %w", err)
		}
	}
}

func (w *Wizard) configureTempo(ctx context.Context, cfg *config.Config) error {
	fmt.Fprintln(w.out, "\n-- Tempo --")
	fmt.Fprintln(w.out, "Get the API token from Tempo > Settings > API Integration.")

	for {
		cfg.Tempo.APIToken = w.prompt("Tempo API token")
		if w.inputClosed {
			return errInputClosed
		}

		fmt.Fprintln(w.out, "Testing Tempo connection...")
		err := w.checkTempo(ctx, cfg.Tempo)
		if err == nil {
			fmt.Fprintln(w.out, "  Connected")
			return nil
		}

		fmt.Fprintf(w.out, "  Failed: %v\n", err)
		if !w.confirm("Retry?") {
			return fmt.Errorf("tempo setup cancelled: %w", err)
		}
	}
}

func (w *Wizard) configureSource(cfg *config.Config) error {
	fmt.Fprintln(w.out, "\n-- Data source --")
	fmt.Fprintln(w.out, "  1. Google Sheets")
	fmt.Fprintln(w.out, "  2. Local file (CSV or Excel)")

	for {
		switch w.prompt("Choose [1/2]") {
		case "1":
			cfg.Source.Type = config.SourceGoogleSheets
			return w.configureSheets(cfg)
		case "2":
			cfg.Source.Type = config.SourceLocalFile
			return w.configureLocalFile(cfg)
		default:
			if w.inputClosed {
				return errInputClosed
			}
			fmt.Fprintln(w.out, "  Invalid choice, enter 1 or 2.")
		}
	}
}

func (w *Wizard) configureSheets(cfg *config.Config) error {
	for {
		path := w.promptDefault("Service-account credentials file", "credentials.json")
		if w.inputClosed {
			return errInputClosed
		}
		if _, err := os.Stat(path); err == nil {
			cfg.Source.Sheets.CredentialsFile = path
			break
		}
		fmt.Fprintf(w.out, "  File not found: %s\n", path)
		if !w.confirm("Retry?") {
			return fmt.Errorf("sheets setup cancelled: credentials file not found")
		}
	}

	fmt.Fprintln(w.out, "The spreadsheet ID is the long token in the sheet URL:")
	fmt.Fprintln(w.out, "  https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit")
	cfg.Source.Sheets.SpreadsheetID = w.prompt("Spreadsheet ID")
	cfg.Source.Sheets.SheetName = w.promptDefault("Sheet name (empty for first sheet)", "")
	if w.inputClosed {
		return errInputClosed
	}
	return nil
}

func (w *Wizard) configureLocalFile(cfg *config.Config) error {
	fmt.Fprintln(w.out, "Expected columns: date, task key, description, hours, imported.")

	for {
		path := w.prompt("Path to file")
		if w.inputClosed {
			return errInputClosed
		}

		if _, err := os.Stat(path); err != nil {
			fmt.Fprintf(w.out, "  File not found: %s\n", path)
			if !w.confirm("Retry?") {
				return fmt.Errorf("file setup cancelled: %s not found", path)
			}
			continue
		}

		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".csv", ".xlsx", ".xls", ".xlsm":
			cfg.Source.File.Path = path
			return nil
		default:
			fmt.Fprintf(w.out, "  Unsupported format %s, use .csv, .xlsx or .xls\n", ext)
		}
	}
}

func (w *Wizard) prompt(label string) string {
	fmt.Fprintf(w.out, "%s: ", label)
	if !w.in.Scan() {
		w.inputClosed = true
		return ""
	}
	return strings.TrimSpace(w.in.Text())
}

func (w *Wizard) promptDefault(label, def string) string {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	if answer := w.prompt(label); answer != "" {
		return answer
	}
	return def
}

func (w *Wizard) confirm(label string) bool {
	answer := strings.ToLower(w.prompt(label + " (y/n)"))
	return answer == "y" || answer == "yes"
}

func defaultJiraCheck(logger *zerolog.Logger) func(context.Context, config.JiraConfig) (*jira.Account, error) {
	return func(ctx context.Context, cfg config.JiraConfig) (*jira.Account, error) {
		client, err := jira.NewClient(cfg, rate.Limit(5), 5, logger)
		if err != nil {
			return nil, err
		}
		return client.Myself(ctx)
	}
}

func defaultTempoCheck(logger *zerolog.Logger) func(context.Context, config.TempoConfig) error {
	return func(ctx context.Context, cfg config.TempoConfig) error {
		client := tempo.NewClient(cfg, "", "09:00:00", rate.Limit(5), 5, logger)
		return client.CheckConnection(ctx)
	}
}
