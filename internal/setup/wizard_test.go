package setup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempoimport/internal/config"
	"tempoimport/internal/jira"
)

func newTestWizard(input string) (*Wizard, *bytes.Buffer) {
	out := &bytes.Buffer{}
	logger := zerolog.Nop()
	w := NewWizard(strings.NewReader(input), out, &logger)
	w.checkJira = func(_ context.Context, _ config.JiraConfig) (*jira.Account, error) {
		return &jira.Account{AccountID: "acct-1", DisplayName: "Dev", EmailAddress: "dev@example.com"}, nil
	}
	w.checkTempo = func(_ context.Context, _ config.TempoConfig) error {
		return nil
	}
	return w, out
}

func TestWizardLocalFile(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "worklog.csv")
	require.NoError(t, os.WriteFile(dataFile, []byte("date,task,desc,hours,imported\n"), 0o644))

	input := strings.Join([]string{
		"https://company.atlassian.net/", // trailing slash gets trimmed
		"dev@example.com",
		"jira-token",
		"tempo-token",
		"2",
		dataFile,
	}, "\n") + "\n"

	w, out := newTestWizard(input)

	cfg := &config.Config{}
	configPath := filepath.Join(dir, "tempoimport.yaml")
	require.NoError(t, w.Run(context.Background(), cfg, configPath))

	assert.Equal(t, "https://company.atlassian.net", cfg.Jira.BaseURL)
	assert.Equal(t, "dev@example.com", cfg.Jira.Email)
	assert.Equal(t, "jira-token", cfg.Jira.APIToken)
	assert.Equal(t, "acct-1", cfg.Jira.AccountID)
	assert.Equal(t, "tempo-token", cfg.Tempo.APIToken)
	assert.Equal(t, config.SourceLocalFile, cfg.Source.Type)
	assert.Equal(t, dataFile, cfg.Source.File.Path)

	assert.FileExists(t, configPath)
	assert.Contains(t, out.String(), "Connected as Dev (dev@example.com)")
	assert.Contains(t, out.String(), "Configuration saved to "+configPath)
}

func TestWizardGoogleSheets(t *testing.T) {
	dir := t.TempDir()
	credsFile := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(credsFile, []byte("{}"), 0o600))

	input := strings.Join([]string{
		"https://company.atlassian.net",
		"dev@example.com",
		"jira-token",
		"tempo-token",
		"1",
		credsFile,
		"1abcDEFspreadsheet",
		"Worklog",
	}, "\n") + "\n"

	w, _ := newTestWizard(input)

	cfg := &config.Config{}
	require.NoError(t, w.Run(context.Background(), cfg, filepath.Join(dir, "tempoimport.yaml")))

	assert.Equal(t, config.SourceGoogleSheets, cfg.Source.Type)
	assert.Equal(t, credsFile, cfg.Source.Sheets.CredentialsFile)
	assert.Equal(t, "1abcDEFspreadsheet", cfg.Source.Sheets.SpreadsheetID)
	assert.Equal(t, "Worklog", cfg.Source.Sheets.SheetName)
}

func TestWizardJiraRetryThenSuccess(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "worklog.csv")
	require.NoError(t, os.WriteFile(dataFile, []byte("date,task,desc,hours,imported\n"), 0o644))

	input := strings.Join([]string{
		"https://company.atlassian.net",
		"dev@example.com",
		"wrong-token",
		"y", // retry after failed check
		"https://company.atlassian.net",
		"dev@example.com",
		"right-token",
		"tempo-token",
		"2",
		dataFile,
	}, "\n") + "\n"

	w, out := newTestWizard(input)

	attempts := 0
	w.checkJira = func(_ context.Context, cfg config.JiraConfig) (*jira.Account, error) {
		attempts++
		if cfg.APIToken != "right-token" {
			return nil, errors.New("401 unauthorized")
		}
		return &jira.Account{AccountID: "acct-1"}, nil
	}

	cfg := &config.Config{}
	require.NoError(t, w.Run(context.Background(), cfg, filepath.Join(dir, "tempoimport.yaml")))

	assert.Equal(t, 2, attempts)
	assert.Equal(t, "right-token", cfg.Jira.APIToken)
	assert.Contains(t, out.String(), "Failed: 401 unauthorized")
}

func TestWizardJiraCancelled(t *testing.T) {
	input := strings.Join([]string{
		"https://company.atlassian.net",
		"dev@example.com",
		"wrong-token",
		"n", // decline the retry
	}, "\n") + "\n"

	w, _ := newTestWizard(input)
	w.checkJira = func(_ context.Context, _ config.JiraConfig) (*jira.Account, error) {
		return nil, errors.New("401 unauthorized")
	}

	err := w.Run(context.Background(), &config.Config{}, filepath.Join(t.TempDir(), "tempoimport.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jira setup cancelled")
}

func TestWizardStopsWhenInputEndsAtSourceMenu(t *testing.T) {
	// Valid Jira and Tempo answers, then the stream ends before the
	// data-source choice. The wizard must abort instead of re-prompting on
	// a drained scanner.
	input := strings.Join([]string{
		"https://company.atlassian.net",
		"dev@example.com",
		"jira-token",
		"tempo-token",
	}, "\n") + "\n"

	w, out := newTestWizard(input)

	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), &config.Config{}, filepath.Join(t.TempDir(), "tempoimport.yaml"))
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input closed")
	case <-time.After(2 * time.Second):
		t.Fatalf("wizard kept running after stdin ended; output grew to %d bytes", out.Len())
	}
}

func TestWizardStopsWhenInputEndsImmediately(t *testing.T) {
	w, _ := newTestWizard("")

	err := w.Run(context.Background(), &config.Config{}, filepath.Join(t.TempDir(), "tempoimport.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input closed")
}

func TestWizardRejectsUnsupportedFile(t *testing.T) {
	dir := t.TempDir()
	badFile := filepath.Join(dir, "worklog.txt")
	goodFile := filepath.Join(dir, "worklog.xlsx")
	require.NoError(t, os.WriteFile(badFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(goodFile, []byte("x"), 0o644))

	input := strings.Join([]string{
		"https://company.atlassian.net",
		"dev@example.com",
		"jira-token",
		"tempo-token",
		"2",
		badFile,
		goodFile,
	}, "\n") + "\n"

	w, out := newTestWizard(input)

	cfg := &config.Config{}
	require.NoError(t, w.Run(context.Background(), cfg, filepath.Join(dir, "tempoimport.yaml")))

	assert.Equal(t, goodFile, cfg.Source.File.Path)
	assert.Contains(t, out.String(), "Unsupported format .txt")
}
