package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the importer looks for its configuration unless
// overridden with --config.
const DefaultPath = "tempoimport.yaml"

// Data source types.
const (
	SourceGoogleSheets = "google_sheets"
	SourceLocalFile    = "local_file"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Logging LoggingConfig `yaml:"logging"`
	Jira    JiraConfig    `yaml:"jira"`
	Tempo   TempoConfig   `yaml:"tempo"`
	Source  SourceConfig  `yaml:"source"`
	Import  ImportConfig  `yaml:"import"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type JiraConfig struct {
	BaseURL   string `yaml:"base_url"`
	Email     string `yaml:"email"`
	APIToken  string `yaml:"api_token"`
	AccountID string `yaml:"account_id"`
}

type TempoConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIToken string `yaml:"api_token"`
}

type SourceConfig struct {
	Type   string             `yaml:"type"`
	Sheets SheetsSourceConfig `yaml:"sheets"`
	File   FileSourceConfig   `yaml:"file"`
}

type SheetsSourceConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

type FileSourceConfig struct {
	Path string `yaml:"path"`
}

type ImportConfig struct {
	// StartTime is the worklog start-of-day sent to the time-tracking API.
	StartTime string  `yaml:"start_time"`
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`
	// Marker updates are retried this many times before the row is
	// reported as imported-but-not-marked.
	WriteBackRetries int `yaml:"write_back_retries"`
}

// Load reads the YAML config at path, expanding ${VAR} references from the
// environment. A .env file in the working directory is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// LoadPartial reads whatever configuration exists at path without validating
// it. A missing file yields an empty config. The setup wizard starts from the
// result so previously entered values survive a re-run.
func LoadPartial(path string) *Config {
	var config Config

	data, err := os.ReadFile(path)
	if err == nil {
		_ = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config)
	}

	config.applyDefaults()
	return &config
}

// Save writes the config back to path. Used by the setup wizard.
func (c *Config) Save(path string) error {
	c.applyDefaults()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	// Tokens live in this file.
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) Validate() error {
	if c.Jira.BaseURL == "" {
		return errors.New("jira base url is required")
	}
	if u, err := url.Parse(c.Jira.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("jira base url %q is not a valid URL", c.Jira.BaseURL)
	}
	if c.Jira.Email == "" {
		return errors.New("jira email is required")
	}
	if c.Jira.APIToken == "" {
		return errors.New("jira api token is required")
	}
	if c.Tempo.APIToken == "" {
		return errors.New("tempo api token is required")
	}

	switch c.Source.Type {
	case SourceGoogleSheets:
		if c.Source.Sheets.CredentialsFile == "" {
			return errors.New("google credentials file is required for the sheets source")
		}
		if c.Source.Sheets.SpreadsheetID == "" {
			return errors.New("spreadsheet id is required for the sheets source")
		}
	case SourceLocalFile:
		if c.Source.File.Path == "" {
			return errors.New("file path is required for the local file source")
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}

	return nil
}

// IsComplete reports whether enough settings exist to run without the wizard.
func (c *Config) IsComplete() bool {
	return c.Validate() == nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tempoimport"
	}
	if c.App.Environment == "" {
		c.App.Environment = "production"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Tempo.BaseURL == "" {
		c.Tempo.BaseURL = "https://api.tempo.io/4"
	}
	c.Jira.BaseURL = strings.TrimRight(c.Jira.BaseURL, "/")
	c.Tempo.BaseURL = strings.TrimRight(c.Tempo.BaseURL, "/")

	if c.Import.StartTime == "" {
		c.Import.StartTime = "09:00:00"
	}
	if c.Import.RateRPS == 0 {
		c.Import.RateRPS = 5
	}
	if c.Import.RateBurst == 0 {
		c.Import.RateBurst = 5
	}
	if c.Import.WriteBackRetries == 0 {
		c.Import.WriteBackRetries = 3
	}
}
