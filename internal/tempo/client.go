package tempo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tempoimport/internal/config"
	"tempoimport/internal/models"
)

// ErrRateLimited marks a 429 from the API; the operator re-runs later,
// unmarked rows are picked up again.
var ErrRateLimited = errors.New("tempo rate limit exceeded")

// APIError is a structured non-success response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tempo api: http %d: %s", e.StatusCode, e.Body)
}

// Worklog is the acknowledged remote record.
type Worklog struct {
	TempoWorklogID   int    `json:"tempoWorklogId"`
	IssueID          int    `json:"issueId"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	StartDate        string `json:"startDate"`
	CreatedAt        string `json:"createdAt"`
}

type worklogRequest struct {
	IssueID          int    `json:"issueId"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	StartDate        string `json:"startDate"`
	StartTime        string `json:"startTime"`
	Description      string `json:"description"`
	AuthorAccountID  string `json:"authorAccountId"`
}

// Client talks to the Tempo v4 REST API with a bearer token.
type Client struct {
	baseURL    string
	apiToken   string
	accountID  string
	startTime  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger
}

// NewClient constructs a client. startTime is the worklog start-of-day
// (HH:MM:SS); accountID attributes the worklogs to the configured user.
func NewClient(cfg config.TempoConfig, accountID, startTime string, limit rate.Limit, burst int, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		accountID:  accountID,
		startTime:  startTime,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

// Submit creates one worklog for the resolved issue. Implements
// importer.WorklogSubmitter.
func (c *Client) Submit(ctx context.Context, issueID string, entry models.WorkEntry) error {
	numericID, err := strconv.Atoi(issueID)
	if err != nil {
		return fmt.Errorf("issue id %q is not numeric: %w", issueID, err)
	}

	body := worklogRequest{
		IssueID:          numericID,
		TimeSpentSeconds: entry.Seconds,
		StartDate:        entry.Date.Format("2006-01-02"),
		StartTime:        c.startTime,
		Description:      entry.Description,
		AuthorAccountID:  c.accountID,
	}

	var created Worklog
	if err := c.doPost(ctx, c.baseURL+"/worklogs", body, &created); err != nil {
		return err
	}

	c.logger.Debug().
		Int("worklog_id", created.TempoWorklogID).
		Str("task_key", entry.TaskKey).
		Msg("worklog created")
	return nil
}

// CheckConnection verifies the API token by listing accounts. Used by the
// setup wizard.
func (c *Client) CheckConnection(ctx context.Context) error {
	return c.doGet(ctx, c.baseURL+"/accounts", nil)
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w (http 429)", ErrRateLimited)
	}
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: string(detail)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
