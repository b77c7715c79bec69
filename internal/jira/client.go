package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	jira "github.com/andygrunwald/go-jira"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tempoimport/internal/config"
)

// Lookup failures the pipeline distinguishes by kind.
var (
	ErrIssueNotFound = errors.New("issue not found")
	ErrUnauthorized  = errors.New("jira authorization failed")
)

// Account identifies the authenticated Jira user.
type Account struct {
	AccountID    string
	DisplayName  string
	EmailAddress string
}

// Client wraps the Jira REST API for the two calls the importer needs:
// resolving a ticket key to its backend issue ID and identifying the
// authenticated user.
type Client struct {
	client  *jira.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewClient builds a client with basic-auth (email + API token) against a
// Jira Cloud base URL. The limiter paces requests; the sheet commonly holds
// many rows pointing at the tracker.
func NewClient(cfg config.JiraConfig, limit rate.Limit, burst int, logger *zerolog.Logger) (*Client, error) {
	tp := jira.BasicAuthTransport{
		Username: cfg.Email,
		Password: cfg.APIToken,
	}

	client, err := jira.NewClient(tp.Client(), cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}

	return &Client{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

// IssueID resolves a ticket key (e.g. PROJ-123) to the backend issue
// identifier the worklog API requires.
func (c *Client) IssueID(ctx context.Context, key string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	issue, resp, err := c.client.Issue.GetWithContext(ctx, key, nil)
	if err != nil {
		return "", classify(resp, fmt.Errorf("get issue %s: %w", key, err))
	}

	c.logger.Debug().Str("task_key", key).Str("issue_id", issue.ID).Msg("issue resolved")
	return issue.ID, nil
}

// Myself returns the authenticated user. The setup wizard uses it both as a
// connection test and to capture the account ID worklogs are attributed to.
func (c *Client) Myself(ctx context.Context) (*Account, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	user, resp, err := c.client.User.GetSelfWithContext(ctx)
	if err != nil {
		return nil, classify(resp, fmt.Errorf("get current user: %w", err))
	}

	return &Account{
		AccountID:    user.AccountID,
		DisplayName:  user.DisplayName,
		EmailAddress: user.EmailAddress,
	}, nil
}

func classify(resp *jira.Response, err error) error {
	if resp == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrIssueNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return err
}
