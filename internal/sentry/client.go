// Package sentry is a thin, typed client for the slice of Sentry's
// REST API this server exposes as MCP tools. It owns authentication,
// response decoding, and the error taxonomy; it performs no caching
// and holds no state beyond the immutable configuration.
package sentry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/gofrs/uuid/v5"

	"github.com/opsline/sentry-mcp/internal/config"
)

const (
	defaultTransactionLimit = 50
	defaultIssueLimit       = 100
	defaultSort             = "-tpm"

	// maxErrorBody bounds how much of an upstream error body is kept
	// for the error message.
	maxErrorBody = 2048
)

// transactionFields is the discover field set for per-route aggregates.
var transactionFields = []string{
	"team_key_transaction",
	"transaction",
	"project",
	"transaction.op",
	"http.method",
	"tpm()",
	"p50()",
	"p95()",
	"failure_rate()",
	"apdex()",
	"count_unique(user)",
	"count_miserable(user)",
	"user_misery()",
}

// eventFields is the discover field set for individual events.
var eventFields = []string{
	"id",
	"timestamp",
	"transaction",
	"transaction.duration",
	"transaction.op",
	"http.method",
}

// Client issues authenticated requests against the Sentry API. The
// embedded http.Client is safe for concurrent use; Client carries no
// other mutable state.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Sentry API client from the resolved configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default().WithGroup("sentry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an authenticated GET and decodes the JSON body into out.
// Non-2xx responses and undecodable bodies surface as *UpstreamError;
// transport failures wrap ErrNetwork. Rate-limited and 5xx responses
// are retried once after a short backoff.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL.String(), "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	reqID := uuid.Must(uuid.NewV4()).String()

	return retry.Do(
		func() error {
			return c.doOnce(ctx, endpoint, reqID, out)
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var ue *UpstreamError
			return errors.As(err, &ue) && ue.Retryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying request", "request_id", reqID, "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) doOnce(ctx context.Context, endpoint, reqID string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sentry request", "request_id", reqID, "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response body: %v", ErrNetwork, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected response shape: %v", err),
		}
	}

	c.logger.Debug("sentry response", "request_id", reqID, "status", resp.StatusCode)
	return nil
}

// ListTransactions returns per-route transaction aggregates for the
// given period.
func (c *Client) ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionStats, error) {
	if f.Period == "" {
		f.Period = "24h"
	}
	if f.Limit <= 0 {
		f.Limit = defaultTransactionLimit
	}
	if f.Sort == "" {
		f.Sort = defaultSort
	}
	query := "event.type:transaction"
	if f.Query != "" {
		query += " " + f.Query
	}

	params := url.Values{}
	params.Set("statsPeriod", f.Period)
	params.Set("project", c.cfg.ProjectID)
	params.Set("query", query)
	params.Add("sort", "-team_key_transaction")
	params.Add("sort", f.Sort)
	params.Set("per_page", strconv.Itoa(f.Limit))
	params.Set("referrer", "api.performance.landing-table")
	for _, field := range transactionFields {
		params.Add("field", field)
	}

	var envelope eventsEnvelope[TransactionStats]
	path := fmt.Sprintf("/api/0/organizations/%s/events/", c.cfg.Org)
	if err := c.get(ctx, path, params, &envelope); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	c.logger.Debug("fetched transactions", "count", len(envelope.Data), "period", f.Period)
	return envelope.Data, nil
}

// ListTransactionEvents returns individual events for one transaction,
// slowest first.
func (c *Client) ListTransactionEvents(ctx context.Context, transaction string, f EventFilter) ([]TransactionEvent, error) {
	if f.Period == "" {
		f.Period = "24h"
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}

	params := url.Values{}
	params.Set("statsPeriod", f.Period)
	params.Set("project", c.cfg.ProjectID)
	params.Set("query", fmt.Sprintf("event.type:transaction transaction:%q", transaction))
	params.Set("sort", "-transaction.duration")
	params.Set("per_page", strconv.Itoa(f.Limit))
	for _, field := range eventFields {
		params.Add("field", field)
	}

	var envelope eventsEnvelope[TransactionEvent]
	path := fmt.Sprintf("/api/0/organizations/%s/events/", c.cfg.Org)
	if err := c.get(ctx, path, params, &envelope); err != nil {
		return nil, fmt.Errorf("listing events for %s: %w", transaction, err)
	}
	return envelope.Data, nil
}

// GetEventDetails fetches one event with its entries (spans for
// transactions, exceptions for errors). The organization-level
// endpoint is tried first; on upstream failure the project-level
// endpoint is the fallback.
func (c *Client) GetEventDetails(ctx context.Context, eventID string) (*Event, error) {
	var event Event
	orgPath := fmt.Sprintf("/api/0/organizations/%s/events/%s:%s/", c.cfg.Org, c.cfg.ProjectRef(), eventID)
	err := c.get(ctx, orgPath, nil, &event)
	if err == nil {
		return &event, nil
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return nil, fmt.Errorf("fetching event %s: %w", eventID, err)
	}

	c.logger.Debug("org-level event lookup failed, trying project endpoint",
		"event_id", eventID, "status", ue.StatusCode)

	projectPath := fmt.Sprintf("/api/0/projects/%s/%s/events/%s/", c.cfg.Org, c.cfg.ProjectRef(), eventID)
	if err := c.get(ctx, projectPath, nil, &event); err != nil {
		return nil, fmt.Errorf("fetching event %s: %w", eventID, err)
	}
	return &event, nil
}

// ListIssues returns grouped errors for the project.
func (c *Client) ListIssues(ctx context.Context, f IssueFilter) ([]Issue, error) {
	if f.Period == "" {
		f.Period = "24h"
	}
	if f.Limit <= 0 {
		f.Limit = defaultIssueLimit
	}

	params := url.Values{}
	params.Set("statsPeriod", f.Period)
	params.Set("query", f.Query)
	params.Set("per_page", strconv.Itoa(f.Limit))

	var issues []Issue
	path := fmt.Sprintf("/api/0/projects/%s/%s/issues/", c.cfg.Org, c.cfg.ProjectRef())
	if err := c.get(ctx, path, params, &issues); err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	c.logger.Debug("fetched issues", "count", len(issues), "period", f.Period)
	return issues, nil
}

// GetIssue fetches one issue, including its aggregated tags.
func (c *Client) GetIssue(ctx context.Context, issueID string) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/api/0/organizations/%s/issues/%s/", c.cfg.Org, issueID)
	if err := c.get(ctx, path, nil, &issue); err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", issueID, err)
	}
	return &issue, nil
}

// GetLatestEvent fetches the most recent event recorded for an issue.
func (c *Client) GetLatestEvent(ctx context.Context, issueID string) (*Event, error) {
	var event Event
	path := fmt.Sprintf("/api/0/organizations/%s/issues/%s/events/latest/", c.cfg.Org, issueID)
	if err := c.get(ctx, path, nil, &event); err != nil {
		return nil, fmt.Errorf("fetching latest event for issue %s: %w", issueID, err)
	}
	return &event, nil
}
