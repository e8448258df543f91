package sentry

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsline/sentry-mcp/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cfg := &config.Config{
		Token:       "tok-123",
		Org:         "acme",
		ProjectID:   "547",
		ProjectSlug: "storefront",
		BaseURL:     base,
		Timeout:     5 * time.Second,
	}
	return NewClient(cfg,
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func TestListTransactions(t *testing.T) {
	var gotReq *http.Request
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [
			{"transaction": "/api/v1/orders", "transaction.op": "http.server",
			 "http.method": "GET", "tpm()": 12.5, "p50()": 80.0, "p95()": 450.0,
			 "failure_rate()": 0.02},
			{"transaction": "/api/v1/users", "transaction.op": "http.server",
			 "http.method": "POST", "tpm()": 3.1, "p50()": 40.0, "p95()": 120.0,
			 "failure_rate()": 0}
		]}`))
	}))

	stats, err := client.ListTransactions(context.Background(), TransactionFilter{Period: "7d", Limit: 25})
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "/api/v1/orders", stats[0].Transaction)
	assert.Equal(t, 450.0, stats[0].P95)
	assert.Equal(t, 0.02, stats[0].FailureRate)

	require.NotNil(t, gotReq)
	assert.Equal(t, "/api/0/organizations/acme/events/", gotReq.URL.Path)
	assert.Equal(t, "Bearer tok-123", gotReq.Header.Get("Authorization"))

	query := gotReq.URL.Query()
	assert.Equal(t, "7d", query.Get("statsPeriod"))
	assert.Equal(t, "25", query.Get("per_page"))
	assert.Equal(t, "547", query.Get("project"))
	assert.Contains(t, query.Get("query"), "event.type:transaction")
	assert.Contains(t, query["field"], "p95()")
	assert.Contains(t, query["field"], "transaction.op")
	assert.Equal(t, []string{"-team_key_transaction", "-tpm"}, query["sort"])
}

func TestListTransactionEvents(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Contains(t, query.Get("query"), `transaction:"/api/v1/orders"`)
		assert.Equal(t, "-transaction.duration", query.Get("sort"))
		_, _ = w.Write([]byte(`{"data": [
			{"id": "abc123", "transaction": "/api/v1/orders", "transaction.duration": 3.5},
			{"id": "def456", "transaction": "/api/v1/orders", "transaction.duration": 1.2}
		]}`))
	}))

	events, err := client.ListTransactionEvents(context.Background(), "/api/v1/orders", EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "abc123", events[0].ID)
	assert.Equal(t, 3.5, events[0].Duration)
}

func TestGetEventDetailsFallback(t *testing.T) {
	var paths []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/0/organizations/acme/events/storefront:abc123/" {
			http.Error(w, `{"detail": "not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id": "abc123", "title": "/api/v1/orders",
			"startTimestamp": 100.0, "endTimestamp": 101.5, "entries": []}`))
	}))

	event, err := client.GetEventDetails(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", event.ID)
	assert.InDelta(t, 1500.0, event.TotalDurationMS(), 0.001)
	assert.Equal(t, []string{
		"/api/0/organizations/acme/events/storefront:abc123/",
		"/api/0/projects/acme/storefront/events/abc123/",
	}, paths)
}

func TestListIssues(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/0/projects/acme/storefront/issues/", r.URL.Path)
		assert.Equal(t, "is:unresolved", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`[
			{"id": "1001", "title": "ValueError", "culprit": "/api/v1/orders",
			 "count": "42", "userCount": 7, "lastSeen": "2026-08-20T10:00:00Z",
			 "firstSeen": "2026-08-01T00:00:00Z", "level": "error", "status": "unresolved"}
		]`))
	}))

	issues, err := client.ListIssues(context.Background(), IssueFilter{Query: "is:unresolved"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "1001", issues[0].ID)
	assert.Equal(t, "42", issues[0].Count)
	assert.Equal(t, 2026, issues[0].LastSeen.Year())
}

func TestGetIssueAndLatestEvent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/0/organizations/acme/issues/1001/":
			_, _ = w.Write([]byte(`{"id": "1001", "title": "ValueError",
				"tags": [{"key": "route", "value": "/api/v1/orders"}]}`))
		case "/api/0/organizations/acme/issues/1001/events/latest/":
			_, _ = w.Write([]byte(`{"eventID": "evt-1", "entries": [
				{"type": "exception", "data": {"values": [
					{"type": "ValueError", "value": "boom",
					 "stacktrace": {"frames": [{"filename": "app.py", "lineNo": 10, "inApp": true}]}}
				]}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))

	issue, err := client.GetIssue(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "ValueError", issue.Title)
	require.Len(t, issue.Tags, 1)

	event, err := client.GetLatestEvent(context.Background(), "1001")
	require.NoError(t, err)
	excs, err := event.Exceptions()
	require.NoError(t, err)
	require.Len(t, excs, 1)
	assert.Equal(t, "boom", excs[0].Value)
	require.NotNil(t, excs[0].Stacktrace)
	assert.Equal(t, "app.py", excs[0].Stacktrace.Frames[0].Filename)
}

func TestUpstreamErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "not found", status: http.StatusNotFound, retryable: false},
		{name: "unauthorized", status: http.StatusUnauthorized, retryable: false},
		{name: "rate limited", status: http.StatusTooManyRequests, retryable: true},
		{name: "server error", status: http.StatusBadGateway, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream said no", tt.status)
			}))

			_, err := client.ListIssues(context.Background(), IssueFilter{})
			require.Error(t, err)

			var ue *UpstreamError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.status, ue.StatusCode)
			assert.Equal(t, tt.retryable, ue.Retryable())
			assert.Contains(t, ue.Message, "upstream said no")
		})
	}
}

func TestRetryOnServerError(t *testing.T) {
	t.Run("second attempt succeeds", func(t *testing.T) {
		attempts := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				http.Error(w, "flaky", http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`[]`))
		}))

		_, err := client.ListIssues(context.Background(), IssueFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("gives up after single retry", func(t *testing.T) {
		attempts := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			http.Error(w, "still broken", http.StatusInternalServerError)
		}))

		_, err := client.ListIssues(context.Background(), IssueFilter{})
		require.Error(t, err)
		assert.Equal(t, 2, attempts)

		var ue *UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, http.StatusInternalServerError, ue.StatusCode)
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		attempts := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			http.Error(w, "bad request", http.StatusBadRequest)
		}))

		_, err := client.ListIssues(context.Background(), IssueFilter{})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	srv.Close()

	cfg := &config.Config{
		Token:     "tok-123",
		Org:       "acme",
		ProjectID: "547",
		BaseURL:   base,
		Timeout:   time.Second,
	}
	client := NewClient(cfg, WithLogger(slog.New(slog.DiscardHandler)))

	_, err = client.ListIssues(context.Background(), IssueFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestShapeMismatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": "not-a-list"}`))
	}))

	_, err := client.ListTransactions(context.Background(), TransactionFilter{})
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Message, "unexpected response shape")
}
