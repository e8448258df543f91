package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/opsline/sentry-mcp/internal/sentry"
)

// stubAPI implements API with canned data and per-method call counts.
type stubAPI struct {
	transactionsByPeriod map[string][]sentry.TransactionStats
	transactionsErr      error
	events               []sentry.TransactionEvent
	eventsErr            error
	eventDetails         map[string]*sentry.Event
	eventDetailsErr      error
	issues               []sentry.Issue
	issuesErr            error
	issue                *sentry.Issue
	issueErr             error
	latestEvent          *sentry.Event
	latestEventErr       error

	calls map[string]int
}

func newStub() *stubAPI {
	return &stubAPI{calls: map[string]int{}}
}

func (s *stubAPI) totalCalls() int {
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *stubAPI) ListTransactions(_ context.Context, f sentry.TransactionFilter) ([]sentry.TransactionStats, error) {
	s.calls["ListTransactions"]++
	if s.transactionsErr != nil {
		return nil, s.transactionsErr
	}
	return s.transactionsByPeriod[f.Period], nil
}

func (s *stubAPI) ListTransactionEvents(_ context.Context, _ string, _ sentry.EventFilter) ([]sentry.TransactionEvent, error) {
	s.calls["ListTransactionEvents"]++
	return s.events, s.eventsErr
}

func (s *stubAPI) GetEventDetails(_ context.Context, eventID string) (*sentry.Event, error) {
	s.calls["GetEventDetails"]++
	if s.eventDetailsErr != nil {
		return nil, s.eventDetailsErr
	}
	event, ok := s.eventDetails[eventID]
	if !ok {
		return nil, &sentry.UpstreamError{StatusCode: 404, Message: "event not found"}
	}
	return event, nil
}

func (s *stubAPI) ListIssues(_ context.Context, _ sentry.IssueFilter) ([]sentry.Issue, error) {
	s.calls["ListIssues"]++
	return s.issues, s.issuesErr
}

func (s *stubAPI) GetIssue(_ context.Context, _ string) (*sentry.Issue, error) {
	s.calls["GetIssue"]++
	return s.issue, s.issueErr
}

func (s *stubAPI) GetLatestEvent(_ context.Context, _ string) (*sentry.Event, error) {
	s.calls["GetLatestEvent"]++
	return s.latestEvent, s.latestEventErr
}

func newTestRegistry(stub *stubAPI) *Registry {
	return NewRegistry(stub, slog.New(slog.DiscardHandler))
}

// resultText extracts the single text content of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

// decodeResult unmarshals a success result's JSON payload.
func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, "expected success result, got: %s", resultText(t, res))
	var out T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

// spanEntry builds a spans entry from raw span JSON.
func spanEntry(t *testing.T, spans string) sentry.Entry {
	t.Helper()
	return sentry.Entry{Type: "spans", Data: json.RawMessage(spans)}
}
