package tools

import (
	"context"

	"github.com/opsline/sentry-mcp/internal/sentry"
)

// API is the slice of the Sentry client the tool handlers depend on.
// Tests substitute a stub; production wires *sentry.Client.
type API interface {
	ListTransactions(ctx context.Context, f sentry.TransactionFilter) ([]sentry.TransactionStats, error)
	ListTransactionEvents(ctx context.Context, transaction string, f sentry.EventFilter) ([]sentry.TransactionEvent, error)
	GetEventDetails(ctx context.Context, eventID string) (*sentry.Event, error)
	ListIssues(ctx context.Context, f sentry.IssueFilter) ([]sentry.Issue, error)
	GetIssue(ctx context.Context, issueID string) (*sentry.Issue, error)
	GetLatestEvent(ctx context.Context, issueID string) (*sentry.Event, error)
}

var _ API = (*sentry.Client)(nil)
