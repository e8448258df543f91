// Package tools adapts Sentry API calls into MCP tools. Each handler
// validates its arguments before touching the API, reshapes the
// upstream payload into a stable JSON view, and converts every failure
// into a tool error result rather than a fault.
package tools

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Registry binds the tool handlers to a Sentry API implementation.
type Registry struct {
	api    API
	logger *slog.Logger
}

// NewRegistry creates a tool registry backed by the given API.
func NewRegistry(api API, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{api: api, logger: logger.WithGroup("tools")}
}

// readOnly marks every tool here: none of them mutates Sentry state.
var readOnly = &mcp.ToolAnnotations{ReadOnlyHint: true}

// Register adds all tools to the server. Tool names are the wire
// contract; clients bind to them by string identity.
func (r *Registry) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "get_slow_transactions",
		Description: "Get slow API routes with performance statistics (p50/p95 in milliseconds, " +
			"throughput, failure rate). Useful for identifying bottlenecks.",
		Annotations: readOnly,
	}, r.handleSlowTransactions)

	mcp.AddTool(server, &mcp.Tool{
		Name: "analyze_transaction_trace",
		Description: "Deep dive into a specific transaction event: all recorded operations (spans) " +
			"ordered by duration, to see where time is spent. Requires an event_id.",
		Annotations: readOnly,
	}, r.handleTransactionTrace)

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_performance_overview",
		Description: "Overall performance metrics for every API route in a time window: " +
			"p50/p95 response times in milliseconds, throughput, failure rate.",
		Annotations: readOnly,
	}, r.handlePerformanceOverview)

	mcp.AddTool(server, &mcp.Tool{
		Name: "compare_performance",
		Description: "Compare aggregate performance between two time windows and report " +
			"per-metric delta and percent change.",
		Annotations: readOnly,
	}, r.handleComparePerformance)

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_recent_issues",
		Description: "Recent errors and exceptions, sorted by last occurrence. Defaults to " +
			"unresolved issues with high or medium priority.",
		Annotations: readOnly,
	}, r.handleRecentIssues)

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_issue_details",
		Description: "Detailed information about one issue including tags and the latest " +
			"event's exceptions and stack frames. Requires an issue_id.",
		Annotations: readOnly,
	}, r.handleIssueDetails)

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_issues_by_route",
		Description: "Recent unresolved issues grouped by the route/transaction they " +
			"occurred on, each group ordered by last occurrence.",
		Annotations: readOnly,
	}, r.handleIssuesByRoute)

	mcp.AddTool(server, &mcp.Tool{
		Name: "analyze_route_performance",
		Description: "Performance statistics for a single API route: p50/p95, throughput, " +
			"failure rate. Requires a route pattern.",
		Annotations: readOnly,
	}, r.handleRoutePerformance)

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_route_detailed_traces",
		Description: "Detailed traces with all spans for slow events of a specific route: " +
			"shows exactly where time is spent, including database queries and external calls.",
		Annotations: readOnly,
	}, r.handleRouteTraces)

	r.logger.Debug("registered tools", "count", 9)
}
