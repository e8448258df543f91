package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opsline/sentry-mcp/internal/sentry"
)

// defaultIssueQuery matches what an on-call engineer looks at first.
const defaultIssueQuery = "is:unresolved issue.priority:[high, medium]"

// RecentIssuesArgs are the inputs for get_recent_issues.
type RecentIssuesArgs struct {
	Period string `json:"period,omitempty" jsonschema:"Time window to search, e.g. 24h, 7d (default 24h)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of issues to return (default 50, max 100)"`
	Query  string `json:"query,omitempty" jsonschema:"Sentry issue search query (default 'is:unresolved issue.priority:[high, medium]')"`
}

// IssueSummary is the reshaped view of one issue.
type IssueSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Culprit   string    `json:"culprit,omitempty"`
	Level     string    `json:"level,omitempty"`
	Status    string    `json:"status,omitempty"`
	Priority  string    `json:"priority,omitempty"`
	Count     string    `json:"count"`
	UserCount int       `json:"user_count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Permalink string    `json:"permalink,omitempty"`
}

// RecentIssuesResult is the output of get_recent_issues.
type RecentIssuesResult struct {
	Period string         `json:"period"`
	Query  string         `json:"query"`
	Total  int            `json:"total"`
	Issues []IssueSummary `json:"issues"`
}

// IssueDetailsArgs are the inputs for get_issue_details.
type IssueDetailsArgs struct {
	IssueID string `json:"issue_id" jsonschema:"Sentry issue ID, from get_recent_issues (required)"`
}

// TagSummary is one aggregated tag on an issue.
type TagSummary struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FrameSummary is one stack frame of the latest event's exception.
type FrameSummary struct {
	File     string `json:"file"`
	Function string `json:"function,omitempty"`
	Line     int    `json:"line"`
	InApp    bool   `json:"in_app"`
}

// ExceptionDetail is one exception from the latest event.
type ExceptionDetail struct {
	Type    string         `json:"type"`
	Value   string         `json:"value,omitempty"`
	Handled *bool          `json:"handled,omitempty"`
	Frames  []FrameSummary `json:"frames,omitempty"`
}

// LatestEventDetail is the reshaped latest event of an issue.
type LatestEventDetail struct {
	EventID    string            `json:"event_id"`
	Timestamp  string            `json:"timestamp,omitempty"`
	Exceptions []ExceptionDetail `json:"exceptions,omitempty"`
}

// IssueDetailsResult is the output of get_issue_details.
type IssueDetailsResult struct {
	IssueSummary
	Platform    string             `json:"platform,omitempty"`
	Type        string             `json:"type,omitempty"`
	Project     string             `json:"project,omitempty"`
	Tags        []TagSummary       `json:"tags,omitempty"`
	LatestEvent *LatestEventDetail `json:"latest_event,omitempty"`
}

// IssuesByRouteArgs are the inputs for get_issues_by_route.
type IssuesByRouteArgs struct {
	Period string `json:"period,omitempty" jsonschema:"Time window to search, e.g. 24h, 7d (default 24h)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of issues to fetch before grouping (default 100, max 100)"`
}

// IssuesByRouteResult is the output of get_issues_by_route. Routes is
// keyed by route; JSON marshaling sorts the keys, keeping output
// deterministic.
type IssuesByRouteResult struct {
	Period      string                    `json:"period"`
	TotalIssues int                       `json:"total_issues"`
	RouteCount  int                       `json:"route_count"`
	Routes      map[string][]IssueSummary `json:"routes"`
}

func summarizeIssue(issue sentry.Issue) IssueSummary {
	return IssueSummary{
		ID:        issue.ID,
		Title:     issue.Title,
		Culprit:   issue.Culprit,
		Level:     issue.Level,
		Status:    issue.Status,
		Priority:  issue.Priority,
		Count:     issue.Count,
		UserCount: issue.UserCount,
		FirstSeen: issue.FirstSeen,
		LastSeen:  issue.LastSeen,
		Permalink: issue.Permalink,
	}
}

func sortByLastSeenDesc(issues []IssueSummary) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].LastSeen.After(issues[j].LastSeen)
	})
}

func (r *Registry) handleRecentIssues(ctx context.Context, _ *mcp.CallToolRequest, args RecentIssuesArgs) (*mcp.CallToolResult, any, error) {
	const tool = "get_recent_issues"

	period, err := validatePeriod(args.Period)
	if err != nil {
		return r.errorResult(tool, err)
	}
	limit, err := validateLimit(args.Limit, 50)
	if err != nil {
		return r.errorResult(tool, err)
	}
	query := args.Query
	if query == "" {
		query = defaultIssueQuery
	}

	issues, err := r.api.ListIssues(ctx, sentry.IssueFilter{Period: period, Limit: limit, Query: query})
	if err != nil {
		return r.errorResult(tool, err)
	}

	summaries := make([]IssueSummary, 0, len(issues))
	for _, issue := range issues {
		summaries = append(summaries, summarizeIssue(issue))
	}
	sortByLastSeenDesc(summaries)
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}

	return jsonResult(RecentIssuesResult{
		Period: period,
		Query:  query,
		Total:  len(issues),
		Issues: summaries,
	})
}

func (r *Registry) handleIssueDetails(ctx context.Context, _ *mcp.CallToolRequest, args IssueDetailsArgs) (*mcp.CallToolResult, any, error) {
	const tool = "get_issue_details"

	if args.IssueID == "" {
		return r.errorResult(tool, fmt.Errorf("issue_id is required"))
	}

	issue, err := r.api.GetIssue(ctx, args.IssueID)
	if err != nil {
		return r.errorResult(tool, err)
	}

	result := IssueDetailsResult{
		IssueSummary: summarizeIssue(*issue),
		Platform:     issue.Platform,
		Type:         issue.Type,
		Project:      issue.Project.Name,
	}
	for _, tag := range issue.Tags {
		result.Tags = append(result.Tags, TagSummary{Key: tag.Key, Value: tag.Value})
	}

	// The issue itself is the answer; a failed latest-event fetch
	// degrades the result instead of failing the call.
	event, err := r.api.GetLatestEvent(ctx, args.IssueID)
	if err != nil {
		r.logger.Warn("latest event unavailable", "tool", tool, "issue_id", args.IssueID, "error", err)
		return jsonResult(result)
	}

	detail := &LatestEventDetail{
		EventID:   event.EventID,
		Timestamp: event.DateCreated,
	}
	excs, err := event.Exceptions()
	if err != nil {
		r.logger.Warn("undecodable exception entry", "tool", tool, "issue_id", args.IssueID, "error", err)
	}
	for _, exc := range excs {
		ed := ExceptionDetail{Type: exc.Type, Value: exc.Value}
		if exc.Mechanism != nil {
			ed.Handled = exc.Mechanism.Handled
		}
		if exc.Stacktrace != nil {
			for _, frame := range exc.Stacktrace.Frames {
				ed.Frames = append(ed.Frames, FrameSummary{
					File:     frame.Filename,
					Function: frame.Function,
					Line:     frame.LineNo,
					InApp:    frame.InApp,
				})
			}
		}
		detail.Exceptions = append(detail.Exceptions, ed)
	}
	result.LatestEvent = detail

	return jsonResult(result)
}

func (r *Registry) handleIssuesByRoute(ctx context.Context, _ *mcp.CallToolRequest, args IssuesByRouteArgs) (*mcp.CallToolResult, any, error) {
	const tool = "get_issues_by_route"

	period, err := validatePeriod(args.Period)
	if err != nil {
		return r.errorResult(tool, err)
	}
	limit, err := validateLimit(args.Limit, 100)
	if err != nil {
		return r.errorResult(tool, err)
	}

	issues, err := r.api.ListIssues(ctx, sentry.IssueFilter{Period: period, Limit: limit, Query: "is:unresolved"})
	if err != nil {
		return r.errorResult(tool, err)
	}

	// The list payload carries no per-issue tag map; the culprit is
	// Sentry's transaction/route for request errors.
	routes := make(map[string][]IssueSummary)
	for _, issue := range issues {
		route := issue.Culprit
		if route == "" {
			route = "unknown"
		}
		routes[route] = append(routes[route], summarizeIssue(issue))
	}
	for route := range routes {
		sortByLastSeenDesc(routes[route])
	}

	return jsonResult(IssuesByRouteResult{
		Period:      period,
		TotalIssues: len(issues),
		RouteCount:  len(routes),
		Routes:      routes,
	})
}
