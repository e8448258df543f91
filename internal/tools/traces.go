package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opsline/sentry-mcp/internal/sentry"
)

// maxSpans caps how many spans a trace result carries; the slowest
// ones matter, the long tail does not.
const maxSpans = 20

// TraceArgs are the inputs for analyze_transaction_trace.
type TraceArgs struct {
	EventID string `json:"event_id" jsonschema:"Sentry event ID to analyze, from get_slow_transactions or get_route_detailed_traces (required)"`
}

// SpanSummary is one flattened span of a transaction trace.
type SpanSummary struct {
	Op           string  `json:"op"`
	Description  string  `json:"description,omitempty"`
	DurationMS   float64 `json:"duration_ms"`
	SpanID       string  `json:"span_id,omitempty"`
	ParentSpanID string  `json:"parent_span_id,omitempty"`
}

// TraceResult is the flattened trace of one transaction event.
type TraceResult struct {
	EventID         string        `json:"event_id"`
	Transaction     string        `json:"transaction"`
	TotalDurationMS float64       `json:"total_duration_ms"`
	Timestamp       string        `json:"timestamp,omitempty"`
	SpanCount       int           `json:"span_count"`
	Spans           []SpanSummary `json:"spans"`
}

// RouteTracesArgs are the inputs for get_route_detailed_traces.
type RouteTracesArgs struct {
	Route       string  `json:"route" jsonschema:"Route pattern to fetch traces for, e.g. /api/v1/orders (required)"`
	Period      string  `json:"period,omitempty" jsonschema:"Time window to analyze (default 24h)"`
	ThresholdMS float64 `json:"threshold_ms,omitempty" jsonschema:"Minimum event duration in milliseconds to analyze (default 2000)"`
	Limit       int     `json:"limit,omitempty" jsonschema:"Maximum number of traces to analyze (default 5, max 100)"`
}

// RouteTracesResult is the output of get_route_detailed_traces.
type RouteTracesResult struct {
	Route          string        `json:"route"`
	Period         string        `json:"period"`
	ThresholdMS    float64       `json:"threshold_ms"`
	TotalEvents    int           `json:"total_events"`
	SlowEventCount int           `json:"slow_event_count"`
	TracesAnalyzed int           `json:"traces_analyzed"`
	Traces         []TraceResult `json:"traces"`
}

// buildTrace flattens an event's span tree into an ordered sequence,
// slowest first.
func buildTrace(event *sentry.Event) (*TraceResult, error) {
	spans, err := event.Spans()
	if err != nil {
		return nil, err
	}

	summaries := make([]SpanSummary, 0, len(spans))
	for _, span := range spans {
		op := span.Op
		if op == "" {
			op = "unknown"
		}
		summaries = append(summaries, SpanSummary{
			Op:           op,
			Description:  span.Description,
			DurationMS:   round2(span.DurationMS()),
			SpanID:       span.SpanID,
			ParentSpanID: span.ParentSpanID,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].DurationMS > summaries[j].DurationMS
	})

	spanCount := len(summaries)
	if len(summaries) > maxSpans {
		summaries = summaries[:maxSpans]
	}

	transaction := event.Title
	if transaction == "" {
		transaction = event.Transaction
	}
	if transaction == "" {
		transaction = "unknown"
	}

	eventID := event.EventID
	if eventID == "" {
		eventID = event.ID
	}

	return &TraceResult{
		EventID:         eventID,
		Transaction:     transaction,
		TotalDurationMS: round2(event.TotalDurationMS()),
		Timestamp:       event.DateReceived,
		SpanCount:       spanCount,
		Spans:           summaries,
	}, nil
}

func (r *Registry) handleTransactionTrace(ctx context.Context, _ *mcp.CallToolRequest, args TraceArgs) (*mcp.CallToolResult, any, error) {
	const tool = "analyze_transaction_trace"

	if args.EventID == "" {
		return r.errorResult(tool, fmt.Errorf("event_id is required"))
	}

	event, err := r.api.GetEventDetails(ctx, args.EventID)
	if err != nil {
		return r.errorResult(tool, err)
	}

	trace, err := buildTrace(event)
	if err != nil {
		return r.errorResult(tool, err)
	}
	return jsonResult(trace)
}

func (r *Registry) handleRouteTraces(ctx context.Context, _ *mcp.CallToolRequest, args RouteTracesArgs) (*mcp.CallToolResult, any, error) {
	const tool = "get_route_detailed_traces"

	if args.Route == "" {
		return r.errorResult(tool, fmt.Errorf("route is required"))
	}
	period, err := validatePeriod(args.Period)
	if err != nil {
		return r.errorResult(tool, err)
	}
	threshold, err := validateThreshold(args.ThresholdMS)
	if err != nil {
		return r.errorResult(tool, err)
	}
	limit, err := validateLimit(args.Limit, 5)
	if err != nil {
		return r.errorResult(tool, err)
	}

	events, err := r.api.ListTransactionEvents(ctx, args.Route, sentry.EventFilter{Period: period, Limit: limit})
	if err != nil {
		return r.errorResult(tool, err)
	}

	// The discover endpoint reports durations in seconds.
	slow := make([]sentry.TransactionEvent, 0, len(events))
	for _, event := range events {
		if event.Duration*1000 >= threshold {
			slow = append(slow, event)
		}
	}

	traces := make([]TraceResult, 0, len(slow))
	for _, event := range slow {
		if len(traces) == limit {
			break
		}
		if event.ID == "" {
			continue
		}
		detail, err := r.api.GetEventDetails(ctx, event.ID)
		if err != nil {
			r.logger.Warn("skipping trace", "tool", tool, "event_id", event.ID, "error", err)
			continue
		}
		trace, err := buildTrace(detail)
		if err != nil {
			r.logger.Warn("skipping trace", "tool", tool, "event_id", event.ID, "error", err)
			continue
		}
		traces = append(traces, *trace)
	}

	return jsonResult(RouteTracesResult{
		Route:          args.Route,
		Period:         period,
		ThresholdMS:    threshold,
		TotalEvents:    len(events),
		SlowEventCount: len(slow),
		TracesAnalyzed: len(traces),
		Traces:         traces,
	})
}
