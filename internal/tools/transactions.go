package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opsline/sentry-mcp/internal/sentry"
)

// RouteStats is the reshaped per-route performance record. All
// durations are milliseconds; the failure rate is a percentage.
type RouteStats struct {
	Route          string  `json:"route"`
	HTTPMethod     string  `json:"http_method,omitempty"`
	Op             string  `json:"transaction_op,omitempty"`
	P50MS          float64 `json:"p50_ms"`
	P95MS          float64 `json:"p95_ms"`
	TPM            float64 `json:"tpm"`
	FailureRatePct float64 `json:"failure_rate_pct"`
}

// SlowTransactionsArgs are the inputs for get_slow_transactions.
type SlowTransactionsArgs struct {
	Period      string  `json:"period,omitempty" jsonschema:"Time window to analyze, e.g. 24h, 7d, 14d (default 24h)"`
	ThresholdMS float64 `json:"threshold_ms,omitempty" jsonschema:"Minimum p95 duration in milliseconds to consider a route slow (default 2000)"`
	Limit       int     `json:"limit,omitempty" jsonschema:"Maximum number of routes to return (default 10, max 100)"`
}

// SlowTransactionsResult is the output of get_slow_transactions.
type SlowTransactionsResult struct {
	Period            string       `json:"period"`
	ThresholdMS       float64      `json:"threshold_ms"`
	TotalTransactions int          `json:"total_transactions"`
	TotalRoutes       int          `json:"total_routes"`
	SlowRouteCount    int          `json:"slow_route_count"`
	SlowRoutes        []RouteStats `json:"slow_routes"`
}

// PerformanceOverviewArgs are the inputs for get_performance_overview.
type PerformanceOverviewArgs struct {
	Period string `json:"period,omitempty" jsonschema:"Time window to analyze, e.g. 24h, 7d, 14d (default 24h)"`
}

// PerformanceOverviewResult is the output of get_performance_overview.
type PerformanceOverviewResult struct {
	Period            string       `json:"period"`
	TotalTransactions int          `json:"total_transactions"`
	TotalRoutes       int          `json:"total_routes"`
	Routes            []RouteStats `json:"routes"`
}

// ComparePerformanceArgs are the inputs for compare_performance.
type ComparePerformanceArgs struct {
	PeriodA string `json:"period_a" jsonschema:"Baseline time window, e.g. 7d (required)"`
	PeriodB string `json:"period_b" jsonschema:"Comparison time window, e.g. 24h (required)"`
}

// MetricDelta is one metric's movement between two windows.
type MetricDelta struct {
	Metric        string  `json:"metric"`
	WindowA       float64 `json:"window_a"`
	WindowB       float64 `json:"window_b"`
	Delta         float64 `json:"delta"`
	PercentChange float64 `json:"percent_change"`
}

// ComparePerformanceResult is the output of compare_performance.
type ComparePerformanceResult struct {
	PeriodA string        `json:"period_a"`
	PeriodB string        `json:"period_b"`
	Metrics []MetricDelta `json:"metrics"`
}

// RoutePerformanceArgs are the inputs for analyze_route_performance.
type RoutePerformanceArgs struct {
	Route  string `json:"route" jsonschema:"Route pattern to analyze, e.g. /api/v1/orders (required)"`
	Period string `json:"period,omitempty" jsonschema:"Time window to analyze (default 24h)"`
}

// RoutePerformanceResult is the output of analyze_route_performance.
type RoutePerformanceResult struct {
	Period string     `json:"period"`
	Stats  RouteStats `json:"stats"`
}

// collapseRoutes reshapes raw transaction stats into one record per
// route, keeping the first occurrence (rows arrive sorted by the
// requested key). Failure rate converts from ratio to percent.
func collapseRoutes(stats []sentry.TransactionStats) []RouteStats {
	seen := make(map[string]bool, len(stats))
	routes := make([]RouteStats, 0, len(stats))
	for _, tx := range stats {
		route := tx.Transaction
		if route == "" {
			route = "unknown"
		}
		if seen[route] {
			continue
		}
		seen[route] = true
		routes = append(routes, RouteStats{
			Route:          route,
			HTTPMethod:     tx.HTTPMethod,
			Op:             tx.Op,
			P50MS:          round2(tx.P50),
			P95MS:          round2(tx.P95),
			TPM:            round2(tx.TPM),
			FailureRatePct: round2(tx.FailureRate * 100),
		})
	}
	return routes
}

func sortByP95Desc(routes []RouteStats) {
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].P95MS > routes[j].P95MS
	})
}

func (r *Registry) handleSlowTransactions(ctx context.Context, _ *mcp.CallToolRequest, args SlowTransactionsArgs) (*mcp.CallToolResult, any, error) {
	const tool = "get_slow_transactions"

	period, err := validatePeriod(args.Period)
	if err != nil {
		return r.errorResult(tool, err)
	}
	threshold, err := validateThreshold(args.ThresholdMS)
	if err != nil {
		return r.errorResult(tool, err)
	}
	limit, err := validateLimit(args.Limit, 10)
	if err != nil {
		return r.errorResult(tool, err)
	}

	stats, err := r.api.ListTransactions(ctx, sentry.TransactionFilter{Period: period})
	if err != nil {
		return r.errorResult(tool, err)
	}

	routes := collapseRoutes(stats)
	slow := make([]RouteStats, 0, len(routes))
	for _, route := range routes {
		if route.P95MS >= threshold {
			slow = append(slow, route)
		}
	}
	sortByP95Desc(slow)

	result := SlowTransactionsResult{
		Period:            period,
		ThresholdMS:       threshold,
		TotalTransactions: len(stats),
		TotalRoutes:       len(routes),
		SlowRouteCount:    len(slow),
		SlowRoutes:        slow,
	}
	if len(result.SlowRoutes) > limit {
		result.SlowRoutes = result.SlowRoutes[:limit]
	}
	return jsonResult(result)
}

func (r *Registry) handlePerformanceOverview(ctx context.Context, _ *mcp.CallToolRequest, args PerformanceOverviewArgs) (*mcp.CallToolResult, any, error) {
	const tool = "get_performance_overview"

	period, err := validatePeriod(args.Period)
	if err != nil {
		return r.errorResult(tool, err)
	}

	stats, err := r.api.ListTransactions(ctx, sentry.TransactionFilter{Period: period})
	if err != nil {
		return r.errorResult(tool, err)
	}

	routes := collapseRoutes(stats)
	sortByP95Desc(routes)

	return jsonResult(PerformanceOverviewResult{
		Period:            period,
		TotalTransactions: len(stats),
		TotalRoutes:       len(routes),
		Routes:            routes,
	})
}

// aggregate collapses a window's routes into a single set of metrics:
// p50/p95/failure-rate are arithmetic means across routes, throughput
// is summed.
func aggregate(routes []RouteStats) map[string]float64 {
	agg := map[string]float64{
		"p50_ms": 0, "p95_ms": 0, "tpm": 0, "failure_rate_pct": 0,
	}
	if len(routes) == 0 {
		return agg
	}
	for _, route := range routes {
		agg["p50_ms"] += route.P50MS
		agg["p95_ms"] += route.P95MS
		agg["tpm"] += route.TPM
		agg["failure_rate_pct"] += route.FailureRatePct
	}
	n := float64(len(routes))
	agg["p50_ms"] = round2(agg["p50_ms"] / n)
	agg["p95_ms"] = round2(agg["p95_ms"] / n)
	agg["tpm"] = round2(agg["tpm"])
	agg["failure_rate_pct"] = round2(agg["failure_rate_pct"] / n)
	return agg
}

// compareMetricOrder fixes the metric sequence so repeated calls yield
// byte-identical output.
var compareMetricOrder = []string{"p50_ms", "p95_ms", "tpm", "failure_rate_pct"}

func (r *Registry) handleComparePerformance(ctx context.Context, _ *mcp.CallToolRequest, args ComparePerformanceArgs) (*mcp.CallToolResult, any, error) {
	const tool = "compare_performance"

	if args.PeriodA == "" {
		return r.errorResult(tool, fmt.Errorf("period_a is required"))
	}
	if args.PeriodB == "" {
		return r.errorResult(tool, fmt.Errorf("period_b is required"))
	}
	periodA, err := validatePeriod(args.PeriodA)
	if err != nil {
		return r.errorResult(tool, err)
	}
	periodB, err := validatePeriod(args.PeriodB)
	if err != nil {
		return r.errorResult(tool, err)
	}

	statsA, err := r.api.ListTransactions(ctx, sentry.TransactionFilter{Period: periodA})
	if err != nil {
		return r.errorResult(tool, fmt.Errorf("window %s: %w", periodA, err))
	}
	statsB, err := r.api.ListTransactions(ctx, sentry.TransactionFilter{Period: periodB})
	if err != nil {
		return r.errorResult(tool, fmt.Errorf("window %s: %w", periodB, err))
	}

	aggA := aggregate(collapseRoutes(statsA))
	aggB := aggregate(collapseRoutes(statsB))

	metrics := make([]MetricDelta, 0, len(compareMetricOrder))
	for _, name := range compareMetricOrder {
		a, b := aggA[name], aggB[name]
		delta := round2(b - a)
		pct := 0.0
		if a != 0 {
			pct = round2(delta / a * 100)
		}
		metrics = append(metrics, MetricDelta{
			Metric:        name,
			WindowA:       a,
			WindowB:       b,
			Delta:         delta,
			PercentChange: pct,
		})
	}

	return jsonResult(ComparePerformanceResult{
		PeriodA: periodA,
		PeriodB: periodB,
		Metrics: metrics,
	})
}

func (r *Registry) handleRoutePerformance(ctx context.Context, _ *mcp.CallToolRequest, args RoutePerformanceArgs) (*mcp.CallToolResult, any, error) {
	const tool = "analyze_route_performance"

	if args.Route == "" {
		return r.errorResult(tool, fmt.Errorf("route is required"))
	}
	period, err := validatePeriod(args.Period)
	if err != nil {
		return r.errorResult(tool, err)
	}

	stats, err := r.api.ListTransactions(ctx, sentry.TransactionFilter{Period: period})
	if err != nil {
		return r.errorResult(tool, err)
	}

	for _, route := range collapseRoutes(stats) {
		if route.Route == args.Route {
			return jsonResult(RoutePerformanceResult{Period: period, Stats: route})
		}
	}
	return r.errorResult(tool, fmt.Errorf("route %q not found in period %s", args.Route, period))
}
