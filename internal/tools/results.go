package tools

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// jsonResult renders a reshaped payload as indented JSON text content.
// encoding/json sorts map keys, so identical payloads produce
// byte-identical output.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult converts any failure into a tool error result. Nothing
// from the adapter layer escapes as an unhandled fault; the message
// carries the tool name so the calling assistant can explain it.
func (r *Registry) errorResult(tool string, err error) (*mcp.CallToolResult, any, error) {
	r.logger.Warn("tool call failed", "tool", tool, "error", err)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: %v", tool, err)}},
		IsError: true,
	}, nil, nil
}

// round2 keeps reshaped numbers stable across runs.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
