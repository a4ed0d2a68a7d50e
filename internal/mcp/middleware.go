package mcp

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mcpRequests counts handled MCP requests. Tool calls are labelled by tool name.
	mcpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partdesk_mcp_requests_total",
			Help: "MCP requests by method, tool and result",
		},
		[]string{"method", "tool", "result"},
	)

	// mcpDuration observes MCP request latency.
	mcpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partdesk_mcp_request_duration_seconds",
			Help:    "MCP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "tool"},
	)
)

// metricsMiddleware records request counts and latency.
func metricsMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			tool := toolName(req)

			result, err := next(ctx, method, req)

			mcpRequests.WithLabelValues(method, tool, resultLabel(result, err)).Inc()
			mcpDuration.WithLabelValues(method, tool).Observe(time.Since(start).Seconds())
			return result, err
		}
	}
}

func toolName(req sdkmcp.Request) string {
	if p, ok := safeParams(req).(*sdkmcp.CallToolParamsRaw); ok && p != nil {
		return p.Name
	}
	return ""
}

func resultLabel(result sdkmcp.Result, err error) string {
	if err != nil {
		return "error"
	}
	if r, ok := result.(*sdkmcp.CallToolResult); ok && r != nil && r.IsError {
		return "tool_error"
	}
	return "ok"
}
