// Package observability provides monitoring and debugging capabilities
// for the agent runtime through metrics, structured logging, distributed
// tracing, and a recorded event timeline.
//
// # Overview
//
// The package covers four concerns:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed request tracing with OpenTelemetry
//  4. Event timeline - a recorded, queryable history of System Event
//     Queue pushes, for post-hoc debugging and replay of a session
//
// # Metrics
//
// Metrics are implemented using the Prometheus client library and track
// LLM request latency and token usage, tool execution performance, error
// rates by component, active session counts, and System Event Queue
// backlog per consumer cursor.
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	start := time.Now()
//	// ... make LLM request ...
//	metrics.RecordLLMRequest("anthropic", "claude-sonnet-4", "success",
//	    time.Since(start).Seconds(), promptTokens, completionTokens)
//
//	start = time.Now()
//	// ... execute tool ...
//	metrics.RecordToolExecution("web_search", "success", time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for automatic
// request/session ID correlation from context, redaction of sensitive
// data (API keys, passwords, tokens), and JSON output in production.
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	ctx = observability.AddSessionID(ctx, sessionID)
//	logger.Info(ctx, "turn completed", "tool_calls", len(calls))
//	logger.Error(ctx, "llm request failed", "error", err, "api_key", apiKey) // redacted
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track a turn across the
// Scheduler, Completion Runner, and History Backend.
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "agentcore",
//	    Endpoint:    "localhost:4317",
//	})
//	defer shutdown(context.Background())
//
// # Event timeline
//
// EventStore records every System Event Queue push so a session's run
// can be replayed after the fact, independent of the queue's own
// consumer cursors:
//
//	store := observability.NewMemoryEventStore(0)
//	events, err := store.GetBySessionID(sessionID)
//
// # Security Considerations
//
// The logging component automatically redacts API keys, passwords,
// secrets, JWTs, and bearer tokens appearing in log values or in map
// fields named password, secret, api_key, token, auth, or private_key.
package observability
