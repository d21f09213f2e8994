// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the labelfewer MCP server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for classification, feedback, and Google API calls
//   - Distributed tracing for classification flows and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Classification Metrics:
//   - classifications_total: Counter of classification attempts by source and status
//   - classification_duration_seconds: Histogram of end-to-end classification durations
//   - suggestion_feedback_total: Counter of recorded decisions by decision (approved/rejected)
//   - labels_applied_total: Counter of labels applied by result (created/existing)
//
// Backend Metrics:
//   - embedding_fallbacks_total: Counter of deterministic embedding fallbacks
//   - llm_requests_total: Counter of LLM generation requests by backend and status
//   - memory_store_operation_duration_seconds: Histogram of label memory store operations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// Label names are user-generated and unbounded, so they are never used as
// metric attribute values. See cardinality.go for the helpers that keep
// attribute cardinality in check.
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - Message classification (labeler.classify)
//   - MCP tool invocations (tool.<name>)
//   - Google API calls (google.<service>.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: labelfewer)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "labelfewer",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record a classification outcome
//	recorder.RecordClassification(ctx, "centroid", "success", time.Since(start))
//
//	// Record a Google API operation
//	recorder.RecordGoogleAPIOperation(ctx, "gmail", "list", "success", time.Since(start))
//
//	// Record an MCP tool invocation
//	recorder.RecordToolInvocation(ctx, "labeler_classify_inbox", "success", time.Since(start))
package instrumentation
