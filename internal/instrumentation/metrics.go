package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrSource    = "source"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrAccount   = "account"
	attrDecision  = "decision"
	attrBackend   = "backend"
	attrResult    = "result"
)

// Metrics provides methods for recording observability metrics.
//
// Label names are never used as metric attributes: they are user-generated
// and unbounded, so only the resolution source, decision and status go on
// the wire.
type Metrics struct {
	// Classification metrics
	classificationsTotal   metric.Int64Counter
	classificationDuration metric.Float64Histogram

	// Feedback and label application metrics
	feedbackTotal      metric.Int64Counter
	labelsAppliedTotal metric.Int64Counter

	// Backend metrics
	embeddingFallbacksTotal metric.Int64Counter
	llmRequestsTotal        metric.Int64Counter
	storeOperationDuration  metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.classificationsTotal, err = meter.Int64Counter(
		"classifications_total",
		metric.WithDescription("Total number of classified messages by resolution source"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifications_total counter: %w", err)
	}

	m.classificationDuration, err = meter.Float64Histogram(
		"classification_duration_seconds",
		metric.WithDescription("Time to resolve a label suggestion for one message"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification_duration_seconds histogram: %w", err)
	}

	m.feedbackTotal, err = meter.Int64Counter(
		"suggestion_feedback_total",
		metric.WithDescription("Total number of user verdicts on suggestions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion_feedback_total counter: %w", err)
	}

	m.labelsAppliedTotal, err = meter.Int64Counter(
		"labels_applied_total",
		metric.WithDescription("Total number of labels applied to messages"),
		metric.WithUnit("{label}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create labels_applied_total counter: %w", err)
	}

	m.embeddingFallbacksTotal, err = meter.Int64Counter(
		"embedding_fallbacks_total",
		metric.WithDescription("Total number of embedding backend failures recovered by the deterministic fallback"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding_fallbacks_total counter: %w", err)
	}

	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of generation requests by backend"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests_total counter: %w", err)
	}

	m.storeOperationDuration, err = meter.Float64Histogram(
		"memory_store_operation_duration_seconds",
		metric.WithDescription("Label memory store operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory_store_operation_duration_seconds histogram: %w", err)
	}

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordClassification records one resolved (or skipped) message.
//
// Parameters:
//   - source: Resolution source (centroid, memory_similar, llm) or "none" for skips
//   - status: Result status ("success", "skipped" or "error")
//   - duration: Time taken to resolve the suggestion
func (m *Metrics) RecordClassification(ctx context.Context, source, status string, duration time.Duration) {
	if m.classificationsTotal == nil || m.classificationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	}

	m.classificationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.classificationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrSource, source),
	))
}

// RecordFeedback records one user verdict.
// Decision should be one of: "approved", "rejected".
func (m *Metrics) RecordFeedback(ctx context.Context, decision string) {
	if m.feedbackTotal == nil {
		return // Instrumentation not initialized
	}

	m.feedbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrDecision, decision),
	))
}

// RecordLabelApplied records a label application. created reports whether
// the label had to be created first.
func (m *Metrics) RecordLabelApplied(ctx context.Context, created bool) {
	if m.labelsAppliedTotal == nil {
		return // Instrumentation not initialized
	}

	result := "existing"
	if created {
		result = "created"
	}
	m.labelsAppliedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordEmbeddingFallback records one recovered embedding backend failure.
func (m *Metrics) RecordEmbeddingFallback(ctx context.Context) {
	if m.embeddingFallbacksTotal == nil {
		return // Instrumentation not initialized
	}

	m.embeddingFallbacksTotal.Add(ctx, 1)
}

// RecordLLMRequest records one generation request.
//
// Parameters:
//   - backend: Backend name (e.g. "ollama/llama3.2")
//   - status: Result status ("success" or "error")
func (m *Metrics) RecordLLMRequest(ctx context.Context, backend, status string) {
	if m.llmRequestsTotal == nil {
		return // Instrumentation not initialized
	}

	m.llmRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrStatus, status),
	))
}

// RecordStoreOperation records a label memory store operation.
// Operation is the store method name (upsert, centroids, similar, ...).
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation string, duration time.Duration) {
	if m.storeOperationDuration == nil {
		return // Instrumentation not initialized
	}

	m.storeOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrOperation, operation),
	))
}

// RecordGoogleAPIOperation records a Google API operation with service,
// operation, status, and duration.
//
// Parameters:
//   - service: Google service name (gmail)
//   - operation: Operation type (list, get, create, update, ...)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocationWithAccount records an MCP tool invocation with account info.
// The account label is only included when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
