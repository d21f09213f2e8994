package instrumentation

import "strings"

// Cardinality management helpers for metrics and audit logging.
// These functions reduce high-cardinality values to prevent metrics explosion.
//
// # Warning
//
// High cardinality in metrics can cause:
// - Increased memory usage in Prometheus/metrics backends
// - Slower query performance
// - Higher storage costs
//
// Always use these helpers when recording sender identifiers. Label names
// must never be used as metric attributes at all.

// ExtractSenderDomain extracts the domain part from a sender email address.
// This reduces cardinality by using the domain instead of the full address.
//
// Example:
//
//	ExtractSenderDomain("jane@example.com")  // "example.com"
//	ExtractSenderDomain("user@gmail.com")    // "gmail.com"
//	ExtractSenderDomain("invalid")           // "unknown"
//	ExtractSenderDomain("")                  // "unknown"
func ExtractSenderDomain(sender string) string {
	if sender == "" {
		return "unknown"
	}

	// Display-name forms like `Jane Doe <jane@example.com>` carry the
	// address in angle brackets.
	if start := strings.LastIndex(sender, "<"); start >= 0 {
		if end := strings.Index(sender[start:], ">"); end > 0 {
			sender = sender[start+1 : start+end]
		}
	}

	parts := strings.Split(sender, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// Common operation types for Google API metrics.
// Status, decision, and service constants are defined in config.go.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationModify = "modify"
)
