// Package server provides the runtime context for the labelfewer MCP server.
//
// ServerContext carries the shared dependencies tools need at invocation
// time: per-account Gmail clients (created lazily from cached OAuth tokens),
// the label memory store, the classification resolver, and the metrics and
// audit recorders. It owns a cancellable context used to stop in-flight work
// on shutdown.
//
// MetricsServer exposes Prometheus metrics on a dedicated port, isolated
// from the MCP stdio transport. Health endpoints for liveness and readiness
// probes are registered on the same mux via HealthChecker.
package server
