// Package batch supports MCP tools that operate on several messages per
// call.
//
// It parses message-ID parameters that arrive as a single string, a string
// array, or a JSON-encoded array inside a string, runs the per-message
// operation with partial-failure tolerance, and formats the per-item
// outcomes as a JSON summary.
package batch
