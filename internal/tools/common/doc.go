// Package common provides shared helpers for MCP tool handlers: account
// resolution from request arguments and handler wrappers that record
// metrics and audit logs around each tool invocation.
package common
