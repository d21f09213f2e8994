// Package resources registers MCP resources that expose read-only views of
// the label memory: aggregate statistics and the known label set.
package resources
