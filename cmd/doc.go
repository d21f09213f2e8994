// Package cmd implements the command-line interface for labelfewer.
//
// This package provides the following commands:
//   - label: Suggest (and optionally apply) labels for unread inbox messages
//   - feedback: Record a verdict on a suggested label
//   - auth: Authorize Gmail access for an account
//   - serve: Start the MCP server to provide labeling tools for AI assistants
//   - version: Display version information
//
// The label command is the default command when no subcommand is specified.
package cmd
