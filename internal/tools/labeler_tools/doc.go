// Package labeler_tools provides the MCP tools for email classification:
// suggesting labels for unread messages, re-suggesting after a rejection,
// recording user decisions into label memory, and listing the labels the
// labeler knows about.
//
// Classification is tiered. Centroid similarity against label memory is
// tried first, then a majority vote over the most similar accepted
// examples, then an LLM fallback. Suggestions are never applied to Gmail
// unless the server was started with label application enabled, and even
// then only when a decision approves them.
package labeler_tools
