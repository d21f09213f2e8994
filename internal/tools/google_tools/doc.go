// Package google_tools provides MCP tools for the Google OAuth authorization
// flow: obtaining the consent URL and exchanging the authorization code for
// a cached token, per account.
package google_tools
