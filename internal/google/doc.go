// Package google provides OAuth2 authentication and token management for
// the Gmail API.
//
// Tokens are stored per account as files in the user cache directory. The
// TokenProvider interface allows other token sources to be plugged in; the
// stdio transport uses the file-based provider.
package google
