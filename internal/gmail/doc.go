// Package gmail wraps the Gmail API for the labeling workflow.
//
// The client exposes the small surface the labeler needs: listing custom
// labels, fetching unread messages as slim metadata views, creating labels
// on demand and applying them to messages. Authentication runs through the
// google package; one client serves one account.
package gmail
