// Package memory persists labeling decisions and serves similarity queries
// over them.
//
// Two tables back the package: labeled_emails holds one row per processed
// message (keyed by message ID, updated in place on re-labeling), and
// rejected_labels is an append-only log of suggestions the user turned down.
// Each row stores the embedding of its text alongside the text itself so
// centroid and similarity scans never call the embedding backend again.
//
// The store keeps a flat in-memory index of accepted examples for top-k
// retrieval. The index is rebuilt from the database after every write and on
// open, so queries always see committed state.
package memory
