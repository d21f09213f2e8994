// Package classifier suggests labels for email messages.
//
// Suggestions are resolved in three tiers, cheapest first:
//
//  1. Centroid similarity: the message embedding is scored against each
//     known label's centroid. A score at or above the threshold wins.
//  2. Similar-history vote: the top accepted examples from memory vote by
//     majority. The winner must be an existing provider label.
//  3. Generative fallback: a language model proposes a label, possibly a
//     brand-new one. Unparseable output means the message is skipped.
//
// Labels the user rejected for similar-looking messages are excluded from
// the first two tiers and the model is told to avoid them in the third.
package classifier
