package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/teemow/labelfewer/internal/embedding"
)

// Accepted examples outweigh merely processed ones when averaging, so a
// label's centroid tracks what the user actually confirmed.
const (
	acceptedWeight  = 5.0
	processedWeight = 1.0
)

// LabelCentroids computes one unit vector per known label as the weighted
// mean of all stored rows carrying that label.
func (s *Store) LabelCentroids(ctx context.Context) (map[string]embedding.Vector, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, subject, sender, snippet, applied_label, accepted, embedding
		FROM labeled_emails
		WHERE applied_label IS NOT NULL AND applied_label != ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labeled emails: %w", err)
	}
	defer rows.Close()

	examples, err := s.scanExamples(ctx, rows)
	if err != nil {
		return nil, err
	}

	vecsByLabel := make(map[string][]embedding.Vector)
	weightsByLabel := make(map[string][]float64)
	for _, ex := range examples {
		w := processedWeight
		if ex.Accepted {
			w = acceptedWeight
		}
		vecsByLabel[ex.Label] = append(vecsByLabel[ex.Label], ex.vec)
		weightsByLabel[ex.Label] = append(weightsByLabel[ex.Label], w)
	}

	centroids := make(map[string]embedding.Vector, len(vecsByLabel))
	for label, vecs := range vecsByLabel {
		mean, err := embedding.WeightedMean(vecs, weightsByLabel[label])
		if err != nil {
			return nil, fmt.Errorf("failed to compute centroid for %q: %w", label, err)
		}
		centroids[label] = mean
	}
	return centroids, nil
}

// KnownLabels returns the sorted set of labels appearing in the memory.
func (s *Store) KnownLabels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT applied_label FROM labeled_emails
		WHERE applied_label IS NOT NULL AND applied_label != ''
		ORDER BY applied_label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query known labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// RejectedLabelsForSimilar returns the labels that were refused for messages
// whose text is at least threshold-similar to the query vector. The full
// rejection log is scanned, so a refusal generalizes to look-alike messages,
// not just the exact one it was recorded for.
func (s *Store) RejectedLabelsForSimilar(ctx context.Context, query embedding.Vector, threshold float64) ([]string, error) {
	rejections, err := s.allRejections(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var labels []string
	for _, r := range rejections {
		if r.Label == "" {
			continue
		}
		if query.Cosine(r.vec) >= threshold && !seen[r.Label] {
			seen[r.Label] = true
			labels = append(labels, r.Label)
		}
	}

	sort.Strings(labels)
	return labels, nil
}

// RejectionsFor returns the rejection records logged for a specific message.
func (s *Store) RejectionsFor(ctx context.Context, messageID string) ([]Rejection, error) {
	rejections, err := s.allRejections(ctx)
	if err != nil {
		return nil, err
	}

	var out []Rejection
	for _, r := range rejections {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) allRejections(ctx context.Context) ([]Rejection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, subject, sender, snippet, rejected_label, embedding, created_at
		FROM rejected_labels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rejections: %w", err)
	}
	defer rows.Close()

	var out []Rejection
	for rows.Next() {
		var (
			r   Rejection
			enc string
		)
		if err := rows.Scan(&r.ID, &r.MessageID, &r.Subject, &r.Sender, &r.Snippet, &r.Label, &enc, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rejection: %w", err)
		}
		vec, err := decodeVector(enc)
		if err != nil {
			return nil, err
		}
		if vec == nil {
			vec = s.EmbedText(ctx, r.Subject, r.Sender, r.Snippet)
		}
		r.vec = vec
		out = append(out, r)
	}
	return out, rows.Err()
}
