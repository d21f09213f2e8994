package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teemow/labelfewer/internal/embedding"
)

// index is a flat in-memory collection of accepted examples. Recall is a
// brute-force scan, which is fine at label-memory scale (thousands of rows).
type index struct {
	mu       sync.RWMutex
	examples []Example
}

func newIndex() *index {
	return &index{}
}

func (ix *index) replace(examples []Example) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.examples = examples
}

// scored pairs an example with its similarity to a query vector.
type scored struct {
	example Example
	score   float64
}

// topK returns the k examples most similar to query, best first. Ties are
// broken by message ID so results are stable across rebuilds.
func (ix *index) topK(query embedding.Vector, k int) []scored {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]scored, 0, len(ix.examples))
	for _, ex := range ix.examples {
		results = append(results, scored{
			example: ex,
			score:   query.Cosine(ex.vec),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].example.MessageID < results[j].example.MessageID
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// rebuildIndex reloads the accepted-example index from the database.
func (s *Store) rebuildIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, subject, sender, snippet, applied_label, accepted, embedding
		FROM labeled_emails WHERE accepted = 1`)
	if err != nil {
		return fmt.Errorf("failed to load accepted examples: %w", err)
	}
	defer rows.Close()

	examples, err := s.scanExamples(ctx, rows)
	if err != nil {
		return err
	}

	s.index.replace(examples)
	return nil
}

// FindSimilarAccepted returns up to k accepted examples most similar to the
// given vector, most similar first.
func (s *Store) FindSimilarAccepted(ctx context.Context, query embedding.Vector, k int) ([]Example, []float64, error) {
	_ = ctx

	results := s.index.topK(query, k)
	examples := make([]Example, len(results))
	scores := make([]float64, len(results))
	for i, r := range results {
		examples[i] = r.example
		scores[i] = r.score
	}
	return examples, scores, nil
}
