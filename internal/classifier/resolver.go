package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/teemow/labelfewer/internal/embedding"
	"github.com/teemow/labelfewer/internal/llm"
	"github.com/teemow/labelfewer/internal/logging"
	"github.com/teemow/labelfewer/internal/memory"
)

const (
	// DefaultScoreThreshold is the minimum mapped centroid score for a
	// tier-1 match. Scores are mapped from cosine [-1,1] to [0,1].
	DefaultScoreThreshold = 0.40

	// similarK is how many accepted examples vote in tier 2.
	similarK = 5

	// rejectedSimilarityThreshold is the minimum cosine similarity for a
	// logged rejection to apply to a new message.
	rejectedSimilarityThreshold = 0.7

	// scoreMapSize caps how many labels the suggestion's score map carries.
	scoreMapSize = 10
)

// Memory is the slice of the label store the resolver needs.
type Memory interface {
	EmbedText(ctx context.Context, subject, sender, snippet string) embedding.Vector
	LabelCentroids(ctx context.Context) (map[string]embedding.Vector, error)
	FindSimilarAccepted(ctx context.Context, query embedding.Vector, k int) ([]memory.Example, []float64, error)
	RejectedLabelsForSimilar(ctx context.Context, query embedding.Vector, threshold float64) ([]string, error)
	Upsert(ctx context.Context, ex memory.Example) error
	RecordRejection(ctx context.Context, ex memory.Example, rejectedLabel string) error
	MarkProcessed(ctx context.Context, messageID, label string) error
}

// Resolver suggests labels for messages using memory and a generative
// fallback.
type Resolver struct {
	store     Memory
	generator llm.Generator
	logger    *slog.Logger
	threshold float64
}

// NewResolver creates a resolver. generator may be nil, in which case the
// third tier is disabled and unresolved messages are skipped.
func NewResolver(store Memory, generator llm.Generator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:     store,
		generator: generator,
		logger:    logging.WithOperation(logger, "classifier.resolve"),
		threshold: DefaultScoreThreshold,
	}
}

// SetScoreThreshold overrides the tier-1 score threshold.
func (r *Resolver) SetScoreThreshold(threshold float64) {
	r.threshold = threshold
}

// Classify suggests a label for msg. providerLabels maps existing label
// names to their provider IDs. A nil suggestion with a nil error means the
// message could not be classified and should be skipped.
func (r *Resolver) Classify(ctx context.Context, msg Message, providerLabels map[string]string) (*Suggestion, error) {
	return r.classify(ctx, msg, providerLabels, nil)
}

// ClassifyExcluding behaves like Classify but additionally rules out the
// given labels, typically ones the user just turned down.
func (r *Resolver) ClassifyExcluding(ctx context.Context, msg Message, providerLabels map[string]string, excluded []string) (*Suggestion, error) {
	return r.classify(ctx, msg, providerLabels, excluded)
}

func (r *Resolver) classify(ctx context.Context, msg Message, providerLabels map[string]string, extraExcluded []string) (*Suggestion, error) {
	query := r.store.EmbedText(ctx, msg.Subject, msg.Sender, msg.Snippet)

	rejected, err := r.store.RejectedLabelsForSimilar(ctx, query, rejectedSimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to look up rejected labels: %w", err)
	}

	excluded := make(map[string]bool, len(rejected)+len(extraExcluded))
	for _, l := range rejected {
		excluded[l] = true
	}
	for _, l := range extraExcluded {
		excluded[l] = true
	}

	if len(excluded) > 0 {
		r.logger.Debug("excluding labels for message",
			logging.MessageID(msg.ID),
			slog.Int("excluded_count", len(excluded)))
	}

	// An all-zero query means the message had no embeddable text, so the
	// similarity tiers have no signal to rank on. Go straight to the
	// generative tier.
	if query.IsZero() {
		r.logger.Info("no embeddable content, skipping similarity tiers",
			logging.MessageID(msg.ID))
		return r.generate(ctx, msg, providerLabels, nil, excluded)
	}

	// Tier 1: centroid similarity against existing labels.
	scores, err := r.centroidScores(ctx, providerLabels, query, excluded)
	if err != nil {
		return nil, err
	}
	if label, score, ok := bestScore(scores, r.threshold); ok {
		r.logger.Info("centroid match",
			logging.MessageID(msg.ID),
			logging.Label(label),
			logging.Score(score),
			logging.Source(SourceCentroid))
		return &Suggestion{
			MessageID: msg.ID,
			Label:     label,
			LabelID:   providerLabels[label],
			Source:    SourceCentroid,
			Rationale: fmt.Sprintf("Best match among existing labels; score=%.1f%%", score*100),
			Scores:    topScores(scores, scoreMapSize),
		}, nil
	}

	// Tier 2: majority vote over the most similar accepted examples.
	examples, _, err := r.store.FindSimilarAccepted(ctx, query, similarK)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar examples: %w", err)
	}
	if label, ok := majorityLabel(examples, providerLabels, excluded); ok {
		r.logger.Info("similar-history majority",
			logging.MessageID(msg.ID),
			logging.Label(label),
			logging.Source(SourceMemory))
		return &Suggestion{
			MessageID: msg.ID,
			Label:     label,
			LabelID:   providerLabels[label],
			Source:    SourceMemory,
			Rationale: fmt.Sprintf("Based on %d similar emails in memory", len(examples)),
			Scores:    topScores(scores, scoreMapSize),
		}, nil
	}

	// Tier 3: ask the model. May propose a brand-new label.
	return r.generate(ctx, msg, providerLabels, examples, excluded)
}

func (r *Resolver) centroidScores(ctx context.Context, providerLabels map[string]string, query embedding.Vector, excluded map[string]bool) (map[string]float64, error) {
	centroids, err := r.store.LabelCentroids(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute label centroids: %w", err)
	}

	scores := make(map[string]float64)
	for label := range providerLabels {
		if excluded[label] {
			continue
		}
		centroid, ok := centroids[label]
		if !ok {
			continue
		}
		// Map cosine from [-1,1] to [0,1].
		scores[label] = (query.Cosine(centroid) + 1.0) / 2.0
	}
	return scores, nil
}

// bestScore returns the highest-scoring label at or above threshold.
// Labels are visited in sorted order with strictly-greater replacement, so
// ties resolve to the alphabetically first name.
func bestScore(scores map[string]float64, threshold float64) (string, float64, bool) {
	labels := make([]string, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var (
		bestLabel string
		best      = math.Inf(-1)
	)
	for _, label := range labels {
		if scores[label] > best {
			bestLabel = label
			best = scores[label]
		}
	}
	if bestLabel == "" || best < threshold {
		return "", 0, false
	}
	return bestLabel, best, true
}

// majorityLabel picks the most common label among examples. The winner must
// be an existing provider label and not excluded. Ties resolve to the
// alphabetically first name.
func majorityLabel(examples []memory.Example, providerLabels map[string]string, excluded map[string]bool) (string, bool) {
	counts := make(map[string]int)
	for _, ex := range examples {
		if ex.Label == "" || excluded[ex.Label] {
			continue
		}
		counts[ex.Label]++
	}
	if len(counts) == 0 {
		return "", false
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	winner := labels[0]
	if _, ok := providerLabels[winner]; !ok {
		return "", false
	}
	return winner, true
}

// topScores returns the n highest scores as rounded percentages.
func topScores(scores map[string]float64, n int) map[string]float64 {
	if len(scores) == 0 {
		return map[string]float64{}
	}

	labels := make([]string, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if scores[labels[i]] != scores[labels[j]] {
			return scores[labels[i]] > scores[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if len(labels) > n {
		labels = labels[:n]
	}

	out := make(map[string]float64, len(labels))
	for _, label := range labels {
		out[label] = math.Round(scores[label]*1000) / 10
	}
	return out
}

func (r *Resolver) generate(ctx context.Context, msg Message, providerLabels map[string]string, examples []memory.Example, excluded map[string]bool) (*Suggestion, error) {
	if r.generator == nil {
		r.logger.Info("no generator configured, skipping message",
			logging.MessageID(msg.ID),
			logging.Status(logging.StatusSkipped))
		return nil, nil
	}

	labelNames := sortedLabelNames(providerLabels)
	excludedNames := sortedSetNames(excluded)

	prompt := buildPrompt(msg, labelNames, examples, excludedNames, false)
	raw, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("generation failed, skipping message",
			logging.MessageID(msg.ID),
			logging.Err(err))
		return nil, nil
	}

	label, rationale, ok := parseSuggestion(raw)
	if !ok {
		r.logger.Warn("could not extract label from model output, skipping message",
			logging.MessageID(msg.ID),
			logging.Status(logging.StatusSkipped))
		return nil, nil
	}

	// One retry with an amplified instruction when the model repeats a
	// label the user already refused. The retry's answer stands either way.
	if excluded[label] {
		r.logger.Info("model repeated a rejected label, retrying",
			logging.MessageID(msg.ID),
			logging.Label(label))
		raw, err = r.generator.Generate(ctx, buildPrompt(msg, labelNames, examples, excludedNames, true))
		if err != nil {
			r.logger.Warn("retry generation failed, skipping message",
				logging.MessageID(msg.ID),
				logging.Err(err))
			return nil, nil
		}
		retryLabel, retryRationale, retryOK := parseSuggestion(raw)
		if !retryOK {
			return nil, nil
		}
		label, rationale = retryLabel, retryRationale
	}

	r.logger.Info("model suggestion",
		logging.MessageID(msg.ID),
		logging.Label(label),
		logging.Source(SourceLLM))

	return &Suggestion{
		MessageID: msg.ID,
		Label:     label,
		LabelID:   providerLabels[label],
		Source:    SourceLLM,
		Rationale: rationale,
		Scores:    map[string]float64{},
	}, nil
}

func sortedLabelNames(providerLabels map[string]string) []string {
	names := make([]string, 0, len(providerLabels))
	for name := range providerLabels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedSetNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
