package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/labelfewer/internal/embedding"
	"github.com/teemow/labelfewer/internal/memory"
)

// fakeMemory gives tests full control over every memory answer.
type fakeMemory struct {
	queryVec  embedding.Vector
	centroids map[string]embedding.Vector
	similar   []memory.Example
	rejected  []string

	upserts    []memory.Example
	rejections []string
	processed  map[string]string
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		queryVec:  embedding.Vector{1, 0},
		centroids: map[string]embedding.Vector{},
		processed: map[string]string{},
	}
}

func (f *fakeMemory) EmbedText(ctx context.Context, subject, sender, snippet string) embedding.Vector {
	return f.queryVec
}

func (f *fakeMemory) LabelCentroids(ctx context.Context) (map[string]embedding.Vector, error) {
	return f.centroids, nil
}

func (f *fakeMemory) FindSimilarAccepted(ctx context.Context, query embedding.Vector, k int) ([]memory.Example, []float64, error) {
	examples := f.similar
	if len(examples) > k {
		examples = examples[:k]
	}
	return examples, make([]float64, len(examples)), nil
}

func (f *fakeMemory) RejectedLabelsForSimilar(ctx context.Context, query embedding.Vector, threshold float64) ([]string, error) {
	return f.rejected, nil
}

func (f *fakeMemory) Upsert(ctx context.Context, ex memory.Example) error {
	f.upserts = append(f.upserts, ex)
	return nil
}

func (f *fakeMemory) RecordRejection(ctx context.Context, ex memory.Example, rejectedLabel string) error {
	f.rejections = append(f.rejections, rejectedLabel)
	return nil
}

func (f *fakeMemory) MarkProcessed(ctx context.Context, messageID, label string) error {
	f.processed[messageID] = label
	return nil
}

// stubGenerator replays canned model answers.
type stubGenerator struct {
	answers []string
	err     error
	calls   int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	answer := s.answers[s.calls]
	if s.calls < len(s.answers)-1 {
		s.calls++
	}
	return answer, nil
}

func (s *stubGenerator) Name() string { return "stub" }

var testMsg = Message{
	ID:      "msg-1",
	Subject: "Invoice #42",
	Sender:  "billing@acme.test",
	Snippet: "Your invoice is attached",
}

func TestClassifyCentroidMatch(t *testing.T) {
	store := newFakeMemory()
	store.centroids["Finance"] = embedding.Vector{1, 0}
	store.centroids["News"] = embedding.Vector{0, 1}

	r := NewResolver(store, nil, nil)
	labels := map[string]string{"Finance": "L1", "News": "L2"}

	s, err := r.Classify(context.Background(), testMsg, labels)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "Finance", s.Label)
	assert.Equal(t, "L1", s.LabelID)
	assert.Equal(t, SourceCentroid, s.Source)
	assert.Contains(t, s.Rationale, "100.0%")
	assert.InDelta(t, 100.0, s.Scores["Finance"], 0.01)
	assert.InDelta(t, 50.0, s.Scores["News"], 0.01)
}

func TestClassifyThresholdIsInclusive(t *testing.T) {
	store := newFakeMemory()
	// Orthogonal centroid: cosine 0 maps to a score of exactly 0.5.
	store.centroids["News"] = embedding.Vector{0, 1}

	r := NewResolver(store, nil, nil)
	r.SetScoreThreshold(0.5)

	s, err := r.Classify(context.Background(), testMsg, map[string]string{"News": "L2"})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "News", s.Label)
	assert.Equal(t, SourceCentroid, s.Source)
}

func TestClassifyCentroidBelowThresholdFallsThrough(t *testing.T) {
	store := newFakeMemory()
	store.centroids["News"] = embedding.Vector{-1, 0} // score 0.0

	r := NewResolver(store, nil, nil)

	s, err := r.Classify(context.Background(), testMsg, map[string]string{"News": "L2"})
	require.NoError(t, err)
	// No similar history and no generator: skipped.
	assert.Nil(t, s)
}

func TestClassifyMajorityVote(t *testing.T) {
	store := newFakeMemory()
	store.similar = []memory.Example{
		{MessageID: "a", Label: "Finance"},
		{MessageID: "b", Label: "Finance"},
		{MessageID: "c", Label: "News"},
	}

	r := NewResolver(store, nil, nil)
	labels := map[string]string{"Finance": "L1", "News": "L2"}

	s, err := r.Classify(context.Background(), testMsg, labels)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "Finance", s.Label)
	assert.Equal(t, SourceMemory, s.Source)
	assert.Contains(t, s.Rationale, "3 similar emails")
}

func TestClassifyMajorityWinnerMustBeProviderLabel(t *testing.T) {
	store := newFakeMemory()
	// The majority label no longer exists at the provider; the vote must
	// not resurrect it.
	store.similar = []memory.Example{
		{MessageID: "a", Label: "Old Label"},
		{MessageID: "b", Label: "Old Label"},
	}

	r := NewResolver(store, nil, nil)

	s, err := r.Classify(context.Background(), testMsg, map[string]string{"Finance": "L1"})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestClassifyMajorityTieBreaksAlphabetically(t *testing.T) {
	store := newFakeMemory()
	store.similar = []memory.Example{
		{MessageID: "a", Label: "News"},
		{MessageID: "b", Label: "Finance"},
	}

	r := NewResolver(store, nil, nil)
	labels := map[string]string{"Finance": "L1", "News": "L2"}

	s, err := r.Classify(context.Background(), testMsg, labels)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Finance", s.Label)
}

func TestClassifyZeroVectorSkipsSimilarityTiers(t *testing.T) {
	store := newFakeMemory()
	store.queryVec = embedding.Vector{0, 0}
	// Both similarity tiers would otherwise resolve: a centroid that scores
	// 0.5 against the zero query, and a clear historical majority.
	store.centroids["Finance"] = embedding.Vector{1, 0}
	store.similar = []memory.Example{
		{MessageID: "a", Label: "Finance"},
		{MessageID: "b", Label: "Finance"},
	}

	r := NewResolver(store, nil, nil)

	s, err := r.Classify(context.Background(), Message{ID: "msg-empty"}, map[string]string{"Finance": "L1"})
	require.NoError(t, err)
	// No embeddable content and no generator: skipped, not an arbitrary
	// centroid or majority match.
	assert.Nil(t, s)
}

func TestClassifyZeroVectorFallsThroughToLLM(t *testing.T) {
	store := newFakeMemory()
	store.queryVec = embedding.Vector{0, 0}
	store.centroids["Finance"] = embedding.Vector{1, 0}
	gen := &stubGenerator{answers: []string{
		"```json\n{\"label\": \"Finance\", \"rationale\": \"Payment receipt\"}\n```",
	}}

	r := NewResolver(store, gen, nil)

	s, err := r.Classify(context.Background(), Message{ID: "msg-empty"}, map[string]string{"Finance": "L1"})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, SourceLLM, s.Source)
	assert.Equal(t, "Finance", s.Label)
}

func TestClassifyLLMFallback(t *testing.T) {
	store := newFakeMemory()
	gen := &stubGenerator{answers: []string{
		"```json\n{\"label\": \"Crypto Transactions ₿\", \"rationale\": \"Exchange confirmation\"}\n```",
	}}

	r := NewResolver(store, gen, nil)

	s, err := r.Classify(context.Background(), testMsg, map[string]string{"Finance": "L1"})
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "Crypto Transactions ₿", s.Label)
	assert.Empty(t, s.LabelID) // new label, no provider ID yet
	assert.Equal(t, SourceLLM, s.Source)
	assert.Equal(t, "Exchange confirmation", s.Rationale)
}

func TestClassifyUnparseableOutputSkips(t *testing.T) {
	store := newFakeMemory()
	gen := &stubGenerator{answers: []string{"I think this email is about invoices."}}

	r := NewResolver(store, gen, nil)

	s, err := r.Classify(context.Background(), testMsg, map[string]string{"Finance": "L1"})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestClassifyGeneratorErrorSkips(t *testing.T) {
	store := newFakeMemory()
	gen := &stubGenerator{err: errors.New("model not loaded")}

	r := NewResolver(store, gen, nil)

	s, err := r.Classify(context.Background(), testMsg, map[string]string{"Finance": "L1"})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestClassifyExcludesRejectedLabels(t *testing.T) {
	store := newFakeMemory()
	store.centroids["Finance"] = embedding.Vector{1, 0}
	store.centroids["News"] = embedding.Vector{0, 1}
	store.rejected = []string{"Finance"}

	r := NewResolver(store, nil, nil)
	labels := map[string]string{"Finance": "L1", "News": "L2"}

	s, err := r.Classify(context.Background(), testMsg, labels)
	require.NoError(t, err)
	require.NotNil(t, s)

	// Finance scores 1.0 but was rejected for similar mail; News wins.
	assert.Equal(t, "News", s.Label)
}

func TestClassifyRetriesWhenModelRepeatsRejectedLabel(t *testing.T) {
	store := newFakeMemory()
	store.rejected = []string{"Spam"}
	gen := &stubGenerator{answers: []string{
		`{"label": "Spam", "rationale": "looks like spam"}`,
		`{"label": "Promotions 🛒", "rationale": "second attempt"}`,
	}}

	r := NewResolver(store, gen, nil)

	s, err := r.Classify(context.Background(), testMsg, map[string]string{})
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "Promotions 🛒", s.Label)
	assert.Equal(t, 1, gen.calls)
}

func TestClassifyExcluding(t *testing.T) {
	store := newFakeMemory()
	store.centroids["Finance"] = embedding.Vector{1, 0}
	store.similar = []memory.Example{
		{MessageID: "a", Label: "Finance"},
	}

	r := NewResolver(store, nil, nil)
	labels := map[string]string{"Finance": "L1"}

	// Without exclusions Finance wins on the centroid.
	s, err := r.Classify(context.Background(), testMsg, labels)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Finance", s.Label)

	// Excluding it removes both the centroid and the vote path.
	s, err = r.ClassifyExcluding(context.Background(), testMsg, labels, []string{"Finance"})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRecordDecisionApproved(t *testing.T) {
	store := newFakeMemory()

	err := RecordDecision(context.Background(), store, nil, testMsg, Decision{
		MessageID:  "msg-1",
		Approved:   true,
		FinalLabel: "Finance",
	})
	require.NoError(t, err)

	require.Len(t, store.upserts, 1)
	assert.Equal(t, "Finance", store.upserts[0].Label)
	assert.True(t, store.upserts[0].Accepted)
	assert.Empty(t, store.rejections)
	assert.Equal(t, "Finance", store.processed["msg-1"])
}

func TestRecordDecisionRejected(t *testing.T) {
	store := newFakeMemory()

	err := RecordDecision(context.Background(), store, nil, testMsg, Decision{
		MessageID:  "msg-1",
		Approved:   false,
		FinalLabel: "Spam",
	})
	require.NoError(t, err)

	assert.Empty(t, store.upserts)
	assert.Equal(t, []string{"Spam"}, store.rejections)
	// The rejected label stays out of the example table; the processed mark
	// records a no-label outcome instead.
	assert.Equal(t, "Uncategorized", store.processed["msg-1"])
}

func TestRecordDecisionRejectionAfterApproval(t *testing.T) {
	store := newFakeMemory()
	ctx := context.Background()

	require.NoError(t, RecordDecision(ctx, store, nil, testMsg, Decision{
		MessageID:  "msg-1",
		Approved:   true,
		FinalLabel: "Finance",
	}))
	require.NoError(t, RecordDecision(ctx, store, nil, testMsg, Decision{
		MessageID:  "msg-1",
		Approved:   false,
		FinalLabel: "Spam",
	}))

	// The earlier approval remains the only example; the rejection is
	// negative signal only.
	require.Len(t, store.upserts, 1)
	assert.Equal(t, "Finance", store.upserts[0].Label)
	assert.Equal(t, []string{"Spam"}, store.rejections)
	assert.NotEqual(t, "Spam", store.processed["msg-1"])
}

func TestRecordDecisionEmptyLabelStillMarksProcessed(t *testing.T) {
	store := newFakeMemory()

	err := RecordDecision(context.Background(), store, nil, testMsg, Decision{
		MessageID: "msg-1",
		Approved:  false,
	})
	require.NoError(t, err)

	assert.Empty(t, store.upserts)
	assert.Empty(t, store.rejections)
	assert.Equal(t, "Uncategorized", store.processed["msg-1"])
}
