package classifier

// Suggestion sources, cheapest tier first.
const (
	SourceCentroid = "centroid"
	SourceMemory   = "memory_similar"
	SourceLLM      = "llm"
)

// Message is the slim view of an email the classifier works on.
type Message struct {
	ID       string
	ThreadID string
	Subject  string
	Sender   string
	Snippet  string
	LabelIDs []string
}

// Suggestion is a proposed label for a message.
type Suggestion struct {
	MessageID string
	Label     string
	// LabelID is the provider's ID for the label, empty when the label
	// does not exist yet.
	LabelID   string
	Source    string
	Rationale string
	// Scores maps the highest-scoring labels to their centroid similarity
	// as rounded percentages. Empty for pure LLM suggestions.
	Scores map[string]float64
}

// Decision is the user's verdict on a suggestion.
type Decision struct {
	MessageID string
	Approved  bool
	// FinalLabel is the label the verdict refers to. On approval this may
	// differ from the original suggestion if the user edited it.
	FinalLabel string
}
