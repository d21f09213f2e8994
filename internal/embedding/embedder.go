package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/teemow/labelfewer/internal/logging"
)

// DefaultDimensions matches the all-minilm embedding model served by Ollama.
const DefaultDimensions = 384

// Engine is a remote embedding backend.
type Engine interface {
	// Embed generates a raw (not necessarily normalized) embedding for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the engine name for logging.
	Name() string
}

// Embedder is the interface the rest of the application consumes.
// Implementations never fail: backend errors are recovered locally.
type Embedder interface {
	// Embed maps text to a unit-normalized vector of Dimensions() length.
	// Empty text maps to the all-zero vector.
	Embed(ctx context.Context, text string) Vector

	// Dimensions returns the fixed vector length.
	Dimensions() int
}

// Config holds embedding backend configuration.
type Config struct {
	// Provider: "ollama" or "genai"
	Provider string

	// Dimensions of the produced vectors. Backend output is truncated or
	// zero-padded to this length before normalization.
	Dimensions int

	// Ollama configuration
	OllamaEndpoint string // Default: "http://localhost:11434"
	OllamaModel    string // Default: "all-minilm"

	// GenAI configuration
	GenAIAPIKey string
	GenAIModel  string // Default: "gemini-embedding-001"
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:       "ollama",
		Dimensions:     DefaultDimensions,
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "all-minilm",
		GenAIModel:     "gemini-embedding-001",
	}
}

// NewEngine creates an embedding backend based on configuration.
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel), nil
	case "genai":
		return NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}
}

// Service implements Embedder on top of an optional Engine with a
// deterministic hash-seeded fallback.
type Service struct {
	engine Engine // nil means fallback-only
	dim    int
	logger *slog.Logger

	// onFallback, if set, is invoked once per recovered backend failure.
	// Used to feed the embedding_fallbacks_total metric.
	onFallback func()
}

// NewService creates an embedding service. engine may be nil, in which case
// every embedding is produced by the deterministic fallback.
func NewService(engine Engine, dim int, logger *slog.Logger) *Service {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine: engine,
		dim:    dim,
		logger: logging.WithOperation(logger, "embedding.embed"),
	}
}

// SetFallbackHook registers a callback invoked whenever a backend failure is
// recovered via the deterministic fallback.
func (s *Service) SetFallbackHook(fn func()) {
	s.onFallback = fn
}

// Dimensions returns the fixed vector length.
func (s *Service) Dimensions() int {
	return s.dim
}

// Embed maps text to a unit vector of the configured dimension.
// Empty text maps to the all-zero vector; that sentinel is intentionally not
// normalized and carries no direction.
func (s *Service) Embed(ctx context.Context, text string) Vector {
	if text == "" {
		return make(Vector, s.dim)
	}

	if s.engine != nil {
		raw, err := s.engine.Embed(ctx, text)
		if err == nil && len(raw) > 0 {
			return s.fit(raw).Normalized()
		}
		if err != nil {
			s.logger.Warn("embedding backend failed, using deterministic fallback",
				logging.Err(err))
		}
		if s.onFallback != nil {
			s.onFallback()
		}
	}

	return fallbackVector(text, s.dim)
}

// fit truncates or zero-pads raw to the configured dimension.
func (s *Service) fit(raw []float32) Vector {
	if len(raw) == s.dim {
		return Vector(raw)
	}
	out := make(Vector, s.dim)
	copy(out, raw)
	return out
}

// fallbackVector produces a unit vector fully determined by text. The seed is
// derived from a stable hash so the same text yields the same vector across
// processes and runs.
func fallbackVector(text string, dim int) Vector {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))

	rng := rand.New(rand.NewSource(seed))
	vec := make(Vector, dim)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return vec.Normalized()
}
