package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/teemow/labelfewer/internal/classifier"
	"github.com/teemow/labelfewer/internal/embedding"
	"github.com/teemow/labelfewer/internal/instrumentation"
	"github.com/teemow/labelfewer/internal/llm"
	"github.com/teemow/labelfewer/internal/memory"
)

// stackConfig holds the configuration for the classification stack shared by
// the label, feedback and serve commands.
type stackConfig struct {
	// DBPath is the path to the SQLite label memory database.
	DBPath string

	// EmbeddingProvider selects the embedding backend: "ollama", "genai"
	// or "none" for the deterministic fallback only.
	EmbeddingProvider string

	// LLMProvider selects the generation backend: "ollama", "genai" or
	// "none" to disable the LLM tier entirely.
	LLMProvider string

	OllamaEndpoint string
	EmbeddingModel string
	LLMModel       string
	GenAIAPIKey    string

	// ScoreThreshold is the minimum centroid similarity for a suggestion
	// from label memory alone. Zero means the resolver default.
	ScoreThreshold float64
}

// loadStackConfig builds a stackConfig from environment variables. Flags on
// the individual commands override these values.
func loadStackConfig() stackConfig {
	cfg := stackConfig{
		DBPath:            os.Getenv("LABELFEWER_DB_PATH"),
		EmbeddingProvider: os.Getenv("EMBEDDING_PROVIDER"),
		LLMProvider:       os.Getenv("LLM_PROVIDER"),
		OllamaEndpoint:    os.Getenv("OLLAMA_ENDPOINT"),
		EmbeddingModel:    os.Getenv("EMBEDDING_MODEL"),
		LLMModel:          os.Getenv("LLM_MODEL"),
		GenAIAPIKey:       os.Getenv("GENAI_API_KEY"),
	}

	if v := os.Getenv("SCORE_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ScoreThreshold = threshold
		} else {
			slog.Warn("ignoring invalid SCORE_THRESHOLD", "value", v, "error", err)
		}
	}

	// A GenAI key without an explicit provider choice implies GenAI.
	if cfg.EmbeddingProvider == "" && cfg.GenAIAPIKey != "" {
		cfg.EmbeddingProvider = "genai"
	}
	if cfg.LLMProvider == "" && cfg.GenAIAPIKey != "" {
		cfg.LLMProvider = "genai"
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}

	return cfg
}

// defaultDBPath returns the label memory location under the user cache
// directory, falling back to the working directory when none is available.
func defaultDBPath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "labelfewer.db"
	}
	return filepath.Join(cacheDir, "labelfewer", "memory.db")
}

// stack bundles the classification components a command needs.
type stack struct {
	Store     *memory.Store
	Resolver  *classifier.Resolver
	Embedder  *embedding.Service
	Generator llm.Generator
}

// Close releases the stack's resources.
func (s *stack) Close() error {
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}

// buildStack constructs the embedding service, label memory store, LLM
// generator and resolver from configuration. metrics may be nil, in which
// case no instrumentation hooks are installed.
func buildStack(cfg stackConfig, metrics *instrumentation.Metrics) (*stack, error) {
	embedder, err := buildEmbedder(cfg, metrics)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	store, err := memory.NewStore(cfg.DBPath, embedder, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open label memory at %s: %w", cfg.DBPath, err)
	}

	generator, err := buildGenerator(cfg, metrics)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	resolver := classifier.NewResolver(store, generator, nil)
	if cfg.ScoreThreshold > 0 {
		resolver.SetScoreThreshold(cfg.ScoreThreshold)
	}

	return &stack{
		Store:     store,
		Resolver:  resolver,
		Embedder:  embedder,
		Generator: generator,
	}, nil
}

func buildEmbedder(cfg stackConfig, metrics *instrumentation.Metrics) (*embedding.Service, error) {
	var engine embedding.Engine
	if cfg.EmbeddingProvider != "none" {
		engineCfg := embedding.DefaultConfig()
		if cfg.EmbeddingProvider != "" {
			engineCfg.Provider = cfg.EmbeddingProvider
		}
		if cfg.OllamaEndpoint != "" {
			engineCfg.OllamaEndpoint = cfg.OllamaEndpoint
		}
		if cfg.EmbeddingModel != "" {
			engineCfg.OllamaModel = cfg.EmbeddingModel
			engineCfg.GenAIModel = cfg.EmbeddingModel
		}
		engineCfg.GenAIAPIKey = cfg.GenAIAPIKey

		var err error
		engine, err = embedding.NewEngine(engineCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding backend: %w", err)
		}
	}

	embedder := embedding.NewService(engine, embedding.DefaultDimensions, nil)
	if metrics != nil {
		embedder.SetFallbackHook(func() {
			metrics.RecordEmbeddingFallback(context.Background())
		})
	}
	return embedder, nil
}

func buildGenerator(cfg stackConfig, metrics *instrumentation.Metrics) (llm.Generator, error) {
	if cfg.LLMProvider == "none" {
		return nil, nil
	}

	genCfg := llm.DefaultConfig()
	if cfg.LLMProvider != "" {
		genCfg.Provider = cfg.LLMProvider
	}
	if cfg.OllamaEndpoint != "" {
		genCfg.OllamaEndpoint = cfg.OllamaEndpoint
	}
	if cfg.LLMModel != "" {
		genCfg.OllamaModel = cfg.LLMModel
		genCfg.GenAIModel = cfg.LLMModel
	}
	genCfg.GenAIAPIKey = cfg.GenAIAPIKey

	generator, err := llm.NewGenerator(genCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm backend: %w", err)
	}

	if metrics != nil {
		generator = &meteredGenerator{inner: generator, metrics: metrics}
	}
	return generator, nil
}

// meteredGenerator wraps a Generator and feeds the llm_requests_total metric.
type meteredGenerator struct {
	inner   llm.Generator
	metrics *instrumentation.Metrics
}

func (g *meteredGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	answer, err := g.inner.Generate(ctx, prompt)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	g.metrics.RecordLLMRequest(ctx, g.inner.Name(), status)
	return answer, err
}

func (g *meteredGenerator) Name() string {
	return g.inner.Name()
}
