package llm

import (
	"context"
	"fmt"
)

// Generator produces a completion for a prompt.
type Generator interface {
	// Generate returns the model's text answer for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name returns the backend name for logging.
	Name() string
}

// Config holds generation backend configuration.
type Config struct {
	// Provider: "ollama" or "genai"
	Provider string

	// Ollama configuration
	OllamaEndpoint string // Default: "http://localhost:11434"
	OllamaModel    string // Default: "llama3.2"

	// GenAI configuration
	GenAIAPIKey string
	GenAIModel  string // Default: "gemini-2.0-flash"
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:       "ollama",
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "llama3.2",
		GenAIModel:     "gemini-2.0-flash",
	}
}

// NewGenerator creates a generation backend based on configuration.
func NewGenerator(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaGenerator(cfg.OllamaEndpoint, cfg.OllamaModel), nil
	case "genai":
		return NewGenAIGenerator(cfg.GenAIAPIKey, cfg.GenAIModel)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}
}
