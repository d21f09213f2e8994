package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIGenerator produces completions via the Google GenAI API.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a GenAI generation backend.
func NewGenAIGenerator(apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai generation requires an API key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIGenerator{
		client: client,
		model:  model,
	}, nil
}

// Name returns the backend name.
func (g *GenAIGenerator) Name() string {
	return "genai/" + g.model
}

// Generate returns the model's answer for the given prompt.
func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0.1)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("genai generation failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("genai returned empty response")
	}
	return text, nil
}
