package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	vec []float32
	err error
}

func (s *stubEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubEngine) Name() string { return "stub" }

func TestServiceEmptyTextReturnsZeroVector(t *testing.T) {
	svc := NewService(nil, 8, nil)

	v := svc.Embed(context.Background(), "")

	require.Len(t, v, 8)
	assert.True(t, v.IsZero())
}

func TestServiceFallbackIsDeterministic(t *testing.T) {
	svc := NewService(nil, DefaultDimensions, nil)

	a := svc.Embed(context.Background(), "Invoice #4711 from ACME")
	b := svc.Embed(context.Background(), "Invoice #4711 from ACME")
	c := svc.Embed(context.Background(), "Weekly team sync notes")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.InDelta(t, 1.0, a.Norm(), 1e-6)
	assert.InDelta(t, 1.0, c.Norm(), 1e-6)
}

func TestServiceUsesEngineOutput(t *testing.T) {
	engine := &stubEngine{vec: []float32{3, 4, 0, 0}}
	svc := NewService(engine, 4, nil)

	v := svc.Embed(context.Background(), "some text")

	require.Len(t, v, 4)
	assert.InDelta(t, 1.0, v.Norm(), 1e-6)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
}

func TestServiceFitsEngineDimensions(t *testing.T) {
	// Engine returns more components than configured; the extra ones are
	// truncated before normalization.
	engine := &stubEngine{vec: []float32{1, 0, 0, 0, 9, 9}}
	svc := NewService(engine, 4, nil)

	v := svc.Embed(context.Background(), "some text")

	require.Len(t, v, 4)
	assert.InDelta(t, 1.0, float64(v[0]), 1e-6)
}

func TestServiceFallsBackOnEngineError(t *testing.T) {
	engine := &stubEngine{err: errors.New("connection refused")}
	svc := NewService(engine, DefaultDimensions, nil)

	fallbacks := 0
	svc.SetFallbackHook(func() { fallbacks++ })

	v := svc.Embed(context.Background(), "some text")

	assert.Equal(t, 1, fallbacks)
	assert.InDelta(t, 1.0, v.Norm(), 1e-6)

	// The fallback matches the engine-less path for the same text.
	plain := NewService(nil, DefaultDimensions, nil)
	assert.Equal(t, plain.Embed(context.Background(), "some text"), v)
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{
			name: "ollama provider",
			cfg:  Config{Provider: "ollama"},
		},
		{
			name: "empty provider defaults to ollama",
			cfg:  Config{},
		},
		{
			name:        "genai without API key",
			cfg:         Config{Provider: "genai"},
			expectError: true,
		},
		{
			name:        "unknown provider",
			cfg:         Config{Provider: "word2vec"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, engine)
			}
		})
	}
}
