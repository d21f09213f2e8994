// Package llm provides text generation for label suggestions.
//
// Two backends are supported: a local Ollama instance (chat endpoint,
// non-streaming) and the Google GenAI API. Both are driven at low
// temperature since the caller wants a short, parseable answer rather than
// prose. Backend selection mirrors the embedding package.
package llm
