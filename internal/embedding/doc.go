// Package embedding maps free text to fixed-length unit-normalized vectors
// for similarity comparison.
//
// The Service type wraps a remote embedding backend (Ollama or Google GenAI)
// and guarantees the contract the rest of the application depends on:
//
//   - vectors have a fixed dimension and unit Euclidean norm
//   - empty text maps to the all-zero vector (a "no signal" sentinel that is
//     deliberately not normalized)
//   - embedding is deterministic for a given text and model version
//   - a backend failure degrades to a deterministic pseudo-random vector
//     seeded from a stable hash of the text, so centroid math stays stable
//     across runs even while the backend is down
//
// The fallback vectors are not semantically meaningful; they only keep the
// system running without crashing. Callers must not expect reasonable
// similarity scores between fallback vectors and backend-computed ones.
package embedding
