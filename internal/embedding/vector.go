package embedding

import (
	"fmt"
	"math"
)

// Vector is a fixed-length embedding. The zero-valued all-zero vector is the
// "no signal" sentinel produced for empty text.
type Vector []float32

// Dot returns the inner product of v and o.
// Vectors of different lengths have an undefined inner product; the shorter
// length wins so a partially-migrated store cannot panic a read path.
func (v Vector) Dot(o Vector) float64 {
	n := len(v)
	if len(o) < n {
		n = len(o)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(v[i]) * float64(o[i])
	}
	return sum
}

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// IsZero reports whether every component of v is zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Normalized returns a copy of v scaled to unit norm.
// The all-zero vector is returned unchanged.
func (v Vector) Normalized() Vector {
	norm := v.Norm()
	out := make(Vector, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Cosine returns the cosine similarity of v and o in [-1, 1].
// If either vector is all-zero there is no direction to compare, and the
// similarity is defined as 0.
func (v Vector) Cosine(o Vector) float64 {
	nv := v.Norm()
	no := o.Norm()
	if nv == 0 || no == 0 {
		return 0
	}
	return v.Dot(o) / (nv * no)
}

// WeightedMean returns the weighted average of vecs, normalized to unit
// length. Weights are normalized internally so only their ratios matter.
func WeightedMean(vecs []Vector, weights []float64) (Vector, error) {
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no vectors to average")
	}
	if len(vecs) != len(weights) {
		return nil, fmt.Errorf("got %d vectors but %d weights", len(vecs), len(weights))
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("weights sum to zero")
	}

	dim := len(vecs[0])
	acc := make([]float64, dim)
	for i, vec := range vecs {
		w := weights[i] / total
		for j := 0; j < dim && j < len(vec); j++ {
			acc[j] += w * float64(vec[j])
		}
	}

	mean := make(Vector, dim)
	for j, x := range acc {
		mean[j] = float32(x)
	}
	return mean.Normalized(), nil
}
