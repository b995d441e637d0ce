// Package embeddings provides helpers for embedding vectors.
package embeddings

import (
	"math"
)

// NormalizeL2 scales vector in place to unit length. A zero vector is left unchanged.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Normalized returns a unit-length copy of vector, leaving the input untouched.
// Cached query vectors are shared across requests, so they are built from a copy.
func Normalized(vector []float32) []float32 {
	out := make([]float32, len(vector))
	copy(out, vector)
	NormalizeL2(out)

	return out
}

// FromFloat64 converts a provider response (JSON numbers decode as float64) to float32.
func FromFloat64(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}

	return out
}
