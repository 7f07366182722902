// Package vector holds the embedding matrix, its binary encoding and exact
// top-k cosine similarity search over it.
package vector

import "math"

// Dot returns the inner product of two equal-length vectors, accumulated in float64.
// For unit vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of x. The zero vector is returned unchanged.
func Normalize(x []float32) []float32 {
	out := make([]float32, len(x))
	copy(out, x)
	norm := L2Norm(x)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return out
	}
	inv := 1 / norm
	for i := range out {
		out[i] = float32(float64(out[i]) * inv)
	}
	return out
}
