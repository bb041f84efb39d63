// Package vector similarity helpers.
package vector

import "math"

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between a and b given
// their precomputed norms. Zero-norm vectors score 0.
func CosineSimilarity(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if len(a) != len(b) || len(a) == 0 || aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
