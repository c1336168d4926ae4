package utils

import "math"

// NormalizeL2 scales x in place to unit Euclidean length, so dot products of
// normalized vectors equal their cosine similarity. A zero vector is left
// untouched. The squared sum is accumulated in float64 to avoid overflow on
// high-dimensional vectors.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range x {
		x[i] *= inv
	}
}
