package vector

import "math"

// Cosine returns the cosine similarity of a and b, in [-1,1].
// Mismatched lengths and zero vectors yield 0, never NaN.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, sim))
}

// Similarity returns Cosine clamped to [0,1], the scoring form used for
// ranking (negative similarity carries no ranking signal here).
func Similarity(a, b []float32) float64 {
	return math.Max(0, Cosine(a, b))
}
