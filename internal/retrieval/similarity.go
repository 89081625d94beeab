package retrieval

import "math"

// cosineSimilarity returns dot(a, b) / (|a||b|) in [-1, 1].
// A zero-magnitude vector is similar to nothing and scores 0, as does any
// vector with a NaN or infinite component.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}

	// rounding can push parallel vectors just past 1
	return math.Max(-1, math.Min(1, score))
}
