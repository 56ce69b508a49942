package faq

import "math"

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero-magnitude or mismatched vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push identical vectors just past 1
	return math.Max(-1, math.Min(1, score))
}

// bestIndex returns the position of the highest score, preferring the lowest index on ties.
func bestIndex(query []float32, corpus [][]float32) (int, float64) {
	best, bestScore := -1, math.Inf(-1)
	for i, candidate := range corpus {
		score := CosineSimilarity(query, candidate)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}
