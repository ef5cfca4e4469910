package rank

import (
	"math"
	"strings"
)

// semanticScore maps the cosine similarity between a person's aggregated
// work-text embedding and the concept vector into [0,1].
//
// Whitespace-only aggregated text yields an invalid score: there is nothing
// to embed. The raw cosine similarity lies in [-1,1] and is rescaled
// linearly via (sim+1)/2. Given a deterministic embedding function the
// result is bit-for-bit reproducible; nothing here samples.
func semanticScore(text string, vec []float32, concept []float32) SignalScore {
	if strings.TrimSpace(text) == "" {
		return invalidScore()
	}

	sim := cosineSimilarity(vec, concept)
	score := (sim + 1) / 2
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return validScore(score)
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector has zero norm or the lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
