package similarity

// Cosine returns the cosine similarity of two embeddings in [-1,1].
// Missing, empty, unequal-length or zero-norm vectors give 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	return cosine(widen(a), widen(b))
}

// EmbeddingSimilarity scales the embedding cosine to [0,100].
// Negative cosines are treated as no similarity.
func EmbeddingSimilarity(a, b []float32) float64 {
	c := Cosine(a, b)
	if c <= 0 {
		return 0
	}
	if c > 1 {
		c = 1
	}
	return c * 100
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
