package similarity

import "math"

// Blend ratio of the final score. The categorical signal dominates.
const (
	categoricalBlendWeight = 0.9
	embeddingBlendWeight   = 0.1
)

// Blend combines a categorical percentage and an embedding similarity into the
// final match percentage.
func Blend(categorical int, embedding float64) int {
	score := float64(categorical)*categoricalBlendWeight + embedding*embeddingBlendWeight
	return clampPercent(int(math.Floor(score + 0.5)))
}
