// Package similarity scores how compatible two onboarding profiles are.
package similarity

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/jonathan/cofounder-matcher/internal/types"
)

// Category weights of the categorical score. They sum to 1.0.
const (
	industryWeight       = 0.30
	roleWeight           = 0.25
	collaborationWeight  = 0.20
	goalsWeight          = 0.15
	timeCommitmentWeight = 0.10
)

// CategoryScores holds the per-category similarities, each in [0,1]
type CategoryScores struct {
	Industry       float64 `json:"industry"`
	Role           float64 `json:"role"`
	Collaboration  float64 `json:"collaboration"`
	Goals          float64 `json:"goals"`
	TimeCommitment float64 `json:"time_commitment"`
}

// Weighted combines the category scores into a value in [0,1].
func (c CategoryScores) Weighted() float64 {
	return industryWeight*c.Industry +
		roleWeight*c.Role +
		collaborationWeight*c.Collaboration +
		goalsWeight*c.Goals +
		timeCommitmentWeight*c.TimeCommitment
}

// Breakdown computes the per-category similarities of two feature vectors.
// A category either side left empty scores 0 and still carries its weight.
func Breakdown(a, b types.FeatureVector) CategoryScores {
	return CategoryScores{
		Industry:       presenceCosine(a.Industries, b.Industries),
		Role:           presenceCosine(a.Roles, b.Roles),
		Collaboration:  presenceCosine(a.CollaborationStyles, b.CollaborationStyles),
		Goals:          presenceCosine(a.Goals, b.Goals),
		TimeCommitment: 1 - math.Abs(a.TimeCommitmentLevel-b.TimeCommitmentLevel),
	}
}

// CategoricalSimilarity returns the weighted categorical compatibility of two
// feature vectors as an integer percentage, rounded half up.
func CategoricalSimilarity(a, b types.FeatureVector) int {
	return toPercent(Breakdown(a, b).Weighted())
}

// presenceCosine is the cosine of two presence maps over the union of their keys.
func presenceCosine(a, b map[string]float64) float64 {
	keys := unionKeys(a, b)
	if len(keys) == 0 {
		return 0
	}

	va := make([]float64, len(keys))
	vb := make([]float64, len(keys))
	for i, k := range keys {
		va[i] = a[k]
		vb[i] = b[k]
	}

	return cosine(va, vb)
}

func unionKeys(a, b map[string]float64) []string {
	seen := make(map[string]bool, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for _, m := range []map[string]float64{a, b} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// cosine returns 0 for empty, mismatched or zero-norm inputs.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// toPercent scales a [0,1] score to 0..100, rounding half up.
func toPercent(score float64) int {
	pct := int(math.Floor(score*100 + 0.5))
	return clampPercent(pct)
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
