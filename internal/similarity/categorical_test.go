package similarity

import (
	"testing"

	"github.com/jonathan/cofounder-matcher/internal/types"
	"github.com/jonathan/cofounder-matcher/internal/vectorize"
	"github.com/stretchr/testify/assert"
)

func fullProfile() *types.OnboardingProfile {
	return &types.OnboardingProfile{
		Industries:          []string{"AI", "FinTech"},
		PartnerRoles:        []string{"Technical", "Product"},
		CollaborationStyles: []string{"Remote"},
		Goals:               []string{"Build a startup", "Raise funding"},
		TimeCommitment:      types.TimeCommitmentFullTime,
	}
}

func TestCategoricalSimilarity_SelfIsMaximal(t *testing.T) {
	v := vectorize.Vectorize(fullProfile())
	assert.Equal(t, 100, CategoricalSimilarity(v, v))
}

func TestCategoricalSimilarity_AllEmptySelfOnlyScoresTime(t *testing.T) {
	v := vectorize.Vectorize(&types.OnboardingProfile{})
	// every presence category has zero norm, only time commitment agrees
	assert.Equal(t, 10, CategoricalSimilarity(v, v))
}

func TestCategoricalSimilarity_Symmetric(t *testing.T) {
	a := vectorize.Vectorize(fullProfile())
	b := vectorize.Vectorize(&types.OnboardingProfile{
		Industries:          []string{"AI", "Gaming", "EdTech"},
		PartnerRoles:        []string{"Design"},
		CollaborationStyles: []string{"Remote", "Hybrid"},
		Goals:               []string{"Raise funding"},
		TimeCommitment:      types.TimeCommitmentWeekends,
	})

	assert.Equal(t, CategoricalSimilarity(a, b), CategoricalSimilarity(b, a))
}

func TestCategoricalSimilarity_SharedIndustryBeatsEmptyIndustry(t *testing.T) {
	requester := vectorize.Vectorize(&types.OnboardingProfile{Industries: []string{"AI"}})
	candidateA := vectorize.Vectorize(&types.OnboardingProfile{Industries: []string{"AI"}})
	candidateB := vectorize.Vectorize(&types.OnboardingProfile{Industries: []string{}})

	scoreA := CategoricalSimilarity(requester, candidateA)
	scoreB := CategoricalSimilarity(requester, candidateB)

	assert.Equal(t, 40, scoreA)
	assert.Equal(t, 10, scoreB)
	assert.Greater(t, scoreA, scoreB)
}

func TestBreakdown_PartialOverlap(t *testing.T) {
	a := vectorize.Vectorize(&types.OnboardingProfile{
		Industries:     []string{"AI", "FinTech"},
		TimeCommitment: types.TimeCommitmentFullTime,
	})
	b := vectorize.Vectorize(&types.OnboardingProfile{
		Industries:     []string{"AI"},
		TimeCommitment: types.TimeCommitmentPartTime,
	})

	scores := Breakdown(a, b)

	// 1 shared out of sqrt(2)*sqrt(1)
	assert.InDelta(t, 0.7071, scores.Industry, 0.0001)
	assert.Equal(t, 0.0, scores.Role)
	assert.Equal(t, 0.0, scores.Collaboration)
	assert.Equal(t, 0.0, scores.Goals)
	assert.InDelta(t, 0.5, scores.TimeCommitment, 1e-9)

	// 0.3*0.7071 + 0.1*0.5 = 0.2621
	assert.Equal(t, 26, CategoricalSimilarity(a, b))
}

func TestPresenceCosine_UnionOfKeys(t *testing.T) {
	a := map[string]float64{"x": 1}
	b := map[string]float64{"y": 1}
	assert.Equal(t, 0.0, presenceCosine(a, b))

	c := map[string]float64{"x": 1, "y": 1}
	assert.InDelta(t, 0.7071, presenceCosine(a, c), 0.0001)

	assert.Equal(t, 0.0, presenceCosine(nil, nil))
	assert.Equal(t, 0.0, presenceCosine(map[string]float64{"x": 0}, c))
}

func TestToPercent_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, 0, toPercent(0))
	assert.Equal(t, 1, toPercent(0.005))
	assert.Equal(t, 50, toPercent(0.4951))
	assert.Equal(t, 100, toPercent(1))
	assert.Equal(t, 100, toPercent(1.2))
	assert.Equal(t, 0, toPercent(-0.3))
}
