package vectorize

import (
	"strings"

	"github.com/jonathan/cofounder-matcher/internal/types"
)

// Vectorize builds the FeatureVector of a profile against the fixed vocabularies.
// Values outside a vocabulary are ignored. A nil profile yields an all-zero vector
// with a midpoint time commitment.
func Vectorize(profile *types.OnboardingProfile) types.FeatureVector {
	if profile == nil {
		profile = &types.OnboardingProfile{}
	}

	return types.FeatureVector{
		Industries:          presence(Industries, profile.Industries),
		Roles:               presence(Roles, profile.PartnerRoles),
		CollaborationStyles: presence(CollaborationStyles, profile.CollaborationStyles),
		Goals:               presence(Goals, profile.Goals),
		TimeCommitmentLevel: TimeCommitmentLevel(profile.TimeCommitment),
	}
}

// TimeCommitmentLevel returns the ordinal level of a commitment, 0.5 when unknown.
func TimeCommitmentLevel(commitment types.TimeCommitment) float64 {
	if level, ok := timeCommitmentLevels[commitment]; ok {
		return level
	}
	return defaultTimeCommitmentLevel
}

// presence maps every vocabulary entry to 1.0 if selected and 0.0 otherwise.
// Matching is case-insensitive.
func presence(vocabulary []string, selected []string) map[string]float64 {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[strings.ToLower(strings.TrimSpace(s))] = true
	}

	out := make(map[string]float64, len(vocabulary))
	for _, category := range vocabulary {
		if chosen[strings.ToLower(category)] {
			out[category] = 1.0
		} else {
			out[category] = 0.0
		}
	}
	return out
}
