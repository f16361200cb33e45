package types

// FeatureVector is the categorical representation of an OnboardingProfile.
// Each map carries every category of its vocabulary with a 1.0/0.0 presence value.
type FeatureVector struct {
	Industries          map[string]float64 `json:"industries"`
	Roles               map[string]float64 `json:"roles"`
	CollaborationStyles map[string]float64 `json:"collaboration_styles"`
	Goals               map[string]float64 `json:"goals"`
	// TimeCommitmentLevel is in [0,1]; unknown commitments sit at 0.5
	TimeCommitmentLevel float64 `json:"time_commitment_level"`
}
