// Package types provides type definitions for structured data used throughout the co-founder matcher.
//
//nolint:revive // types is a standard Go package name pattern
package types

// TimeCommitment is the fixed enumeration of weekly time a user can put into a project.
type TimeCommitment string

// TimeCommitment values, ordered from least to most time.
const (
	TimeCommitmentExploring TimeCommitment = "exploring"
	TimeCommitmentWeekends  TimeCommitment = "weekends"
	TimeCommitmentPartTime  TimeCommitment = "part-time"
	TimeCommitmentMostDays  TimeCommitment = "most-days"
	TimeCommitmentFullTime  TimeCommitment = "full-time"
)

// OnboardingProfile represents the answers a user gave during onboarding
type OnboardingProfile struct {
	Industries          []string       `json:"industries"`
	ProblemStatement    string         `json:"problem_statement,omitempty"`
	NoIdeaYet           bool           `json:"no_idea_yet"`
	Goals               []string       `json:"goals"`
	PartnerRoles        []string       `json:"partner_roles"`
	PartnerExpectations []string       `json:"partner_expectations"`
	CollaborationStyles []string       `json:"collaboration_styles"`
	TimeCommitment      TimeCommitment `json:"time_commitment,omitempty"`
	TeamCulture         []string       `json:"team_culture"`
	ProjectName         string         `json:"project_name,omitempty"`
}
