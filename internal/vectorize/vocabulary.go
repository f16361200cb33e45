// Package vectorize turns onboarding profiles into categorical feature vectors.
package vectorize

import "github.com/jonathan/cofounder-matcher/internal/types"

// Industries is the fixed industry vocabulary
var Industries = []string{
	"AI",
	"FinTech",
	"HealthTech",
	"EdTech",
	"E-commerce",
	"SaaS",
	"CleanTech",
	"Gaming",
	"Social Media",
	"Biotech",
	"Real Estate",
	"Food & Beverage",
	"Travel",
	"Media & Entertainment",
	"Hardware",
	"Web3",
}

// Roles is the fixed partner-role vocabulary
var Roles = []string{
	"Technical",
	"Business",
	"Product",
	"Design",
	"Marketing",
	"Sales",
	"Operations",
	"Finance",
}

// CollaborationStyles is the fixed collaboration-style vocabulary
var CollaborationStyles = []string{
	"Remote",
	"In-person",
	"Hybrid",
	"Async",
	"Sync",
	"Flexible hours",
}

// Goals is the fixed goal vocabulary
var Goals = []string{
	"Build a startup",
	"Launch an MVP",
	"Raise funding",
	"Side project",
	"Learn new skills",
	"Grow my network",
	"Social impact",
}

// timeCommitmentLevels is the ordinal mapping of the time commitment enumeration onto [0,1]
var timeCommitmentLevels = map[types.TimeCommitment]float64{
	types.TimeCommitmentExploring: 0.0,
	types.TimeCommitmentWeekends:  0.25,
	types.TimeCommitmentPartTime:  0.5,
	types.TimeCommitmentMostDays:  0.75,
	types.TimeCommitmentFullTime:  1.0,
}

// defaultTimeCommitmentLevel is used for missing or unrecognized commitments
const defaultTimeCommitmentLevel = 0.5
