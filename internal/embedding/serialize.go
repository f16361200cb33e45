package embedding

import (
	"strings"

	"github.com/jonathan/cofounder-matcher/internal/types"
)

const (
	fieldSeparator = " | "
	listSeparator  = ", "
)

// Serialize renders a profile as the text that gets embedded.
// Fields appear in a fixed order and empty fields are omitted. The problem
// statement is skipped when the user has no idea yet.
func Serialize(profile *types.OnboardingProfile) string {
	if profile == nil {
		return ""
	}

	var parts []string
	addList := func(label string, values []string) {
		if len(values) > 0 {
			parts = append(parts, label+": "+strings.Join(values, listSeparator))
		}
	}
	addText := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, label+": "+value)
		}
	}

	addList("Industries", profile.Industries)
	addList("Goals", profile.Goals)
	addList("Partner roles", profile.PartnerRoles)
	addList("Expectations", profile.PartnerExpectations)
	addList("Collaboration", profile.CollaborationStyles)
	addList("Team culture", profile.TeamCulture)
	addText("Time commitment", string(profile.TimeCommitment))
	if !profile.NoIdeaYet {
		addText("Problem", profile.ProblemStatement)
	}
	addText("Project", profile.ProjectName)

	return strings.Join(parts, fieldSeparator)
}
