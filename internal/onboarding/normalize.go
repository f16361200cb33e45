// Package onboarding converts stored onboarding documents into typed profiles.
package onboarding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/cofounder-matcher/internal/types"
)

// fieldAliases lists the accepted document keys for each profile field, in lookup order
var fieldAliases = map[string][]string{
	"industries":           {"industries", "industry"},
	"problem_statement":    {"problemStatement", "problem_statement", "problem"},
	"no_idea_yet":          {"noIdeaYet", "no_idea_yet"},
	"goals":                {"goals", "goal"},
	"partner_roles":        {"partnerRoles", "partner_roles", "roles"},
	"partner_expectations": {"partnerExpectations", "partner_expectations", "expectations"},
	"collaboration_styles": {"collaborationStyles", "collaboration_styles", "collaborationStyle", "collaboration_style"},
	"time_commitment":      {"timeCommitment", "time_commitment"},
	"team_culture":         {"teamCulture", "team_culture"},
	"project_name":         {"projectName", "project_name"},
}

// Normalize parses a stored onboarding document into an OnboardingProfile.
// A missing or null document yields (nil, nil). Fields of the wrong shape are
// coerced to empty values instead of failing the whole document.
func Normalize(raw []byte) (*types.OnboardingProfile, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse onboarding data: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	return &types.OnboardingProfile{
		Industries:          stringSet(lookup(doc, "industries")),
		ProblemStatement:    stringValue(lookup(doc, "problem_statement")),
		NoIdeaYet:           boolValue(lookup(doc, "no_idea_yet")),
		Goals:               stringSet(lookup(doc, "goals")),
		PartnerRoles:        stringSet(lookup(doc, "partner_roles")),
		PartnerExpectations: stringSet(lookup(doc, "partner_expectations")),
		CollaborationStyles: stringSet(lookup(doc, "collaboration_styles")),
		TimeCommitment:      NormalizeTimeCommitment(stringValue(lookup(doc, "time_commitment"))),
		TeamCulture:         stringSet(lookup(doc, "team_culture")),
		ProjectName:         stringValue(lookup(doc, "project_name")),
	}, nil
}

// NormalizeTimeCommitment maps free-form commitment labels onto the enumeration.
// Unrecognized labels are returned trimmed and lowercased so they stay visible in
// serialized text while scoring treats them as unknown.
func NormalizeTimeCommitment(value string) types.TimeCommitment {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	switch key {
	case "":
		return ""
	case "exploring", "just-exploring":
		return types.TimeCommitmentExploring
	case "weekends", "weekend", "evenings-and-weekends":
		return types.TimeCommitmentWeekends
	case "part-time", "parttime":
		return types.TimeCommitmentPartTime
	case "most-days":
		return types.TimeCommitmentMostDays
	case "full-time", "fulltime":
		return types.TimeCommitmentFullTime
	default:
		return types.TimeCommitment(key)
	}
}

func lookup(doc map[string]any, field string) any {
	for _, key := range fieldAliases[field] {
		if v, ok := doc[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// stringSet accepts an array of strings or a single (possibly comma separated) string.
// Entries are trimmed, empties dropped and duplicates removed keeping first occurrence.
func stringSet(v any) []string {
	var candidates []string
	switch t := v.(type) {
	case string:
		candidates = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func boolValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}
