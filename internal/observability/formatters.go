// Package observability provides tracing setup and formatted CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/cofounder-matcher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxResultsToShow caps the ranked table
	maxResultsToShow = 10
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func writeList(sb *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	count := min(len(values), maxItemsToShow)
	sb.WriteString(fmt.Sprintf("%-15s %s", label+":", strings.Join(values[:count], ", ")))
	if len(values) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf(" (+%d)", len(values)-maxItemsToShow))
	}
	sb.WriteString("\n")
}

// PrintProfile outputs the normalized onboarding answers a run will score.
func (p *Printer) PrintProfile(profile *types.OnboardingProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	writeList(&sb, "Industries", profile.Industries)
	writeList(&sb, "Goals", profile.Goals)
	writeList(&sb, "Partner roles", profile.PartnerRoles)
	writeList(&sb, "Collaboration", profile.CollaborationStyles)
	if profile.TimeCommitment != "" {
		sb.WriteString(fmt.Sprintf("%-15s %s\n", "Commitment:", profile.TimeCommitment))
	}
	if profile.ProjectName != "" {
		sb.WriteString(fmt.Sprintf("%-15s %s\n", "Project:", profile.ProjectName))
	}
	if sb.Len() == 0 {
		sb.WriteString("(no answers)")
	}

	p.printBox("ONBOARDING PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJob outputs a job's status fields.
func (p *Printer) PrintJob(job *types.MatchingJob) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Progress: %d%% (%s)", job.Progress, job.CurrentStep))
	if job.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("\nTook:     %s", job.CompletedAt.Sub(job.CreatedAt).Round(1e6)))
	}
	if job.ErrorMessage != nil {
		sb.WriteString(fmt.Sprintf("\nError:    %s", *job.ErrorMessage))
	}

	title := "MATCHING JOB"
	if job.Status == types.JobStatusFailed {
		title = "⚠ MATCHING JOB FAILED"
	}
	p.printBox(title, sb.String())
}

// PrintResults outputs the top ranked matches.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResults(results []types.MatchResult) {
	if len(results) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO MATCHES FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total candidates ranked: %d\n\n", len(results)))

	count := min(len(results), maxResultsToShow)
	for i := 0; i < count; i++ {
		r := results[i]
		sb.WriteString(fmt.Sprintf("#%-3d %3d%%  %s", r.Rank, r.MatchPercentage, r.MatchedUserID))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(results) > maxResultsToShow {
		sb.WriteString(fmt.Sprintf("\n\n... and %d more", len(results)-maxResultsToShow))
	}

	p.printBox("TOP MATCHES", sb.String())
}
