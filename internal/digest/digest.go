// Package digest renders stored results and pivot suggestions as a plain-text report.
package digest

import (
	"fmt"
	"strings"

	"github.com/ppiankov/grantscout/internal/model"
)

// Subject lines for outbound mail
const (
	SubjectDigest  = "Film Funding Digest"
	SubjectDeeper  = "Deeper Search Results"
	SubjectDetails = "Film Funding Details"
	SubjectDraft   = "Draft Application"
	SubjectPivot   = "Pivot Suggestions"
	SubjectReply   = "Film Funding Reply"
)

// NoResults marks a digest built from an empty result set
const NoResults = "No results found."

var (
	rule      = strings.Repeat("=", 60)
	thinRule  = strings.Repeat("-", 60)
	underline = strings.Repeat("-", 40)
)

// Build renders results and pivots. Results with is_open "true" are listed
// first under their own heading; everything else follows in input order.
func Build(results []model.StoredResult, pivots []model.PivotSuggestion) string {
	var open, other []model.StoredResult
	for _, r := range results {
		if r.IsOpen == model.OpenTrue {
			open = append(open, r)
		} else {
			other = append(other, r)
		}
	}

	sections := []string{rule, "FILM FUNDING DIGEST", rule}

	if len(open) > 0 {
		sections = append(sections, "\nCURRENTLY OPEN OPPORTUNITIES", underline, formatResults(open))
	}
	if len(other) > 0 {
		sections = append(sections, "\n\nOTHER RESULTS", underline, formatResults(other))
	}
	if len(results) == 0 {
		sections = append(sections, "\n"+NoResults)
	}

	if len(pivots) > 0 {
		lines := make([]string, len(pivots))
		for i, p := range pivots {
			lines[i] = FormatPivot(p.Suggestion)
		}
		sections = append(sections, "\n\nPIVOT SUGGESTIONS", underline, strings.Join(lines, "\n"))
	}

	sections = append(sections, "\n"+thinRule, commandsLine(), rule)
	return strings.Join(sections, "\n")
}

func formatResults(results []model.StoredResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = FormatResult(r)
	}
	return strings.Join(blocks, "\n\n")
}

func commandsLine() string {
	parts := make([]string, len(model.ActionKinds))
	for i, k := range model.ActionKinds {
		parts[i] = string(k) + " <RID>"
	}
	return "Commands: " + strings.Join(parts, " | ")
}

// FormatResult renders one result block; optional lines are omitted when empty
func FormatResult(r model.StoredResult) string {
	score := "n/a"
	if r.HasScore() {
		score = fmt.Sprintf("%.2f", r.ScoreValue())
	}

	var tags []string
	if r.IsNewFunder {
		tags = append(tags, "NEW")
	}
	switch r.IsOpen {
	case model.OpenTrue:
		tags = append(tags, "OPEN")
	case model.OpenFalse:
		tags = append(tags, "CLOSED")
	}
	if r.FunderType != "" {
		tags = append(tags, strings.ToUpper(r.FunderType))
	}

	header := fmt.Sprintf("[RID:%d] %s (score: %s)", r.ID, r.Title, score)
	if len(tags) > 0 {
		header += " [" + strings.Join(tags, ", ") + "]"
	}

	lines := []string{header, "  URL: " + r.URL}
	if r.Summary != "" {
		lines = append(lines, "  "+r.Summary)
	}

	var details []string
	if r.GrantAmount != "" {
		details = append(details, "Amount: "+r.GrantAmount)
	}
	if r.Deadline != "" {
		details = append(details, "Deadline: "+r.Deadline)
	}
	if len(details) > 0 {
		lines = append(lines, "  "+strings.Join(details, " | "))
	}

	if r.EligibilityNotes != "" {
		lines = append(lines, "  Eligibility: "+r.EligibilityNotes)
	}
	if len(r.TopicMatch) > 0 {
		lines = append(lines, "  Topics: "+strings.Join(r.TopicMatch, ", "))
	}
	if r.ContactInfo != "" {
		lines = append(lines, "  Contact: "+r.ContactInfo)
	}
	return strings.Join(lines, "\n")
}

// FormatPivot renders one pivot suggestion line
func FormatPivot(suggestion string) string {
	return "[PIVOT] " + suggestion
}

// FormatDetails is the body of a details reply
func FormatDetails(r model.StoredResult) string {
	return fmt.Sprintf("[RID:%d] %s\n%s\n\n%s", r.ID, r.Title, r.URL, r.Snippet)
}
