package score

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/planner"
)

const analysisFields = `- score: 0-1 relevance (higher = better match; low for expired or closed calls)
- deadline: "YYYY-MM-DD" or "ongoing" or "rolling" or null
- grant_amount: amount as string like "$25,000" or null
- is_open: true/false/"unknown"
- eligibility_notes: key requirements or null
- topic_match: array of matching project topics
- funder_type: "foundation"/"government"/"broadcaster"/"corporate"/"ngo"/"film_fund"/"other"
- contact_info: email/URL or null
- summary: 1 sentence description`

func projectContext(project model.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", orDefault(project.Title, "Untitled"))
	fmt.Fprintf(&b, "Synopsis: %s\n", project.Synopsis)
	fmt.Fprintf(&b, "Topics: %s\n", strings.Join(project.TopicSummary, ", "))
	if elig := project.Eligibility(); len(elig) > 0 {
		fmt.Fprintf(&b, "Team eligibility: %s\n", strings.Join(elig, ", "))
	}
	return b.String()
}

// fullText joins title, snippet and extra snippets
func fullText(r model.SearchResult) string {
	parts := []string{r.Title}
	if r.Snippet != "" {
		parts = append(parts, r.Snippet)
	}
	parts = append(parts, r.ExtraSnippets()...)
	return strings.Join(parts, "\n")
}

func analysisPrompt(project model.Project, r model.SearchResult) string {
	return fmt.Sprintf(`Analyze this funding opportunity for a documentary film project.

%s
Search Result:
Title: %s
URL: %s
Content:
%s

Respond with a JSON object with these keys:
%s

If information is not available in the search result, use null.
Prioritize opportunities that are currently open or upcoming.`,
		projectContext(project), r.Title, r.URL, fullText(r), analysisFields)
}

func batchPrompt(project model.Project, results []model.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		text := fullText(r)
		if len(text) > 500 {
			text = text[:500]
		}
		fmt.Fprintf(&b, "\n--- Result %d ---\nTitle: %s\nURL: %s\nContent: %s\n", i+1, r.Title, r.URL, text)
	}

	return fmt.Sprintf(`Analyze these funding opportunities for a documentary film project.

%s
%s

For EACH result, provide a JSON object with:
%s

Return a JSON array with exactly %d objects, one per result in order.
Use null if information is not available.`,
		projectContext(project), b.String(), analysisFields, len(results))
}

func draftPrompt(project model.Project, r model.SearchResult) string {
	return fmt.Sprintf("Draft a short grant application note (max 200 words).\n"+
		"Project: %s\nSynopsis: %s\nTarget: %s - %s\n",
		project.Title, project.Synopsis, r.Title, r.URL)
}

func pivotPrompt(project model.Project, results []model.SearchResult) string {
	segments, _ := json.Marshal(project.Segments)

	type brief struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet,omitempty"`
	}
	briefs := make([]brief, 0, 5)
	for _, r := range results[:min(len(results), 5)] {
		briefs = append(briefs, brief{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	res, _ := json.Marshal(briefs)

	return fmt.Sprintf("Suggest optional pivots for segments if funding opportunities imply better fit.\n"+
		"Return a JSON array of strings. If helpful, prefix with [segment_id].\n"+
		"Project: %s\nSegments: %s\nResults: %s", project.Title, segments, res)
}

func expandPrompt(project model.Project, angles []planner.Angle, maxQueries int) string {
	var b strings.Builder
	for _, a := range angles {
		fmt.Fprintf(&b, "- %s (%s)\n", a.Label, a.Type)
	}
	return fmt.Sprintf("You are expanding funding search queries for a documentary.\n"+
		"Rules: keep queries broad, use at most one theme or category per query, "+
		"avoid multi-region combos, and prefer generic funding terms like "+
		"'documentary grant', 'film fund', 'open call', 'apply', or a single theme.\n"+
		"Project title: %s\nSynopsis: %s\nAngles:\n%s"+
		"Return a JSON array of at most %d search queries.",
		project.Title, project.Synopsis, b.String(), maxQueries)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
