package score

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/grantscout/internal/model"
)

var wordPattern = regexp.MustCompile(`[a-zA-Z]{4,}`)

// Keywords collects the distinct lower-case terms used for offline scoring:
// 4+ letter words of title and synopsis, topics, and segment themes,
// communities and primary locations.
func Keywords(project model.Project) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.ToLower(model.Label(s))
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, field := range []string{project.Title, project.Synopsis} {
		for _, w := range wordPattern.FindAllString(strings.ToLower(field), -1) {
			add(w)
		}
	}
	for _, t := range project.TopicSummary {
		add(t)
	}
	for _, s := range project.Segments {
		for _, list := range [][]string{s.Themes, s.Communities, s.PrimaryLocations} {
			for _, v := range list {
				add(v)
			}
		}
	}
	return out
}

// KeywordScore is the share of project keywords found in the result's title and snippet
func KeywordScore(keywords []string, r model.SearchResult) float64 {
	if len(keywords) == 0 {
		return 0
	}
	text := strings.ToLower(r.Title + " " + r.Snippet)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return clamp01(float64(hits) / float64(len(keywords)))
}

// KeywordAnalysis is the offline analysis: a keyword score and nothing else
func KeywordAnalysis(project model.Project, r model.SearchResult) model.Analysis {
	return model.Analysis{Score: model.Float(KeywordScore(Keywords(project), r))}
}

// FallbackDraft is the template used when no model is configured
func FallbackDraft(project model.Project, r model.SearchResult) string {
	return fmt.Sprintf("Hello,\n\n"+
		"I'm reaching out regarding potential support for %s.\n"+
		"The film explores %s.\n"+
		"Your organization (%s) appears aligned with these themes.\n"+
		"We would value a conversation about fit and next steps.\n\n"+
		"Thank you,\n"+
		"[Your Name]", project.Title, project.Synopsis, r.Title)
}
