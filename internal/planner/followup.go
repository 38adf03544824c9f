package planner

import (
	"net/url"
	"strings"

	"github.com/ppiankov/grantscout/internal/model"
)

// FollowupQueries derives narrower queries about specific results, capped at
// the configured follow-up limit.
func (p *Planner) FollowupQueries(results []model.SearchResult) []string {
	return FollowupQueries(results, p.config.FollowupLimit)
}

// FollowupQueries derives up to limit narrower queries, three per result:
// eligibility and deadline, film grant, and the result's own site.
func FollowupQueries(results []model.SearchResult, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q != "" && !seen[q] && len(out) < limit {
			seen[q] = true
			out = append(out, q)
		}
	}

	for _, r := range results {
		if len(out) >= limit {
			break
		}
		if title := strings.TrimSpace(r.Title); title != "" {
			add(title + " eligibility deadline")
			add(title + " film grant")
		}
		if domain := Domain(r.URL); domain != "" {
			add("site:" + domain + " documentary funding")
		}
	}
	return out
}

// Domain returns the host part of a URL without a leading "www."
func Domain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	host := ""
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Hostname()
	} else if i := strings.Index(raw, "://"); i >= 0 {
		host = strings.SplitN(raw[i+3:], "/", 2)[0]
	} else {
		host = strings.SplitN(raw, "/", 2)[0]
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
