package model

import "time"

// SearchResult is what a search backend returns for one hit.
// It has no identity beyond (URL, Source) and is never persisted as is.
type SearchResult struct {
	Title   string         `json:"title"`
	URL     string         `json:"url"`
	Snippet string         `json:"snippet,omitempty"`
	Source  string         `json:"source"`        // provider that produced the hit
	Raw     map[string]any `json:"raw,omitempty"` // provider specific payload
}

// ExtraSnippets returns additional text fragments a provider attached to Raw.
func (r SearchResult) ExtraSnippets() []string {
	v, ok := r.Raw["extra_snippets"]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// OpenStatus is the tri-state "is this opportunity accepting applications"
type OpenStatus string

const (
	OpenUnknown OpenStatus = ""
	OpenTrue    OpenStatus = "true"
	OpenFalse   OpenStatus = "false"
)

// ParseOpenStatus maps loose model output ("true", true, "closed", "unknown") onto OpenStatus.
func ParseOpenStatus(v any) OpenStatus {
	switch t := v.(type) {
	case bool:
		if t {
			return OpenTrue
		}
		return OpenFalse
	case string:
		switch t {
		case "true", "True", "TRUE", "yes", "open":
			return OpenTrue
		case "false", "False", "FALSE", "no", "closed":
			return OpenFalse
		}
	}
	return OpenUnknown
}

// Analysis is the scoring engine's classification of one result.
// Every field is optional; the zero value means "nothing known".
type Analysis struct {
	Score            *float64   `json:"score,omitempty"` // 0.0-1.0
	Summary          string     `json:"summary,omitempty"`
	GrantAmount      string     `json:"grant_amount,omitempty"`
	Deadline         string     `json:"deadline,omitempty"` // YYYY-MM-DD, "ongoing", "rolling"
	EligibilityNotes string     `json:"eligibility_notes,omitempty"`
	TopicMatch       []string   `json:"topic_match,omitempty"`
	ContactInfo      string     `json:"contact_info,omitempty"`
	IsOpen           OpenStatus `json:"is_open,omitempty"`
	FunderType       string     `json:"funder_type,omitempty"`
}

// HasScore reports whether a score was produced.
func (a Analysis) HasScore() bool {
	return a.Score != nil
}

// ScoreValue returns the score or 0 when absent.
func (a Analysis) ScoreValue() float64 {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

// Float returns a pointer to v, for building optional scores.
func Float(v float64) *float64 {
	return &v
}

// Angle types recorded with stored results
const (
	AnglePrimary  = "primary"
	AngleFollowup = "followup"
)

// Result types assigned by the classifier
const (
	ResultSpecificGrant = "specific_grant"
	ResultFunderOrg     = "funder_org"
	ResultAggregator    = "aggregator"
	ResultNews          = "news"
	ResultIrrelevant    = "irrelevant"
)

// Listable reports whether a result type belongs in a digest.
// Aggregator pages and irrelevant hits are kept in the store but never listed.
func Listable(resultType string) bool {
	return resultType != ResultAggregator && resultType != ResultIrrelevant
}

// Candidate is one scored search hit on its way into the store.
type Candidate struct {
	ProjectID string
	SegmentID string
	AngleType string
	Query     string
	Result    SearchResult
	Analysis  Analysis

	ResultType string // set by the classifier, may be empty
}

// StoredResult is a persisted, de-duplicated search hit.
// (ProjectID, URL) is unique; ID is assigned by the store and stable.
type StoredResult struct {
	ID           int64     `json:"id"`
	ProjectID    string    `json:"project_id"`
	SegmentID    string    `json:"segment_id,omitempty"`
	AngleType    string    `json:"angle_type,omitempty"`
	Query        string    `json:"query,omitempty"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Snippet      string    `json:"snippet,omitempty"`
	Source       string    `json:"source,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
	IsNewFunder  bool      `json:"is_new_funder"`
	ResultType   string    `json:"result_type,omitempty"` // specific_grant, funder_org, aggregator, news, irrelevant
	Shown        bool      `json:"shown_in_digest"`

	Analysis
}

// AsSearchResult converts a stored row back into provider shape, for follow-up planning.
func (r StoredResult) AsSearchResult() SearchResult {
	return SearchResult{
		Title:   r.Title,
		URL:     r.URL,
		Snippet: r.Snippet,
		Source:  r.Source,
	}
}

// PivotSuggestion is an alternative framing proposed for a project. Append-only.
type PivotSuggestion struct {
	ID         int64     `json:"id"`
	ProjectID  string    `json:"project_id"`
	Suggestion string    `json:"suggestion"`
	CreatedAt  time.Time `json:"created_at"`
}
