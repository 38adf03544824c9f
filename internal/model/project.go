package model

import "strings"

// Project is one creative project that funding is searched for.
// Projects come from the external catalog and are never mutated by a run.
type Project struct {
	ID                string            `yaml:"id" json:"id"`
	Title             string            `yaml:"title" json:"title"`
	Synopsis          string            `yaml:"synopsis" json:"synopsis"`
	TopicSummary      []string          `yaml:"topic_summary,omitempty" json:"topic_summary,omitempty"`           // e.g. "rivers", "civic_technology"
	FundingCategories []string          `yaml:"funding_categories,omitempty" json:"funding_categories,omitempty"` // e.g. "environmental_arts"
	FundingHints      []string          `yaml:"funding_hints,omitempty" json:"funding_hints,omitempty"`           // explicit funder names or programs
	Inspirations      []string          `yaml:"inspirations,omitempty" json:"inspirations,omitempty"`
	Segments          []Segment         `yaml:"segments,omitempty" json:"segments,omitempty"`
	Team              []TeamMember      `yaml:"team,omitempty" json:"team,omitempty"`
	SearchPreferences SearchPreferences `yaml:"search_preferences,omitempty" json:"search_preferences,omitempty"`
}

// Segment is an angle of a project (a chapter, a location, a community)
type Segment struct {
	ID                 string   `yaml:"id" json:"id"`
	Title              string   `yaml:"title,omitempty" json:"title,omitempty"`
	Summary            string   `yaml:"summary,omitempty" json:"summary,omitempty"`
	Themes             []string `yaml:"themes,omitempty" json:"themes,omitempty"`
	Communities        []string `yaml:"communities,omitempty" json:"communities,omitempty"`
	PrimaryLocations   []string `yaml:"primary_locations,omitempty" json:"primary_locations,omitempty"`
	AlternateLocations []string `yaml:"alternate_locations,omitempty" json:"alternate_locations,omitempty"`
	KeyParticipants    []string `yaml:"key_participants,omitempty" json:"key_participants,omitempty"`
}

// TeamMember carries the eligibility facts funders usually filter on
type TeamMember struct {
	Name          string   `yaml:"name" json:"name"`
	FundingAccess []string `yaml:"funding_access,omitempty" json:"funding_access,omitempty"` // regions the member can apply from
	Citizenships  []string `yaml:"citizenships,omitempty" json:"citizenships,omitempty"`
}

// SearchPreferences overrides inferred search behavior
type SearchPreferences struct {
	Languages []string `yaml:"languages,omitempty" json:"languages,omitempty"`
}

// StubProject is used when a stored result references a project id that the
// catalog no longer knows about.
func StubProject(id string) Project {
	return Project{ID: id, Title: id}
}

// Locations returns the de-underscored primary locations of all segments plus
// team funding access regions, in first-seen order.
func (p Project) Locations() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(v string) {
		v = Label(v)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, s := range p.Segments {
		for _, loc := range s.PrimaryLocations {
			add(loc)
		}
	}
	for _, m := range p.Team {
		for _, loc := range m.FundingAccess {
			add(loc)
		}
	}
	return out
}

// Communities returns the de-underscored communities of all segments.
func (p Project) Communities() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range p.Segments {
		for _, c := range s.Communities {
			c = Label(c)
			if c != "" && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Eligibility returns the union of team funding access and citizenships.
func (p Project) Eligibility() []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range p.Team {
		for _, v := range append(append([]string{}, m.FundingAccess...), m.Citizenships...) {
			if v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Label turns a catalog token like "civic_technology" into "civic technology".
func Label(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
}

// Sources holds catalog-wide search hints shared by every project
type Sources struct {
	SeedQueries []string `yaml:"seed_queries,omitempty" json:"seed_queries,omitempty"`
	FunderTypes []string `yaml:"funder_types,omitempty" json:"funder_types,omitempty"` // e.g. "public_broadcaster"
	Regions     []string `yaml:"regions,omitempty" json:"regions,omitempty"`
}
