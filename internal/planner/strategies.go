package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
)

var genericQueries = []string{
	"documentary grant",
	"documentary film grant",
	"documentary film fund",
	"documentary development grant",
	"documentary open call",
	"nonfiction film grant",
	"documentary funding apply now",
	"documentary production grant",
}

var (
	techTopics = []string{"ai", "civic_technology", "digital_democracy", "open_source", "data_governance", "technology"}
	envTopics  = []string{"rivers", "environmental_justice", "climate", "rights_of_nature", "indigenous_reciprocity", "ecology"}
)

// broadQueries are specific about one dimension at a time:
// "Japan film fund" rather than "digital democracy Japan documentary grant".
func (p *Planner) broadQueries(project model.Project) []string {
	queries := append([]string{}, genericQueries...)

	for _, topic := range project.TopicSummary {
		label := model.Label(topic)
		if label != "" && label != "documentary" && label != "film" {
			queries = append(queries, label+" documentary grant", label+" film fund")
		}
	}

	for _, loc := range project.Locations() {
		queries = append(queries, loc+" documentary grant", loc+" film fund")
	}

	for _, category := range project.FundingCategories {
		label := model.Label(category)
		if label != "" && !strings.Contains(strings.ToLower(label), "documentary") {
			queries = append(queries, label+" grant", label+" film funding")
		}
	}

	for _, hint := range project.FundingHints {
		if label := model.Label(hint); label != "" {
			queries = append(queries, label, label+" grant")
		}
	}

	for _, community := range project.Communities() {
		if len(community) > 3 {
			queries = append(queries, community+" documentary grant")
		}
	}

	queries = append(queries, p.sources.SeedQueries...)

	return addMultilingual(dedup(queries), project, 8)
}

// outreachQueries look for people and aligned organizations rather than grants
func (p *Planner) outreachQueries(project model.Project) []string {
	var queries []string

	topics := project.TopicSummary
	for _, topic := range topics[:min(len(topics), 5)] {
		label := model.Label(topic)
		if label == "" {
			continue
		}
		queries = append(queries,
			label+" researcher documentary",
			label+" thought leader",
			label+" advocate speaker",
			label+" nonprofit organization",
			label+" initiative program",
			"who is working on "+label,
			label+" documentary executive producer",
			label+" film supporter",
		)
	}

	if containsAny(topics, techTopics) {
		queries = append(queries,
			"tech philanthropy democracy",
			"silicon valley documentary supporter",
			"tech executive producer film",
			"digital rights organization",
			"civic tech organization",
			"democracy technology nonprofit",
			"AI ethics organization documentary",
			"responsible AI initiative",
			"open source foundation film",
		)
	}
	if containsAny(topics, envTopics) {
		queries = append(queries,
			"environmental philanthropy documentary",
			"climate documentary executive producer",
			"river conservation organization film",
			"indigenous rights organization documentary",
			"water rights activist",
			"environmental justice leader",
			"rights of nature organization",
			"ecology documentary supporter",
		)
	}

	var primary []string
	for _, s := range project.Segments {
		for _, loc := range s.PrimaryLocations {
			primary = append(primary, model.Label(loc))
		}
	}
	primary = dedup(primary)
	for _, loc := range primary[:min(len(primary), 3)] {
		queries = append(queries,
			loc+" documentary producer",
			loc+" film industry leader",
			loc+" philanthropist film",
		)
	}

	for _, inspiration := range project.Inspirations {
		name := model.Label(inspiration)
		queries = append(queries, name+" documentary", name+" film support")
	}
	for _, s := range project.Segments {
		for _, participant := range s.KeyParticipants[:min(len(s.KeyParticipants), 2)] {
			queries = append(queries, model.Label(participant)+" documentary support")
		}
	}

	queries = append(queries,
		"documentary angel investor",
		"film impact producer",
		"documentary strategic advisor",
		"film philanthropist nonprofit",
		"impact documentary funder interview",
	)

	return addMultilingual(dedup(queries), project, 5)
}

// expandQueries asks the expander for queries and falls back to templates
func (p *Planner) expandQueries(ctx context.Context, project model.Project) []string {
	angles := BuildAngles(project, p.sources)

	if p.expander != nil {
		queries, err := p.expander.ExpandQueries(ctx, project, angles, p.config.MaxQueries)
		if err == nil && len(queries) > 0 {
			return dedup(queries)
		}
		p.logger.Warn("Query expansion failed, using templates",
			zap.String("project", project.ID), zap.Error(err))
	}

	return templateQueries(project, angles, p.config.MaxQueries)
}

// BuildAngles lists the facets of a project worth searching on
func BuildAngles(project model.Project, sources model.Sources) []Angle {
	var angles []Angle
	for _, s := range project.Segments {
		angles = append(angles, Angle{
			Label:     strings.TrimSpace(fmt.Sprintf("%s - %s", s.Title, s.Summary)),
			Type:      "segment",
			SegmentID: s.ID,
		})
		for _, theme := range s.Themes {
			angles = append(angles, Angle{Label: model.Label(theme) + " documentary funding", Type: "theme", SegmentID: s.ID})
		}
		for _, c := range s.Communities {
			angles = append(angles, Angle{Label: model.Label(c) + " storytelling grant", Type: "community", SegmentID: s.ID})
		}
		for _, loc := range s.PrimaryLocations {
			angles = append(angles, Angle{Label: model.Label(loc) + " film funding", Type: "location", SegmentID: s.ID})
		}
		for _, loc := range s.AlternateLocations {
			angles = append(angles, Angle{Label: model.Label(loc) + " documentary grant", Type: "alternate_location", SegmentID: s.ID})
		}
	}
	for _, hint := range project.FundingHints {
		angles = append(angles, Angle{Label: model.Label(hint), Type: "funding_hint"})
	}
	for _, seed := range sources.SeedQueries {
		angles = append(angles, Angle{Label: seed, Type: "seed"})
	}
	return angles
}

func templateQueries(project model.Project, angles []Angle, maxQueries int) []string {
	var queries []string
	for _, a := range angles {
		queries = append(queries,
			a.Label+" documentary grant",
			a.Label+" film funding",
			a.Label+" foundation funding",
			a.Label+" NGO film grant",
		)
	}
	for _, topic := range project.TopicSummary {
		queries = append(queries, model.Label(topic)+" documentary funding")
	}
	if q := titleQuery(project); q != "" {
		queries = append(queries, q)
	}
	return truncate(dedup(queries), maxQueries)
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
