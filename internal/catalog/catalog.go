// Package catalog loads the project catalog and catalog-wide search hints from YAML.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/grantscout/internal/model"
)

// ErrNotFound is returned for an unknown project id
var ErrNotFound = errors.New("project not found")

// Catalog is the read-only set of projects a run searches for
type Catalog struct {
	Projects []model.Project `yaml:"projects"`
	Sources  model.Sources   `yaml:",inline"`
}

// Load reads and validates a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes catalog YAML. Every project needs a unique id and a title.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		id := strings.TrimSpace(p.ID)
		switch {
		case id == "":
			return nil, fmt.Errorf("project %d: missing id", i+1)
		case seen[id]:
			return nil, fmt.Errorf("project %q: duplicate id", id)
		case strings.TrimSpace(p.Title) == "":
			return nil, fmt.Errorf("project %q: missing title", id)
		}
		seen[id] = true
		c.Projects[i].ID = id
	}
	return &c, nil
}

// Find returns the project with id
func (c *Catalog) Find(id string) (model.Project, error) {
	for _, p := range c.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Project{}, fmt.Errorf("%q: %w", id, ErrNotFound)
}

// Resolve returns the project with id, or a stub carrying only the id for
// results whose project has since left the catalog.
func (c *Catalog) Resolve(id string) model.Project {
	if p, err := c.Find(id); err == nil {
		return p
	}
	return model.StubProject(id)
}

// Select returns one project when id is set, otherwise all of them
func (c *Catalog) Select(id string) ([]model.Project, error) {
	if id == "" {
		return c.Projects, nil
	}
	p, err := c.Find(id)
	if err != nil {
		return nil, err
	}
	return []model.Project{p}, nil
}

// Example is written by `grantscout config init` when no catalog exists yet
const Example = `# Projects to search funding for.
projects:
  - id: iron-lotus
    title: Iron Lotus
    synopsis: A feature documentary about women steelworkers.
    topic_summary: [labor, women_in_industry]
    funding_categories: [documentary_feature]
    segments:
      - id: mill-town
        themes: [deindustrialization]
        communities: [steelworkers]
        primary_locations: [Pittsburgh]

# Extra queries and hints shared by every project.
seed_queries:
  - documentary open call
funder_types: [public_broadcaster, foundation]
regions: [North America]
`
