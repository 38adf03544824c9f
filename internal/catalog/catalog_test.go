package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantscout/internal/model"
)

func TestParse_Example(t *testing.T) {
	c, err := Parse([]byte(Example))
	require.NoError(t, err)

	require.Len(t, c.Projects, 1)
	p := c.Projects[0]
	assert.Equal(t, "iron-lotus", p.ID)
	assert.Equal(t, "Iron Lotus", p.Title)
	assert.Equal(t, []string{"labor", "women_in_industry"}, p.TopicSummary)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, []string{"Pittsburgh"}, p.Segments[0].PrimaryLocations)

	assert.Equal(t, []string{"documentary open call"}, c.Sources.SeedQueries)
	assert.Equal(t, []string{"public_broadcaster", "foundation"}, c.Sources.FunderTypes)
	assert.Equal(t, []string{"North America"}, c.Sources.Regions)
}

func TestParse_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"missing id":    "projects:\n  - title: A\n",
		"duplicate id":  "projects:\n  - {id: a, title: A}\n  - {id: a, title: B}\n",
		"missing title": "projects:\n  - id: a\n",
		"not yaml":      "projects: [",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestFindResolveSelect(t *testing.T) {
	c, err := Parse([]byte("projects:\n  - {id: p1, title: Iron Lotus, synopsis: doc feature}\n  - {id: p2, title: Other}\n"))
	require.NoError(t, err)

	p, err := c.Find("p1")
	require.NoError(t, err)
	assert.Equal(t, "doc feature", p.Synopsis)

	_, err = c.Find("nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, model.Project{ID: "nope", Title: "nope"}, c.Resolve("nope"))

	all, err := c.Select("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := c.Select("p2")
	require.NoError(t, err)
	assert.Equal(t, "Other", one[0].Title)

	_, err = c.Select("nope")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.yaml")
	require.NoError(t, os.WriteFile(path, []byte(Example), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Projects, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
