package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/grantscout/internal/model"
)

func TestKeywords(t *testing.T) {
	p := model.Project{
		Title:        "The River",
		Synopsis:     "A river and its rights",
		TopicSummary: []string{"rights_of_nature"},
		Segments:     []model.Segment{{Themes: []string{"water"}, PrimaryLocations: []string{"Southern_Taiwan"}}},
	}
	assert.Equal(t, []string{"river", "rights", "rights of nature", "water", "southern taiwan"}, Keywords(p))
}

func TestKeywordScore(t *testing.T) {
	kw := []string{"river", "rights", "water", "taiwan"}

	assert.Equal(t, 0.5, KeywordScore(kw, model.SearchResult{Title: "River fund", Snippet: "for Taiwan"}))
	assert.Equal(t, 0.0, KeywordScore(kw, model.SearchResult{Title: "unrelated"}))
	assert.Equal(t, 0.0, KeywordScore(nil, model.SearchResult{Title: "river"}))
}
