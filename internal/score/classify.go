package score

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/grantscout/internal/model"
)

// Result types
const (
	TypeSpecificGrant = model.ResultSpecificGrant
	TypeFunderOrg     = model.ResultFunderOrg
	TypeAggregator    = model.ResultAggregator
	TypeNews          = model.ResultNews
	TypeIrrelevant    = model.ResultIrrelevant
)

// Entries containing "/" match anywhere in the URL; the rest match the host.
var (
	aggregatorSites = []string{
		"documentary.org", "filmdaily.tv", "filmfreeway.com", "withoutabox.com",
		"shortfilmdepot.com", "reelport.com", "submittable.com", "slideroom.com",
		"wikipedia.org", "libraryguides.missouri.edu", "filmmakers.com",
		"indiewire.com/galleries", "screendaily.com/festivals",
	}
	newsSites = []string{
		"deadline.com", "variety.com", "hollywoodreporter.com", "indiewire.com",
		"screendaily.com", "realscreen.com", "documentary.org/news", "vurchel.com",
	}
	aggregatorTitles = regexp.MustCompile(`funding resources|funding guide|list of.*grants|grant database|where to find.*funding|documentary funding.*resource|library guide`)

	grantIndicators = []string{"apply", "application", "deadline", "grant", "fund", "award", "submit"}
	orgIndicators   = []string{"about us", "our work", "mission", "who we are"}
)

// Classify assigns a result type from URL and title patterns alone
func Classify(title, rawURL string) string {
	u := strings.ToLower(rawURL)
	t := strings.ToLower(title)

	host := ""
	if strings.Contains(u, "://") {
		if parsed, err := url.Parse(u); err == nil {
			host = strings.TrimPrefix(parsed.Host, "www.")
		}
	}

	if matchesSite(aggregatorSites, u, host) {
		return TypeAggregator
	}
	if matchesSite(newsSites, u, host) {
		if strings.Contains(t, "apply") || strings.Contains(t, "deadline") || strings.Contains(u, "application") {
			return TypeSpecificGrant
		}
		return TypeNews
	}
	if aggregatorTitles.MatchString(t) {
		return TypeAggregator
	}
	if strings.Contains(u, "wikipedia") {
		return TypeIrrelevant
	}
	if containsAnyOf(t, u, grantIndicators) {
		return TypeSpecificGrant
	}
	if containsAnyOf(t, u, orgIndicators) {
		return TypeFunderOrg
	}
	return TypeSpecificGrant
}

func matchesSite(sites []string, u, host string) bool {
	for _, s := range sites {
		if strings.Contains(s, "/") {
			if strings.Contains(u, s) {
				return true
			}
		} else if host != "" && strings.Contains(host, s) {
			return true
		}
	}
	return false
}

func containsAnyOf(title, u string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(title, n) || strings.Contains(u, n) {
			return true
		}
	}
	return false
}
