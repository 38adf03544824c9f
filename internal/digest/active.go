package digest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/grantscout/internal/model"
)

var (
	closedWords    = []string{"closed", "expired", "ended"}
	deadlineLayout = []string{"2006-01-02", "January 2, 2006", "02/01/2006", "01/02/2006"}
	yearPattern    = regexp.MustCompile(`\b(20\d{2})\b`)
)

// FilterListable drops results classified as aggregators or irrelevant.
// Unclassified results are kept.
func FilterListable(results []model.StoredResult) []model.StoredResult {
	out := make([]model.StoredResult, 0, len(results))
	for _, r := range results {
		if model.Listable(r.ResultType) {
			out = append(out, r)
		}
	}
	return out
}

// FilterActive drops results that are known to be closed or whose deadline
// has passed relative to now. Unknown status and unparseable deadlines are kept.
func FilterActive(results []model.StoredResult, now time.Time) []model.StoredResult {
	out := make([]model.StoredResult, 0, len(results))
	for _, r := range results {
		if IsActive(r, now) {
			out = append(out, r)
		}
	}
	return out
}

// IsActive reports whether a result may still be accepting applications
func IsActive(r model.StoredResult, now time.Time) bool {
	if r.IsOpen == model.OpenFalse {
		return false
	}

	deadline := strings.ToLower(strings.TrimSpace(r.Deadline))
	if deadline == "" {
		return true
	}
	for _, w := range closedWords {
		if strings.Contains(deadline, w) {
			return false
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, layout := range deadlineLayout {
		if t, err := time.Parse(layout, strings.TrimSpace(r.Deadline)); err == nil {
			return !t.Before(today)
		}
	}

	if m := yearPattern.FindStringSubmatch(deadline); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil && year < now.Year() {
			return false
		}
	}
	return true
}
