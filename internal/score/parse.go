package score

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/grantscout/internal/model"
)

// parseAnalysis maps one loosely typed model answer onto Analysis.
// Fields that are missing, null or of the wrong shape stay empty.
func parseAnalysis(obj map[string]any) model.Analysis {
	a := model.Analysis{
		Summary:          toString(obj["summary"]),
		GrantAmount:      toString(obj["grant_amount"]),
		Deadline:         toString(obj["deadline"]),
		EligibilityNotes: toString(obj["eligibility_notes"]),
		TopicMatch:       toStrings(obj["topic_match"]),
		ContactInfo:      toString(obj["contact_info"]),
		IsOpen:           model.ParseOpenStatus(obj["is_open"]),
		FunderType:       toString(obj["funder_type"]),
	}
	if f, ok := toFloat(obj["score"]); ok {
		a.Score = model.Float(clamp01(f))
	}
	return a
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// toFloat accepts a JSON number or a numeric string; NaN and infinities are rejected
func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toStrings accepts a JSON list or a comma separated string
func toStrings(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := toString(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// NormalizePivots flattens model pivot output: plain strings, or objects with
// pivot_suggestion/suggestion/text and an optional segment_id/segment that is
// rendered as a "[segment] " prefix. Duplicates are dropped, order kept.
func NormalizePivots(items []any) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			add(toString(item))
			continue
		}

		text := ""
		for _, key := range []string{"pivot_suggestion", "suggestion", "text"} {
			if text = toString(obj[key]); text != "" {
				break
			}
		}
		if text == "" {
			continue
		}

		segment := toString(obj["segment_id"])
		if segment == "" {
			segment = toString(obj["segment"])
		}
		if segment != "" {
			text = "[" + segment + "] " + text
		}
		add(text)
	}
	return out
}
