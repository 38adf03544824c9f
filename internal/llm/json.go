package llm

import (
	"encoding/json"
	"regexp"
)

// jsonPattern grabs the outermost object or array in free text.
// Models often wrap JSON in prose or code fences.
var jsonPattern = regexp.MustCompile(`(?s)\{.*\}|\[.*\]`)

// ExtractJSON decodes the first JSON object or array found in text.
// It returns false when nothing decodable is present.
func ExtractJSON(text string) (any, bool) {
	match := jsonPattern.FindString(text)
	if match == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(match), &v); err != nil {
		return nil, false
	}
	return v, true
}

// ExtractJSONInto decodes the first JSON object or array in text into dst.
func ExtractJSONInto(text string, dst any) bool {
	match := jsonPattern.FindString(text)
	if match == "" {
		return false
	}
	return json.Unmarshal([]byte(match), dst) == nil
}
