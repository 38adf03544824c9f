package model

import (
	"strings"
	"time"
)

// ActionKind names a reply command
type ActionKind string

const (
	ActionDeeper  ActionKind = "deeper"  // search further around one result
	ActionDetails ActionKind = "details" // echo title/url/snippet
	ActionDraft   ActionKind = "draft"   // draft an application note
	ActionPivot   ActionKind = "pivot"   // suggest alternative framings
)

// ActionKinds lists every kind in the order the digest footer shows them.
var ActionKinds = []ActionKind{ActionDeeper, ActionDetails, ActionDraft, ActionPivot}

// ParseActionKind matches s case-insensitively against the known kinds.
func ParseActionKind(s string) (ActionKind, bool) {
	k := ActionKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ActionKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// ActionRecord is one audit log row. Append-only, never read by the pipeline.
type ActionRecord struct {
	Kind      ActionKind `json:"kind"`
	ResultID  int64      `json:"result_id"`
	Subject   string     `json:"subject"` // subject of the inbound message
	CreatedAt time.Time  `json:"created_at"`
}

// Message is an inbound or outbound plain-text email
type Message struct {
	MessageID string
	From      string
	To        []string
	Subject   string
	Body      string
}
