// Package reply turns the body of an inbound message into reply actions and
// dispatches them.
package reply

import (
	"regexp"
	"strconv"

	"github.com/ppiankov/grantscout/internal/model"
)

// Action is one parsed reply command. The set of implementations is closed:
// Deeper, Details, Draft and Pivot.
type Action interface {
	Kind() model.ActionKind
	Target() int64
	action()
}

// Deeper asks for follow-up searches around a result
type Deeper struct{ ResultID int64 }

// Details asks for the title, url and snippet of a result
type Details struct{ ResultID int64 }

// Draft asks for an application note for a result
type Draft struct{ ResultID int64 }

// Pivot asks for alternative framings given a result
type Pivot struct{ ResultID int64 }

func (Deeper) Kind() model.ActionKind  { return model.ActionDeeper }
func (Details) Kind() model.ActionKind { return model.ActionDetails }
func (Draft) Kind() model.ActionKind   { return model.ActionDraft }
func (Pivot) Kind() model.ActionKind   { return model.ActionPivot }

func (a Deeper) Target() int64  { return a.ResultID }
func (a Details) Target() int64 { return a.ResultID }
func (a Draft) Target() int64   { return a.ResultID }
func (a Pivot) Target() int64   { return a.ResultID }

func (Deeper) action()  {}
func (Details) action() {}
func (Draft) action()   {}
func (Pivot) action()   {}

var (
	commandPattern = regexp.MustCompile(`(?i)^\s*(deeper|details|draft|pivot)\s+(\d+)\s*$`)
	lineBreak      = regexp.MustCompile(`\r\n|\r|\n`)
	unicodeSpace   = regexp.MustCompile(`\p{Zs}`) // NBSP and friends from HTML-to-text conversion
)

// Parse extracts one action per matching line of body, in order.
// Lines that do not match are ignored.
func Parse(body string) []Action {
	var actions []Action
	for _, line := range lineBreak.Split(body, -1) {
		m := commandPattern.FindStringSubmatch(unicodeSpace.ReplaceAllString(line, " "))
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue // overflows int64
		}
		kind, _ := model.ParseActionKind(m[1])
		if a, ok := NewAction(kind, id); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// NewAction builds the action variant for kind
func NewAction(kind model.ActionKind, id int64) (Action, bool) {
	switch kind {
	case model.ActionDeeper:
		return Deeper{ResultID: id}, true
	case model.ActionDetails:
		return Details{ResultID: id}, true
	case model.ActionDraft:
		return Draft{ResultID: id}, true
	case model.ActionPivot:
		return Pivot{ResultID: id}, true
	}
	return nil, false
}
