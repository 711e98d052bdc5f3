// Package brief defines the research brief artifact: the structured
// contract produced by the clarification stage and consumed by the
// research stage. A brief names the topic plus the objectives, key
// questions, and constraints that scope the research.
package brief

import (
	"errors"
	"strings"
)

// ErrEmptyTopic reports a brief whose topic is missing or blank.
var ErrEmptyTopic = errors.New("brief topic is required")

// Brief scopes a research run. Topic is mandatory; the slices may be
// empty, in which case research proceeds on the topic alone.
type Brief struct {
	Topic        string   `json:"topic"`
	Objectives   []string `json:"objectives,omitempty"`
	KeyQuestions []string `json:"key_questions,omitempty"`
	Constraints  []string `json:"constraints,omitempty"`
}

// Validate checks that the brief carries a non-blank topic.
func (b *Brief) Validate() error {
	if strings.TrimSpace(b.Topic) == "" {
		return ErrEmptyTopic
	}
	return nil
}

// Normalize trims all entries, drops blanks, and dedupes constraints
// while preserving first-seen order. It mutates the receiver and
// returns it for chaining.
func (b *Brief) Normalize() *Brief {
	b.Topic = strings.TrimSpace(b.Topic)
	b.Objectives = cleanList(b.Objectives, false)
	b.KeyQuestions = cleanList(b.KeyQuestions, false)
	b.Constraints = cleanList(b.Constraints, true)
	return b
}

// Clone returns a deep copy. An approved brief attached to a session is
// treated as immutable; callers mutate clones.
func (b *Brief) Clone() *Brief {
	if b == nil {
		return nil
	}
	out := &Brief{Topic: b.Topic}
	if b.Objectives != nil {
		out.Objectives = append([]string(nil), b.Objectives...)
	}
	if b.KeyQuestions != nil {
		out.KeyQuestions = append([]string(nil), b.KeyQuestions...)
	}
	if b.Constraints != nil {
		out.Constraints = append([]string(nil), b.Constraints...)
	}
	return out
}

func cleanList(items []string, dedupe bool) []string {
	if items == nil {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if dedupe {
			if seen[item] {
				continue
			}
			seen[item] = true
		}
		out = append(out, item)
	}
	return out
}
