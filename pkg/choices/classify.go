// Package choices classifies a scene's choices as visible, hidden or locked.
//
// Classification is pure. Recording a secret's discovery is the caller's job;
// Classify only reports that it happened.
package choices

import (
	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/conditions"
)

// Status is the terminal classification of a choice.
type Status string

const (
	Visible Status = "VISIBLE"
	Hidden  Status = "HIDDEN"
	Locked  Status = "LOCKED"
)

// Evaluator is the subset of the condition evaluator Classify needs.
type Evaluator interface {
	Evaluate(c adventure.Condition, s conditions.State) bool
	Explain(c adventure.Condition, s conditions.State) string
}

// Classification is the outcome for one choice.
type Classification struct {
	Status     Status `json:"status"`
	Selectable bool   `json:"selectable"`
	Reason     string `json:"reason,omitempty"`

	// NewlyDiscovered is set the first time a secret's visibility holds. The
	// caller must record the discovery exactly once.
	NewlyDiscovered bool `json:"-"`
}

// Classify applies the rules in order: secret, locked, hidden, default. The
// first rule that matches decides.
func Classify(c *adventure.Choice, discovered bool, eval Evaluator, s conditions.State) Classification {
	switch {
	case c.IsSecret:
		if !discovered {
			if !eval.Evaluate(c.Visibility, s) {
				return Classification{Status: Hidden}
			}
			out := gate(c, eval, s)
			out.NewlyDiscovered = true
			return out
		}
		return gate(c, eval, s)

	case c.IsLocked || !adventure.IsEmpty(c.Requirements):
		return gate(c, eval, s)

	case c.IsHidden || !adventure.IsEmpty(c.Visibility):
		if adventure.IsEmpty(c.Visibility) || !eval.Evaluate(c.Visibility, s) {
			return Classification{Status: Hidden}
		}
		return gate(c, eval, s)

	default:
		return gate(c, eval, s)
	}
}

// gate decides selectability for a choice already known to be visible.
func gate(c *adventure.Choice, eval Evaluator, s conditions.State) Classification {
	if !adventure.IsEmpty(c.Requirements) && !eval.Evaluate(c.Requirements, s) {
		return Classification{Status: Locked, Reason: eval.Explain(c.Requirements, s)}
	}
	if !adventure.IsEmpty(c.SelectableIf) && !eval.Evaluate(c.SelectableIf, s) {
		return Classification{Status: Locked, Reason: eval.Explain(c.SelectableIf, s)}
	}
	return Classification{Status: Visible, Selectable: true}
}

// Shown reports whether a classification is visible to the player, selectable
// or not.
func (c Classification) Shown() bool {
	return c.Status != Hidden
}
