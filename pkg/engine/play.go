package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/choices"
	"github.com/jwebster45206/adventure-engine/pkg/conditions"
	"github.com/jwebster45206/adventure-engine/pkg/stats"
)

// ChoiceView is a choice as presented to the player.
type ChoiceView struct {
	ID         string               `json:"id"`
	Text       string               `json:"text"`
	Target     string               `json:"target,omitempty"`
	Status     choices.Status       `json:"status"`
	Selectable bool                 `json:"selectable"`
	Reason     string               `json:"reason,omitempty"`
	Secret     bool                 `json:"secret,omitempty"`
	Input      *adventure.InputSpec `json:"input,omitempty"`
	UsesLeft   *int                 `json:"usesLeft,omitempty"`
}

// Submission carries a player-supplied input value.
type Submission struct {
	Value any `json:"value"`
}

// Outcome describes the effect of a selected choice.
type Outcome struct {
	ChoiceID   string         `json:"choiceId"`
	FromScene  string         `json:"fromScene"`
	SceneID    string         `json:"sceneId"`
	Moved      bool           `json:"moved"`
	Input      any            `json:"input,omitempty"`
	Results    []ActionResult `json:"results,omitempty"`
	Discovered []string       `json:"discovered,omitempty"` // scene/choice keys
}

// choiceCache holds classifications for the current scene until the state or
// the scene changes.
type choiceCache struct {
	scene    string
	versions conditions.Versions
	entries  map[string]choices.Classification
}

// CurrentChoices classifies every choice in the current scene and returns the
// visible ones, locked ones included. Hidden choices are never returned.
// Secrets found during classification are recorded as discovered.
func (e *Engine) CurrentChoices() []ChoiceView {
	scene, ok := e.CurrentScene()
	if !ok {
		return nil
	}
	out := make([]ChoiceView, 0, len(scene.Choices))
	for i := range scene.Choices {
		c := &scene.Choices[i]
		cls := e.classify(c)
		if !cls.Shown() {
			continue
		}
		out = append(out, ChoiceView{
			ID:         c.ID,
			Text:       c.Text,
			Target:     c.Target,
			Status:     cls.Status,
			Selectable: cls.Selectable,
			Reason:     cls.Reason,
			Secret:     c.IsSecret,
			Input:      c.Input,
			UsesLeft:   e.usesLeft(c),
		})
	}
	return out
}

// classify runs the classifier, records discoveries and applies usage limits.
func (e *Engine) classify(c *adventure.Choice) choices.Classification {
	v := view{e}
	versions := v.Versions()
	if e.choiceCache == nil || e.choiceCache.scene != e.current || e.choiceCache.versions != versions {
		e.choiceCache = &choiceCache{scene: e.current, versions: versions, entries: make(map[string]choices.Classification)}
	}
	if cls, ok := e.choiceCache.entries[c.ID]; ok {
		return cls
	}

	cls := choices.Classify(c, e.IsDiscovered(e.current, c.ID), e.eval, v)
	if cls.NewlyDiscovered {
		e.recordDiscovery(e.current, c.ID)
		cls.NewlyDiscovered = false
	}
	if cls.Shown() && cls.Selectable {
		if reason := e.exhausted(c); reason != "" {
			cls = choices.Classification{Status: choices.Locked, Reason: reason}
		}
	}

	if e.choiceCache == nil {
		e.choiceCache = &choiceCache{scene: e.current, versions: versions, entries: make(map[string]choices.Classification)}
	}
	e.choiceCache.entries[c.ID] = cls
	return cls
}

// exhausted returns why a choice's usage limits currently block it.
func (e *Engine) exhausted(c *adventure.Choice) string {
	key := choiceKey(e.current, c.ID)
	uses := e.uses[key]
	switch {
	case c.OneTime && uses > 0:
		return "Already chosen"
	case c.MaxUses > 0 && uses >= c.MaxUses:
		return "No uses left"
	}
	if c.Cooldown > 0 {
		if last, ok := e.lastChosen[key]; ok {
			since := len(e.history) - 1 - last
			if wait := c.Cooldown - since; wait > 0 {
				return fmt.Sprintf("Available again in %d %s", wait, plural(wait, "choice", "choices"))
			}
		}
	}
	return ""
}

func (e *Engine) usesLeft(c *adventure.Choice) *int {
	limit := c.MaxUses
	if c.OneTime && (limit == 0 || limit > 1) {
		limit = 1
	}
	if limit == 0 {
		return nil
	}
	left := max(0, limit-e.uses[choiceKey(e.current, c.ID)])
	return &left
}

// MakeChoice selects a choice in the current scene. A missing, hidden or
// locked choice is rejected without any state change. Otherwise the selection
// is recorded, the input (if any) is written through set_stat, the choice's
// actions run in order, and the player moves to the target scene. Fake
// choices stay in place but still rescan for discoveries.
func (e *Engine) MakeChoice(choiceID string, sub *Submission) (*Outcome, error) {
	if e.doc == nil {
		return nil, ErrNotLoaded
	}
	c, ok := e.doc.Choice(e.current, choiceID)
	if !ok {
		e.logger.Error("Choice not found", "scene", e.current, "choice", choiceID)
		return nil, fmt.Errorf("%w: %q in scene %q", ErrChoiceNotFound, choiceID, e.current)
	}

	cls := e.classify(c)
	if !cls.Shown() || !cls.Selectable {
		e.logger.Warn("Rejected unavailable choice", "scene", e.current, "choice", choiceID, "status", cls.Status, "reason", cls.Reason)
		if !cls.Shown() {
			return nil, fmt.Errorf("%w: %q", ErrChoiceUnavailable, choiceID)
		}
		return nil, fmt.Errorf("%w: %q: %s", ErrChoiceUnavailable, choiceID, cls.Reason)
	}

	out := &Outcome{ChoiceID: choiceID, FromScene: e.current, SceneID: e.current}
	entry := HistoryEntry{SceneID: e.current, ChoiceID: choiceID, At: e.now()}

	var input *adventure.SetStat
	if c.Input != nil {
		var raw any
		if sub != nil {
			raw = sub.Value
		}
		value := coerceInput(c.Input, raw)
		entry.Input = value
		out.Input = value
		if c.Input.Target != "" && value != nil {
			input = &adventure.SetStat{Stat: c.Input.Target, Value: value}
		}
	}

	e.history = append(e.history, entry)
	e.choiceCounts[choiceID]++
	e.uses[choiceKey(e.current, choiceID)]++
	e.lastChosen[choiceKey(e.current, choiceID)] = len(e.history) - 1

	var batch adventure.Actions
	if input != nil {
		batch = append(batch, input)
	}
	batch = append(batch, c.Actions...)
	out.Results = e.ExecuteActions(batch)

	before := len(e.discovered)
	if c.HasTarget() {
		out.Moved = e.NavigateToScene(c.Target)
	} else if scene, ok := e.CurrentScene(); ok {
		e.scanDiscoveries(scene)
		e.invalidate()
	}
	out.SceneID = e.current
	out.Discovered = slices.Clone(e.discovered[before:])

	e.logger.Debug("Choice made", "choice", choiceID, "from", out.FromScene, "to", out.SceneID)
	return out, nil
}

// coerceInput converts a submitted value to the input kind. Numbers are
// clamped, text falls back to the default, and enumerated choices fall back to
// the first option.
func coerceInput(spec *adventure.InputSpec, raw any) any {
	switch spec.Kind {
	case adventure.InputNumber:
		n, ok := stats.Number(raw)
		if !ok || math.IsNaN(n) {
			n, ok = stats.Number(spec.Default)
			if !ok {
				n = 0
				if spec.Min != nil {
					n = *spec.Min
				}
			}
		}
		if spec.Min != nil && n < *spec.Min {
			n = *spec.Min
		}
		if spec.Max != nil && n > *spec.Max {
			n = *spec.Max
		}
		return n

	case adventure.InputChoice:
		s := strings.TrimSpace(stats.String(raw))
		for _, opt := range spec.Options {
			if strings.EqualFold(opt, s) {
				return opt
			}
		}
		if d := stats.String(spec.Default); d != "" && slices.Contains(spec.Options, d) {
			return d
		}
		if len(spec.Options) > 0 {
			return spec.Options[0]
		}
		return ""

	case adventure.InputText:
		s := strings.TrimSpace(stats.String(raw))
		if s == "" {
			return stats.String(spec.Default)
		}
		return s

	default:
		return spec.Default
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
