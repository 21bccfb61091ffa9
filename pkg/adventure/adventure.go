// Package adventure defines the declarative adventure document: scenes, choices,
// condition trees, actions, and the stat/item/achievement definitions that seed a
// playthrough. Documents are immutable once loaded.
package adventure

import (
	"encoding/json"
	"errors"
)

// ErrInvalidDocument marks structural problems that make a document unplayable.
var ErrInvalidDocument = errors.New("invalid adventure document")

// DefaultMaxStack applies to items that do not declare a stack limit.
const DefaultMaxStack = 99

// Adventure is the static description of a branching narrative.
type Adventure struct {
	ID           string                  `json:"id,omitempty"`
	Title        string                  `json:"title,omitempty"`
	Description  string                  `json:"description,omitempty"`
	StartSceneID string                  `json:"startSceneId"`
	Scenes       []Scene                 `json:"scenes"`
	Stats        []StatDefinition        `json:"stats,omitempty"`
	Inventory    []ItemDefinition        `json:"inventory,omitempty"`
	Achievements []AchievementDefinition `json:"achievements,omitempty"`

	idx *index
}

// Scene is a node in the story graph.
type Scene struct {
	ID      string   `json:"id"`
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
	OnEnter Actions  `json:"onEnter,omitempty"`
	OnExit  Actions  `json:"onExit,omitempty"`
}

// Choice is an edge out of a scene, or a self-loop when IsFake is set.
type Choice struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Target   string `json:"target,omitempty"` // Scene to navigate to; empty for fake choices
	IsHidden bool   `json:"isHidden,omitempty"`
	IsLocked bool   `json:"isLocked,omitempty"`
	IsSecret bool   `json:"isSecret,omitempty"`
	IsFake   bool   `json:"isFake,omitempty"`

	Visibility   Condition `json:"visibility,omitempty"`   // Gates visibility; doubles as the discovery test for secrets
	Requirements Condition `json:"requirements,omitempty"` // Gates selectability
	SelectableIf Condition `json:"selectableIf,omitempty"` // Keeps the choice visible but disabled when false

	Actions Actions    `json:"actions,omitempty"`
	Input   *InputSpec `json:"input,omitempty"`

	// Usage limits. Advisory metadata interpreted by the engine.
	OneTime  bool `json:"oneTime,omitempty"`
	MaxUses  int  `json:"maxUses,omitempty"`
	Cooldown int  `json:"cooldown,omitempty"` // Measured in choices made since last use
}

// UnmarshalJSON decodes the three condition trees through DecodeCondition.
func (c *Choice) UnmarshalJSON(data []byte) error {
	type Alias Choice
	aux := &struct {
		*Alias
		Visibility   json.RawMessage `json:"visibility,omitempty"`
		Requirements json.RawMessage `json:"requirements,omitempty"`
		SelectableIf json.RawMessage `json:"selectableIf,omitempty"`
	}{Alias: (*Alias)(c)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var err error
	if c.Visibility, err = DecodeCondition(aux.Visibility); err != nil {
		return err
	}
	if c.Requirements, err = DecodeCondition(aux.Requirements); err != nil {
		return err
	}
	if c.SelectableIf, err = DecodeCondition(aux.SelectableIf); err != nil {
		return err
	}
	return nil
}

// HasTarget reports whether selecting the choice leaves the current scene.
func (c *Choice) HasTarget() bool {
	return c.Target != "" && !c.IsFake
}

// StatType names a built-in or registered stat value type.
type StatType string

const (
	StatNumber  StatType = "number"
	StatString  StatType = "string"
	StatBoolean StatType = "boolean"
)

// StatDefinition declares a stat and its bounds.
type StatDefinition struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	Type       StatType `json:"type,omitempty"` // number, string, boolean, or a registered custom type
	Default    any      `json:"default,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Category   string   `json:"category,omitempty"`
	Hidden     bool     `json:"hidden,omitempty"`
	Exportable *bool    `json:"exportable,omitempty"` // nil means exportable
}

// IsExportable reports whether the stat may leave the engine in exports.
func (d StatDefinition) IsExportable() bool {
	return d.Exportable == nil || *d.Exportable
}

// ItemDefinition declares an inventory item.
type ItemDefinition struct {
	ID         string  `json:"id"`
	Name       string  `json:"name,omitempty"`
	MaxStack   int     `json:"maxStack,omitempty"` // 1 for unique items; 0 means DefaultMaxStack
	Category   string  `json:"category,omitempty"`
	Value      float64 `json:"value,omitempty"`
	Weight     float64 `json:"weight,omitempty"`
	Consumable bool    `json:"consumable,omitempty"`
	OnUse      Actions `json:"onUse,omitempty"`
}

// StackLimit returns the effective maximum quantity for the item.
func (d ItemDefinition) StackLimit() int {
	if d.MaxStack <= 0 {
		return DefaultMaxStack
	}
	return d.MaxStack
}

// AchievementDefinition declares an unlockable achievement.
type AchievementDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
}

// InputKind is the kind of value a choice asks the player for.
type InputKind string

const (
	InputStatic InputKind = "static"
	InputText   InputKind = "text"
	InputNumber InputKind = "number"
	InputChoice InputKind = "choice"
)

// InputSpec declares a value captured when a choice is selected. The value is
// written to Target through the normal set_stat path.
type InputSpec struct {
	Kind    InputKind `json:"kind"`
	Target  string    `json:"target"`
	Prompt  string    `json:"prompt,omitempty"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Options []string  `json:"options,omitempty"`
	Default any       `json:"default,omitempty"`
}

type index struct {
	scenes       map[string]int
	stats        map[string]int
	items        map[string]int
	achievements map[string]int
}

// Index builds the lookup tables. Decode calls it; documents built in code
// are indexed lazily on first lookup.
func (a *Adventure) Index() {
	idx := &index{
		scenes:       make(map[string]int, len(a.Scenes)),
		stats:        make(map[string]int, len(a.Stats)),
		items:        make(map[string]int, len(a.Inventory)),
		achievements: make(map[string]int, len(a.Achievements)),
	}
	for i, s := range a.Scenes {
		if _, dup := idx.scenes[s.ID]; !dup {
			idx.scenes[s.ID] = i
		}
	}
	for i, s := range a.Stats {
		idx.stats[s.ID] = i
	}
	for i, it := range a.Inventory {
		idx.items[it.ID] = i
	}
	for i, ach := range a.Achievements {
		idx.achievements[ach.ID] = i
	}
	a.idx = idx
}

func (a *Adventure) lookup() *index {
	if a.idx == nil {
		a.Index()
	}
	return a.idx
}

// Scene returns the scene with the given id.
func (a *Adventure) Scene(id string) (*Scene, bool) {
	i, ok := a.lookup().scenes[id]
	if !ok {
		return nil, false
	}
	return &a.Scenes[i], true
}

// HasScene reports whether the scene id resolves.
func (a *Adventure) HasScene(id string) bool {
	_, ok := a.lookup().scenes[id]
	return ok
}

// Choice returns a choice within a scene.
func (a *Adventure) Choice(sceneID, choiceID string) (*Choice, bool) {
	scene, ok := a.Scene(sceneID)
	if !ok {
		return nil, false
	}
	for i := range scene.Choices {
		if scene.Choices[i].ID == choiceID {
			return &scene.Choices[i], true
		}
	}
	return nil, false
}

// StatDefinition returns the definition for a stat id.
func (a *Adventure) StatDefinition(id string) (*StatDefinition, bool) {
	i, ok := a.lookup().stats[id]
	if !ok {
		return nil, false
	}
	return &a.Stats[i], true
}

// Item returns the definition for an item id.
func (a *Adventure) Item(id string) (*ItemDefinition, bool) {
	i, ok := a.lookup().items[id]
	if !ok {
		return nil, false
	}
	return &a.Inventory[i], true
}

// Achievement returns the definition for an achievement id.
func (a *Adventure) Achievement(id string) (*AchievementDefinition, bool) {
	i, ok := a.lookup().achievements[id]
	if !ok {
		return nil, false
	}
	return &a.Achievements[i], true
}
