// Package engine runs a playthrough of an adventure document. An Engine owns
// all mutable state for one player: stats, inventory, visit and choice history,
// discovered secrets and fired one-time actions. It is not safe for concurrent
// use; run one engine per playthrough.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/conditions"
	"github.com/jwebster45206/adventure-engine/pkg/inventory"
	"github.com/jwebster45206/adventure-engine/pkg/stats"
	"github.com/jwebster45206/adventure-engine/pkg/validate"
)

var (
	ErrNotLoaded         = errors.New("no adventure loaded")
	ErrValidation        = errors.New("adventure failed validation")
	ErrSceneNotFound     = errors.New("scene not found")
	ErrChoiceNotFound    = errors.New("choice not found")
	ErrChoiceUnavailable = errors.New("choice not available")
	ErrItemNotFound      = errors.New("item not found")
	ErrItemNotHeld       = errors.New("item not held")
)

// Phase is the engine lifecycle state.
type Phase string

const (
	PhaseUnloaded      Phase = "unloaded"
	PhaseLoaded        Phase = "loaded"
	PhaseTransitioning Phase = "transitioning"
)

// Validator checks a document before it is accepted. A critical report aborts
// loading; anything less is logged.
type Validator interface {
	Validate(ctx context.Context, doc *adventure.Adventure) (validate.Report, error)
}

// HistoryEntry records one selected choice.
type HistoryEntry struct {
	SceneID  string    `json:"sceneId"`
	ChoiceID string    `json:"choiceId"`
	Input    any       `json:"inputValue,omitempty"`
	At       time.Time `json:"timestamp"`
}

// Unlock records an achievement.
type Unlock struct {
	ID   string    `json:"id"`
	Name string    `json:"name,omitempty"`
	At   time.Time `json:"at"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the playthrough logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source used for history and audit entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithValidator sets the validator awaited by Load.
func WithValidator(v Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithRegistry sets the custom stat type registry.
func WithRegistry(r *stats.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithCacheSize sets the condition cache high-water mark.
func WithCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// Engine orchestrates one playthrough.
type Engine struct {
	doc       *adventure.Adventure
	phase     Phase
	stats     *stats.Store
	inventory *inventory.Store
	eval      *conditions.Evaluator

	current      string
	visited      []string
	visitCounts  map[string]int
	visits       int
	history      []HistoryEntry
	choiceCounts map[string]int // by choice id, for history conditions
	uses         map[string]int // by choiceKey
	lastChosen   map[string]int // by choiceKey
	discovered   []string       // choiceKeys in discovery order
	isDiscovered map[string]bool
	fired        map[string]bool
	achievements []Unlock

	choiceCache *choiceCache

	validator Validator
	registry  *stats.Registry
	cacheSize int
	logger    *slog.Logger
	now       func() time.Time
}

// New returns an unloaded engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		phase:     PhaseUnloaded,
		cacheSize: conditions.DefaultMaxEntries,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = stats.NewRegistry()
	}
	return e
}

// Load validates doc, resets all state from its definitions and enters the
// start scene. Only structural problems and critical validation fail it.
func (e *Engine) Load(ctx context.Context, doc *adventure.Adventure) error {
	if err := e.accept(ctx, doc); err != nil {
		return err
	}
	e.reset(doc)
	if !e.NavigateToScene(doc.StartSceneID) {
		return fmt.Errorf("%w: start scene %q", ErrSceneNotFound, doc.StartSceneID)
	}
	e.logger.Info("Adventure loaded", "adventure", doc.ID, "scenes", len(doc.Scenes))
	return nil
}

func (e *Engine) accept(ctx context.Context, doc *adventure.Adventure) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", adventure.ErrInvalidDocument)
	}
	if err := doc.Check(); err != nil {
		return err
	}
	if e.validator == nil {
		return nil
	}

	report, err := e.validator.Validate(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to validate adventure: %w", err)
	}
	for _, w := range report.Warnings {
		e.logger.Warn("Adventure validation warning", "adventure", doc.ID, "warning", w.Message, "path", w.Path)
	}
	if report.Severity == validate.SeverityCritical {
		for _, ve := range report.Errors {
			e.logger.Error("Adventure validation error", "adventure", doc.ID, "error", ve.Message, "path", ve.Path)
		}
		return fmt.Errorf("%w: %s", ErrValidation, report.Summary())
	}
	for _, ve := range report.Errors {
		e.logger.Warn("Adventure validation error", "adventure", doc.ID, "error", ve.Message, "path", ve.Path)
	}
	return nil
}

// reset discards all playthrough state and rebuilds the stores for doc.
func (e *Engine) reset(doc *adventure.Adventure) {
	e.doc = doc
	e.phase = PhaseLoaded
	e.stats = stats.New(doc.Stats,
		stats.WithRegistry(e.registry),
		stats.WithLogger(e.logger),
		stats.WithClock(e.now),
	)
	invOpts := []inventory.Option{inventory.WithLogger(e.logger), inventory.WithClock(e.now)}
	if m := inventory.NewStatMirror(e.stats); m != nil {
		invOpts = append(invOpts, inventory.WithMirror(m))
	}
	e.inventory = inventory.New(doc.Inventory, invOpts...)
	e.inventory.Reset() // syncs total_items with the empty ledger
	e.eval = conditions.New(conditions.WithMaxEntries(e.cacheSize), conditions.WithLogger(e.logger))

	e.current = ""
	e.visited = nil
	e.visitCounts = make(map[string]int)
	e.visits = 0
	e.history = nil
	e.choiceCounts = make(map[string]int)
	e.uses = make(map[string]int)
	e.lastChosen = make(map[string]int)
	e.discovered = nil
	e.isDiscovered = make(map[string]bool)
	e.fired = make(map[string]bool)
	e.achievements = nil
	e.choiceCache = nil
}

// Phase returns the lifecycle state.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Loaded reports whether an adventure is loaded.
func (e *Engine) Loaded() bool {
	return e.doc != nil
}

// Document returns the loaded adventure.
func (e *Engine) Document() *adventure.Adventure {
	return e.doc
}

// Stats exposes the stat store for reading. Mutate state through the engine.
func (e *Engine) Stats() *stats.Store {
	return e.stats
}

// Inventory exposes the ledger for reading. Mutate state through the engine.
func (e *Engine) Inventory() *inventory.Store {
	return e.inventory
}

// Evaluator returns the playthrough's condition evaluator.
func (e *Engine) Evaluator() *conditions.Evaluator {
	return e.eval
}

// History returns the choice history, oldest first.
func (e *Engine) History() []HistoryEntry {
	return slices.Clone(e.history)
}

// Visited returns visited scene ids in first-visit order.
func (e *Engine) Visited() []string {
	return slices.Clone(e.visited)
}

// Discovered returns discovered secrets as "scene/choice" keys in discovery
// order.
func (e *Engine) Discovered() []string {
	return slices.Clone(e.discovered)
}

// IsDiscovered reports whether the secret choiceID in sceneID has been
// discovered.
func (e *Engine) IsDiscovered(sceneID, choiceID string) bool {
	return e.isDiscovered[choiceKey(sceneID, choiceID)]
}

// choiceKey identifies a choice across the document. Choice ids are only
// unique within their scene.
func choiceKey(sceneID, choiceID string) string {
	return sceneID + "/" + choiceID
}

// Achievements returns unlocked achievements in unlock order.
func (e *Engine) Achievements() []Unlock {
	return slices.Clone(e.achievements)
}

// invalidate drops the condition cache and the derived choice cache.
func (e *Engine) invalidate() {
	e.eval.Invalidate()
	e.choiceCache = nil
}

// recordDiscovery adds a secret to the discovered set. It reports false when
// the secret was already known.
func (e *Engine) recordDiscovery(sceneID, choiceID string) bool {
	key := choiceKey(sceneID, choiceID)
	if e.isDiscovered[key] {
		return false
	}
	e.isDiscovered[key] = true
	e.discovered = append(e.discovered, key)
	e.choiceCache = nil
	e.logger.Info("Secret choice discovered", "scene", sceneID, "choice", choiceID)
	return true
}

// view adapts the engine to conditions.State.
type view struct{ e *Engine }

var _ conditions.State = view{}

func (v view) StatValue(id string) (any, bool)   { return v.e.stats.Get(id) }
func (v view) Flag(id string) bool               { return v.e.stats.Flag(id) }
func (v view) Quantity(item string) int          { return v.e.inventory.Quantity(item) }
func (v view) CategoryCount(category string) int { return v.e.inventory.CategoryCount(category) }
func (v view) TotalItems() int                   { return v.e.inventory.TotalCount() }
func (v view) TotalWeight() float64              { return v.e.inventory.TotalWeight() }
func (v view) TotalValue() float64               { return v.e.inventory.TotalValue() }
func (v view) Visited(scene string) bool         { return v.e.visitCounts[scene] > 0 }
func (v view) VisitCount(scene string) int       { return v.e.visitCounts[scene] }
func (v view) ChoiceMade(choice string) bool     { return v.e.choiceCounts[choice] > 0 }
func (v view) ChoiceCount(choice string) int     { return v.e.choiceCounts[choice] }
func (v view) TotalChoices() int                 { return len(v.e.history) }
func (v view) UniqueScenes() int                 { return len(v.e.visited) }

// Versions counts total visits rather than unique scenes so revisits also
// refresh scene_visit_count conditions.
func (v view) Versions() conditions.Versions {
	return conditions.Versions{
		Stats:     v.e.stats.Version(),
		Inventory: v.e.inventory.Version(),
		Visited:   v.e.visits,
		History:   len(v.e.history),
	}
}

// Evaluate evaluates c against the current state.
func (e *Engine) Evaluate(c adventure.Condition) bool {
	if e.doc == nil {
		return false
	}
	return e.eval.Evaluate(c, view{e})
}
