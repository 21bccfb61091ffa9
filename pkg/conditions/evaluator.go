// Package conditions evaluates condition trees against a playthrough's state.
//
// Evaluation fails closed: unknown leaf types, operators and logic evaluate to
// false. Results are memoised until any of the four state counters moves, at
// which point the whole cache is dropped.
package conditions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/stats"
)

// DefaultMaxEntries is the cache high-water mark.
const DefaultMaxEntries = 500

// Versions are the counters that key the cache. Each only ever grows.
type Versions struct {
	Stats     uint64
	Inventory uint64
	Visited   int
	History   int
}

// State is the read-only view of a playthrough that leaves resolve against.
type State interface {
	StatValue(id string) (any, bool)
	Flag(id string) bool

	Quantity(item string) int
	CategoryCount(category string) int
	TotalItems() int
	TotalWeight() float64
	TotalValue() float64

	Visited(scene string) bool
	VisitCount(scene string) int
	ChoiceMade(choice string) bool
	ChoiceCount(choice string) int
	TotalChoices() int
	UniqueScenes() int

	Versions() Versions
}

// CacheStats counts cache lookups since the evaluator was created.
type CacheStats struct {
	Hits   int
	Misses int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxEntries sets the cache high-water mark. Non-positive values are
// ignored.
func WithMaxEntries(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxEntries = n
		}
	}
}

// WithLogger sets the logger used for semantic warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// Evaluator evaluates and memoises condition trees. It belongs to a single
// playthrough and is not safe for concurrent use.
type Evaluator struct {
	maxEntries int
	versions   Versions
	cache      map[string]bool
	order      []string
	regexes    map[string]*regexp.Regexp
	stats      CacheStats
	logger     *slog.Logger
}

// New returns an evaluator with an empty cache.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		maxEntries: DefaultMaxEntries,
		cache:      make(map[string]bool),
		regexes:    make(map[string]*regexp.Regexp),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate reports whether c holds in s. A nil condition holds.
func (e *Evaluator) Evaluate(c adventure.Condition, s State) bool {
	if c == nil {
		return true
	}
	v := s.Versions()
	if v != e.versions {
		e.Invalidate()
		e.versions = v
	}

	key, ok := cacheKey(c, v)
	if ok {
		if result, hit := e.cache[key]; hit {
			e.stats.Hits++
			return result
		}
	}
	e.stats.Misses++

	result := e.eval(c, s)
	if ok {
		e.store(key, result)
	}
	return result
}

// Invalidate drops every cached result.
func (e *Evaluator) Invalidate() {
	clear(e.cache)
	e.order = e.order[:0]
}

// Len is the number of cached results.
func (e *Evaluator) Len() int {
	return len(e.cache)
}

// CacheStats returns lookup counters.
func (e *Evaluator) CacheStats() CacheStats {
	return e.stats
}

func (e *Evaluator) store(key string, result bool) {
	e.cache[key] = result
	e.order = append(e.order, key)
	if len(e.cache) <= e.maxEntries {
		return
	}
	// Keep the most recently inserted half.
	keep := e.maxEntries / 2
	drop := len(e.order) - keep
	for _, k := range e.order[:drop] {
		delete(e.cache, k)
	}
	e.order = append(e.order[:0], e.order[drop:]...)
}

func cacheKey(c adventure.Condition, v Versions) (string, bool) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%d:%d:%d:%d|%s", v.Stats, v.Inventory, v.Visited, v.History, data), true
}

func (e *Evaluator) eval(c adventure.Condition, s State) bool {
	switch n := c.(type) {
	case *adventure.Group:
		return e.evalGroup(n, s)
	case *adventure.StatCondition:
		actual, _ := s.StatValue(n.Key)
		return e.compare(n.Leaf, actual, n.Value)
	case *adventure.FlagCondition:
		return e.compare(n.Leaf, s.Flag(n.Key), expectTrue(n.Value))
	case *adventure.SceneCondition:
		return e.compare(n.Leaf, s.Visited(n.Key), expectTrue(n.Value))
	case *adventure.InventoryCondition:
		return e.evalInventory(n, s)
	case *adventure.HistoryCondition:
		return e.evalHistory(n, s)
	case *adventure.UnknownCondition:
		e.logger.Warn("Unknown condition type", "type", n.Type, "key", n.Key)
		return false
	default:
		e.logger.Warn("Unsupported condition node", "node", fmt.Sprintf("%T", c))
		return false
	}
}

func (e *Evaluator) evalGroup(g *adventure.Group, s State) bool {
	if g == nil {
		return true
	}
	count := 0
	for _, child := range g.Conditions {
		if e.eval(child, s) {
			count++
		}
	}
	n := len(g.Conditions)
	switch g.Logic {
	case adventure.LogicAnd, "":
		return count == n
	case adventure.LogicOr:
		return count > 0
	case adventure.LogicNot, adventure.LogicNor:
		return count == 0
	case adventure.LogicXor:
		return count == 1
	case adventure.LogicNand:
		return count < n
	default:
		e.logger.Warn("Unknown condition logic", "logic", g.Logic)
		return false
	}
}

func (e *Evaluator) evalInventory(n *adventure.InventoryCondition, s State) bool {
	switch n.Kind {
	case adventure.InventoryHas:
		return e.compare(n.Leaf, s.Quantity(n.Key) > 0, expectTrue(n.Value))
	case adventure.InventoryCount:
		return e.compare(n.Leaf, float64(s.Quantity(n.Key)), n.Value)
	case adventure.InventoryCategory:
		if n.Value == nil {
			return e.compare(n.Leaf, s.CategoryCount(n.Key) > 0, true)
		}
		return e.compare(n.Leaf, float64(s.CategoryCount(n.Key)), n.Value)
	case adventure.InventoryTotal:
		return e.compare(n.Leaf, float64(s.TotalItems()), n.Value)
	case adventure.InventoryWeight:
		return e.compare(n.Leaf, s.TotalWeight(), n.Value)
	case adventure.InventoryValue:
		return e.compare(n.Leaf, s.TotalValue(), n.Value)
	default:
		e.logger.Warn("Unknown inventory condition", "type", n.Type)
		return false
	}
}

func (e *Evaluator) evalHistory(n *adventure.HistoryCondition, s State) bool {
	switch n.Kind {
	case adventure.HistoryChoiceMade:
		return e.compare(n.Leaf, s.ChoiceMade(n.Key), expectTrue(n.Value))
	case adventure.HistoryChoiceCount:
		return e.compare(n.Leaf, float64(s.ChoiceCount(n.Key)), n.Value)
	case adventure.HistorySceneVisitCount:
		return e.compare(n.Leaf, float64(s.VisitCount(n.Key)), n.Value)
	case adventure.HistoryTotalChoices:
		return e.compare(n.Leaf, float64(s.TotalChoices()), n.Value)
	case adventure.HistoryUniqueScenes:
		return e.compare(n.Leaf, float64(s.UniqueScenes()), n.Value)
	default:
		e.logger.Warn("Unknown history condition", "type", n.Type)
		return false
	}
}

// compare applies the leaf's operator, logging and failing closed on an
// unknown operator.
func (e *Evaluator) compare(l adventure.Leaf, actual, expected any) bool {
	result, known := e.apply(l.Operator, actual, expected)
	if !known {
		e.logger.Warn("Unknown condition operator", "type", l.Type, "key", l.Key, "operator", l.Operator)
		return false
	}
	return result
}

func expectTrue(v any) any {
	if v == nil {
		return true
	}
	if b, ok := stats.Bool(v); ok {
		return b
	}
	return v
}
