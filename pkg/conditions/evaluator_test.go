package conditions

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeState is a hand-built State for evaluator tests.
type fakeState struct {
	stats      map[string]any
	flags      map[string]bool
	items      map[string]int
	categories map[string]int
	weight     float64
	value      float64
	visits     map[string]int
	choices    map[string]int
	versions   Versions
}

func newFakeState() *fakeState {
	return &fakeState{
		stats:      map[string]any{},
		flags:      map[string]bool{},
		items:      map[string]int{},
		categories: map[string]int{},
		visits:     map[string]int{},
		choices:    map[string]int{},
	}
}

func (f *fakeState) Flag(id string) bool { return f.flags[id] }
func (f *fakeState) Quantity(item string) int { return f.items[item] }
func (f *fakeState) CategoryCount(c string) int { return f.categories[c] }
func (f *fakeState) TotalWeight() float64 { return f.weight }
func (f *fakeState) TotalValue() float64 { return f.value }
func (f *fakeState) Visited(scene string) bool { return f.visits[scene] > 0 }
func (f *fakeState) VisitCount(scene string) int { return f.visits[scene] }
func (f *fakeState) ChoiceMade(choice string) bool { return f.choices[choice] > 0 }
func (f *fakeState) ChoiceCount(choice string) int { return f.choices[choice] }
func (f *fakeState) UniqueScenes() int { return len(f.visits) }
func (f *fakeState) Versions() Versions { return f.versions }

func (f *fakeState) StatValue(id string) (any, bool) {
	v, ok := f.stats[id]
	return v, ok
}

func (f *fakeState) TotalItems() int {
	total := 0
	for _, q := range f.items {
		total += q
	}
	return total
}

func (f *fakeState) TotalChoices() int {
	total := 0
	for _, n := range f.choices {
		total += n
	}
	return total
}

func newTestEvaluator(opts ...Option) *Evaluator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

func leaf(typ string, op adventure.Operator, key string, value any) adventure.Condition {
	return adventure.NewLeaf(typ, op, key, value)
}

func TestEvaluate_Leaves(t *testing.T) {
	s := newFakeState()
	s.stats["gold"] = 5.0
	s.stats["name"] = "Ada Lovelace"
	s.flags["foundKey"] = true
	s.items["potion"] = 2
	s.categories["consumable"] = 2
	s.weight = 1.5
	s.value = 20
	s.visits["entrance"] = 3
	s.choices["pay"] = 2

	tests := []struct {
		name string
		cond adventure.Condition
		want bool
	}{
		{"stat gte fails", leaf("stat", adventure.OpGreaterEq, "gold", 10.0), false},
		{"stat lt", leaf("stat", adventure.OpLess, "gold", 10.0), true},
		{"stat eq numeric string", leaf("stat", adventure.OpEquals, "gold", "5"), true},
		{"stat neq", leaf("stat", adventure.OpNotEquals, "gold", 4.0), true},
		{"missing stat compares false", leaf("stat", adventure.OpGreaterEq, "xp", 0.0), false},
		{"stat contains", leaf("stat", adventure.OpContains, "name", "Love"), true},
		{"stat starts_with", leaf("stat", adventure.OpStartsWith, "name", "Ada"), true},
		{"stat ends_with", leaf("stat", adventure.OpEndsWith, "name", "Ada"), false},
		{"stat matches", leaf("stat", adventure.OpMatches, "name", `^A\w+ L`), true},
		{"invalid regex fails closed", leaf("stat", adventure.OpMatches, "name", `(`), false},
		{"stat in list", leaf("stat", adventure.OpIn, "gold", []any{1.0, 5.0}), true},
		{"stat in csv", leaf("stat", adventure.OpIn, "name", "Bob, Ada Lovelace"), true},
		{"stat not_in", leaf("stat", adventure.OpNotIn, "gold", []any{1.0, 2.0}), true},
		{"stat between", leaf("stat", adventure.OpBetween, "gold", []any{1.0, 5.0}), true},
		{"stat between map", leaf("stat", adventure.OpBetween, "gold", map[string]any{"min": 6.0, "max": 9.0}), false},
		{"stat not_between", leaf("stat", adventure.OpNotBetween, "gold", []any{6.0, 9.0}), true},
		{"malformed range", leaf("stat", adventure.OpBetween, "gold", 3.0), false},
		{"flag default true", leaf("flag", adventure.OpEquals, "foundKey", nil), true},
		{"flag expected false", leaf("flag", adventure.OpEquals, "foundKey", false), false},
		{"unset flag is false", leaf("flag", adventure.OpEquals, "door", false), true},
		{"scene visited", leaf("scene_visited", adventure.OpEquals, "entrance", nil), true},
		{"scene not visited", leaf("scene_visited", adventure.OpEquals, "vault", nil), false},
		{"has item", leaf("has_item", adventure.OpEquals, "potion", nil), true},
		{"missing item", leaf("has_item", adventure.OpEquals, "sword", nil), false},
		{"item count", leaf("item_count", adventure.OpGreaterEq, "potion", 2.0), true},
		{"item category", leaf("item_category", adventure.OpEquals, "consumable", nil), true},
		{"item category count", leaf("item_category", adventure.OpGreater, "weapon", 0.0), false},
		{"inventory total", leaf("inventory_total", adventure.OpEquals, "", 2.0), true},
		{"inventory weight", leaf("inventory_weight", adventure.OpLess, "", 2.0), true},
		{"inventory value", leaf("inventory_value", adventure.OpGreater, "", 50.0), false},
		{"choice made", leaf("choice_made", adventure.OpEquals, "pay", nil), true},
		{"choice count", leaf("choice_count", adventure.OpEquals, "pay", 2.0), true},
		{"scene visit count", leaf("scene_visit_count", adventure.OpGreaterEq, "entrance", 3.0), true},
		{"total choices", leaf("total_choices", adventure.OpEquals, "", 2.0), true},
		{"unique scenes", leaf("unique_scenes", adventure.OpEquals, "", 1.0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEvaluator()
			assert.Equal(t, tt.want, e.Evaluate(tt.cond, s))
		})
	}
}

func TestEvaluate_FailsClosed(t *testing.T) {
	s := newFakeState()
	s.stats["gold"] = 5.0
	e := newTestEvaluator()

	assert.False(t, e.Evaluate(leaf("weather", adventure.OpEquals, "rain", true), s), "unknown leaf type")
	assert.False(t, e.Evaluate(leaf("stat", "roughly", "gold", 5.0), s), "unknown operator")

	s.categories["weapon"] = 1
	assert.True(t, e.Evaluate(leaf(adventure.TypeItemCategory, adventure.OpEquals, "weapon", nil), s))
	assert.False(t, e.Evaluate(leaf(adventure.TypeItemCategory, "bogus", "weapon", nil), s), "unknown operator on a bare category check")
	assert.False(t, e.Evaluate(leaf(adventure.TypeItemCategory, adventure.OpNotEquals, "weapon", nil), s))
	assert.False(t, e.Evaluate(&adventure.Group{Logic: "MAYBE", Conditions: []adventure.Condition{
		leaf("stat", adventure.OpEquals, "gold", 5.0),
	}}, s), "unknown logic")
	assert.False(t, e.Evaluate(adventure.All(
		leaf("stat", adventure.OpEquals, "gold", 5.0),
		leaf("weather", adventure.OpEquals, "rain", true),
	), s), "unknown leaf inside a group")
}

func TestEvaluate_Logic(t *testing.T) {
	s := newFakeState()
	s.flags["a"] = true
	yes := leaf("flag", adventure.OpEquals, "a", nil)
	no := leaf("flag", adventure.OpEquals, "b", nil)

	tests := []struct {
		logic adventure.Logic
		conds []adventure.Condition
		want  bool
	}{
		{adventure.LogicAnd, []adventure.Condition{yes, yes}, true},
		{adventure.LogicAnd, []adventure.Condition{yes, no}, false},
		{adventure.LogicAnd, nil, true},
		{adventure.LogicOr, []adventure.Condition{no, yes}, true},
		{adventure.LogicOr, []adventure.Condition{no, no}, false},
		{adventure.LogicNot, []adventure.Condition{no}, true},
		{adventure.LogicNot, []adventure.Condition{no, yes}, false},
		{adventure.LogicXor, []adventure.Condition{yes, no}, true},
		{adventure.LogicXor, []adventure.Condition{yes, yes}, false},
		{adventure.LogicNand, []adventure.Condition{yes, yes}, false},
		{adventure.LogicNand, []adventure.Condition{yes, no}, true},
		{adventure.LogicNor, []adventure.Condition{no, no}, true},
		{adventure.LogicNor, []adventure.Condition{yes, no}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.logic), func(t *testing.T) {
			e := newTestEvaluator()
			got := e.Evaluate(&adventure.Group{Logic: tt.logic, Conditions: tt.conds}, s)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Nested(t *testing.T) {
	s := newFakeState()
	s.stats["gold"] = 12.0
	s.items["lockpick"] = 1

	cond, err := adventure.DecodeCondition([]byte(`{
		"logic": "AND",
		"conditions": [
			{"type": "stat", "key": "gold", "operator": ">=", "value": 10},
			{"logic": "OR", "conditions": [
				{"type": "flag", "key": "foundKey"},
				{"type": "has_item", "key": "lockpick"}
			]}
		]
	}`))
	require.NoError(t, err)

	e := newTestEvaluator()
	assert.True(t, e.Evaluate(cond, s))

	s.items["lockpick"] = 0
	s.versions.Inventory++
	assert.False(t, e.Evaluate(cond, s))
}

func TestEvaluate_CacheInvalidatesOnVersionChange(t *testing.T) {
	s := newFakeState()
	s.stats["gold"] = 5.0
	cond := leaf("stat", adventure.OpGreaterEq, "gold", 10.0)
	e := newTestEvaluator()

	assert.False(t, e.Evaluate(cond, s))
	assert.False(t, e.Evaluate(cond, s))
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1}, e.CacheStats())

	// Without a version bump the stale result is served.
	s.stats["gold"] = 15.0
	assert.False(t, e.Evaluate(cond, s))

	for _, bump := range []func(){
		func() { s.versions.Stats++ },
		func() { s.versions.Inventory++ },
		func() { s.versions.Visited++ },
		func() { s.versions.History++ },
	} {
		e.Evaluate(cond, s)
		require.Equal(t, 1, e.Len())
		bump()
		misses := e.CacheStats().Misses
		assert.True(t, e.Evaluate(cond, s))
		assert.Equal(t, misses+1, e.CacheStats().Misses, "counter change drops the cache")
	}
}

func TestEvaluate_CacheTrimsToRecentHalf(t *testing.T) {
	s := newFakeState()
	e := newTestEvaluator(WithMaxEntries(10))

	conds := make([]adventure.Condition, 11)
	for i := range conds {
		conds[i] = leaf("stat", adventure.OpEquals, "gold", float64(i))
		e.Evaluate(conds[i], s)
	}
	assert.Equal(t, 5, e.Len())

	before := e.CacheStats()
	e.Evaluate(conds[10], s)
	assert.Equal(t, before.Hits+1, e.CacheStats().Hits, "newest entry survives the trim")
	e.Evaluate(conds[0], s)
	assert.Equal(t, before.Misses+1, e.CacheStats().Misses, "oldest entry was evicted")
}

func TestEvaluate_NilAndInvalidate(t *testing.T) {
	s := newFakeState()
	e := newTestEvaluator()

	assert.True(t, e.Evaluate(nil, s))
	e.Evaluate(leaf("flag", adventure.OpEquals, "x", nil), s)
	assert.Equal(t, 1, e.Len())
	e.Invalidate()
	assert.Equal(t, 0, e.Len())
}

func TestExplain(t *testing.T) {
	s := newFakeState()
	s.stats["gold"] = 5.0
	e := newTestEvaluator()

	reason := e.Explain(leaf("stat", adventure.OpGreaterEq, "gold", 10.0), s)
	assert.Equal(t, "Requires gold >= 10 (current: 5)", reason)

	reason = e.Explain(adventure.All(
		leaf("stat", adventure.OpLess, "gold", 10.0),
		leaf("has_item", adventure.OpEquals, "rope", nil),
	), s)
	assert.Equal(t, "Requires item rope", reason)

	assert.Equal(t, "Requires foundKey", e.Explain(leaf("flag", adventure.OpEquals, "foundKey", nil), s))
	assert.Equal(t, "Requires visiting vault first", e.Explain(leaf("scene_visited", adventure.OpEquals, "vault", nil), s))
	assert.Empty(t, e.Explain(leaf("stat", adventure.OpLess, "gold", 10.0), s))
	assert.Empty(t, e.Explain(nil, s))
}
