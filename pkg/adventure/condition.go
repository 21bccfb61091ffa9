package adventure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Condition is a node in a boolean condition tree. The set of implementations
// is closed: *Group and the leaf types declared in this file.
type Condition interface {
	conditionNode()
}

// Logic is a combinator over child conditions.
type Logic string

const (
	LogicAnd  Logic = "AND"
	LogicOr   Logic = "OR"
	LogicNot  Logic = "NOT"
	LogicXor  Logic = "XOR"
	LogicNand Logic = "NAND"
	LogicNor  Logic = "NOR"
)

// Operator compares a resolved state value against a leaf's expected value.
type Operator string

const (
	OpEquals     Operator = "eq"
	OpNotEquals  Operator = "neq"
	OpGreater    Operator = "gt"
	OpGreaterEq  Operator = "gte"
	OpLess       Operator = "lt"
	OpLessEq     Operator = "lte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpMatches    Operator = "matches"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpBetween    Operator = "between"
	OpNotBetween Operator = "not_between"
)

var operatorAliases = map[string]Operator{
	"==":         OpEquals,
	"=":          OpEquals,
	"equals":     OpEquals,
	"!=":         OpNotEquals,
	"not_equals": OpNotEquals,
	">":          OpGreater,
	">=":         OpGreaterEq,
	"<":          OpLess,
	"<=":         OpLessEq,
	"startswith": OpStartsWith,
	"endswith":   OpEndsWith,
	"regex":      OpMatches,
}

// NormalizeOperator maps symbolic aliases onto canonical operators. Unknown
// operators are returned unchanged so evaluation can fail closed.
func NormalizeOperator(op string) Operator {
	op = strings.ToLower(strings.TrimSpace(op))
	if op == "" {
		return OpEquals
	}
	if alias, ok := operatorAliases[op]; ok {
		return alias
	}
	return Operator(op)
}

// Leaf type tags as they appear in documents.
const (
	TypeStat            = "stat"
	TypeFlag            = "flag"
	TypeSceneVisited    = "scene_visited"
	TypeHasItem         = "has_item"
	TypeItemCount       = "item_count"
	TypeItemCategory    = "item_category"
	TypeInventoryTotal  = "inventory_total"
	TypeInventoryWeight = "inventory_weight"
	TypeInventoryValue  = "inventory_value"
	TypeChoiceMade      = "choice_made"
	TypeChoiceCount     = "choice_count"
	TypeSceneVisitCount = "scene_visit_count"
	TypeTotalChoices    = "total_choices"
	TypeUniqueScenes    = "unique_scenes"
)

// Leaf carries the fields common to every leaf condition.
type Leaf struct {
	Type     string   `json:"type"`
	Operator Operator `json:"operator,omitempty"`
	Key      string   `json:"key,omitempty"`
	Value    any      `json:"value,omitempty"`
}

// Group combines child conditions with a logic operator.
type Group struct {
	Logic      Logic       `json:"logic"`
	Conditions []Condition `json:"conditions"`
}

// StatCondition compares a stat's current value.
type StatCondition struct{ Leaf }

// FlagCondition compares a flag; the expected value defaults to true.
type FlagCondition struct{ Leaf }

// SceneCondition tests whether a scene has been visited.
type SceneCondition struct{ Leaf }

// InventoryKind selects which inventory figure a leaf resolves.
type InventoryKind int

const (
	InventoryHas InventoryKind = iota
	InventoryCount
	InventoryCategory
	InventoryTotal
	InventoryWeight
	InventoryValue
)

// InventoryCondition resolves an inventory predicate or aggregate.
type InventoryCondition struct {
	Leaf
	Kind InventoryKind `json:"-"`
}

// HistoryKind selects which choice-history figure a leaf resolves.
type HistoryKind int

const (
	HistoryChoiceMade HistoryKind = iota
	HistoryChoiceCount
	HistorySceneVisitCount
	HistoryTotalChoices
	HistoryUniqueScenes
)

// HistoryCondition resolves a choice-history or visit-history figure.
type HistoryCondition struct {
	Leaf
	Kind HistoryKind `json:"-"`
}

// UnknownCondition keeps a leaf whose type is not recognised. It always
// evaluates to false.
type UnknownCondition struct{ Leaf }

func (*Group) conditionNode()              {}
func (*StatCondition) conditionNode()      {}
func (*FlagCondition) conditionNode()      {}
func (*SceneCondition) conditionNode()     {}
func (*InventoryCondition) conditionNode() {}
func (*HistoryCondition) conditionNode()   {}
func (*UnknownCondition) conditionNode()   {}

var inventoryKinds = map[string]InventoryKind{
	TypeHasItem:         InventoryHas,
	TypeItemCount:       InventoryCount,
	TypeItemCategory:    InventoryCategory,
	TypeInventoryTotal:  InventoryTotal,
	TypeInventoryWeight: InventoryWeight,
	TypeInventoryValue:  InventoryValue,
}

var historyKinds = map[string]HistoryKind{
	TypeChoiceMade:      HistoryChoiceMade,
	TypeChoiceCount:     HistoryChoiceCount,
	TypeSceneVisitCount: HistorySceneVisitCount,
	TypeTotalChoices:    HistoryTotalChoices,
	TypeUniqueScenes:    HistoryUniqueScenes,
}

// NewLeaf builds the typed leaf for a type tag.
func NewLeaf(typ string, op Operator, key string, value any) Condition {
	typ = strings.ToLower(strings.TrimSpace(typ))
	leaf := Leaf{Type: typ, Operator: op, Key: key, Value: value}
	if leaf.Operator == "" {
		leaf.Operator = OpEquals
	}
	switch typ {
	case TypeStat:
		return &StatCondition{leaf}
	case TypeFlag:
		return &FlagCondition{leaf}
	case TypeSceneVisited:
		return &SceneCondition{leaf}
	}
	if kind, ok := inventoryKinds[typ]; ok {
		return &InventoryCondition{Leaf: leaf, Kind: kind}
	}
	if kind, ok := historyKinds[typ]; ok {
		return &HistoryCondition{Leaf: leaf, Kind: kind}
	}
	return &UnknownCondition{leaf}
}

// All, Any and Not are shorthands for building groups in code.
func All(conds ...Condition) *Group { return &Group{Logic: LogicAnd, Conditions: conds} }
func Any(conds ...Condition) *Group { return &Group{Logic: LogicOr, Conditions: conds} }
func Not(conds ...Condition) *Group { return &Group{Logic: LogicNot, Conditions: conds} }

// IsEmpty reports whether a condition tree imposes no constraint: nil, or a
// group without children.
func IsEmpty(c Condition) bool {
	if c == nil {
		return true
	}
	g, ok := c.(*Group)
	return ok && g != nil && len(g.Conditions) == 0
}

type rawCondition struct {
	Type       string            `json:"type,omitempty"`
	Operator   string            `json:"operator,omitempty"`
	Key        string            `json:"key,omitempty"`
	Value      any               `json:"value,omitempty"`
	Logic      string            `json:"logic,omitempty"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
}

// DecodeCondition parses a condition tree. Empty input and JSON null yield a
// nil condition. A bare array is read as an AND group.
func DecodeCondition(data []byte) (Condition, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var children []json.RawMessage
		if err := json.Unmarshal(data, &children); err != nil {
			return nil, fmt.Errorf("failed to decode condition list: %w", err)
		}
		return decodeGroup(string(LogicAnd), children)
	}

	var raw rawCondition
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode condition: %w", err)
	}
	if raw.Logic != "" || (raw.Type == "" && raw.Conditions != nil) {
		return decodeGroup(raw.Logic, raw.Conditions)
	}
	return NewLeaf(raw.Type, NormalizeOperator(raw.Operator), raw.Key, raw.Value), nil
}

func decodeGroup(logic string, children []json.RawMessage) (Condition, error) {
	if logic == "" {
		logic = string(LogicAnd)
	}
	g := &Group{Logic: Logic(strings.ToUpper(logic)), Conditions: make([]Condition, 0, len(children))}
	for i, child := range children {
		c, err := DecodeCondition(child)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		if c != nil {
			g.Conditions = append(g.Conditions, c)
		}
	}
	return g, nil
}

// UnmarshalJSON lets a Group be decoded directly.
func (g *Group) UnmarshalJSON(data []byte) error {
	c, err := DecodeCondition(data)
	if err != nil {
		return err
	}
	switch v := c.(type) {
	case *Group:
		*g = *v
	case nil:
		*g = Group{Logic: LogicAnd}
	default:
		*g = Group{Logic: LogicAnd, Conditions: []Condition{v}}
	}
	return nil
}
