package adventure

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Action type tags as they appear in documents.
const (
	ActionSetStat         = "set_stat"
	ActionAddStat         = "add_stat"
	ActionMultiplyStat    = "multiply_stat"
	ActionSetFlag         = "set_flag"
	ActionToggleFlag      = "toggle_flag"
	ActionAddInventory    = "add_inventory"
	ActionRemoveInventory = "remove_inventory"
	ActionSetInventory    = "set_inventory"
	ActionAddAchievement  = "add_achievement"
)

// Action is a single state mutation. The set of implementations is closed.
type Action interface {
	Meta() ActionMeta
	actionNode()
}

// ActionMeta holds the fields shared by every action. An action with OneTime
// and a stable ID fires at most once per playthrough.
type ActionMeta struct {
	ID      string `json:"id,omitempty"`
	OneTime bool   `json:"oneTime,omitempty"`
}

// Meta returns the shared metadata.
func (m ActionMeta) Meta() ActionMeta { return m }

type SetStat struct {
	ActionMeta
	Stat  string
	Value any
}

type AddStat struct {
	ActionMeta
	Stat   string
	Amount float64
}

type MultiplyStat struct {
	ActionMeta
	Stat   string
	Factor float64
}

// SetFlag keeps the raw document value; the engine coerces non-booleans.
type SetFlag struct {
	ActionMeta
	Flag  string
	Value any
}

type ToggleFlag struct {
	ActionMeta
	Flag string
}

type AddInventory struct {
	ActionMeta
	Item     string
	Quantity int
}

type RemoveInventory struct {
	ActionMeta
	Item     string
	Quantity int
}

type SetInventory struct {
	ActionMeta
	Item     string
	Quantity int
}

type AddAchievement struct {
	ActionMeta
	Achievement string
}

// UnknownAction keeps an action whose type is not recognised. Executing it is
// a logged no-op.
type UnknownAction struct {
	ActionMeta
	Type  string
	Key   string
	Value any
}

func (*SetStat) actionNode()         {}
func (*AddStat) actionNode()         {}
func (*MultiplyStat) actionNode()    {}
func (*SetFlag) actionNode()         {}
func (*ToggleFlag) actionNode()      {}
func (*AddInventory) actionNode()    {}
func (*RemoveInventory) actionNode() {}
func (*SetInventory) actionNode()    {}
func (*AddAchievement) actionNode()  {}
func (*UnknownAction) actionNode()   {}

// TypeOf returns the document type tag of an action.
func TypeOf(a Action) string {
	switch v := a.(type) {
	case *SetStat:
		return ActionSetStat
	case *AddStat:
		return ActionAddStat
	case *MultiplyStat:
		return ActionMultiplyStat
	case *SetFlag:
		return ActionSetFlag
	case *ToggleFlag:
		return ActionToggleFlag
	case *AddInventory:
		return ActionAddInventory
	case *RemoveInventory:
		return ActionRemoveInventory
	case *SetInventory:
		return ActionSetInventory
	case *AddAchievement:
		return ActionAddAchievement
	case *UnknownAction:
		return v.Type
	default:
		return ""
	}
}

type rawAction struct {
	Type    string `json:"type"`
	Key     string `json:"key"`
	Value   any    `json:"value,omitempty"`
	ID      string `json:"id,omitempty"`
	OneTime bool   `json:"oneTime,omitempty"`
}

// Actions is an ordered action list with document (de)serialisation.
type Actions []Action

// UnmarshalJSON decodes each element into its typed action.
func (as *Actions) UnmarshalJSON(data []byte) error {
	var raws []rawAction
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("failed to decode actions: %w", err)
	}
	out := make(Actions, 0, len(raws))
	for i, raw := range raws {
		a, err := decodeAction(raw)
		if err != nil {
			return fmt.Errorf("action %d (%s): %w", i, raw.Type, err)
		}
		out = append(out, a)
	}
	*as = out
	return nil
}

// MarshalJSON encodes actions back into the flat document shape.
func (as Actions) MarshalJSON() ([]byte, error) {
	raws := make([]rawAction, 0, len(as))
	for _, a := range as {
		raws = append(raws, encodeAction(a))
	}
	return json.Marshal(raws)
}

func decodeAction(raw rawAction) (Action, error) {
	meta := ActionMeta{ID: raw.ID, OneTime: raw.OneTime}
	switch strings.ToLower(raw.Type) {
	case ActionSetStat:
		return &SetStat{ActionMeta: meta, Stat: raw.Key, Value: raw.Value}, nil
	case ActionAddStat:
		n, err := numberOr(raw.Value, 0)
		if err != nil {
			return nil, err
		}
		return &AddStat{ActionMeta: meta, Stat: raw.Key, Amount: n}, nil
	case ActionMultiplyStat:
		n, err := numberOr(raw.Value, 1)
		if err != nil {
			return nil, err
		}
		return &MultiplyStat{ActionMeta: meta, Stat: raw.Key, Factor: n}, nil
	case ActionSetFlag:
		v := raw.Value
		if v == nil {
			v = true
		}
		return &SetFlag{ActionMeta: meta, Flag: raw.Key, Value: v}, nil
	case ActionToggleFlag:
		return &ToggleFlag{ActionMeta: meta, Flag: raw.Key}, nil
	case ActionAddInventory:
		n, err := numberOr(raw.Value, 1)
		if err != nil {
			return nil, err
		}
		return &AddInventory{ActionMeta: meta, Item: raw.Key, Quantity: quantity(n)}, nil
	case ActionRemoveInventory:
		n, err := numberOr(raw.Value, 1)
		if err != nil {
			return nil, err
		}
		return &RemoveInventory{ActionMeta: meta, Item: raw.Key, Quantity: quantity(n)}, nil
	case ActionSetInventory:
		n, err := numberOr(raw.Value, 0)
		if err != nil {
			return nil, err
		}
		return &SetInventory{ActionMeta: meta, Item: raw.Key, Quantity: quantity(n)}, nil
	case ActionAddAchievement:
		id := raw.Key
		if id == "" {
			if s, ok := raw.Value.(string); ok {
				id = s
			}
		}
		return &AddAchievement{ActionMeta: meta, Achievement: id}, nil
	default:
		return &UnknownAction{ActionMeta: meta, Type: raw.Type, Key: raw.Key, Value: raw.Value}, nil
	}
}

// quantity truncates n to an int, saturating at the int32 range so oversized
// values still clamp to stack limits downstream.
func quantity(n float64) int {
	switch {
	case math.IsNaN(n):
		return 0
	case n >= math.MaxInt32:
		return math.MaxInt32
	case n <= math.MinInt32:
		return math.MinInt32
	}
	return int(n)
}

func encodeAction(a Action) rawAction {
	raw := rawAction{Type: TypeOf(a), ID: a.Meta().ID, OneTime: a.Meta().OneTime}
	switch v := a.(type) {
	case *SetStat:
		raw.Key, raw.Value = v.Stat, v.Value
	case *AddStat:
		raw.Key, raw.Value = v.Stat, v.Amount
	case *MultiplyStat:
		raw.Key, raw.Value = v.Stat, v.Factor
	case *SetFlag:
		raw.Key, raw.Value = v.Flag, v.Value
	case *ToggleFlag:
		raw.Key = v.Flag
	case *AddInventory:
		raw.Key, raw.Value = v.Item, v.Quantity
	case *RemoveInventory:
		raw.Key, raw.Value = v.Item, v.Quantity
	case *SetInventory:
		raw.Key, raw.Value = v.Item, v.Quantity
	case *AddAchievement:
		raw.Key = v.Achievement
	case *UnknownAction:
		raw.Key, raw.Value = v.Key, v.Value
	}
	return raw
}

// numberOr reads a numeric action value, accepting numeric strings.
func numberOr(v any, fallback float64) (float64, error) {
	switch n := v.(type) {
	case nil:
		return fallback, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v is not a number", v)
	}
}
