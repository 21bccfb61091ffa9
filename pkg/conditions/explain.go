package conditions

import (
	"fmt"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/stats"
)

var operatorSymbols = map[adventure.Operator]string{
	adventure.OpEquals:     "=",
	adventure.OpNotEquals:  "!=",
	adventure.OpGreater:    ">",
	adventure.OpGreaterEq:  ">=",
	adventure.OpLess:       "<",
	adventure.OpLessEq:     "<=",
	adventure.OpContains:   "contains",
	adventure.OpStartsWith: "starts with",
	adventure.OpEndsWith:   "ends with",
	adventure.OpMatches:    "matches",
	adventure.OpIn:         "in",
	adventure.OpNotIn:      "not in",
	adventure.OpBetween:    "between",
	adventure.OpNotBetween: "not between",
}

// Explain returns a player-facing reason for the first failing leaf of c, or
// "" when c holds.
func (e *Evaluator) Explain(c adventure.Condition, s State) string {
	if c == nil || e.Evaluate(c, s) {
		return ""
	}
	return e.explain(c, s)
}

func (e *Evaluator) explain(c adventure.Condition, s State) string {
	switch n := c.(type) {
	case *adventure.Group:
		switch n.Logic {
		case adventure.LogicAnd, adventure.LogicOr, "":
			for _, child := range n.Conditions {
				if !e.eval(child, s) {
					return e.explain(child, s)
				}
			}
		}
		return "Requirements not met"
	case *adventure.StatCondition:
		actual, _ := s.StatValue(n.Key)
		return fmt.Sprintf("Requires %s %s %s (current: %s)", n.Key, symbol(n.Operator), stats.String(n.Value), stats.String(actual))
	case *adventure.FlagCondition:
		if expectTrue(n.Value) == false {
			return fmt.Sprintf("Requires %s to be unset", n.Key)
		}
		return fmt.Sprintf("Requires %s", n.Key)
	case *adventure.SceneCondition:
		if expectTrue(n.Value) == false {
			return fmt.Sprintf("Requires not having visited %s", n.Key)
		}
		return fmt.Sprintf("Requires visiting %s first", n.Key)
	case *adventure.InventoryCondition:
		switch n.Kind {
		case adventure.InventoryHas:
			return fmt.Sprintf("Requires item %s", n.Key)
		case adventure.InventoryCount:
			return fmt.Sprintf("Requires %s %s %s (you have %d)", n.Key, symbol(n.Operator), stats.String(n.Value), s.Quantity(n.Key))
		case adventure.InventoryCategory:
			return fmt.Sprintf("Requires an item of category %s", n.Key)
		default:
			return fmt.Sprintf("Requires %s %s %s", n.Type, symbol(n.Operator), stats.String(n.Value))
		}
	case *adventure.HistoryCondition:
		if n.Kind == adventure.HistoryChoiceMade {
			return fmt.Sprintf("Requires choosing %s first", n.Key)
		}
		return fmt.Sprintf("Requires %s %s %s", n.Type, symbol(n.Operator), stats.String(n.Value))
	case *adventure.UnknownCondition:
		return fmt.Sprintf("Unknown requirement %q", n.Type)
	default:
		return "Requirements not met"
	}
}

func symbol(op adventure.Operator) string {
	if s, ok := operatorSymbols[op]; ok {
		return s
	}
	return string(op)
}
