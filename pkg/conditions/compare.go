package conditions

import (
	"regexp"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/stats"
)

// apply returns the comparison result and whether the operator is known.
func (e *Evaluator) apply(op adventure.Operator, actual, expected any) (bool, bool) {
	switch op {
	case adventure.OpEquals, "":
		return equal(actual, expected), true
	case adventure.OpNotEquals:
		return !equal(actual, expected), true

	case adventure.OpGreater, adventure.OpGreaterEq, adventure.OpLess, adventure.OpLessEq:
		a, ok1 := stats.Number(actual)
		b, ok2 := stats.Number(expected)
		if !ok1 || !ok2 || actual == nil {
			return false, true
		}
		switch op {
		case adventure.OpGreater:
			return a > b, true
		case adventure.OpGreaterEq:
			return a >= b, true
		case adventure.OpLess:
			return a < b, true
		default:
			return a <= b, true
		}

	case adventure.OpContains:
		if list, ok := expected.([]any); ok {
			return memberOf(actual, list), true
		}
		return actual != nil && strings.Contains(stats.String(actual), stats.String(expected)), true
	case adventure.OpStartsWith:
		return actual != nil && strings.HasPrefix(stats.String(actual), stats.String(expected)), true
	case adventure.OpEndsWith:
		return actual != nil && strings.HasSuffix(stats.String(actual), stats.String(expected)), true
	case adventure.OpMatches:
		re := e.regex(stats.String(expected))
		return re != nil && actual != nil && re.MatchString(stats.String(actual)), true

	case adventure.OpIn:
		return memberOf(actual, listOf(expected)), true
	case adventure.OpNotIn:
		return !memberOf(actual, listOf(expected)), true

	case adventure.OpBetween, adventure.OpNotBetween:
		lo, hi, ok := bounds(expected)
		n, numeric := stats.Number(actual)
		if !ok || !numeric || actual == nil {
			return false, true
		}
		inside := n >= lo && n <= hi
		if op == adventure.OpNotBetween {
			return !inside, true
		}
		return inside, true
	}
	return false, false
}

// equal compares in the type of the actual value, so "10" equals a stat of 10
// and 1 equals a true flag.
func equal(actual, expected any) bool {
	switch a := actual.(type) {
	case nil:
		return expected == nil
	case bool:
		b, ok := stats.Bool(expected)
		return ok && a == b
	case string:
		if expected == nil {
			return false
		}
		return a == stats.String(expected)
	default:
		n, ok := stats.Number(actual)
		if !ok {
			return false
		}
		m, ok := stats.Number(expected)
		return ok && n == m
	}
}

func memberOf(actual any, list []any) bool {
	for _, candidate := range list {
		if equal(actual, candidate) {
			return true
		}
	}
	return false
}

// listOf accepts a JSON array or a comma-separated string.
func listOf(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case string:
		parts := strings.Split(l, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// bounds reads [min, max] or {"min": x, "max": y}.
func bounds(v any) (float64, float64, bool) {
	switch b := v.(type) {
	case []any:
		if len(b) != 2 {
			return 0, 0, false
		}
		lo, ok1 := stats.Number(b[0])
		hi, ok2 := stats.Number(b[1])
		return lo, hi, ok1 && ok2
	case map[string]any:
		lo, ok1 := stats.Number(b["min"])
		hi, ok2 := stats.Number(b["max"])
		return lo, hi, ok1 && ok2
	}
	return 0, 0, false
}

// regex compiles a pattern once. Invalid patterns are remembered as nil.
func (e *Evaluator) regex(pattern string) *regexp.Regexp {
	if re, ok := e.regexes[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		e.logger.Warn("Invalid condition pattern", "pattern", pattern, "error", err)
		re = nil
	}
	e.regexes[pattern] = re
	return re
}
