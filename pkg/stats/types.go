// Package stats holds typed player stats and boolean flags, with per-stat
// bounds, pluggable custom value types, and an audit trail of every change.
package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// CustomType describes a registered stat value type.
type CustomType struct {
	Validate  func(v any) bool
	Normalize func(v any) any
	Display   func(v any) string
}

// Registry maps custom type names to their behaviour. It is safe for
// concurrent use so one registry can back many playthroughs.
type Registry struct {
	mu    sync.RWMutex
	types map[string]CustomType
}

// NewRegistry returns a registry preloaded with the percentage and currency
// types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]CustomType)}
	r.types["percentage"] = CustomType{
		Validate: isNumeric,
		Normalize: func(v any) any {
			n, _ := Number(v)
			return math.Min(100, math.Max(0, n))
		},
		Display: func(v any) string {
			n, _ := Number(v)
			return strconv.FormatFloat(n, 'f', -1, 64) + "%"
		},
	}
	r.types["currency"] = CustomType{
		Validate: isNumeric,
		Normalize: func(v any) any {
			n, _ := Number(v)
			return math.Round(n*100) / 100
		},
		Display: func(v any) string {
			n, _ := Number(v)
			return strconv.FormatFloat(n, 'f', 2, 64)
		},
	}
	return r
}

// Register adds or replaces a custom type.
func (r *Registry) Register(name string, t CustomType) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("custom type name is required")
	}
	switch name {
	case "number", "string", "boolean":
		return fmt.Errorf("cannot override built-in type %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
	return nil
}

// Lookup returns the custom type registered under name.
func (r *Registry) Lookup(name string) (CustomType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Number coerces v to a float64. Booleans map to 0/1 and numeric strings are
// parsed.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool coerces v to a boolean. Numbers are true when non-zero; strings accept
// true/false, yes/no, on/off and 1/0.
func Bool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "on", "1":
			return true, true
		case "false", "no", "off", "0", "":
			return false, true
		}
		return false, false
	case nil:
		return false, false
	}
	if n, ok := Number(v); ok {
		return n != 0, true
	}
	return false, false
}

// String renders v the way stats display it.
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}

func isNumeric(v any) bool {
	_, ok := Number(v)
	return ok
}
