package stats

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultHistoryLimit bounds the audit trail.
const DefaultHistoryLimit = 1000

// AuditKind tells stat entries from flag entries.
type AuditKind string

const (
	AuditStat AuditKind = "stat"
	AuditFlag AuditKind = "flag"
)

// AuditEntry records one successful mutation. It feeds analytics and export
// only; gameplay never reads it.
type AuditEntry struct {
	Key   string    `json:"key"`
	Kind  AuditKind `json:"kind"`
	Old   any       `json:"old"`
	New   any       `json:"new"`
	Delta *float64  `json:"delta,omitempty"`
	At    time.Time `json:"at"`
}

// Result reports the outcome of a mutation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Value   any    `json:"value,omitempty"` // Value after the call
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry sets the custom type registry.
func WithRegistry(r *Registry) Option {
	return func(s *Store) { s.registry = r }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the audit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithHistoryLimit bounds the audit trail; 0 keeps everything.
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.historyLimit = n }
}

// Store holds the current stat values and flags for one playthrough.
type Store struct {
	defs         map[string]adventure.StatDefinition
	values       map[string]any
	flags        map[string]bool
	history      []AuditEntry
	historyLimit int
	version      uint64

	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
	titler   cases.Caser
}

// New creates a store seeded with each definition's default.
func New(defs []adventure.StatDefinition, opts ...Option) *Store {
	s := &Store{
		defs:         make(map[string]adventure.StatDefinition, len(defs)),
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default(),
		now:          time.Now,
		titler:       cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	for _, d := range defs {
		s.defs[d.ID] = d
	}
	s.Reset()
	return s
}

// Reset restores every stat to its default and clears flags and history.
func (s *Store) Reset() {
	s.values = make(map[string]any, len(s.defs))
	s.flags = make(map[string]bool)
	s.history = nil
	for id, d := range s.defs {
		v, err := s.coerce(d, d.Default, true)
		if err != nil {
			s.logger.Warn("Invalid stat default, using zero value", "stat", id, "default", d.Default, "error", err)
			v = zeroValue(d.Type)
		}
		s.values[id] = v
	}
	s.version++
}

// Definition returns the definition for a stat id.
func (s *Store) Definition(id string) (adventure.StatDefinition, bool) {
	d, ok := s.defs[id]
	return d, ok
}

// Has reports whether a stat has a value.
func (s *Store) Has(id string) bool {
	_, ok := s.values[id]
	return ok
}

// Get returns a stat's current value.
func (s *Store) Get(id string) (any, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Number returns a stat's value as a number, or 0 when unset or non-numeric.
func (s *Store) Number(id string) float64 {
	n, _ := Number(s.values[id])
	return n
}

// Set validates and normalises v through the stat's type, then stores it.
// On failure the current value is left unchanged.
func (s *Store) Set(id string, v any) Result {
	return s.set(id, v, nil)
}

// Add increments a numeric stat.
func (s *Store) Add(id string, delta float64) Result {
	current, ok := s.numericCurrent(id)
	if !ok {
		return Result{Success: false, Message: fmt.Sprintf("stat %q is not numeric", id), Value: s.values[id]}
	}
	return s.set(id, current+delta, &delta)
}

// Multiply scales a numeric stat.
func (s *Store) Multiply(id string, factor float64) Result {
	current, ok := s.numericCurrent(id)
	if !ok {
		return Result{Success: false, Message: fmt.Sprintf("stat %q is not numeric", id), Value: s.values[id]}
	}
	next := current * factor
	delta := next - current
	return s.set(id, next, &delta)
}

func (s *Store) numericCurrent(id string) (float64, bool) {
	v, ok := s.values[id]
	if !ok {
		return 0, true
	}
	return Number(v)
}

func (s *Store) set(id string, v any, delta *float64) Result {
	d, known := s.defs[id]
	if !known {
		d = adventure.StatDefinition{ID: id, Type: inferType(v)}
		s.logger.Debug("Creating undeclared stat", "stat", id, "type", d.Type)
	}

	next, err := s.coerce(d, v, false)
	if err != nil {
		s.logger.Warn("Rejected stat update", "stat", id, "value", v, "error", err)
		return Result{Success: false, Message: err.Error(), Value: s.values[id]}
	}
	if !known {
		s.defs[id] = d
	}

	old, existed := s.values[id]
	if existed && reflect.DeepEqual(old, next) {
		return Result{Success: true, Value: next}
	}

	s.values[id] = next
	s.version++
	if delta != nil {
		// Clamping may shrink the applied delta.
		if o, ok := Number(old); ok {
			if n, ok := Number(next); ok {
				applied := n - o
				delta = &applied
			}
		}
	}
	s.record(AuditEntry{Key: id, Kind: AuditStat, Old: old, New: next, Delta: delta})
	return Result{Success: true, Value: next}
}

// coerce runs v through the definition's type and bounds.
func (s *Store) coerce(d adventure.StatDefinition, v any, isDefault bool) (any, error) {
	switch d.Type {
	case adventure.StatNumber, "":
		if v == nil && isDefault {
			return clamp(d, 0), nil
		}
		n, ok := Number(v)
		if !ok || math.IsNaN(n) {
			return nil, fmt.Errorf("stat %q expects a number, got %v", d.ID, v)
		}
		return clamp(d, n), nil

	case adventure.StatString:
		return String(v), nil

	case adventure.StatBoolean:
		if v == nil && isDefault {
			return false, nil
		}
		b, ok := Bool(v)
		if !ok {
			return nil, fmt.Errorf("stat %q expects a boolean, got %v", d.ID, v)
		}
		return b, nil
	}

	ct, ok := s.registry.Lookup(string(d.Type))
	if !ok {
		return nil, fmt.Errorf("stat %q has unregistered type %q", d.ID, d.Type)
	}
	if v == nil && isDefault {
		v = 0
	}
	if ct.Validate != nil && !ct.Validate(v) {
		return nil, fmt.Errorf("value %v is not a valid %s", v, d.Type)
	}
	if ct.Normalize != nil {
		v = ct.Normalize(v)
	}
	switch v.(type) {
	case string, bool, nil:
		return v, nil
	}
	if n, ok := Number(v); ok {
		return clamp(d, n), nil
	}
	return v, nil
}

func clamp(d adventure.StatDefinition, n float64) float64 {
	if d.Min != nil && n < *d.Min {
		n = *d.Min
	}
	if d.Max != nil && n > *d.Max {
		n = *d.Max
	}
	return n
}

func inferType(v any) adventure.StatType {
	switch v.(type) {
	case bool:
		return adventure.StatBoolean
	case string:
		if _, ok := Number(v); ok {
			return adventure.StatNumber
		}
		return adventure.StatString
	default:
		return adventure.StatNumber
	}
}

func zeroValue(t adventure.StatType) any {
	switch t {
	case adventure.StatString:
		return ""
	case adventure.StatBoolean:
		return false
	default:
		return 0.0
	}
}

// Flag returns a flag's value. Unset flags are false.
func (s *Store) Flag(id string) bool {
	return s.flags[id]
}

// SetFlag sets a flag.
func (s *Store) SetFlag(id string, v bool) Result {
	old, existed := s.flags[id]
	if existed && old == v {
		return Result{Success: true, Value: v}
	}
	s.flags[id] = v
	s.version++
	s.record(AuditEntry{Key: id, Kind: AuditFlag, Old: old, New: v})
	return Result{Success: true, Value: v}
}

// ToggleFlag inverts a flag.
func (s *Store) ToggleFlag(id string) Result {
	return s.SetFlag(id, !s.flags[id])
}

func (s *Store) record(e AuditEntry) {
	e.At = s.now()
	s.history = append(s.history, e)
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = append([]AuditEntry(nil), s.history[len(s.history)-s.historyLimit:]...)
	}
}

// Version increases on every successful mutation.
func (s *Store) Version() uint64 {
	return s.version
}

// Values returns a copy of all stat values.
func (s *Store) Values() map[string]any {
	return maps.Clone(s.values)
}

// Flags returns a copy of all flags.
func (s *Store) Flags() map[string]bool {
	return maps.Clone(s.flags)
}

// History returns a copy of the audit trail, oldest first.
func (s *Store) History() []AuditEntry {
	return append([]AuditEntry(nil), s.history...)
}

// DisplayName returns the stat's declared name, or a title-cased id.
func (s *Store) DisplayName(id string) string {
	if d, ok := s.defs[id]; ok && d.Name != "" {
		return d.Name
	}
	return s.titler.String(strings.ReplaceAll(id, "_", " "))
}

// Display renders a stat's current value through its type.
func (s *Store) Display(id string) string {
	v := s.values[id]
	if d, ok := s.defs[id]; ok {
		if ct, ok := s.registry.Lookup(string(d.Type)); ok && ct.Display != nil {
			return ct.Display(v)
		}
	}
	return String(v)
}

// ExportableStats returns the values of stats not marked non-exportable.
func (s *Store) ExportableStats() map[string]any {
	out := make(map[string]any, len(s.values))
	for id, v := range s.values {
		if d, ok := s.defs[id]; ok && !d.IsExportable() {
			continue
		}
		out[id] = v
	}
	return out
}

// ExportableFlags returns flags whose id is not declared non-exportable.
func (s *Store) ExportableFlags() map[string]bool {
	out := make(map[string]bool, len(s.flags))
	for id, v := range s.flags {
		if d, ok := s.defs[id]; ok && !d.IsExportable() {
			continue
		}
		out[id] = v
	}
	return out
}

// Restore replaces values and flags wholesale, as when loading a snapshot.
// Values still pass through their definitions; invalid ones keep the default.
func (s *Store) Restore(values map[string]any, flags map[string]bool) {
	s.Reset()
	for id, v := range values {
		d, ok := s.defs[id]
		if !ok {
			d = adventure.StatDefinition{ID: id, Type: inferType(v)}
			s.defs[id] = d
		}
		next, err := s.coerce(d, v, false)
		if err != nil {
			s.logger.Warn("Skipping invalid restored stat", "stat", id, "value", v, "error", err)
			continue
		}
		s.values[id] = next
	}
	for id, v := range flags {
		s.flags[id] = v
	}
	s.version++
}
