// Package inventory implements the sparse item ledger: stack-limited
// quantities, cached aggregates, and the total_items stat mirror.
package inventory

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
)

// Entry is one held item.
type Entry struct {
	Quantity   int       `json:"quantity"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// Result reports the outcome of a mutation. Failures never change state.
type Result struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	NewQuantity int    `json:"newQuantity"`
}

type aggregates struct {
	count      int
	weight     float64
	value      float64
	categories map[string]int
}

// Option configures a Store.
type Option func(*Store)

// WithMirror attaches the total-items mirror.
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the acquisition timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the inventory ledger for one playthrough. Items whose quantity
// reaches zero are removed.
type Store struct {
	defs    map[string]adventure.ItemDefinition
	entries map[string]Entry
	version uint64
	agg     *aggregates

	mirror Mirror
	logger *slog.Logger
	now    func() time.Time
}

// New creates an empty ledger over the given item definitions.
func New(defs []adventure.ItemDefinition, opts ...Option) *Store {
	s := &Store{
		defs:    make(map[string]adventure.ItemDefinition, len(defs)),
		entries: make(map[string]Entry),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, d := range defs {
		s.defs[d.ID] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Definition returns the definition of an item.
func (s *Store) Definition(id string) (adventure.ItemDefinition, bool) {
	d, ok := s.defs[id]
	return d, ok
}

// Add adds up to qty units, clamped to the stack limit. If only part fits the
// remainder is added and the result says so.
func (s *Store) Add(id string, qty int) Result {
	def, ok := s.defs[id]
	if !ok {
		return s.fail(id, "unknown item %q", id)
	}
	if qty <= 0 {
		return s.fail(id, "quantity must be positive, got %d", qty)
	}
	held := s.entries[id].Quantity
	space := def.StackLimit() - held
	if space <= 0 {
		return s.fail(id, "cannot carry more %s (max %d)", itemName(def), def.StackLimit())
	}

	added := min(qty, space)
	s.apply(id, held+added)
	if added < qty {
		return Result{
			Success:     true,
			Message:     fmt.Sprintf("only %d of %d %s fit (max %d)", added, qty, itemName(def), def.StackLimit()),
			NewQuantity: held + added,
		}
	}
	return Result{Success: true, NewQuantity: held + added}
}

// Remove takes qty units away. It fails without partial removal when fewer
// are held.
func (s *Store) Remove(id string, qty int) Result {
	if qty <= 0 {
		return s.fail(id, "quantity must be positive, got %d", qty)
	}
	held := s.entries[id].Quantity
	if held == 0 {
		return s.fail(id, "no %s to remove", id)
	}
	if held < qty {
		return s.fail(id, "only %d %s held, cannot remove %d", held, id, qty)
	}
	s.apply(id, held-qty)
	return Result{Success: true, NewQuantity: held - qty}
}

// SetCount sets the held quantity, clamped to [0, stack limit]. Negative input
// is rejected.
func (s *Store) SetCount(id string, qty int) Result {
	def, ok := s.defs[id]
	if !ok {
		return s.fail(id, "unknown item %q", id)
	}
	if qty < 0 {
		return s.fail(id, "quantity cannot be negative, got %d", qty)
	}
	next := min(qty, def.StackLimit())
	s.apply(id, next)
	if next < qty {
		return Result{
			Success:     true,
			Message:     fmt.Sprintf("%s clamped to %d", itemName(def), next),
			NewQuantity: next,
		}
	}
	return Result{Success: true, NewQuantity: next}
}

func (s *Store) fail(id, format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	s.logger.Debug("Inventory mutation rejected", "item", id, "reason", msg)
	return Result{Success: false, Message: msg, NewQuantity: s.entries[id].Quantity}
}

// apply writes the new quantity, drops the aggregate cache and re-syncs the
// total-items mirror.
func (s *Store) apply(id string, qty int) {
	prev, held := s.entries[id]
	delta := qty - prev.Quantity
	if delta == 0 {
		return
	}
	switch {
	case qty == 0:
		delete(s.entries, id)
	case held:
		prev.Quantity = qty
		s.entries[id] = prev
	default:
		s.entries[id] = Entry{Quantity: qty, AcquiredAt: s.now()}
	}
	s.version++
	s.agg = nil
	if s.mirror != nil {
		s.mirror.SetTotal(s.TotalCount())
	}
}

// Quantity returns the held quantity of an item.
func (s *Store) Quantity(id string) int {
	return s.entries[id].Quantity
}

// Has reports whether at least one unit is held.
func (s *Store) Has(id string) bool {
	return s.entries[id].Quantity > 0
}

// Entries returns a copy of the ledger.
func (s *Store) Entries() map[string]Entry {
	return maps.Clone(s.entries)
}

// Items returns the held item ids in sorted order.
func (s *Store) Items() []string {
	return slices.Sorted(maps.Keys(s.entries))
}

// Version increases on every mutation that changes a quantity.
func (s *Store) Version() uint64 {
	return s.version
}

func (s *Store) aggregates() *aggregates {
	if s.agg != nil {
		return s.agg
	}
	a := &aggregates{categories: make(map[string]int)}
	for id, e := range s.entries {
		a.count += e.Quantity
		def, ok := s.defs[id]
		if !ok {
			continue
		}
		a.weight += def.Weight * float64(e.Quantity)
		a.value += def.Value * float64(e.Quantity)
		if def.Category != "" {
			a.categories[def.Category] += e.Quantity
		}
	}
	s.agg = a
	return a
}

// TotalCount is the sum of held quantities.
func (s *Store) TotalCount() int { return s.aggregates().count }

// TotalWeight is the summed weight of held items.
func (s *Store) TotalWeight() float64 { return s.aggregates().weight }

// TotalValue is the summed value of held items.
func (s *Store) TotalValue() float64 { return s.aggregates().value }

// CategoryCount is the number of held units in a category.
func (s *Store) CategoryCount(category string) int {
	return s.aggregates().categories[category]
}

// Reset empties the ledger.
func (s *Store) Reset() {
	s.entries = make(map[string]Entry)
	s.agg = nil
	s.version++
	if s.mirror != nil {
		s.mirror.SetTotal(0)
	}
}

// Restore replaces the ledger from a snapshot. Unknown items are dropped and
// quantities are clamped, then the mirror is re-synced to the new total.
func (s *Store) Restore(entries map[string]Entry) {
	s.entries = make(map[string]Entry, len(entries))
	for id, e := range entries {
		def, ok := s.defs[id]
		if !ok {
			s.logger.Warn("Dropping unknown item from restored inventory", "item", id)
			continue
		}
		e.Quantity = min(e.Quantity, def.StackLimit())
		if e.Quantity <= 0 {
			continue
		}
		s.entries[id] = e
	}
	s.agg = nil
	s.version++
	if s.mirror != nil {
		s.mirror.SetTotal(s.TotalCount())
	}
}

func itemName(def adventure.ItemDefinition) string {
	if def.Name != "" {
		return def.Name
	}
	return def.ID
}
