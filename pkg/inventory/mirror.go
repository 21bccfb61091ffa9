package inventory

import "github.com/jwebster45206/adventure-engine/pkg/stats"

// TotalItemsStat is the stat that mirrors the ledger's total quantity when a
// document declares it.
const TotalItemsStat = "total_items"

// Mirror receives the ledger total after every change. It is the only
// coupling from the inventory to other state.
type Mirror interface {
	SetTotal(total int)
}

// StatMirror writes the ledger total into the total_items stat.
type StatMirror struct {
	stats *stats.Store
}

// NewStatMirror returns a mirror over s, or nil when s has no total_items
// definition.
func NewStatMirror(s *stats.Store) *StatMirror {
	if _, ok := s.Definition(TotalItemsStat); !ok {
		return nil
	}
	return &StatMirror{stats: s}
}

// SetTotal overwrites the stat, so writes made to it by actions never
// outlive the next inventory change.
func (m *StatMirror) SetTotal(total int) {
	m.stats.Set(TotalItemsStat, float64(total))
}
