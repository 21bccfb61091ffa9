package inventory

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testItems = []adventure.ItemDefinition{
	{ID: "potion", Name: "Potion", MaxStack: 5, Category: "consumable", Value: 10, Weight: 0.5},
	{ID: "sword", Name: "Sword", MaxStack: 1, Category: "weapon", Value: 100, Weight: 3},
	{ID: "arrow", Category: "ammo", Value: 1, Weight: 0.1},
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(opts ...Option) *Store {
	return New(testItems, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestStore_Add(t *testing.T) {
	s := newTestStore()

	res := s.Add("potion", 2)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.NewQuantity)
	assert.Empty(t, res.Message)

	res = s.Add("potion", 10)
	assert.True(t, res.Success, "overflow is a partial success")
	assert.Equal(t, 5, res.NewQuantity)
	assert.Contains(t, res.Message, "only 3 of 10")

	res = s.Add("potion", 1)
	assert.False(t, res.Success)
	assert.Equal(t, 5, res.NewQuantity)

	res = s.Add("dragon", 1)
	assert.False(t, res.Success)
	assert.False(t, s.Has("dragon"))

	res = s.Add("arrow", 150)
	assert.True(t, res.Success)
	assert.Equal(t, adventure.DefaultMaxStack, s.Quantity("arrow"), "zero maxStack uses the default limit")
}

func TestStore_Remove(t *testing.T) {
	s := newTestStore()
	s.Add("potion", 3)

	res := s.Remove("potion", 5)
	assert.False(t, res.Success, "no partial removal")
	assert.Equal(t, 3, s.Quantity("potion"))

	res = s.Remove("potion", 3)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.NewQuantity)
	assert.False(t, s.Has("potion"))
	assert.NotContains(t, s.Entries(), "potion", "zero quantities are removed from the ledger")

	res = s.Remove("sword", 1)
	assert.False(t, res.Success)
}

func TestStore_SetCount(t *testing.T) {
	s := newTestStore()

	res := s.SetCount("potion", 12)
	assert.True(t, res.Success)
	assert.Equal(t, 5, s.Quantity("potion"))

	version := s.Version()
	res = s.SetCount("potion", -1)
	assert.False(t, res.Success)
	assert.Equal(t, 5, s.Quantity("potion"))
	assert.Equal(t, version, s.Version())

	res = s.SetCount("potion", 0)
	assert.True(t, res.Success)
	assert.NotContains(t, s.Entries(), "potion")
}

func TestStore_Aggregates(t *testing.T) {
	s := newTestStore()
	s.Add("potion", 2)
	s.Add("sword", 1)
	s.Add("arrow", 10)

	assert.Equal(t, 13, s.TotalCount())
	assert.InDelta(t, 5.0, s.TotalWeight(), 1e-9)
	assert.InDelta(t, 130.0, s.TotalValue(), 1e-9)
	assert.Equal(t, 2, s.CategoryCount("consumable"))
	assert.Equal(t, 0, s.CategoryCount("armor"))

	s.Remove("arrow", 10)
	assert.Equal(t, 3, s.TotalCount(), "aggregates are recomputed after a mutation")
	assert.Equal(t, []string{"potion", "sword"}, s.Items())
}

func TestStore_AcquiredAtKeptAcrossUpdates(t *testing.T) {
	s := newTestStore()
	s.Add("potion", 1)
	first := s.Entries()["potion"].AcquiredAt
	s.Add("potion", 1)
	assert.Equal(t, first, s.Entries()["potion"].AcquiredAt)
}

func TestStore_StatMirror(t *testing.T) {
	st := stats.New([]adventure.StatDefinition{
		{ID: TotalItemsStat, Type: adventure.StatNumber, Default: 0.0},
	}, stats.WithLogger(quietLogger()))
	mirror := NewStatMirror(st)
	require.NotNil(t, mirror)
	s := newTestStore(WithMirror(mirror))

	s.Add("potion", 2)
	assert.Equal(t, 2, s.Quantity("potion"))
	assert.Equal(t, 2.0, st.Number(TotalItemsStat))

	s.Remove("potion", 1)
	assert.Equal(t, 1, s.Quantity("potion"))
	assert.Equal(t, 1.0, st.Number(TotalItemsStat))

	s.SetCount("potion", 12)
	assert.Equal(t, 5.0, st.Number(TotalItemsStat))

	s.Restore(map[string]Entry{"sword": {Quantity: 4}, "ghost": {Quantity: 1}})
	assert.Equal(t, 1, s.Quantity("sword"))
	assert.Equal(t, 1.0, st.Number(TotalItemsStat))

	s.Reset()
	assert.Equal(t, 0.0, st.Number(TotalItemsStat))
}

func TestStore_StatMirrorOverridesDirectWrites(t *testing.T) {
	st := stats.New([]adventure.StatDefinition{
		{ID: TotalItemsStat, Type: adventure.StatNumber, Default: 0.0},
	}, stats.WithLogger(quietLogger()))
	s := newTestStore(WithMirror(NewStatMirror(st)))

	s.Add("potion", 1)
	st.Set(TotalItemsStat, 10.0)
	st.Add(TotalItemsStat, 3)
	assert.Equal(t, 13.0, st.Number(TotalItemsStat))

	s.Add("potion", 1)
	assert.Equal(t, 2.0, st.Number(TotalItemsStat), "the next mutation restores the ledger total")
	s.Remove("potion", 2)
	assert.Equal(t, 0.0, st.Number(TotalItemsStat))
}

func TestNewStatMirror_WithoutStat(t *testing.T) {
	st := stats.New(nil, stats.WithLogger(quietLogger()))
	assert.Nil(t, NewStatMirror(st))
}

// Random operation sequences never leave a quantity outside [0, maxStack] and
// keep the mirrored stat equal to the ledger total.
func TestStore_BoundsUnderRandomOperations(t *testing.T) {
	st := stats.New([]adventure.StatDefinition{{ID: TotalItemsStat, Type: adventure.StatNumber}}, stats.WithLogger(quietLogger()))
	s := newTestStore(WithMirror(NewStatMirror(st)))
	rng := rand.New(rand.NewPCG(1, 2))
	ids := []string{"potion", "sword", "arrow"}

	for range 2000 {
		id := ids[rng.IntN(len(ids))]
		qty := rng.IntN(15) - 3
		switch rng.IntN(3) {
		case 0:
			s.Add(id, qty)
		case 1:
			s.Remove(id, qty)
		case 2:
			s.SetCount(id, qty)
		}

		for _, item := range ids {
			def, _ := s.Definition(item)
			q := s.Quantity(item)
			require.GreaterOrEqual(t, q, 0)
			require.LessOrEqual(t, q, def.StackLimit())
			_, present := s.Entries()[item]
			require.Equal(t, q > 0, present)
		}
		require.Equal(t, float64(s.TotalCount()), st.Number(TotalItemsStat))
	}
}
