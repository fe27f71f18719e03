package cart

import (
	"context"
	"testing"

	"qrmenu/internal/domain"
	"qrmenu/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := storage.New(client)
	return NewStore(st, zap.NewNop()), st
}

func product(id int, price float64) domain.Product {
	return domain.Product{ID: id, Name: "item", Price: price, Category: domain.CategoryOther}
}

func TestAddMergesByProductID(t *testing.T) {
	store, _ := newTestStore(t)

	store.Add(product(5, 10), 1)
	store.Add(product(5, 10), 1)

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestMergeScenario(t *testing.T) {
	store, _ := newTestStore(t)

	store.Add(product(5, 10), 2)
	store.Add(product(5, 10), 3)

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, 50.0, store.Total())
	assert.Equal(t, 5, store.ItemCount())
}

func TestMergeKeepsOriginalPosition(t *testing.T) {
	store, _ := newTestStore(t)

	store.Add(product(1, 5), 1)
	store.Add(product(2, 6), 1)
	store.Add(product(1, 5), 1)

	lines := store.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Product.ID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 2, lines[1].Product.ID)
}

func TestSetQuantityFloorRemovesLine(t *testing.T) {
	for _, quantity := range []int{0, -5} {
		store, _ := newTestStore(t)
		store.Add(product(7, 4), 2)

		store.SetQuantity(7, quantity)

		assert.Empty(t, store.Lines(), "quantity %d must remove the line", quantity)
	}
}

func TestSetQuantityUpdatesLine(t *testing.T) {
	store, _ := newTestStore(t)
	store.Add(product(7, 4), 2)

	store.SetQuantity(7, 9)

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 9, lines[0].Quantity)
}

func TestRemoveAndClear(t *testing.T) {
	store, st := newTestStore(t)
	store.Add(product(1, 5), 1)
	store.Add(product(2, 6), 1)

	store.Remove(1)
	assert.Len(t, store.Lines(), 1)

	store.Clear()
	assert.Empty(t, store.Lines())

	_, err := st.LoadCart(context.Background())
	assert.Equal(t, storage.ErrNotFound, err, "clear must erase the persisted entry")
}

func TestSetInstructions(t *testing.T) {
	store, _ := newTestStore(t)
	store.Add(product(3, 8), 1)

	store.SetInstructions(3, "no onions")

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "no onions", lines[0].Instructions)
}

func TestSubscribersSeeEveryStateInOrder(t *testing.T) {
	store, _ := newTestStore(t)

	var first, second []int
	store.Subscribe(func(state domain.CartState) {
		first = append(first, state.ItemCount())
	})
	store.Subscribe(func(state domain.CartState) {
		second = append(second, state.ItemCount())
	})

	store.Add(product(1, 5), 1)
	store.Add(product(1, 5), 2)
	store.SetQuantity(1, 1)
	store.Remove(1)

	// Initial snapshot on subscribe, then one state per mutation.
	want := []int{0, 1, 3, 1, 0}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
}

func TestPublicationHappensBeforeMutationReturns(t *testing.T) {
	store, _ := newTestStore(t)

	var lastSeen int
	store.Subscribe(func(state domain.CartState) {
		lastSeen = state.ItemCount()
	})

	store.Add(product(1, 5), 3)
	assert.Equal(t, 3, lastSeen, "subscriber must run synchronously in the mutating call")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store, _ := newTestStore(t)

	var count int
	id := store.Subscribe(func(domain.CartState) { count++ })

	store.Add(product(1, 5), 1)
	store.Unsubscribe(id)
	store.Add(product(2, 5), 1)

	assert.Equal(t, 2, count, "initial snapshot plus one mutation")
}

func TestCartPersistsAcrossRestart(t *testing.T) {
	store, st := newTestStore(t)
	store.Add(product(1, 5), 2)
	store.Add(product(2, 3), 1)

	// A new store over the same storage hydrates the persisted state.
	restored := NewStore(st, zap.NewNop())

	lines := restored.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 11.0, restored.Total())
}

func TestProperty_AddThenRemoveLeavesCartUnchanged(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("adding then removing a product restores the line count", prop.ForAll(
		func(id int, quantity int) bool {
			store, _ := newTestStore(t)
			store.Add(product(1, 2.5), 1)

			store.Add(product(id+1000, 4), quantity)
			store.Remove(id + 1000)

			return len(store.Lines()) == 1
		},
		gen.IntRange(1, 10_000),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ItemCountMatchesQuantitySum(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("item count equals the sum of added quantities per id", prop.ForAll(
		func(quantities []int) bool {
			store, _ := newTestStore(t)

			want := 0
			for i, q := range quantities {
				if q < 1 {
					q = 1
				}
				store.Add(product(i+1, 1), q)
				want += q
			}
			return store.ItemCount() == want
		},
		gen.SliceOfN(5, gen.IntRange(1, 9)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
