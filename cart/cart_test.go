package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pis-bookshop/storefront/storage"
)

func TestAddOneCreatesAndIncrements(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemory())

	require.NoError(t, c.AddOne(ctx, 7))
	require.NoError(t, c.AddOne(ctx, 7))
	require.NoError(t, c.AddOne(ctx, 3))

	q, err := c.Quantity(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, q)

	lines, err := c.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Line{{3, 1}, {7, 2}}, lines)
	assert.Equal(t, 3, Size(lines))
	assert.Equal(t, []int64{3, 7}, IDs(lines))
}

func TestRemoveOneDeletesAtZero(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemory())

	require.NoError(t, c.SetQuantity(ctx, 5, 2))
	require.NoError(t, c.RemoveOne(ctx, 5))
	q, _ := c.Quantity(ctx, 5)
	assert.Equal(t, 1, q)

	require.NoError(t, c.RemoveOne(ctx, 5))
	lines, _ := c.Lines(ctx)
	assert.Empty(t, lines)

	// absent id is a no-op
	require.NoError(t, c.RemoveOne(ctx, 5))
	lines, _ = c.Lines(ctx)
	assert.Empty(t, lines)
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemory())

	require.NoError(t, c.SetQuantity(ctx, 9, 4))
	q, _ := c.Quantity(ctx, 9)
	assert.Equal(t, 4, q)

	require.NoError(t, c.SetQuantity(ctx, 9, 0))
	q, _ = c.Quantity(ctx, 9)
	assert.Equal(t, 0, q)
	lines, _ := c.Lines(ctx)
	assert.Empty(t, lines, "zero must remove the entry, not store it")

	assert.ErrorIs(t, c.SetQuantity(ctx, 9, -1), ErrInvalidQuantity)
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c := New(store)

	require.NoError(t, c.SetQuantity(ctx, 1, 3))
	require.NoError(t, c.SetQuantity(ctx, 2, 1))
	require.NoError(t, c.Remove(ctx, 1))
	lines, _ := c.Lines(ctx)
	assert.Equal(t, []Line{{2, 1}}, lines)

	require.NoError(t, c.Clear(ctx))
	lines, _ = c.Lines(ctx)
	assert.Empty(t, lines)
	_, err := store.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPersistedFormat(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c := New(store)
	require.NoError(t, c.SetQuantity(ctx, 12, 2))
	require.NoError(t, c.AddOne(ctx, 4))

	raw, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[[4,1],[12,2]]`, string(raw))
}

func TestReloadReproducesMapping(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		require.NoError(t, store.Remove(ctx, StorageKey))
		c := New(store)
		n := 1 + r.Intn(10)
		for i := 0; i < n; i++ {
			require.NoError(t, c.SetQuantity(ctx, int64(r.Intn(50)), 1+r.Intn(9)))
		}
		before, err := c.Lines(ctx)
		require.NoError(t, err)

		reloaded, err := New(store).Lines(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, reloaded)
	}
}

func TestCorruptStorageIsEmptyCart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, StorageKey, []byte("{not json")))

	c := New(store)
	lines, err := c.Lines(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, c.AddOne(ctx, 1))
	q, _ := c.Quantity(ctx, 1)
	assert.Equal(t, 1, q)
}

func TestNoNonPositiveEntriesUnderRandomOps(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c := New(store)
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		id := int64(r.Intn(5))
		switch r.Intn(4) {
		case 0:
			require.NoError(t, c.AddOne(ctx, id))
		case 1:
			require.NoError(t, c.RemoveOne(ctx, id))
		case 2:
			require.NoError(t, c.SetQuantity(ctx, id, r.Intn(4)))
		case 3:
			require.NoError(t, c.Remove(ctx, id))
		}
		lines, err := c.Lines(ctx)
		require.NoError(t, err)
		for _, l := range lines {
			require.Greater(t, l.Quantity, 0)
		}
	}

	persisted, err := Load(ctx, store)
	require.NoError(t, err)
	for _, q := range persisted {
		assert.Greater(t, q, 0)
	}
}

func TestStockLimit(t *testing.T) {
	ctx := context.Background()
	stock := map[int64]int{1: 2, 2: 0}
	c := New(storage.NewMemory(), WithStock(func(_ context.Context, id int64) (int, error) {
		return stock[id], nil
	}))

	require.NoError(t, c.AddOne(ctx, 1))
	require.NoError(t, c.AddOne(ctx, 1))
	assert.ErrorIs(t, c.AddOne(ctx, 1), ErrExceedsStock)
	q, _ := c.Quantity(ctx, 1)
	assert.Equal(t, 2, q)

	assert.ErrorIs(t, c.AddOne(ctx, 2), ErrExceedsStock, "sold out")
	assert.ErrorIs(t, c.SetQuantity(ctx, 1, 3), ErrExceedsStock)
	require.NoError(t, c.SetQuantity(ctx, 1, 0), "removal never consults stock")
}

func TestStockLookupFailureLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	c := New(storage.NewMemory(), WithStock(func(context.Context, int64) (int, error) {
		return 0, boom
	}))
	assert.ErrorIs(t, c.AddOne(ctx, 1), boom)
	lines, _ := c.Lines(ctx)
	assert.Empty(t, lines)
}

type failingStore struct{ storage.Store }

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func TestPersistFailureDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	c := New(failingStore{storage.NewMemory()})
	assert.Error(t, c.AddOne(ctx, 1))
	q, err := c.Quantity(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, q)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.For("sid").AddOne(ctx, 7))
		}()
	}
	wg.Wait()

	q, err := m.For("sid").Quantity(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 50, q)
}

func TestManagerScopesSessions(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := NewManager(store)

	require.NoError(t, m.For("a").AddOne(ctx, 1))
	require.NoError(t, m.For("b").SetQuantity(ctx, 1, 5))

	qa, _ := m.For("a").Quantity(ctx, 1)
	qb, _ := m.For("b").Quantity(ctx, 1)
	assert.Equal(t, 1, qa)
	assert.Equal(t, 5, qb)

	assert.Equal(t, 2, m.Len())
	m.Forget("a")
	assert.Equal(t, 1, m.Len())
	qa, _ = m.For("a").Quantity(ctx, 1)
	assert.Equal(t, 1, qa, "forgotten controller reloads from storage")
}
