package store

import (
	"errors"
	"sync"
	"testing"

	"marketflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productSeed() []models.Product {
	return []models.Product{
		{ID: 1, Title: "Lamp", Images: []string{"a.png"}},
		{ID: 4, Title: "Desk", Images: []string{"b.png"}},
		{ID: 2, Title: "Chair", Images: []string{"c.png"}},
	}
}

func TestInsertAssignsMaxPlusOne(t *testing.T) {
	table := NewTable("Product", productSeed())

	created, err := table.Insert(models.Product{Title: "Shelf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)

	_, err = table.Delete(5, nil)
	require.NoError(t, err)
	_, err = table.Delete(4, nil)
	require.NoError(t, err)

	// 4 and 5 stay retired even though 2 is the highest remaining id
	created, err = table.Insert(models.Product{Title: "Stool"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), created.ID)
}

func TestInsertNeverReusesDeletedMaxID(t *testing.T) {
	table := NewTable[models.Review]("Review", nil)

	first, err := table.Insert(models.Review{Rating: 4}, nil)
	require.NoError(t, err)
	_, err = table.Delete(first.ID, nil)
	require.NoError(t, err)

	second, err := table.Insert(models.Review{Rating: 5}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.ID+1, second.ID)
}

func TestInsertAfterDeletingSeededMax(t *testing.T) {
	table := NewTable("Product", productSeed())

	_, err := table.Delete(4, nil)
	require.NoError(t, err)

	created, err := table.Insert(models.Product{Title: "Bench"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
}

func TestInsertIntoEmptyTableStartsAtOne(t *testing.T) {
	table := NewTable[models.Review]("Review", nil)

	created, err := table.Insert(models.Review{Rating: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}

func TestGetNotFound(t *testing.T) {
	table := NewTable("Product", productSeed())

	_, err := table.Get(99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Product with ID 99 not found", err.Error())
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	table := NewTable("Product", productSeed())

	p, err := table.Get(1)
	require.NoError(t, err)
	p.Title = "Mutated"
	p.Images[0] = "mutated.png"

	again, err := table.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", again.Title)
	assert.Equal(t, "a.png", again.Images[0])

	all := table.All()
	all[0].Images[0] = "other.png"
	again, _ = table.Get(1)
	assert.Equal(t, "a.png", again.Images[0])
}

func TestSeedIsCopied(t *testing.T) {
	seed := productSeed()
	table := NewTable("Product", seed)

	seed[0].Images[0] = "changed.png"

	p, err := table.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "a.png", p.Images[0])
}

func TestUpdatePinsID(t *testing.T) {
	table := NewTable("Product", productSeed())

	updated, err := table.Update(2, func(cur models.Product, _ []models.Product) (models.Product, error) {
		cur.ID = 77
		cur.Title = "Armchair"
		return cur, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.ID)

	_, err = table.Get(77)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateNotFound(t *testing.T) {
	table := NewTable("Product", productSeed())

	_, err := table.Update(42, func(cur models.Product, _ []models.Product) (models.Product, error) {
		return cur, nil
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGuardsVeto(t *testing.T) {
	table := NewTable("Product", productSeed())
	veto := errors.New("vetoed")

	_, err := table.Insert(models.Product{}, func([]models.Product) error { return veto })
	assert.ErrorIs(t, err, veto)
	assert.Equal(t, 3, table.Len())

	_, err = table.Delete(1, func(models.Product, []models.Product) error { return veto })
	assert.ErrorIs(t, err, veto)
	assert.Equal(t, 3, table.Len())
}

func TestFilterKeepsInsertionOrder(t *testing.T) {
	table := NewTable("Product", productSeed())

	got := table.Filter(func(p models.Product) bool { return p.ID != 4 })
	require.Len(t, got, 2)
	assert.Equal(t, "Lamp", got[0].Title)
	assert.Equal(t, "Chair", got[1].Title)
}

func TestConcurrentInsertsGetDistinctIDs(t *testing.T) {
	table := NewTable[models.Product]("Product", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = table.Insert(models.Product{}, nil)
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, p := range table.All() {
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, seen, 50)
}

func TestNewStoreSeedsAllTables(t *testing.T) {
	parent := int64(1)
	s := New(Seed{
		Products:   productSeed(),
		Categories: []models.Category{{ID: 1, Name: "Home"}, {ID: 2, Name: "Lighting", ParentID: &parent}},
		Orders:     []models.Order{{ID: 3}},
		Reviews:    []models.Review{{ID: 8}},
	})

	assert.Equal(t, 3, s.Products.Len())
	assert.Equal(t, 2, s.Categories.Len())
	assert.Equal(t, 1, s.Orders.Len())
	assert.Equal(t, 1, s.Reviews.Len())
	assert.Equal(t, "Order", s.Orders.Name())
}
