package catalog_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/niksmo/consumershop/internal/core/catalog"
	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func created(index uint64, name string) domain.ProductCreated {
	return domain.ProductCreated{
		Index:             index,
		SKU:               100 + index,
		Name:              name,
		Description:       name + " description",
		QuantityAvailable: 10,
		Price:             big.NewInt(int64(index+1) * 1_000),
	}
}

func TestCatalogApplyCreated(t *testing.T) {
	c := catalog.New()

	require.True(t, c.Apply(created(0, "first")))
	require.True(t, c.Apply(created(1, "second")))
	require.True(t, c.Apply(created(2, "third")))

	ps := c.List()
	require.Len(t, ps, 3)
	assert.Equal(t, "first", ps[0].Name)
	assert.Equal(t, "second", ps[1].Name)
	assert.Equal(t, "third", ps[2].Name)
	for i, p := range ps {
		assert.Equal(t, uint64(i), p.Index)
		assert.Zero(t, p.QuantitySold)
		assert.Equal(t, uint64(10), p.QuantityAvailable)
	}
}

func TestCatalogApplyCreatedPreservesPrior(t *testing.T) {
	c := catalog.New()
	c.Apply(created(0, "first"))
	c.Apply(domain.ProductSold{Index: 0, TotalQuantitySold: 4, NewQuantityAvailable: 6})
	before := c.List()

	c.Apply(created(1, "second"))

	after := c.List()
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, "second", after[1].Name)
}

func TestCatalogApplySold(t *testing.T) {
	t.Run("ExistingIndex", func(t *testing.T) {
		c := catalog.New()
		c.Apply(created(0, "first"))
		c.Apply(created(1, "second"))
		c.Apply(created(2, "third"))

		changed := c.Apply(domain.ProductSold{
			Index:                1,
			SKU:                  101,
			QuantitySold:         1,
			TotalQuantitySold:    3,
			NewQuantityAvailable: 7,
		})
		require.True(t, changed)

		ps := c.List()
		require.Len(t, ps, 3)
		assert.Equal(t, "second", ps[1].Name)
		assert.Equal(t, uint64(3), ps[1].QuantitySold)
		assert.Equal(t, uint64(7), ps[1].QuantityAvailable)
		assert.Equal(t, 0, big.NewInt(2_000).Cmp(ps[1].Price))

		assert.Zero(t, ps[0].QuantitySold)
		assert.Zero(t, ps[2].QuantitySold)
	})

	t.Run("UnknownIndex", func(t *testing.T) {
		c := catalog.New()
		c.Apply(created(0, "first"))
		before := c.List()

		changed := c.Apply(domain.ProductSold{
			Index:                5,
			TotalQuantitySold:    1,
			NewQuantityAvailable: 0,
		})

		assert.False(t, changed)
		assert.Equal(t, before, c.List())
	})

	t.Run("ReplayIsIdempotent", func(t *testing.T) {
		c := catalog.New()
		c.Apply(created(0, "first"))
		sold := domain.ProductSold{Index: 0, TotalQuantitySold: 2, NewQuantityAvailable: 8}

		c.Apply(sold)
		c.Apply(sold)

		p, ok := c.Get(0)
		require.True(t, ok)
		assert.Equal(t, uint64(2), p.QuantitySold)
		assert.Equal(t, uint64(8), p.QuantityAvailable)
	})
}

func TestCatalogDuplicateCreated(t *testing.T) {
	c := catalog.New()
	c.Apply(created(0, "first"))
	c.Apply(created(1, "second"))

	c.Apply(created(0, "first-again"))

	ps := c.List()
	require.Len(t, ps, 2)
	assert.Equal(t, "first-again", ps[0].Name)
	assert.Equal(t, "second", ps[1].Name)
}

func TestCatalogApplySynced(t *testing.T) {
	c := catalog.New()
	c.Apply(created(0, "first"))

	p := domain.FromCreated(created(0, "first"))
	p.QuantitySold = 3
	p.QuantityAvailable = 7
	require.True(t, c.Apply(domain.ProductSynced{Product: p}))

	q := domain.FromCreated(created(1, "second"))
	require.True(t, c.Apply(domain.ProductSynced{Product: q}))

	ps := c.List()
	require.Len(t, ps, 2)
	assert.Equal(t, uint64(3), ps[0].QuantitySold)
	assert.Equal(t, uint64(7), ps[0].QuantityAvailable)
	assert.Equal(t, "second", ps[1].Name)
}

func TestCatalogReplace(t *testing.T) {
	c := catalog.New()
	c.Apply(created(9, "stale"))

	c.Replace([]domain.Product{
		{Index: 2, Name: "c", Price: big.NewInt(3)},
		{Index: 0, Name: "a", Price: big.NewInt(1)},
		{Index: 1, Name: "b", Price: big.NewInt(2)},
	})

	ps := c.List()
	require.Len(t, ps, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{ps[0].Name, ps[1].Name, ps[2].Name})

	_, ok := c.Get(9)
	assert.False(t, ok)

	changed := c.Apply(domain.ProductSold{Index: 2, TotalQuantitySold: 1, NewQuantityAvailable: 4})
	require.True(t, changed)
	p, _ := c.Get(2)
	assert.Equal(t, uint64(1), p.QuantitySold)
}

func TestCatalogCopies(t *testing.T) {
	c := catalog.New()
	c.Apply(created(0, "first"))

	ps := c.List()
	ps[0].Name = "mutated"
	ps[0].Price.SetInt64(0)

	p, ok := c.Get(0)
	require.True(t, ok)
	assert.Equal(t, "first", p.Name)
	assert.Equal(t, 0, big.NewInt(1_000).Cmp(p.Price))
}

func TestCatalogConcurrentAccess(t *testing.T) {
	c := catalog.New()
	const n = 50

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range uint64(n) {
			c.Apply(created(i, "p"))
		}
	}()
	go func() {
		defer wg.Done()
		for range n {
			_ = c.List()
			_ = c.Len()
		}
	}()
	wg.Wait()

	assert.Equal(t, n, c.Len())
}
