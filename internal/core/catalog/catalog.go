// Package catalog keeps the local product list in step with the ledger.
//
// Creation events append a record, sale events replace the record with the
// same index in place. All accessors return copies.
package catalog

import (
	"slices"
	"sync"

	"github.com/niksmo/consumershop/internal/core/domain"
)

type Catalog struct {
	mu       sync.RWMutex
	products []domain.Product
	position map[uint64]int
}

func New() *Catalog {
	return &Catalog{position: make(map[uint64]int)}
}

// Replace drops the current records and stores ps ordered by index.
func (c *Catalog) Replace(ps []domain.Product) {
	products := make([]domain.Product, len(ps))
	for i := range ps {
		products[i] = ps[i].Clone()
	}
	slices.SortStableFunc(products, func(a, b domain.Product) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		}
		return 0
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = c.products[:0]
	clear(c.position)
	for _, p := range products {
		c.put(p)
	}
}

// Apply reconciles a single event and reports whether the catalog changed.
//
// A sale for an index that is not present is ignored.
func (c *Catalog) Apply(e domain.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := e.(type) {
	case domain.ProductCreated:
		c.put(domain.FromCreated(e))
		return true
	case domain.ProductSold:
		pos, ok := c.position[e.Index]
		if !ok {
			return false
		}
		c.products[pos] = c.products[pos].WithSale(e)
		return true
	case domain.ProductSynced:
		c.put(e.Product.Clone())
		return true
	}
	return false
}

// put appends p or, when its index is already known, overwrites in place.
func (c *Catalog) put(p domain.Product) {
	if pos, ok := c.position[p.Index]; ok {
		c.products[pos] = p
		return
	}
	c.position[p.Index] = len(c.products)
	c.products = append(c.products, p)
}

// List returns the records in insertion order.
func (c *Catalog) List() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ps := make([]domain.Product, len(c.products))
	for i := range c.products {
		ps[i] = c.products[i].Clone()
	}
	return ps
}

func (c *Catalog) Get(index uint64) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, ok := c.position[index]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[pos].Clone(), true
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}
