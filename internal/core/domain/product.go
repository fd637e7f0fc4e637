package domain

import "math/big"

type (
	// A Product is a catalog record as held by the ledger contract.
	//
	// Index is assigned by the ledger in creation order and is unique.
	Product struct {
		Index             uint64
		SKU               uint64
		Name              string
		Image             string
		Description       string
		Price             *big.Int // wei
		QuantityAvailable uint64
		QuantitySold      uint64
	}

	// A NewProduct holds the input of the createProduct contract call.
	NewProduct struct {
		SKU               uint64
		Name              string
		Image             string
		Description       string
		Price             *big.Int // wei
		QuantityAvailable uint64
	}

	// A Receipt describes a mined transaction.
	Receipt struct {
		TxHash      string
		BlockNumber uint64
	}
)

// FromCreated builds a product from a creation event.
func FromCreated(e ProductCreated) Product {
	return Product{
		Index:             e.Index,
		SKU:               e.SKU,
		Name:              e.Name,
		Image:             e.Image,
		Description:       e.Description,
		Price:             clonePrice(e.Price),
		QuantityAvailable: e.QuantityAvailable,
	}
}

// WithSale returns a copy of p with the counters reported by the sale event.
func (p Product) WithSale(e ProductSold) Product {
	p.Price = clonePrice(p.Price)
	p.QuantitySold = e.TotalQuantitySold
	p.QuantityAvailable = e.NewQuantityAvailable
	return p
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	p.Price = clonePrice(p.Price)
	return p
}

func clonePrice(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
