package httphandler

import (
	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/pkg/ether"
)

type (
	Product struct {
		Index             uint64 `json:"index"`
		SKU               uint64 `json:"sku"`
		Name              string `json:"name"`
		Image             string `json:"image"`
		Description       string `json:"description"`
		PriceWei          string `json:"price_wei"`
		PriceETH          string `json:"price_eth"`
		QuantityAvailable uint64 `json:"quantity_available"`
		QuantitySold      uint64 `json:"quantity_sold"`
	}

	// NewProduct is the create product form, price is in ETH.
	NewProduct struct {
		SKU               uint64 `json:"sku"`
		Name              string `json:"name"`
		Image             string `json:"image"`
		Description       string `json:"description"`
		Price             string `json:"price"`
		QuantityAvailable uint64 `json:"quantity_available"`
	}

	Receipt struct {
		TxHash      string `json:"tx_hash"`
		BlockNumber uint64 `json:"block_number"`
	}

	Account struct {
		Address string `json:"address"`
	}

	SyncResult struct {
		Head     uint64 `json:"head"`
		Products int    `json:"products"`
	}
)

func (h ProductsHandler) fromDomainProduct(p domain.Product) Product {
	wei := "0"
	if p.Price != nil {
		wei = p.Price.String()
	}
	image := p.Image
	if image == "" {
		image = h.defaultImage
	}
	return Product{
		Index:             p.Index,
		SKU:               p.SKU,
		Name:              p.Name,
		Image:             image,
		Description:       p.Description,
		PriceWei:          wei,
		PriceETH:          ether.FormatEther(p.Price),
		QuantityAvailable: p.QuantityAvailable,
		QuantitySold:      p.QuantitySold,
	}
}

func (h ProductsHandler) fromDomainProducts(ps []domain.Product) []Product {
	vs := make([]Product, 0, len(ps))
	for _, p := range ps {
		vs = append(vs, h.fromDomainProduct(p))
	}
	return vs
}

func fromDomainReceipt(r domain.Receipt) Receipt {
	return Receipt{TxHash: r.TxHash, BlockNumber: r.BlockNumber}
}
