package domain

import "math/big"

// An Event is a catalog state change emitted by the ledger contract.
//
// Implemented by [ProductCreated], [ProductSold] and [ProductSynced].
type Event interface {
	ProductIndex() uint64
	Metadata() EventMeta
}

// An EventMeta locates the log that carried an event.
type EventMeta struct {
	BlockNumber uint64
	TxHash      string
	LogIndex    uint
}

type (
	ProductCreated struct {
		Meta              EventMeta
		Index             uint64
		SKU               uint64
		Name              string
		Image             string
		Description       string
		QuantityAvailable uint64
		Price             *big.Int // wei
	}

	ProductSold struct {
		Meta                 EventMeta
		Index                uint64
		SKU                  uint64
		QuantitySold         uint64
		TotalQuantitySold    uint64
		NewQuantityAvailable uint64
	}

	// ProductSynced carries a whole record read from the contract state
	// at Meta.BlockNumber. It is not emitted by the ledger, the dashboard
	// publishes it after loading the catalog.
	ProductSynced struct {
		Meta    EventMeta
		Product Product
	}
)

func (e ProductCreated) ProductIndex() uint64 { return e.Index }
func (e ProductCreated) Metadata() EventMeta  { return e.Meta }

func (e ProductSold) ProductIndex() uint64 { return e.Index }
func (e ProductSold) Metadata() EventMeta  { return e.Meta }

func (e ProductSynced) ProductIndex() uint64 { return e.Product.Index }
func (e ProductSynced) Metadata() EventMeta  { return e.Meta }
