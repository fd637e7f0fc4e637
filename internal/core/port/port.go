package port

import (
	"context"

	"github.com/niksmo/consumershop/internal/core/domain"
)

// Inbound ports.

type ProductsReader interface {
	ListProducts(context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, index uint64) (domain.Product, error)
}

type ProductsSyncer interface {
	SyncProducts(context.Context) (head uint64, err error)
}

type ProductCreator interface {
	CreateProduct(context.Context, domain.NewProduct) (domain.Receipt, error)
}

type ProductBuyer interface {
	BuyProduct(ctx context.Context, index uint64) (domain.Receipt, error)
}

type AccountProvider interface {
	Account(context.Context) string
}

// Shop is everything the dashboard API needs from the core.
type Shop interface {
	ProductsReader
	ProductsSyncer
	ProductCreator
	ProductBuyer
	AccountProvider
}

type EventsHandler interface {
	HandleEvents(context.Context, []domain.Event) error
}

type ProductsSaver interface {
	SaveProducts(context.Context, []domain.Product) error
}

// Outbound ports.

type LedgerReader interface {
	Head(context.Context) (uint64, error)
	NumberOfProducts(ctx context.Context, block uint64) (uint64, error)
	Product(ctx context.Context, block uint64, index uint64) (domain.Product, error)
}

type LedgerWriter interface {
	CreateProduct(context.Context, domain.NewProduct) (domain.Receipt, error)
	BuyProduct(ctx context.Context, p domain.Product) (domain.Receipt, error)
	Address() string
}

type EventsProducer interface {
	ProduceEvents(context.Context, []domain.Event) error
}

type ProductsStorage interface {
	StoreProducts(context.Context, []domain.Product) error
}
