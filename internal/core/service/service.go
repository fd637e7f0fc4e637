package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/niksmo/consumershop/internal/core/catalog"
	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/internal/core/port"
	"golang.org/x/sync/errgroup"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

// MinPrice is the lowest accepted product price, 0.001 ETH in wei.
var MinPrice = big.NewInt(1_000_000_000_000_000)

const defaultFetchConcurrency = 8

var _ port.Shop = (*Service)(nil)
var _ port.EventsHandler = (*Service)(nil)
var _ port.ProductsSaver = (*Service)(nil)

type Service struct {
	catalog          *catalog.Catalog
	ledgerReader     port.LedgerReader
	ledgerWriter     port.LedgerWriter
	eventsProducer   port.EventsProducer
	productsStorage  port.ProductsStorage
	fetchConcurrency int
}

// New returns the core service.
//
// Unused adapters may be nil: the dashboard runs without storage,
// the projector runs without the catalog and the ledger.
func New(
	catalog *catalog.Catalog,
	ledgerReader port.LedgerReader,
	ledgerWriter port.LedgerWriter,
	eventsProducer port.EventsProducer,
	productsStorage port.ProductsStorage,
) *Service {
	return &Service{
		catalog:          catalog,
		ledgerReader:     ledgerReader,
		ledgerWriter:     ledgerWriter,
		eventsProducer:   eventsProducer,
		productsStorage:  productsStorage,
		fetchConcurrency: defaultFetchConcurrency,
	}
}

// SetFetchConcurrency limits parallel product reads during sync.
func (s *Service) SetFetchConcurrency(n int) {
	if n > 0 {
		s.fetchConcurrency = n
	}
}

// SyncProducts loads the whole catalog pinned to the current head block
// and returns that block number.
func (s *Service) SyncProducts(ctx context.Context) (uint64, error) {
	const op = "Service.SyncProducts"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	head, err := s.ledgerReader.Head(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.ledgerReader.NumberOfProducts(ctx, head)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	products := make([]domain.Product, n)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i := range n {
		g.Go(func() error {
			p, err := s.ledgerReader.Product(gCtx, head, i)
			if err != nil {
				return err
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.catalog.Replace(products)
	log.Info("products synchronized", "head", head, "nProducts", n)

	if err := s.publishSnapshot(ctx, head, products); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return head, nil
}

// publishSnapshot sends the loaded records to the events producer so the
// projections also hold products created before the watched range.
func (s *Service) publishSnapshot(
	ctx context.Context, head uint64, products []domain.Product,
) error {
	if s.eventsProducer == nil || len(products) == 0 {
		return nil
	}

	evts := make([]domain.Event, 0, len(products))
	for _, p := range products {
		evts = append(evts, domain.ProductSynced{
			Meta:    domain.EventMeta{BlockNumber: head},
			Product: p.Clone(),
		})
	}
	return s.eventsProducer.ProduceEvents(ctx, evts)
}

// HandleEvents reconciles the catalog with ledger events
// and forwards them to the events producer.
func (s *Service) HandleEvents(ctx context.Context, evts []domain.Event) error {
	const op = "Service.HandleEvents"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, e := range evts {
		if !s.catalog.Apply(e) {
			log.Warn("event skipped: unknown product", "index", e.ProductIndex())
			continue
		}
		log.Debug("event applied", "index", e.ProductIndex(), "type", fmt.Sprintf("%T", e))
	}

	if s.eventsProducer == nil || len(evts) == 0 {
		return nil
	}

	if err := s.eventsProducer.ProduceEvents(ctx, evts); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "Service.ListProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.catalog.List(), nil
}

func (s *Service) GetProduct(ctx context.Context, index uint64) (domain.Product, error) {
	const op = "Service.GetProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, ok := s.catalog.Get(index)
	if !ok {
		return domain.Product{}, fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}
	return p, nil
}

func (s *Service) CreateProduct(
	ctx context.Context, v domain.NewProduct,
) (domain.Receipt, error) {
	const op = "Service.CreateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	v.Name = strings.TrimSpace(v.Name)
	v.Image = strings.TrimSpace(v.Image)
	v.Description = strings.TrimSpace(v.Description)

	if err := validateNewProduct(v); err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	r, err := s.ledgerWriter.CreateProduct(ctx, v)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("product created", "op", op, "sku", v.SKU, "tx", r.TxHash)
	return r, nil
}

func validateNewProduct(v domain.NewProduct) error {
	var errs []error

	if v.SKU < 1 {
		errs = append(errs, errors.New("sku must be at least 1"))
	}
	if v.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if v.Price == nil || v.Price.Cmp(MinPrice) < 0 {
		errs = append(errs, errors.New("price must be at least 0.001 ETH"))
	}
	if v.QuantityAvailable < 1 {
		errs = append(errs, errors.New("quantity available must be at least 1"))
	}

	if len(errs) != 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, errors.Join(errs...))
	}
	return nil
}

// BuyProduct buys one item paying the product price.
func (s *Service) BuyProduct(ctx context.Context, index uint64) (domain.Receipt, error) {
	const op = "Service.BuyProduct"

	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.lookupProduct(ctx, index)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	r, err := s.ledgerWriter.BuyProduct(ctx, p)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("product bought", "op", op, "index", index, "tx", r.TxHash)
	return r, nil
}

// lookupProduct prefers the local catalog and falls back to the ledger
// for products whose creation event has not arrived yet.
func (s *Service) lookupProduct(ctx context.Context, index uint64) (domain.Product, error) {
	if p, ok := s.catalog.Get(index); ok {
		return p, nil
	}

	head, err := s.ledgerReader.Head(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	n, err := s.ledgerReader.NumberOfProducts(ctx, head)
	if err != nil {
		return domain.Product{}, err
	}
	if index >= n {
		return domain.Product{}, ErrProductNotFound
	}

	return s.ledgerReader.Product(ctx, head, index)
}

func (s *Service) Account(context.Context) string {
	return s.ledgerWriter.Address()
}

func (s *Service) SaveProducts(ctx context.Context, ps []domain.Product) error {
	const op = "Service.SaveProducts"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.productsStorage.StoreProducts(ctx, ps)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
