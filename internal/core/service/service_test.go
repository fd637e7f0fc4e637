package service_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/niksmo/consumershop/internal/core/catalog"
	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedgerReader struct {
	mock.Mock
}

func (m *MockLedgerReader) Head(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerReader) NumberOfProducts(
	ctx context.Context, block uint64,
) (uint64, error) {
	args := m.Called(ctx, block)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerReader) Product(
	ctx context.Context, block uint64, index uint64,
) (domain.Product, error) {
	args := m.Called(ctx, block, index)
	return args.Get(0).(domain.Product), args.Error(1)
}

type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) CreateProduct(
	ctx context.Context, v domain.NewProduct,
) (domain.Receipt, error) {
	args := m.Called(ctx, v)
	return args.Get(0).(domain.Receipt), args.Error(1)
}

func (m *MockLedgerWriter) BuyProduct(
	ctx context.Context, p domain.Product,
) (domain.Receipt, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Receipt), args.Error(1)
}

func (m *MockLedgerWriter) Address() string {
	return m.Called().String(0)
}

type MockEventsProducer struct {
	mock.Mock
}

func (m *MockEventsProducer) ProduceEvents(
	ctx context.Context, evts []domain.Event,
) error {
	return m.Called(ctx, evts).Error(0)
}

type MockProductsStorage struct {
	mock.Mock
}

func (m *MockProductsStorage) StoreProducts(
	ctx context.Context, ps []domain.Product,
) error {
	return m.Called(ctx, ps).Error(0)
}

func product(index uint64, name string) domain.Product {
	return domain.Product{
		Index:             index,
		SKU:               index + 1,
		Name:              name,
		Price:             big.NewInt(int64(index+1) * 1_000_000_000_000_000),
		QuantityAvailable: 5,
	}
}

func TestSyncProducts(t *testing.T) {
	t.Run("Regular", func(t *testing.T) {
		reader := new(MockLedgerReader)
		reader.On("Head", mock.Anything).Return(uint64(120), nil)
		reader.On("NumberOfProducts", mock.Anything, uint64(120)).Return(uint64(3), nil)
		for i, name := range []string{"a", "b", "c"} {
			reader.On("Product", mock.Anything, uint64(120), uint64(i)).
				Return(product(uint64(i), name), nil)
		}

		c := catalog.New()
		s := service.New(c, reader, nil, nil, nil)
		s.SetFetchConcurrency(2)

		head, err := s.SyncProducts(t.Context())
		require.NoError(t, err)
		assert.Equal(t, uint64(120), head)

		ps := c.List()
		require.Len(t, ps, 3)
		assert.Equal(t, "a", ps[0].Name)
		assert.Equal(t, "b", ps[1].Name)
		assert.Equal(t, "c", ps[2].Name)
		reader.AssertExpectations(t)
	})

	t.Run("ProductReadFails", func(t *testing.T) {
		errRead := errors.New("read failed")
		reader := new(MockLedgerReader)
		reader.On("Head", mock.Anything).Return(uint64(7), nil)
		reader.On("NumberOfProducts", mock.Anything, uint64(7)).Return(uint64(2), nil)
		reader.On("Product", mock.Anything, uint64(7), uint64(0)).
			Return(product(0, "a"), nil).Maybe()
		reader.On("Product", mock.Anything, uint64(7), uint64(1)).
			Return(domain.Product{}, errRead)

		c := catalog.New()
		c.Apply(domain.ProductCreated{Index: 9, Name: "kept"})
		s := service.New(c, reader, nil, nil, nil)

		_, err := s.SyncProducts(t.Context())
		require.ErrorIs(t, err, errRead)
		assert.Equal(t, 1, c.Len(), "catalog must stay untouched on failure")
	})

	t.Run("Empty", func(t *testing.T) {
		reader := new(MockLedgerReader)
		reader.On("Head", mock.Anything).Return(uint64(1), nil)
		reader.On("NumberOfProducts", mock.Anything, uint64(1)).Return(uint64(0), nil)

		c := catalog.New()
		s := service.New(c, reader, nil, nil, nil)

		_, err := s.SyncProducts(t.Context())
		require.NoError(t, err)
		assert.Zero(t, c.Len())
	})

	t.Run("PublishesSnapshotThenSale", func(t *testing.T) {
		reader := new(MockLedgerReader)
		reader.On("Head", mock.Anything).Return(uint64(50), nil)
		reader.On("NumberOfProducts", mock.Anything, uint64(50)).Return(uint64(1), nil)
		reader.On("Product", mock.Anything, uint64(50), uint64(0)).
			Return(product(0, "a"), nil)

		var produced [][]domain.Event
		producer := new(MockEventsProducer)
		producer.On("ProduceEvents", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				produced = append(produced, args.Get(1).([]domain.Event))
			}).
			Return(nil)

		c := catalog.New()
		s := service.New(c, reader, nil, producer, nil)

		_, err := s.SyncProducts(t.Context())
		require.NoError(t, err)

		sold := domain.ProductSold{
			Meta:                 domain.EventMeta{BlockNumber: 51},
			Index:                0,
			TotalQuantitySold:    1,
			NewQuantityAvailable: 4,
		}
		require.NoError(t, s.HandleEvents(t.Context(), []domain.Event{sold}))

		require.Len(t, produced, 2)
		require.Len(t, produced[0], 1)
		snapshot, ok := produced[0][0].(domain.ProductSynced)
		require.True(t, ok)
		assert.Equal(t, uint64(50), snapshot.Meta.BlockNumber)
		assert.Equal(t, "a", snapshot.Product.Name)
		assert.Equal(t, uint64(5), snapshot.Product.QuantityAvailable)
		assert.Equal(t, []domain.Event{sold}, produced[1])

		p, ok := c.Get(0)
		require.True(t, ok)
		assert.Equal(t, uint64(1), p.QuantitySold)
		assert.Equal(t, uint64(4), p.QuantityAvailable)
	})

	t.Run("SnapshotProducerFails", func(t *testing.T) {
		errProduce := errors.New("broker unavailable")
		reader := new(MockLedgerReader)
		reader.On("Head", mock.Anything).Return(uint64(3), nil)
		reader.On("NumberOfProducts", mock.Anything, uint64(3)).Return(uint64(1), nil)
		reader.On("Product", mock.Anything, uint64(3), uint64(0)).
			Return(product(0, "a"), nil)

		producer := new(MockEventsProducer)
		producer.On("ProduceEvents", mock.Anything, mock.Anything).Return(errProduce)

		c := catalog.New()
		s := service.New(c, reader, nil, producer, nil)

		_, err := s.SyncProducts(t.Context())
		require.ErrorIs(t, err, errProduce)
		assert.Equal(t, 1, c.Len())
	})
}

func TestHandleEvents(t *testing.T) {
	t.Run("AppliesAndProduces", func(t *testing.T) {
		evts := []domain.Event{
			domain.ProductCreated{Index: 0, Name: "a", QuantityAvailable: 3, Price: big.NewInt(1)},
			domain.ProductSold{Index: 0, TotalQuantitySold: 1, NewQuantityAvailable: 2},
			domain.ProductSold{Index: 4, TotalQuantitySold: 1, NewQuantityAvailable: 2},
		}

		producer := new(MockEventsProducer)
		producer.On("ProduceEvents", mock.Anything, evts).Return(nil)

		c := catalog.New()
		s := service.New(c, nil, nil, producer, nil)

		require.NoError(t, s.HandleEvents(t.Context(), evts))

		p, ok := c.Get(0)
		require.True(t, ok)
		assert.Equal(t, uint64(1), p.QuantitySold)
		assert.Equal(t, uint64(2), p.QuantityAvailable)
		assert.Equal(t, 1, c.Len())
		producer.AssertExpectations(t)
	})

	t.Run("ProducerFails", func(t *testing.T) {
		errProduce := errors.New("broker unavailable")
		evts := []domain.Event{domain.ProductCreated{Index: 0, Name: "a"}}

		producer := new(MockEventsProducer)
		producer.On("ProduceEvents", mock.Anything, evts).Return(errProduce)

		c := catalog.New()
		s := service.New(c, nil, nil, producer, nil)

		err := s.HandleEvents(t.Context(), evts)
		require.ErrorIs(t, err, errProduce)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("NoProducer", func(t *testing.T) {
		c := catalog.New()
		s := service.New(c, nil, nil, nil, nil)

		err := s.HandleEvents(t.Context(), []domain.Event{
			domain.ProductCreated{Index: 0, Name: "a"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		s := service.New(catalog.New(), nil, nil, nil, nil)
		err := s.HandleEvents(ctx, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGetProduct(t *testing.T) {
	c := catalog.New()
	c.Apply(domain.ProductCreated{Index: 0, Name: "a"})
	s := service.New(c, nil, nil, nil, nil)

	p, err := s.GetProduct(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name)

	_, err = s.GetProduct(t.Context(), 1)
	assert.ErrorIs(t, err, service.ErrProductNotFound)
}

func TestCreateProduct(t *testing.T) {
	valid := domain.NewProduct{
		SKU:               1,
		Name:              "  testName ",
		Image:             "",
		Description:       "testDescription",
		Price:             big.NewInt(1_000_000_000_000_000),
		QuantityAvailable: 1,
	}

	t.Run("Regular", func(t *testing.T) {
		want := valid
		want.Name = "testName"
		receipt := domain.Receipt{TxHash: "0xabc", BlockNumber: 10}

		writer := new(MockLedgerWriter)
		writer.On("CreateProduct", mock.Anything, want).Return(receipt, nil)

		s := service.New(catalog.New(), nil, writer, nil, nil)

		r, err := s.CreateProduct(t.Context(), valid)
		require.NoError(t, err)
		assert.Equal(t, receipt, r)
		writer.AssertExpectations(t)
	})

	invalid := map[string]func(v *domain.NewProduct){
		"ZeroSKU":      func(v *domain.NewProduct) { v.SKU = 0 },
		"BlankName":    func(v *domain.NewProduct) { v.Name = "   " },
		"NilPrice":     func(v *domain.NewProduct) { v.Price = nil },
		"LowPrice":     func(v *domain.NewProduct) { v.Price = big.NewInt(999_999_999_999_999) },
		"ZeroQuantity": func(v *domain.NewProduct) { v.QuantityAvailable = 0 },
	}
	for name, modify := range invalid {
		t.Run(name, func(t *testing.T) {
			v := valid
			modify(&v)

			writer := new(MockLedgerWriter)
			s := service.New(catalog.New(), nil, writer, nil, nil)

			_, err := s.CreateProduct(t.Context(), v)
			require.ErrorIs(t, err, service.ErrInvalidProduct)
			writer.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
		})
	}

	t.Run("LedgerFails", func(t *testing.T) {
		errTx := errors.New("tx reverted")
		writer := new(MockLedgerWriter)
		writer.On("CreateProduct", mock.Anything, mock.Anything).
			Return(domain.Receipt{}, errTx)

		s := service.New(catalog.New(), nil, writer, nil, nil)

		_, err := s.CreateProduct(t.Context(), valid)
		assert.ErrorIs(t, err, errTx)
	})
}

func TestBuyProduct(t *testing.T) {
	t.Run("FromCatalog", func(t *testing.T) {
		c := catalog.New()
		c.Replace([]domain.Product{product(0, "a")})
		p, _ := c.Get(0)
		receipt := domain.Receipt{TxHash: "0x01", BlockNumber: 3}

		writer := new(MockLedgerWriter)
		writer.On("BuyProduct", mock.Anything, p).Return(receipt, nil)
		reader := new(MockLedgerReader)

		s := service.New(c, reader, writer, nil, nil)

		r, err := s.BuyProduct(t.Context(), 0)
		require.NoError(t, err)
		assert.Equal(t, receipt, r)
		writer.AssertExpectations(t)
		reader.AssertNotCalled(t, "Head", mock.Anything)
	})

	t.Run("FromLedger", func(t *testing.T) {
		p := product(2, "c")
		receipt := domain.Receipt{TxHash: "0x02", BlockNumber: 4}

		reader := new(MockLedgerReader)
		reader.On("Head", mock.Anything).Return(uint64(50), nil)
		reader.On("NumberOfProducts", mock.Anything, uint64(50)).Return(uint64(3), nil)
		reader.On("Product", mock.Anything, uint64(50), uint64(2)).Return(p, nil)
		writer := new(MockLedgerWriter)
		writer.On("BuyProduct", mock.Anything, p).Return(receipt, nil)

		s := service.New(catalog.New(), reader, writer, nil, nil)

		r, err := s.BuyProduct(t.Context(), 2)
		require.NoError(t, err)
		assert.Equal(t, receipt, r)
	})

	t.Run("NotFound", func(t *testing.T) {
		reader := new(MockLedgerReader)
		reader.On("Head", mock.Anything).Return(uint64(50), nil)
		reader.On("NumberOfProducts", mock.Anything, uint64(50)).Return(uint64(3), nil)
		writer := new(MockLedgerWriter)

		s := service.New(catalog.New(), reader, writer, nil, nil)

		_, err := s.BuyProduct(t.Context(), 3)
		require.ErrorIs(t, err, service.ErrProductNotFound)
		writer.AssertNotCalled(t, "BuyProduct", mock.Anything, mock.Anything)
	})
}

func TestAccount(t *testing.T) {
	writer := new(MockLedgerWriter)
	writer.On("Address").Return("0x00000000000000000000000000000000000000aa")

	s := service.New(catalog.New(), nil, writer, nil, nil)

	assert.Equal(t, "0x00000000000000000000000000000000000000aa", s.Account(t.Context()))
}

func TestSaveProducts(t *testing.T) {
	ps := []domain.Product{product(0, "a")}

	storage := new(MockProductsStorage)
	storage.On("StoreProducts", mock.Anything, ps).Return(nil)

	s := service.New(nil, nil, nil, nil, storage)

	require.NoError(t, s.SaveProducts(t.Context(), ps))
	storage.AssertExpectations(t)
}
