package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/niksmo/consumershop/internal/core/domain"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrOverflow     = errors.New("value overflows uint64")
)

type (
	productCreatedLog struct {
		Index             *big.Int
		Sku               *big.Int
		Name              string
		Image             string
		Description       string
		QuantityAvailable *big.Int
		Price             *big.Int
	}

	productSoldLog struct {
		Index                *big.Int
		Sku                  *big.Int
		QuantitySold         *big.Int
		TotalQuantitySold    *big.Int
		NewQuantityAvailable *big.Int
	}
)

// A ShopContract is the binding of the ConsumerShop contract.
type ShopContract struct {
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
}

func NewShopContract(
	address common.Address, backend bind.ContractBackend,
) (*ShopContract, error) {
	const op = "ledger.NewShopContract"

	parsed, err := abi.JSON(strings.NewReader(ShopABI))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &ShopContract{
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (c *ShopContract) Address() common.Address {
	return c.address
}

// NumberOfProducts reads the product count at block, zero block is the latest.
func (c *ShopContract) NumberOfProducts(
	ctx context.Context, block uint64,
) (uint64, error) {
	const op = "ShopContract.NumberOfProducts"

	var out []any
	err := c.bound.Call(callOpts(ctx, block), &out, methodNumberOfProducts)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := toUint64(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Product reads the product record at index.
func (c *ShopContract) Product(
	ctx context.Context, block uint64, index uint64,
) (domain.Product, error) {
	const op = "ShopContract.Product"

	var out []any
	err := c.bound.Call(
		callOpts(ctx, block), &out, methodProducts, new(big.Int).SetUint64(index),
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	var (
		sku       = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
		price     = *abi.ConvertType(out[4], new(*big.Int)).(**big.Int)
		available = *abi.ConvertType(out[5], new(*big.Int)).(**big.Int)
		sold      = *abi.ConvertType(out[6], new(*big.Int)).(**big.Int)
	)

	p := domain.Product{
		Index:       index,
		Name:        *abi.ConvertType(out[1], new(string)).(*string),
		Image:       *abi.ConvertType(out[2], new(string)).(*string),
		Description: *abi.ConvertType(out[3], new(string)).(*string),
		Price:       price,
	}

	if p.SKU, err = toUint64(sku); err != nil {
		return domain.Product{}, fmt.Errorf("%s: sku: %w", op, err)
	}
	if p.QuantityAvailable, err = toUint64(available); err != nil {
		return domain.Product{}, fmt.Errorf("%s: quantity available: %w", op, err)
	}
	if p.QuantitySold, err = toUint64(sold); err != nil {
		return domain.Product{}, fmt.Errorf("%s: quantity sold: %w", op, err)
	}
	return p, nil
}

func (c *ShopContract) CreateProduct(
	opts *bind.TransactOpts, v domain.NewProduct,
) (*types.Transaction, error) {
	const op = "ShopContract.CreateProduct"

	tx, err := c.bound.Transact(opts, methodCreateProduct,
		new(big.Int).SetUint64(v.SKU),
		v.Name,
		v.Image,
		v.Description,
		v.Price,
		new(big.Int).SetUint64(v.QuantityAvailable),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tx, nil
}

// BuyProduct sends payment along with the buyProduct call.
func (c *ShopContract) BuyProduct(
	opts *bind.TransactOpts, index uint64, payment *big.Int,
) (*types.Transaction, error) {
	const op = "ShopContract.BuyProduct"

	payOpts := *opts
	payOpts.Value = payment

	tx, err := c.bound.Transact(
		&payOpts, methodBuyProduct, new(big.Int).SetUint64(index),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tx, nil
}

// FilterQuery selects both catalog events of the contract in the block range.
func (c *ShopContract) FilterQuery(from, to uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.address},
		Topics: [][]common.Hash{{
			c.abi.Events[eventProductCreated].ID,
			c.abi.Events[eventProductSold].ID,
		}},
	}
}

// ParseLog decodes a contract log into a domain event.
func (c *ShopContract) ParseLog(l types.Log) (domain.Event, error) {
	const op = "ShopContract.ParseLog"

	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("%s: %w: no topics", op, ErrUnknownEvent)
	}

	meta := domain.EventMeta{
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash.Hex(),
		LogIndex:    l.Index,
	}

	var (
		e   domain.Event
		err error
	)
	switch l.Topics[0] {
	case c.abi.Events[eventProductCreated].ID:
		e, err = c.parseCreated(l, meta)
	case c.abi.Events[eventProductSold].ID:
		e, err = c.parseSold(l, meta)
	default:
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnknownEvent, l.Topics[0])
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

func (c *ShopContract) parseCreated(
	l types.Log, meta domain.EventMeta,
) (domain.Event, error) {
	var v productCreatedLog
	if err := c.bound.UnpackLog(&v, eventProductCreated, l); err != nil {
		return nil, err
	}

	e := domain.ProductCreated{
		Meta:        meta,
		Name:        v.Name,
		Image:       v.Image,
		Description: v.Description,
		Price:       v.Price,
	}

	var err error
	if e.Index, err = toUint64(v.Index); err != nil {
		return nil, err
	}
	if e.SKU, err = toUint64(v.Sku); err != nil {
		return nil, err
	}
	if e.QuantityAvailable, err = toUint64(v.QuantityAvailable); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *ShopContract) parseSold(
	l types.Log, meta domain.EventMeta,
) (domain.Event, error) {
	var v productSoldLog
	if err := c.bound.UnpackLog(&v, eventProductSold, l); err != nil {
		return nil, err
	}

	e := domain.ProductSold{Meta: meta}

	var err error
	if e.Index, err = toUint64(v.Index); err != nil {
		return nil, err
	}
	if e.SKU, err = toUint64(v.Sku); err != nil {
		return nil, err
	}
	if e.QuantitySold, err = toUint64(v.QuantitySold); err != nil {
		return nil, err
	}
	if e.TotalQuantitySold, err = toUint64(v.TotalQuantitySold); err != nil {
		return nil, err
	}
	if e.NewQuantityAvailable, err = toUint64(v.NewQuantityAvailable); err != nil {
		return nil, err
	}
	return e, nil
}

func callOpts(ctx context.Context, block uint64) *bind.CallOpts {
	opts := &bind.CallOpts{Context: ctx}
	if block != 0 {
		opts.BlockNumber = new(big.Int).SetUint64(block)
	}
	return opts
}

func toUint64(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, v)
	}
	return v.Uint64(), nil
}
