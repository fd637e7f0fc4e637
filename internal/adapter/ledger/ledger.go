package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/internal/core/port"
)

var (
	ErrTxReverted    = domain.ErrTxReverted
	ErrNoWallet      = domain.ErrNoWallet
	ErrChainMismatch = errors.New("chain id mismatch")

	ErrInvalidAddress = errors.New("invalid contract address")
)

var (
	_ port.LedgerReader = (*Ledger)(nil)
	_ port.LedgerWriter = (*Ledger)(nil)
)

// Backend is the node API used by the ledger adapter.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

// Dial connects to the node and checks it serves the expected chain.
func Dial(ctx context.Context, rpcURL string, chainID uint64) (*ethclient.Client, error) {
	const op = "ledger.Dial"
	log := slog.With("op", op)

	cl, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := cl.ChainID(ctx)
	if err != nil {
		cl.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if id.Cmp(new(big.Int).SetUint64(chainID)) != 0 {
		cl.Close()
		return nil, fmt.Errorf(
			"%s: %w: node %s, expected %d", op, ErrChainMismatch, id, chainID,
		)
	}

	log.Info("ledger node is available", "chainID", id)
	return cl, nil
}

// A Ledger reads the catalog from the contract and submits shop transactions.
//
// Without wallet the ledger is read only.
type Ledger struct {
	backend  Backend
	contract *ShopContract
	wallet   *Wallet
}

func New(backend Backend, contract *ShopContract, wallet *Wallet) *Ledger {
	return &Ledger{
		backend:  backend,
		contract: contract,
		wallet:   wallet,
	}
}

func (l *Ledger) Head(ctx context.Context) (uint64, error) {
	const op = "Ledger.Head"

	head, err := l.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return head, nil
}

func (l *Ledger) NumberOfProducts(ctx context.Context, block uint64) (uint64, error) {
	return l.contract.NumberOfProducts(ctx, block)
}

func (l *Ledger) Product(
	ctx context.Context, block uint64, index uint64,
) (domain.Product, error) {
	return l.contract.Product(ctx, block, index)
}

func (l *Ledger) CreateProduct(
	ctx context.Context, v domain.NewProduct,
) (domain.Receipt, error) {
	const op = "Ledger.CreateProduct"

	opts, err := l.transactOpts(ctx)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := l.contract.CreateProduct(opts, v)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, submitErr(err))
	}

	r, err := l.waitMined(ctx, tx)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// BuyProduct pays the product price to the contract.
func (l *Ledger) BuyProduct(
	ctx context.Context, p domain.Product,
) (domain.Receipt, error) {
	const op = "Ledger.BuyProduct"

	opts, err := l.transactOpts(ctx)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := l.contract.BuyProduct(opts, p.Index, p.Price)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, submitErr(err))
	}

	r, err := l.waitMined(ctx, tx)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// Address returns the hex address of the wallet or empty string.
func (l *Ledger) Address() string {
	if l.wallet == nil {
		return ""
	}
	return l.wallet.Address().Hex()
}

func (l *Ledger) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if l.wallet == nil {
		return nil, ErrNoWallet
	}
	return l.wallet.TransactOpts(ctx)
}

// submitErr marks a call the node refused to estimate because it reverts.
func submitErr(err error) error {
	if strings.Contains(err.Error(), "execution reverted") {
		return fmt.Errorf("%w: %w", ErrTxReverted, err)
	}
	return err
}

func (l *Ledger) waitMined(
	ctx context.Context, tx *types.Transaction,
) (domain.Receipt, error) {
	log := slog.With("op", "Ledger.waitMined", "tx", tx.Hash().Hex())

	log.Info("waiting for transaction to be mined...")
	receipt, err := bind.WaitMined(ctx, l.backend, tx)
	if err != nil {
		return domain.Receipt{}, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.Receipt{}, fmt.Errorf("%w: %s", ErrTxReverted, tx.Hash().Hex())
	}

	r := domain.Receipt{TxHash: tx.Hash().Hex()}
	if receipt.BlockNumber != nil {
		r.BlockNumber = receipt.BlockNumber.Uint64()
	}
	log.Info("transaction mined", "block", r.BlockNumber)
	return r, nil
}
