package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidKey = errors.New("invalid private key")

// A Wallet holds the signing key of the shop account.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewWallet parses a hex encoded secp256k1 key, "0x" prefix is optional.
func NewWallet(hexKey string, chainID uint64) (*Wallet, error) {
	const op = "ledger.NewWallet"

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidKey, err)
	}

	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).SetUint64(chainID),
	}, nil
}

func (w *Wallet) Address() common.Address {
	return w.address
}

// TransactOpts returns signer options bound to ctx.
func (w *Wallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	const op = "Wallet.TransactOpts"

	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts.Context = ctx
	return opts, nil
}
