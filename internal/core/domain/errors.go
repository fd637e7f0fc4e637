package domain

import "errors"

var (
	// ErrTxReverted reports a transaction rejected by the contract.
	ErrTxReverted = errors.New("transaction reverted")

	// ErrNoWallet reports a write attempted without a signer.
	ErrNoWallet = errors.New("wallet is not configured")
)
