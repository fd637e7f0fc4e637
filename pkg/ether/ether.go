// Package ether converts between decimal ether amounts and wei.
package ether

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const decimals = 18

var (
	ErrNegative  = errors.New("negative amount")
	ErrPrecision = errors.New("more than 18 decimal places")
)

// ParseEther parses a decimal ether amount such as "0.015" into wei.
func ParseEther(s string) (*big.Int, error) {
	const op = "ether.ParseEther"

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if d.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, ErrNegative)
	}

	wei := d.Shift(decimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%s: %w", op, ErrPrecision)
	}
	return wei.BigInt(), nil
}

// FormatEther renders wei as a decimal ether amount without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -decimals).String()
}
