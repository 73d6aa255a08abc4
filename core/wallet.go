package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ChainFamily string

const (
	ChainSolana ChainFamily = "solana"
	ChainEVM    ChainFamily = "evm"
)

type WalletBalances struct {
	Wallet        string          `json:"wallet"`
	NativeBalance decimal.Decimal `json:"nativeBalance"`
	TokenBalance  decimal.Decimal `json:"tokenBalance"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Stale         bool            `json:"stale,omitempty"`
}

// BalanceReader reads balances of one chain family.
type BalanceReader interface {
	Family() ChainFamily
	ValidAddress(address string) bool
	NativeBalance(ctx context.Context, wallet string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, wallet, mint string) (decimal.Decimal, error)
}
