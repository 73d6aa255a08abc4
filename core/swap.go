package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Native   bool           `json:"native,omitempty"`
}

func (t Token) Same(o Token) bool {
	if t.Native || o.Native {
		return t.Native == o.Native
	}

	return t.Address == o.Address
}

// Units converts a human amount into the token's smallest unit.
func (t Token) Units(amount decimal.Decimal) *big.Int {
	return amount.Shift(int32(t.Decimals)).Truncate(0).BigInt()
}

func (t Token) Amount(units *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(units, -int32(t.Decimals))
}

type SwapHop struct {
	TokenIn  common.Address `json:"tokenIn"`
	TokenOut common.Address `json:"tokenOut"`
	Fee      uint32         `json:"fee"`
	Pool     common.Address `json:"pool,omitempty"`
}

type SwapQuote struct {
	TokenIn            Token           `json:"tokenIn"`
	TokenOut           Token           `json:"tokenOut"`
	AmountIn           *big.Int        `json:"amountIn"`
	AmountOut          *big.Int        `json:"amountOut"`
	MinimumAmountOut   *big.Int        `json:"minimumAmountOut"`
	PriceImpactPercent decimal.Decimal `json:"priceImpactPercent"`
	Route              []SwapHop       `json:"route"`
	GasEstimate        uint64          `json:"gasEstimate"`
	Engine             string          `json:"engine,omitempty"`
}

type SwapResult struct {
	Hash         common.Hash  `json:"hash"`
	ApprovalHash *common.Hash `json:"approvalHash,omitempty"`
	AmountOut    *big.Int     `json:"amountOut"`
	Success      bool         `json:"success"`
}

type SwapService interface {
	// TokenInfo reads and caches the symbol and decimals of an ERC-20 token.
	TokenInfo(ctx context.Context, address common.Address) (Token, error)
	Quote(ctx context.Context, tokenIn, tokenOut Token, amountIn *big.Int) (*SwapQuote, error)
	Execute(ctx context.Context, tokenIn, tokenOut Token, amountIn *big.Int, recipient common.Address, signer *bind.TransactOpts) (*SwapResult, error)
}
