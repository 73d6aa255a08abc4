package balance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/erc20"
	"github.com/shopspring/decimal"
)

const weiDecimals = 18

// EVMBackend is the subset of ethclient.Client used for balance reads.
type EVMBackend interface {
	bind.ContractBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

func NewEVM(backend EVMBackend) core.BalanceReader {
	return &evmReader{backend: backend}
}

type evmReader struct {
	backend EVMBackend
}

func (r *evmReader) Family() core.ChainFamily {
	return core.ChainEVM
}

func (r *evmReader) ValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

func (r *evmReader) NativeBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	if !r.ValidAddress(wallet) {
		return decimal.Zero, fmt.Errorf("invalid wallet address %q", wallet)
	}

	ctx, cancel := context.WithTimeout(ctx, RpcTimeout)
	defer cancel()

	wei, err := r.backend.BalanceAt(ctx, common.HexToAddress(wallet), nil)
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromBigInt(wei, -weiDecimals), nil
}

func (r *evmReader) TokenBalance(ctx context.Context, wallet, mint string) (decimal.Decimal, error) {
	if !r.ValidAddress(wallet) {
		return decimal.Zero, fmt.Errorf("invalid wallet address %q", wallet)
	}

	if !r.ValidAddress(mint) {
		return decimal.Zero, fmt.Errorf("invalid token address %q", mint)
	}

	ctx, cancel := context.WithTimeout(ctx, RpcTimeout)
	defer cancel()

	token := erc20.New(common.HexToAddress(mint), r.backend)
	units, err := token.BalanceOf(ctx, common.HexToAddress(wallet))
	if err != nil {
		return decimal.Zero, err
	}

	decimals, err := token.Decimals(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromBigInt(units, -int32(decimals)), nil
}
