package erc20

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pandodao/generic"
)

const ABI = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var Parsed = generic.Must(abi.JSON(strings.NewReader(ABI)))

// Token is a minimal ERC-20 binding.
type Token struct {
	Address  common.Address
	contract *bind.BoundContract
}

func New(address common.Address, backend bind.ContractBackend) *Token {
	return &Token{
		Address:  address,
		contract: bind.NewBoundContract(address, Parsed, backend, backend, backend),
	}
}

func (t *Token) call(ctx context.Context, method string, args ...any) (any, error) {
	var out []any
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", t.Address.Hex(), method, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s.%s: empty result", t.Address.Hex(), method)
	}

	return out[0], nil
}

func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	v, err := t.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}

	return v.(*big.Int), nil
}

func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	v, err := t.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}

	return v.(uint8), nil
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	v, err := t.call(ctx, "symbol")
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	v, err := t.call(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}

	return v.(*big.Int), nil
}

func (t *Token) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "approve", spender, amount)
}
