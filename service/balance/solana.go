package balance

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sabicash/sabicash/core"
	"github.com/shopspring/decimal"
)

const lamportDecimals = 9

// SolanaRPC is the subset of rpc.Client used for balance reads.
type SolanaRPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

func NewSolana(client SolanaRPC) core.BalanceReader {
	return &solanaReader{client: client}
}

type solanaReader struct {
	client SolanaRPC
}

func (r *solanaReader) Family() core.ChainFamily {
	return core.ChainSolana
}

func (r *solanaReader) ValidAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

func (r *solanaReader) NativeBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	owner, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid wallet address %q: %w", wallet, err)
	}

	ctx, cancel := context.WithTimeout(ctx, RpcTimeout)
	defer cancel()

	result, err := r.client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.New(int64(result.Value), -lamportDecimals), nil
}

// TokenBalance reads the associated token account of wallet for mint. A
// wallet that never held the token has no account and reads as zero.
func (r *solanaReader) TokenBalance(ctx context.Context, wallet, mint string) (decimal.Decimal, error) {
	owner, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid wallet address %q: %w", wallet, err)
	}

	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid mint address %q: %w", mint, err)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mintKey)
	if err != nil {
		return decimal.Zero, err
	}

	ctx, cancel := context.WithTimeout(ctx, RpcTimeout)
	defer cancel()

	result, err := r.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		if strings.Contains(err.Error(), "could not find account") {
			return decimal.Zero, nil
		}

		return decimal.Zero, err
	}

	if result.Value == nil {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(result.Value.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse token amount %q: %w", result.Value.Amount, err)
	}

	return amount.Shift(-int32(result.Value.Decimals)), nil
}
