package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sabicash/sabicash/core"
)

var RpcTimeout = 5 * time.Second

// Dial connects a balance reader for family to the rpc endpoint.
func Dial(ctx context.Context, family core.ChainFamily, endpoint string) (core.BalanceReader, func(), error) {
	switch family {
	case core.ChainSolana:
		client := rpc.New(endpoint)
		return NewSolana(client), func() { _ = client.Close() }, nil
	case core.ChainEVM:
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			return nil, nil, err
		}

		return NewEVM(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported chain family %q", family)
	}
}
