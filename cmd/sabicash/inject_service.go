package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/wire"
	"github.com/sabicash/sabicash/cmd/sabicash/cmds"
	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/admin"
	"github.com/sabicash/sabicash/service/auth"
	"github.com/sabicash/sabicash/service/balance"
	"github.com/sabicash/sabicash/service/mining"
	"github.com/sabicash/sabicash/service/points"
	"github.com/sabicash/sabicash/service/sabiapi"
	"github.com/sabicash/sabicash/service/swap"
	"github.com/sabicash/sabicash/service/task"
	"github.com/spf13/viper"
)

var serviceSet = wire.NewSet(
	provideClients,
	provideCashClient,
	provideAuthConfig,
	provideAuthService,
	points.New,
	task.New,
	mining.New,
	admin.New,
	provideBalanceReader,
	provideEthClient,
	provideSwapService,
	provideSigner,
)

type clients struct {
	ride *sabiapi.Client
	cash *sabiapi.Client
}

func provideClients(v *viper.Viper, logger *slog.Logger) clients {
	v.SetDefault("ride.base_url", "http://localhost:8080/ride")
	v.SetDefault("cash.base_url", "http://localhost:8080/api")
	v.SetDefault("http.timeout", "15s")

	timeout := v.GetDuration("http.timeout")

	return clients{
		ride: sabiapi.New(sabiapi.Config{BaseURL: v.GetString("ride.base_url"), Timeout: timeout}, logger.With("api", "ride")),
		cash: sabiapi.New(sabiapi.Config{BaseURL: v.GetString("cash.base_url"), Timeout: timeout}, logger.With("api", "cash")),
	}
}

func provideCashClient(c clients) *sabiapi.Client {
	return c.cash
}

func provideAuthConfig(v *viper.Viper) auth.Config {
	return auth.Config{
		RefreshSkew:   v.GetDuration("auth.refresh_skew"),
		LogoutTimeout: v.GetDuration("auth.logout_timeout"),
	}
}

func provideAuthService(c clients, sessions core.SessionStore, cfg auth.Config, logger *slog.Logger) core.AuthService {
	return auth.New(c.ride, c.cash, sessions, cfg, logger)
}

// provideBalanceReader returns nil when no wallet rpc is configured.
func provideBalanceReader(v *viper.Viper) (core.BalanceReader, func(), error) {
	v.SetDefault("wallet.family", string(core.ChainSolana))

	endpoint := v.GetString("wallet.rpc")
	if endpoint == "" {
		return nil, func() {}, nil
	}

	return balance.Dial(context.Background(), core.ChainFamily(v.GetString("wallet.family")), endpoint)
}

// provideEthClient returns nil when no swap rpc is configured.
func provideEthClient(v *viper.Viper) (*ethclient.Client, func(), error) {
	endpoint := v.GetString("swap.rpc")
	if endpoint == "" {
		return nil, func() {}, nil
	}

	client, err := ethclient.DialContext(context.Background(), endpoint)
	if err != nil {
		return nil, nil, err
	}

	return client, client.Close, nil
}

func provideSwapService(client *ethclient.Client, v *viper.Viper, logger *slog.Logger) core.SwapService {
	if client == nil {
		return nil
	}

	return swap.New(client, swap.Config{
		Quoter:        v.GetString("swap.quoter"),
		Router:        v.GetString("swap.router"),
		Factory:       v.GetString("swap.factory"),
		WrappedNative: v.GetString("swap.wrapped_native"),
		PoolFee:       v.GetUint32("swap.pool_fee"),
		FeeTiers:      feeTiers(v.GetIntSlice("swap.fee_tiers")),
		BaseTokens:    v.GetStringSlice("swap.base_tokens"),
		Tokens:        v.GetStringSlice("swap.tokens"),
		SlippageBps:   v.GetInt64("swap.slippage_bps"),
		Deadline:      v.GetDuration("swap.deadline"),
	}, logger)
}

func feeTiers(list []int) []uint32 {
	out := make([]uint32, 0, len(list))
	for _, fee := range list {
		out = append(out, uint32(fee))
	}

	return out
}

func provideSigner(client *ethclient.Client, v *viper.Viper) cmds.SignerFunc {
	return func(ctx context.Context) (*bind.TransactOpts, error) {
		if client == nil {
			return nil, errors.New("swap rpc not configured")
		}

		key, err := privateKey(v.GetString("swap.private_key"))
		if err != nil {
			return nil, err
		}

		chainID := big.NewInt(v.GetInt64("swap.chain_id"))
		if chainID.Sign() == 0 {
			if chainID, err = client.ChainID(ctx); err != nil {
				return nil, err
			}
		}

		opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			return nil, err
		}

		opts.Context = ctx
		return opts, nil
	}
}

func privateKey(s string) (*ecdsa.PrivateKey, error) {
	if s == "" {
		return nil, errors.New("swap.private_key is required to sign")
	}

	if len(s) > 2 && s[:2] == "0x" {
		s = s[2:]
	}

	return crypto.HexToECDSA(s)
}
