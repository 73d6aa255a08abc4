package main

import (
	"log/slog"

	"github.com/google/wire"
	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/worker/poller"
	"github.com/spf13/viper"
)

var workerSet = wire.NewSet(
	providePoller,
)

// providePoller returns nil without a balance reader. The poller releases
// the wallet on logout.
func providePoller(reader core.BalanceReader, authz core.AuthService, v *viper.Viper, logger *slog.Logger) *poller.Poller {
	if reader == nil {
		return nil
	}

	p := poller.New(reader, poller.Config{
		Interval:  v.GetDuration("wallet.interval"),
		TokenMint: v.GetString("wallet.token_mint"),
	}, logger)

	authz.OnLogout(p)
	return p
}
