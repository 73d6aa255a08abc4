package cmds

import (
	"errors"

	"github.com/sabicash/sabicash/core"
	"github.com/spf13/cobra"
)

func (c *Cmd) walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "connected wallet balances",
	}

	cmd.AddCommand(c.walletWatchCmd())
	return cmd
}

func (c *Cmd) walletWatchCmd() *cobra.Command {
	var opt struct {
		wallet string
		once   bool
	}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "print the wallet balances every poll interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.Poller == nil {
				return errors.New("wallet.rpc not configured")
			}

			address, err := c.walletAddress(cmd, opt.wallet)
			if err != nil {
				return err
			}

			if !c.Balances.ValidAddress(address) {
				return core.NewError(core.ErrValidation, "invalid %s address %q", c.Balances.Family(), address)
			}

			updates := make(chan core.WalletBalances, 1)
			c.Poller.OnUpdate = func(b core.WalletBalances) {
				select {
				case updates <- b:
				default:
				}
			}

			h := c.Poller.Start(cmd.Context(), address)
			defer h.Stop()

			for {
				select {
				case <-h.Done():
					return nil
				case b := <-updates:
					if err := jsonPrint(cmd, b); err != nil {
						return err
					}

					if opt.once {
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&opt.wallet, "wallet", "", "wallet address, defaults to the linked one")
	cmd.Flags().BoolVar(&opt.once, "once", false, "print one snapshot and exit")
	return cmd
}
