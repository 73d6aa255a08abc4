package cmds

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/worker/poller"
	"github.com/spf13/cobra"
)

// SignerFunc builds the transactor used to sign swaps.
type SignerFunc func(ctx context.Context) (*bind.TransactOpts, error)

type Cmd struct {
	Auth   core.AuthService
	Points core.PointsService
	Tasks  core.TaskService
	Mining core.MiningService
	Admin  core.AdminService

	// optional, nil when the chain is not configured
	Balances core.BalanceReader
	Poller   *poller.Poller
	Swaps    core.SwapService
	Signer   SignerFunc

	Logger *slog.Logger
}

func (c *Cmd) Run(ctx context.Context, args []string) error {
	root := c.Root()
	root.SetArgs(args)
	root.SetOut(os.Stdout)

	return root.ExecuteContext(ctx)
}

func (c *Cmd) Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "sabicash",
		Short:         "sabicash rewards client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(c.loginCmd())
	root.AddCommand(c.logoutCmd())
	root.AddCommand(c.whoamiCmd())
	root.AddCommand(c.refreshCmd())
	root.AddCommand(c.pointsCmd())
	root.AddCommand(c.tasksCmd())
	root.AddCommand(c.miningCmd())
	root.AddCommand(c.walletCmd())
	root.AddCommand(c.swapCmd())
	root.AddCommand(c.adminCmd())

	return root
}

func (c *Cmd) token(cmd *cobra.Command) (string, error) {
	return c.Auth.AccessToken(cmd.Context())
}

// walletAddress falls back to the wallet stored with the session.
func (c *Cmd) walletAddress(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	if user := c.Auth.StoredUser(cmd.Context()); user != nil && user.WalletAddress != "" {
		return user.WalletAddress, nil
	}

	return "", errors.New("no wallet connected, pass --wallet")
}

func jsonPrint(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
