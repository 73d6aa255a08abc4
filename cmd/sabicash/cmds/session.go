package cmds

import (
	"github.com/sabicash/sabicash/core"
	"github.com/spf13/cobra"
)

func (c *Cmd) loginCmd() *cobra.Command {
	var opt struct {
		email    string
		password string
		userType string
		wallet   string
	}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "sign in to the ride platform and the rewards service",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.Auth.Login(cmd.Context(), opt.email, opt.password, core.UserType(opt.userType), opt.wallet)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, map[string]any{
				"success": result.Success,
				"user":    result.User,
				"points":  result.Points,
				"state":   c.Auth.State().String(),
			})
		},
	}

	cmd.Flags().StringVar(&opt.email, "email", "", "account email")
	cmd.Flags().StringVar(&opt.password, "password", "", "account password")
	cmd.Flags().StringVar(&opt.userType, "type", string(core.UserTypeRider), "rider or driver")
	cmd.Flags().StringVar(&opt.wallet, "wallet", "", "wallet address to link")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func (c *Cmd) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "end the session and clear stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Auth.Logout(cmd.Context())
			return jsonPrint(cmd, map[string]string{"state": c.Auth.State().String()})
		},
	}
}

func (c *Cmd) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "show the stored user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user := c.Auth.StoredUser(cmd.Context())
			if user == nil {
				return core.NewError(core.ErrAuth, "not logged in")
			}

			return jsonPrint(cmd, user)
		},
	}
}

func (c *Cmd) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "rotate the rewards token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.Auth.RefreshToken(cmd.Context()); err != nil {
				return err
			}

			tokens := c.Auth.Tokens(cmd.Context())
			return jsonPrint(cmd, map[string]bool{
				"token":        tokens.SabiCashToken != "",
				"refreshToken": tokens.RefreshToken != "",
			})
		},
	}
}
