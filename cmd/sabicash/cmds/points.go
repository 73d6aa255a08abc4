package cmds

import (
	"strconv"

	"github.com/sabicash/sabicash/core"
	"github.com/spf13/cobra"
)

func (c *Cmd) pointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "points balance and conversions",
	}

	cmd.AddCommand(c.pointsBalanceCmd())
	cmd.AddCommand(c.pointsHistoryCmd())
	cmd.AddCommand(c.pointsValidateCmd())
	cmd.AddCommand(c.pointsConvertCmd())
	cmd.AddCommand(c.pointsReconcileCmd())

	return cmd
}

func parsePoints(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, core.NewError(core.ErrValidation, "invalid points %q", s)
	}

	return n, nil
}

func (c *Cmd) pointsBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "show the points balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			balance, err := c.Points.Balance(cmd.Context(), token)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, map[string]any{
				"totalPoints":  balance.TotalPoints,
				"lastEarnedAt": balance.LastEarnedAt,
				"sabiCash":     core.SabiCashForPoints(balance.TotalPoints).String(),
			})
		},
	}
}

func (c *Cmd) pointsHistoryCmd() *cobra.Command {
	var opt struct {
		limit  int
		offset int
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "list points entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			history, err := c.Points.History(cmd.Context(), token, opt.limit, opt.offset)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, history)
		},
	}

	cmd.Flags().IntVar(&opt.limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&opt.offset, "offset", 0, "page offset")

	return cmd
}

func (c *Cmd) pointsValidateCmd() *cobra.Command {
	var wallet string

	cmd := &cobra.Command{
		Use:   "validate <points>",
		Short: "check a conversion without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[0])
			if err != nil {
				return err
			}

			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			address, err := c.walletAddress(cmd, wallet)
			if err != nil {
				return err
			}

			v, err := c.Points.ValidateConversion(cmd.Context(), token, points, address)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, v)
		},
	}

	cmd.Flags().StringVar(&wallet, "wallet", "", "destination wallet, defaults to the linked one")
	return cmd
}

func (c *Cmd) pointsConvertCmd() *cobra.Command {
	var wallet string

	cmd := &cobra.Command{
		Use:   "convert <points>",
		Short: "validate then convert points to SabiCash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			points, err := parsePoints(args[0])
			if err != nil {
				return err
			}

			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			address, err := c.walletAddress(cmd, wallet)
			if err != nil {
				return err
			}

			before, err := c.Points.Balance(ctx, token)
			if err != nil {
				return err
			}

			result, err := c.Points.ConvertValidated(ctx, token, points, address)
			if err == nil {
				return jsonPrint(cmd, result)
			}

			if !core.IsErrNetwork(err) {
				return err
			}

			// the request may have reached the server, find out before
			// anyone retries
			applied, current, rerr := c.Points.Reconcile(ctx, token, before, points)
			if rerr != nil {
				c.Logger.Warn("points.Reconcile", "err", rerr)
				return err
			}

			return jsonPrint(cmd, map[string]any{
				"error":       err.Error(),
				"applied":     applied,
				"totalPoints": current.TotalPoints,
			})
		},
	}

	cmd.Flags().StringVar(&wallet, "wallet", "", "destination wallet, defaults to the linked one")
	return cmd
}

func (c *Cmd) pointsReconcileCmd() *cobra.Command {
	var before int64

	cmd := &cobra.Command{
		Use:   "reconcile <points>",
		Short: "check whether a conversion of points was applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[0])
			if err != nil {
				return err
			}

			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			applied, current, err := c.Points.Reconcile(cmd.Context(), token, &core.PointsBalance{TotalPoints: before}, points)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, map[string]any{
				"applied":     applied,
				"totalPoints": current.TotalPoints,
			})
		},
	}

	cmd.Flags().Int64Var(&before, "before", 0, "points balance read before the conversion")
	_ = cmd.MarkFlagRequired("before")
	return cmd
}
