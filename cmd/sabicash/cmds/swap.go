package cmds

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/swap"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type swapOptions struct {
	tokenIn  string
	tokenOut string
	amount   string
}

func (o *swapOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.tokenIn, "in", "", "input token address, or native")
	cmd.Flags().StringVar(&o.tokenOut, "out", "", "output token address, or native")
	cmd.Flags().StringVar(&o.amount, "amount", "", "input amount in token units, e.g. 1.5")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("amount")
}

var nativeToken = core.Token{Symbol: "ETH", Decimals: 18, Native: true}

func (c *Cmd) resolveToken(cmd *cobra.Command, s string) (core.Token, error) {
	if strings.EqualFold(s, "native") {
		return nativeToken, nil
	}

	if !common.IsHexAddress(s) {
		return core.Token{}, core.NewError(core.ErrValidation, "invalid token address %q", s)
	}

	return c.Swaps.TokenInfo(cmd.Context(), common.HexToAddress(s))
}

func (c *Cmd) swapInput(cmd *cobra.Command, o *swapOptions) (swap.Input, error) {
	if c.Swaps == nil {
		return swap.Input{}, errors.New("swap rpc not configured")
	}

	in, err := c.resolveToken(cmd, o.tokenIn)
	if err != nil {
		return swap.Input{}, err
	}

	out, err := c.resolveToken(cmd, o.tokenOut)
	if err != nil {
		return swap.Input{}, err
	}

	amount, err := decimal.NewFromString(o.amount)
	if err != nil || !amount.IsPositive() {
		return swap.Input{}, core.NewError(core.ErrValidation, "invalid amount %q", o.amount)
	}

	return swap.Input{TokenIn: in, TokenOut: out, AmountIn: in.Units(amount)}, nil
}

func (c *Cmd) swapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "token swaps through the dex",
	}

	cmd.AddCommand(c.swapQuoteCmd())
	cmd.AddCommand(c.swapExecCmd())
	return cmd
}

func printQuote(cmd *cobra.Command, q *core.SwapQuote) error {
	return jsonPrint(cmd, map[string]any{
		"tokenIn":            q.TokenIn.Symbol,
		"tokenOut":           q.TokenOut.Symbol,
		"amountIn":           q.TokenIn.Amount(q.AmountIn).String(),
		"amountOut":          q.TokenOut.Amount(q.AmountOut).String(),
		"minimumAmountOut":   q.TokenOut.Amount(q.MinimumAmountOut).String(),
		"priceImpactPercent": q.PriceImpactPercent.String(),
		"route":              q.Route,
		"gasEstimate":        q.GasEstimate,
	})
}

func (c *Cmd) swapQuoteCmd() *cobra.Command {
	var opt swapOptions

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "quote an exact input swap",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := c.swapInput(cmd, &opt)
			if err != nil {
				return err
			}

			q, err := c.Swaps.Quote(cmd.Context(), in.TokenIn, in.TokenOut, in.AmountIn)
			if err != nil {
				return err
			}

			return printQuote(cmd, q)
		},
	}

	opt.bind(cmd)
	return cmd
}

func (c *Cmd) swapExecCmd() *cobra.Command {
	var opt swapOptions
	var recipient string

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "quote then submit the swap, approving the input token if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in, err := c.swapInput(cmd, &opt)
			if err != nil {
				return err
			}

			if recipient != "" && !common.IsHexAddress(recipient) {
				return core.NewError(core.ErrValidation, "invalid recipient %q", recipient)
			}

			signer, err := c.Signer(ctx)
			if err != nil {
				return err
			}

			flow := swap.NewFlow(c.Swaps, swap.DefaultDebounce, c.Logger)
			defer flow.Close()

			settled := make(chan swap.Snapshot, 1)
			flow.OnChange = func(s swap.Snapshot) {
				if s.State == swap.StateQuoteReady || s.Err != nil {
					select {
					case settled <- s:
					default:
					}
				}
			}

			if err := flow.SetInput(in); err != nil {
				return err
			}

			var snap swap.Snapshot
			select {
			case snap = <-settled:
			case <-ctx.Done():
				return ctx.Err()
			}

			if snap.Err != nil {
				return snap.Err
			}

			if err := printQuote(cmd, snap.Quote); err != nil {
				return err
			}

			result, err := flow.Swap(ctx, common.HexToAddress(recipient), signer)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, result)
		},
	}

	opt.bind(cmd)
	cmd.Flags().StringVar(&recipient, "recipient", "", "receiver of the output, defaults to the signer")
	return cmd
}
