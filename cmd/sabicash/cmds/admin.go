package cmds

import (
	"encoding/json"

	"github.com/sabicash/sabicash/core"
	"github.com/spf13/cobra"
)

// admin commands take create and update bodies as json documents
func (c *Cmd) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "back office, requires an admin account",
	}

	cmd.AddCommand(c.adminAnalyticsCmd())
	cmd.AddCommand(c.adminUsersCmd())
	cmd.AddCommand(c.adminTransactionsCmd())
	cmd.AddCommand(c.adminTasksCmd())
	cmd.AddCommand(c.adminPlansCmd())
	cmd.AddCommand(c.adminContractCmd())

	return cmd
}

// adminRun resolves the access token and prints whatever fn returns.
func (c *Cmd) adminRun(fn func(cmd *cobra.Command, token string, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		token, err := c.token(cmd)
		if err != nil {
			return err
		}

		v, err := fn(cmd, token, args)
		if err != nil {
			return err
		}

		if v == nil {
			return jsonPrint(cmd, map[string]bool{"ok": true})
		}

		return jsonPrint(cmd, v)
	}
}

func decodeBody(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return core.NewError(core.ErrValidation, "invalid json body: %v", err)
	}

	return nil
}

func (c *Cmd) adminAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "platform totals",
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return c.Admin.Analytics(cmd.Context(), token)
		}),
	}
}

func (c *Cmd) adminUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "list users",
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return c.Admin.ListUsers(cmd.Context(), token)
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status <user-id> <active|suspended>",
		Short: "change the status of a user",
		Args:  cobra.ExactArgs(2),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return c.Admin.UpdateUserStatus(cmd.Context(), token, args[0], args[1])
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <user-id>",
		Short: "delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return nil, c.Admin.DeleteUser(cmd.Context(), token, args[0])
		}),
	})

	return cmd
}

func (c *Cmd) adminTransactionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transactions",
		Short: "list conversions of all users",
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return c.Admin.ListTransactions(cmd.Context(), token)
		}),
	}
}

func (c *Cmd) adminTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "list tasks",
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return c.Admin.ListTasks(cmd.Context(), token)
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <json>",
		Short: "create a task",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			var task core.Task
			if err := decodeBody(args[0], &task); err != nil {
				return nil, err
			}

			return c.Admin.CreateTask(cmd.Context(), token, &task)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update <task-id> <json>",
		Short: "replace a task",
		Args:  cobra.ExactArgs(2),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			var task core.Task
			if err := decodeBody(args[1], &task); err != nil {
				return nil, err
			}

			task.ID = args[0]
			return c.Admin.UpdateTask(cmd.Context(), token, &task)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <task-id>",
		Short: "delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return nil, c.Admin.DeleteTask(cmd.Context(), token, args[0])
		}),
	})

	return cmd
}

func (c *Cmd) adminPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "list mining plans",
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return c.Admin.ListMiningPlans(cmd.Context(), token)
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <json>",
		Short: "create a mining plan",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			var plan core.MiningPlan
			if err := decodeBody(args[0], &plan); err != nil {
				return nil, err
			}

			return c.Admin.CreateMiningPlan(cmd.Context(), token, &plan)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update <plan-id> <json>",
		Short: "replace a mining plan",
		Args:  cobra.ExactArgs(2),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			var plan core.MiningPlan
			if err := decodeBody(args[1], &plan); err != nil {
				return nil, err
			}

			plan.ID = args[0]
			return c.Admin.UpdateMiningPlan(cmd.Context(), token, &plan)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <plan-id>",
		Short: "delete a mining plan",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return nil, c.Admin.DeleteMiningPlan(cmd.Context(), token, args[0])
		}),
	})

	return cmd
}

func (c *Cmd) adminContractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "show the contract parameters",
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			return c.Admin.ContractParams(cmd.Context(), token)
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <json>",
		Short: "replace the contract parameters",
		Args:  cobra.ExactArgs(1),
		RunE: c.adminRun(func(cmd *cobra.Command, token string, args []string) (any, error) {
			var params core.ContractParams
			if err := decodeBody(args[0], &params); err != nil {
				return nil, err
			}

			return c.Admin.UpdateContractParams(cmd.Context(), token, &params)
		}),
	})

	return cmd
}
