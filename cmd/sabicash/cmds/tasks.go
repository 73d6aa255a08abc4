package cmds

import (
	"github.com/spf13/cobra"
)

func (c *Cmd) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "reward tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list tasks and whether they are done",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			tasks, err := c.Tasks.List(cmd.Context(), token)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, tasks)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "complete <task-id>",
		Short: "claim the reward of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			done, err := c.Tasks.Complete(cmd.Context(), token, args[0])
			if err != nil {
				return err
			}

			return jsonPrint(cmd, done)
		},
	})

	return cmd
}

func (c *Cmd) miningCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mining",
		Short: "staking plans and positions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "plans",
		Short: "list active mining plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			plans, err := c.Mining.Plans(cmd.Context(), token)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, plans)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stakes",
		Short: "list your stakes",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.token(cmd)
			if err != nil {
				return err
			}

			stakes, err := c.Mining.Stakes(cmd.Context(), token)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, stakes)
		},
	})

	return cmd
}
