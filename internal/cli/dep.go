package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDepCommand creates the dep command group.
func NewDepCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage task dependencies",
	}
	cmd.AddCommand(newDepAddCommand(opts))
	cmd.AddCommand(newDepRemoveCommand(opts))
	return cmd
}

func newDepAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <task> <depends-on>",
		Short: "Declare that a task depends on another",
		Long: `Declare that <task> must not start before <depends-on> is done.

Both tasks must belong to the same plan, and the new edge must not create
a cycle; a rejected edge leaves the graph exactly as it was.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			plan, err := e.activePlan(ctx, opts)
			if err != nil {
				return err
			}
			task, err := e.grf.ResolveTask(ctx, plan.ID, args[0])
			if err != nil {
				return err
			}
			dep, err := e.grf.ResolveTask(ctx, plan.ID, args[1])
			if err != nil {
				return err
			}

			if err := e.grf.AddDependency(ctx, dep.ID, task.ID); err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"dependency": map[string]string{"from": dep.ID, "to": task.ID},
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s now depends on %s\n",
				shortID(task.ID), shortID(dep.ID))
			return nil
		},
	}
}

func newDepRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <task> <depends-on>",
		Short:         "Remove a dependency (no error if already absent)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			plan, err := e.activePlan(ctx, opts)
			if err != nil {
				return err
			}
			task, err := e.grf.ResolveTask(ctx, plan.ID, args[0])
			if err != nil {
				return err
			}
			dep, err := e.grf.ResolveTask(ctx, plan.ID, args[1])
			if err != nil {
				return err
			}

			if err := e.grf.RemoveDependency(ctx, dep.ID, task.ID); err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"removed": map[string]string{"from": dep.ID, "to": task.ID},
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s no longer depends on %s\n",
				shortID(task.ID), shortID(dep.ID))
			return nil
		},
	}
}
