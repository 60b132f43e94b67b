package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewNextCommand creates the next command.
func NewNextCommand(opts *RootOptions) *cobra.Command {
	var (
		claim bool
		agent string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show tasks that are ready to run",
		Long: `Show the tasks whose predecessors are all done and may run in parallel.

With --claim the single highest-priority ready task is atomically moved
to in_progress and returned; with --all the full topological order of the
plan is printed instead of just the ready batch.`,
		Args:          cobra.NoArgs,
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

			out := cmd.OutOrStdout()

			if claim {
				task, err := e.grf.ClaimNext(ctx, plan.ID, agent)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return printJSON(out, map[string]any{"claimed": task})
				}
				if task == nil {
					fmt.Fprintln(out, "No ready tasks")
					return nil
				}
				fmt.Fprintf(out, "Claimed %s  %s\n", shortID(task.ID), task.Title)
				return nil
			}

			if all {
				order, err := e.res.FullTopologicalOrder(ctx, plan.ID)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return printJSON(out, map[string]any{"order": order})
				}
				renderTopologicalOrder(out, order)
				return nil
			}

			batches, err := e.res.NextReady(ctx, plan.ID)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(out, map[string]any{"batches": batches})
			}
			renderBatches(out, batches)
			return nil
		},
	}

	cmd.Flags().BoolVar(&claim, "claim", false, "atomically claim the next ready task")
	cmd.Flags().StringVar(&agent, "agent", "", "agent name recorded on the claimed task")
	cmd.Flags().BoolVar(&all, "all", false, "print the full topological order")

	return cmd
}
