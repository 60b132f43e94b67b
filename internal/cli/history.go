package cli

import (
	"github.com/spf13/cobra"

	"github.com/worktoolai/taskai/internal/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var (
		taskRef string
		from    int64
		to      int64
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the append-only mutation log for a plan",
		Long: `Show the history entries recorded for the active plan, oldest first.

Every accepted mutation appends exactly one entry; rejected and no-op
operations leave no trace. Use --from/--to to page through large logs by
sequence number.`,
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

			f := history.Filter{PlanID: plan.ID, SeqFrom: from, SeqTo: to}
			if taskRef != "" {
				task, err := e.grf.ResolveTask(ctx, plan.ID, taskRef)
				if err != nil {
					return err
				}
				f.TaskID = task.ID
			}

			entries, err := e.log.Query(ctx, f)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"history": entries})
			}
			renderHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&taskRef, "task", "", "only entries touching this task")
	cmd.Flags().Int64Var(&from, "from", 0, "first sequence number (inclusive)")
	cmd.Flags().Int64Var(&to, "to", 0, "last sequence number (inclusive)")

	return cmd
}
