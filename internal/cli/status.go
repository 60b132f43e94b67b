package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/worktoolai/taskai/internal/graph"
	"github.com/worktoolai/taskai/internal/model"
)

type planStatusLine struct {
	Plan     model.Plan      `json:"plan"`
	Progress *graph.Progress `json:"progress"`
	Active   bool            `json:"active"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show progress across all plans",
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
			plans, err := e.grf.ListPlans(ctx)
			if err != nil {
				return err
			}

			lines := make([]planStatusLine, 0, len(plans))
			for _, p := range plans {
				prog, err := e.grf.Progress(ctx, p.ID)
				if err != nil {
					return err
				}
				lines = append(lines, planStatusLine{
					Plan:     p,
					Progress: prog,
					Active:   p.ID == e.cfg.ActivePlanID,
				})
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"plans": lines})
			}

			out := cmd.OutOrStdout()
			if len(lines) == 0 {
				fmt.Fprintln(out, "No plans")
				return nil
			}
			for _, line := range lines {
				marker := "  "
				if line.Active {
					marker = " *"
				}
				fmt.Fprintf(out, "%s%s  %-10s  %3.0f%%  %d/%d done  %s\n",
					marker, shortID(line.Plan.ID), line.Plan.Status,
					line.Progress.Percentage, line.Progress.Done,
					line.Progress.Total, line.Plan.Name)
			}
			return nil
		},
	}
}
