package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/worktoolai/taskai/internal/model"
	"github.com/worktoolai/taskai/internal/planfile"
)

// NewPlanCommand creates the plan command group.
func NewPlanCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage plans",
	}
	cmd.AddCommand(newPlanCreateCommand(opts))
	cmd.AddCommand(newPlanListCommand(opts))
	cmd.AddCommand(newPlanShowCommand(opts))
	cmd.AddCommand(newPlanActivateCommand(opts))
	cmd.AddCommand(newPlanCompleteCommand(opts))
	cmd.AddCommand(newPlanArchiveCommand(opts))
	cmd.AddCommand(newPlanLoadCommand(opts))
	return cmd
}

func newPlanCreateCommand(opts *RootOptions) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:           "create <name>",
		Short:         "Create a new plan",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			plan, err := e.grf.CreatePlan(cmd.Context(), args[0], title, description)
			if err != nil {
				return err
			}
			// The first plan becomes active automatically.
			if e.cfg.ActivePlanID == "" {
				if err := e.setActivePlan(plan.ID); err != nil {
					return err
				}
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"plan": plan})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created plan: %s (%s)\n", plan.Name, plan.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "plan title (defaults to name)")
	cmd.Flags().StringVar(&description, "description", "", "plan description")
	return cmd
}

func newPlanListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all plans",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			plans, err := e.grf.ListPlans(cmd.Context())
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"plans":          plans,
					"active_plan_id": e.cfg.ActivePlanID,
				})
			}
			renderPlanList(cmd.OutOrStdout(), plans, e.cfg.ActivePlanID)
			return nil
		},
	}
}

func newPlanShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show [ref]",
		Short:         "Show plan details, tasks and progress",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			var plan *model.Plan
			if len(args) == 1 {
				plan, err = e.grf.ResolvePlan(ctx, args[0])
			} else {
				plan, err = e.activePlan(ctx, opts)
			}
			if err != nil {
				return err
			}

			tasks, err := e.grf.ListTasks(ctx, plan.ID)
			if err != nil {
				return err
			}
			progress, err := e.grf.Progress(ctx, plan.ID)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"plan":     plan,
					"tasks":    tasks,
					"progress": progress,
				})
			}
			out := cmd.OutOrStdout()
			renderPlan(out, plan)
			fmt.Fprintln(out)
			renderProgress(out, progress)
			fmt.Fprintln(out, "\nTasks:")
			renderTaskList(out, tasks)
			return nil
		},
	}
}

func newPlanActivateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "activate <ref>",
		Short:         "Set the active plan",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			plan, err := e.grf.ResolvePlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := e.setActivePlan(plan.ID); err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"activated": map[string]string{"id": plan.ID, "name": plan.Name},
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activated plan: %s (%s)\n", plan.Name, plan.ID)
			return nil
		},
	}
}

func newPlanCompleteCommand(opts *RootOptions) *cobra.Command {
	return newPlanStatusCommand(opts, "complete", model.PlanCompleted,
		"Mark a plan completed (requires every task done or cancelled)")
}

func newPlanArchiveCommand(opts *RootOptions) *cobra.Command {
	return newPlanStatusCommand(opts, "archive", model.PlanArchived,
		"Archive a plan (terminal; plans are never deleted)")
}

func newPlanStatusCommand(opts *RootOptions, verb string, status model.PlanStatus, short string) *cobra.Command {
	return &cobra.Command{
		Use:           verb + " <ref>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			plan, err := e.grf.ResolvePlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			plan, err = e.grf.SetPlanStatus(cmd.Context(), plan.ID, status)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"plan": plan})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan %s is now %s\n", plan.Name, plan.Status)
			return nil
		},
	}
}

func newPlanLoadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load [file]",
		Short: "Load a complete plan definition from a JSON file or stdin",
		Long: `Load a complete plan definition: the plan, its tasks, dependency edges
and documents, created atomically. The definition is validated (schema,
unique ids, known references, no cycles) before anything is written.

Definition format:
  {"name": "slug", "title": "...", "tasks": [
    {"id": "t1", "title": "..."},
    {"id": "t2", "title": "...", "after": ["t1"]}
  ]}`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			input := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open plan definition: %w", err)
				}
				defer f.Close()
				input = f
			}

			result, err := planfile.Load(cmd.Context(), e.grf, input)
			if err != nil {
				return err
			}
			verboseLog(cmd.ErrOrStderr(), opts, "Created %d tasks for plan %s",
				len(result.Tasks), result.Plan.ID)
			// Auto-activate when no valid active plan exists.
			if _, err := e.activePlan(cmd.Context(), opts); err != nil {
				if model.CodeOf(err) != model.CodeNoActivePlan {
					return err
				}
				if err := e.setActivePlan(result.Plan.ID); err != nil {
					return err
				}
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"plan":          result.Plan,
					"tasks_created": len(result.Tasks),
					"id_mapping":    result.IDMapping,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded plan %q with %d tasks.\n",
				result.Plan.Name, len(result.Tasks))
			return nil
		},
	}
}
