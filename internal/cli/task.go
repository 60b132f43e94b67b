package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/worktoolai/taskai/internal/graph"
	"github.com/worktoolai/taskai/internal/model"
)

// NewTaskCommand creates the task command group.
func NewTaskCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks in the active plan",
	}
	cmd.AddCommand(newTaskAddCommand(opts))
	cmd.AddCommand(newTaskListCommand(opts))
	cmd.AddCommand(newTaskShowCommand(opts))
	cmd.AddCommand(newTaskStatusCommand(opts))
	return cmd
}

func newTaskAddCommand(opts *RootOptions) *cobra.Command {
	var description, agent string
	var priority int
	var after []string

	cmd := &cobra.Command{
		Use:           "add <title>",
		Short:         "Add a task to the active plan",
		Args:          cobra.ExactArgs(1),
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

			taskOpts := []graph.TaskOption{
				graph.WithPriority(priority),
				graph.WithAgent(agent),
			}
			for _, ref := range after {
				dep, err := e.grf.ResolveTask(ctx, plan.ID, ref)
				if err != nil {
					return err
				}
				taskOpts = append(taskOpts, graph.WithAfter(dep.ID))
			}

			task, err := e.grf.CreateTask(ctx, plan.ID, args[0], description, taskOpts...)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"task": task})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task: %s - %s\n", task.ID, task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().IntVar(&priority, "priority", 0, "scheduling priority (higher claimed first)")
	cmd.Flags().StringVar(&agent, "agent", "", "agent expected to execute this task")
	cmd.Flags().StringArrayVar(&after, "after", nil, "task this one must run after (repeatable)")
	return cmd
}

func newTaskListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List tasks in the active plan",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			plan, err := e.activePlan(cmd.Context(), opts)
			if err != nil {
				return err
			}
			tasks, err := e.grf.ListTasks(cmd.Context(), plan.ID)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"tasks": tasks})
			}
			renderTaskList(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
}

func newTaskShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show task details and dependencies",
		Args:          cobra.ExactArgs(1),
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
			deps, err := e.grf.Dependencies(ctx, task.ID)
			if err != nil {
				return err
			}
			dependents, err := e.grf.Dependents(ctx, task.ID)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"task":       task,
					"depends_on": deps,
					"blocks":     dependents,
				})
			}
			renderTask(cmd.OutOrStdout(), task, deps, dependents)
			return nil
		},
	}
}

func newTaskStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Transition a task's status",
		Long: `Transition a task's status. Valid statuses: pending, blocked,
in_progress, done, cancelled.

A task may only become done once every task it depends on is done.
done and cancelled are terminal.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := model.ParseTaskStatus(args[1])
			if !ok {
				return model.Errf(model.CodeValidation, "unknown task status %q", args[1])
			}

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
			task, err = e.grf.SetTaskStatus(ctx, task.ID, status)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"task": task})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", shortID(task.ID), task.Status)
			return nil
		},
	}
}
