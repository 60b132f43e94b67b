// Package cli is the thin command-line layer over the task graph core.
// Every command maps 1:1 onto a graph store, resolver, document store or
// history log operation; all validation lives in the core.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Plan    string // plan reference overriding the active plan
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the taskai CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskai",
		Short: "Task-dependency store for AI planning agents",
		Long: `taskai stores the plans, tasks and ordering constraints an AI planning
agent produces, and answers "what should be done next".

State lives at <repo-root>/.worktoolai/taskai/ inside the enclosing git
repository. Run ` + "`taskai init`" + ` before any other command.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Plan, "plan", "", "plan name, id or id prefix (overrides the active plan)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewTaskCommand(opts))
	cmd.AddCommand(NewDepCommand(opts))
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewDocCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code. Validation and
// lookup errors exit 1; environment errors (no repository, schema
// mismatch, lock timeout, I/O) exit 2.
func Execute() int {
	opts := &RootOptions{}
	cmd := NewRootCommand(opts)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	if opts.Format == "json" {
		printJSONError(os.Stdout, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
