package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/worktoolai/taskai/internal/store"
	"github.com/worktoolai/taskai/internal/workspace"
)

// NewInitCommand creates the init command.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the task store in this repository",
		Long: `Initialize the task store at <repo-root>/.worktoolai/taskai/.

Fails if no enclosing git repository is found. Running init on an
already-initialized store is a no-op.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := workspace.Resolve(".")
			if err != nil {
				return err
			}
			verboseLog(cmd.ErrOrStderr(), opts, "Repository root: %s", ws.Root)
			if err := ws.EnsureDir(); err != nil {
				return err
			}
			st, err := store.Open(ws.DBPath())
			if err != nil {
				return err
			}
			st.Close()

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"path": ws.Dir})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized taskai at %s\n", ws.Dir)
			return nil
		},
	}
}
