package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/worktoolai/taskai/internal/model"
)

// NewDocCommand creates the doc command group.
func NewDocCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Attach and read versioned documents",
	}
	cmd.AddCommand(newDocPutCommand(opts))
	cmd.AddCommand(newDocGetCommand(opts))
	cmd.AddCommand(newDocListCommand(opts))
	return cmd
}

// resolveOwner turns a plan|task keyword and a reference into the owner
// kind and the resolved entity id.
func resolveOwner(cmd *cobra.Command, opts *RootOptions, e *env, kind, ref string) (model.OwnerKind, string, error) {
	ctx := cmd.Context()
	switch kind {
	case "plan":
		plan, err := e.grf.ResolvePlan(ctx, ref)
		if err != nil {
			return "", "", err
		}
		return model.OwnerPlan, plan.ID, nil
	case "task":
		plan, err := e.activePlan(ctx, opts)
		if err != nil {
			return "", "", err
		}
		task, err := e.grf.ResolveTask(ctx, plan.ID, ref)
		if err != nil {
			return "", "", err
		}
		return model.OwnerTask, task.ID, nil
	default:
		return "", "", model.Errf(model.CodeValidation,
			"owner must be plan or task, got %q", kind)
	}
}

func newDocPutCommand(opts *RootOptions) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "put <plan|task> <ref> [file]",
		Short: "Store a new revision of a document",
		Long: `Store a new immutable revision of the document owned by a plan or task.

Content is read from the given file, or from stdin when no file is named.
Every put creates a fresh revision; existing revisions are never changed.`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			owner, ownerID, err := resolveOwner(cmd, opts, e, args[0], args[1])
			if err != nil {
				return err
			}

			var content []byte
			if len(args) == 3 {
				content, err = os.ReadFile(args[2])
			} else {
				content, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return model.Errf(model.CodeValidation, "reading document content: %v", err)
			}

			revision, err := e.docs.Put(cmd.Context(), owner, ownerID, title, string(content))
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"owner_kind": owner,
					"owner_id":   ownerID,
					"revision":   revision,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored revision %d for %s %s\n",
				revision, owner, shortID(ownerID))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "document title")

	return cmd
}

func newDocGetCommand(opts *RootOptions) *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:           "get <plan|task> <ref>",
		Short:         "Read a document revision (latest by default)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			owner, ownerID, err := resolveOwner(cmd, opts, e, args[0], args[1])
			if err != nil {
				return err
			}

			doc, err := e.docs.Get(cmd.Context(), owner, ownerID, revision)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"document": doc})
			}
			renderDocument(cmd.OutOrStdout(), doc)
			return nil
		},
	}

	cmd.Flags().Int64Var(&revision, "revision", 0, "revision to read (0 means latest)")

	return cmd
}

func newDocListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <plan|task> <ref>",
		Short:         "List all revisions of a document",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			owner, ownerID, err := resolveOwner(cmd, opts, e, args[0], args[1])
			if err != nil {
				return err
			}

			docs, err := e.docs.List(cmd.Context(), owner, ownerID)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"documents": docs})
			}
			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "No documents")
				return nil
			}
			for _, d := range docs {
				title := d.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Fprintf(out, "r%-4d  %s  %s\n", d.Revision, renderTimestamp(d.CreatedAt), title)
			}
			return nil
		},
	}
}
