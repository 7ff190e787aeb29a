package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

func newFolderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Group views into folders",
	}
	cmd.AddCommand(
		newFolderCreateCmd(),
		newFolderUpdateCmd(),
		newFolderShowCmd(),
		newFolderListCmd(),
		newFolderDeleteCmd(),
	)
	return cmd
}

// folderFlags holds the editable columns of a folder.
type folderFlags struct {
	label  string
	parent string
	views  []string
	order  []string
}

func (f *folderFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.label, "label", "", "folder label")
	cmd.Flags().StringVar(&f.parent, "parent", "", "parent folder id (empty for a top-level folder)")
	cmd.Flags().StringSliceVar(&f.views, "views", nil, "view ids in the folder")
	cmd.Flags().StringSliceVar(&f.order, "order", nil, "display order over the folder's view ids (default: --views order)")
}

// apply copies the flags the user set onto folder. New views without an
// explicit order are shown in the order given.
func (f *folderFlags) apply(cmd *cobra.Command, folder *types.Folder) {
	changed := cmd.Flags().Changed
	if changed("label") {
		folder.Label = f.label
	}
	if changed("parent") {
		folder.ParentID = f.parent
	}
	if changed("views") {
		folder.ViewIDs = f.views
		if !changed("order") {
			folder.ViewOrder = f.views
		}
	}
	if changed("order") {
		folder.ViewOrder = f.order
	}
}

func newFolderCreateCmd() *cobra.Command {
	var workspace string
	var ff folderFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := &types.Folder{WorkspaceID: workspace}
			ff.apply(cmd, folder)
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				created, err := e.CreateFolder(ctx, folder)
				if err != nil {
					return err
				}
				return printResult(cmd, created, func() {
					fmt.Fprintln(cmd.OutOrStdout(), created.FolderID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "owning workspace id")
	ff.bind(cmd)
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func newFolderUpdateCmd() *cobra.Command {
	var ff folderFlags
	cmd := &cobra.Command{
		Use:   "update <folder-id>",
		Short: "Change a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				folder, err := e.GetFolder(ctx, args[0])
				if err != nil {
					return err
				}
				ff.apply(cmd, folder)
				if folder, err = e.UpdateFolder(ctx, folder); err != nil {
					return err
				}
				return printResult(cmd, folder, func() {
					fmt.Fprintln(cmd.OutOrStdout(), folder.FolderID)
				})
			})
		},
	}
	ff.bind(cmd)
	return cmd
}

func newFolderShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <folder-id>",
		Short: "Show a folder and its views in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				folder, err := e.GetFolder(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, folder, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", folder.FolderID, folder.Label)
					for _, id := range folder.ViewOrder {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
					}
				})
			})
		},
	}
}

func newFolderListCmd() *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				folders, err := e.ListFolders(ctx, workspace)
				if err != nil {
					return err
				}
				return printResult(cmd, folders, func() {
					tw := newTable(cmd, "ID", "Label", "Parent", "Views")
					for _, f := range folders {
						tw.Append([]string{f.FolderID, f.Label, f.ParentID, strings.Join(f.ViewOrder, ",")})
					}
					tw.Render()
				})
			})
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "only folders of this workspace")
	return cmd
}

func newFolderDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <folder-id>",
		Short: "Delete a folder and the folders inside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				return e.DeleteFolder(ctx, args[0])
			})
		},
	}
}
