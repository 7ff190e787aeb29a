package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Manage tables",
	}
	cmd.AddCommand(newTableCreateCmd(), newTableUpdateCmd(), newTableListCmd(), newTableShowCmd(), newTableDeleteCmd())
	return cmd
}

func newTableCreateCmd() *cobra.Command {
	var workspace, description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a table with its default views",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				tb, err := e.CreateTable(ctx, workspace, args[0], description)
				if err != nil {
					return err
				}
				return printResult(cmd, tb, func() {
					fmt.Fprintln(cmd.OutOrStdout(), tb.TableID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "owning workspace id")
	cmd.Flags().StringVar(&description, "description", "", "table description")
	return cmd
}

func newTableUpdateCmd() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "update <table-id>",
		Short: "Rename a table or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch fieldbase.TablePatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if patch.Name == nil && patch.Description == nil {
				return usagef("nothing to update: pass --name or --description")
			}
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				tb, err := e.UpdateTable(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printResult(cmd, tb, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", tb.Name, tb.TableID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new table name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

func newTableListCmd() *cobra.Command {
	var filter types.TableFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				tables, err := e.ListTables(ctx, filter)
				if err != nil {
					return err
				}
				return printResult(cmd, tables, func() { printTables(cmd, tables) })
			})
		},
	}
	cmd.Flags().StringVar(&filter.WorkspaceID, "workspace", "", "only tables of this workspace")
	cmd.Flags().StringVar(&filter.Name, "name", "", "only tables whose name contains this text")
	return cmd
}

func printTables(cmd *cobra.Command, tables []*types.Table) {
	tw := newTable(cmd, "ID", "Name", "Workspace")
	for _, tb := range tables {
		tw.Append([]string{tb.TableID, tb.Name, tb.WorkspaceID})
	}
	tw.Render()
}

func newTableShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <table-id>",
		Short: "Show a table and its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				tb, err := e.GetTable(ctx, args[0])
				if err != nil {
					return err
				}
				fields, err := e.ListFields(ctx, tb.TableID)
				if err != nil {
					return err
				}
				out := struct {
					*types.Table
					Fields []*types.Field `json:"fields"`
				}{tb, fields}
				return printResult(cmd, out, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", tb.Name, tb.TableID)
					printFields(cmd, fields)
				})
			})
		},
	}
}

func newTableDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table-id>",
		Short: "Delete a table with its fields, pages and views",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				return e.DeleteTable(ctx, args[0])
			})
		},
	}
}
