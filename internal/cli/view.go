package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Manage the views of a table",
	}
	cmd.AddCommand(
		newViewCreateCmd(),
		newViewUpdateCmd(),
		newViewShowCmd(),
		newViewListCmd(),
		newViewDefaultCmd(),
		newViewDeleteCmd(),
	)
	return cmd
}

// viewFlags holds the editable columns of a view as given on the command line.
type viewFlags struct {
	label       string
	description string
	viewType    string
	isDefault   bool
	fields      []string
	order       []string
	sort        []string
	filter      string
}

func (f *viewFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.label, "label", "", "view label")
	cmd.Flags().StringVar(&f.description, "description", "", "view description")
	cmd.Flags().StringVar(&f.viewType, "type", "table", "view type: table, grid, list, kanban, calendar, page")
	cmd.Flags().BoolVar(&f.isDefault, "default", false, "make this the table's default view")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "field ids shown by the view (default: all)")
	cmd.Flags().StringSliceVar(&f.order, "order", nil, "display order over the shown field ids")
	cmd.Flags().StringSliceVar(&f.sort, "sort", nil, "sort keys as field-id[:asc|desc]")
	cmd.Flags().StringVar(&f.filter, "filter", "", "filter expression stored with the view")
}

// apply copies the flags the user set onto v.
func (f *viewFlags) apply(cmd *cobra.Command, v *types.View) error {
	changed := cmd.Flags().Changed
	if changed("label") {
		v.Label = f.label
	}
	if changed("description") {
		v.Description = f.description
	}
	if changed("type") || v.ViewID == "" {
		vt, ok := types.ParseViewType(f.viewType)
		if !ok {
			return usagef("unknown view type %q", f.viewType)
		}
		v.ViewType = vt
	}
	if changed("default") {
		v.IsDefault = f.isDefault
	}
	if changed("fields") {
		v.FieldIDs = f.fields
	}
	if changed("order") {
		v.FieldsOrder = f.order
	}
	if changed("sort") {
		specs, err := parseSort(f.sort)
		if err != nil {
			return err
		}
		v.SortBy = specs
	}
	if changed("filter") {
		v.FilterBy = f.filter
	}
	return nil
}

func newViewCreateCmd() *cobra.Command {
	var table string
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := &types.View{TableID: table}
			if err := vf.apply(cmd, v); err != nil {
				return err
			}
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				created, err := e.CreateView(ctx, v)
				if err != nil {
					return err
				}
				return printResult(cmd, created, func() {
					fmt.Fprintln(cmd.OutOrStdout(), created.ViewID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table id (required)")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("label")
	vf.bind(cmd)
	return cmd
}

func newViewUpdateCmd() *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "update <view-id>",
		Short: "Change a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				doc, err := e.GetView(ctx, args[0])
				if err != nil {
					return err
				}
				v := doc.View
				if err := vf.apply(cmd, v); err != nil {
					return err
				}
				if v, err = e.UpdateView(ctx, v); err != nil {
					return err
				}
				return printResult(cmd, v, func() {
					fmt.Fprintln(cmd.OutOrStdout(), v.ViewID)
				})
			})
		},
	}
	vf.bind(cmd)
	return cmd
}

func newViewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <view-id>",
		Short: "Show a view with its fields in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				doc, err := e.GetView(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, doc, func() {
					v := doc.View
					fmt.Fprintf(cmd.OutOrStdout(), "%s %q (%s) default=%t\n", v.ViewID, v.Label, v.ViewType, v.IsDefault)
					printFields(cmd, doc.Fields)
				})
			})
		},
	}
}

func newViewListCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the views of a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				views, err := e.ListViews(ctx, table)
				if err != nil {
					return err
				}
				return printResult(cmd, views, func() {
					tw := newTable(cmd, "ID", "Label", "Type", "Default")
					for _, v := range views {
						tw.Append([]string{v.ViewID, v.Label, v.ViewType.String(), fmt.Sprint(v.IsDefault)})
					}
					tw.Render()
				})
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table id (required)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newViewDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <view-id>",
		Short: "Make a view the default of its table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				v, err := e.SetDefaultView(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, v, func() {
					fmt.Fprintln(cmd.OutOrStdout(), v.ViewID)
				})
			})
		},
	}
}

func newViewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <view-id>",
		Short: "Delete a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				return e.DeleteView(ctx, args[0])
			})
		},
	}
}
