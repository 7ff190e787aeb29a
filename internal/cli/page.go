package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
)

func newPageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Manage the pages of a table",
	}
	cmd.AddCommand(
		newPageCreateCmd(),
		newPageUpdateCmd(),
		newPageShowCmd(),
		newPageListCmd(),
		newPageDeleteCmd(),
	)
	return cmd
}

func bindPageInput(cmd *cobra.Command, in *fieldbase.PageInput) {
	cmd.Flags().StringVar(&in.Title, "title", "", "page title")
	cmd.Flags().StringVar(&in.Content, "content", "", "page content")
	cmd.Flags().StringSliceVar(&in.Attachments, "attach", nil, "attachment ids")
}

func newPageCreateCmd() *cobra.Command {
	var table string
	var in fieldbase.PageInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				p, err := e.CreatePage(ctx, table, in)
				if err != nil {
					return err
				}
				return printResult(cmd, p, func() {
					fmt.Fprintln(cmd.OutOrStdout(), p.PageID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table id (required)")
	_ = cmd.MarkFlagRequired("table")
	bindPageInput(cmd, &in)
	return cmd
}

func newPageUpdateCmd() *cobra.Command {
	var in fieldbase.PageInput
	cmd := &cobra.Command{
		Use:   "update <page-id>",
		Short: "Replace the title, content and attachments of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				cur, err := e.GetPageRecord(ctx, args[0])
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("title") {
					in.Title = cur.Title
				}
				if !cmd.Flags().Changed("content") {
					in.Content = cur.Content
				}
				if !cmd.Flags().Changed("attach") {
					in.Attachments = cur.Attachments
				}
				p, err := e.UpdatePage(ctx, cur.PageID, in)
				if err != nil {
					return err
				}
				return printResult(cmd, p, func() {
					fmt.Fprintln(cmd.OutOrStdout(), p.PageID)
				})
			})
		},
	}
	bindPageInput(cmd, &in)
	return cmd
}

func newPageShowCmd() *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "show <page-id>",
		Short: "Render a page through a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				doc, err := e.GetPage(ctx, args[0], view)
				if err != nil {
					return err
				}
				return printResult(cmd, doc, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", doc.PageID, doc.Title)
					tw := newTable(cmd, "Field", "Value")
					for _, fv := range doc.Fields {
						tw.Append([]string{fv.Field.Label, formatValue(fv.Value)})
					}
					tw.Render()
				})
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "view id (default: the table's default view)")
	return cmd
}

func newPageListCmd() *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the pages of a view's table in the view's sort order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				doc, err := e.GetView(ctx, view)
				if err != nil {
					return err
				}
				rows, err := e.ListPages(ctx, view)
				if err != nil {
					return err
				}
				return printResult(cmd, rows, func() {
					header := []string{"ID", "Title"}
					for _, f := range doc.Fields {
						header = append(header, f.Label)
					}
					tw := newTable(cmd, header...)
					for _, r := range rows {
						line := []string{r.PageID, r.Title}
						for _, f := range doc.Fields {
							line = append(line, formatValue(r.Values[f.FieldID]))
						}
						tw.Append(line)
					}
					tw.Render()
				})
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "view id (required)")
	_ = cmd.MarkFlagRequired("view")
	return cmd
}

func newPageDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <page-id>",
		Short: "Delete a page and its responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				return e.DeletePage(ctx, args[0])
			})
		},
	}
}
