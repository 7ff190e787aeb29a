package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
)

func newResponseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "response",
		Short: "Read and write the answers of a page",
	}
	cmd.AddCommand(newResponseSetCmd(), newResponseGetCmd())
	return cmd
}

func newResponseSetCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "set <page-id> <field-id> <value>",
		Short: "Store the answer of a page for a field",
		Long: "Store the answer of a page for a field. The value is parsed as JSON\n" +
			"and taken as a plain string when it is not valid JSON. With --data the\n" +
			"value is the full {\"value\": ...} envelope.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				pageID, fieldID := args[0], args[1]
				var (
					r   any
					err error
				)
				if raw {
					var data map[string]any
					if jerr := json.Unmarshal([]byte(args[2]), &data); jerr != nil {
						return usagef("--data: %s", jerr)
					}
					r, err = e.UpsertResponseData(ctx, pageID, fieldID, data)
				} else {
					r, err = e.UpsertResponse(ctx, pageID, fieldID, parseValue(args[2]))
				}
				if err != nil {
					return err
				}
				return printResult(cmd, r, func() {
					fmt.Fprintln(cmd.OutOrStdout(), "ok")
				})
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "data", false, "value is the raw response envelope")
	return cmd
}

func newResponseGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <page-id> <field-id>",
		Short: "Print the serialized answer of a page for a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				v, err := e.GetResponse(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printResult(cmd, map[string]any{"value": v}, func() {
					fmt.Fprintln(cmd.OutOrStdout(), formatValue(v))
				})
			})
		},
	}
}
