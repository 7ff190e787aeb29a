package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every table as a JSONL file into dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				if err := e.ExportJSONL(ctx, args[0]); err != nil {
					return err
				}
				return printResult(cmd, map[string]string{"dir": args[0]}, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", args[0])
				})
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load the JSONL files of dir into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				stats, err := e.ImportJSONL(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, stats, func() {
					names := make([]string, 0, len(stats.Loaded))
					for name := range stats.Loaded {
						names = append(names, name)
					}
					sort.Strings(names)
					for _, name := range names {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %d loaded, %d skipped\n",
							name, stats.Loaded[name], stats.Skipped[name])
					}
				})
			})
		},
	}
}
