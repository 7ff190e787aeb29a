package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize fieldbase storage",
		Long:  "Create configuration and data directories, then initialize the storage backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				cfg := e.Config()
				if flags.jsonMode {
					return printJSON(cmd, map[string]string{"data_dir": cfg.DataDir, "backend": cfg.Backend})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fieldbase initialized in %s\n", cfg.DataDir)
				return nil
			})
		},
	}
}
