package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
)

const modulePath = "github.com/mesh-intelligence/fieldbase"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fieldbase version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.jsonMode {
				return printJSON(cmd, map[string]string{"version": fieldbase.Version, "module": modulePath})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fieldbase %s\nmodule: %s\n", fieldbase.Version, modulePath)
			return nil
		},
	}
}
