package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/internal/schemafile"
	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
)

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <schema.yaml>",
		Short: "Create or update tables and fields from a schema file",
		Long: "Apply a YAML schema file. Tables match by name and fields by label;\n" +
			"missing ones are created and existing ones updated. Nothing is deleted.\n" +
			"Use - to read the file from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			f, err := schemafile.Decode(data)
			if err != nil {
				return err
			}
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				rep, err := e.ApplySchema(ctx, f)
				if err != nil {
					return err
				}
				return printResult(cmd, rep, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "tables created: %d, fields created: %d, fields updated: %d\n",
						rep.TablesCreated, rep.FieldsCreated, rep.FieldsUpdated)
				})
			})
		},
	}
}

func newExportSchemaCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Write every table and field as a schema file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				f, err := e.ExportSchema(ctx)
				if err != nil {
					return err
				}
				data, err := schemafile.Encode(f)
				if err != nil {
					return fmt.Errorf("encode schema: %w", err)
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				return os.WriteFile(output, data, 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// readSource reads a file argument, with - meaning stdin.
func readSource(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, usagef("read %s: %s", name, err)
	}
	return data, nil
}
