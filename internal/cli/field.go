package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

func newFieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Manage the typed fields of a table",
	}
	cmd.AddCommand(
		newFieldAddCmd(),
		newFieldListCmd(),
		newFieldShowCmd(),
		newFieldUpdateCmd(),
		newFieldDeleteCmd(),
		newFieldSyncCmd(),
	)
	return cmd
}

// relationFlags are shortcuts for the pairing request of a relation field.
type relationFlags struct {
	table string
	field string
}

func (r relationFlags) set() bool { return r.table != "" || r.field != "" }

func (r relationFlags) bind(cmd *cobra.Command) *relationFlags {
	cmd.Flags().StringVar(&r.table, "related-table", "", "relation: table that receives the mirror")
	cmd.Flags().StringVar(&r.field, "related-field", "", "relation: existing relation field to pair with")
	return &r
}

// fieldConfig combines --config with the relation shortcuts.
func fieldConfig(ft types.FieldType, doc string, rel *relationFlags) (types.FieldConfig, error) {
	cfg, err := parseConfig(ft, doc)
	if err != nil || !rel.set() {
		return cfg, err
	}
	if ft != types.FieldTypeRelation {
		return nil, usagef("--related-table and --related-field apply to relation fields only")
	}
	rc, _ := cfg.(*types.RelationConfig)
	if rc == nil {
		rc = &types.RelationConfig{}
	}
	if rel.table != "" {
		rc.RelatedTableID = rel.table
	}
	if rel.field != "" {
		rc.RelatedFieldID = rel.field
	}
	return rc, nil
}

func newFieldAddCmd() *cobra.Command {
	var table, label, typ, config string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a field to a table",
		Args:  cobra.NoArgs,
	}
	rel := relationFlags{}.bind(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ft, err := parseFieldType(typ)
		if err != nil {
			return err
		}
		cfg, err := fieldConfig(ft, config, rel)
		if err != nil {
			return err
		}
		return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
			f, err := e.CreateField(ctx, table, label, ft, cfg)
			if err != nil {
				return err
			}
			return printResult(cmd, f, func() {
				fmt.Fprintln(cmd.OutOrStdout(), f.FieldID)
			})
		})
	}
	cmd.Flags().StringVar(&table, "table", "", "table id (required)")
	cmd.Flags().StringVar(&label, "label", "", "field label (required)")
	cmd.Flags().StringVar(&typ, "type", "", "field type (required)")
	cmd.Flags().StringVar(&config, "config", "", "type settings as JSON")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newFieldListCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the fields of a table in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				fields, err := e.ListFields(ctx, table)
				if err != nil {
					return err
				}
				return printResult(cmd, fields, func() { printFields(cmd, fields) })
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table id (required)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func printFields(cmd *cobra.Command, fields []*types.Field) {
	tw := newTable(cmd, "ID", "Label", "Type")
	for _, f := range fields {
		tw.Append([]string{f.FieldID, f.Label, string(f.FieldType)})
	}
	tw.Render()
}

func newFieldShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <field-id>",
		Short: "Show a field with its active config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				f, err := e.GetField(ctx, args[0])
				if err != nil {
					return err
				}
				cfg, err := e.GetConfig(ctx, f.FieldID)
				if err != nil {
					return err
				}
				out := struct {
					*types.Field
					Config types.FieldConfig `json:"config"`
				}{f, cfg}
				return printResult(cmd, out, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %q (%s)\nconfig: %s\n",
						f.FieldID, f.Label, f.FieldType, formatValue(cfg))
				})
			})
		},
	}
}

func newFieldUpdateCmd() *cobra.Command {
	var label, typ, config string
	cmd := &cobra.Command{
		Use:   "update <field-id>",
		Short: "Relabel a field, change its type or replace its config",
		Args:  cobra.ExactArgs(1),
	}
	rel := relationFlags{}.bind(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
			cur, err := e.GetField(ctx, args[0])
			if err != nil {
				return err
			}
			var patch fieldbase.FieldPatch
			ft := cur.FieldType
			if cmd.Flags().Changed("label") {
				patch.Label = &label
			}
			if cmd.Flags().Changed("type") {
				if ft, err = parseFieldType(typ); err != nil {
					return err
				}
				patch.FieldType = &ft
			}
			if patch.Config, err = fieldConfig(ft, config, rel); err != nil {
				return err
			}
			f, err := e.UpdateField(ctx, cur.FieldID, patch)
			if err != nil {
				return err
			}
			return printResult(cmd, f, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %q (%s)\n", f.FieldID, f.Label, f.FieldType)
			})
		})
	}
	cmd.Flags().StringVar(&label, "label", "", "new label")
	cmd.Flags().StringVar(&typ, "type", "", "new field type")
	cmd.Flags().StringVar(&config, "config", "", "replacement settings as JSON")
	return cmd
}

func newFieldDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <field-id>",
		Short: "Delete a field, its responses and any relation mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				return e.DeleteField(ctx, args[0])
			})
		},
	}
}

func newFieldSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <field-id>",
		Short: "Re-run mirror maintenance for a relation field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *fieldbase.Engine) error {
				rc, err := e.SyncRelation(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, rc, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s <-> %s (%s)\n",
						rc.SourceFieldID, rc.RelatedFieldID, rc.RelatedTableID)
				})
			})
		},
	}
}
