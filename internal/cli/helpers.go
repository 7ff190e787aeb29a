package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult writes v as JSON in --json mode, or calls text otherwise.
func printResult(cmd *cobra.Command, v any, text func()) error {
	if flags.jsonMode {
		return printJSON(cmd, v)
	}
	text()
	return nil
}

// newTable starts a text table on stdout with the given header.
func newTable(cmd *cobra.Command, header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(cmd.OutOrStdout())
	tw.SetHeader(header)
	return tw
}

// parseValue decodes a response value given on the command line. Input that
// is not valid JSON is taken as a plain string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// parseConfig decodes a --config JSON document for field type ft. An empty
// document yields the type's default configuration.
func parseConfig(ft types.FieldType, doc string) (types.FieldConfig, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, nil
	}
	cfg, err := types.DecodeConfig(ft, []byte(doc))
	if err != nil {
		return nil, usagef("--config: %s", err)
	}
	return cfg, nil
}

// parseSort turns "field:direction" pairs into sort specs. A missing
// direction means ascending.
func parseSort(specs []string) ([]types.SortSpec, error) {
	out := make([]types.SortSpec, 0, len(specs))
	for _, s := range specs {
		field, dir, _ := strings.Cut(s, ":")
		if field == "" {
			return nil, usagef("--sort %q: field id is required", s)
		}
		if dir == "" {
			dir = types.SortAsc
		}
		out = append(out, types.SortSpec{FieldID: field, Direction: dir})
	}
	return out, nil
}

// formatValue renders a response value for text output.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// parseFieldType checks a --type flag against the known field types.
func parseFieldType(s string) (types.FieldType, error) {
	ft := types.FieldType(strings.ToLower(strings.TrimSpace(s)))
	if !ft.Valid() {
		return "", usagef("unknown field type %q", s)
	}
	return ft, nil
}
