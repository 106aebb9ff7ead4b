package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func addFormatFlag(cmd *cobra.Command) *string {
	format := new(string)
	cmd.Flags().StringVarP(format, "format", "o", formatTable, "output format: table|json|yaml")
	return format
}

// render prints v as JSON or YAML, or calls table for the human format.
func render(cmd *cobra.Command, format string, v any, table func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatTable:
		return table(w)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}
