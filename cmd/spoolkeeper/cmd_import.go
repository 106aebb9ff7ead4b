package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/quailyquaily/spoolkeeper/internal/clifmt"
	"github.com/spf13/cobra"
)

func newImportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import data from other sources",
	}
	cmd.AddCommand(newImportLegacyCmd(c))
	return cmd
}

func newImportLegacyCmd(c *cli) *cobra.Command {
	var format *string
	cmd := &cobra.Command{
		Use:   "legacy [workbook.xlsx]",
		Short: "Import the legacy spreadsheet into an empty database",
		Long: "Reads the Inventory and UsageEvents sheets. Nothing is imported when the\n" +
			"database already holds rolls or events. Defaults to legacy.xlsx_path.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathFromViper(c.v, "legacy.xlsx_path")
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				path = args[0]
			}
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			res, err := st.ImportLegacy(cmd.Context(), path)
			if err != nil {
				return err
			}
			return render(cmd, *format, res, func(w io.Writer) error {
				if res.AlreadyPopulated {
					_, err := fmt.Fprintln(w, clifmt.Warn("database already populated; nothing imported"))
					return err
				}
				_, err := fmt.Fprintf(w, "%s %d rolls, %d events (%d rows skipped)\n",
					clifmt.Success("imported"), res.Rolls, res.Events, res.Skipped)
				return err
			})
		},
	}
	format = addFormatFlag(cmd)
	return cmd
}
