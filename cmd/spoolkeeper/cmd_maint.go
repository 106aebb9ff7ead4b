package main

import (
	"fmt"

	"github.com/quailyquaily/spoolkeeper/internal/clifmt"
	"github.com/spf13/cobra"
)

func newExportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export inventory and history",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "xlsx <path>",
		Short: "Write rolls and events to a workbook in the legacy layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			if err := st.ExportWorkbook(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", clifmt.Success("wrote"), args[0])
			return err
		},
	})
	return cmd
}

func newBackupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Database snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Snapshot the database now and prune old snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.Store(cmd.Context()); err != nil {
				return err
			}
			dest, err := c.app.backups.Backup(cmd.Context())
			if err != nil {
				return err
			}
			if dest == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), clifmt.Dim("backups disabled or nothing to back up"))
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", clifmt.Success("backup"), dest)
			return err
		},
	})
	return cmd
}
