package main

import (
	"github.com/quailyquaily/spoolkeeper/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cli struct {
	v          *viper.Viper
	configPath string
	app        *app
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "spoolkeeper",
		Short:         "Track 3D-printer filament rolls, their barcodes and usage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initViper(c.v, c.configPath); err != nil {
				return err
			}
			log := logging.Init(cmd.ErrOrStderr(), c.v.GetString("logging.format"), logging.ParseLevel(c.v.GetString("logging.level")))
			c.app = newApp(c.v, log)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default ~/.spoolkeeper/config.yaml)")
	pf.String("db", "", "sqlite database path")
	pf.String("catalog-dir", "", "directory holding the *_mapping.json catalogs")
	pf.String("log-level", "", "debug|info|warn|error")
	pf.String("log-format", "", "text|json")
	_ = c.v.BindPFlag("db.dsn", pf.Lookup("db"))
	_ = c.v.BindPFlag("catalog.dir", pf.Lookup("catalog-dir"))
	_ = c.v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = c.v.BindPFlag("logging.format", pf.Lookup("log-format"))

	root.AddCommand(
		newRollCmd(c),
		newBarcodeCmd(c),
		newWeightCmd(c),
		newImportCmd(c),
		newExportCmd(c),
		newBackupCmd(c),
		newReportCmd(c),
		newCatalogCmd(c),
	)
	return root, c
}

// execute runs root and closes whatever the command opened, including on
// error paths where cobra skips post-run hooks.
func execute(root *cobra.Command, c *cli) error {
	err := root.Execute()
	if cerr := c.app.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
