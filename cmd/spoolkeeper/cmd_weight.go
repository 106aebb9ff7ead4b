package main

import (
	"fmt"
	"io"

	"github.com/quailyquaily/spoolkeeper/barcode"
	"github.com/quailyquaily/spoolkeeper/internal/clifmt"
	"github.com/quailyquaily/spoolkeeper/inventory"
	"github.com/quailyquaily/spoolkeeper/weightmap"
	"github.com/spf13/cobra"
)

func newWeightCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weight",
		Short: "Empty-spool weight estimates",
	}
	cmd.AddCommand(newWeightEstimateCmd(c))
	return cmd
}

func newWeightEstimateCmd(c *cli) *cobra.Command {
	var (
		fields barcode.Fields
		format *string
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the empty-spool weight for a roll profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := estimatorFromViper(c.v, c.app.log)
			if err != nil {
				return err
			}
			guess, ok := est.Estimate(weightmap.Key{
				Brand: fields.Brand, Color: fields.Color, Material: fields.Material,
				Attribute1: fields.Attribute1, Attribute2: fields.Attribute2,
			})
			if !ok {
				return fmt.Errorf("%w: no weight map entry for this profile", inventory.ErrNotFound)
			}
			return render(cmd, *format, guess, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s\n", clifmt.Grams(guess.Grams), clifmt.Dim("("+string(guess.Level)+")"))
				return err
			})
		},
	}
	addFieldFlags(cmd, &fields)
	_ = cmd.MarkFlagRequired("material")
	format = addFormatFlag(cmd)
	return cmd
}
