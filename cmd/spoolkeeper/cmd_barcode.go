package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/quailyquaily/spoolkeeper/barcode"
	"github.com/quailyquaily/spoolkeeper/catalog"
	"github.com/quailyquaily/spoolkeeper/internal/clifmt"
	"github.com/quailyquaily/spoolkeeper/internal/strutil"
	"github.com/spf13/cobra"
)

func newBarcodeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barcode",
		Short: "Encode or decode 17-digit roll barcodes",
	}
	cmd.AddCommand(newBarcodeEncodeCmd(c), newBarcodeDecodeCmd(c))
	return cmd
}

func newBarcodeEncodeCmd(c *cli) *cobra.Command {
	var fields barcode.Fields
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Preview the barcode the next roll with these labels would get",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			existing, err := st.ListBarcodes(cmd.Context())
			if err != nil {
				return err
			}
			if fields.Location == "" {
				fields.Location = st.Settings().DefaultLocation
			}
			code, err := c.app.codec.Encode(fields, existing)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), code)
			return err
		},
	}
	addFieldFlags(cmd, &fields)
	return cmd
}

func newBarcodeDecodeCmd(c *cli) *cobra.Command {
	var format *string
	cmd := &cobra.Command{
		Use:   "decode <barcode>",
		Short: "Show the labels a barcode stands for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.app.codec.Decode(args[0])
			if err != nil {
				return err
			}
			suffix, _ := barcode.Suffix(args[0])
			out := struct {
				Barcode        string `json:"barcode" yaml:"barcode"`
				barcode.Fields `yaml:",inline"`
				Suffix         int `json:"suffix" yaml:"suffix"`
			}{Barcode: args[0], Fields: f, Suffix: suffix}
			return render(cmd, *format, out, func(w io.Writer) error {
				return clifmt.Table(w, nil, [][]string{
					{"brand", f.Brand},
					{"color", f.Color},
					{"material", f.Material},
					{"attribute 1", f.Attribute1},
					{"attribute 2", f.Attribute2},
					{"location", f.Location},
					{"suffix", fmt.Sprintf("%05d", suffix)},
				})
			})
		},
	}
	format = addFormatFlag(cmd)
	return cmd
}

func newCatalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the brand, colour, material and attribute catalogs",
	}
	cmd.AddCommand(newCatalogOptionsCmd(c), newCatalogColorsCmd(c))
	return cmd
}

func newCatalogOptionsCmd(c *cli) *cobra.Command {
	var format *string
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List selectable labels per field",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.app.catalogs.Options()
			return render(cmd, *format, opts, func(w io.Writer) error {
				section := func(title string, labels []string) {
					fmt.Fprintln(w, clifmt.Headerf("%s (%d)", title, len(labels)))
					for _, l := range labels {
						if l == "" {
							l = clifmt.Dim("(none)")
						}
						fmt.Fprintln(w, "  "+l)
					}
				}
				section("Brands", opts.Brands)
				section("Colors", opts.Colors)
				section("Materials", opts.Materials)
				section("Attributes", opts.Attributes)
				section("Locations", opts.Locations)
				return nil
			})
		},
	}
	format = addFormatFlag(cmd)
	return cmd
}

func newCatalogColorsCmd(c *cli) *cobra.Command {
	var format *string
	cmd := &cobra.Command{
		Use:   "colors",
		Short: "List colours with their codes and search tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			colors := c.app.catalogs.Lookup(catalog.KindColor)
			tokens := c.app.catalogs.ColorSearchTokens()
			type colorRow struct {
				Code   string   `json:"code" yaml:"code"`
				Label  string   `json:"label" yaml:"label"`
				Tokens []string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
			}
			rows := make([]colorRow, 0, len(colors))
			for _, code := range colors.Codes() {
				label := colors[code]
				rows = append(rows, colorRow{Code: code, Label: label, Tokens: tokens[strutil.FoldKey(label)]})
			}
			return render(cmd, *format, rows, func(w io.Writer) error {
				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					table = append(table, []string{r.Code, r.Label, strings.Join(r.Tokens, " ")})
				}
				return clifmt.Table(w, []string{"CODE", "COLOR", "SEARCH"}, table)
			})
		},
	}
	format = addFormatFlag(cmd)
	return cmd
}
