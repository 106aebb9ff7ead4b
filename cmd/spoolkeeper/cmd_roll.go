package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/quailyquaily/spoolkeeper/barcode"
	"github.com/quailyquaily/spoolkeeper/db/models"
	"github.com/quailyquaily/spoolkeeper/internal/clifmt"
	"github.com/quailyquaily/spoolkeeper/inventory"
	"github.com/quailyquaily/spoolkeeper/weightmap"
	"github.com/spf13/cobra"
)

func newRollCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Register, log and edit filament rolls",
	}
	cmd.AddCommand(
		newRollAddCmd(c),
		newRollLogCmd(c),
		newRollFavoriteCmd(c),
		newRollEditCmd(c),
		newRollShowCmd(c),
		newRollListCmd(c),
	)
	return cmd
}

func addFieldFlags(cmd *cobra.Command, f *barcode.Fields) {
	cmd.Flags().StringVar(&f.Brand, "brand", "", "brand label")
	cmd.Flags().StringVar(&f.Color, "color", "", "color label")
	cmd.Flags().StringVar(&f.Material, "material", "", "material label")
	cmd.Flags().StringVar(&f.Attribute1, "attr1", "", "first attribute label")
	cmd.Flags().StringVar(&f.Attribute2, "attr2", "", "second attribute label")
	cmd.Flags().StringVar(&f.Location, "location", "", "Lab or Storage")
}

func newRollAddCmd(c *cli) *cobra.Command {
	var (
		in         inventory.NewRoll
		target     float64
		rollWeight float64
		used       bool
		format     *string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new or partially used roll",
		Long: "Register a roll from its scale reading. A new roll derives its spool weight from\n" +
			"--target (default inventory.filament_amount_g). A used roll takes --roll-weight or,\n" +
			"when omitted, the weight map estimate for its profile.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.app.Store(ctx)
			if err != nil {
				return err
			}
			switch {
			case cmd.Flags().Changed("roll-weight"):
				in.RollWeight = &rollWeight
			case used:
				est, err := estimatorFromViper(c.v, c.app.log)
				if err != nil {
					return err
				}
				guess, ok := est.Estimate(weightmap.Key{
					Brand: in.Brand, Color: in.Color, Material: in.Material,
					Attribute1: in.Attribute1, Attribute2: in.Attribute2,
				})
				if !ok {
					return fmt.Errorf("%w: no roll weight in the weight map for this profile; pass --roll-weight, relax weight_map.fallback_level or lower weight_map.min_samples", inventory.ErrInvalid)
				}
				c.app.log.Info("roll_weight_estimated", "grams", guess.Grams, "level", string(guess.Level))
				in.RollWeight = &guess.Grams
			case cmd.Flags().Changed("target"):
				in.TargetAmount = &target
			}
			roll, err := st.CreateRoll(ctx, in)
			if err != nil {
				return err
			}
			return render(cmd, *format, roll, func(w io.Writer) error {
				return printRoll(w, roll)
			})
		},
	}
	addFieldFlags(cmd, &in.Fields)
	cmd.Flags().StringVar(&in.Barcode, "barcode", "", "use this barcode instead of minting one")
	cmd.Flags().Float64Var(&in.StartingWeight, "weight", 0, "scale reading of roll plus spool, grams")
	cmd.Flags().Float64Var(&target, "target", 0, "net filament of a new roll, grams")
	cmd.Flags().Float64Var(&rollWeight, "roll-weight", 0, "known spool weight, grams")
	cmd.Flags().BoolVar(&used, "used", false, "partially used roll; estimate spool weight from the weight map")
	cmd.Flags().BoolVar(&in.Favorite, "favorite", false, "mark as favorite")
	cmd.Flags().StringVar(&in.Source, "source", inventory.DefaultSource, "provenance tag stored on the event")
	_ = cmd.MarkFlagRequired("weight")
	cmd.MarkFlagsMutuallyExclusive("target", "roll-weight")
	format = addFormatFlag(cmd)
	return cmd
}

func newRollLogCmd(c *cli) *cobra.Command {
	var (
		rollWeight float64
		threshold  float64
		opts       inventory.UsageOptions
		format     *string
	)
	cmd := &cobra.Command{
		Use:   "log <barcode> <grams>",
		Short: "Record a scale reading for a roll",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			measured, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: weight %q is not a number", inventory.ErrInvalid, args[1])
			}
			if cmd.Flags().Changed("roll-weight") {
				opts.RollWeight = &rollWeight
			}
			if cmd.Flags().Changed("empty-threshold") {
				opts.EmptyThreshold = &threshold
			}
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			roll, err := st.LogUsage(cmd.Context(), args[0], measured, opts)
			if err != nil {
				return err
			}
			return render(cmd, *format, roll, func(w io.Writer) error {
				return printRoll(w, roll)
			})
		},
	}
	cmd.Flags().Float64Var(&rollWeight, "roll-weight", 0, "corrected spool weight, grams")
	cmd.Flags().Float64Var(&threshold, "empty-threshold", 0, "override inventory.empty_threshold_g")
	cmd.Flags().StringVar(&opts.Source, "source", inventory.DefaultSource, "provenance tag stored on the event")
	format = addFormatFlag(cmd)
	return cmd
}

func newRollFavoriteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <barcode>",
		Short: "Toggle the favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			fav, err := st.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s favorite: %s\n", args[0], clifmt.YesNo(fav))
			return err
		},
	}
}

func newRollEditCmd(c *cli) *cobra.Command {
	var (
		fields     barcode.Fields
		amount     float64
		rollWeight float64
		clearRW    bool
		format     *string
	)
	cmd := &cobra.Command{
		Use:   "edit <barcode>",
		Short: "Correct a roll; its event history follows the new labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit inventory.RollEdit
			set := func(flag string, dst **string, v string) {
				if cmd.Flags().Changed(flag) {
					s := v
					*dst = &s
				}
			}
			set("brand", &edit.Brand, fields.Brand)
			set("color", &edit.Color, fields.Color)
			set("material", &edit.Material, fields.Material)
			set("attr1", &edit.Attribute1, fields.Attribute1)
			set("attr2", &edit.Attribute2, fields.Attribute2)
			set("location", &edit.Location, fields.Location)
			if cmd.Flags().Changed("amount") {
				edit.FilamentAmount = &amount
			}
			if cmd.Flags().Changed("roll-weight") {
				edit.RollWeight = &rollWeight
			}
			edit.ClearRollWeight = clearRW

			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			roll, err := st.EditRoll(cmd.Context(), args[0], edit)
			if err != nil {
				return err
			}
			return render(cmd, *format, roll, func(w io.Writer) error {
				return printRoll(w, roll)
			})
		},
	}
	addFieldFlags(cmd, &fields)
	cmd.Flags().Float64Var(&amount, "amount", 0, "remaining filament, grams")
	cmd.Flags().Float64Var(&rollWeight, "roll-weight", 0, "spool weight, grams")
	cmd.Flags().BoolVar(&clearRW, "clear-roll-weight", false, "forget the spool weight")
	cmd.MarkFlagsMutuallyExclusive("roll-weight", "clear-roll-weight")
	format = addFormatFlag(cmd)
	return cmd
}

func newRollShowCmd(c *cli) *cobra.Command {
	var (
		withEvents bool
		format     *string
	)
	cmd := &cobra.Command{
		Use:   "show <barcode>",
		Short: "Show one roll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			roll, err := st.GetRoll(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			out := struct {
				models.Roll `yaml:",inline"`
				Events      []models.UsageEvent `json:"events,omitempty" yaml:"events,omitempty"`
			}{Roll: roll}
			if withEvents {
				if out.Events, err = st.ListEvents(cmd.Context(), inventory.EventFilter{Barcode: roll.Barcode}); err != nil {
					return err
				}
			}
			return render(cmd, *format, out, func(w io.Writer) error {
				if err := printRoll(w, roll); err != nil {
					return err
				}
				if len(out.Events) == 0 {
					return nil
				}
				fmt.Fprintln(w)
				return printEvents(w, out.Events)
			})
		},
	}
	cmd.Flags().BoolVar(&withEvents, "events", false, "include usage history")
	format = addFormatFlag(cmd)
	return cmd
}

func newRollListCmd(c *cli) *cobra.Command {
	var (
		filter    inventory.RollFilter
		favorites bool
		empty     bool
		format    *string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rolls, most recently touched first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("favorites") {
				filter.Favorite = &favorites
			}
			if cmd.Flags().Changed("empty") {
				filter.Empty = &empty
			}
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			rolls, err := st.ListRolls(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return render(cmd, *format, rolls, func(w io.Writer) error {
				return printRolls(w, rolls)
			})
		},
	}
	cmd.Flags().StringVar(&filter.Brand, "brand", "", "only this brand")
	cmd.Flags().StringVar(&filter.Color, "color", "", "only this color")
	cmd.Flags().StringVar(&filter.Material, "material", "", "only this material")
	cmd.Flags().StringVar(&filter.Location, "location", "", "only this location")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorites (or, with =false, only non-favorites)")
	cmd.Flags().BoolVar(&empty, "empty", false, "only empty rolls (or, with =false, only non-empty)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum rows")
	format = addFormatFlag(cmd)
	return cmd
}

func printRoll(w io.Writer, r models.Roll) error {
	rows := [][]string{
		{"barcode", r.Barcode},
		{"brand", r.Brand},
		{"color", r.Color},
		{"material", r.Material},
		{"attributes", joinAttrs(r.Attribute1, r.Attribute2)},
		{"location", r.Location},
		{"filament", clifmt.Grams(r.FilamentAmount)},
		{"roll weight", clifmt.OptionalGrams(r.RollWeight)},
		{"times logged", strconv.Itoa(r.TimesLoggedOut)},
		{"empty", clifmt.YesNo(r.IsEmpty)},
		{"favorite", clifmt.YesNo(r.IsFavorite)},
		{"updated", r.Timestamp.Local().Format("2006-01-02 15:04:05")},
	}
	return clifmt.Table(w, nil, rows)
}

func printRolls(w io.Writer, rolls []models.Roll) error {
	rows := make([][]string, 0, len(rolls))
	for _, r := range rolls {
		rows = append(rows, []string{
			r.Barcode, r.Brand, r.Color, r.Material, joinAttrs(r.Attribute1, r.Attribute2), r.Location,
			clifmt.Grams(r.FilamentAmount), strconv.Itoa(r.TimesLoggedOut), flag(r.IsEmpty, "empty"), flag(r.IsFavorite, "*"),
		})
	}
	return clifmt.Table(w, []string{"BARCODE", "BRAND", "COLOR", "MATERIAL", "ATTRS", "LOCATION", "LEFT", "LOGS", "EMPTY", "FAV"}, rows)
}

func printEvents(w io.Writer, events []models.UsageEvent) error {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.EventType, e.Barcode,
			clifmt.OptionalGrams(e.InputWeight), clifmt.Grams(e.FilamentAmount), clifmt.Grams(e.DeltaUsed), e.Source,
		})
	}
	return clifmt.Table(w, []string{"TIME", "EVENT", "BARCODE", "INPUT", "LEFT", "USED", "SOURCE"}, rows)
}

func joinAttrs(a, b string) string {
	switch {
	case a != "" && b != "":
		return a + ", " + b
	case a != "":
		return a
	default:
		return b
	}
}

func flag(b bool, mark string) string {
	if b {
		return mark
	}
	return ""
}
