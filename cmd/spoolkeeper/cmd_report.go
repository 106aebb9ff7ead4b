package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/quailyquaily/spoolkeeper/internal/clifmt"
	"github.com/quailyquaily/spoolkeeper/inventory"
	"github.com/spf13/cobra"
)

func newReportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Usage statistics and stock reports",
	}
	cmd.AddCommand(
		newReportUsageCmd(c),
		newReportStockCmd(c),
		newReportEmptyCmd(c),
		newReportEventsCmd(c),
		newReportPopularCmd(c),
		newReportGroupsCmd(c),
		newReportFavoritesCmd(c),
	)
	return cmd
}

// parseDay accepts YYYY-MM-DD or RFC 3339. endOfDay moves a bare date to
// its last second so --until includes the whole day.
func parseDay(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q (want YYYY-MM-DD)", inventory.ErrInvalid, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// sinceDays turns a trailing window into a start time. Zero means all time.
func sinceDays(days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

func newReportUsageCmd(c *cli) *cobra.Command {
	var (
		since, until string
		format       *string
	)
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Consumption totals by material, colour and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDay(since, false)
			if err != nil {
				return err
			}
			to, err := parseDay(until, true)
			if err != nil {
				return err
			}
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			sum, err := st.UsageSummary(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return render(cmd, *format, sum, func(w io.Writer) error {
				return printUsageSummary(w, sum)
			})
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "first day, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVar(&until, "until", "", "last day, YYYY-MM-DD (UTC)")
	format = addFormatFlag(cmd)
	return cmd
}

func printUsageSummary(w io.Writer, sum inventory.UsageSummary) error {
	if err := clifmt.Table(w, nil, [][]string{
		{"total used", clifmt.Grams(sum.TotalUsedGrams)},
		{"events", strconv.Itoa(sum.EventCount)},
		{"rolls touched", strconv.Itoa(sum.RollsTouched)},
		{"average per event", clifmt.Grams(sum.AveragePerEvent)},
	}); err != nil {
		return err
	}
	buckets := func(title string, bs []inventory.UsageBucket) error {
		fmt.Fprintln(w)
		fmt.Fprintln(w, clifmt.Headerf("%s", title))
		rows := make([][]string, 0, len(bs))
		for _, b := range bs {
			rows = append(rows, []string{b.Label, clifmt.Grams(b.UsedGrams), strconv.Itoa(b.EventCount)})
		}
		return clifmt.Table(w, []string{"LABEL", "USED", "EVENTS"}, rows)
	}
	if err := buckets("By material", sum.ByMaterial); err != nil {
		return err
	}
	if err := buckets("By colour", sum.ByColor); err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, clifmt.Headerf("Daily"))
	rows := make([][]string, 0, len(sum.Daily))
	for _, d := range sum.Daily {
		rows = append(rows, []string{d.Date, clifmt.Grams(d.UsedGrams)})
	}
	return clifmt.Table(w, []string{"DATE", "USED"}, rows)
}

func newReportStockCmd(c *cli) *cobra.Command {
	var (
		low    float64
		format *string
	)
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Rolls running low but not yet empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			threshold := st.Settings().LowThreshold
			if cmd.Flags().Changed("below") {
				threshold = low
			}
			rolls, err := st.LowStock(cmd.Context(), threshold, st.Settings().EmptyThreshold)
			if err != nil {
				return err
			}
			return render(cmd, *format, rolls, func(w io.Writer) error {
				return printRolls(w, rolls)
			})
		},
	}
	cmd.Flags().Float64Var(&low, "below", 0, "override inventory.low_threshold_g")
	format = addFormatFlag(cmd)
	return cmd
}

func newReportEmptyCmd(c *cli) *cobra.Command {
	var format *string
	cmd := &cobra.Command{
		Use:   "empty",
		Short: "Rolls at or below the empty threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			rolls, err := st.EmptyRolls(cmd.Context(), st.Settings().EmptyThreshold)
			if err != nil {
				return err
			}
			return render(cmd, *format, rolls, func(w io.Writer) error {
				return printRolls(w, rolls)
			})
		},
	}
	format = addFormatFlag(cmd)
	return cmd
}

func newReportEventsCmd(c *cli) *cobra.Command {
	var (
		filter       inventory.EventFilter
		since, until string
		format       *string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Usage history, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if filter.Since, err = parseDay(since, false); err != nil {
				return err
			}
			if filter.Until, err = parseDay(until, true); err != nil {
				return err
			}
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			events, err := st.ListEvents(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return render(cmd, *format, events, func(w io.Writer) error {
				return printEvents(w, events)
			})
		},
	}
	cmd.Flags().StringVar(&filter.Barcode, "barcode", "", "only this roll")
	cmd.Flags().StringVar(&filter.Type, "type", "", "new_roll or log_usage")
	cmd.Flags().StringVar(&since, "since", "", "first day, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVar(&until, "until", "", "last day, YYYY-MM-DD (UTC)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum rows")
	format = addFormatFlag(cmd)
	return cmd
}

func newReportPopularCmd(c *cli) *cobra.Command {
	var (
		top, days int
		format    *string
	)
	cmd := &cobra.Command{
		Use:   "popular",
		Short: "Rolls logged most often",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			rolls, err := st.Popular(cmd.Context(), top, sinceDays(days))
			if err != nil {
				return err
			}
			return render(cmd, *format, rolls, func(w io.Writer) error {
				rows := make([][]string, 0, len(rolls))
				for _, r := range rolls {
					rows = append(rows, []string{
						r.Barcode, r.Brand, r.Color, r.Material,
						strconv.Itoa(r.Uses), clifmt.Grams(r.FilamentAmount),
					})
				}
				return clifmt.Table(w, []string{"BARCODE", "BRAND", "COLOR", "MATERIAL", "USES", "LEFT"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of rolls")
	cmd.Flags().IntVar(&days, "days", 30, "trailing window in days, 0 for all time")
	format = addFormatFlag(cmd)
	return cmd
}

func newReportGroupsCmd(c *cli) *cobra.Command {
	var (
		top, days int
		by        string
		format    *string
	)
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Brands or colours ranked by usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			groups, err := st.PopularGroups(cmd.Context(), top, sinceDays(days), inventory.GroupBy(strings.ToLower(by)))
			if err != nil {
				return err
			}
			return render(cmd, *format, groups, func(w io.Writer) error {
				rows := make([][]string, 0, len(groups))
				for _, g := range groups {
					rows = append(rows, []string{g.Brand, g.Color, strconv.Itoa(g.UsageCount), clifmt.Grams(g.UsedGrams)})
				}
				return clifmt.Table(w, []string{"BRAND", "COLOR", "USES", "USED"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of groups")
	cmd.Flags().IntVar(&days, "days", 30, "trailing window in days, 0 for all time")
	cmd.Flags().StringVar(&by, "by", string(inventory.GroupByBrandColor), "brand|color|brand_color")
	format = addFormatFlag(cmd)
	return cmd
}

func newReportFavoritesCmd(c *cli) *cobra.Command {
	var format *string
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Favorite profiles with stock counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Store(cmd.Context())
			if err != nil {
				return err
			}
			profiles, err := st.Favorites(cmd.Context(), st.Settings().LowThreshold)
			if err != nil {
				return err
			}
			return render(cmd, *format, profiles, func(w io.Writer) error {
				rows := make([][]string, 0, len(profiles))
				for _, p := range profiles {
					rows = append(rows, []string{
						p.Brand, p.Color, p.Material, joinAttrs(p.Attribute1, p.Attribute2),
						strconv.Itoa(p.TotalCount), strconv.Itoa(p.LowCount),
					})
				}
				return clifmt.Table(w, []string{"BRAND", "COLOR", "MATERIAL", "ATTRS", "ROLLS", "LOW"}, rows)
			})
		},
	}
	format = addFormatFlag(cmd)
	return cmd
}
