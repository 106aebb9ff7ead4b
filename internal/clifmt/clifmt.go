package clifmt

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

func Headerf(format string, args ...any) string {
	text := fmt.Sprintf(format, args...)
	if !useColor() {
		return text
	}
	return "\x1b[1;36m" + text + "\x1b[0m"
}

func Success(text string) string {
	return colorize("32", text)
}

func Warn(text string) string {
	return colorize("33", text)
}

func Dim(text string) string {
	return colorize("2", text)
}

// Grams renders a mass with two decimals and a unit.
func Grams(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " g"
}

// OptionalGrams renders nil as a dash.
func OptionalGrams(v *float64) string {
	if v == nil {
		return Dim("-")
	}
	return Grams(*v)
}

func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Table writes rows as aligned columns under a highlighted header line.
func Table(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(headers) > 0 {
		if _, err := fmt.Fprintln(tw, Headerf("%s", strings.Join(headers, "\t"))); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(r, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func colorize(code string, text string) string {
	if !useColor() {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

func useColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
