package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

type output struct {
	w    io.Writer
	json bool
}

func (c *cli) out(cmd *cobra.Command) *output {
	return &output{w: cmd.OutOrStdout(), json: c.jsonOut}
}

func (o *output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *output) Printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}

func (o *output) Table() *tabwriter.Writer {
	return tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
}

func (o *output) Warnings(ws []apperrors.QuoteWarning) {
	for _, w := range ws {
		fmt.Fprintln(o.w, yellow(fmt.Sprintf("⚠ %s: %s", w.Ticker, w.Reason)))
	}
}

// signed colors a P&L figure by its sign.
func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	switch d.Sign() {
	case 1:
		return green("+" + s)
	case -1:
		return red(s)
	default:
		return s
	}
}

func parseDecimal(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a number", name, raw)
	}
	return d, nil
}
