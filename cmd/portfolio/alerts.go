package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/camuig/rus-portfolio/internal/alerts"
)

func addAlertCommands(rootCmd *cobra.Command, c *cli) {
	alertCmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage and check price alerts",
	}

	alertCmd.AddCommand(newAlertPriceCmd(c))
	alertCmd.AddCommand(newAlertPercentCmd(c))
	alertCmd.AddCommand(newAlertListCmd(c))
	alertCmd.AddCommand(newAlertCheckCmd(c))

	rootCmd.AddCommand(alertCmd)
}

func newAlertPriceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "price <ticker> <threshold> <above|below>",
		Short:   "Alert while the price is above or below a level",
		Example: "  portfolio alert price GAZP 180 below",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := parseDecimal("threshold", args[1])
			if err != nil {
				return err
			}
			dir, err := alerts.ParseDirection(args[2])
			if err != nil {
				return err
			}

			a, err := c.app.Alerts.SetPriceAlert(cmd.Context(), args[0], threshold, dir)
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(a)
			}
			o.Printf("%s alert #%d: %s %s %s\n", green("✓"), a.ID, a.Ticker, a.Direction, a.Threshold)
			return nil
		},
	}
}

func newAlertPercentCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "percent <ticker> <percent>",
		Short: "Alert when the price moves by a percentage from the current price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := parseDecimal("percent", args[1])
			if err != nil {
				return err
			}

			a, err := c.app.Alerts.SetPercentageAlert(cmd.Context(), args[0], pct)
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(a)
			}
			o.Printf("%s alert #%d: %s ±%s%% from %s\n", green("✓"), a.ID, a.Ticker, a.PercentageChange, a.BaselinePrice)
			return nil
		},
	}
}

func newAlertListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := c.app.Alerts.Definitions(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(defs)
			}

			tw := o.Table()
			fmt.Fprintln(tw, bold("ID\tKIND\tTICKER\tCONDITION"))
			for _, a := range defs.Price {
				fmt.Fprintf(tw, "%d\tprice\t%s\t%s %s\n", a.ID, a.Ticker, a.Direction, a.Threshold)
			}
			for _, a := range defs.Percentage {
				fmt.Fprintf(tw, "%d\tpercent\t%s\t±%s%% from %s\n", a.ID, a.Ticker, a.PercentageChange, a.BaselinePrice)
			}
			return tw.Flush()
		},
	}
}

func newAlertCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate every alert against current quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Alerts.CheckAlerts(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(report)
			}
			if len(report.Fired) == 0 {
				o.Printf("No alerts fired.\n")
			}
			for _, f := range report.Fired {
				o.Printf("%s %s\n", yellow("🔔"), f)
			}
			o.Warnings(report.Warnings)
			return nil
		},
	}
}
