package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func addLedgerCommands(rootCmd *cobra.Command, c *cli) {
	rootCmd.AddCommand(newAddCmd(c))
	rootCmd.AddCommand(newRemoveCmd(c))
	rootCmd.AddCommand(newHoldingsCmd(c))
	rootCmd.AddCommand(newValueCmd(c))
	rootCmd.AddCommand(newTransactionsCmd(c))
	rootCmd.AddCommand(newImportBrokerCmd(c))
}

func newAddCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "add <ticker> <shares> <price>",
		Short:   "Record a purchase",
		Example: "  portfolio add SBER 10 250.50",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := parseDecimal("shares", args[1])
			if err != nil {
				return err
			}
			price, err := parseDecimal("price", args[2])
			if err != nil {
				return err
			}

			h, err := c.app.Ledger.AddPosition(cmd.Context(), args[0], shares, price)
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(h)
			}
			o.Printf("%s %s: %s shares, average cost %s\n", green("✓"), h.Ticker, h.Shares, h.AverageCost.StringFixed(4))
			return nil
		},
	}
}

func newRemoveCmd(c *cli) *cobra.Command {
	var priceFlag string

	cmd := &cobra.Command{
		Use:   "remove <ticker> <shares>",
		Short: "Record a sale",
		Long:  "Records a sale. The execution price is informational only and does not affect the average cost of the remaining shares.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := parseDecimal("shares", args[1])
			if err != nil {
				return err
			}
			price := decimal.Zero
			if priceFlag != "" {
				if price, err = parseDecimal("price", priceFlag); err != nil {
					return err
				}
			}

			remaining, err := c.app.Ledger.RemovePosition(cmd.Context(), args[0], shares, price)
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(map[string]decimal.Decimal{"remaining": remaining})
			}
			o.Printf("%s sold %s, %s shares left\n", green("✓"), shares, remaining)
			return nil
		},
	}

	cmd.Flags().StringVar(&priceFlag, "price", "", "execution price")
	return cmd
}

func newHoldingsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "List open positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			holdings, err := c.app.Ledger.Holdings(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(holdings)
			}
			if len(holdings) == 0 {
				o.Printf("No holdings.\n")
				return nil
			}

			tickers := make([]string, 0, len(holdings))
			for t := range holdings {
				tickers = append(tickers, t)
			}
			sort.Strings(tickers)

			tw := o.Table()
			fmt.Fprintln(tw, bold("TICKER\tSHARES\tAVG COST"))
			for _, t := range tickers {
				p := holdings[t]
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t, p.Shares, p.AverageCost.StringFixed(4))
			}
			return tw.Flush()
		},
	}
}

func newValueCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "value",
		Short: "Price every holding and show profit and loss",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := c.app.Ledger.CurrentValue(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(v)
			}

			tw := o.Table()
			fmt.Fprintln(tw, bold("TICKER\tSHARES\tAVG COST\tPRICE\tVALUE\tP&L\tP&L %"))
			for _, p := range v.Positions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					p.Ticker, p.Shares, p.AverageCost.StringFixed(2), p.Price,
					p.MarketValue.StringFixed(2), signed(p.Change, 2), signed(p.ChangePct, 2))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			o.Printf("\nTotal value %s, cost %s, change %s (%s%%)\n",
				bold(v.TotalValue.StringFixed(2)), v.TotalCost.StringFixed(2),
				signed(v.TotalChange, 2), signed(v.TotalChangePct, 2))
			o.Warnings(v.Warnings)
			return nil
		},
	}
}

func newTransactionsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Show the transaction log",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := c.app.Ledger.Transactions(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(txs)
			}

			tw := o.Table()
			fmt.Fprintln(tw, bold("ID\tTIME\tTICKER\tSHARES\tPRICE"))
			for _, t := range txs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
					t.ID, t.Timestamp.Local().Format(time.DateTime), t.Ticker, signed(t.SharesDelta, 0), t.Price)
			}
			return tw.Flush()
		},
	}
}

// newImportBrokerCmd seeds the ledger from the broker account. Each position
// is recorded as a purchase at the broker's average price.
func newImportBrokerCmd(c *cli) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import-broker",
		Short: "Import positions from the Tinkoff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bc, err := c.app.Broker()
			if err != nil {
				return err
			}
			positions, err := bc.Positions()
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if len(positions) == 0 {
				o.Printf("No open positions on the account.\n")
				return nil
			}

			var imported, failed int
			for _, p := range positions {
				if dryRun {
					o.Printf("  %s: %s шт, ср.цена %s\n", p.Ticker, p.Quantity, p.AvgPrice.StringFixed(2))
					continue
				}
				if _, err := c.app.Ledger.AddPosition(cmd.Context(), p.Ticker, p.Quantity, p.AvgPrice); err != nil {
					o.Printf("  %s %s: %v\n", red("[FAIL]"), p.Ticker, err)
					failed++
					continue
				}
				o.Printf("  %s %s: %s @ %s\n", green("[OK]"), p.Ticker, p.Quantity, p.AvgPrice.StringFixed(2))
				imported++
			}

			if dryRun {
				o.Printf("Dry run, ledger unchanged.\n")
				return nil
			}
			o.Printf("\nImported %d, failed %d\n", imported, failed)
			if failed > 0 {
				return fmt.Errorf("%d position(s) not imported", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show positions without importing")
	return cmd
}
