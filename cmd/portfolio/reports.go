package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/camuig/rus-portfolio/internal/moex"
)

func addReportCommands(rootCmd *cobra.Command, c *cli) {
	rootCmd.AddCommand(newTrackCmd(c))
	rootCmd.AddCommand(newPerformanceCmd(c))
	rootCmd.AddCommand(newOptimizeCmd(c))
	rootCmd.AddCommand(newDividendCmd(c))
	rootCmd.AddCommand(newSectorsCmd(c))
	rootCmd.AddCommand(newBenchmarkCmd(c))
	rootCmd.AddCommand(newNewsCmd(c))
}

func newTrackCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "track",
		Short: "Record today's portfolio value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.Tracker.Track(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(res)
			}
			o.Printf("%s %s: %s\n", green("✓"), res.Sample.Date, res.Sample.TotalValue.StringFixed(2))
			o.Warnings(res.Warnings)
			return nil
		},
	}
}

func newPerformanceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "performance",
		Short: "Show the recorded daily values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			series, err := c.app.Tracker.Series(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(series)
			}
			if len(series) == 0 {
				o.Printf("No performance history yet.\n")
				return nil
			}

			tw := o.Table()
			fmt.Fprintln(tw, bold("DATE\tVALUE\tCHANGE"))
			prev := decimal.Zero
			for i, s := range series {
				change := ""
				if i > 0 {
					change = signed(s.TotalValue.Sub(prev), 2)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Date, s.TotalValue.StringFixed(2), change)
				prev = s.TotalValue
			}
			return tw.Flush()
		},
	}
}

func newOptimizeCmd(c *cli) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest max-Sharpe weights for the held tickers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lookback := c.app.Config.Lookback()
			if days > 0 {
				lookback = time.Duration(days) * 24 * time.Hour
			}

			alloc, err := c.app.Allocator.Optimize(cmd.Context(), lookback)
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(alloc)
			}

			tickers := make([]string, 0, len(alloc.Weights))
			for t := range alloc.Weights {
				tickers = append(tickers, t)
			}
			sort.Slice(tickers, func(i, j int) bool { return alloc.Weights[tickers[i]] > alloc.Weights[tickers[j]] })

			tw := o.Table()
			fmt.Fprintln(tw, bold("TICKER\tWEIGHT"))
			for _, t := range tickers {
				fmt.Fprintf(tw, "%s\t%6.2f%%\n", t, alloc.Weights[t]*100)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			o.Printf("\nExpected return %.2f%%, volatility %.2f%%, Sharpe %.3f\n",
				alloc.Return*100, alloc.Volatility*100, alloc.Sharpe)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "lookback window in days (default from config)")
	return cmd
}

func newDividendCmd(c *cli) *cobra.Command {
	dividendCmd := &cobra.Command{
		Use:   "dividend",
		Short: "Record and list received dividends",
	}

	dividendCmd.AddCommand(&cobra.Command{
		Use:   "add <ticker> <amount>",
		Short: "Record a received dividend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseDecimal("amount", args[1])
			if err != nil {
				return err
			}
			d, err := c.app.Ledger.AddDividend(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(d)
			}
			o.Printf("%s %s dividend %s on %s\n", green("✓"), d.Ticker, d.Amount.StringFixed(2), d.Date)
			return nil
		},
	})

	dividendCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List dividends with per-ticker totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := c.app.Ledger.Dividends(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(ds)
			}

			total := decimal.Zero
			tw := o.Table()
			fmt.Fprintln(tw, bold("DATE\tTICKER\tAMOUNT"))
			for _, d := range ds {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Date, d.Ticker, d.Amount.StringFixed(2))
				total = total.Add(d.Amount)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			o.Printf("\nTotal %s\n", bold(total.StringFixed(2)))
			return nil
		},
	})

	return dividendCmd
}

func newSectorsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sectors",
		Short: "Show held shares per sector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dist, err := c.app.Ledger.SectorDistribution(cmd.Context())
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(dist)
			}

			sectors := make([]string, 0, len(dist))
			for s := range dist {
				sectors = append(sectors, s)
			}
			sort.Strings(sectors)

			tw := o.Table()
			fmt.Fprintln(tw, bold("SECTOR\tSHARES"))
			for _, s := range sectors {
				fmt.Fprintf(tw, "%s\t%s\n", s, dist[s])
			}
			return tw.Flush()
		},
	}
}

func newBenchmarkCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "benchmark [ticker]",
		Short:   "Compare the portfolio value with a benchmark price",
		Example: "  portfolio benchmark IMOEX",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			benchmark := "IMOEX"
			if len(args) == 1 {
				benchmark = args[0]
			}

			cmp, err := c.app.Ledger.CompareWithBenchmark(cmd.Context(), benchmark)
			if err != nil {
				return err
			}

			o := c.out(cmd)
			if o.json {
				return o.JSON(cmp)
			}
			o.Printf("Portfolio %s, %s %s, ratio %s\n",
				cmp.PortfolioValue.StringFixed(2), cmp.Benchmark, cmp.BenchmarkPrice, cmp.Ratio.StringFixed(4))
			o.Warnings(cmp.Warnings)
			return nil
		},
	}
}

func newNewsCmd(c *cli) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "news",
		Short: "Show recent exchange news mentioning held tickers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tickers, err := c.app.Ledger.Tickers(cmd.Context())
			if err != nil {
				return err
			}
			if len(tickers) == 0 {
				c.out(cmd).Printf("No holdings.\n")
				return nil
			}

			items, err := c.app.Moex.FetchRecentNews(cmd.Context(), time.Duration(hours)*time.Hour)
			if err != nil {
				return err
			}
			byTicker := moex.FilterNewsForTickers(items, tickers)

			o := c.out(cmd)
			if o.json {
				return o.JSON(byTicker)
			}
			if len(byTicker) == 0 {
				o.Printf("No news for %d holding(s) in the last %dh.\n", len(tickers), hours)
				return nil
			}
			for _, t := range tickers {
				news, ok := byTicker[t]
				if !ok {
					continue
				}
				o.Printf("%s\n", bold(t))
				for _, n := range news {
					o.Printf("  %s  %s\n", n.Published.Format("02.01 15:04"), n.Title)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "news window in hours")
	return cmd
}
