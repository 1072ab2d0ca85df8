package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/camuig/rus-portfolio/internal/app"
	"github.com/camuig/rus-portfolio/internal/config"
	"github.com/camuig/rus-portfolio/internal/logger"
)

// cli carries the state shared by every subcommand. The App is opened in
// the persistent pre-run so that --help never touches the database.
type cli struct {
	configPath string
	jsonOut    bool

	app *app.App
	log *logger.Logger
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "portfolio",
		Short:         "Personal stock portfolio ledger",
		Long:          "Tracks holdings and cost basis, evaluates price alerts, records daily performance and suggests a max-Sharpe allocation.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print results as JSON")

	addLedgerCommands(rootCmd, c)
	addAlertCommands(rootCmd, c)
	addReportCommands(rootCmd, c)

	return rootCmd, c
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.log = logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Console:    cmd.ErrOrStderr(),
	})

	c.app, err = app.New(cmd.Context(), cfg, c.log)
	return err
}

func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Close(); err != nil {
			c.log.Error("close app", "error", err)
		}
		c.app = nil
	}
	if c.log != nil {
		_ = c.log.Close()
	}
}
