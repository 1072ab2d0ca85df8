package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camuig/rus-portfolio/internal/app"
	"github.com/camuig/rus-portfolio/internal/config"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/scheduler"
	"github.com/camuig/rus-portfolio/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "", "path to SQLite database (overrides database.path)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Init logger
	log := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer log.Close()

	log.Info("starting portfolio pulse", "provider", cfg.Quotes.Provider, "interval", cfg.Scheduler.Interval)

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	sched := scheduler.NewScheduler(a.Alerts, a.Tracker, a.Notifier, cfg, log)
	webServer := web.NewServer(a.Ledger, a.Alerts, a.Tracker, a.Allocator, cfg, log)

	// Start scheduler in goroutine
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	// Start web server in goroutine
	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()

	a.Notifier.NotifyStatus(fmt.Sprintf("📈 Portfolio pulse запущен (котировки: %s)", cfg.Quotes.Provider))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	a.Notifier.NotifyStatus("🛑 Portfolio pulse остановлен")

	if err := a.Close(); err != nil {
		log.Error("close error", "error", err)
	}
	log.Info("portfolio pulse stopped")
}
