// Package app wires configuration, storage, quote sources and the domain
// services shared by the daemon and the CLI.
package app

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/camuig/rus-portfolio/internal/alerts"
	"github.com/camuig/rus-portfolio/internal/broker"
	"github.com/camuig/rus-portfolio/internal/config"
	"github.com/camuig/rus-portfolio/internal/ledger"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/moex"
	"github.com/camuig/rus-portfolio/internal/optimizer"
	"github.com/camuig/rus-portfolio/internal/performance"
	"github.com/camuig/rus-portfolio/internal/quotes"
	"github.com/camuig/rus-portfolio/internal/storage"
	"github.com/camuig/rus-portfolio/internal/telegram"
)

type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Repo      *storage.Repository
	Moex      *moex.Client
	Quotes    quotes.Service
	Notifier  *telegram.Notifier
	Ledger    *ledger.Ledger
	Alerts    *alerts.Engine
	Tracker   *performance.Tracker
	Allocator *optimizer.Allocator

	db         *gorm.DB
	ctx        context.Context
	brokerOnce sync.Once
	broker     *broker.BrokerClient
	brokerErr  error
}

// New opens the database and builds every service. ctx bounds the lifetime
// of the broker connection when one is used.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: log,
		Repo:   storage.NewRepository(db),
		Moex:   moex.NewClient("", cfg.Quotes.Board, cfg.QuoteTimeout(), log),
		db:     db,
		ctx:    ctx,
	}

	var source quotes.Service = a.Moex
	if cfg.Quotes.Provider == config.ProviderTinkoff {
		bc, err := a.Broker()
		if err != nil {
			_ = storage.Close(db)
			return nil, err
		}
		source = bc
	}
	a.Quotes = quotes.NewCache(quotes.WithTimeout(source, cfg.QuoteTimeout()), cfg.Quotes.CacheSize, cfg.QuoteCacheTTL())
	log.Debug("quote source ready", "provider", cfg.Quotes.Provider, "cache_ttl", cfg.QuoteCacheTTL().String())

	a.Notifier = telegram.NewNotifier(cfg, log)
	a.Ledger = ledger.New(a.Repo, a.Quotes, log)
	a.Alerts = alerts.NewEngine(a.Repo, a.Quotes, a.Notifier, log)
	a.Tracker = performance.NewTracker(a.Ledger, a.Repo, cfg.Location(), log)
	a.Allocator = optimizer.NewAllocator(a.Ledger, a.Quotes, optimizer.Options{
		RiskFreeRate:  cfg.Optimizer.RiskFreeRate,
		Tolerance:     cfg.Optimizer.Tolerance,
		MaxIterations: cfg.Optimizer.MaxIterations,
	}, cfg.Optimizer.HistoryConcurrency, log)

	return a, nil
}

// Broker connects to the broker API on first use.
func (a *App) Broker() (*broker.BrokerClient, error) {
	a.brokerOnce.Do(func() {
		if a.Config.Tinkoff.Token == "" {
			a.brokerErr = fmt.Errorf("tinkoff.token is not configured")
			return
		}
		a.broker, a.brokerErr = broker.NewBrokerClient(a.ctx, a.Config, a.Logger)
		if a.brokerErr == nil {
			a.Logger.Info("broker connected", "account_id", a.broker.AccountID(), "sandbox", a.Config.IsSandbox())
		}
	})
	return a.broker, a.brokerErr
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	var firstErr error
	if a.broker != nil {
		if err := a.broker.Stop(); err != nil {
			a.Logger.Error("broker client stop error", "error", err)
			firstErr = err
		}
	}
	if err := storage.Close(a.db); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
