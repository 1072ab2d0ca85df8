// Package web serves a read-only JSON API and a small HTML dashboard over
// the ledger, alerts, performance history and optimizer.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/camuig/rus-portfolio/internal/alerts"
	"github.com/camuig/rus-portfolio/internal/config"
	"github.com/camuig/rus-portfolio/internal/ledger"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/optimizer"
	"github.com/camuig/rus-portfolio/internal/performance"
)

type Server struct {
	httpServer *http.Server
	ledger     *ledger.Ledger
	alerts     *alerts.Engine
	tracker    *performance.Tracker
	allocator  *optimizer.Allocator
	config     *config.Config
	logger     *logger.Logger
}

func NewServer(
	l *ledger.Ledger,
	engine *alerts.Engine,
	tracker *performance.Tracker,
	allocator *optimizer.Allocator,
	cfg *config.Config,
	log *logger.Logger,
) *Server {
	s := &Server{
		ledger:    l,
		alerts:    engine,
		tracker:   tracker,
		allocator: allocator,
		config:    cfg,
		logger:    log,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/holdings", s.handleHoldings)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/valuation", s.handleValuation)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/performance", s.handlePerformance)
	mux.HandleFunc("GET /api/optimize", s.handleOptimize)
	return mux
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
