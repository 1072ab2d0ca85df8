package optimizer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/ledger"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/quotes"
)

const defaultConcurrency = 4

// Allocator runs the optimizer over the tickers currently held in the ledger.
// It only reads.
type Allocator struct {
	ledger      *ledger.Ledger
	quotes      quotes.Service
	opts        Options
	concurrency int
	logger      *logger.Logger
	now         func() time.Time
}

func NewAllocator(l *ledger.Ledger, qs quotes.Service, opts Options, concurrency int, log *logger.Logger) *Allocator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Allocator{
		ledger:      l,
		quotes:      qs,
		opts:        opts,
		concurrency: concurrency,
		logger:      log,
		now:         time.Now,
	}
}

func (a *Allocator) SetClock(now func() time.Time) {
	a.now = now
}

// Optimize fetches lookback worth of daily closes for every held ticker and
// returns the max-Sharpe allocation. A single failed history fails the call.
func (a *Allocator) Optimize(ctx context.Context, lookback time.Duration) (Allocation, error) {
	tickers, err := a.ledger.Tickers(ctx)
	if err != nil {
		return Allocation{}, err
	}
	if len(tickers) == 0 {
		return Allocation{}, fmt.Errorf("no holdings: %w", apperrors.ErrInsufficientHistory)
	}

	to := a.now()
	from := to.Add(-lookback)
	histories := make([][]quotes.Close, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			closes, err := a.quotes.History(gctx, ticker, from, to)
			if err != nil {
				return fmt.Errorf("history: %w", apperrors.NewQuoteError(ticker, err))
			}
			histories[i] = closes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("optimization aborted", "error", err)
		return Allocation{}, err
	}

	series := make(map[string][]quotes.Close, len(tickers))
	for i, ticker := range tickers {
		series[ticker] = histories[i]
	}

	start := time.Now()
	alloc, err := Optimize(series, a.opts)
	if err != nil {
		a.logger.Warn("optimization failed", "tickers", len(tickers), "error", err)
		return Allocation{}, err
	}
	a.logger.Info("optimization finished", "tickers", len(tickers), "sharpe", alloc.Sharpe,
		"elapsed", time.Since(start).String())
	return alloc, nil
}
