// Package ledger owns position state and cost basis. Every mutation writes
// the holding and its audit transaction in one storage transaction; quotes
// are always fetched outside that transaction.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/quotes"
	"github.com/camuig/rus-portfolio/internal/storage"
)

// Position is the point-in-time view of one holding.
type Position struct {
	Shares      decimal.Decimal `json:"shares"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

type Ledger struct {
	repo   *storage.Repository
	quotes quotes.Service
	logger *logger.Logger
	now    func() time.Time
}

func New(repo *storage.Repository, qs quotes.Service, log *logger.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		quotes: qs,
		logger: log,
		now:    time.Now,
	}
}

// SetClock overrides the time source used for transaction timestamps.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Quotes exposes the quote service the ledger prices against.
func (l *Ledger) Quotes() quotes.Service {
	return l.quotes
}

// AddPosition buys shares at price, folding them into the weighted average cost.
func (l *Ledger) AddPosition(ctx context.Context, ticker string, shares, price decimal.Decimal) (storage.Holding, error) {
	ticker = quotes.NormalizeTicker(ticker)
	if ticker == "" {
		return storage.Holding{}, apperrors.ErrInvalidTicker
	}
	if !shares.IsPositive() {
		return storage.Holding{}, fmt.Errorf("add %s shares of %s: %w", shares, ticker, apperrors.ErrInvalidQuantity)
	}
	if price.IsNegative() {
		return storage.Holding{}, fmt.Errorf("add %s at %s: %w", ticker, price, apperrors.ErrInvalidPrice)
	}

	var out storage.Holding
	err := l.repo.Atomically(ctx, func(tx *storage.Repository) error {
		h, err := tx.GetHolding(ctx, ticker)
		if err != nil {
			return err
		}
		if h == nil {
			h = &storage.Holding{Ticker: ticker, Shares: decimal.Zero, AverageCost: decimal.Zero}
		}

		total := h.Shares.Add(shares)
		h.AverageCost = h.Shares.Mul(h.AverageCost).Add(shares.Mul(price)).Div(total)
		h.Shares = total

		if err := tx.SaveHolding(ctx, h); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, &storage.Transaction{
			Ticker:      ticker,
			SharesDelta: shares,
			Price:       price,
			Timestamp:   l.now(),
		}); err != nil {
			return err
		}
		out = *h
		return nil
	})
	if err != nil {
		return storage.Holding{}, apperrors.NewPersistenceError("add position", err)
	}

	l.logger.Info("position added", "ticker", ticker, "shares", shares.String(), "price", price.String(),
		"total_shares", out.Shares.String(), "average_cost", out.AverageCost.String())
	return out, nil
}

// RemovePosition sells shares. The remaining average cost is unchanged. A
// zero price records an unknown execution price. Selling more than is held
// fails with ErrInsufficientShares and leaves the ledger untouched.
func (l *Ledger) RemovePosition(ctx context.Context, ticker string, shares, price decimal.Decimal) (remaining decimal.Decimal, err error) {
	ticker = quotes.NormalizeTicker(ticker)
	if ticker == "" {
		return decimal.Zero, apperrors.ErrInvalidTicker
	}
	if !shares.IsPositive() {
		return decimal.Zero, fmt.Errorf("remove %s shares of %s: %w", shares, ticker, apperrors.ErrInvalidQuantity)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("remove %s at %s: %w", ticker, price, apperrors.ErrInvalidPrice)
	}

	err = l.repo.Atomically(ctx, func(tx *storage.Repository) error {
		h, err := tx.GetHolding(ctx, ticker)
		if err != nil {
			return err
		}
		held := decimal.Zero
		if h != nil {
			held = h.Shares
		}
		if shares.GreaterThan(held) {
			return fmt.Errorf("sell %s of %s, holding %s: %w", shares, ticker, held, apperrors.ErrInsufficientShares)
		}

		remaining = held.Sub(shares)
		if remaining.IsZero() {
			if err := tx.DeleteHolding(ctx, ticker); err != nil {
				return err
			}
		} else {
			h.Shares = remaining
			if err := tx.SaveHolding(ctx, h); err != nil {
				return err
			}
		}

		return tx.AppendTransaction(ctx, &storage.Transaction{
			Ticker:      ticker,
			SharesDelta: shares.Neg(),
			Price:       price,
			Timestamp:   l.now(),
		})
	})
	if err != nil {
		if apperrors.IsDomain(err) {
			l.logger.Warn("position not removed", "ticker", ticker, "shares", shares.String(), "error", err)
		}
		return decimal.Zero, apperrors.NewPersistenceError("remove position", err)
	}

	l.logger.Info("position removed", "ticker", ticker, "shares", shares.String(), "remaining", remaining.String())
	return remaining, nil
}

// Holdings returns a snapshot of every open position keyed by ticker.
func (l *Ledger) Holdings(ctx context.Context) (map[string]Position, error) {
	rows, err := l.repo.ListHoldings(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list holdings", err)
	}
	out := make(map[string]Position, len(rows))
	for _, h := range rows {
		out[h.Ticker] = Position{Shares: h.Shares, AverageCost: h.AverageCost}
	}
	return out, nil
}

// Tickers returns the currently held tickers in ascending order.
func (l *Ledger) Tickers(ctx context.Context) ([]string, error) {
	rows, err := l.repo.ListHoldings(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list holdings", err)
	}
	out := make([]string, len(rows))
	for i, h := range rows {
		out[i] = h.Ticker
	}
	return out, nil
}

// Transactions returns the audit log in insertion order.
func (l *Ledger) Transactions(ctx context.Context) ([]storage.Transaction, error) {
	txs, err := l.repo.ListTransactions(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list transactions", err)
	}
	return txs, nil
}
