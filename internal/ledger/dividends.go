package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/quotes"
	"github.com/camuig/rus-portfolio/internal/storage"
)

// AddDividend records a received dividend dated today.
func (l *Ledger) AddDividend(ctx context.Context, ticker string, amount decimal.Decimal) (storage.Dividend, error) {
	ticker = quotes.NormalizeTicker(ticker)
	if ticker == "" {
		return storage.Dividend{}, apperrors.ErrInvalidTicker
	}
	if !amount.IsPositive() {
		return storage.Dividend{}, fmt.Errorf("dividend %s for %s: %w", amount, ticker, apperrors.ErrInvalidPrice)
	}

	d := storage.Dividend{
		Ticker: ticker,
		Amount: amount,
		Date:   l.now().Format(time.DateOnly),
	}
	if err := l.repo.AddDividend(ctx, &d); err != nil {
		return storage.Dividend{}, apperrors.NewPersistenceError("add dividend", err)
	}
	l.logger.Info("dividend recorded", "ticker", ticker, "amount", amount.String())
	return d, nil
}

func (l *Ledger) Dividends(ctx context.Context) ([]storage.Dividend, error) {
	ds, err := l.repo.ListDividends(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list dividends", err)
	}
	return ds, nil
}
