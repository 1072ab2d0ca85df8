package quotes

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
)

type timeoutService struct {
	next    Service
	timeout time.Duration
}

// WithTimeout bounds every call to next. An expired call returns a
// QuoteError even if the underlying client ignores its context.
func WithTimeout(next Service, timeout time.Duration) Service {
	if timeout <= 0 {
		return next
	}
	return &timeoutService{next: next, timeout: timeout}
}

func (s *timeoutService) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return bounded(ctx, s.timeout, ticker, func(ctx context.Context) (decimal.Decimal, error) {
		return s.next.CurrentPrice(ctx, ticker)
	})
}

func (s *timeoutService) History(ctx context.Context, ticker string, from, to time.Time) ([]Close, error) {
	return bounded(ctx, s.timeout, ticker, func(ctx context.Context) ([]Close, error) {
		return s.next.History(ctx, ticker, from, to)
	})
}

func (s *timeoutService) Sector(ctx context.Context, ticker string) (string, error) {
	return bounded(ctx, s.timeout, ticker, func(ctx context.Context) (string, error) {
		return s.next.Sector(ctx, ticker)
	})
}

func bounded[T any](ctx context.Context, d time.Duration, ticker string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, apperrors.NewQuoteError(ticker, ctx.Err())
	}
}
