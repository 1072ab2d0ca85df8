// Package quotes defines the market-data collaborator consumed by the
// ledger, the alert engine and the optimizer, plus decorators that bound each
// call with a timeout or serve repeated lookups from a TTL cache.
package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
)

const UnknownSector = "Unknown"

// Close is one daily closing price.
type Close struct {
	Date  time.Time
	Price float64
}

// Service is a source of current prices, daily closes and sector metadata.
type Service interface {
	CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	History(ctx context.Context, ticker string, from, to time.Time) ([]Close, error)
	Sector(ctx context.Context, ticker string) (string, error)
}

// Result is the outcome of a single price lookup.
type Result struct {
	Ticker string
	Price  decimal.Decimal
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Fetch looks up the current price of ticker. Any failure, including a
// non-positive price, is reported as a QuoteError in the result.
func Fetch(ctx context.Context, svc Service, ticker string) Result {
	price, err := svc.CurrentPrice(ctx, ticker)
	if err != nil {
		return Result{Ticker: ticker, Err: apperrors.NewQuoteError(ticker, err)}
	}
	if !price.IsPositive() {
		return Result{Ticker: ticker, Err: apperrors.NewQuoteError(ticker, fmt.Errorf("non-positive price %s", price))}
	}
	return Result{Ticker: ticker, Price: price}
}

// SectorOf returns the ticker's sector or UnknownSector when it cannot be
// determined.
func SectorOf(ctx context.Context, svc Service, ticker string) string {
	sector, err := svc.Sector(ctx, ticker)
	if err != nil || strings.TrimSpace(sector) == "" {
		return UnknownSector
	}
	return sector
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
