// Package quotestest provides an in-memory quotes.Service for tests.
package quotestest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camuig/rus-portfolio/internal/quotes"
)

// Fake serves prices, histories and sectors from maps. Tickers without a
// configured price fail, which models an unavailable quote.
type Fake struct {
	mu        sync.Mutex
	prices    map[string]decimal.Decimal
	histories map[string][]quotes.Close
	sectors   map[string]string
	failures  map[string]error
	Calls     map[string]int
}

func New() *Fake {
	return &Fake{
		prices:    make(map[string]decimal.Decimal),
		histories: make(map[string][]quotes.Close),
		sectors:   make(map[string]string),
		failures:  make(map[string]error),
		Calls:     make(map[string]int),
	}
}

func (f *Fake) SetPrice(ticker string, price float64) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[ticker] = decimal.NewFromFloat(price)
	delete(f.failures, ticker)
	return f
}

func (f *Fake) SetHistory(ticker string, closes []quotes.Close) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories[ticker] = closes
	return f
}

func (f *Fake) SetSector(ticker, sector string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sectors[ticker] = sector
	return f
}

// Fail makes every lookup for ticker return err.
func (f *Fake) Fail(ticker string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[ticker] = err
	return f
}

func (f *Fake) CallCount(ticker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[ticker]
}

func (f *Fake) CurrentPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[ticker]++
	if err, ok := f.failures[ticker]; ok {
		return decimal.Zero, err
	}
	p, ok := f.prices[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %s", ticker)
	}
	return p, nil
}

func (f *Fake) History(_ context.Context, ticker string, from, to time.Time) ([]quotes.Close, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[ticker]; ok {
		return nil, err
	}
	var out []quotes.Close
	for _, c := range f.histories[ticker] {
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) Sector(_ context.Context, ticker string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[ticker]; ok {
		return "", err
	}
	s, ok := f.sectors[ticker]
	if !ok {
		return "", fmt.Errorf("no sector for %s", ticker)
	}
	return s, nil
}

// Series builds consecutive daily closes ending at end.
func Series(end time.Time, prices ...float64) []quotes.Close {
	out := make([]quotes.Close, len(prices))
	start := end.AddDate(0, 0, -(len(prices) - 1))
	for i, p := range prices {
		out[i] = quotes.Close{Date: start.AddDate(0, 0, i), Price: p}
	}
	return out
}
