package quotes

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

type cachedService struct {
	next      Service
	prices    *expirable.LRU[string, decimal.Decimal]
	histories *expirable.LRU[string, []Close]
	sectors   *expirable.LRU[string, string]
}

// NewCache serves successful lookups from memory for ttl. Failures are never
// cached. A non-positive ttl disables caching and returns next unchanged.
func NewCache(next Service, size int, ttl time.Duration) Service {
	if ttl <= 0 {
		return next
	}
	if size <= 0 {
		size = 256
	}
	return &cachedService{
		next:      next,
		prices:    expirable.NewLRU[string, decimal.Decimal](size, nil, ttl),
		histories: expirable.NewLRU[string, []Close](size, nil, ttl),
		sectors:   expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *cachedService) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if p, ok := c.prices.Get(ticker); ok {
		return p, nil
	}
	p, err := c.next.CurrentPrice(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	c.prices.Add(ticker, p)
	return p, nil
}

func (c *cachedService) History(ctx context.Context, ticker string, from, to time.Time) ([]Close, error) {
	key := ticker + "|" + from.Format(time.DateOnly) + "|" + to.Format(time.DateOnly)
	if h, ok := c.histories.Get(key); ok {
		return h, nil
	}
	h, err := c.next.History(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	c.histories.Add(key, h)
	return h, nil
}

func (c *cachedService) Sector(ctx context.Context, ticker string) (string, error) {
	if s, ok := c.sectors.Get(ticker); ok {
		return s, nil
	}
	s, err := c.next.Sector(ctx, ticker)
	if err != nil {
		return "", err
	}
	c.sectors.Add(ticker, s)
	return s, nil
}
