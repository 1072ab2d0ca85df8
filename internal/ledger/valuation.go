package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/quotes"
)

var hundred = decimal.NewFromInt(100)

// PositionValue is one priced holding inside a Valuation.
type PositionValue struct {
	Ticker      string          `json:"ticker"`
	Shares      decimal.Decimal `json:"shares"`
	AverageCost decimal.Decimal `json:"average_cost"`
	Price       decimal.Decimal `json:"price"`
	MarketValue decimal.Decimal `json:"market_value"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	Change      decimal.Decimal `json:"change"`
	ChangePct   decimal.Decimal `json:"change_pct"`
}

// Valuation is a partial-success report: tickers whose quote failed appear
// only in Warnings and contribute to neither total.
type Valuation struct {
	TotalValue     decimal.Decimal          `json:"total_value"`
	TotalCost      decimal.Decimal          `json:"total_cost"`
	TotalChange    decimal.Decimal          `json:"total_change"`
	TotalChangePct decimal.Decimal          `json:"total_change_pct"`
	Positions      []PositionValue          `json:"positions"`
	Holdings       map[string]Position      `json:"holdings"`
	Warnings       []apperrors.QuoteWarning `json:"warnings,omitempty"`
}

// CurrentValue prices every holding against the quote service.
func (l *Ledger) CurrentValue(ctx context.Context) (Valuation, error) {
	rows, err := l.repo.ListHoldings(ctx)
	if err != nil {
		return Valuation{}, apperrors.NewPersistenceError("list holdings", err)
	}

	v := Valuation{
		TotalValue: decimal.Zero,
		TotalCost:  decimal.Zero,
		Holdings:   make(map[string]Position, len(rows)),
	}
	for _, h := range rows {
		v.Holdings[h.Ticker] = Position{Shares: h.Shares, AverageCost: h.AverageCost}

		res := quotes.Fetch(ctx, l.quotes, h.Ticker)
		if !res.OK() {
			l.logger.Warn("quote failed, skipping holding", "ticker", h.Ticker, "error", res.Err)
			v.Warnings = append(v.Warnings, apperrors.NewQuoteWarning(h.Ticker, res.Err))
			continue
		}

		pv := PositionValue{
			Ticker:      h.Ticker,
			Shares:      h.Shares,
			AverageCost: h.AverageCost,
			Price:       res.Price,
			MarketValue: h.Shares.Mul(res.Price),
			CostBasis:   h.Shares.Mul(h.AverageCost),
		}
		pv.Change = pv.MarketValue.Sub(pv.CostBasis)
		pv.ChangePct = percentOf(pv.Change, pv.CostBasis)
		v.Positions = append(v.Positions, pv)

		v.TotalValue = v.TotalValue.Add(pv.MarketValue)
		v.TotalCost = v.TotalCost.Add(pv.CostBasis)
	}

	v.TotalChange = v.TotalValue.Sub(v.TotalCost)
	v.TotalChangePct = percentOf(v.TotalChange, v.TotalCost)
	return v, nil
}

// percentOf returns change/base*100, or zero when base is zero.
func percentOf(change, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return change.Div(base).Mul(hundred)
}

// SectorDistribution sums held shares per sector. Tickers whose sector is
// unknown are grouped under quotes.UnknownSector.
func (l *Ledger) SectorDistribution(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := l.repo.ListHoldings(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list holdings", err)
	}
	out := make(map[string]decimal.Decimal)
	for _, h := range rows {
		sector := quotes.SectorOf(ctx, l.quotes, h.Ticker)
		out[sector] = out[sector].Add(h.Shares)
	}
	return out, nil
}

// BenchmarkComparison relates the portfolio value to a benchmark's price.
type BenchmarkComparison struct {
	Benchmark      string                   `json:"benchmark"`
	PortfolioValue decimal.Decimal          `json:"portfolio_value"`
	BenchmarkPrice decimal.Decimal          `json:"benchmark_price"`
	Ratio          decimal.Decimal          `json:"ratio"`
	Warnings       []apperrors.QuoteWarning `json:"warnings,omitempty"`
}

func (l *Ledger) CompareWithBenchmark(ctx context.Context, benchmark string) (BenchmarkComparison, error) {
	benchmark = quotes.NormalizeTicker(benchmark)
	if benchmark == "" {
		return BenchmarkComparison{}, apperrors.ErrInvalidTicker
	}

	v, err := l.CurrentValue(ctx)
	if err != nil {
		return BenchmarkComparison{}, err
	}

	res := quotes.Fetch(ctx, l.quotes, benchmark)
	if !res.OK() {
		return BenchmarkComparison{}, fmt.Errorf("benchmark: %w", res.Err)
	}

	return BenchmarkComparison{
		Benchmark:      benchmark,
		PortfolioValue: v.TotalValue,
		BenchmarkPrice: res.Price,
		Ratio:          v.TotalValue.Div(res.Price),
		Warnings:       v.Warnings,
	}, nil
}
