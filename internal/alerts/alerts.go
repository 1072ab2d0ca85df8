// Package alerts registers price and percentage alerts and evaluates them
// against current quotes.
//
// Price alerts are level-triggered: they report on every check while the
// condition holds and are never disabled. Percentage alerts are
// edge-triggered: when the move from the baseline reaches the threshold the
// alert fires once and its baseline is re-armed to the current price. A check
// that does not fire leaves the baseline untouched.
package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/quotes"
	"github.com/camuig/rus-portfolio/internal/storage"
)

var hundred = decimal.NewFromInt(100)

type Kind string

const (
	KindPrice      Kind = "price"
	KindPercentage Kind = "percentage"
)

// Firing describes one alert that triggered during a check.
type Firing struct {
	Kind      Kind              `json:"kind"`
	AlertID   uint              `json:"alert_id"`
	Ticker    string            `json:"ticker"`
	Price     decimal.Decimal   `json:"price"`
	Threshold decimal.Decimal   `json:"threshold"`
	Direction storage.Direction `json:"direction,omitempty"`
	Baseline  decimal.Decimal   `json:"baseline"`
	ChangePct decimal.Decimal   `json:"change_pct"`
}

func (f Firing) String() string {
	if f.Kind == KindPercentage {
		return fmt.Sprintf("%s has changed by %s%% (threshold %s%%), price %s",
			f.Ticker, f.ChangePct.StringFixed(2), f.Threshold, f.Price)
	}
	return fmt.Sprintf("%s is %s the threshold of %s with current price %s",
		f.Ticker, strings.ToLower(string(f.Direction)), f.Threshold, f.Price)
}

// Report is the partial-success result of a check.
type Report struct {
	Fired    []Firing                 `json:"fired"`
	Warnings []apperrors.QuoteWarning `json:"warnings,omitempty"`
}

// Definitions lists every registered alert.
type Definitions struct {
	Price      []storage.PriceAlert      `json:"price"`
	Percentage []storage.PercentageAlert `json:"percentage"`
}

// Notifier receives every firing. Delivery failures are the notifier's concern.
type Notifier interface {
	NotifyAlert(f Firing)
}

type Engine struct {
	repo     *storage.Repository
	quotes   quotes.Service
	notifier Notifier
	logger   *logger.Logger
}

// NewEngine creates an alert engine. notifier may be nil.
func NewEngine(repo *storage.Repository, qs quotes.Service, notifier Notifier, log *logger.Logger) *Engine {
	return &Engine{
		repo:     repo,
		quotes:   qs,
		notifier: notifier,
		logger:   log,
	}
}

// ParseDirection accepts "above" or "below" in any case.
func ParseDirection(s string) (storage.Direction, error) {
	switch storage.Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case storage.DirectionAbove:
		return storage.DirectionAbove, nil
	case storage.DirectionBelow:
		return storage.DirectionBelow, nil
	}
	return "", fmt.Errorf("direction %q: %w", s, apperrors.ErrInvalidAlert)
}

// SetPriceAlert appends a threshold alert. Duplicates are allowed.
func (e *Engine) SetPriceAlert(ctx context.Context, ticker string, threshold decimal.Decimal, direction storage.Direction) (storage.PriceAlert, error) {
	ticker = quotes.NormalizeTicker(ticker)
	if ticker == "" {
		return storage.PriceAlert{}, apperrors.ErrInvalidTicker
	}
	if direction != storage.DirectionAbove && direction != storage.DirectionBelow {
		return storage.PriceAlert{}, fmt.Errorf("direction %q: %w", direction, apperrors.ErrInvalidAlert)
	}

	a := storage.PriceAlert{Ticker: ticker, Threshold: threshold, Direction: direction}
	if err := e.repo.CreatePriceAlert(ctx, &a); err != nil {
		return storage.PriceAlert{}, apperrors.NewPersistenceError("set price alert", err)
	}
	e.logger.Info("price alert set", "id", a.ID, "ticker", ticker, "direction", direction, "threshold", threshold.String())
	return a, nil
}

// SetPercentageAlert registers a move alert with the current price as its
// baseline. The alert is not created when no price is available.
func (e *Engine) SetPercentageAlert(ctx context.Context, ticker string, pct decimal.Decimal) (storage.PercentageAlert, error) {
	ticker = quotes.NormalizeTicker(ticker)
	if ticker == "" {
		return storage.PercentageAlert{}, apperrors.ErrInvalidTicker
	}
	if !pct.IsPositive() {
		return storage.PercentageAlert{}, fmt.Errorf("percentage %s: %w", pct, apperrors.ErrInvalidAlert)
	}

	res := quotes.Fetch(ctx, e.quotes, ticker)
	if !res.OK() {
		return storage.PercentageAlert{}, fmt.Errorf("set percentage alert: %w", res.Err)
	}

	a := storage.PercentageAlert{Ticker: ticker, PercentageChange: pct, BaselinePrice: res.Price}
	if err := e.repo.CreatePercentageAlert(ctx, &a); err != nil {
		return storage.PercentageAlert{}, apperrors.NewPersistenceError("set percentage alert", err)
	}
	e.logger.Info("percentage alert set", "id", a.ID, "ticker", ticker, "pct", pct.String(), "baseline", res.Price.String())
	return a, nil
}

// Definitions returns every registered alert.
func (e *Engine) Definitions(ctx context.Context) (Definitions, error) {
	price, err := e.repo.ListPriceAlerts(ctx)
	if err != nil {
		return Definitions{}, apperrors.NewPersistenceError("list price alerts", err)
	}
	pct, err := e.repo.ListPercentageAlerts(ctx)
	if err != nil {
		return Definitions{}, apperrors.NewPersistenceError("list percentage alerts", err)
	}
	return Definitions{Price: price, Percentage: pct}, nil
}

// CheckAlerts evaluates every alert against a freshly fetched price. A quote
// failure skips only the affected alert. Store failures abort the check.
func (e *Engine) CheckAlerts(ctx context.Context) (Report, error) {
	defs, err := e.Definitions(ctx)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, a := range defs.Price {
		res := quotes.Fetch(ctx, e.quotes, a.Ticker)
		if !res.OK() {
			e.warn(&report, a.Ticker, res.Err)
			continue
		}
		if crossed(a.Direction, res.Price, a.Threshold) {
			e.fire(&report, Firing{
				Kind:      KindPrice,
				AlertID:   a.ID,
				Ticker:    a.Ticker,
				Price:     res.Price,
				Threshold: a.Threshold,
				Direction: a.Direction,
			})
		}
	}

	for _, a := range defs.Percentage {
		if !a.BaselinePrice.IsPositive() {
			e.warn(&report, a.Ticker, fmt.Errorf("alert %d has non-positive baseline %s", a.ID, a.BaselinePrice))
			continue
		}
		res := quotes.Fetch(ctx, e.quotes, a.Ticker)
		if !res.OK() {
			e.warn(&report, a.Ticker, res.Err)
			continue
		}

		change := res.Price.Sub(a.BaselinePrice).Div(a.BaselinePrice).Mul(hundred)
		if change.Abs().LessThan(a.PercentageChange) {
			continue
		}

		err := e.repo.Atomically(ctx, func(tx *storage.Repository) error {
			return tx.UpdatePercentageBaseline(ctx, a.ID, res.Price)
		})
		if err != nil {
			return report, apperrors.NewPersistenceError("re-arm percentage alert", err)
		}
		e.fire(&report, Firing{
			Kind:      KindPercentage,
			AlertID:   a.ID,
			Ticker:    a.Ticker,
			Price:     res.Price,
			Threshold: a.PercentageChange,
			Baseline:  a.BaselinePrice,
			ChangePct: change,
		})
	}

	return report, nil
}

func crossed(dir storage.Direction, price, threshold decimal.Decimal) bool {
	switch dir {
	case storage.DirectionAbove:
		return price.GreaterThan(threshold)
	case storage.DirectionBelow:
		return price.LessThan(threshold)
	}
	return false
}

func (e *Engine) fire(r *Report, f Firing) {
	r.Fired = append(r.Fired, f)
	e.logger.Info("alert fired", "kind", f.Kind, "id", f.AlertID, "ticker", f.Ticker, "message", f.String())
	if e.notifier != nil {
		e.notifier.NotifyAlert(f)
	}
}

func (e *Engine) warn(r *Report, ticker string, err error) {
	e.logger.Warn("alert skipped", "ticker", ticker, "error", err)
	r.Warnings = append(r.Warnings, apperrors.NewQuoteWarning(ticker, err))
}
