// Package performance records one portfolio value per calendar day.
package performance

import (
	"context"
	"time"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/ledger"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/storage"
)

// Result is the outcome of a single Track call.
type Result struct {
	Sample   storage.PerformanceSample `json:"sample"`
	Warnings []apperrors.QuoteWarning  `json:"warnings,omitempty"`
}

type Tracker struct {
	ledger *ledger.Ledger
	repo   *storage.Repository
	loc    *time.Location
	logger *logger.Logger
	now    func() time.Time
}

// NewTracker creates a tracker that dates samples in loc. A nil loc means UTC.
func NewTracker(l *ledger.Ledger, repo *storage.Repository, loc *time.Location, log *logger.Logger) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{
		ledger: l,
		repo:   repo,
		loc:    loc,
		logger: log,
		now:    time.Now,
	}
}

func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Today returns the sample key for the current moment.
func (t *Tracker) Today() string {
	return t.now().In(t.loc).Format(time.DateOnly)
}

// Track values the portfolio and stores it under today's date, replacing any
// sample already taken today.
func (t *Tracker) Track(ctx context.Context) (Result, error) {
	v, err := t.ledger.CurrentValue(ctx)
	if err != nil {
		return Result{}, err
	}

	sample := storage.PerformanceSample{
		Date:       t.Today(),
		TotalValue: v.TotalValue,
	}
	err = t.repo.Atomically(ctx, func(tx *storage.Repository) error {
		return tx.UpsertPerformance(ctx, &sample)
	})
	if err != nil {
		return Result{}, apperrors.NewPersistenceError("track performance", err)
	}

	t.logger.Info("performance tracked", "date", sample.Date, "total_value", sample.TotalValue.String(), "warnings", len(v.Warnings))
	return Result{Sample: sample, Warnings: v.Warnings}, nil
}

// Series returns every sample ordered by date.
func (t *Tracker) Series(ctx context.Context) ([]storage.PerformanceSample, error) {
	samples, err := t.repo.ListPerformance(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("performance series", err)
	}
	return samples, nil
}
