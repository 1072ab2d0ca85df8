package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/camuig/rus-portfolio/internal/alerts"
	"github.com/camuig/rus-portfolio/internal/config"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/performance"
)

// Notifier receives cycle outcomes that are not alert firings.
type Notifier interface {
	NotifyTracked(r performance.Result)
	NotifyError(context string, err error)
}

type Scheduler struct {
	alerts   *alerts.Engine
	tracker  *performance.Tracker
	notifier Notifier
	config   *config.Config
	logger   *logger.Logger
	loc      *time.Location
	now      func() time.Time

	lastTracked string
}

func NewScheduler(
	engine *alerts.Engine,
	tracker *performance.Tracker,
	notifier Notifier,
	cfg *config.Config,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		alerts:   engine,
		tracker:  tracker,
		notifier: notifier,
		config:   cfg,
		logger:   log,
		loc:      cfg.Location(),
		now:      time.Now,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	interval := s.config.SchedulerInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", interval.String())

	// Run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in scheduler cycle", "panic", fmt.Sprint(r))
			s.notifier.NotifyError("scheduler panic", fmt.Errorf("%v", r))
		}
	}()

	if !s.isWithinSession(s.now()) {
		s.logger.Debug("outside session hours, skipping cycle")
		return
	}

	s.logger.Info("starting monitoring cycle")

	// 1. Alerts
	report, err := s.alerts.CheckAlerts(ctx)
	if err != nil {
		s.logger.Error("check alerts", "error", err)
		s.notifier.NotifyError("check alerts", err)
	} else {
		s.logger.Info("alerts checked", "fired", len(report.Fired), "warnings", len(report.Warnings))
	}

	// 2. Daily value, overwritten on every cycle of the same day
	if s.config.Scheduler.TrackPerformance {
		res, err := s.tracker.Track(ctx)
		if err != nil {
			s.logger.Error("track performance", "error", err)
			s.notifier.NotifyError("track performance", err)
		} else if res.Sample.Date != s.lastTracked {
			s.lastTracked = res.Sample.Date
			s.notifier.NotifyTracked(res)
		}
	}

	s.logger.Info("monitoring cycle completed")
}

func (s *Scheduler) isWithinSession(t time.Time) bool {
	now := t.In(s.loc)

	if s.config.Scheduler.SkipWeekends {
		weekday := now.Weekday()
		if weekday == time.Saturday || weekday == time.Sunday {
			return false
		}
	}

	start, end := s.config.SessionWindow()
	totalMinutes := now.Hour()*60 + now.Minute()
	if start <= end {
		return totalMinutes >= start && totalMinutes <= end
	}
	// window wraps past midnight
	return totalMinutes >= start || totalMinutes <= end
}
