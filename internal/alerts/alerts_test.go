package alerts

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/quotes/quotestest"
	"github.com/camuig/rus-portfolio/internal/storage"
)

type recordingNotifier struct {
	mu    sync.Mutex
	fired []Firing
}

func (n *recordingNotifier) NotifyAlert(f Firing) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fired = append(n.fired, f)
}

func setupEngine(t *testing.T) (*Engine, *quotestest.Fake, *recordingNotifier, *storage.Repository) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	repo := storage.NewRepository(db)
	fake := quotestest.New()
	n := &recordingNotifier{}
	return NewEngine(repo, fake, n, logger.Discard()), fake, n, repo
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    storage.Direction
		wantErr bool
	}{
		{"above", storage.DirectionAbove, false},
		{"BELOW", storage.DirectionBelow, false},
		{" Above ", storage.DirectionAbove, false},
		{"sideways", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidAlert) {
					t.Fatalf("expected ErrInvalidAlert, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseDirection(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestPercentageAlertFiresOnceAndRearms(t *testing.T) {
	e, fake, n, repo := setupEngine(t)
	ctx := context.Background()

	fake.SetPrice("TSLA", 100)
	a, err := e.SetPercentageAlert(ctx, "tsla", d("5"))
	if err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if !a.BaselinePrice.Equal(d("100")) {
		t.Fatalf("baseline = %s, want 100", a.BaselinePrice)
	}

	fake.SetPrice("TSLA", 103)
	report, err := e.CheckAlerts(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Fired) != 0 {
		t.Fatalf("3%% move fired: %+v", report.Fired)
	}
	stored, _ := repo.ListPercentageAlerts(ctx)
	if !stored[0].BaselinePrice.Equal(d("100")) {
		t.Fatalf("baseline moved without firing: %s", stored[0].BaselinePrice)
	}

	fake.SetPrice("TSLA", 106)
	report, err = e.CheckAlerts(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Fired) != 1 {
		t.Fatalf("expected one firing, got %+v", report.Fired)
	}
	f := report.Fired[0]
	if f.Kind != KindPercentage || !f.ChangePct.Equal(d("6")) || !f.Baseline.Equal(d("100")) {
		t.Fatalf("unexpected firing: %+v", f)
	}
	stored, _ = repo.ListPercentageAlerts(ctx)
	if !stored[0].BaselinePrice.Equal(d("106")) {
		t.Fatalf("baseline = %s, want 106", stored[0].BaselinePrice)
	}

	report, err = e.CheckAlerts(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Fired) != 0 {
		t.Fatalf("re-armed alert fired again at the same price: %+v", report.Fired)
	}
	if len(n.fired) != 1 {
		t.Fatalf("notifier received %d firings, want 1", len(n.fired))
	}
}

func TestPercentageAlertFiresOnDrop(t *testing.T) {
	e, fake, _, _ := setupEngine(t)
	ctx := context.Background()

	fake.SetPrice("GAZP", 200)
	if _, err := e.SetPercentageAlert(ctx, "GAZP", d("10")); err != nil {
		t.Fatalf("set alert: %v", err)
	}
	fake.SetPrice("GAZP", 180)
	report, err := e.CheckAlerts(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Fired) != 1 || !report.Fired[0].ChangePct.Equal(d("-10")) {
		t.Fatalf("expected a -10%% firing at the threshold, got %+v", report.Fired)
	}
}

func TestPriceAlertIsLevelTriggered(t *testing.T) {
	e, fake, n, _ := setupEngine(t)
	ctx := context.Background()

	if _, err := e.SetPriceAlert(ctx, "SBER", d("300"), storage.DirectionAbove); err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if _, err := e.SetPriceAlert(ctx, "SBER", d("250"), storage.DirectionBelow); err != nil {
		t.Fatalf("set alert: %v", err)
	}

	tests := []struct {
		price float64
		fired int
	}{
		{280, 0},
		{300, 0},
		{310, 1},
		{310, 1},
		{240, 1},
	}
	for _, tt := range tests {
		fake.SetPrice("SBER", tt.price)
		report, err := e.CheckAlerts(ctx)
		if err != nil {
			t.Fatalf("check at %v: %v", tt.price, err)
		}
		if len(report.Fired) != tt.fired {
			t.Fatalf("at %v fired %d, want %d", tt.price, len(report.Fired), tt.fired)
		}
	}
	if len(n.fired) != 3 {
		t.Fatalf("notifier received %d firings, want 3", len(n.fired))
	}
}

func TestCheckAlertsSkipsFailedQuotes(t *testing.T) {
	e, fake, _, _ := setupEngine(t)
	ctx := context.Background()

	fake.SetPrice("YNDX", 4000)
	if _, err := e.SetPercentageAlert(ctx, "YNDX", d("1")); err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if _, err := e.SetPriceAlert(ctx, "VTBR", d("0.01"), storage.DirectionAbove); err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if _, err := e.SetPriceAlert(ctx, "MGNT", d("1"), storage.DirectionAbove); err != nil {
		t.Fatalf("set alert: %v", err)
	}
	fake.Fail("YNDX", errors.New("board closed"))
	fake.SetPrice("MGNT", 5000)

	report, err := e.CheckAlerts(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Fired) != 1 || report.Fired[0].Ticker != "MGNT" {
		t.Fatalf("unexpected firings: %+v", report.Fired)
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("expected warnings for VTBR and YNDX, got %+v", report.Warnings)
	}
}

func TestSetAlertValidation(t *testing.T) {
	e, fake, _, _ := setupEngine(t)
	ctx := context.Background()

	if _, err := e.SetPercentageAlert(ctx, "SBER", d("0")); !errors.Is(err, apperrors.ErrInvalidAlert) {
		t.Fatalf("zero percentage: got %v", err)
	}
	if _, err := e.SetPercentageAlert(ctx, "NOPE", d("5")); !errors.Is(err, apperrors.ErrQuoteUnavailable) {
		t.Fatalf("unpriced ticker: got %v", err)
	}
	if _, err := e.SetPriceAlert(ctx, "SBER", d("1"), storage.Direction("UP")); !errors.Is(err, apperrors.ErrInvalidAlert) {
		t.Fatalf("bad direction: got %v", err)
	}
	if _, err := e.SetPriceAlert(ctx, "", d("1"), storage.DirectionAbove); !errors.Is(err, apperrors.ErrInvalidTicker) {
		t.Fatalf("blank ticker: got %v", err)
	}

	fake.SetPrice("SBER", 250)
	if _, err := e.SetPriceAlert(ctx, "SBER", d("300"), storage.DirectionAbove); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := e.SetPriceAlert(ctx, "SBER", d("300"), storage.DirectionAbove); err != nil {
		t.Fatalf("duplicate set: %v", err)
	}
	defs, err := e.Definitions(ctx)
	if err != nil {
		t.Fatalf("definitions: %v", err)
	}
	if len(defs.Price) != 2 || len(defs.Percentage) != 0 {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
}
