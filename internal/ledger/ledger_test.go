package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/quotes"
	"github.com/camuig/rus-portfolio/internal/quotes/quotestest"
	"github.com/camuig/rus-portfolio/internal/storage"
)

func setupLedger(t *testing.T) (*Ledger, *quotestest.Fake) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	fake := quotestest.New()
	l := New(storage.NewRepository(db), fake, logger.Discard())
	l.SetClock(func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) })
	return l, fake
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddPositionWeightedAverage(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()

	if _, err := l.AddPosition(ctx, "aapl", d("10"), d("150")); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	h, err := l.AddPosition(ctx, "AAPL", d("10"), d("170"))
	if err != nil {
		t.Fatalf("second buy: %v", err)
	}
	if !h.Shares.Equal(d("20")) || !h.AverageCost.Equal(d("160")) {
		t.Fatalf("got shares=%s avg=%s, want 20 @ 160", h.Shares, h.AverageCost)
	}

	holdings, err := l.Holdings(ctx)
	if err != nil {
		t.Fatalf("holdings: %v", err)
	}
	pos, ok := holdings["AAPL"]
	if !ok || !pos.AverageCost.Equal(d("160")) {
		t.Fatalf("unexpected holdings: %+v", holdings)
	}

	txs, err := l.Transactions(ctx)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 || !txs[1].SharesDelta.Equal(d("10")) || !txs[1].Price.Equal(d("170")) {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
	if txs[0].ID >= txs[1].ID {
		t.Fatalf("transaction ids must increase: %d, %d", txs[0].ID, txs[1].ID)
	}
}

func TestRemovePositionToZeroDeletesHolding(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()

	if _, err := l.AddPosition(ctx, "AAPL", d("10"), d("150")); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := l.AddPosition(ctx, "AAPL", d("10"), d("170")); err != nil {
		t.Fatalf("buy: %v", err)
	}

	remaining, err := l.RemovePosition(ctx, "AAPL", d("20"), decimal.Zero)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !remaining.IsZero() {
		t.Fatalf("remaining = %s, want 0", remaining)
	}

	holdings, _ := l.Holdings(ctx)
	if len(holdings) != 0 {
		t.Fatalf("expected no holdings, got %+v", holdings)
	}

	txs, _ := l.Transactions(ctx)
	last := txs[len(txs)-1]
	if !last.SharesDelta.Equal(d("-20")) || !last.Price.IsZero() {
		t.Fatalf("unexpected sell transaction: %+v", last)
	}
}

func TestPartialSellKeepsAverageCost(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()

	if _, err := l.AddPosition(ctx, "SBER", d("30"), d("250.5")); err != nil {
		t.Fatalf("buy: %v", err)
	}
	remaining, err := l.RemovePosition(ctx, "sber", d("12.5"), d("280"))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !remaining.Equal(d("17.5")) {
		t.Fatalf("remaining = %s, want 17.5", remaining)
	}
	holdings, _ := l.Holdings(ctx)
	if !holdings["SBER"].AverageCost.Equal(d("250.5")) {
		t.Fatalf("average cost changed on sell: %s", holdings["SBER"].AverageCost)
	}
	txs, _ := l.Transactions(ctx)
	if !txs[1].Price.Equal(d("280")) {
		t.Fatalf("sell price not recorded: %+v", txs[1])
	}
}

func TestRemovePositionRejectsOversell(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()

	if _, err := l.AddPosition(ctx, "GAZP", d("5"), d("130")); err != nil {
		t.Fatalf("buy: %v", err)
	}

	tests := []struct {
		name   string
		ticker string
		shares decimal.Decimal
		want   error
	}{
		{"more than held", "GAZP", d("6"), apperrors.ErrInsufficientShares},
		{"not held", "LKOH", d("1"), apperrors.ErrInsufficientShares},
		{"zero shares", "GAZP", decimal.Zero, apperrors.ErrInvalidQuantity},
		{"negative shares", "GAZP", d("-1"), apperrors.ErrInvalidQuantity},
		{"blank ticker", "  ", d("1"), apperrors.ErrInvalidTicker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.RemovePosition(ctx, tt.ticker, tt.shares, decimal.Zero)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if errors.Is(err, apperrors.ErrPersistence) {
				t.Fatalf("validation failure reported as persistence error: %v", err)
			}
		})
	}

	holdings, _ := l.Holdings(ctx)
	if !holdings["GAZP"].Shares.Equal(d("5")) {
		t.Fatalf("holding changed after rejected sells: %+v", holdings)
	}
	txs, _ := l.Transactions(ctx)
	if len(txs) != 1 {
		t.Fatalf("rejected sells appended transactions: %d", len(txs))
	}
}

func TestAddPositionValidation(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		shares string
		price  string
		want   error
	}{
		{"zero shares", "0", "10", apperrors.ErrInvalidQuantity},
		{"negative shares", "-3", "10", apperrors.ErrInvalidQuantity},
		{"negative price", "3", "-10", apperrors.ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.AddPosition(ctx, "SBER", d(tt.shares), d(tt.price)); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
	holdings, _ := l.Holdings(ctx)
	if len(holdings) != 0 {
		t.Fatalf("invalid buys created holdings: %+v", holdings)
	}
}

func TestCurrentValueSkipsFailedQuotes(t *testing.T) {
	l, fake := setupLedger(t)
	ctx := context.Background()

	mustAdd(t, l, "SBER", "10", "200")
	mustAdd(t, l, "GAZP", "100", "150")
	mustAdd(t, l, "LKOH", "2", "7000")
	fake.SetPrice("SBER", 250).SetPrice("LKOH", 6500)
	fake.Fail("GAZP", errors.New("timeout"))

	v, err := l.CurrentValue(ctx)
	if err != nil {
		t.Fatalf("current value: %v", err)
	}
	// SBER 2500 (cost 2000) + LKOH 13000 (cost 14000)
	if !v.TotalValue.Equal(d("15500")) || !v.TotalCost.Equal(d("16000")) {
		t.Fatalf("totals = %s / %s, want 15500 / 16000", v.TotalValue, v.TotalCost)
	}
	if !v.TotalChange.Equal(d("-500")) || !v.TotalChangePct.Equal(d("-3.125")) {
		t.Fatalf("change = %s (%s%%), want -500 (-3.125%%)", v.TotalChange, v.TotalChangePct)
	}
	if len(v.Warnings) != 1 || v.Warnings[0].Ticker != "GAZP" {
		t.Fatalf("expected one GAZP warning, got %+v", v.Warnings)
	}
	if len(v.Holdings) != 3 || len(v.Positions) != 2 {
		t.Fatalf("expected 3 holdings and 2 priced positions, got %d and %d", len(v.Holdings), len(v.Positions))
	}
}

func TestCurrentValueZeroCostBasis(t *testing.T) {
	l, fake := setupLedger(t)
	mustAdd(t, l, "GIFT", "4", "0")
	fake.SetPrice("GIFT", 25)

	v, err := l.CurrentValue(context.Background())
	if err != nil {
		t.Fatalf("current value: %v", err)
	}
	if !v.TotalValue.Equal(d("100")) || !v.TotalChangePct.IsZero() {
		t.Fatalf("got value=%s pct=%s, want 100 and 0", v.TotalValue, v.TotalChangePct)
	}
}

func TestCurrentValueEmpty(t *testing.T) {
	l, _ := setupLedger(t)
	v, err := l.CurrentValue(context.Background())
	if err != nil {
		t.Fatalf("current value: %v", err)
	}
	if !v.TotalValue.IsZero() || !v.TotalChangePct.IsZero() || len(v.Warnings) != 0 {
		t.Fatalf("unexpected empty valuation: %+v", v)
	}
}

func TestSectorDistribution(t *testing.T) {
	l, fake := setupLedger(t)
	mustAdd(t, l, "SBER", "10", "200")
	mustAdd(t, l, "VTBR", "5", "100")
	mustAdd(t, l, "GAZP", "7", "150")
	fake.SetSector("SBER", "Financials").SetSector("VTBR", "Financials")

	got, err := l.SectorDistribution(context.Background())
	if err != nil {
		t.Fatalf("sector distribution: %v", err)
	}
	if !got["Financials"].Equal(d("15")) || !got[quotes.UnknownSector].Equal(d("7")) {
		t.Fatalf("unexpected distribution: %+v", got)
	}
}

func TestCompareWithBenchmark(t *testing.T) {
	l, fake := setupLedger(t)
	mustAdd(t, l, "SBER", "10", "200")
	fake.SetPrice("SBER", 300).SetPrice("IMOEX", 3000)

	cmp, err := l.CompareWithBenchmark(context.Background(), "imoex")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !cmp.PortfolioValue.Equal(d("3000")) || !cmp.Ratio.Equal(d("1")) {
		t.Fatalf("unexpected comparison: %+v", cmp)
	}

	if _, err := l.CompareWithBenchmark(context.Background(), "RTSI"); !errors.Is(err, apperrors.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestDividends(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()

	if _, err := l.AddDividend(ctx, "sber", d("33.3")); err != nil {
		t.Fatalf("add dividend: %v", err)
	}
	if _, err := l.AddDividend(ctx, "SBER", decimal.Zero); !errors.Is(err, apperrors.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	ds, err := l.Dividends(ctx)
	if err != nil {
		t.Fatalf("list dividends: %v", err)
	}
	if len(ds) != 1 || ds[0].Ticker != "SBER" || ds[0].Date != "2026-10-18" {
		t.Fatalf("unexpected dividends: %+v", ds)
	}
}

func mustAdd(t *testing.T, l *Ledger, ticker, shares, price string) {
	t.Helper()
	if _, err := l.AddPosition(context.Background(), ticker, d(shares), d(price)); err != nil {
		t.Fatalf("add %s: %v", ticker, err)
	}
}
