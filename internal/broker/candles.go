package broker

import (
	"context"
	"fmt"
	"sort"
	"time"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"

	"github.com/camuig/rus-portfolio/internal/quotes"
)

const (
	// window searched for the latest trade when pricing a ticker
	lastPriceWindow = 7 * 24 * time.Hour
	// the API caps daily candle requests at one year
	maxDailyRange = 365 * 24 * time.Hour
)

// CurrentPrice returns the close of the most recent hourly candle.
func (bc *BrokerClient) CurrentPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	uid, err := bc.ResolveTickerToUID(ticker)
	if err != nil {
		return decimal.Zero, err
	}

	now := time.Now()
	md := bc.Client.NewMarketDataServiceClient()
	resp, err := md.GetCandles(
		uid,
		pb.CandleInterval_CANDLE_INTERVAL_HOUR,
		now.Add(-lastPriceWindow), now,
		pb.GetCandlesRequest_CANDLE_SOURCE_EXCHANGE,
		0,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get candles %s: %w", ticker, err)
	}

	last := latestCandle(resp.GetCandles())
	if last == nil {
		return decimal.Zero, fmt.Errorf("no trades for %s in the last %s", ticker, lastPriceWindow)
	}
	return quotationToDecimal(last.GetClose()), nil
}

// History returns daily closes in [from, to], split into one-year requests.
func (bc *BrokerClient) History(_ context.Context, ticker string, from, to time.Time) ([]quotes.Close, error) {
	uid, err := bc.ResolveTickerToUID(ticker)
	if err != nil {
		return nil, err
	}

	md := bc.Client.NewMarketDataServiceClient()
	var out []quotes.Close
	for _, r := range splitRange(from, to, maxDailyRange) {
		resp, err := md.GetCandles(
			uid,
			pb.CandleInterval_CANDLE_INTERVAL_DAY,
			r[0], r[1],
			pb.GetCandlesRequest_CANDLE_SOURCE_EXCHANGE,
			0,
		)
		if err != nil {
			return nil, fmt.Errorf("get daily candles %s: %w", ticker, err)
		}
		out = append(out, dailyCloses(resp.GetCandles())...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func latestCandle(candles []*pb.HistoricCandle) *pb.HistoricCandle {
	var best *pb.HistoricCandle
	for _, c := range candles {
		if c.GetClose() == nil {
			continue
		}
		if best == nil || c.GetTime().AsTime().After(best.GetTime().AsTime()) {
			best = c
		}
	}
	return best
}

func dailyCloses(candles []*pb.HistoricCandle) []quotes.Close {
	out := make([]quotes.Close, 0, len(candles))
	for _, c := range candles {
		price := c.GetClose().ToFloat()
		if price <= 0 {
			continue
		}
		t := c.GetTime().AsTime()
		out = append(out, quotes.Close{
			Date:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Price: price,
		})
	}
	return out
}

// quotationToDecimal converts units+nano into an exact decimal.
func quotationToDecimal(q *pb.Quotation) decimal.Decimal {
	if q == nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(q.GetUnits()).Add(decimal.New(int64(q.GetNano()), -9))
}

// splitRange cuts [from, to] into consecutive windows no longer than step.
func splitRange(from, to time.Time, step time.Duration) [][2]time.Time {
	var out [][2]time.Time
	for start := from; start.Before(to); start = start.Add(step) {
		end := start.Add(step)
		if end.After(to) {
			end = to
		}
		out = append(out, [2]time.Time{start, end})
	}
	return out
}
