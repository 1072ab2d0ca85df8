package moex

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camuig/rus-portfolio/internal/logger"
	"github.com/camuig/rus-portfolio/internal/quotes"
)

var _ quotes.Service = (*Client)(nil)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "", 5*time.Second, logger.Discard())
}

func TestCurrentPrice(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "last trade",
			body: `{"securities":{"columns":["SECID","PREVPRICE"],"data":[["SBER",301.1]]},
				"marketdata":{"columns":["SECID","LAST","LCURRENTPRICE"],"data":[["SBER",305.27,305.3]]}}`,
			want: "305.27",
		},
		{
			name: "closed board falls back to previous price",
			body: `{"securities":{"columns":["SECID","PREVPRICE"],"data":[["SBER",301.1]]},
				"marketdata":{"columns":["SECID","LAST","LCURRENTPRICE"],"data":[["SBER",null,null]]}}`,
			want: "301.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/iss/engines/stock/markets/shares/boards/TQBR/securities/SBER.json" {
					http.NotFound(w, r)
					return
				}
				fmt.Fprint(w, tt.body)
			})
			got, err := c.CurrentPrice(context.Background(), "sber")
			if err != nil {
				t.Fatalf("current price: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("price = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCurrentPriceIndexAndErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/iss/engines/stock/markets/index/boards/SNDX/securities/IMOEX.json":
			fmt.Fprint(w, `{"securities":{"columns":[],"data":[]},
				"marketdata":{"columns":["SECID","CURRENTVALUE"],"data":[["IMOEX",2750.5]]}}`)
		case "/iss/engines/stock/markets/shares/boards/TQBR/securities/DEAD.json":
			fmt.Fprint(w, `{"securities":{"columns":[],"data":[]},"marketdata":{"columns":[],"data":[]}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	ctx := context.Background()

	got, err := c.CurrentPrice(ctx, "IMOEX")
	if err != nil || !got.Equal(decimal.RequireFromString("2750.5")) {
		t.Fatalf("index price = %s, %v", got, err)
	}
	if _, err := c.CurrentPrice(ctx, "DEAD"); err == nil {
		t.Fatal("expected error for ticker without price")
	}
	if _, err := c.CurrentPrice(ctx, "BOOM"); err == nil {
		t.Fatal("expected error for server failure")
	}
}

func TestHistoryPaginates(t *testing.T) {
	var requests int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query()
		if q.Get("from") != "2026-10-01" || q.Get("till") != "2026-10-16" {
			t.Errorf("unexpected range %s..%s", q.Get("from"), q.Get("till"))
		}
		start, _ := strconv.Atoi(q.Get("start"))
		switch start {
		case 0:
			fmt.Fprint(w, `{"history":{"columns":["TRADEDATE","CLOSE"],"data":[["2026-10-01",100.5],["2026-10-02",null]]},
				"history.cursor":{"columns":["INDEX","TOTAL","PAGESIZE"],"data":[[0,3,2]]}}`)
		case 2:
			fmt.Fprint(w, `{"history":{"columns":["TRADEDATE","CLOSE"],"data":[["2026-10-05",102]]},
				"history.cursor":{"columns":["INDEX","TOTAL","PAGESIZE"],"data":[[2,3,2]]}}`)
		default:
			t.Errorf("unexpected start %d", start)
		}
	})

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	closes, err := c.History(context.Background(), "GAZP", from, to)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if requests != 2 {
		t.Fatalf("requests = %d, want 2", requests)
	}
	if len(closes) != 2 || closes[0].Price != 100.5 || closes[1].Price != 102 {
		t.Fatalf("unexpected closes: %+v", closes)
	}
	if !closes[1].Date.Equal(time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", closes[1].Date)
	}
}

func TestSectorIsUnknown(t *testing.T) {
	c := NewClient("", "", 0, logger.Discard())
	if s, err := c.Sector(context.Background(), "SBER"); err != nil || s != quotes.UnknownSector {
		t.Fatalf("sector = %q, %v", s, err)
	}
}

func TestFetchRecentNews(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/iss/sitenews.json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"sitenews":{"columns":["id","tag","title","published_at","modified_at"],"data":[
			[101,"","Сбербанк увеличил дивиденды","2026-10-18 10:00:00","2026-10-18 10:00:00"],
			[100,"","Итоги торгов GAZP","2026-10-17 18:00:00","2026-10-17 18:00:00"],
			[99,"","Старая новость","2026-10-16 09:00:00","2026-10-16 09:00:00"]]}}`)
	})
	c.now = func() time.Time { return now }

	news, err := c.FetchRecentNews(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("fetch news: %v", err)
	}
	if len(news) != 2 || news[0].ID != 101 {
		t.Fatalf("unexpected news: %+v", news)
	}

	grouped := FilterNewsForTickers(news, []string{"SBER", "GAZP", "T"})
	if len(grouped["SBER"]) != 1 || len(grouped["GAZP"]) != 1 || len(grouped["T"]) != 0 {
		t.Fatalf("unexpected grouping: %+v", grouped)
	}
}
