package moex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/camuig/rus-portfolio/internal/quotes"
)

const historyPageLimit = 50

// indexBoards routes index tickers to the index market. Everything else is
// looked up on the configured share board.
var indexBoards = map[string]string{
	"IMOEX":  "SNDX",
	"MOEXBC": "SNDX",
	"MCFTR":  "SNDX",
	"RGBI":   "SNDX",
	"RTSI":   "RTSI",
}

// price columns in order of preference
var (
	marketdataPriceColumns = []string{"LAST", "LCURRENTPRICE", "CURRENTVALUE", "LASTVALUE", "MARKETPRICE"}
	securitiesPriceColumns = []string{"PREVPRICE", "PREVLEGALCLOSEPRICE", "PREVCLOSE"}
)

type securitiesResponse struct {
	Marketdata table `json:"marketdata"`
	Securities table `json:"securities"`
}

type historyResponse struct {
	History       table `json:"history"`
	HistoryCursor table `json:"history.cursor"`
}

func (c *Client) route(ticker string) (market, board string) {
	if b, ok := indexBoards[ticker]; ok {
		return "index", b
	}
	return "shares", c.board
}

// CurrentPrice returns the last trade price, or the previous close when the
// board is not trading.
func (c *Client) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ticker = quotes.NormalizeTicker(ticker)
	market, board := c.route(ticker)
	path := fmt.Sprintf("/iss/engines/stock/markets/%s/boards/%s/securities/%s.json", market, board, ticker)
	q := url.Values{
		"iss.meta": {"off"},
		"iss.only": {"marketdata,securities"},
	}

	var resp securitiesResponse
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return decimal.Zero, err
	}

	if p, ok := firstPositive(resp.Marketdata, marketdataPriceColumns); ok {
		return p, nil
	}
	// торги не идут, берём цену предыдущего дня
	if p, ok := firstPositive(resp.Securities, securitiesPriceColumns); ok {
		c.logger.Debug("using previous close", "ticker", ticker, "price", p.String())
		return p, nil
	}
	return decimal.Zero, fmt.Errorf("no price for %s on %s", ticker, board)
}

func firstPositive(t table, columns []string) (decimal.Decimal, bool) {
	for _, row := range t.Data {
		for _, col := range columns {
			if d, ok := toDecimal(t.value(row, col)); ok && d.IsPositive() {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// History returns daily closes in [from, to], following ISS pagination.
func (c *Client) History(ctx context.Context, ticker string, from, to time.Time) ([]quotes.Close, error) {
	ticker = quotes.NormalizeTicker(ticker)
	market, board := c.route(ticker)
	path := fmt.Sprintf("/iss/history/engines/stock/markets/%s/boards/%s/securities/%s.json", market, board, ticker)

	var out []quotes.Close
	start := 0
	for page := 0; page < historyPageLimit; page++ {
		q := url.Values{
			"iss.meta":        {"off"},
			"iss.only":        {"history,history.cursor"},
			"history.columns": {"TRADEDATE,CLOSE"},
			"from":            {from.Format(time.DateOnly)},
			"till":            {to.Format(time.DateOnly)},
			"start":           {strconv.Itoa(start)},
		}

		var resp historyResponse
		if err := c.getJSON(ctx, path, q, &resp); err != nil {
			return nil, fmt.Errorf("history page %d: %w", page, err)
		}

		for _, row := range resp.History.Data {
			dateStr, _ := resp.History.value(row, "TRADEDATE").(string)
			date, err := time.Parse(time.DateOnly, dateStr)
			if err != nil {
				continue
			}
			price := toFloat64(resp.History.value(row, "CLOSE"))
			if price <= 0 {
				continue
			}
			out = append(out, quotes.Close{Date: date, Price: price})
		}

		start += len(resp.History.Data)
		if len(resp.History.Data) == 0 || start >= cursorTotal(resp.HistoryCursor) {
			return out, nil
		}
	}

	c.logger.Warn("history truncated", "ticker", ticker, "pages", historyPageLimit)
	return out, nil
}

// cursorTotal reads TOTAL from the history.cursor block. A missing cursor
// means the first page was everything.
func cursorTotal(t table) int {
	if len(t.Data) == 0 {
		return 0
	}
	return int(toFloat64(t.value(t.Data[0], "TOTAL")))
}

// Sector is not published by ISS for shares.
func (c *Client) Sector(_ context.Context, _ string) (string, error) {
	return quotes.UnknownSector, nil
}
