package moex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	newsPageSize = 50
	newsMaxPages = 4
)

// tickerToNames maps tickers to Russian company names for news matching.
var tickerToNames = map[string][]string{
	"SBER": {"Сбербанк", "Сбер"},
	"GAZP": {"Газпром"},
	"LKOH": {"Лукойл", "ЛУКОЙЛ"},
	"GMKN": {"Норникель", "Норильский никель"},
	"NVTK": {"Новатэк", "НОВАТЭК"},
	"ROSN": {"Роснефть"},
	"YDEX": {"Яндекс"},
	"T":    {"Т-Банк", "ТКС"},
	"MTSS": {"МТС"},
	"MGNT": {"Магнит"},
	"PLZL": {"Полюс"},
	"CHMF": {"Северсталь"},
	"ALRS": {"Алроса", "АЛРОСА"},
	"SNGS": {"Сургутнефтегаз"},
	"VTBR": {"ВТБ"},
	"MOEX": {"Мосбиржа", "Московская биржа"},
	"TATN": {"Татнефть"},
	"NLMK": {"НЛМК"},
	"PHOR": {"ФосАгро"},
	"IRAO": {"Интер РАО"},
}

type siteNewsResponse struct {
	SiteNews table `json:"sitenews"`
}

// FetchRecentNews returns exchange news published within the last window,
// newest first.
func (c *Client) FetchRecentNews(ctx context.Context, window time.Duration) ([]NewsItem, error) {
	var all []NewsItem
	cutoff := c.now().Add(-window)

	for page := 0; page < newsMaxPages; page++ {
		q := url.Values{
			"lang":     {"ru"},
			"iss.meta": {"off"},
			"start":    {strconv.Itoa(page * newsPageSize)},
		}

		var resp siteNewsResponse
		if err := c.getJSON(ctx, "/iss/sitenews.json", q, &resp); err != nil {
			return nil, fmt.Errorf("news page %d: %w", page, err)
		}
		news := resp.SiteNews
		if news.index("id") < 0 || news.index("title") < 0 || news.index("published_at") < 0 {
			return nil, fmt.Errorf("unexpected news columns: %v", news.Columns)
		}

		stoppedEarly := false
		for _, row := range news.Data {
			pubStr, _ := news.value(row, "published_at").(string)
			published, err := time.ParseInLocation(time.DateTime, pubStr, c.now().Location())
			if err != nil {
				continue
			}
			if published.Before(cutoff) {
				stoppedEarly = true
				break
			}

			title, _ := news.value(row, "title").(string)
			all = append(all, NewsItem{
				ID:        int64(toFloat64(news.value(row, "id"))),
				Title:     title,
				Published: published,
			})
		}

		if stoppedEarly || len(news.Data) < newsPageSize {
			break
		}
	}

	return all, nil
}

// FilterNewsForTickers groups news by ticker, matching the ticker symbol or a
// known company name in the title.
func FilterNewsForTickers(news []NewsItem, tickers []string) map[string][]NewsItem {
	result := make(map[string][]NewsItem)

	for _, ticker := range tickers {
		ticker = strings.ToUpper(ticker)
		terms := tickerToNames[ticker]
		for _, item := range news {
			title := strings.ToUpper(item.Title)
			if containsWord(title, ticker) || containsAny(title, terms) {
				result[ticker] = append(result[ticker], item)
			}
		}
	}

	return result
}

func containsAny(title string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(title, strings.ToUpper(term)) {
			return true
		}
	}
	return false
}

// containsWord matches sym as a whole word so short tickers like "T" do not
// match every title.
func containsWord(title, sym string) bool {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r >= 'А' && r <= 'Я' || r == 'Ё')
	})
	for _, f := range fields {
		if f == sym {
			return true
		}
	}
	return false
}
