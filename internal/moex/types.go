package moex

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type NewsItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Published time.Time `json:"published"`
}

// table is the columns+data block every ISS section is encoded as.
type table struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

func (t table) index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// value returns the cell of row in column col, or nil when absent.
func (t table) value(row []any, col string) any {
	i := t.index(col)
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
