package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is an open position. A row exists only while Shares > 0.
type Holding struct {
	Ticker      string          `gorm:"primaryKey" json:"ticker"`
	Shares      decimal.Decimal `gorm:"type:text;not null" json:"shares"`
	AverageCost decimal.Decimal `gorm:"type:text;not null" json:"average_cost"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Transaction is an append-only ledger entry. SharesDelta is positive for
// buys and negative for sells.
type Transaction struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Ticker      string          `gorm:"index;not null" json:"ticker"`
	SharesDelta decimal.Decimal `gorm:"type:text;not null" json:"shares_delta"`
	Price       decimal.Decimal `gorm:"type:text;not null" json:"price"`
	Timestamp   time.Time       `gorm:"not null" json:"timestamp"`
}

type Direction string

const (
	DirectionAbove Direction = "ABOVE"
	DirectionBelow Direction = "BELOW"
)

type PriceAlert struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Ticker    string          `gorm:"index;not null" json:"ticker"`
	Threshold decimal.Decimal `gorm:"type:text;not null" json:"threshold"`
	Direction Direction       `gorm:"not null" json:"direction"`
}

type PercentageAlert struct {
	ID               uint            `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Ticker           string          `gorm:"index;not null" json:"ticker"`
	PercentageChange decimal.Decimal `gorm:"type:text;not null" json:"percentage_change"`
	BaselinePrice    decimal.Decimal `gorm:"type:text;not null" json:"baseline_price"`
}

// PerformanceSample is the portfolio value on one calendar date (YYYY-MM-DD).
type PerformanceSample struct {
	Date       string          `gorm:"primaryKey" json:"date"`
	TotalValue decimal.Decimal `gorm:"type:text;not null" json:"total_value"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (PerformanceSample) TableName() string {
	return "performance"
}

type Dividend struct {
	ID     uint            `gorm:"primarykey" json:"id"`
	Ticker string          `gorm:"index;not null" json:"ticker"`
	Amount decimal.Decimal `gorm:"type:text;not null" json:"amount"`
	Date   string          `gorm:"not null" json:"date"`
}
