package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Atomically runs fn inside a single database transaction. The transaction
// commits when fn returns nil and rolls back on error or panic.
func (r *Repository) Atomically(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Holdings

// GetHolding returns nil, nil when the ticker is not held.
func (r *Repository) GetHolding(ctx context.Context, ticker string) (*Holding, error) {
	var h Holding
	err := r.db.WithContext(ctx).Where("ticker = ?", ticker).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holding %s: %w", ticker, err)
	}
	return &h, nil
}

func (r *Repository) ListHoldings(ctx context.Context) ([]Holding, error) {
	var holdings []Holding
	if err := r.db.WithContext(ctx).Order("ticker ASC").Find(&holdings).Error; err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	return holdings, nil
}

// SaveHolding inserts the holding or replaces shares and average cost of the
// existing row.
func (r *Repository) SaveHolding(ctx context.Context, h *Holding) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{"shares", "average_cost", "updated_at"}),
	}).Create(h).Error
	if err != nil {
		return fmt.Errorf("save holding %s: %w", h.Ticker, err)
	}
	return nil
}

func (r *Repository) DeleteHolding(ctx context.Context, ticker string) error {
	res := r.db.WithContext(ctx).Where("ticker = ?", ticker).Delete(&Holding{})
	if res.Error != nil {
		return fmt.Errorf("delete holding %s: %w", ticker, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete holding %s: %w", ticker, ErrNotFound)
	}
	return nil
}

// Transactions

func (r *Repository) AppendTransaction(ctx context.Context, t *Transaction) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Alerts

func (r *Repository) CreatePriceAlert(ctx context.Context, a *PriceAlert) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create price alert: %w", err)
	}
	return nil
}

func (r *Repository) ListPriceAlerts(ctx context.Context) ([]PriceAlert, error) {
	var alerts []PriceAlert
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list price alerts: %w", err)
	}
	return alerts, nil
}

func (r *Repository) CreatePercentageAlert(ctx context.Context, a *PercentageAlert) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create percentage alert: %w", err)
	}
	return nil
}

func (r *Repository) ListPercentageAlerts(ctx context.Context) ([]PercentageAlert, error) {
	var alerts []PercentageAlert
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list percentage alerts: %w", err)
	}
	return alerts, nil
}

// UpdatePercentageBaseline re-arms a single percentage alert row.
func (r *Repository) UpdatePercentageBaseline(ctx context.Context, id uint, baseline decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&PercentageAlert{}).
		Where("id = ?", id).
		Update("baseline_price", baseline)
	if res.Error != nil {
		return fmt.Errorf("update percentage alert %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update percentage alert %d: %w", id, ErrNotFound)
	}
	return nil
}

// Performance

// UpsertPerformance writes the sample for its date, replacing any earlier
// sample on the same date.
func (r *Repository) UpsertPerformance(ctx context.Context, s *PerformanceSample) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_value", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("upsert performance %s: %w", s.Date, err)
	}
	return nil
}

func (r *Repository) ListPerformance(ctx context.Context) ([]PerformanceSample, error) {
	var samples []PerformanceSample
	if err := r.db.WithContext(ctx).Order("date ASC").Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("list performance: %w", err)
	}
	return samples, nil
}

// Dividends

func (r *Repository) AddDividend(ctx context.Context, d *Dividend) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("add dividend: %w", err)
	}
	return nil
}

func (r *Repository) ListDividends(ctx context.Context) ([]Dividend, error) {
	var dividends []Dividend
	if err := r.db.WithContext(ctx).Order("date ASC, id ASC").Find(&dividends).Error; err != nil {
		return nil, fmt.Errorf("list dividends: %w", err)
	}
	return dividends, nil
}
