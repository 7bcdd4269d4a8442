package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExchangeRateRepository implements ExchangeRateRepository using GORM
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// rateConflictColumns is the natural key of a rate row: one row per currency
// pair per date per tenant.
var rateConflictColumns = []clause.Column{
	{Name: "tenant_id"},
	{Name: "source_currency"},
	{Name: "target_currency"},
	{Name: "rate_date"},
}

// FindRatesForRange loads all rates into the base currency dated inside [from, to]
func (r *GormExchangeRateRepository) FindRatesForRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*ledger.ExchangeRate, error) {
	var rates []*ledger.ExchangeRate
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND target_currency = ? AND rate_date >= ? AND rate_date <= ?",
			tenantID, valueobject.DefaultCurrency, from, to).
		Order("rate_date ASC").
		Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

// FindLatestBefore finds the latest rate for a currency pair dated on or before the given date
func (r *GormExchangeRateRepository) FindLatestBefore(ctx context.Context, tenantID uuid.UUID, source, target valueobject.Currency, date time.Time) (*ledger.ExchangeRate, error) {
	var rate ledger.ExchangeRate
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_currency = ? AND target_currency = ? AND rate_date <= ?",
			tenantID, source, target, date).
		Order("rate_date DESC").
		First(&rate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

// Save upserts a rate on its natural key, so re-publishing a day's rate
// overwrites the previous value instead of duplicating the row
func (r *GormExchangeRateRepository) Save(ctx context.Context, rate *ledger.ExchangeRate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: rateConflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{
				"buying_rate", "selling_rate", "effective_rate", "updated_at",
			}),
		}).
		Create(rate).Error
}

// SaveBatch upserts a batch of rates, e.g. a daily feed sync
func (r *GormExchangeRateRepository) SaveBatch(ctx context.Context, rates []*ledger.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: rateConflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{
				"buying_rate", "selling_rate", "effective_rate", "updated_at",
			}),
		}).
		Create(&rates).Error
}

// Ensure GormExchangeRateRepository implements ExchangeRateRepository
var _ ledger.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)
