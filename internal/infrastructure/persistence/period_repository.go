package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPeriodRepository implements PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// FindByID finds a period by its ID
func (r *GormPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	var period ledger.AccountingPeriod
	if err := r.db.WithContext(ctx).First(&period, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}

// FindByIDForTenant finds a period by ID within a tenant
func (r *GormPeriodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	var period ledger.AccountingPeriod
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}

// FindByDate finds the period whose date range contains the given date
func (r *GormPeriodRepository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*ledger.AccountingPeriod, error) {
	var period ledger.AccountingPeriod
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantID, date, date).
		Order("start_date DESC").
		First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}

// FindAllForTenant finds all periods for a tenant with filtering
func (r *GormPeriodRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PeriodFilter) ([]ledger.AccountingPeriod, error) {
	var periods []ledger.AccountingPeriod
	query := r.db.WithContext(ctx).Model(&ledger.AccountingPeriod{}).
		Where("tenant_id = ?", tenantID)

	if filter.FiscalYear != nil {
		query = query.Where("fiscal_year = ?", *filter.FiscalYear)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("period_type = ?", *filter.Type)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("start_date ASC")
	}

	if err := query.Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

// FindOpenPeriods finds the periods still accepting postings
func (r *GormPeriodRepository) FindOpenPeriods(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountingPeriod, error) {
	var periods []ledger.AccountingPeriod
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, ledger.PeriodStatusOpen).
		Order("start_date ASC").
		Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

// Save creates or updates a period
func (r *GormPeriodRepository) Save(ctx context.Context, period *ledger.AccountingPeriod) error {
	return sessionDB(ctx, r.db).WithContext(ctx).Save(period).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormPeriodRepository) SaveWithLock(ctx context.Context, period *ledger.AccountingPeriod) error {
	result := sessionDB(ctx, r.db).WithContext(ctx).
		Model(period).
		Where("id = ? AND version = ?", period.ID, period.Version-1).
		Updates(map[string]interface{}{
			"status":             period.Status,
			"previous_period_id": period.PreviousPeriodID,
			"next_period_id":     period.NextPeriodID,
			"closing_entry_id":   period.ClosingEntryID,
			"opening_entry_id":   period.OpeningEntryID,
			"closed_by":          period.ClosedBy,
			"closed_at":          period.ClosedAt,
			"close_notes":        period.CloseNotes,
			"version":            period.Version,
			"updated_at":         period.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormPeriodRepository implements PeriodRepository
var _ ledger.PeriodRepository = (*GormPeriodRepository)(nil)
