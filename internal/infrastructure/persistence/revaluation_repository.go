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

// GormAdjustmentRepository implements AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// FindByID finds an adjustment by its ID
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.ExchangeRateAdjustment, error) {
	var adjustment ledger.ExchangeRateAdjustment
	if err := r.db.WithContext(ctx).First(&adjustment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &adjustment, nil
}

// FindByIDForTenant finds an adjustment by ID within a tenant
func (r *GormAdjustmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.ExchangeRateAdjustment, error) {
	var adjustment ledger.ExchangeRateAdjustment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&adjustment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &adjustment, nil
}

// FindByValuationDate finds the adjustments run at a valuation date
func (r *GormAdjustmentRepository) FindByValuationDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]ledger.ExchangeRateAdjustment, error) {
	var adjustments []ledger.ExchangeRateAdjustment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND valuation_date = ?", tenantID, date).
		Order("created_at ASC").
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// FindAllForTenant finds all adjustments for a tenant with filtering
func (r *GormAdjustmentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.AdjustmentFilter) ([]ledger.ExchangeRateAdjustment, error) {
	var adjustments []ledger.ExchangeRateAdjustment
	query := r.db.WithContext(ctx).Model(&ledger.ExchangeRateAdjustment{}).
		Where("tenant_id = ?", tenantID)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PeriodID != nil {
		query = query.Where("period_id = ?", *filter.PeriodID)
	}
	if filter.FromDate != nil {
		query = query.Where("valuation_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("valuation_date <= ?", *filter.ToDate)
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
		query = query.Order("valuation_date DESC")
	}

	if err := query.Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// Save creates or updates an adjustment
func (r *GormAdjustmentRepository) Save(ctx context.Context, adjustment *ledger.ExchangeRateAdjustment) error {
	return sessionDB(ctx, r.db).WithContext(ctx).Save(adjustment).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormAdjustmentRepository) SaveWithLock(ctx context.Context, adjustment *ledger.ExchangeRateAdjustment) error {
	result := sessionDB(ctx, r.db).WithContext(ctx).
		Model(adjustment).
		Where("id = ? AND version = ?", adjustment.ID, adjustment.Version-1).
		Updates(map[string]interface{}{
			"status":           adjustment.Status,
			"lines":            adjustment.Lines,
			"journal_entry_id": adjustment.JournalEntryID,
			"approved_by":      adjustment.ApprovedBy,
			"approved_at":      adjustment.ApprovedAt,
			"version":          adjustment.Version,
			"updated_at":       adjustment.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormAdjustmentRepository implements AdjustmentRepository
var _ ledger.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
