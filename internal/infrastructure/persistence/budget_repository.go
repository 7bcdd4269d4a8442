package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBudgetRepository implements BudgetRepository using GORM
type GormBudgetRepository struct {
	db *gorm.DB
}

// NewGormBudgetRepository creates a new GormBudgetRepository
func NewGormBudgetRepository(db *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: db}
}

// FindByID finds a budget by its ID
func (r *GormBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Budget, error) {
	var budget ledger.Budget
	if err := r.db.WithContext(ctx).First(&budget, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &budget, nil
}

// FindByIDForTenant finds a budget by ID within a tenant
func (r *GormBudgetRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Budget, error) {
	var budget ledger.Budget
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &budget, nil
}

// FindByAccountAndPeriod finds the budget for an account in a period
func (r *GormBudgetRepository) FindByAccountAndPeriod(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*ledger.Budget, error) {
	var budget ledger.Budget
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ? AND period_id = ?", tenantID, accountID, periodID).
		First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &budget, nil
}

// FindAllForTenant finds all budgets for a tenant with filtering
func (r *GormBudgetRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.BudgetFilter) ([]ledger.Budget, error) {
	var budgets []ledger.Budget
	query := r.db.WithContext(ctx).Model(&ledger.Budget{}).
		Where("tenant_id = ?", tenantID)

	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.PeriodID != nil {
		query = query.Where("period_id = ?", *filter.PeriodID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AlertLevel != nil {
		query = query.Where("alert_level = ?", *filter.AlertLevel)
	}
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, BudgetSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	if err := query.Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

// Save creates or updates a budget
func (r *GormBudgetRepository) Save(ctx context.Context, budget *ledger.Budget) error {
	return r.db.WithContext(ctx).Save(budget).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormBudgetRepository) SaveWithLock(ctx context.Context, budget *ledger.Budget) error {
	result := r.db.WithContext(ctx).
		Model(budget).
		Where("id = ? AND version = ?", budget.ID, budget.Version-1).
		Updates(map[string]interface{}{
			"name":               budget.Name,
			"total_amount":       budget.TotalAmount,
			"consumed_amount":    budget.ConsumedAmount,
			"committed_amount":   budget.CommittedAmount,
			"commitments":        budget.Commitments,
			"warning_threshold":  budget.WarningThreshold,
			"critical_threshold": budget.CriticalThreshold,
			"alert_level":        budget.AlertLevel,
			"revision_count":     budget.RevisionCount,
			"status":             budget.Status,
			"version":            budget.Version,
			"updated_at":         budget.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormBudgetRepository implements BudgetRepository
var _ ledger.BudgetRepository = (*GormBudgetRepository)(nil)
