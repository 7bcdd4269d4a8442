package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReconciliationRepository implements ReconciliationRepository using GORM
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// FindByID finds a reconciliation by its ID
func (r *GormReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.BankReconciliation, error) {
	var reconciliation ledger.BankReconciliation
	if err := r.db.WithContext(ctx).First(&reconciliation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reconciliation, nil
}

// FindByIDForTenant finds a reconciliation by ID within a tenant
func (r *GormReconciliationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.BankReconciliation, error) {
	var reconciliation ledger.BankReconciliation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&reconciliation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reconciliation, nil
}

// FindOpenForBankAccount finds the open reconciliation for a bank account,
// if any. At most one reconciliation may be open per bank account.
func (r *GormReconciliationRepository) FindOpenForBankAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*ledger.BankReconciliation, error) {
	var reconciliation ledger.BankReconciliation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ? AND status = ?",
			tenantID, bankAccountID, ledger.ReconciliationStatusOpen).
		First(&reconciliation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reconciliation, nil
}

// FindAllForTenant finds all reconciliations for a tenant with filtering
func (r *GormReconciliationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.ReconciliationFilter) ([]ledger.BankReconciliation, error) {
	var reconciliations []ledger.BankReconciliation
	query := r.db.WithContext(ctx).Model(&ledger.BankReconciliation{}).
		Where("tenant_id = ?", tenantID)

	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PeriodID != nil {
		query = query.Where("period_id = ?", *filter.PeriodID)
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
		query = query.Order("statement_date DESC")
	}

	if err := query.Find(&reconciliations).Error; err != nil {
		return nil, err
	}
	return reconciliations, nil
}

// Save creates or updates a reconciliation
func (r *GormReconciliationRepository) Save(ctx context.Context, reconciliation *ledger.BankReconciliation) error {
	return r.db.WithContext(ctx).Save(reconciliation).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormReconciliationRepository) SaveWithLock(ctx context.Context, reconciliation *ledger.BankReconciliation) error {
	result := r.db.WithContext(ctx).
		Model(reconciliation).
		Where("id = ? AND version = ?", reconciliation.ID, reconciliation.Version-1).
		Updates(map[string]interface{}{
			"items":        reconciliation.Items,
			"status":       reconciliation.Status,
			"completed_at": reconciliation.CompletedAt,
			"completed_by": reconciliation.CompletedBy,
			"version":      reconciliation.Version,
			"updated_at":   reconciliation.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormReconciliationRepository implements ReconciliationRepository
var _ ledger.ReconciliationRepository = (*GormReconciliationRepository)(nil)
