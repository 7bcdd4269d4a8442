package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormJournalEntryRepository implements JournalEntryRepository using GORM
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// FindByID finds a journal entry by its ID
func (r *GormJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	var entry ledger.JournalEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindByIDForTenant finds a journal entry by ID within a tenant
func (r *GormJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var entry ledger.JournalEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindByEntryNumber finds a journal entry by its number within a tenant
func (r *GormJournalEntryRepository) FindByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (*ledger.JournalEntry, error) {
	var entry ledger.JournalEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entry_number = ?", tenantID, entryNumber).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindAllForTenant finds all journal entries for a tenant with filtering
func (r *GormJournalEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	var entries []ledger.JournalEntry
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.JournalEntry{}).
			Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Save creates or updates a journal entry
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	return sessionDB(ctx, r.db).WithContext(ctx).Save(entry).Error
}

// SavePosting persists a posting result as one atomic unit: the journal
// entry, any side-effect entries it updated (a reversal flips its original's
// status), plus the new balances of every touched account, each guarded by a
// version check. If any account was modified since it was loaded the whole
// transaction rolls back with a concurrency conflict, and the caller is
// expected to reload and recompute.
func (r *GormJournalEntryRepository) SavePosting(ctx context.Context, result *ledger.PostingResult, accounts map[uuid.UUID]*ledger.Account) error {
	return sessionDB(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(result.Entry).Error; err != nil {
			return err
		}
		for _, updated := range result.Updated {
			if err := tx.Save(updated).Error; err != nil {
				return err
			}
		}

		for _, delta := range result.Deltas {
			account, ok := accounts[delta.AccountID]
			if !ok {
				return shared.NewDomainError("ACCOUNT_NOT_LOADED",
					fmt.Sprintf("Account %s touched by posting is not in the working set", delta.AccountID))
			}

			res := tx.Model(account).
				Where("id = ? AND version = ?", account.ID, account.Version-1).
				Updates(map[string]interface{}{
					"debit_balance":  account.DebitBalance,
					"credit_balance": account.CreditBalance,
					"net_balance":    account.NetBalance,
					"base_balance":   account.BaseBalance,
					"version":        account.Version,
					"updated_at":     account.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
		}

		return nil
	})
}

// Count counts journal entries matching the filter
func (r *GormJournalEntryRepository) Count(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&ledger.JournalEntry{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormJournalEntryRepository) applyFilter(query *gorm.DB, filter ledger.JournalEntryFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, JournalEntrySortFields, "entry_date")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("entry_date DESC, entry_number DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormJournalEntryRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.JournalEntryFilter) *gorm.DB {
	if filter.PeriodID != nil {
		query = query.Where("period_id = ?", *filter.PeriodID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SourceType != nil {
		query = query.Where("source_type = ?", *filter.SourceType)
	}
	if filter.SourceID != nil {
		query = query.Where("source_id = ?", *filter.SourceID)
	}
	if filter.FromDate != nil {
		query = query.Where("entry_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("entry_date <= ?", *filter.ToDate)
	}
	if filter.AccountID != nil {
		// Lines are stored as jsonb; match on the account id inside any line.
		query = query.Where("lines @> ?", fmt.Sprintf(`[{"account_id":%q}]`, filter.AccountID.String()))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("entry_number ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	return query
}

// Ensure GormJournalEntryRepository implements JournalEntryRepository
var _ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
