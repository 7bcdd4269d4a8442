package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBankTransactionRepository implements BankTransactionRepository using GORM
type GormBankTransactionRepository struct {
	db *gorm.DB
}

// NewGormBankTransactionRepository creates a new GormBankTransactionRepository
func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

// FindByID finds a bank transaction by its ID
func (r *GormBankTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.BankTransaction, error) {
	var transaction ledger.BankTransaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

// FindByIDForTenant finds a bank transaction by ID within a tenant
func (r *GormBankTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.BankTransaction, error) {
	var transaction ledger.BankTransaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

// FindByTransactionNumber finds a bank transaction by its number within a tenant
func (r *GormBankTransactionRepository) FindByTransactionNumber(ctx context.Context, tenantID uuid.UUID, number string) (*ledger.BankTransaction, error) {
	var transaction ledger.BankTransaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND transaction_number = ?", tenantID, number).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

// FindUnmatched finds the unmatched transactions for a bank account in a
// date range, oldest first. These are the candidates for a reconciliation run.
func (r *GormBankTransactionRepository) FindUnmatched(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]*ledger.BankTransaction, error) {
	var transactions []*ledger.BankTransaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ? AND match_status = ? AND transaction_date >= ? AND transaction_date <= ?",
			tenantID, bankAccountID, ledger.MatchStatusUnmatched, from, to).
		Order("transaction_date ASC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// FindAllForTenant finds all bank transactions for a tenant with filtering
func (r *GormBankTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.BankTransactionFilter) ([]ledger.BankTransaction, error) {
	var transactions []ledger.BankTransaction
	query := r.db.WithContext(ctx).Model(&ledger.BankTransaction{}).
		Where("tenant_id = ?", tenantID)

	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.MatchStatus != nil {
		query = query.Where("match_status = ?", *filter.MatchStatus)
	}
	if filter.FromDate != nil {
		query = query.Where("transaction_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("transaction_date <= ?", *filter.ToDate)
	}
	if filter.Reference != nil {
		query = query.Where("reference = ?", *filter.Reference)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("transaction_number ILIKE ? OR reference ILIKE ? OR counterparty ILIKE ?", pattern, pattern, pattern)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, BankTransactionSortFields, "transaction_date")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("transaction_date DESC")
	}

	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// Save creates or updates a bank transaction
func (r *GormBankTransactionRepository) Save(ctx context.Context, transaction *ledger.BankTransaction) error {
	return r.db.WithContext(ctx).Save(transaction).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormBankTransactionRepository) SaveWithLock(ctx context.Context, transaction *ledger.BankTransaction) error {
	result := r.db.WithContext(ctx).
		Model(transaction).
		Where("id = ? AND version = ?", transaction.ID, transaction.Version-1).
		Updates(map[string]interface{}{
			"match_status":     transaction.MatchStatus,
			"matched_item_id":  transaction.MatchedItemID,
			"journal_entry_id": transaction.JournalEntryID,
			"description":      transaction.Description,
			"version":          transaction.Version,
			"updated_at":       transaction.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SaveAll saves a batch of transactions in one database transaction
func (r *GormBankTransactionRepository) SaveAll(ctx context.Context, transactions []*ledger.BankTransaction) error {
	if len(transactions) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, transaction := range transactions {
			if err := tx.Save(transaction).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormBankTransactionRepository implements BankTransactionRepository
var _ ledger.BankTransactionRepository = (*GormBankTransactionRepository)(nil)
