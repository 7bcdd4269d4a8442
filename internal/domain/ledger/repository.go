package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AccountFilter defines filtering options for account queries
type AccountFilter struct {
	shared.Filter
	Type     *AccountType          // Filter by account type
	ParentID *uuid.UUID            // Filter by parent account
	Currency *valueobject.Currency // Filter by denomination currency
	IsActive *bool                 // Filter by active flag
	LeafOnly bool                  // Only accounts without children
}

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByIDForTenant finds an account by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by its code for a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)

	// FindAllForTenant finds all accounts for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) ([]Account, error)

	// FindWithAncestors loads the given accounts together with every
	// ancestor up to the roots, keyed by id. This is the working set a
	// posting needs for balance propagation.
	FindWithAncestors(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Account, error)

	// FindChildren finds the direct children of an account
	FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]Account, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, account *Account) error

	// Count counts accounts matching the filter
	Count(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) (int64, error)
}

// PeriodFilter defines filtering options for period queries
type PeriodFilter struct {
	shared.Filter
	FiscalYear *int          // Filter by fiscal year
	Status     *PeriodStatus // Filter by lifecycle status
	Type       *PeriodType   // Filter by period type
}

// PeriodRepository defines the interface for accounting period persistence
type PeriodRepository interface {
	// FindByID finds a period by ID
	FindByID(ctx context.Context, id uuid.UUID) (*AccountingPeriod, error)

	// FindByIDForTenant finds a period by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AccountingPeriod, error)

	// FindByDate finds the period containing the given date
	FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*AccountingPeriod, error)

	// FindAllForTenant finds all periods for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PeriodFilter) ([]AccountingPeriod, error)

	// FindOpenPeriods finds periods still accepting postings
	FindOpenPeriods(ctx context.Context, tenantID uuid.UUID) ([]AccountingPeriod, error)

	// Save creates or updates a period
	Save(ctx context.Context, period *AccountingPeriod) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, period *AccountingPeriod) error
}

// JournalEntryFilter defines filtering options for journal entry queries
type JournalEntryFilter struct {
	shared.Filter
	PeriodID   *uuid.UUID       // Filter by period
	Status     *EntryStatus     // Filter by status
	SourceType *EntrySourceType // Filter by originating subsystem
	SourceID   *uuid.UUID       // Filter by source document
	FromDate   *time.Time       // Filter by entry date range start
	ToDate     *time.Time       // Filter by entry date range end
	AccountID  *uuid.UUID       // Filter by an account appearing on a line
}

// JournalEntryRepository defines the interface for journal entry persistence
type JournalEntryRepository interface {
	// FindByID finds a journal entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*JournalEntry, error)

	// FindByIDForTenant finds a journal entry by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)

	// FindByEntryNumber finds an entry by its number for a tenant
	FindByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (*JournalEntry, error)

	// FindAllForTenant finds all entries for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter JournalEntryFilter) ([]JournalEntry, error)

	// Save creates or updates a journal entry
	Save(ctx context.Context, entry *JournalEntry) error

	// SavePosting persists a posting result atomically: the journal entry,
	// the side-effect entries in the result's Updated set, and every touched
	// account's balances with version checks. A version mismatch on any
	// account fails the whole unit.
	SavePosting(ctx context.Context, result *PostingResult, accounts map[uuid.UUID]*Account) error

	// Count counts entries matching the filter
	Count(ctx context.Context, tenantID uuid.UUID, filter JournalEntryFilter) (int64, error)
}

// ExchangeRateRepository defines the interface for exchange rate persistence
type ExchangeRateRepository interface {
	// FindRatesForRange loads all rates into the base currency dated inside
	// [from, to], ordered by date
	FindRatesForRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*ExchangeRate, error)

	// FindLatestBefore finds the latest rate for a currency pair dated on
	// or before the given date
	FindLatestBefore(ctx context.Context, tenantID uuid.UUID, source, target valueobject.Currency, date time.Time) (*ExchangeRate, error)

	// Save creates or updates a rate; one row per (pair, date)
	Save(ctx context.Context, rate *ExchangeRate) error

	// SaveBatch upserts a batch of rates, e.g. a daily feed sync
	SaveBatch(ctx context.Context, rates []*ExchangeRate) error
}

// AdjustmentFilter defines filtering options for revaluation queries
type AdjustmentFilter struct {
	shared.Filter
	Status   *AdjustmentStatus // Filter by workflow status
	PeriodID *uuid.UUID        // Filter by period
	FromDate *time.Time        // Filter by valuation date range start
	ToDate   *time.Time        // Filter by valuation date range end
}

// AdjustmentRepository defines the interface for exchange rate adjustment persistence
type AdjustmentRepository interface {
	// FindByID finds an adjustment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ExchangeRateAdjustment, error)

	// FindByIDForTenant finds an adjustment by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ExchangeRateAdjustment, error)

	// FindByValuationDate finds the adjustments run at a valuation date
	FindByValuationDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]ExchangeRateAdjustment, error)

	// FindAllForTenant finds all adjustments for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter AdjustmentFilter) ([]ExchangeRateAdjustment, error)

	// Save creates or updates an adjustment
	Save(ctx context.Context, adjustment *ExchangeRateAdjustment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, adjustment *ExchangeRateAdjustment) error
}

// BankTransactionFilter defines filtering options for bank transaction queries
type BankTransactionFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID           // Filter by bank account
	Type          *BankTransactionType // Filter by movement type
	MatchStatus   *MatchStatus         // Filter by reconciliation state
	FromDate      *time.Time           // Filter by transaction date range start
	ToDate        *time.Time           // Filter by transaction date range end
	Reference     *string              // Filter by exact reference
}

// BankTransactionRepository defines the interface for bank transaction persistence
type BankTransactionRepository interface {
	// FindByID finds a bank transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*BankTransaction, error)

	// FindByIDForTenant finds a bank transaction by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankTransaction, error)

	// FindByTransactionNumber finds by transaction number for a tenant
	FindByTransactionNumber(ctx context.Context, tenantID uuid.UUID, number string) (*BankTransaction, error)

	// FindUnmatched finds the unmatched transactions for a bank account in
	// a date range. These are the candidates for a reconciliation run.
	FindUnmatched(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]*BankTransaction, error)

	// FindAllForTenant finds all transactions for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BankTransactionFilter) ([]BankTransaction, error)

	// Save creates or updates a bank transaction
	Save(ctx context.Context, transaction *BankTransaction) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, transaction *BankTransaction) error

	// SaveAll saves a batch of transactions in one transaction
	SaveAll(ctx context.Context, transactions []*BankTransaction) error
}

// ReconciliationFilter defines filtering options for reconciliation queries
type ReconciliationFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID            // Filter by bank account
	Status        *ReconciliationStatus // Filter by status
	PeriodID      *uuid.UUID            // Filter by period
}

// ReconciliationRepository defines the interface for reconciliation persistence
type ReconciliationRepository interface {
	// FindByID finds a reconciliation by ID
	FindByID(ctx context.Context, id uuid.UUID) (*BankReconciliation, error)

	// FindByIDForTenant finds a reconciliation by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankReconciliation, error)

	// FindOpenForBankAccount finds the open reconciliation for a bank
	// account, if any; at most one may be open per account
	FindOpenForBankAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*BankReconciliation, error)

	// FindAllForTenant finds all reconciliations for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ReconciliationFilter) ([]BankReconciliation, error)

	// Save creates or updates a reconciliation
	Save(ctx context.Context, reconciliation *BankReconciliation) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, reconciliation *BankReconciliation) error
}

// BudgetFilter defines filtering options for budget queries
type BudgetFilter struct {
	shared.Filter
	AccountID  *uuid.UUID        // Filter by budgeted account
	PeriodID   *uuid.UUID        // Filter by period
	Status     *BudgetStatus     // Filter by lifecycle status
	AlertLevel *BudgetAlertLevel // Filter by alert level
}

// BudgetRepository defines the interface for budget persistence
type BudgetRepository interface {
	// FindByID finds a budget by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Budget, error)

	// FindByIDForTenant finds a budget by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Budget, error)

	// FindByAccountAndPeriod finds the budget for an account in a period
	FindByAccountAndPeriod(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*Budget, error)

	// FindAllForTenant finds all budgets for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BudgetFilter) ([]Budget, error)

	// Save creates or updates a budget
	Save(ctx context.Context, budget *Budget) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, budget *Budget) error
}
