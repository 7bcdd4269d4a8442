package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockAccountRepository is a mock implementation of ledger.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindWithAncestors(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*ledger.Account, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, parentID)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Count(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockPeriodRepository is a mock implementation of ledger.PeriodRepository
type MockPeriodRepository struct {
	mock.Mock
}

func (m *MockPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AccountingPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AccountingPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AccountingPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PeriodFilter) ([]ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.AccountingPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindOpenPeriods(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]ledger.AccountingPeriod), args.Error(1)
}

func (m *MockPeriodRepository) Save(ctx context.Context, period *ledger.AccountingPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPeriodRepository) SaveWithLock(ctx context.Context, period *ledger.AccountingPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

// MockJournalEntryRepository is a mock implementation of ledger.JournalEntryRepository
type MockJournalEntryRepository struct {
	mock.Mock
}

func (m *MockJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, entryNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) SavePosting(ctx context.Context, result *ledger.PostingResult, accounts map[uuid.UUID]*ledger.Account) error {
	args := m.Called(ctx, result, accounts)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) Count(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockExchangeRateRepository is a mock implementation of ledger.ExchangeRateRepository
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) FindRatesForRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*ledger.ExchangeRate, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).([]*ledger.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) FindLatestBefore(ctx context.Context, tenantID uuid.UUID, source, target valueobject.Currency, date time.Time) (*ledger.ExchangeRate, error) {
	args := m.Called(ctx, tenantID, source, target, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) Save(ctx context.Context, rate *ledger.ExchangeRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockExchangeRateRepository) SaveBatch(ctx context.Context, rates []*ledger.ExchangeRate) error {
	args := m.Called(ctx, rates)
	return args.Error(0)
}

// MockAdjustmentRepository is a mock implementation of ledger.AdjustmentRepository
type MockAdjustmentRepository struct {
	mock.Mock
}

func (m *MockAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.ExchangeRateAdjustment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.ExchangeRateAdjustment), args.Error(1)
}

func (m *MockAdjustmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.ExchangeRateAdjustment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.ExchangeRateAdjustment), args.Error(1)
}

func (m *MockAdjustmentRepository) FindByValuationDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]ledger.ExchangeRateAdjustment, error) {
	args := m.Called(ctx, tenantID, date)
	return args.Get(0).([]ledger.ExchangeRateAdjustment), args.Error(1)
}

func (m *MockAdjustmentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.AdjustmentFilter) ([]ledger.ExchangeRateAdjustment, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.ExchangeRateAdjustment), args.Error(1)
}

func (m *MockAdjustmentRepository) Save(ctx context.Context, adjustment *ledger.ExchangeRateAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

func (m *MockAdjustmentRepository) SaveWithLock(ctx context.Context, adjustment *ledger.ExchangeRateAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

// MockBankTransactionRepository is a mock implementation of ledger.BankTransactionRepository
type MockBankTransactionRepository struct {
	mock.Mock
}

func (m *MockBankTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.BankTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.BankTransaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindByTransactionNumber(ctx context.Context, tenantID uuid.UUID, number string) (*ledger.BankTransaction, error) {
	args := m.Called(ctx, tenantID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindUnmatched(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]*ledger.BankTransaction, error) {
	args := m.Called(ctx, tenantID, bankAccountID, from, to)
	return args.Get(0).([]*ledger.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.BankTransactionFilter) ([]ledger.BankTransaction, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) Save(ctx context.Context, transaction *ledger.BankTransaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockBankTransactionRepository) SaveWithLock(ctx context.Context, transaction *ledger.BankTransaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockBankTransactionRepository) SaveAll(ctx context.Context, transactions []*ledger.BankTransaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

// MockReconciliationRepository is a mock implementation of ledger.ReconciliationRepository
type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.BankReconciliation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.BankReconciliation), args.Error(1)
}

func (m *MockReconciliationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.BankReconciliation, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.BankReconciliation), args.Error(1)
}

func (m *MockReconciliationRepository) FindOpenForBankAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*ledger.BankReconciliation, error) {
	args := m.Called(ctx, tenantID, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.BankReconciliation), args.Error(1)
}

func (m *MockReconciliationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.ReconciliationFilter) ([]ledger.BankReconciliation, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.BankReconciliation), args.Error(1)
}

func (m *MockReconciliationRepository) Save(ctx context.Context, reconciliation *ledger.BankReconciliation) error {
	args := m.Called(ctx, reconciliation)
	return args.Error(0)
}

func (m *MockReconciliationRepository) SaveWithLock(ctx context.Context, reconciliation *ledger.BankReconciliation) error {
	args := m.Called(ctx, reconciliation)
	return args.Error(0)
}

// MockBudgetRepository is a mock implementation of ledger.BudgetRepository
type MockBudgetRepository struct {
	mock.Mock
}

func (m *MockBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Budget, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Budget), args.Error(1)
}

func (m *MockBudgetRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Budget, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Budget), args.Error(1)
}

func (m *MockBudgetRepository) FindByAccountAndPeriod(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*ledger.Budget, error) {
	args := m.Called(ctx, tenantID, accountID, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Budget), args.Error(1)
}

func (m *MockBudgetRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.BudgetFilter) ([]ledger.Budget, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.Budget), args.Error(1)
}

func (m *MockBudgetRepository) Save(ctx context.Context, budget *ledger.Budget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

func (m *MockBudgetRepository) SaveWithLock(ctx context.Context, budget *ledger.Budget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

// MockStatementImporter is a mock implementation of StatementImporter
type MockStatementImporter struct {
	mock.Mock
}

func (m *MockStatementImporter) Import(ctx context.Context, tenantID uuid.UUID, key string) ([]ledger.StatementLine, error) {
	args := m.Called(ctx, tenantID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.StatementLine), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Remember(ctx context.Context, key string, resultID uuid.UUID, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, resultID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Lookup(ctx context.Context, key string) (uuid.UUID, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// passthroughTxManager runs the scoped function directly; repository mocks
// record the calls, so there is nothing to commit or roll back.
type passthroughTxManager struct{}

func (passthroughTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type txScopeKey struct{}

// scopedTxManager counts its Do invocations and marks the scoped context so
// tests can check which repository writes ran inside the scope.
type scopedTxManager struct {
	calls int
}

func (m *scopedTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(context.WithValue(ctx, txScopeKey{}, m))
}

func (m *scopedTxManager) contains(ctx context.Context) bool {
	v, _ := ctx.Value(txScopeKey{}).(*scopedTxManager)
	return v == m
}
