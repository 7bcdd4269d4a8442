package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type revaluationFixture struct {
	service        *RevaluationService
	adjustmentRepo *MockAdjustmentRepository
	accountRepo    *MockAccountRepository
	periodRepo     *MockPeriodRepository
	rateRepo       *MockExchangeRateRepository
	entryRepo      *MockJournalEntryRepository
	bankTxRepo     *MockBankTransactionRepository
}

func newRevaluationFixture() *revaluationFixture {
	f := &revaluationFixture{
		adjustmentRepo: new(MockAdjustmentRepository),
		accountRepo:    new(MockAccountRepository),
		periodRepo:     new(MockPeriodRepository),
		rateRepo:       new(MockExchangeRateRepository),
		entryRepo:      new(MockJournalEntryRepository),
		bankTxRepo:     new(MockBankTransactionRepository),
	}
	f.service = NewRevaluationService(
		f.adjustmentRepo, f.accountRepo, f.periodRepo, f.rateRepo, f.entryRepo, f.bankTxRepo,
		ledger.NewRevaluationService(ledger.NewPostingService()), passthroughTxManager{}, nil,
	)
	return f
}

// appUSDAccount builds a dollar receivable carried at an old rate: 1000 USD
// booked at 30.00 gives a 30000 TRY carrying value.
func appUSDAccount(t *testing.T, tenantID uuid.UUID) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(tenantID, "120.USD", "Receivables USD", ledger.AccountTypeAsset, valueobject.USD, nil)
	assert.NoError(t, err)
	account.NetBalance = decimal.NewFromInt(1000)
	account.DebitBalance = decimal.NewFromInt(1000)
	account.BaseBalance = decimal.NewFromInt(30000)
	return account
}

func appUSDRate(t *testing.T, tenantID uuid.UUID, day int, effective int64) *ledger.ExchangeRate {
	t.Helper()
	rate, err := ledger.NewExchangeRate(
		tenantID, appTestDate(day), valueobject.USD, valueobject.TRY,
		decimal.NewFromInt(effective), decimal.NewFromInt(effective), decimal.NewFromInt(effective),
	)
	assert.NoError(t, err)
	return rate
}

func TestRevaluationService_ComputeRevaluation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("computes a gain when the rate moved up", func(t *testing.T) {
		f := newRevaluationFixture()
		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)
		gain := appTestAccount(t, tenantID, "646", ledger.AccountTypeRevenue)
		loss := appTestAccount(t, tenantID, "656", ledger.AccountTypeExpense)

		f.periodRepo.On("FindByDate", mock.Anything, tenantID, appTestDate(31)).Return(period, nil)
		f.accountRepo.On("FindAllForTenant", mock.Anything, tenantID, ledger.AccountFilter{}).
			Return([]ledger.Account{*usd, *gain, *loss}, nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{appUSDRate(t, tenantID, 31, 32)}, nil)
		f.adjustmentRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.service.ComputeRevaluation(ctx, tenantID, ComputeRevaluationRequest{
			AdjustmentNumber: "ADJ-2025-001",
			ValuationDate:    appTestDate(31),
			GainAccountID:    gain.ID,
			LossAccountID:    loss.ID,
		})
		assert.NoError(t, err)
		assert.Equal(t, string(ledger.AdjustmentStatusDraft), resp.Status)
		assert.Len(t, resp.Lines, 1)
		assert.True(t, resp.Lines[0].BaseDelta.Equal(decimal.NewFromInt(2000)))
		assert.True(t, resp.NetGainLoss.Equal(decimal.NewFromInt(2000)))
		f.adjustmentRepo.AssertExpectations(t)
	})

	t.Run("records a no-op run with no lines", func(t *testing.T) {
		f := newRevaluationFixture()
		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)
		usd.BaseBalance = decimal.NewFromInt(32000) // already carried at 32.00

		f.periodRepo.On("FindByDate", mock.Anything, tenantID, appTestDate(31)).Return(period, nil)
		f.accountRepo.On("FindAllForTenant", mock.Anything, tenantID, ledger.AccountFilter{}).
			Return([]ledger.Account{*usd}, nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{appUSDRate(t, tenantID, 31, 32)}, nil)
		f.adjustmentRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.service.ComputeRevaluation(ctx, tenantID, ComputeRevaluationRequest{
			AdjustmentNumber: "ADJ-2025-002",
			ValuationDate:    appTestDate(31),
			GainAccountID:    uuid.New(),
			LossAccountID:    uuid.New(),
		})
		assert.NoError(t, err)
		assert.Empty(t, resp.Lines)
		assert.True(t, resp.NetGainLoss.IsZero())
		f.adjustmentRepo.AssertExpectations(t)
	})

	t.Run("limits the run to the requested accounts", func(t *testing.T) {
		f := newRevaluationFixture()
		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)
		other, err := ledger.NewAccount(tenantID, "121.USD", "Bank USD", ledger.AccountTypeAsset, valueobject.USD, nil)
		assert.NoError(t, err)
		other.NetBalance = decimal.NewFromInt(500)
		other.DebitBalance = decimal.NewFromInt(500)
		other.BaseBalance = decimal.NewFromInt(15000)

		f.periodRepo.On("FindByDate", mock.Anything, tenantID, appTestDate(31)).Return(period, nil)
		f.accountRepo.On("FindAllForTenant", mock.Anything, tenantID, ledger.AccountFilter{}).
			Return([]ledger.Account{*usd, *other}, nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{appUSDRate(t, tenantID, 31, 32)}, nil)
		f.adjustmentRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.service.ComputeRevaluation(ctx, tenantID, ComputeRevaluationRequest{
			AdjustmentNumber: "ADJ-2025-004",
			ValuationDate:    appTestDate(31),
			GainAccountID:    uuid.New(),
			LossAccountID:    uuid.New(),
			AccountIDs:       []uuid.UUID{other.ID},
		})
		assert.NoError(t, err)
		assert.Len(t, resp.Lines, 1)
		assert.Equal(t, other.ID, resp.Lines[0].AccountID)
		assert.Equal(t, string(ledger.ValuationPeriodEnd), resp.ValuationType)
	})

	t.Run("resolves a transaction scope through its journal entry", func(t *testing.T) {
		f := newRevaluationFixture()
		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)
		other, err := ledger.NewAccount(tenantID, "121.USD", "Bank USD", ledger.AccountTypeAsset, valueobject.USD, nil)
		assert.NoError(t, err)
		other.NetBalance = decimal.NewFromInt(500)
		other.DebitBalance = decimal.NewFromInt(500)
		other.BaseBalance = decimal.NewFromInt(15000)

		bankTx, err := ledger.NewBankTransaction(
			tenantID, "BTX-900", uuid.New(), ledger.BankTransactionDeposit,
			appTestDate(10), time.Time{}, valueobject.NewMoneyTRY(decimal.NewFromInt(500)), "", "Acme Ltd",
		)
		assert.NoError(t, err)
		entry := &ledger.JournalEntry{
			Lines: ledger.JournalLines{{AccountID: usd.ID}},
		}
		entry.TenantAggregateRoot = shared.NewTenantAggregateRoot(tenantID)
		assert.NoError(t, bankTx.AttachJournalEntry(entry.ID, valueobject.NewMoneyTRY(decimal.NewFromInt(500))))

		f.periodRepo.On("FindByDate", mock.Anything, tenantID, appTestDate(31)).Return(period, nil)
		f.accountRepo.On("FindAllForTenant", mock.Anything, tenantID, ledger.AccountFilter{}).
			Return([]ledger.Account{*usd, *other}, nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{appUSDRate(t, tenantID, 31, 32)}, nil)
		f.bankTxRepo.On("FindByIDForTenant", mock.Anything, tenantID, bankTx.ID).Return(bankTx, nil)
		f.entryRepo.On("FindByIDForTenant", mock.Anything, tenantID, entry.ID).Return(entry, nil)
		f.adjustmentRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.service.ComputeRevaluation(ctx, tenantID, ComputeRevaluationRequest{
			AdjustmentNumber: "ADJ-2025-005",
			ValuationDate:    appTestDate(31),
			GainAccountID:    uuid.New(),
			LossAccountID:    uuid.New(),
			TransactionIDs:   []uuid.UUID{bankTx.ID},
		})
		assert.NoError(t, err)
		assert.Len(t, resp.Lines, 1)
		assert.Equal(t, usd.ID, resp.Lines[0].AccountID)
		assert.Equal(t, string(ledger.ValuationTransaction), resp.ValuationType)
		f.bankTxRepo.AssertExpectations(t)
	})

	t.Run("rejects a transaction scope without a journal entry", func(t *testing.T) {
		f := newRevaluationFixture()
		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)

		bankTx, err := ledger.NewBankTransaction(
			tenantID, "BTX-901", uuid.New(), ledger.BankTransactionDeposit,
			appTestDate(10), time.Time{}, valueobject.NewMoneyTRY(decimal.NewFromInt(500)), "", "Acme Ltd",
		)
		assert.NoError(t, err)

		f.periodRepo.On("FindByDate", mock.Anything, tenantID, appTestDate(31)).Return(period, nil)
		f.accountRepo.On("FindAllForTenant", mock.Anything, tenantID, ledger.AccountFilter{}).
			Return([]ledger.Account{*usd}, nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{}, nil)
		f.bankTxRepo.On("FindByIDForTenant", mock.Anything, tenantID, bankTx.ID).Return(bankTx, nil)

		_, err = f.service.ComputeRevaluation(ctx, tenantID, ComputeRevaluationRequest{
			AdjustmentNumber: "ADJ-2025-006",
			ValuationDate:    appTestDate(31),
			GainAccountID:    uuid.New(),
			LossAccountID:    uuid.New(),
			TransactionIDs:   []uuid.UUID{bankTx.ID},
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no journal entry")
		f.adjustmentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects mixing account and transaction scopes", func(t *testing.T) {
		f := newRevaluationFixture()
		period := appTestPeriod(t, tenantID)

		f.periodRepo.On("FindByDate", mock.Anything, tenantID, appTestDate(31)).Return(period, nil)
		f.accountRepo.On("FindAllForTenant", mock.Anything, tenantID, ledger.AccountFilter{}).
			Return([]ledger.Account{}, nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{}, nil)

		_, err := f.service.ComputeRevaluation(ctx, tenantID, ComputeRevaluationRequest{
			AdjustmentNumber: "ADJ-2025-007",
			ValuationDate:    appTestDate(31),
			GainAccountID:    uuid.New(),
			LossAccountID:    uuid.New(),
			AccountIDs:       []uuid.UUID{uuid.New()},
			TransactionIDs:   []uuid.UUID{uuid.New()},
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not both")
	})

	t.Run("fails when no period covers the valuation date", func(t *testing.T) {
		f := newRevaluationFixture()
		f.periodRepo.On("FindByDate", mock.Anything, tenantID, mock.Anything).Return(nil, nil)

		_, err := f.service.ComputeRevaluation(ctx, tenantID, ComputeRevaluationRequest{
			AdjustmentNumber: "ADJ-2025-003",
			ValuationDate:    appTestDate(15),
			GainAccountID:    uuid.New(),
			LossAccountID:    uuid.New(),
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "No accounting period covers valuation date")
	})
}

func TestRevaluationService_JournalizeAdjustment(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	computeDraft := func(t *testing.T, period *ledger.AccountingPeriod, usd, gain, loss *ledger.Account) *ledger.ExchangeRateAdjustment {
		t.Helper()
		adj, err := ledger.NewRevaluationService(ledger.NewPostingService()).Compute(ledger.RevaluationInput{
			TenantID:         tenantID,
			AdjustmentNumber: "ADJ-2025-001",
			ValuationDate:    appTestDate(31),
			Period:           period,
			Accounts:         appAccountMap(usd, gain, loss),
			Rates:            ledger.NewRateTable(valueobject.TRY, []*ledger.ExchangeRate{appUSDRate(t, tenantID, 31, 32)}),
			GainAccountID:    gain.ID,
			LossAccountID:    loss.ID,
		})
		assert.NoError(t, err)
		return adj
	}

	t.Run("posts an approved adjustment and updates carrying values", func(t *testing.T) {
		f := newRevaluationFixture()
		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)
		gain := appTestAccount(t, tenantID, "646", ledger.AccountTypeRevenue)
		loss := appTestAccount(t, tenantID, "656", ledger.AccountTypeExpense)
		adj := computeDraft(t, period, usd, gain, loss)
		assert.NoError(t, adj.Approve(uuid.New()))

		f.adjustmentRepo.On("FindByIDForTenant", mock.Anything, tenantID, adj.ID).Return(adj, nil)
		f.periodRepo.On("FindByIDForTenant", mock.Anything, tenantID, period.ID).Return(period, nil)
		f.accountRepo.On("FindWithAncestors", mock.Anything, tenantID, mock.Anything).
			Return(appAccountMap(usd, gain, loss), nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{appUSDRate(t, tenantID, 31, 32)}, nil)
		f.entryRepo.On("SavePosting", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.adjustmentRepo.On("SaveWithLock", mock.Anything, adj).Return(nil)

		resp, err := f.service.JournalizeAdjustment(ctx, tenantID, adj.ID, JournalizeAdjustmentRequest{
			EntryNumber: "JE-2025-0200",
		})
		assert.NoError(t, err)
		assert.Equal(t, string(ledger.AdjustmentStatusJournalized), resp.Status)
		assert.NotNil(t, resp.JournalEntryID)

		// The entry moves only the base carrying value; the dollar position
		// itself stays put.
		assert.True(t, usd.BaseBalance.Equal(decimal.NewFromInt(32000)))
		assert.True(t, usd.NetBalance.Equal(decimal.NewFromInt(1000)))
		f.entryRepo.AssertExpectations(t)
		f.adjustmentRepo.AssertExpectations(t)
	})

	t.Run("journalizes the entry and the adjustment in one transaction scope", func(t *testing.T) {
		f := newRevaluationFixture()
		manager := &scopedTxManager{}
		f.service = NewRevaluationService(
			f.adjustmentRepo, f.accountRepo, f.periodRepo, f.rateRepo, f.entryRepo, f.bankTxRepo,
			ledger.NewRevaluationService(ledger.NewPostingService()), manager, nil,
		)

		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)
		gain := appTestAccount(t, tenantID, "646", ledger.AccountTypeRevenue)
		loss := appTestAccount(t, tenantID, "656", ledger.AccountTypeExpense)
		adj := computeDraft(t, period, usd, gain, loss)
		assert.NoError(t, adj.Approve(uuid.New()))

		inScope := func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			assert.True(t, manager.contains(ctx), "write ran outside the journalize transaction")
		}

		f.adjustmentRepo.On("FindByIDForTenant", mock.Anything, tenantID, adj.ID).Return(adj, nil)
		f.periodRepo.On("FindByIDForTenant", mock.Anything, tenantID, period.ID).Return(period, nil)
		f.accountRepo.On("FindWithAncestors", mock.Anything, tenantID, mock.Anything).
			Return(appAccountMap(usd, gain, loss), nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{appUSDRate(t, tenantID, 31, 32)}, nil)
		f.entryRepo.On("SavePosting", mock.Anything, mock.Anything, mock.Anything).Run(inScope).Return(nil)
		f.adjustmentRepo.On("SaveWithLock", mock.Anything, adj).Run(inScope).Return(nil)

		_, err := f.service.JournalizeAdjustment(ctx, tenantID, adj.ID, JournalizeAdjustmentRequest{
			EntryNumber: "JE-2025-0202",
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, manager.calls)
		f.entryRepo.AssertExpectations(t)
		f.adjustmentRepo.AssertExpectations(t)
	})

	t.Run("refuses to journalize a draft adjustment", func(t *testing.T) {
		f := newRevaluationFixture()
		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)
		gain := appTestAccount(t, tenantID, "646", ledger.AccountTypeRevenue)
		loss := appTestAccount(t, tenantID, "656", ledger.AccountTypeExpense)
		adj := computeDraft(t, period, usd, gain, loss)

		f.adjustmentRepo.On("FindByIDForTenant", mock.Anything, tenantID, adj.ID).Return(adj, nil)
		f.periodRepo.On("FindByIDForTenant", mock.Anything, tenantID, period.ID).Return(period, nil)
		f.accountRepo.On("FindWithAncestors", mock.Anything, tenantID, mock.Anything).
			Return(appAccountMap(usd, gain, loss), nil)
		f.rateRepo.On("FindRatesForRange", mock.Anything, tenantID, period.StartDate, period.EndDate).
			Return([]*ledger.ExchangeRate{}, nil)

		_, err := f.service.JournalizeAdjustment(ctx, tenantID, adj.ID, JournalizeAdjustmentRequest{
			EntryNumber: "JE-2025-0201",
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must be approved")
		f.entryRepo.AssertNotCalled(t, "SavePosting", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRevaluationService_ApproveAndCancel(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	draft := func(t *testing.T) *ledger.ExchangeRateAdjustment {
		t.Helper()
		period := appTestPeriod(t, tenantID)
		usd := appUSDAccount(t, tenantID)
		gain := appTestAccount(t, tenantID, "646", ledger.AccountTypeRevenue)
		loss := appTestAccount(t, tenantID, "656", ledger.AccountTypeExpense)
		adj, err := ledger.NewRevaluationService(ledger.NewPostingService()).Compute(ledger.RevaluationInput{
			TenantID:         tenantID,
			AdjustmentNumber: "ADJ-2025-010",
			ValuationDate:    appTestDate(31),
			Period:           period,
			Accounts:         appAccountMap(usd, gain, loss),
			Rates:            ledger.NewRateTable(valueobject.TRY, []*ledger.ExchangeRate{appUSDRate(t, tenantID, 31, 32)}),
			GainAccountID:    gain.ID,
			LossAccountID:    loss.ID,
		})
		assert.NoError(t, err)
		return adj
	}

	t.Run("approves a draft adjustment", func(t *testing.T) {
		f := newRevaluationFixture()
		adj := draft(t)
		approver := uuid.New()

		f.adjustmentRepo.On("FindByIDForTenant", mock.Anything, tenantID, adj.ID).Return(adj, nil)
		f.adjustmentRepo.On("SaveWithLock", mock.Anything, adj).Return(nil)

		resp, err := f.service.ApproveAdjustment(ctx, tenantID, adj.ID, approver)
		assert.NoError(t, err)
		assert.Equal(t, string(ledger.AdjustmentStatusApproved), resp.Status)
		assert.Equal(t, approver, *resp.ApprovedBy)
	})

	t.Run("cannot cancel a journalized adjustment", func(t *testing.T) {
		f := newRevaluationFixture()
		adj := draft(t)
		assert.NoError(t, adj.Approve(uuid.New()))
		assert.NoError(t, adj.MarkJournalized(uuid.New()))

		f.adjustmentRepo.On("FindByIDForTenant", mock.Anything, tenantID, adj.ID).Return(adj, nil)

		_, err := f.service.CancelAdjustment(ctx, tenantID, adj.ID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already JOURNALIZED")
		f.adjustmentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}
