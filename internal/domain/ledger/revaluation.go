package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentStatus represents the workflow state of an exchange rate adjustment
type AdjustmentStatus string

const (
	AdjustmentStatusDraft       AdjustmentStatus = "DRAFT"
	AdjustmentStatusApproved    AdjustmentStatus = "APPROVED"
	AdjustmentStatusJournalized AdjustmentStatus = "JOURNALIZED"
	AdjustmentStatusCancelled   AdjustmentStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s AdjustmentStatus) IsValid() bool {
	switch s {
	case AdjustmentStatusDraft, AdjustmentStatusApproved, AdjustmentStatusJournalized, AdjustmentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the adjustment can no longer change
func (s AdjustmentStatus) IsTerminal() bool {
	return s == AdjustmentStatusJournalized || s == AdjustmentStatusCancelled
}

// ValuationType distinguishes the scheduled period-end sweep over the whole
// chart from a targeted run for the accounts behind specific transactions.
type ValuationType string

const (
	ValuationPeriodEnd   ValuationType = "PERIOD_END"
	ValuationTransaction ValuationType = "TRANSACTION"
)

// IsValid checks if the valuation type is valid
func (v ValuationType) IsValid() bool {
	return v == ValuationPeriodEnd || v == ValuationTransaction
}

// AdjustmentLine is the computed revaluation of one foreign-currency account.
// BaseDelta is the change in the account's base-currency carrying value,
// signed in the account's normal-side space; GainLoss is the effect on net
// worth (positive for gains regardless of the account's normal side).
type AdjustmentLine struct {
	AccountID     uuid.UUID            `json:"account_id"`
	AccountCode   string               `json:"account_code"`
	Currency      valueobject.Currency `json:"currency"`
	ForeignAmount decimal.Decimal      `json:"foreign_amount"`
	OriginalBase  decimal.Decimal      `json:"original_base"`
	ValuationRate decimal.Decimal      `json:"valuation_rate"`
	RevaluedBase  decimal.Decimal      `json:"revalued_base"`
	BaseDelta     decimal.Decimal      `json:"base_delta"`
	GainLoss      decimal.Decimal      `json:"gain_loss"`
}

// AdjustmentLines is stored as JSONB
type AdjustmentLines []AdjustmentLine

// Value implements driver.Valuer for database storage
func (l AdjustmentLines) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]AdjustmentLine{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for database retrieval
func (l *AdjustmentLines) Scan(value interface{}) error {
	if value == nil {
		*l = AdjustmentLines{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("cannot scan %T into AdjustmentLines", value)
		}
	}
	return json.Unmarshal(bytes, l)
}

// ExchangeRateAdjustment captures a revaluation run over the foreign-currency
// accounts at a valuation date. It records, per account, the carrying base
// value, the valuation-rate value, and the resulting gain or loss, and moves
// through a draft/approve/journalize workflow so the figures are reviewed
// before they touch the ledger.
type ExchangeRateAdjustment struct {
	shared.TenantAggregateRoot
	AdjustmentNumber string           `gorm:"not null;size:50" json:"adjustment_number"`
	ValuationType    ValuationType    `gorm:"not null;size:20;default:'PERIOD_END'" json:"valuation_type"`
	ValuationDate    time.Time        `gorm:"not null;index" json:"valuation_date"`
	PeriodID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"period_id"`
	Description      string           `gorm:"size:500" json:"description"`
	Status           AdjustmentStatus `gorm:"not null;size:20;default:'DRAFT'" json:"status"`
	Lines            AdjustmentLines  `gorm:"type:jsonb" json:"lines"`
	GainAccountID    uuid.UUID        `gorm:"type:uuid;not null" json:"gain_account_id"`
	LossAccountID    uuid.UUID        `gorm:"type:uuid;not null" json:"loss_account_id"`
	JournalEntryID   *uuid.UUID       `gorm:"type:uuid" json:"journal_entry_id,omitempty"`
	ApprovedBy       *uuid.UUID       `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time       `json:"approved_at,omitempty"`
}

// TableName returns the table name for GORM
func (ExchangeRateAdjustment) TableName() string {
	return "exchange_rate_adjustments"
}

// NetGainLoss returns the adjustment's total effect on net worth
func (a *ExchangeRateAdjustment) NetGainLoss() decimal.Decimal {
	total := decimal.Zero
	for _, line := range a.Lines {
		total = total.Add(line.GainLoss)
	}
	return total
}

// Approve moves a draft adjustment to approved
func (a *ExchangeRateAdjustment) Approve(approvedBy uuid.UUID) error {
	if a.Status != AdjustmentStatusDraft {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Adjustment %s cannot be approved from status %s", a.AdjustmentNumber, a.Status))
	}
	now := time.Now().UTC()
	a.Status = AdjustmentStatusApproved
	a.ApprovedBy = &approvedBy
	a.ApprovedAt = &now
	a.IncrementVersion()
	return nil
}

// Cancel discards an adjustment that has not reached the ledger
func (a *ExchangeRateAdjustment) Cancel() error {
	if a.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Adjustment %s is already %s", a.AdjustmentNumber, a.Status))
	}
	a.Status = AdjustmentStatusCancelled
	a.IncrementVersion()
	return nil
}

// MarkJournalized records the journal entry generated from this adjustment
func (a *ExchangeRateAdjustment) MarkJournalized(entryID uuid.UUID) error {
	if a.Status != AdjustmentStatusApproved {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Adjustment %s must be approved before journalizing, current status is %s",
				a.AdjustmentNumber, a.Status))
	}
	a.Status = AdjustmentStatusJournalized
	a.JournalEntryID = &entryID
	a.IncrementVersion()
	a.AddDomainEvent(NewRevaluationJournalizedEvent(a, entryID))
	return nil
}

// RevaluationService computes unrealized exchange gains and losses over the
// foreign-currency balance-sheet accounts and turns an approved adjustment into a journal
// entry. The generated entry posts base-currency lines against the revalued
// accounts, so only their base carrying value moves; the foreign-currency
// position itself is untouched.
type RevaluationService struct {
	posting *PostingService
}

// NewRevaluationService creates a new revaluation service
func NewRevaluationService(posting *PostingService) *RevaluationService {
	return &RevaluationService{posting: posting}
}

// RevaluationInput carries what a revaluation run needs. An empty scope
// revalues every eligible account; a non-empty scope restricts the run to the
// listed accounts, which must all be loaded.
type RevaluationInput struct {
	TenantID         uuid.UUID
	AdjustmentNumber string
	ValuationType    ValuationType
	ValuationDate    time.Time
	Period           *AccountingPeriod
	Accounts         map[uuid.UUID]*Account
	ScopeAccountIDs  []uuid.UUID
	Rates            *RateTable
	GainAccountID    uuid.UUID
	LossAccountID    uuid.UUID
	Description      string
}

// Compute builds a draft adjustment from the current foreign-currency
// balance-sheet positions. Profit-and-loss accounts are never revalued:
// their flows are carried at the rates of the days they were posted, and a
// period close zeroes their base value while the own-currency figure stays
// behind for reporting. Accounts whose carrying value already matches the
// valuation rate produce no line; an empty adjustment is returned with no
// lines rather than an error, so callers can detect a no-op run.
func (s *RevaluationService) Compute(input RevaluationInput) (*ExchangeRateAdjustment, error) {
	if input.Period == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Valuation period is required")
	}
	if !input.Period.Contains(input.ValuationDate) {
		return nil, shared.NewDomainError("INVALID_ENTRY_DATE",
			fmt.Sprintf("Valuation date %s is outside period %s",
				input.ValuationDate.Format("2006-01-02"), input.Period.Name))
	}
	if input.Rates == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Rate table is required")
	}
	if input.AdjustmentNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Adjustment number is required")
	}
	if input.ValuationType == "" {
		input.ValuationType = ValuationPeriodEnd
	}
	if !input.ValuationType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Invalid valuation type: %s", input.ValuationType))
	}

	var scope map[uuid.UUID]bool
	if len(input.ScopeAccountIDs) > 0 {
		scope = make(map[uuid.UUID]bool, len(input.ScopeAccountIDs))
		for _, id := range input.ScopeAccountIDs {
			if _, ok := input.Accounts[id]; !ok {
				return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND",
					fmt.Sprintf("Scoped account %s is not loaded", id))
			}
			scope[id] = true
		}
	}

	var lines AdjustmentLines
	for _, account := range sortedAccounts(input.Accounts) {
		if scope != nil && !scope[account.ID] {
			continue
		}
		if !account.IsLeaf() || !account.Type.IsBalanceSheet() {
			continue
		}
		if account.Currency == input.Rates.BaseCurrency() {
			continue
		}
		if account.NetBalance.IsZero() && account.BaseBalance.IsZero() {
			continue
		}
		rate, err := input.Rates.RateAt(account.Currency, input.ValuationDate)
		if err != nil {
			return nil, err
		}
		revalued := account.NetBalance.Mul(rate).RoundBank(2)
		delta := revalued.Sub(account.BaseBalance)
		if delta.IsZero() {
			continue
		}
		gainLoss := delta
		if !account.Type.IsDebitNormal() {
			// A larger base carrying value on a credit-normal account is a loss.
			gainLoss = delta.Neg()
		}
		lines = append(lines, AdjustmentLine{
			AccountID:     account.ID,
			AccountCode:   account.Code,
			Currency:      account.Currency,
			ForeignAmount: account.NetBalance,
			OriginalBase:  account.BaseBalance,
			ValuationRate: rate,
			RevaluedBase:  revalued,
			BaseDelta:     delta,
			GainLoss:      gainLoss,
		})
	}

	adj := &ExchangeRateAdjustment{
		AdjustmentNumber: input.AdjustmentNumber,
		ValuationType:    input.ValuationType,
		ValuationDate:    input.ValuationDate.UTC().Truncate(24 * time.Hour),
		PeriodID:         input.Period.ID,
		Description:      input.Description,
		Status:           AdjustmentStatusDraft,
		Lines:            lines,
		GainAccountID:    input.GainAccountID,
		LossAccountID:    input.LossAccountID,
	}
	adj.TenantAggregateRoot = shared.NewTenantAggregateRoot(input.TenantID)
	return adj, nil
}

// Journalize posts an approved adjustment to the ledger. Each adjustment line
// becomes a base-currency line on the revalued account paired with a line on
// the gain or loss account, and the whole entry is posted as a period
// adjustment so it lands in a soft-closed period.
func (s *RevaluationService) Journalize(
	adj *ExchangeRateAdjustment,
	entryNumber string,
	idempotencyKey string,
	pctx PostingContext,
) (*PostingResult, error) {
	if adj.Status != AdjustmentStatusApproved {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Adjustment %s must be approved before journalizing, current status is %s",
				adj.AdjustmentNumber, adj.Status))
	}
	if len(adj.Lines) == 0 {
		return nil, shared.NewDomainError("NOTHING_TO_ADJUST",
			fmt.Sprintf("Adjustment %s has no revaluation lines", adj.AdjustmentNumber))
	}

	var drafts []JournalLineDraft
	for _, line := range adj.Lines {
		amount, err := valueobject.NewMoney(line.BaseDelta.Abs(), valueobject.DefaultCurrency)
		if err != nil {
			return nil, err
		}
		account, ok := pctx.Accounts[line.AccountID]
		if !ok {
			return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND",
				fmt.Sprintf("Account %s from adjustment line is not loaded", line.AccountID))
		}

		// Move the account's base carrying value by the delta.
		accountDirection := DirectionDebit
		if line.BaseDelta.IsNegative() {
			accountDirection = DirectionCredit
		}
		if !account.Type.IsDebitNormal() {
			accountDirection = accountDirection.Opposite()
		}

		counterpartID := adj.GainAccountID
		if line.GainLoss.IsNegative() {
			counterpartID = adj.LossAccountID
		}
		drafts = append(drafts,
			JournalLineDraft{
				AccountID:   line.AccountID,
				Direction:   accountDirection,
				Amount:      amount,
				Description: fmt.Sprintf("Revaluation of %s at %s", line.AccountCode, line.ValuationRate.String()),
			},
			JournalLineDraft{
				AccountID:   counterpartID,
				Direction:   accountDirection.Opposite(),
				Amount:      amount,
				Description: fmt.Sprintf("Exchange difference on %s", line.AccountCode),
			},
		)
	}

	pctx.AsAdjustment = true
	result, err := s.posting.Post(JournalEntryDraft{
		TenantID:       adj.TenantID,
		EntryNumber:    entryNumber,
		EntryDate:      adj.ValuationDate,
		Description:    fmt.Sprintf("Exchange rate adjustment %s", adj.AdjustmentNumber),
		SourceType:     EntrySourceRevaluation,
		SourceID:       &adj.ID,
		IdempotencyKey: idempotencyKey,
		Lines:          drafts,
	}, pctx)
	if err != nil {
		return nil, err
	}
	if err := adj.MarkJournalized(result.Entry.ID); err != nil {
		return nil, err
	}
	return result, nil
}
