package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalEntryPostedEvent is raised when a journal entry is posted to the ledger
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	EntryID     uuid.UUID       `json:"entry_id"`
	EntryNumber string          `json:"entry_number"`
	PeriodID    uuid.UUID       `json:"period_id"`
	EntryDate   time.Time       `json:"entry_date"`
	SourceType  EntrySourceType `json:"source_type"`
	LineCount   int             `json:"line_count"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
}

// EventType returns the event type name
func (e *JournalEntryPostedEvent) EventType() string {
	return "JournalEntryPosted"
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(entry *JournalEntry) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("JournalEntryPosted", "JournalEntry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		PeriodID:        entry.PeriodID,
		EntryDate:       entry.EntryDate,
		SourceType:      entry.SourceType,
		LineCount:       len(entry.Lines),
		TotalDebit:      entry.TotalDebit(),
	}
}

// JournalEntryReversedEvent is raised when a posted entry is reversed
type JournalEntryReversedEvent struct {
	shared.BaseDomainEvent
	EntryID          uuid.UUID `json:"entry_id"`
	EntryNumber      string    `json:"entry_number"`
	ReversingEntryID uuid.UUID `json:"reversing_entry_id"`
}

// EventType returns the event type name
func (e *JournalEntryReversedEvent) EventType() string {
	return "JournalEntryReversed"
}

// NewJournalEntryReversedEvent creates a new JournalEntryReversedEvent
func NewJournalEntryReversedEvent(entry *JournalEntry, reversingEntryID uuid.UUID) *JournalEntryReversedEvent {
	return &JournalEntryReversedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("JournalEntryReversed", "JournalEntry", entry.ID, entry.TenantID),
		EntryID:          entry.ID,
		EntryNumber:      entry.EntryNumber,
		ReversingEntryID: reversingEntryID,
	}
}

// PeriodClosedEvent is raised when an accounting period is hard-closed
type PeriodClosedEvent struct {
	shared.BaseDomainEvent
	PeriodID       uuid.UUID  `json:"period_id"`
	PeriodName     string     `json:"period_name"`
	FiscalYear     int        `json:"fiscal_year"`
	ClosingEntryID *uuid.UUID `json:"closing_entry_id"`
	ClosedBy       *uuid.UUID `json:"closed_by"`
	ClosedAt       time.Time  `json:"closed_at"`
}

// EventType returns the event type name
func (e *PeriodClosedEvent) EventType() string {
	return "PeriodClosed"
}

// NewPeriodClosedEvent creates a new PeriodClosedEvent
func NewPeriodClosedEvent(p *AccountingPeriod) *PeriodClosedEvent {
	closedAt := time.Now().UTC()
	if p.ClosedAt != nil {
		closedAt = *p.ClosedAt
	}
	return &PeriodClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PeriodClosed", "AccountingPeriod", p.ID, p.TenantID),
		PeriodID:        p.ID,
		PeriodName:      p.Name,
		FiscalYear:      p.FiscalYear,
		ClosingEntryID:  p.ClosingEntryID,
		ClosedBy:        p.ClosedBy,
		ClosedAt:        closedAt,
	}
}

// PeriodReopenedEvent is raised when a soft-closed period is reopened
type PeriodReopenedEvent struct {
	shared.BaseDomainEvent
	PeriodID   uuid.UUID `json:"period_id"`
	PeriodName string    `json:"period_name"`
	FiscalYear int       `json:"fiscal_year"`
}

// EventType returns the event type name
func (e *PeriodReopenedEvent) EventType() string {
	return "PeriodReopened"
}

// NewPeriodReopenedEvent creates a new PeriodReopenedEvent
func NewPeriodReopenedEvent(p *AccountingPeriod) *PeriodReopenedEvent {
	return &PeriodReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PeriodReopened", "AccountingPeriod", p.ID, p.TenantID),
		PeriodID:        p.ID,
		PeriodName:      p.Name,
		FiscalYear:      p.FiscalYear,
	}
}

// RevaluationJournalizedEvent is raised when an exchange rate adjustment is
// posted to the ledger
type RevaluationJournalizedEvent struct {
	shared.BaseDomainEvent
	AdjustmentID   uuid.UUID       `json:"adjustment_id"`
	ValuationDate  time.Time       `json:"valuation_date"`
	JournalEntryID uuid.UUID       `json:"journal_entry_id"`
	NetGainLoss    decimal.Decimal `json:"net_gain_loss"`
}

// EventType returns the event type name
func (e *RevaluationJournalizedEvent) EventType() string {
	return "RevaluationJournalized"
}

// NewRevaluationJournalizedEvent creates a new RevaluationJournalizedEvent
func NewRevaluationJournalizedEvent(adj *ExchangeRateAdjustment, entryID uuid.UUID) *RevaluationJournalizedEvent {
	return &RevaluationJournalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RevaluationJournalized", "ExchangeRateAdjustment", adj.ID, adj.TenantID),
		AdjustmentID:    adj.ID,
		ValuationDate:   adj.ValuationDate,
		JournalEntryID:  entryID,
		NetGainLoss:     adj.NetGainLoss(),
	}
}

// ReconciliationCompletedEvent is raised when a bank reconciliation closes
type ReconciliationCompletedEvent struct {
	shared.BaseDomainEvent
	ReconciliationID uuid.UUID       `json:"reconciliation_id"`
	BankAccountID    uuid.UUID       `json:"bank_account_id"`
	StatementDate    time.Time       `json:"statement_date"`
	MatchedCount     int             `json:"matched_count"`
	UnmatchedCount   int             `json:"unmatched_count"`
	ClosingDelta     decimal.Decimal `json:"closing_delta"`
}

// EventType returns the event type name
func (e *ReconciliationCompletedEvent) EventType() string {
	return "ReconciliationCompleted"
}

// NewReconciliationCompletedEvent creates a new ReconciliationCompletedEvent
func NewReconciliationCompletedEvent(r *BankReconciliation) *ReconciliationCompletedEvent {
	return &ReconciliationCompletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("ReconciliationCompleted", "BankReconciliation", r.ID, r.TenantID),
		ReconciliationID: r.ID,
		BankAccountID:    r.BankAccountID,
		StatementDate:    r.StatementDate,
		MatchedCount:     r.MatchedCount(),
		UnmatchedCount:   r.UnmatchedCount(),
		ClosingDelta:     r.ClosingDelta(),
	}
}

// BudgetThresholdCrossedEvent is raised when consumption crosses a budget's
// warning or critical threshold
type BudgetThresholdCrossedEvent struct {
	shared.BaseDomainEvent
	BudgetID    uuid.UUID         `json:"budget_id"`
	BudgetName  string            `json:"budget_name"`
	AccountID   uuid.UUID         `json:"account_id"`
	Threshold   BudgetAlertLevel  `json:"threshold"`
	UsedPercent decimal.Decimal   `json:"used_percent"`
	Consumed    valueobject.Money `json:"consumed"`
	Limit       valueobject.Money `json:"limit"`
}

// EventType returns the event type name
func (e *BudgetThresholdCrossedEvent) EventType() string {
	return "BudgetThresholdCrossed"
}

// NewBudgetThresholdCrossedEvent creates a new BudgetThresholdCrossedEvent
func NewBudgetThresholdCrossedEvent(b *Budget, level BudgetAlertLevel) *BudgetThresholdCrossedEvent {
	return &BudgetThresholdCrossedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BudgetThresholdCrossed", "Budget", b.ID, b.TenantID),
		BudgetID:        b.ID,
		BudgetName:      b.Name,
		AccountID:       b.AccountID,
		Threshold:       level,
		UsedPercent:     b.UsedPercent(),
		Consumed:        b.ConsumedAmount,
		Limit:           b.TotalAmount,
	}
}
