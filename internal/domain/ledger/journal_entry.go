package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineDirection is the side of the ledger a journal line posts to
type LineDirection string

const (
	DirectionDebit  LineDirection = "DEBIT"
	DirectionCredit LineDirection = "CREDIT"
)

// IsValid checks if the direction is valid
func (d LineDirection) IsValid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// Opposite returns the other side of the ledger
func (d LineDirection) Opposite() LineDirection {
	if d == DirectionDebit {
		return DirectionCredit
	}
	return DirectionDebit
}

// EntryStatus represents the lifecycle state of a journal entry
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"    // Built, not yet applied to balances
	EntryStatusPosted   EntryStatus = "POSTED"   // Applied to account balances
	EntryStatusReversed EntryStatus = "REVERSED" // Posted, later reversed by a linked entry
)

// IsValid checks if the status is valid
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusPosted, EntryStatusReversed:
		return true
	}
	return false
}

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// EntrySourceType identifies the business event that produced a journal entry
type EntrySourceType string

const (
	EntrySourceManual          EntrySourceType = "MANUAL"
	EntrySourceInvoice         EntrySourceType = "INVOICE"
	EntrySourceBankTransaction EntrySourceType = "BANK_TRANSACTION"
	EntrySourceCashTransaction EntrySourceType = "CASH_TRANSACTION"
	EntrySourceDepreciation    EntrySourceType = "DEPRECIATION"
	EntrySourcePayroll         EntrySourceType = "PAYROLL"
	EntrySourceRevaluation     EntrySourceType = "REVALUATION"
	EntrySourceReconciliation  EntrySourceType = "RECONCILIATION"
	EntrySourcePeriodClose     EntrySourceType = "PERIOD_CLOSE"
	EntrySourcePeriodOpening   EntrySourceType = "PERIOD_OPENING"
	EntrySourceReversal        EntrySourceType = "REVERSAL"
)

// IsValid checks if the source type is valid
func (t EntrySourceType) IsValid() bool {
	switch t {
	case EntrySourceManual, EntrySourceInvoice, EntrySourceBankTransaction,
		EntrySourceCashTransaction, EntrySourceDepreciation, EntrySourcePayroll,
		EntrySourceRevaluation, EntrySourceReconciliation,
		EntrySourcePeriodClose, EntrySourcePeriodOpening, EntrySourceReversal:
		return true
	}
	return false
}

// JournalLine is one debit or credit leg of a journal entry. Lines are value
// objects owned exclusively by their entry and stored as JSONB; they have no
// independent lifecycle.
//
// Amount is in the line's own currency; BaseAmount is the value converted to
// the base currency at the rate in force on the entry date. For revaluation
// adjustments the line currency is the base currency even when the account is
// foreign-denominated: only the account's base value moves.
type JournalLine struct {
	ID           uuid.UUID            `json:"id"`
	AccountID    uuid.UUID            `json:"account_id"`
	AccountCode  string               `json:"account_code"`
	Direction    LineDirection        `json:"direction"`
	Amount       decimal.Decimal      `json:"amount"`
	Currency     valueobject.Currency `json:"currency"`
	BaseAmount   decimal.Decimal      `json:"base_amount"`
	CostCenterID *uuid.UUID           `json:"cost_center_id,omitempty"`
	Description  string               `json:"description,omitempty"`
}

// JournalLines is a slice of JournalLine that implements GORM Scanner/Valuer for JSONB storage
type JournalLines []JournalLine

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l JournalLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *JournalLines) Scan(value interface{}) error {
	if value == nil {
		*l = JournalLines{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan JournalLines: unsupported type")
	}

	if len(bytes) == 0 {
		*l = JournalLines{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// JournalEntry is an atomic, balanced set of debit/credit lines posted against
// one or more accounts within one accounting period. Entries are never mutated
// or removed after posting; cancellation is modeled as a reversing entry and
// both entries stay linked bidirectionally.
type JournalEntry struct {
	shared.TenantAggregateRoot
	EntryNumber      string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_entries_tenant_number,priority:2"`
	PeriodID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	EntryDate        time.Time       `gorm:"not null;index"`
	Description      string          `gorm:"type:varchar(500)"`
	SourceType       EntrySourceType `gorm:"type:varchar(30);not null;index"`
	SourceID         *uuid.UUID      `gorm:"type:uuid;index"`
	IdempotencyKey   string          `gorm:"type:varchar(100);index"`
	Lines            JournalLines    `gorm:"type:jsonb;not null"`
	Status           EntryStatus     `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ReversedEntryID  *uuid.UUID      `gorm:"type:uuid"` // set on a reversal: the entry it reverses
	ReversingEntryID *uuid.UUID      `gorm:"type:uuid"` // set on a reversed entry: the reversal that undid it
	PostedAt         *time.Time
}

// TableName returns the table name for GORM
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// TotalDebit returns the sum of debit lines in base currency
func (e *JournalEntry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		if line.Direction == DirectionDebit {
			total = total.Add(line.BaseAmount)
		}
	}
	return total
}

// TotalCredit returns the sum of credit lines in base currency
func (e *JournalEntry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		if line.Direction == DirectionCredit {
			total = total.Add(line.BaseAmount)
		}
	}
	return total
}

// IsBalanced checks that debits equal credits in base currency within the
// given rounding tolerance
func (e *JournalEntry) IsBalanced(tolerance decimal.Decimal) bool {
	diff := e.TotalDebit().Sub(e.TotalCredit()).Abs()
	return diff.LessThanOrEqual(tolerance)
}

// IsPosted returns true once the entry has been applied to account balances
func (e *JournalEntry) IsPosted() bool {
	return e.Status == EntryStatusPosted || e.Status == EntryStatusReversed
}

// IsReversed returns true if a reversal has undone this entry
func (e *JournalEntry) IsReversed() bool {
	return e.Status == EntryStatusReversed
}

// MarkPosted transitions the entry from Draft to Posted
func (e *JournalEntry) MarkPosted() error {
	if e.Status != EntryStatusDraft {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Journal entry %s cannot be posted from status %s", e.EntryNumber, e.Status))
	}
	now := time.Now().UTC()
	e.Status = EntryStatusPosted
	e.PostedAt = &now
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryPostedEvent(e))
	return nil
}

// MarkReversed records that the given entry reversed this one. The original
// entry is never mutated beyond this link and status flip.
func (e *JournalEntry) MarkReversed(reversingEntryID uuid.UUID) error {
	if e.Status != EntryStatusPosted {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Journal entry %s cannot be reversed from status %s", e.EntryNumber, e.Status))
	}
	e.Status = EntryStatusReversed
	e.ReversingEntryID = &reversingEntryID
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryReversedEvent(e, reversingEntryID))
	return nil
}
