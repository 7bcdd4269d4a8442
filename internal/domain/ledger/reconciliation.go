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

// StatementLine is one imported bank statement row. Statement lines are
// plain records supplied by the import collaborator; they carry no behavior.
type StatementLine struct {
	ID           uuid.UUID       `json:"id"`
	LineDate     time.Time       `json:"line_date"`
	Amount       decimal.Decimal `json:"amount"`
	Reference    string          `json:"reference"`
	Counterparty string          `json:"counterparty"`
	Description  string          `json:"description"`
}

// ReconciliationItemType classifies a reconciliation item
type ReconciliationItemType string

const (
	ItemTypeMatched    ReconciliationItemType = "MATCHED"
	ItemTypeBankOnly   ReconciliationItemType = "BANK_ONLY"
	ItemTypeSystemOnly ReconciliationItemType = "SYSTEM_ONLY"
	ItemTypeAdjustment ReconciliationItemType = "ADJUSTMENT"
)

// IsValid checks if the item type is valid
func (t ReconciliationItemType) IsValid() bool {
	switch t {
	case ItemTypeMatched, ItemTypeBankOnly, ItemTypeSystemOnly, ItemTypeAdjustment:
		return true
	}
	return false
}

// ReconciliationItem records one outcome of the matching run: a matched
// pair, an unmatched residue on either side, or a manual adjustment.
// Amount is signed by flow direction (inflows positive).
type ReconciliationItem struct {
	ID              uuid.UUID              `json:"id"`
	ItemType        ReconciliationItemType `json:"item_type"`
	StatementLineID *uuid.UUID             `json:"statement_line_id,omitempty"`
	TransactionID   *uuid.UUID             `json:"transaction_id,omitempty"`
	ItemDate        time.Time              `json:"item_date"`
	Amount          decimal.Decimal        `json:"amount"`
	Reference       string                 `json:"reference"`
	Description     string                 `json:"description"`
	Approved        bool                   `json:"approved"`
	JournalEntryID  *uuid.UUID             `json:"journal_entry_id,omitempty"`
}

// ReconciliationItems is stored as JSONB
type ReconciliationItems []ReconciliationItem

// Value implements driver.Valuer for database storage
func (i ReconciliationItems) Value() (driver.Value, error) {
	if i == nil {
		return json.Marshal([]ReconciliationItem{})
	}
	return json.Marshal(i)
}

// Scan implements sql.Scanner for database retrieval
func (i *ReconciliationItems) Scan(value interface{}) error {
	if value == nil {
		*i = ReconciliationItems{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("cannot scan %T into ReconciliationItems", value)
		}
	}
	return json.Unmarshal(bytes, i)
}

// ReconciliationStatus represents the state of a reconciliation
type ReconciliationStatus string

const (
	ReconciliationStatusOpen      ReconciliationStatus = "OPEN"
	ReconciliationStatusCompleted ReconciliationStatus = "COMPLETED"
	ReconciliationStatusCancelled ReconciliationStatus = "CANCELLED"
)

// IsTerminal reports whether the reconciliation can no longer change
func (s ReconciliationStatus) IsTerminal() bool {
	return s == ReconciliationStatusCompleted || s == ReconciliationStatusCancelled
}

// BankReconciliation proves that a bank statement and the internal ledger
// agree over a statement window. It holds the opening/closing balances of
// both sides, the item list produced by matching, and completes only when
// the balance difference is zero and every item is matched or accepted as
// an approved adjustment.
type BankReconciliation struct {
	shared.TenantAggregateRoot
	ReconciliationNumber string               `gorm:"not null;size:50" json:"reconciliation_number"`
	BankAccountID        uuid.UUID            `gorm:"type:uuid;not null;index" json:"bank_account_id"`
	PeriodID             uuid.UUID            `gorm:"type:uuid;not null;index" json:"period_id"`
	StatementDate        time.Time            `gorm:"not null" json:"statement_date"`
	Currency             valueobject.Currency `gorm:"not null;size:3" json:"currency"`
	BankOpeningBalance   decimal.Decimal      `gorm:"type:decimal(18,4)" json:"bank_opening_balance"`
	BankClosingBalance   decimal.Decimal      `gorm:"type:decimal(18,4)" json:"bank_closing_balance"`
	SystemOpeningBalance decimal.Decimal      `gorm:"type:decimal(18,4)" json:"system_opening_balance"`
	SystemClosingBalance decimal.Decimal      `gorm:"type:decimal(18,4)" json:"system_closing_balance"`
	Items                ReconciliationItems  `gorm:"type:jsonb" json:"items"`
	Status               ReconciliationStatus `gorm:"not null;size:20;default:'OPEN'" json:"status"`
	CompletedAt          *time.Time           `json:"completed_at,omitempty"`
	CompletedBy          *uuid.UUID           `gorm:"type:uuid" json:"completed_by,omitempty"`
}

// TableName returns the table name for GORM
func (BankReconciliation) TableName() string {
	return "bank_reconciliations"
}

// NewBankReconciliation creates a new reconciliation draft
func NewBankReconciliation(
	tenantID uuid.UUID,
	reconciliationNumber string,
	bankAccountID uuid.UUID,
	periodID uuid.UUID,
	statementDate time.Time,
	currency valueobject.Currency,
	bankOpening, bankClosing, systemOpening, systemClosing decimal.Decimal,
) (*BankReconciliation, error) {
	if reconciliationNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Reconciliation number is required")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid currency: %s", currency))
	}
	r := &BankReconciliation{
		ReconciliationNumber: reconciliationNumber,
		BankAccountID:        bankAccountID,
		PeriodID:             periodID,
		StatementDate:        statementDate.UTC(),
		Currency:             currency,
		BankOpeningBalance:   bankOpening,
		BankClosingBalance:   bankClosing,
		SystemOpeningBalance: systemOpening,
		SystemClosingBalance: systemClosing,
		Items:                ReconciliationItems{},
		Status:               ReconciliationStatusOpen,
	}
	r.TenantAggregateRoot = shared.NewTenantAggregateRoot(tenantID)
	return r, nil
}

// SetItems replaces the item list with a fresh matching result
func (r *BankReconciliation) SetItems(items []ReconciliationItem) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	r.Items = items
	r.IncrementVersion()
	return nil
}

// BalanceDifference is the gap the reconciliation still has to explain:
// the bank-side movement minus the system-side movement, net of approved
// adjustments. Zero is the completion criterion.
func (r *BankReconciliation) BalanceDifference() decimal.Decimal {
	bankDelta := r.BankClosingBalance.Sub(r.BankOpeningBalance)
	systemDelta := r.SystemClosingBalance.Sub(r.SystemOpeningBalance)
	diff := bankDelta.Sub(systemDelta)
	for _, item := range r.Items {
		if item.ItemType != ItemTypeAdjustment || !item.Approved {
			continue
		}
		// An adjustment from a system-only residue removes a system movement
		// the bank never saw; every other adjustment supplies the system
		// side with a movement only the bank recorded.
		if item.TransactionID != nil && item.StatementLineID == nil {
			diff = diff.Add(item.Amount)
		} else {
			diff = diff.Sub(item.Amount)
		}
	}
	return diff
}

// ClosingDelta is BalanceDifference under its reporting name
func (r *BankReconciliation) ClosingDelta() decimal.Decimal {
	return r.BalanceDifference()
}

// MatchedCount returns the number of matched items
func (r *BankReconciliation) MatchedCount() int {
	n := 0
	for _, item := range r.Items {
		if item.ItemType == ItemTypeMatched {
			n++
		}
	}
	return n
}

// UnmatchedCount returns the number of one-sided residues
func (r *BankReconciliation) UnmatchedCount() int {
	n := 0
	for _, item := range r.Items {
		if item.ItemType == ItemTypeBankOnly || item.ItemType == ItemTypeSystemOnly {
			n++
		}
	}
	return n
}

// AddAdjustment records a manual adjustment explaining part of the balance
// difference. The adjustment starts unapproved and affects the difference
// only once approved.
func (r *BankReconciliation) AddAdjustment(amount decimal.Decimal, description string) (*ReconciliationItem, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Adjustment amount cannot be zero")
	}
	item := ReconciliationItem{
		ID:          uuid.New(),
		ItemType:    ItemTypeAdjustment,
		ItemDate:    r.StatementDate,
		Amount:      amount,
		Description: description,
	}
	r.Items = append(r.Items, item)
	r.IncrementVersion()
	return &r.Items[len(r.Items)-1], nil
}

// AcceptAsAdjustment converts an unmatched residue into a manual adjustment,
// keeping its amount and statement/transaction links. The item still needs
// approval before it counts against the balance difference.
func (r *BankReconciliation) AcceptAsAdjustment(itemID uuid.UUID, description string) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	for idx := range r.Items {
		item := &r.Items[idx]
		if item.ID != itemID {
			continue
		}
		if item.ItemType != ItemTypeBankOnly && item.ItemType != ItemTypeSystemOnly {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Item %s is %s, only unmatched residues can become adjustments", itemID, item.ItemType))
		}
		item.ItemType = ItemTypeAdjustment
		if description != "" {
			item.Description = description
		}
		r.IncrementVersion()
		return nil
	}
	return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Item %s not found", itemID))
}

// ApproveAdjustment marks an adjustment approved and links the correcting
// journal entry posted for it
func (r *BankReconciliation) ApproveAdjustment(itemID uuid.UUID, journalEntryID uuid.UUID) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	for idx := range r.Items {
		item := &r.Items[idx]
		if item.ID != itemID {
			continue
		}
		if item.ItemType != ItemTypeAdjustment {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Item %s is %s, only adjustments can be approved", itemID, item.ItemType))
		}
		if item.Approved {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Adjustment %s is already approved", itemID))
		}
		item.Approved = true
		item.JournalEntryID = &journalEntryID
		r.IncrementVersion()
		return nil
	}
	return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Adjustment item %s not found", itemID))
}

// Complete closes the reconciliation. It requires a zero balance difference
// and no unexplained residue: every item must be matched or an approved
// adjustment.
func (r *BankReconciliation) Complete(completedBy uuid.UUID) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	if diff := r.BalanceDifference(); !diff.IsZero() {
		return shared.NewDomainError("RECONCILIATION_UNBALANCED",
			fmt.Sprintf("Reconciliation %s has unexplained difference %s %s",
				r.ReconciliationNumber, diff.StringFixed(2), r.Currency))
	}
	for _, item := range r.Items {
		switch item.ItemType {
		case ItemTypeMatched:
		case ItemTypeAdjustment:
			if !item.Approved {
				return shared.NewDomainError("RECONCILIATION_INCOMPLETE",
					fmt.Sprintf("Reconciliation %s has unapproved adjustment %s", r.ReconciliationNumber, item.ID))
			}
		default:
			return shared.NewDomainError("RECONCILIATION_INCOMPLETE",
				fmt.Sprintf("Reconciliation %s has unmatched %s item %s",
					r.ReconciliationNumber, item.ItemType, item.ID))
		}
	}
	now := time.Now().UTC()
	r.Status = ReconciliationStatusCompleted
	r.CompletedAt = &now
	r.CompletedBy = &completedBy
	r.IncrementVersion()
	r.AddDomainEvent(NewReconciliationCompletedEvent(r))
	return nil
}

// Cancel discards an open reconciliation draft
func (r *BankReconciliation) Cancel() error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	r.Status = ReconciliationStatusCancelled
	r.IncrementVersion()
	return nil
}

func (r *BankReconciliation) ensureOpen() error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("RECONCILIATION_COMPLETED",
			fmt.Sprintf("Reconciliation %s is %s and cannot be modified", r.ReconciliationNumber, r.Status))
	}
	return nil
}
