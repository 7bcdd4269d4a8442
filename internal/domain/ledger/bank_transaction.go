package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// BankTransactionType represents the kind of bank movement
type BankTransactionType string

const (
	BankTransactionDeposit     BankTransactionType = "DEPOSIT"
	BankTransactionWithdrawal  BankTransactionType = "WITHDRAWAL"
	BankTransactionFee         BankTransactionType = "FEE"
	BankTransactionInterest    BankTransactionType = "INTEREST"
	BankTransactionTransferIn  BankTransactionType = "TRANSFER_IN"
	BankTransactionTransferOut BankTransactionType = "TRANSFER_OUT"
)

// IsValid checks if the transaction type is valid
func (t BankTransactionType) IsValid() bool {
	switch t {
	case BankTransactionDeposit, BankTransactionWithdrawal, BankTransactionFee,
		BankTransactionInterest, BankTransactionTransferIn, BankTransactionTransferOut:
		return true
	}
	return false
}

// IsInflow reports whether the type increases the bank balance
func (t BankTransactionType) IsInflow() bool {
	switch t {
	case BankTransactionDeposit, BankTransactionInterest, BankTransactionTransferIn:
		return true
	}
	return false
}

// MatchStatus tracks a transaction through reconciliation. The status field
// replaces separate matched/reconciled booleans so a transaction cannot be
// reconciled without first being matched.
type MatchStatus string

const (
	MatchStatusUnmatched  MatchStatus = "UNMATCHED"
	MatchStatusMatched    MatchStatus = "MATCHED"
	MatchStatusReconciled MatchStatus = "RECONCILED"
)

// IsValid checks if the match status is valid
func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusUnmatched, MatchStatusMatched, MatchStatusReconciled:
		return true
	}
	return false
}

// BankTransaction is a typed bank movement. It produces a journal entry when
// posted and carries the reconciliation state used to match it against
// imported statement lines. The row references its journal entry by id only;
// the entry's lifecycle belongs to the ledger.
type BankTransaction struct {
	shared.TenantAggregateRoot
	TransactionNumber string              `gorm:"not null;size:50" json:"transaction_number"`
	BankAccountID     uuid.UUID           `gorm:"type:uuid;not null;index" json:"bank_account_id"`
	Type              BankTransactionType `gorm:"not null;size:20" json:"type"`
	TransactionDate   time.Time           `gorm:"not null;index" json:"transaction_date"`
	ValueDate         time.Time           `gorm:"not null;index" json:"value_date"`
	Amount            valueobject.Money   `gorm:"type:decimal(18,4)" json:"amount"`
	BaseAmount        valueobject.Money   `gorm:"type:decimal(18,4)" json:"base_amount"`
	Reference         string              `gorm:"size:100;index" json:"reference"`
	Counterparty      string              `gorm:"size:200" json:"counterparty"`
	Description       string              `gorm:"size:500" json:"description"`
	JournalEntryID    *uuid.UUID          `gorm:"type:uuid" json:"journal_entry_id,omitempty"`
	MatchStatus       MatchStatus         `gorm:"not null;size:20;default:'UNMATCHED'" json:"match_status"`
	MatchedItemID     *uuid.UUID          `gorm:"type:uuid" json:"matched_item_id,omitempty"`
}

// TableName returns the table name for GORM
func (BankTransaction) TableName() string {
	return "bank_transactions"
}

// NewBankTransaction creates a new bank transaction. A zero valueDate means
// the funds settled on the booking date itself.
func NewBankTransaction(
	tenantID uuid.UUID,
	transactionNumber string,
	bankAccountID uuid.UUID,
	txType BankTransactionType,
	transactionDate time.Time,
	valueDate time.Time,
	amount valueobject.Money,
	reference string,
	counterparty string,
) (*BankTransaction, error) {
	if transactionNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transaction number is required")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid bank transaction type: %s", txType))
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transaction amount must be positive")
	}
	if valueDate.IsZero() {
		valueDate = transactionDate
	}
	tx := &BankTransaction{
		TransactionNumber: transactionNumber,
		BankAccountID:     bankAccountID,
		Type:              txType,
		TransactionDate:   transactionDate.UTC(),
		ValueDate:         valueDate.UTC(),
		Amount:            amount,
		BaseAmount:        amount,
		Reference:         reference,
		Counterparty:      counterparty,
		MatchStatus:       MatchStatusUnmatched,
	}
	tx.TenantAggregateRoot = shared.NewTenantAggregateRoot(tenantID)
	return tx, nil
}

// SignedAmount returns the amount signed by flow direction: positive for
// money entering the bank account, negative for money leaving it.
func (t *BankTransaction) SignedAmount() valueobject.Money {
	if t.Type.IsInflow() {
		return t.Amount
	}
	return t.Amount.Negate()
}

// AttachJournalEntry links the journal entry this transaction produced
func (t *BankTransaction) AttachJournalEntry(entryID uuid.UUID, baseAmount valueobject.Money) error {
	if t.JournalEntryID != nil {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Transaction %s already has journal entry %s", t.TransactionNumber, t.JournalEntryID))
	}
	t.JournalEntryID = &entryID
	t.BaseAmount = baseAmount
	t.IncrementVersion()
	return nil
}

// MarkMatched records the reconciliation item this transaction matched
func (t *BankTransaction) MarkMatched(itemID uuid.UUID) error {
	if t.MatchStatus != MatchStatusUnmatched {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Transaction %s is already %s", t.TransactionNumber, t.MatchStatus))
	}
	t.MatchStatus = MatchStatusMatched
	t.MatchedItemID = &itemID
	t.IncrementVersion()
	return nil
}

// MarkReconciled finalizes the match once the reconciliation completes
func (t *BankTransaction) MarkReconciled() error {
	if t.MatchStatus != MatchStatusMatched {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Transaction %s must be matched before reconciling, current status is %s",
				t.TransactionNumber, t.MatchStatus))
	}
	t.MatchStatus = MatchStatusReconciled
	t.IncrementVersion()
	return nil
}

// Unmatch reverts a match, e.g. when a reconciliation draft is discarded
func (t *BankTransaction) Unmatch() error {
	if t.MatchStatus == MatchStatusReconciled {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Transaction %s is reconciled and cannot be unmatched", t.TransactionNumber))
	}
	t.MatchStatus = MatchStatusUnmatched
	t.MatchedItemID = nil
	t.IncrementVersion()
	return nil
}
