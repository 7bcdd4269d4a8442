package ledger

import (
	"fmt"
	"sort"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies an account within the chart of accounts
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is a valid AccountType
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// IsDebitNormal returns true for account types whose normal balance is a debit
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// IsBalanceSheet returns true for account types carried forward across periods
func (t AccountType) IsBalanceSheet() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability || t == AccountTypeEquity
}

// IsProfitAndLoss returns true for account types zeroed into retained earnings at close
func (t AccountType) IsProfitAndLoss() bool {
	return t == AccountTypeRevenue || t == AccountTypeExpense
}

// Account is a node in the tenant's hierarchical chart of accounts.
// Parent/child relationships are stored as id references, never pointers.
// Balances are denormalized and eagerly propagated: a non-leaf account's
// balance is maintained as the running sum of its children's postings and
// direct postings against it are rejected once it has children.
//
// Balances on the account are kept in the account's own currency; BaseBalance
// is the running net value in the base currency, which is what revaluation
// adjusts for foreign-currency accounts.
type Account struct {
	shared.TenantAggregateRoot
	Code          string               `gorm:"type:varchar(30);not null;uniqueIndex:idx_accounts_tenant_code,priority:2"`
	Name          string               `gorm:"type:varchar(200);not null"`
	Type          AccountType          `gorm:"type:varchar(20);not null;index"`
	ParentID      *uuid.UUID           `gorm:"type:uuid;index"`
	ChildCount    int                  `gorm:"not null;default:0"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null"`
	DebitBalance  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	CreditBalance decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	NetBalance    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	BaseBalance   decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	IsActive      bool                 `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "ledger_accounts"
}

// NewAccount creates a new account in the chart of accounts
func NewAccount(
	tenantID uuid.UUID,
	code string,
	name string,
	accountType AccountType,
	currency valueobject.Currency,
	parentID *uuid.UUID,
) (*Account, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code cannot be empty")
	}
	if len(code) > 30 {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code cannot exceed 30 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", fmt.Sprintf("Account type %q is not valid", accountType))
	}
	if currency == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Account currency cannot be empty")
	}
	if parentID != nil && *parentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARENT", "Parent account ID cannot be the nil UUID")
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accountType,
		ParentID:            parentID,
		Currency:            currency,
		DebitBalance:        decimal.Zero,
		CreditBalance:       decimal.Zero,
		NetBalance:          decimal.Zero,
		BaseBalance:         decimal.Zero,
		IsActive:            true,
	}, nil
}

// IsLeaf returns true if the account has no child accounts.
// Only leaf accounts may receive direct postings.
func (a *Account) IsLeaf() bool {
	return a.ChildCount == 0
}

// IsForeignCurrency returns true if the account is not denominated in the base currency
func (a *Account) IsForeignCurrency() bool {
	return a.Currency != valueobject.DefaultCurrency
}

// CanReceivePosting validates that the account may receive a direct posting
func (a *Account) CanReceivePosting() error {
	if !a.IsActive {
		return shared.NewDomainError("INACTIVE_ACCOUNT",
			fmt.Sprintf("Account %s (%s) is inactive and cannot receive postings", a.Code, a.ID))
	}
	if !a.IsLeaf() {
		return shared.NewDomainError("NON_LEAF_POSTING",
			fmt.Sprintf("Account %s (%s) has child accounts and cannot receive direct postings", a.Code, a.ID))
	}
	return nil
}

// Apply applies a posting delta to the account's running balances.
// Debit/Credit are in the account's own currency; BaseDebit/BaseCredit are
// the converted base-currency amounts that track the account's base value.
func (a *Account) Apply(delta AccountDelta) {
	a.DebitBalance = a.DebitBalance.Add(delta.Debit)
	a.CreditBalance = a.CreditBalance.Add(delta.Credit)

	if a.Type.IsDebitNormal() {
		a.NetBalance = a.DebitBalance.Sub(a.CreditBalance)
		a.BaseBalance = a.BaseBalance.Add(delta.BaseDebit).Sub(delta.BaseCredit)
	} else {
		a.NetBalance = a.CreditBalance.Sub(a.DebitBalance)
		a.BaseBalance = a.BaseBalance.Add(delta.BaseCredit).Sub(delta.BaseDebit)
	}
	a.IncrementVersion()
}

// SetBaseBalance records a new base-currency value for the account.
// Used by revaluation after posting the adjusting difference.
func (a *Account) SetBaseBalance(value decimal.Decimal) {
	a.BaseBalance = value
	a.IncrementVersion()
}

// AddChild registers a new child account. A parent account stops accepting
// direct postings as soon as its first child is registered.
func (a *Account) AddChild() {
	a.ChildCount++
	a.IncrementVersion()
}

// RemoveChild unregisters a child account
func (a *Account) RemoveChild() error {
	if a.ChildCount == 0 {
		return shared.NewDomainError("INVALID_STATE", "Account has no children to remove")
	}
	a.ChildCount--
	a.IncrementVersion()
	return nil
}

// Deactivate marks the account inactive. Balances are preserved; financial
// rows are never hard-deleted.
func (a *Account) Deactivate() error {
	if !a.IsActive {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Account %s is already inactive", a.Code))
	}
	a.IsActive = false
	a.IncrementVersion()
	return nil
}

// Activate marks the account active again
func (a *Account) Activate() error {
	if a.IsActive {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Account %s is already active", a.Code))
	}
	a.IsActive = true
	a.IncrementVersion()
	return nil
}

// AccountDelta is the balance change a posting applies to one account.
// Deltas against ancestors carry only base-currency amounts, because summary
// accounts aggregate children that may be denominated in different currencies.
type AccountDelta struct {
	AccountID  uuid.UUID
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	BaseDebit  decimal.Decimal
	BaseCredit decimal.Decimal
}

// sortedAccounts returns the accounts ordered by code so that generated
// entries list lines deterministically.
func sortedAccounts(accounts map[uuid.UUID]*Account) []*Account {
	out := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
