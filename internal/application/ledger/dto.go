package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	ParentID      *uuid.UUID      `json:"parent_id,omitempty"`
	Currency      string          `json:"currency"`
	IsLeaf        bool            `json:"is_leaf"`
	DebitBalance  decimal.Decimal `json:"debit_balance"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	NetBalance    decimal.Decimal `json:"net_balance"`
	BaseBalance   decimal.Decimal `json:"base_balance"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

func toAccountResponse(a *ledger.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		TenantID:      a.TenantID,
		Code:          a.Code,
		Name:          a.Name,
		Type:          string(a.Type),
		ParentID:      a.ParentID,
		Currency:      string(a.Currency),
		IsLeaf:        a.IsLeaf(),
		DebitBalance:  a.DebitBalance,
		CreditBalance: a.CreditBalance,
		NetBalance:    a.NetBalance,
		BaseBalance:   a.BaseBalance,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		Version:       a.Version,
	}
}

// JournalLineResponse represents a journal line in API responses
type JournalLineResponse struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	AccountCode  string          `json:"account_code"`
	Direction    string          `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	BaseAmount   decimal.Decimal `json:"base_amount"`
	CostCenterID *uuid.UUID      `json:"cost_center_id,omitempty"`
	Description  string          `json:"description,omitempty"`
}

// JournalEntryResponse represents a journal entry in API responses
type JournalEntryResponse struct {
	ID               uuid.UUID             `json:"id"`
	TenantID         uuid.UUID             `json:"tenant_id"`
	EntryNumber      string                `json:"entry_number"`
	PeriodID         uuid.UUID             `json:"period_id"`
	EntryDate        time.Time             `json:"entry_date"`
	Description      string                `json:"description,omitempty"`
	SourceType       string                `json:"source_type"`
	SourceID         *uuid.UUID            `json:"source_id,omitempty"`
	Lines            []JournalLineResponse `json:"lines"`
	TotalDebit       decimal.Decimal       `json:"total_debit"`
	TotalCredit      decimal.Decimal       `json:"total_credit"`
	Status           string                `json:"status"`
	ReversedEntryID  *uuid.UUID            `json:"reversed_entry_id,omitempty"`
	ReversingEntryID *uuid.UUID            `json:"reversing_entry_id,omitempty"`
	PostedAt         *time.Time            `json:"posted_at,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	Version          int                   `json:"version"`
}

func toJournalEntryResponse(e *ledger.JournalEntry) *JournalEntryResponse {
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{
			ID:           l.ID,
			AccountID:    l.AccountID,
			AccountCode:  l.AccountCode,
			Direction:    string(l.Direction),
			Amount:       l.Amount,
			Currency:     string(l.Currency),
			BaseAmount:   l.BaseAmount,
			CostCenterID: l.CostCenterID,
			Description:  l.Description,
		}
	}
	return &JournalEntryResponse{
		ID:               e.ID,
		TenantID:         e.TenantID,
		EntryNumber:      e.EntryNumber,
		PeriodID:         e.PeriodID,
		EntryDate:        e.EntryDate,
		Description:      e.Description,
		SourceType:       string(e.SourceType),
		SourceID:         e.SourceID,
		Lines:            lines,
		TotalDebit:       e.TotalDebit(),
		TotalCredit:      e.TotalCredit(),
		Status:           string(e.Status),
		ReversedEntryID:  e.ReversedEntryID,
		ReversingEntryID: e.ReversingEntryID,
		PostedAt:         e.PostedAt,
		CreatedAt:        e.CreatedAt,
		Version:          e.Version,
	}
}

// PeriodResponse represents an accounting period in API responses
type PeriodResponse struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	Name             string     `json:"name"`
	FiscalYear       int        `json:"fiscal_year"`
	PeriodNumber     int        `json:"period_number"`
	PeriodType       string     `json:"period_type"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	Status           string     `json:"status"`
	PreviousPeriodID *uuid.UUID `json:"previous_period_id,omitempty"`
	NextPeriodID     *uuid.UUID `json:"next_period_id,omitempty"`
	ClosingEntryID   *uuid.UUID `json:"closing_entry_id,omitempty"`
	OpeningEntryID   *uuid.UUID `json:"opening_entry_id,omitempty"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	CloseNotes       string     `json:"close_notes,omitempty"`
	Version          int        `json:"version"`
}

func toPeriodResponse(p *ledger.AccountingPeriod) *PeriodResponse {
	return &PeriodResponse{
		ID:               p.ID,
		TenantID:         p.TenantID,
		Name:             p.Name,
		FiscalYear:       p.FiscalYear,
		PeriodNumber:     p.PeriodNumber,
		PeriodType:       string(p.PeriodType),
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		Status:           string(p.Status),
		PreviousPeriodID: p.PreviousPeriodID,
		NextPeriodID:     p.NextPeriodID,
		ClosingEntryID:   p.ClosingEntryID,
		OpeningEntryID:   p.OpeningEntryID,
		ClosedAt:         p.ClosedAt,
		CloseNotes:       p.CloseNotes,
		Version:          p.Version,
	}
}

// AdjustmentLineResponse represents one revalued account in API responses
type AdjustmentLineResponse struct {
	AccountID     uuid.UUID       `json:"account_id"`
	AccountCode   string          `json:"account_code"`
	Currency      string          `json:"currency"`
	ForeignAmount decimal.Decimal `json:"foreign_amount"`
	OriginalBase  decimal.Decimal `json:"original_base"`
	ValuationRate decimal.Decimal `json:"valuation_rate"`
	RevaluedBase  decimal.Decimal `json:"revalued_base"`
	BaseDelta     decimal.Decimal `json:"base_delta"`
	GainLoss      decimal.Decimal `json:"gain_loss"`
}

// AdjustmentResponse represents an exchange rate adjustment in API responses
type AdjustmentResponse struct {
	ID               uuid.UUID                `json:"id"`
	TenantID         uuid.UUID                `json:"tenant_id"`
	AdjustmentNumber string                   `json:"adjustment_number"`
	ValuationDate    time.Time                `json:"valuation_date"`
	ValuationType    string                   `json:"valuation_type"`
	PeriodID         uuid.UUID                `json:"period_id"`
	Description      string                   `json:"description,omitempty"`
	Status           string                   `json:"status"`
	Lines            []AdjustmentLineResponse `json:"lines"`
	NetGainLoss      decimal.Decimal          `json:"net_gain_loss"`
	GainAccountID    uuid.UUID                `json:"gain_account_id"`
	LossAccountID    uuid.UUID                `json:"loss_account_id"`
	JournalEntryID   *uuid.UUID               `json:"journal_entry_id,omitempty"`
	ApprovedBy       *uuid.UUID               `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time               `json:"approved_at,omitempty"`
	Version          int                      `json:"version"`
}

func toAdjustmentResponse(a *ledger.ExchangeRateAdjustment) *AdjustmentResponse {
	lines := make([]AdjustmentLineResponse, len(a.Lines))
	for i, l := range a.Lines {
		lines[i] = AdjustmentLineResponse{
			AccountID:     l.AccountID,
			AccountCode:   l.AccountCode,
			Currency:      string(l.Currency),
			ForeignAmount: l.ForeignAmount,
			OriginalBase:  l.OriginalBase,
			ValuationRate: l.ValuationRate,
			RevaluedBase:  l.RevaluedBase,
			BaseDelta:     l.BaseDelta,
			GainLoss:      l.GainLoss,
		}
	}
	return &AdjustmentResponse{
		ID:               a.ID,
		TenantID:         a.TenantID,
		AdjustmentNumber: a.AdjustmentNumber,
		ValuationDate:    a.ValuationDate,
		ValuationType:    string(a.ValuationType),
		PeriodID:         a.PeriodID,
		Description:      a.Description,
		Status:           string(a.Status),
		Lines:            lines,
		NetGainLoss:      a.NetGainLoss(),
		GainAccountID:    a.GainAccountID,
		LossAccountID:    a.LossAccountID,
		JournalEntryID:   a.JournalEntryID,
		ApprovedBy:       a.ApprovedBy,
		ApprovedAt:       a.ApprovedAt,
		Version:          a.Version,
	}
}

// ReconciliationItemResponse represents a reconciliation item in API responses
type ReconciliationItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	ItemType        string          `json:"item_type"`
	StatementLineID *uuid.UUID      `json:"statement_line_id,omitempty"`
	TransactionID   *uuid.UUID      `json:"transaction_id,omitempty"`
	ItemDate        time.Time       `json:"item_date"`
	Amount          decimal.Decimal `json:"amount"`
	Reference       string          `json:"reference,omitempty"`
	Description     string          `json:"description,omitempty"`
	Approved        bool            `json:"approved"`
	JournalEntryID  *uuid.UUID      `json:"journal_entry_id,omitempty"`
}

// ReconciliationResponse represents a bank reconciliation in API responses
type ReconciliationResponse struct {
	ID                   uuid.UUID                    `json:"id"`
	TenantID             uuid.UUID                    `json:"tenant_id"`
	ReconciliationNumber string                       `json:"reconciliation_number"`
	BankAccountID        uuid.UUID                    `json:"bank_account_id"`
	PeriodID             uuid.UUID                    `json:"period_id"`
	StatementDate        time.Time                    `json:"statement_date"`
	Currency             string                       `json:"currency"`
	BankOpeningBalance   decimal.Decimal              `json:"bank_opening_balance"`
	BankClosingBalance   decimal.Decimal              `json:"bank_closing_balance"`
	SystemOpeningBalance decimal.Decimal              `json:"system_opening_balance"`
	SystemClosingBalance decimal.Decimal              `json:"system_closing_balance"`
	BalanceDifference    decimal.Decimal              `json:"balance_difference"`
	MatchedCount         int                          `json:"matched_count"`
	UnmatchedCount       int                          `json:"unmatched_count"`
	Items                []ReconciliationItemResponse `json:"items"`
	Status               string                       `json:"status"`
	CompletedAt          *time.Time                   `json:"completed_at,omitempty"`
	CompletedBy          *uuid.UUID                   `json:"completed_by,omitempty"`
	Version              int                          `json:"version"`
}

func toReconciliationResponse(r *ledger.BankReconciliation) *ReconciliationResponse {
	items := make([]ReconciliationItemResponse, len(r.Items))
	for i, item := range r.Items {
		items[i] = ReconciliationItemResponse{
			ID:              item.ID,
			ItemType:        string(item.ItemType),
			StatementLineID: item.StatementLineID,
			TransactionID:   item.TransactionID,
			ItemDate:        item.ItemDate,
			Amount:          item.Amount,
			Reference:       item.Reference,
			Description:     item.Description,
			Approved:        item.Approved,
			JournalEntryID:  item.JournalEntryID,
		}
	}
	return &ReconciliationResponse{
		ID:                   r.ID,
		TenantID:             r.TenantID,
		ReconciliationNumber: r.ReconciliationNumber,
		BankAccountID:        r.BankAccountID,
		PeriodID:             r.PeriodID,
		StatementDate:        r.StatementDate,
		Currency:             string(r.Currency),
		BankOpeningBalance:   r.BankOpeningBalance,
		BankClosingBalance:   r.BankClosingBalance,
		SystemOpeningBalance: r.SystemOpeningBalance,
		SystemClosingBalance: r.SystemClosingBalance,
		BalanceDifference:    r.BalanceDifference(),
		MatchedCount:         r.MatchedCount(),
		UnmatchedCount:       r.UnmatchedCount(),
		Items:                items,
		Status:               string(r.Status),
		CompletedAt:          r.CompletedAt,
		CompletedBy:          r.CompletedBy,
		Version:              r.Version,
	}
}

// BankTransactionResponse represents a bank transaction in API responses
type BankTransactionResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	TransactionNumber string          `json:"transaction_number"`
	BankAccountID     uuid.UUID       `json:"bank_account_id"`
	Type              string          `json:"type"`
	TransactionDate   time.Time       `json:"transaction_date"`
	ValueDate         time.Time       `json:"value_date"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	BaseAmount        decimal.Decimal `json:"base_amount"`
	Reference         string          `json:"reference,omitempty"`
	Counterparty      string          `json:"counterparty,omitempty"`
	Description       string          `json:"description,omitempty"`
	JournalEntryID    *uuid.UUID      `json:"journal_entry_id,omitempty"`
	MatchStatus       string          `json:"match_status"`
	Version           int             `json:"version"`
}

func toBankTransactionResponse(t *ledger.BankTransaction) *BankTransactionResponse {
	return &BankTransactionResponse{
		ID:                t.ID,
		TenantID:          t.TenantID,
		TransactionNumber: t.TransactionNumber,
		BankAccountID:     t.BankAccountID,
		Type:              string(t.Type),
		TransactionDate:   t.TransactionDate,
		ValueDate:         t.ValueDate,
		Amount:            t.Amount.Amount(),
		Currency:          string(t.Amount.Currency()),
		BaseAmount:        t.BaseAmount.Amount(),
		Reference:         t.Reference,
		Counterparty:      t.Counterparty,
		Description:       t.Description,
		JournalEntryID:    t.JournalEntryID,
		MatchStatus:       string(t.MatchStatus),
		Version:           t.Version,
	}
}

// CommitmentResponse represents a budget commitment in API responses
type CommitmentResponse struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Consumed    decimal.Decimal `json:"consumed"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference,omitempty"`
	CommittedAt time.Time       `json:"committed_at"`
	SettledAt   *time.Time      `json:"settled_at,omitempty"`
}

// BudgetResponse represents a budget in API responses
type BudgetResponse struct {
	ID                uuid.UUID            `json:"id"`
	TenantID          uuid.UUID            `json:"tenant_id"`
	Name              string               `json:"name"`
	AccountID         uuid.UUID            `json:"account_id"`
	PeriodID          uuid.UUID            `json:"period_id"`
	Currency          string               `json:"currency"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	OriginalAmount    decimal.Decimal      `json:"original_amount"`
	ConsumedAmount    decimal.Decimal      `json:"consumed_amount"`
	CommittedAmount   decimal.Decimal      `json:"committed_amount"`
	AvailableAmount   decimal.Decimal      `json:"available_amount"`
	UsedPercent       decimal.Decimal      `json:"used_percent"`
	Commitments       []CommitmentResponse `json:"commitments,omitempty"`
	AllowOverrun      bool                 `json:"allow_overrun"`
	WarningThreshold  decimal.Decimal      `json:"warning_threshold"`
	CriticalThreshold decimal.Decimal      `json:"critical_threshold"`
	AlertLevel        string               `json:"alert_level"`
	RevisionCount     int                  `json:"revision_count"`
	Status            string               `json:"status"`
	Version           int                  `json:"version"`
}

func toBudgetResponse(b *ledger.Budget) *BudgetResponse {
	commitments := make([]CommitmentResponse, len(b.Commitments))
	for i, c := range b.Commitments {
		commitments[i] = CommitmentResponse{
			ID:          c.ID,
			Amount:      c.Amount,
			Consumed:    c.Consumed,
			Status:      string(c.Status),
			Reference:   c.Reference,
			CommittedAt: c.CommittedAt,
			SettledAt:   c.SettledAt,
		}
	}
	return &BudgetResponse{
		ID:                b.ID,
		TenantID:          b.TenantID,
		Name:              b.Name,
		AccountID:         b.AccountID,
		PeriodID:          b.PeriodID,
		Currency:          string(b.TotalAmount.Currency()),
		TotalAmount:       b.TotalAmount.Amount(),
		OriginalAmount:    b.OriginalAmount.Amount(),
		ConsumedAmount:    b.ConsumedAmount.Amount(),
		CommittedAmount:   b.CommittedAmount.Amount(),
		AvailableAmount:   b.AvailableAmount().Amount(),
		UsedPercent:       b.UsedPercent(),
		Commitments:       commitments,
		AllowOverrun:      b.AllowOverrun,
		WarningThreshold:  b.WarningThreshold,
		CriticalThreshold: b.CriticalThreshold,
		AlertLevel:        string(b.AlertLevel),
		RevisionCount:     b.RevisionCount,
		Status:            string(b.Status),
		Version:           b.Version,
	}
}
