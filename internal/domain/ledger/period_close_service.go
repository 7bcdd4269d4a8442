package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PeriodCloseContext carries the state a period close validates against:
// the period pair, the full chart of accounts with current balances, the
// retained-earnings account absorbing the net result, and the rate table.
type PeriodCloseContext struct {
	Period                *AccountingPeriod
	NextPeriod            *AccountingPeriod
	Accounts              map[uuid.UUID]*Account
	RetainedEarningsID    uuid.UUID
	Rates                 *RateTable
	ClosingEntryNumber    string
	OpeningEntryNumber    string
	ClosingIdempotencyKey string
	OpeningIdempotencyKey string
	ClosedBy              *uuid.UUID
	CloseNotes            string
}

// PeriodCloseResult is the outcome of a close computation: the closing entry
// zeroing the books in the closed period and the opening entry reinstating
// balance-sheet balances in the next period. Both are posted and must be
// persisted together with the period transition as one atomic unit.
type PeriodCloseResult struct {
	ClosingResult *PostingResult
	OpeningResult *PostingResult
}

// PeriodCloseService generates the closing and opening journal entries for a
// period transition. It is a client of the posting core, not a back door:
// both generated entries go through the same validation as any posting.
//
// The closing entry zeroes every leaf account - revenue/expense balances flow
// into retained earnings, balance-sheet balances are closed out - and the
// opening entry re-establishes every balance-sheet balance in the next
// period. The net effect is that profit-and-loss accounts start the new
// period at zero while assets, liabilities and equity carry forward.
type PeriodCloseService struct {
	posting *PostingService
}

// NewPeriodCloseService creates a new period close service
func NewPeriodCloseService(posting *PostingService) *PeriodCloseService {
	return &PeriodCloseService{posting: posting}
}

// Close computes and posts the closing and opening entries. The period must
// already be soft-closed (the posting barrier); on any validation failure no
// aggregate is left modified and the period stays in its prior state.
func (s *PeriodCloseService) Close(cctx PeriodCloseContext) (*PeriodCloseResult, error) {
	if cctx.Period == nil || cctx.NextPeriod == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Both the closing and the next period are required")
	}
	if cctx.Period.Status != PeriodStatusSoftClosed {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Period %s must be soft-closed before closing, current status is %s",
				cctx.Period.Name, cctx.Period.Status))
	}
	if cctx.NextPeriod.Status != PeriodStatusOpen {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Next period %s must be open to receive the opening entry, current status is %s",
				cctx.NextPeriod.Name, cctx.NextPeriod.Status))
	}
	retained, ok := cctx.Accounts[cctx.RetainedEarningsID]
	if !ok {
		return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND", "Retained earnings account is not loaded")
	}
	if retained.Type != AccountTypeEquity {
		return nil, shared.NewDomainError("INVALID_ACCOUNT",
			fmt.Sprintf("Retained earnings account %s must be an equity account, got %s", retained.Code, retained.Type))
	}

	closingLines, openingLines, err := s.buildCloseLines(cctx, retained)
	if err != nil {
		return nil, err
	}
	if len(closingLines) == 0 {
		return nil, shared.NewDomainError("NOTHING_TO_CLOSE",
			fmt.Sprintf("Period %s has no balances to close", cctx.Period.Name))
	}

	closingResult, err := s.posting.Post(JournalEntryDraft{
		TenantID:       cctx.Period.TenantID,
		EntryNumber:    cctx.ClosingEntryNumber,
		EntryDate:      cctx.Period.EndDate,
		Description:    fmt.Sprintf("Closing entry for period %s", cctx.Period.Name),
		SourceType:     EntrySourcePeriodClose,
		SourceID:       &cctx.Period.ID,
		IdempotencyKey: cctx.ClosingIdempotencyKey,
		Lines:          closingLines,
	}, PostingContext{
		Period:       cctx.Period,
		Accounts:     cctx.Accounts,
		Rates:        cctx.Rates,
		AsAdjustment: true,
	})
	if err != nil {
		return nil, err
	}

	openingResult, err := s.posting.Post(JournalEntryDraft{
		TenantID:       cctx.NextPeriod.TenantID,
		EntryNumber:    cctx.OpeningEntryNumber,
		EntryDate:      cctx.NextPeriod.StartDate,
		Description:    fmt.Sprintf("Opening entry for period %s", cctx.NextPeriod.Name),
		SourceType:     EntrySourcePeriodOpening,
		SourceID:       &cctx.NextPeriod.ID,
		IdempotencyKey: cctx.OpeningIdempotencyKey,
		Lines:          openingLines,
	}, PostingContext{
		Period:   cctx.NextPeriod,
		Accounts: cctx.Accounts,
		Rates:    cctx.Rates,
	})
	if err != nil {
		return nil, err
	}

	if err := cctx.Period.Close(closingResult.Entry.ID, cctx.ClosedBy, cctx.CloseNotes); err != nil {
		return nil, err
	}
	cctx.NextPeriod.SetOpeningEntry(openingResult.Entry.ID)

	return &PeriodCloseResult{
		ClosingResult: closingResult,
		OpeningResult: openingResult,
	}, nil
}

// buildCloseLines computes the closing lines that zero every leaf balance
// and the opening lines that reinstate the balance-sheet side in the next
// period. The closing entry combines two classic movements: the income
// transfer that nets revenue and expense into retained earnings, and the
// balance-sheet close that zeroes every carried account including the
// post-income retained earnings balance. Profit-and-loss closings have no
// opening mirror; those accounts start the new period at zero.
func (s *PeriodCloseService) buildCloseLines(cctx PeriodCloseContext, retained *Account) ([]JournalLineDraft, []JournalLineDraft, error) {
	var closing, opening []JournalLineDraft
	netIncome := decimal.Zero

	for _, account := range sortedAccounts(cctx.Accounts) {
		if !account.IsLeaf() || account.ID == retained.ID {
			continue
		}
		if account.BaseBalance.IsZero() {
			continue
		}
		amount, err := valueobject.NewMoney(account.BaseBalance.Abs(), valueobject.DefaultCurrency)
		if err != nil {
			return nil, nil, err
		}

		// Zero the account: post against the side its balance sits on.
		direction := closingDirection(account.Type, account.BaseBalance)
		closing = append(closing, JournalLineDraft{
			AccountID:   account.ID,
			Direction:   direction,
			Amount:      amount,
			Description: fmt.Sprintf("Close %s", account.Code),
		})
		if account.Type.IsBalanceSheet() {
			opening = append(opening, JournalLineDraft{
				AccountID:   account.ID,
				Direction:   direction.Opposite(),
				Amount:      amount,
				Description: fmt.Sprintf("Open %s", account.Code),
			})
		}

		if account.Type == AccountTypeRevenue {
			netIncome = netIncome.Add(account.BaseBalance)
		} else if account.Type == AccountTypeExpense {
			netIncome = netIncome.Sub(account.BaseBalance)
		}
	}

	// Income transfer: revenue minus expense lands in retained earnings.
	if !netIncome.IsZero() {
		amount, err := valueobject.NewMoney(netIncome.Abs(), valueobject.DefaultCurrency)
		if err != nil {
			return nil, nil, err
		}
		direction := DirectionCredit
		if netIncome.IsNegative() {
			direction = DirectionDebit
		}
		closing = append(closing, JournalLineDraft{
			AccountID:   retained.ID,
			Direction:   direction,
			Amount:      amount,
			Description: fmt.Sprintf("Net income to %s", retained.Code),
		})
	}

	// Balance-sheet close of retained earnings at its post-income value,
	// mirrored into the opening entry so the new period starts from it.
	retainedPost := retained.BaseBalance.Add(netIncome)
	if !retainedPost.IsZero() {
		amount, err := valueobject.NewMoney(retainedPost.Abs(), valueobject.DefaultCurrency)
		if err != nil {
			return nil, nil, err
		}
		direction := closingDirection(retained.Type, retainedPost)
		closing = append(closing, JournalLineDraft{
			AccountID:   retained.ID,
			Direction:   direction,
			Amount:      amount,
			Description: fmt.Sprintf("Close %s", retained.Code),
		})
		opening = append(opening, JournalLineDraft{
			AccountID:   retained.ID,
			Direction:   direction.Opposite(),
			Amount:      amount,
			Description: fmt.Sprintf("Open %s", retained.Code),
		})
	}
	return closing, opening, nil
}

// closingDirection is the side that zeroes a balance sitting on the
// account's normal side (or the opposite side when the balance is negative).
func closingDirection(accountType AccountType, balance decimal.Decimal) LineDirection {
	var direction LineDirection
	if accountType.IsDebitNormal() {
		direction = DirectionCredit
		if balance.IsNegative() {
			direction = DirectionDebit
		}
	} else {
		direction = DirectionDebit
		if balance.IsNegative() {
			direction = DirectionCredit
		}
	}
	return direction
}
