package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalLineDraft is one requested debit or credit leg of a posting request
type JournalLineDraft struct {
	AccountID    uuid.UUID
	Direction    LineDirection
	Amount       valueobject.Money
	CostCenterID *uuid.UUID
	Description  string
}

// JournalEntryDraft is a posting request as received from a collaborator.
// The idempotency key is caller-supplied (e.g., a transaction number) and
// makes re-submission of the same request safe.
type JournalEntryDraft struct {
	TenantID       uuid.UUID
	EntryNumber    string
	EntryDate      time.Time
	Description    string
	SourceType     EntrySourceType
	SourceID       *uuid.UUID
	IdempotencyKey string
	Lines          []JournalLineDraft
}

// PostingContext carries the state a posting validates against. The caller
// loads the period, every referenced account plus all of their ancestors, and
// the rate table; the service itself performs no I/O.
type PostingContext struct {
	Period   *AccountingPeriod
	Accounts map[uuid.UUID]*Account
	Rates    *RateTable
	// AsAdjustment marks the posting as an authorized adjustment, which a
	// soft-closed period still accepts.
	AsAdjustment bool
}

// PostingResult is the outcome of a successful posting computation: the
// posted entry and the balance deltas applied to each touched account,
// ancestors included. Updated lists entries whose state changed as a side
// effect of the posting, such as the original of a reversal. Everything in
// the result must be persisted as a single atomic unit.
type PostingResult struct {
	Entry   *JournalEntry
	Updated []*JournalEntry
	Deltas  []AccountDelta
}

// PostingServiceOption is a functional option for configuring PostingService
type PostingServiceOption func(*PostingService)

// WithRoundingTolerance sets the balance-check rounding tolerance
func WithRoundingTolerance(tolerance decimal.Decimal) PostingServiceOption {
	return func(s *PostingService) {
		if !tolerance.IsNegative() {
			s.tolerance = tolerance
		}
	}
}

// PostingService is the domain service implementing the posting core: it
// validates a journal entry draft against period state, account state and
// exchange rates, and computes the balance deltas for every touched account
// including eager propagation up the parent chain. It mutates only the
// aggregates handed to it; persistence and serialization against concurrent
// postings are the repository's concern.
type PostingService struct {
	tolerance decimal.Decimal
}

// NewPostingService creates a new posting service.
// The default rounding tolerance is 0.01 in base currency (2 decimal places).
func NewPostingService(opts ...PostingServiceOption) *PostingService {
	s := &PostingService{
		tolerance: decimal.NewFromFloat(0.01),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tolerance returns the configured rounding tolerance
func (s *PostingService) Tolerance() decimal.Decimal {
	return s.tolerance
}

// Post validates the draft and computes a posting result. On success the
// entry is marked posted and every touched account aggregate carries its
// updated balances; on failure nothing is modified.
func (s *PostingService) Post(draft JournalEntryDraft, pctx PostingContext) (*PostingResult, error) {
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}
	if pctx.Period == nil {
		return nil, shared.NewDomainError("PERIOD_NOT_FOUND",
			fmt.Sprintf("No accounting period covers entry date %s", draft.EntryDate.Format("2006-01-02")))
	}
	if pctx.Rates == nil {
		return nil, shared.NewDomainError("MISSING_EXCHANGE_RATE", "No exchange rate table available")
	}
	if err := pctx.Period.ValidatePosting(draft.EntryDate, pctx.AsAdjustment); err != nil {
		return nil, err
	}

	base := pctx.Rates.BaseCurrency()
	lines := make(JournalLines, 0, len(draft.Lines))
	leafDeltas := make(map[uuid.UUID]*AccountDelta)
	order := make([]uuid.UUID, 0, len(draft.Lines))

	for i, ld := range draft.Lines {
		account, ok := pctx.Accounts[ld.AccountID]
		if !ok {
			return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND",
				fmt.Sprintf("Line %d references unknown account %s", i+1, ld.AccountID))
		}
		if account.TenantID != draft.TenantID {
			return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND",
				fmt.Sprintf("Line %d references account %s outside the tenant ledger", i+1, ld.AccountID))
		}
		if err := account.CanReceivePosting(); err != nil {
			return nil, err
		}
		lineCurrency := ld.Amount.Currency()
		if lineCurrency != account.Currency && lineCurrency != base {
			return nil, shared.NewDomainError("CURRENCY_MISMATCH",
				fmt.Sprintf("Line %d posts %s against account %s denominated in %s",
					i+1, lineCurrency, account.Code, account.Currency))
		}

		rate, err := pctx.Rates.RateAt(lineCurrency, draft.EntryDate)
		if err != nil {
			return nil, err
		}
		baseAmount := ld.Amount.Amount().Mul(rate).RoundBank(2)

		lines = append(lines, JournalLine{
			ID:           uuid.New(),
			AccountID:    account.ID,
			AccountCode:  account.Code,
			Direction:    ld.Direction,
			Amount:       ld.Amount.Amount(),
			Currency:     lineCurrency,
			BaseAmount:   baseAmount,
			CostCenterID: ld.CostCenterID,
			Description:  ld.Description,
		})

		delta, ok := leafDeltas[account.ID]
		if !ok {
			delta = &AccountDelta{AccountID: account.ID}
			leafDeltas[account.ID] = delta
			order = append(order, account.ID)
		}
		// A base-currency line against a foreign account moves only the
		// account's base value (revaluation adjustments).
		ownAmount := ld.Amount.Amount()
		if lineCurrency != account.Currency {
			ownAmount = decimal.Zero
		}
		if ld.Direction == DirectionDebit {
			delta.Debit = delta.Debit.Add(ownAmount)
			delta.BaseDebit = delta.BaseDebit.Add(baseAmount)
		} else {
			delta.Credit = delta.Credit.Add(ownAmount)
			delta.BaseCredit = delta.BaseCredit.Add(baseAmount)
		}
	}

	entry := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(draft.TenantID),
		EntryNumber:         draft.EntryNumber,
		PeriodID:            pctx.Period.ID,
		EntryDate:           draft.EntryDate.UTC(),
		Description:         draft.Description,
		SourceType:          draft.SourceType,
		SourceID:            draft.SourceID,
		IdempotencyKey:      draft.IdempotencyKey,
		Lines:               lines,
		Status:              EntryStatusDraft,
	}

	if !entry.IsBalanced(s.tolerance) {
		return nil, shared.NewDomainError("UNBALANCED_ENTRY",
			fmt.Sprintf("entry not balanced: debit %s %s vs credit %s %s",
				entry.TotalDebit().StringFixed(2), base,
				entry.TotalCredit().StringFixed(2), base))
	}

	deltas, err := s.propagate(order, leafDeltas, pctx.Accounts, base)
	if err != nil {
		return nil, err
	}

	for _, delta := range deltas {
		pctx.Accounts[delta.AccountID].Apply(delta)
	}
	if err := entry.MarkPosted(); err != nil {
		return nil, err
	}

	return &PostingResult{Entry: entry, Deltas: deltas}, nil
}

// PrepareReversal builds and posts the reversing entry for a posted journal
// entry: every line's direction is flipped, the new entry is dated in the
// given open period, and both entries are linked bidirectionally. The
// original is marked reversed but never otherwise mutated; it rides in the
// result's Updated set so its status flip is persisted with the reversal.
func (s *PostingService) PrepareReversal(
	original *JournalEntry,
	entryNumber string,
	entryDate time.Time,
	idempotencyKey string,
	pctx PostingContext,
) (*PostingResult, error) {
	if original == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Original journal entry is required")
	}
	if original.Status == EntryStatusReversed {
		return nil, shared.NewDomainError("ALREADY_REVERSED",
			fmt.Sprintf("Journal entry %s has already been reversed", original.EntryNumber))
	}
	if original.Status != EntryStatusPosted {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Journal entry %s cannot be reversed from status %s", original.EntryNumber, original.Status))
	}

	if entryNumber == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY_NUMBER", "Entry number cannot be empty")
	}
	if pctx.Period == nil {
		return nil, shared.NewDomainError("PERIOD_NOT_FOUND",
			fmt.Sprintf("No accounting period covers entry date %s", entryDate.Format("2006-01-02")))
	}
	if pctx.Rates == nil {
		return nil, shared.NewDomainError("MISSING_EXCHANGE_RATE", "No exchange rate table available")
	}
	if err := pctx.Period.ValidatePosting(entryDate, pctx.AsAdjustment); err != nil {
		return nil, err
	}

	// The reversal mirrors the original lines exactly, base amounts included.
	// Re-converting at the reversal date's rate would break the round-trip
	// law for foreign-currency lines.
	base := pctx.Rates.BaseCurrency()
	lines := make(JournalLines, 0, len(original.Lines))
	leafDeltas := make(map[uuid.UUID]*AccountDelta)
	order := make([]uuid.UUID, 0, len(original.Lines))

	for _, line := range original.Lines {
		account, ok := pctx.Accounts[line.AccountID]
		if !ok {
			return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND",
				fmt.Sprintf("Account %s of reversed line is not loaded", line.AccountID))
		}
		direction := line.Direction.Opposite()
		lines = append(lines, JournalLine{
			ID:           uuid.New(),
			AccountID:    line.AccountID,
			AccountCode:  line.AccountCode,
			Direction:    direction,
			Amount:       line.Amount,
			Currency:     line.Currency,
			BaseAmount:   line.BaseAmount,
			CostCenterID: line.CostCenterID,
			Description:  line.Description,
		})

		delta, ok := leafDeltas[account.ID]
		if !ok {
			delta = &AccountDelta{AccountID: account.ID}
			leafDeltas[account.ID] = delta
			order = append(order, account.ID)
		}
		ownAmount := line.Amount
		if line.Currency != account.Currency {
			ownAmount = decimal.Zero
		}
		if direction == DirectionDebit {
			delta.Debit = delta.Debit.Add(ownAmount)
			delta.BaseDebit = delta.BaseDebit.Add(line.BaseAmount)
		} else {
			delta.Credit = delta.Credit.Add(ownAmount)
			delta.BaseCredit = delta.BaseCredit.Add(line.BaseAmount)
		}
	}

	entry := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(original.TenantID),
		EntryNumber:         entryNumber,
		PeriodID:            pctx.Period.ID,
		EntryDate:           entryDate.UTC(),
		Description:         fmt.Sprintf("Reversal of %s", original.EntryNumber),
		SourceType:          EntrySourceReversal,
		SourceID:            &original.ID,
		IdempotencyKey:      idempotencyKey,
		Lines:               lines,
		Status:              EntryStatusDraft,
		ReversedEntryID:     &original.ID,
	}

	deltas, err := s.propagate(order, leafDeltas, pctx.Accounts, base)
	if err != nil {
		return nil, err
	}
	for _, delta := range deltas {
		pctx.Accounts[delta.AccountID].Apply(delta)
	}
	if err := entry.MarkPosted(); err != nil {
		return nil, err
	}
	if err := original.MarkReversed(entry.ID); err != nil {
		return nil, err
	}
	return &PostingResult{Entry: entry, Updated: []*JournalEntry{original}, Deltas: deltas}, nil
}

// validateDraft checks the shape of the posting request before touching any state
func (s *PostingService) validateDraft(draft JournalEntryDraft) error {
	if draft.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if draft.EntryNumber == "" {
		return shared.NewDomainError("INVALID_ENTRY_NUMBER", "Entry number cannot be empty")
	}
	if draft.EntryDate.IsZero() {
		return shared.NewDomainError("INVALID_ENTRY_DATE", "Entry date is required")
	}
	if !draft.SourceType.IsValid() {
		return shared.NewDomainError("INVALID_SOURCE_TYPE", fmt.Sprintf("Source type %q is not valid", draft.SourceType))
	}
	if len(draft.Lines) == 0 {
		return shared.NewDomainError("EMPTY_ENTRY", "Journal entry must have at least one line")
	}
	for i, line := range draft.Lines {
		if line.AccountID == uuid.Nil {
			return shared.NewDomainError("INVALID_ACCOUNT", fmt.Sprintf("Line %d has no account", i+1))
		}
		if !line.Direction.IsValid() {
			return shared.NewDomainError("INVALID_DIRECTION", fmt.Sprintf("Line %d direction %q is not valid", i+1, line.Direction))
		}
		if !line.Amount.IsPositive() {
			return shared.NewDomainError("INVALID_AMOUNT",
				fmt.Sprintf("Line %d amount must be positive, got %s", i+1, line.Amount.String()))
		}
	}
	return nil
}

// propagate walks each posted account's parent chain and accumulates the
// base-currency net delta onto every ancestor, so non-leaf balances stay
// pre-aggregated rather than computed on read.
func (s *PostingService) propagate(
	order []uuid.UUID,
	leafDeltas map[uuid.UUID]*AccountDelta,
	accounts map[uuid.UUID]*Account,
	base valueobject.Currency,
) ([]AccountDelta, error) {
	merged := make(map[uuid.UUID]*AccountDelta, len(order))
	result := make([]AccountDelta, 0, len(order))
	outOrder := make([]uuid.UUID, 0, len(order))

	add := func(id uuid.UUID, debit, credit, baseDebit, baseCredit decimal.Decimal) {
		delta, ok := merged[id]
		if !ok {
			delta = &AccountDelta{AccountID: id}
			merged[id] = delta
			outOrder = append(outOrder, id)
		}
		delta.Debit = delta.Debit.Add(debit)
		delta.Credit = delta.Credit.Add(credit)
		delta.BaseDebit = delta.BaseDebit.Add(baseDebit)
		delta.BaseCredit = delta.BaseCredit.Add(baseCredit)
	}

	for _, id := range order {
		leaf := leafDeltas[id]
		add(id, leaf.Debit, leaf.Credit, leaf.BaseDebit, leaf.BaseCredit)

		visited := map[uuid.UUID]bool{id: true}
		current := accounts[id]
		for current.ParentID != nil {
			parentID := *current.ParentID
			if visited[parentID] {
				return nil, shared.NewDomainError("CONSISTENCY_ERROR",
					fmt.Sprintf("Account hierarchy contains a cycle through %s", parentID))
			}
			visited[parentID] = true

			parent, ok := accounts[parentID]
			if !ok {
				return nil, shared.NewDomainError("CONSISTENCY_ERROR",
					fmt.Sprintf("Ancestor account %s of %s is not loaded for balance propagation", parentID, current.Code))
			}
			// Summary accounts aggregate children in base currency; only
			// base-denominated ancestors track debit/credit columns.
			if parent.Currency == base {
				add(parentID, leaf.BaseDebit, leaf.BaseCredit, leaf.BaseDebit, leaf.BaseCredit)
			} else {
				add(parentID, decimal.Zero, decimal.Zero, leaf.BaseDebit, leaf.BaseCredit)
			}
			current = parent
		}
	}

	for _, id := range outOrder {
		result = append(result, *merged[id])
	}
	return result, nil
}
