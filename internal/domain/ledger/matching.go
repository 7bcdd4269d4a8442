package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// MatchingEngine pairs imported statement lines with internal bank
// transactions. Matching runs in priority order: exact reference match
// first, then amount with the transaction date inside a tolerance window,
// then everything left becomes a one-sided residue.
type MatchingEngine struct {
	dateWindow time.Duration
}

// MatchingOption configures the matching engine
type MatchingOption func(*MatchingEngine)

// WithDateWindow sets the date tolerance for amount-based matching
func WithDateWindow(window time.Duration) MatchingOption {
	return func(e *MatchingEngine) {
		if window > 0 {
			e.dateWindow = window
		}
	}
}

// NewMatchingEngine creates a matching engine with a 3-day default window
func NewMatchingEngine(opts ...MatchingOption) *MatchingEngine {
	e := &MatchingEngine{dateWindow: 72 * time.Hour}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MatchResult is the outcome of one matching run
type MatchResult struct {
	Items   []ReconciliationItem
	Matched []MatchedPair
}

// MatchedPair links a statement line to the transaction it matched
type MatchedPair struct {
	StatementLineID uuid.UUID
	TransactionID   uuid.UUID
	ItemID          uuid.UUID
}

// Match runs the matching passes over the statement lines and the unmatched
// internal transactions. Inputs are not mutated; callers apply the returned
// pairs to their transactions. Statement amounts and transaction amounts are
// compared in signed flow space (inflows positive).
func (e *MatchingEngine) Match(lines []StatementLine, transactions []*BankTransaction) *MatchResult {
	result := &MatchResult{}
	usedLines := make(map[int]bool)
	usedTxns := make(map[int]bool)

	candidates := make([]*BankTransaction, len(transactions))
	copy(candidates, transactions)

	// Pass 1: exact reference match. References are caller-controlled check
	// or document numbers; an empty reference never matches.
	for li := range lines {
		if lines[li].Reference == "" {
			continue
		}
		for ti, txn := range candidates {
			if usedTxns[ti] || txn.MatchStatus != MatchStatusUnmatched {
				continue
			}
			if txn.Reference != "" && txn.Reference == lines[li].Reference {
				e.record(result, &lines[li], txn)
				usedLines[li] = true
				usedTxns[ti] = true
				break
			}
		}
	}

	// Pass 2: amount equality with the dates inside the tolerance window,
	// tie-broken by the smallest absolute date distance. Statement lines
	// carry settlement dates, so they compare against the transaction's
	// value date rather than its booking date.
	for li := range lines {
		if usedLines[li] {
			continue
		}
		bestIdx := -1
		var bestDelta time.Duration
		for ti, txn := range candidates {
			if usedTxns[ti] || txn.MatchStatus != MatchStatusUnmatched {
				continue
			}
			if !txn.SignedAmount().Amount().Equal(lines[li].Amount) {
				continue
			}
			delta := absDuration(txn.ValueDate.Sub(lines[li].LineDate))
			if delta > e.dateWindow {
				continue
			}
			if bestIdx == -1 || delta < bestDelta {
				bestIdx = ti
				bestDelta = delta
			}
		}
		if bestIdx >= 0 {
			e.record(result, &lines[li], candidates[bestIdx])
			usedLines[li] = true
			usedTxns[bestIdx] = true
		}
	}

	// Pass 3: residues.
	for li := range lines {
		if usedLines[li] {
			continue
		}
		line := &lines[li]
		result.Items = append(result.Items, ReconciliationItem{
			ID:              uuid.New(),
			ItemType:        ItemTypeBankOnly,
			StatementLineID: &line.ID,
			ItemDate:        line.LineDate,
			Amount:          line.Amount,
			Reference:       line.Reference,
			Description:     line.Description,
		})
	}
	for ti, txn := range candidates {
		if usedTxns[ti] || txn.MatchStatus != MatchStatusUnmatched {
			continue
		}
		txnID := txn.ID
		result.Items = append(result.Items, ReconciliationItem{
			ID:            uuid.New(),
			ItemType:      ItemTypeSystemOnly,
			TransactionID: &txnID,
			ItemDate:      txn.ValueDate,
			Amount:        txn.SignedAmount().Amount(),
			Reference:     txn.Reference,
			Description:   txn.Description,
		})
	}

	sort.SliceStable(result.Items, func(a, b int) bool {
		return result.Items[a].ItemDate.Before(result.Items[b].ItemDate)
	})
	return result
}

func (e *MatchingEngine) record(result *MatchResult, line *StatementLine, txn *BankTransaction) {
	txnID := txn.ID
	item := ReconciliationItem{
		ID:              uuid.New(),
		ItemType:        ItemTypeMatched,
		StatementLineID: &line.ID,
		TransactionID:   &txnID,
		ItemDate:        line.LineDate,
		Amount:          line.Amount,
		Reference:       line.Reference,
		Description:     line.Description,
	}
	result.Items = append(result.Items, item)
	result.Matched = append(result.Matched, MatchedPair{
		StatementLineID: line.ID,
		TransactionID:   txn.ID,
		ItemID:          item.ID,
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
