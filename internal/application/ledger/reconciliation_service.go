package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// statementImportTimeout bounds a statement fetch from external storage
const statementImportTimeout = 30 * time.Second

// StatementImporter fetches and parses a bank statement from external
// storage. Implementations live in the infrastructure layer.
type StatementImporter interface {
	// Import fetches the statement stored under the given key and parses it
	// into statement lines
	Import(ctx context.Context, tenantID uuid.UUID, key string) ([]ledger.StatementLine, error)
}

// ReconciliationService handles application-level bank reconciliation
type ReconciliationService struct {
	reconciliationRepo ledger.ReconciliationRepository
	transactionRepo    ledger.BankTransactionRepository
	periodRepo         ledger.PeriodRepository
	entryRepo          ledger.JournalEntryRepository
	matching           *ledger.MatchingEngine
	importer           StatementImporter
	eventBus           shared.EventPublisher
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	reconciliationRepo ledger.ReconciliationRepository,
	transactionRepo ledger.BankTransactionRepository,
	periodRepo ledger.PeriodRepository,
	entryRepo ledger.JournalEntryRepository,
	matching *ledger.MatchingEngine,
	importer StatementImporter,
	eventBus shared.EventPublisher,
) *ReconciliationService {
	return &ReconciliationService{
		reconciliationRepo: reconciliationRepo,
		transactionRepo:    transactionRepo,
		periodRepo:         periodRepo,
		entryRepo:          entryRepo,
		matching:           matching,
		importer:           importer,
		eventBus:           eventBus,
	}
}

// RecordTransactionRequest represents a request to record a bank transaction
type RecordTransactionRequest struct {
	TransactionNumber string          `json:"transaction_number" binding:"required"`
	BankAccountID     uuid.UUID       `json:"bank_account_id" binding:"required"`
	Type              string          `json:"type" binding:"required"`
	TransactionDate   time.Time       `json:"transaction_date" binding:"required"`
	ValueDate         time.Time       `json:"value_date"`
	Amount            decimal.Decimal `json:"amount" binding:"required"`
	Currency          string          `json:"currency" binding:"required"`
	Reference         string          `json:"reference"`
	Counterparty      string          `json:"counterparty"`
	JournalEntryID    *uuid.UUID      `json:"journal_entry_id"`
}

// StartReconciliationRequest represents a request to start a reconciliation run
type StartReconciliationRequest struct {
	ReconciliationNumber string          `json:"reconciliation_number" binding:"required"`
	BankAccountID        uuid.UUID       `json:"bank_account_id" binding:"required"`
	PeriodID             uuid.UUID       `json:"period_id" binding:"required"`
	StatementDate        time.Time       `json:"statement_date" binding:"required"`
	Currency             string          `json:"currency" binding:"required"`
	BankOpeningBalance   decimal.Decimal `json:"bank_opening_balance"`
	BankClosingBalance   decimal.Decimal `json:"bank_closing_balance"`
	SystemOpeningBalance decimal.Decimal `json:"system_opening_balance"`
	SystemClosingBalance decimal.Decimal `json:"system_closing_balance"`
	// StatementKey locates the uploaded statement file in object storage
	StatementKey string `json:"statement_key" binding:"required"`
}

// ReconciliationListFilter defines filters for listing reconciliations
type ReconciliationListFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID `form:"bank_account_id"`
	Status        *string    `form:"status"`
	PeriodID      *uuid.UUID `form:"period_id"`
}

// TransactionListFilter defines filters for listing bank transactions
type TransactionListFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID `form:"bank_account_id"`
	Type          *string    `form:"type"`
	MatchStatus   *string    `form:"match_status"`
	FromDate      *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate        *time.Time `form:"to_date" time_format:"2006-01-02"`
	Reference     *string    `form:"reference"`
}

// RecordTransaction records a bank transaction in the system books
func (s *ReconciliationService) RecordTransaction(ctx context.Context, tenantID uuid.UUID, req RecordTransactionRequest) (*BankTransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record_transaction")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrBankAccountID, req.BankAccountID.String())

	amount, err := valueobject.NewMoney(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	transaction, err := ledger.NewBankTransaction(
		tenantID,
		req.TransactionNumber,
		req.BankAccountID,
		ledger.BankTransactionType(req.Type),
		req.TransactionDate,
		req.ValueDate,
		amount,
		req.Reference,
		req.Counterparty,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.JournalEntryID != nil {
		entry, err := s.entryRepo.FindByIDForTenant(ctx, tenantID, *req.JournalEntryID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load journal entry: %w", err)
		}
		if entry == nil {
			return nil, shared.NewDomainError("NOT_FOUND", "Journal entry not found")
		}
		if err := transaction.AttachJournalEntry(entry.ID, amount); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := s.transactionRepo.Save(ctx, transaction); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save bank transaction: %w", err)
	}

	telemetry.SetOK(span)
	return toBankTransactionResponse(transaction), nil
}

// StartReconciliation imports the bank statement, matches it against
// unmatched system transactions and opens a reconciliation carrying the
// residues. At most one reconciliation may be open per bank account.
func (s *ReconciliationService) StartReconciliation(ctx context.Context, tenantID uuid.UUID, req StartReconciliationRequest) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "start_reconciliation")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrReconciliationNo, req.ReconciliationNumber,
		telemetry.SpanAttrBankAccountID, req.BankAccountID.String(),
	)

	var response *ReconciliationResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationReconcile, "start"), func(c context.Context) {
		open, err := s.reconciliationRepo.FindOpenForBankAccount(c, tenantID, req.BankAccountID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to check open reconciliations: %w", err)
			return
		}
		if open != nil {
			err := shared.NewDomainError("RECONCILIATION_OPEN",
				fmt.Sprintf("Reconciliation %s is still open for this bank account", open.ReconciliationNumber))
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		period, err := s.periodRepo.FindByIDForTenant(c, tenantID, req.PeriodID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load period: %w", err)
			return
		}
		if period == nil {
			err := shared.NewDomainError("NOT_FOUND", "Accounting period not found")
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		lines, err := s.importStatement(c, tenantID, req.StatementKey)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		transactions, err := s.transactionRepo.FindUnmatched(c, tenantID, req.BankAccountID, period.StartDate, req.StatementDate)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load unmatched transactions: %w", err)
			return
		}

		matchResult := s.matching.Match(lines, transactions)

		reconciliation, err := ledger.NewBankReconciliation(
			tenantID,
			req.ReconciliationNumber,
			req.BankAccountID,
			req.PeriodID,
			req.StatementDate,
			valueobject.Currency(req.Currency),
			req.BankOpeningBalance,
			req.BankClosingBalance,
			req.SystemOpeningBalance,
			req.SystemClosingBalance,
		)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		if err := reconciliation.SetItems(matchResult.Items); err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		matched, err := s.applyMatches(transactions, matchResult.Matched)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		if err := s.reconciliationRepo.Save(c, reconciliation); err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to save reconciliation: %w", err)
			return
		}
		if len(matched) > 0 {
			if err := s.transactionRepo.SaveAll(c, matched); err != nil {
				telemetry.RecordError(span, err)
				operationErr = fmt.Errorf("failed to save matched transactions: %w", err)
				return
			}
		}

		telemetry.SetAttributes(span,
			"matched_count", reconciliation.MatchedCount(),
			"unmatched_count", reconciliation.UnmatchedCount(),
		)
		response = toReconciliationResponse(reconciliation)
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// AcceptAsAdjustment turns an unmatched residue into a pending adjustment
func (s *ReconciliationService) AcceptAsAdjustment(ctx context.Context, tenantID, reconciliationID, itemID uuid.UUID, description string) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "accept_adjustment")
	defer span.End()

	return s.update(ctx, tenantID, reconciliationID, func(r *ledger.BankReconciliation) error {
		return r.AcceptAsAdjustment(itemID, description)
	})
}

// ApproveReconciliationAdjustment approves a pending adjustment, linking the
// journal entry that books the difference
func (s *ReconciliationService) ApproveReconciliationAdjustment(ctx context.Context, tenantID, reconciliationID, itemID, journalEntryID uuid.UUID) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "approve_reconciliation_adjustment")
	defer span.End()

	entry, err := s.entryRepo.FindByIDForTenant(ctx, tenantID, journalEntryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load journal entry: %w", err)
	}
	if entry == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Journal entry not found")
	}
	if !entry.IsPosted() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Journal entry %s must be posted before it can back an adjustment", entry.EntryNumber))
	}

	return s.update(ctx, tenantID, reconciliationID, func(r *ledger.BankReconciliation) error {
		return r.ApproveAdjustment(itemID, journalEntryID)
	})
}

// CompleteReconciliation completes a fully explained reconciliation and marks
// every matched transaction reconciled
func (s *ReconciliationService) CompleteReconciliation(ctx context.Context, tenantID, reconciliationID, completedBy uuid.UUID) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "complete_reconciliation")
	defer span.End()

	var response *ReconciliationResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationReconcile, "complete"), func(c context.Context) {
		reconciliation, err := s.loadReconciliation(c, tenantID, reconciliationID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		if err := reconciliation.Complete(completedBy); err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		reconciled, err := s.markReconciled(c, tenantID, reconciliation)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		if err := s.reconciliationRepo.SaveWithLock(c, reconciliation); err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to save reconciliation: %w", err)
			return
		}
		if len(reconciled) > 0 {
			if err := s.transactionRepo.SaveAll(c, reconciled); err != nil {
				telemetry.RecordError(span, err)
				operationErr = fmt.Errorf("failed to save reconciled transactions: %w", err)
				return
			}
		}
		publishEvents(c, s.eventBus, reconciliation)

		response = toReconciliationResponse(reconciliation)
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// CancelReconciliation abandons an open reconciliation and releases every
// transaction it had matched
func (s *ReconciliationService) CancelReconciliation(ctx context.Context, tenantID, reconciliationID uuid.UUID) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "cancel_reconciliation")
	defer span.End()

	reconciliation, err := s.loadReconciliation(ctx, tenantID, reconciliationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	released, err := s.unmatchTransactions(ctx, tenantID, reconciliation)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := reconciliation.Cancel(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.reconciliationRepo.SaveWithLock(ctx, reconciliation); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save reconciliation: %w", err)
	}
	if len(released) > 0 {
		if err := s.transactionRepo.SaveAll(ctx, released); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save released transactions: %w", err)
		}
	}
	return toReconciliationResponse(reconciliation), nil
}

// GetReconciliation retrieves a reconciliation by ID
func (s *ReconciliationService) GetReconciliation(ctx context.Context, tenantID, reconciliationID uuid.UUID) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_reconciliation")
	defer span.End()

	reconciliation, err := s.loadReconciliation(ctx, tenantID, reconciliationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toReconciliationResponse(reconciliation), nil
}

// ListReconciliations lists reconciliations for a tenant with filtering
func (s *ReconciliationService) ListReconciliations(ctx context.Context, tenantID uuid.UUID, filter ReconciliationListFilter) ([]*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "list_reconciliations")
	defer span.End()

	domainFilter := ledger.ReconciliationFilter{
		Filter:        filter.Filter,
		BankAccountID: filter.BankAccountID,
		PeriodID:      filter.PeriodID,
	}
	if filter.Status != nil {
		status := ledger.ReconciliationStatus(*filter.Status)
		domainFilter.Status = &status
	}

	reconciliations, err := s.reconciliationRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}

	responses := make([]*ReconciliationResponse, len(reconciliations))
	for i := range reconciliations {
		responses[i] = toReconciliationResponse(&reconciliations[i])
	}
	return responses, nil
}

// ListTransactions lists bank transactions for a tenant with filtering
func (s *ReconciliationService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter TransactionListFilter) ([]*BankTransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "list_transactions")
	defer span.End()

	domainFilter := ledger.BankTransactionFilter{
		Filter:        filter.Filter,
		BankAccountID: filter.BankAccountID,
		FromDate:      filter.FromDate,
		ToDate:        filter.ToDate,
		Reference:     filter.Reference,
	}
	if filter.Type != nil {
		txType := ledger.BankTransactionType(*filter.Type)
		domainFilter.Type = &txType
	}
	if filter.MatchStatus != nil {
		status := ledger.MatchStatus(*filter.MatchStatus)
		domainFilter.MatchStatus = &status
	}

	transactions, err := s.transactionRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list bank transactions: %w", err)
	}

	responses := make([]*BankTransactionResponse, len(transactions))
	for i := range transactions {
		responses[i] = toBankTransactionResponse(&transactions[i])
	}
	return responses, nil
}

// importStatement fetches the statement within a bounded timeout so a slow
// storage backend cannot hang a reconciliation run
func (s *ReconciliationService) importStatement(ctx context.Context, tenantID uuid.UUID, key string) ([]ledger.StatementLine, error) {
	importCtx, cancel := context.WithTimeout(ctx, statementImportTimeout)
	defer cancel()

	lines, err := s.importer.Import(importCtx, tenantID, key)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.NewDomainError("STATEMENT_IMPORT_TIMEOUT",
				fmt.Sprintf("Statement import for %s timed out after %s", key, statementImportTimeout))
		}
		return nil, fmt.Errorf("failed to import statement: %w", err)
	}
	return lines, nil
}

// applyMatches marks the matched transactions and returns the modified set
func (s *ReconciliationService) applyMatches(transactions []*ledger.BankTransaction, pairs []ledger.MatchedPair) ([]*ledger.BankTransaction, error) {
	byID := make(map[uuid.UUID]*ledger.BankTransaction, len(transactions))
	for _, t := range transactions {
		byID[t.ID] = t
	}
	matched := make([]*ledger.BankTransaction, 0, len(pairs))
	for _, pair := range pairs {
		transaction, ok := byID[pair.TransactionID]
		if !ok {
			return nil, shared.NewDomainError("CONSISTENCY_ERROR",
				fmt.Sprintf("Matched transaction %s is not in the candidate set", pair.TransactionID))
		}
		if err := transaction.MarkMatched(pair.ItemID); err != nil {
			return nil, err
		}
		matched = append(matched, transaction)
	}
	return matched, nil
}

// markReconciled finalizes every matched transaction on a completing run
func (s *ReconciliationService) markReconciled(ctx context.Context, tenantID uuid.UUID, reconciliation *ledger.BankReconciliation) ([]*ledger.BankTransaction, error) {
	reconciled := make([]*ledger.BankTransaction, 0)
	for _, item := range reconciliation.Items {
		if item.ItemType != ledger.ItemTypeMatched || item.TransactionID == nil {
			continue
		}
		transaction, err := s.transactionRepo.FindByIDForTenant(ctx, tenantID, *item.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load bank transaction: %w", err)
		}
		if transaction == nil {
			return nil, shared.NewDomainError("CONSISTENCY_ERROR",
				fmt.Sprintf("Matched transaction %s no longer exists", *item.TransactionID))
		}
		if err := transaction.MarkReconciled(); err != nil {
			return nil, err
		}
		reconciled = append(reconciled, transaction)
	}
	return reconciled, nil
}

// unmatchTransactions releases every transaction a cancelled run had matched
func (s *ReconciliationService) unmatchTransactions(ctx context.Context, tenantID uuid.UUID, reconciliation *ledger.BankReconciliation) ([]*ledger.BankTransaction, error) {
	released := make([]*ledger.BankTransaction, 0)
	for _, item := range reconciliation.Items {
		if item.ItemType != ledger.ItemTypeMatched || item.TransactionID == nil {
			continue
		}
		transaction, err := s.transactionRepo.FindByIDForTenant(ctx, tenantID, *item.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load bank transaction: %w", err)
		}
		if transaction == nil {
			continue
		}
		if err := transaction.Unmatch(); err != nil {
			return nil, err
		}
		released = append(released, transaction)
	}
	return released, nil
}

func (s *ReconciliationService) update(ctx context.Context, tenantID, reconciliationID uuid.UUID, change func(*ledger.BankReconciliation) error) (*ReconciliationResponse, error) {
	reconciliation, err := s.loadReconciliation(ctx, tenantID, reconciliationID)
	if err != nil {
		return nil, err
	}
	if err := change(reconciliation); err != nil {
		return nil, err
	}
	if err := s.reconciliationRepo.SaveWithLock(ctx, reconciliation); err != nil {
		return nil, fmt.Errorf("failed to save reconciliation: %w", err)
	}
	return toReconciliationResponse(reconciliation), nil
}

func (s *ReconciliationService) loadReconciliation(ctx context.Context, tenantID, reconciliationID uuid.UUID) (*ledger.BankReconciliation, error) {
	reconciliation, err := s.reconciliationRepo.FindByIDForTenant(ctx, tenantID, reconciliationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reconciliation: %w", err)
	}
	if reconciliation == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Bank reconciliation not found")
	}
	return reconciliation, nil
}
