package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// RevaluationService handles application-level foreign currency revaluation
type RevaluationService struct {
	adjustmentRepo ledger.AdjustmentRepository
	accountRepo    ledger.AccountRepository
	periodRepo     ledger.PeriodRepository
	rateRepo       ledger.ExchangeRateRepository
	entryRepo      ledger.JournalEntryRepository
	bankTxRepo     ledger.BankTransactionRepository
	revaluation    *ledger.RevaluationService
	tx             shared.TransactionManager
	eventBus       shared.EventPublisher
}

// NewRevaluationService creates a new RevaluationService
func NewRevaluationService(
	adjustmentRepo ledger.AdjustmentRepository,
	accountRepo ledger.AccountRepository,
	periodRepo ledger.PeriodRepository,
	rateRepo ledger.ExchangeRateRepository,
	entryRepo ledger.JournalEntryRepository,
	bankTxRepo ledger.BankTransactionRepository,
	revaluation *ledger.RevaluationService,
	tx shared.TransactionManager,
	eventBus shared.EventPublisher,
) *RevaluationService {
	return &RevaluationService{
		adjustmentRepo: adjustmentRepo,
		accountRepo:    accountRepo,
		periodRepo:     periodRepo,
		rateRepo:       rateRepo,
		entryRepo:      entryRepo,
		bankTxRepo:     bankTxRepo,
		revaluation:    revaluation,
		tx:             tx,
		eventBus:       eventBus,
	}
}

// ComputeRevaluationRequest represents a request to run a revaluation. The
// run covers every eligible account unless narrowed: AccountIDs revalues only
// the named accounts, TransactionIDs revalues the accounts touched by the
// named bank transactions' journal entries. The two scopes are exclusive.
type ComputeRevaluationRequest struct {
	AdjustmentNumber string      `json:"adjustment_number" binding:"required"`
	ValuationDate    time.Time   `json:"valuation_date" binding:"required"`
	GainAccountID    uuid.UUID   `json:"gain_account_id" binding:"required"`
	LossAccountID    uuid.UUID   `json:"loss_account_id" binding:"required"`
	ValuationType    string      `json:"valuation_type"`
	AccountIDs       []uuid.UUID `json:"account_ids"`
	TransactionIDs   []uuid.UUID `json:"transaction_ids"`
	Description      string      `json:"description"`
}

// JournalizeAdjustmentRequest represents a request to post an approved adjustment
type JournalizeAdjustmentRequest struct {
	EntryNumber    string `json:"entry_number" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

// AdjustmentListFilter defines filters for listing adjustments
type AdjustmentListFilter struct {
	shared.Filter
	Status   *string    `form:"status"`
	PeriodID *uuid.UUID `form:"period_id"`
	FromDate *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"to_date" time_format:"2006-01-02"`
}

// ComputeRevaluation measures every foreign-currency account against the
// valuation-date rate and records the resulting draft adjustment. A run with
// no drifted balances is still recorded, with no lines.
func (s *RevaluationService) ComputeRevaluation(ctx context.Context, tenantID uuid.UUID, req ComputeRevaluationRequest) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "compute_revaluation")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrAdjustmentNumber, req.AdjustmentNumber,
		telemetry.SpanAttrValuationDate, req.ValuationDate.Format("2006-01-02"),
	)

	var response *AdjustmentResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationRevalue, "compute"), func(c context.Context) {
		period, err := s.periodRepo.FindByDate(c, tenantID, req.ValuationDate)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load period: %w", err)
			return
		}
		if period == nil {
			err := shared.NewDomainError("PERIOD_NOT_FOUND",
				fmt.Sprintf("No accounting period covers valuation date %s", req.ValuationDate.Format("2006-01-02")))
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		accounts, err := s.accountRepo.FindAllForTenant(c, tenantID, ledger.AccountFilter{})
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load chart of accounts: %w", err)
			return
		}
		byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
		for i := range accounts {
			byID[accounts[i].ID] = &accounts[i]
		}

		rates, err := s.rateRepo.FindRatesForRange(c, tenantID, period.StartDate, period.EndDate)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load exchange rates: %w", err)
			return
		}

		scopeIDs, valuationType, err := s.resolveScope(c, tenantID, req)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		adjustment, err := s.revaluation.Compute(ledger.RevaluationInput{
			TenantID:         tenantID,
			AdjustmentNumber: req.AdjustmentNumber,
			ValuationDate:    req.ValuationDate,
			ValuationType:    valuationType,
			Period:           period,
			Accounts:         byID,
			ScopeAccountIDs:  scopeIDs,
			Rates:            ledger.NewRateTable(valueobject.DefaultCurrency, rates),
			GainAccountID:    req.GainAccountID,
			LossAccountID:    req.LossAccountID,
			Description:      req.Description,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		if err := s.adjustmentRepo.Save(c, adjustment); err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to save adjustment: %w", err)
			return
		}

		telemetry.SetAttribute(span, telemetry.SpanAttrLineCount, len(adjustment.Lines))
		response = toAdjustmentResponse(adjustment)
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// resolveScope narrows a revaluation run to the requested accounts. A
// transaction scope is resolved to the accounts its journal entries touch;
// an unposted bank transaction has no ledger footprint and is rejected.
func (s *RevaluationService) resolveScope(ctx context.Context, tenantID uuid.UUID, req ComputeRevaluationRequest) ([]uuid.UUID, ledger.ValuationType, error) {
	if len(req.AccountIDs) > 0 && len(req.TransactionIDs) > 0 {
		return nil, "", shared.NewDomainError("INVALID_SCOPE",
			"A revaluation run is scoped by accounts or by transactions, not both")
	}

	valuationType := ledger.ValuationType(req.ValuationType)
	if len(req.TransactionIDs) > 0 && req.ValuationType == "" {
		valuationType = ledger.ValuationTransaction
	}

	if len(req.AccountIDs) > 0 {
		return req.AccountIDs, valuationType, nil
	}
	if len(req.TransactionIDs) == 0 {
		return nil, valuationType, nil
	}

	seen := make(map[uuid.UUID]bool)
	scope := make([]uuid.UUID, 0, len(req.TransactionIDs))
	for _, txID := range req.TransactionIDs {
		bankTx, err := s.bankTxRepo.FindByIDForTenant(ctx, tenantID, txID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load bank transaction: %w", err)
		}
		if bankTx == nil {
			return nil, "", shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("Bank transaction %s not found", txID))
		}
		if bankTx.JournalEntryID == nil {
			return nil, "", shared.NewDomainError("INVALID_SCOPE",
				fmt.Sprintf("Bank transaction %s has no journal entry to revalue", bankTx.TransactionNumber))
		}
		entry, err := s.entryRepo.FindByIDForTenant(ctx, tenantID, *bankTx.JournalEntryID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load journal entry: %w", err)
		}
		if entry == nil {
			return nil, "", shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("Journal entry %s not found", bankTx.JournalEntryID))
		}
		for _, line := range entry.Lines {
			if !seen[line.AccountID] {
				seen[line.AccountID] = true
				scope = append(scope, line.AccountID)
			}
		}
	}
	return scope, valuationType, nil
}

// ApproveAdjustment approves a draft adjustment for journalizing
func (s *RevaluationService) ApproveAdjustment(ctx context.Context, tenantID, adjustmentID, approvedBy uuid.UUID) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "approve_adjustment")
	defer span.End()

	adjustment, err := s.loadAdjustment(ctx, tenantID, adjustmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := adjustment.Approve(approvedBy); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.adjustmentRepo.SaveWithLock(ctx, adjustment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save adjustment: %w", err)
	}
	return toAdjustmentResponse(adjustment), nil
}

// CancelAdjustment cancels a draft or approved adjustment
func (s *RevaluationService) CancelAdjustment(ctx context.Context, tenantID, adjustmentID uuid.UUID) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "cancel_adjustment")
	defer span.End()

	adjustment, err := s.loadAdjustment(ctx, tenantID, adjustmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := adjustment.Cancel(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.adjustmentRepo.SaveWithLock(ctx, adjustment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save adjustment: %w", err)
	}
	return toAdjustmentResponse(adjustment), nil
}

// JournalizeAdjustment posts an approved adjustment to the ledger as a
// period adjustment entry
func (s *RevaluationService) JournalizeAdjustment(ctx context.Context, tenantID, adjustmentID uuid.UUID, req JournalizeAdjustmentRequest) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "journalize_adjustment")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrEntryNumber, req.EntryNumber)

	var response *AdjustmentResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationRevalue, "journalize"), func(c context.Context) {
		adjustment, err := s.loadAdjustment(c, tenantID, adjustmentID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		period, err := s.periodRepo.FindByIDForTenant(c, tenantID, adjustment.PeriodID)
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

		accountIDs := make([]uuid.UUID, 0, len(adjustment.Lines)+2)
		for _, line := range adjustment.Lines {
			accountIDs = append(accountIDs, line.AccountID)
		}
		accountIDs = append(accountIDs, adjustment.GainAccountID, adjustment.LossAccountID)

		accounts, err := s.accountRepo.FindWithAncestors(c, tenantID, accountIDs)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load accounts: %w", err)
			return
		}

		rates, err := s.rateRepo.FindRatesForRange(c, tenantID, period.StartDate, period.EndDate)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load exchange rates: %w", err)
			return
		}

		result, err := s.revaluation.Journalize(adjustment, req.EntryNumber, req.IdempotencyKey, ledger.PostingContext{
			Period:   period,
			Accounts: accounts,
			Rates:    ledger.NewRateTable(valueobject.DefaultCurrency, rates),
		})
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		// The adjustment entry and the adjustment's JOURNALIZED flip must
		// land together; otherwise a crash leaves a posted entry behind an
		// adjustment still marked APPROVED.
		err = s.tx.Do(c, func(c context.Context) error {
			if err := s.entryRepo.SavePosting(c, result, accounts); err != nil {
				return fmt.Errorf("failed to persist adjustment entry: %w", err)
			}
			if err := s.adjustmentRepo.SaveWithLock(c, adjustment); err != nil {
				return fmt.Errorf("failed to save adjustment: %w", err)
			}
			return nil
		})
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		publishEvents(c, s.eventBus, adjustment, result.Entry)

		response = toAdjustmentResponse(adjustment)
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// GetAdjustment retrieves an adjustment by ID
func (s *RevaluationService) GetAdjustment(ctx context.Context, tenantID, adjustmentID uuid.UUID) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_adjustment")
	defer span.End()

	adjustment, err := s.loadAdjustment(ctx, tenantID, adjustmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toAdjustmentResponse(adjustment), nil
}

// ListAdjustments lists adjustments for a tenant with filtering
func (s *RevaluationService) ListAdjustments(ctx context.Context, tenantID uuid.UUID, filter AdjustmentListFilter) ([]*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "list_adjustments")
	defer span.End()

	domainFilter := ledger.AdjustmentFilter{
		Filter:   filter.Filter,
		PeriodID: filter.PeriodID,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	}
	if filter.Status != nil {
		status := ledger.AdjustmentStatus(*filter.Status)
		domainFilter.Status = &status
	}

	adjustments, err := s.adjustmentRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}

	responses := make([]*AdjustmentResponse, len(adjustments))
	for i := range adjustments {
		responses[i] = toAdjustmentResponse(&adjustments[i])
	}
	return responses, nil
}

func (s *RevaluationService) loadAdjustment(ctx context.Context, tenantID, adjustmentID uuid.UUID) (*ledger.ExchangeRateAdjustment, error) {
	adjustment, err := s.adjustmentRepo.FindByIDForTenant(ctx, tenantID, adjustmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load adjustment: %w", err)
	}
	if adjustment == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Exchange rate adjustment not found")
	}
	return adjustment, nil
}
