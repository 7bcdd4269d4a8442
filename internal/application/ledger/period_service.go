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
	"go.opentelemetry.io/otel/trace"
)

// PeriodService handles application-level accounting period operations
type PeriodService struct {
	periodRepo  ledger.PeriodRepository
	accountRepo ledger.AccountRepository
	entryRepo   ledger.JournalEntryRepository
	rateRepo    ledger.ExchangeRateRepository
	closeSvc    *ledger.PeriodCloseService
	tx          shared.TransactionManager
	eventBus    shared.EventPublisher
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(
	periodRepo ledger.PeriodRepository,
	accountRepo ledger.AccountRepository,
	entryRepo ledger.JournalEntryRepository,
	rateRepo ledger.ExchangeRateRepository,
	closeSvc *ledger.PeriodCloseService,
	tx shared.TransactionManager,
	eventBus shared.EventPublisher,
) *PeriodService {
	return &PeriodService{
		periodRepo:  periodRepo,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		rateRepo:    rateRepo,
		closeSvc:    closeSvc,
		tx:          tx,
		eventBus:    eventBus,
	}
}

// CreatePeriodRequest represents a request to create an accounting period
type CreatePeriodRequest struct {
	Name             string     `json:"name" binding:"required"`
	FiscalYear       int        `json:"fiscal_year" binding:"required"`
	PeriodNumber     int        `json:"period_number" binding:"required"`
	PeriodType       string     `json:"period_type" binding:"required"`
	StartDate        time.Time  `json:"start_date" binding:"required"`
	EndDate          time.Time  `json:"end_date" binding:"required"`
	PreviousPeriodID *uuid.UUID `json:"previous_period_id"`
}

// ClosePeriodRequest represents a request to close a period into its successor
type ClosePeriodRequest struct {
	RetainedEarningsAccountID uuid.UUID  `json:"retained_earnings_account_id" binding:"required"`
	ClosingEntryNumber        string     `json:"closing_entry_number" binding:"required"`
	OpeningEntryNumber        string     `json:"opening_entry_number" binding:"required"`
	ClosingIdempotencyKey     string     `json:"closing_idempotency_key"`
	OpeningIdempotencyKey     string     `json:"opening_idempotency_key"`
	ClosedBy                  *uuid.UUID `json:"closed_by"`
	Notes                     string     `json:"notes"`
}

// PeriodCloseResponse carries the outcome of a period close
type PeriodCloseResponse struct {
	Period       *PeriodResponse       `json:"period"`
	NextPeriod   *PeriodResponse       `json:"next_period"`
	ClosingEntry *JournalEntryResponse `json:"closing_entry"`
	OpeningEntry *JournalEntryResponse `json:"opening_entry"`
}

// PeriodListFilter defines filters for listing periods
type PeriodListFilter struct {
	shared.Filter
	FiscalYear *int    `form:"fiscal_year"`
	Status     *string `form:"status"`
	Type       *string `form:"type"`
}

// CreatePeriod creates an accounting period and links it to its predecessor
func (s *PeriodService) CreatePeriod(ctx context.Context, tenantID uuid.UUID, req CreatePeriodRequest) (*PeriodResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_period")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrPeriodName, req.Name)

	period, err := ledger.NewAccountingPeriod(
		tenantID,
		req.Name,
		req.FiscalYear,
		req.PeriodNumber,
		ledger.PeriodType(req.PeriodType),
		req.StartDate,
		req.EndDate,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.PreviousPeriodID != nil {
		previous, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, *req.PreviousPeriodID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load previous period: %w", err)
		}
		if previous == nil {
			return nil, shared.NewDomainError("NOT_FOUND", "Previous period not found")
		}
		period.LinkPrevious(previous.ID)
		previous.LinkNext(period.ID)
		err = s.tx.Do(ctx, func(ctx context.Context) error {
			if err := s.periodRepo.Save(ctx, period); err != nil {
				return fmt.Errorf("failed to save period: %w", err)
			}
			return s.periodRepo.SaveWithLock(ctx, previous)
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to link previous period: %w", err)
		}
	} else if err := s.periodRepo.Save(ctx, period); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save period: %w", err)
	}

	telemetry.SetOK(span)
	return toPeriodResponse(period), nil
}

// GetPeriod retrieves a period by ID
func (s *PeriodService) GetPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*PeriodResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_period")
	defer span.End()

	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, periodID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	if period == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Accounting period not found")
	}
	return toPeriodResponse(period), nil
}

// GetPeriodByDate retrieves the period containing the given date
func (s *PeriodService) GetPeriodByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*PeriodResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_period_by_date")
	defer span.End()

	period, err := s.periodRepo.FindByDate(ctx, tenantID, date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	if period == nil {
		return nil, shared.NewDomainError("NOT_FOUND",
			fmt.Sprintf("No accounting period covers %s", date.Format("2006-01-02")))
	}
	return toPeriodResponse(period), nil
}

// ListPeriods lists periods for a tenant with filtering
func (s *PeriodService) ListPeriods(ctx context.Context, tenantID uuid.UUID, filter PeriodListFilter) ([]*PeriodResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "list_periods")
	defer span.End()

	domainFilter := ledger.PeriodFilter{
		Filter:     filter.Filter,
		FiscalYear: filter.FiscalYear,
	}
	if filter.Status != nil {
		status := ledger.PeriodStatus(*filter.Status)
		domainFilter.Status = &status
	}
	if filter.Type != nil {
		periodType := ledger.PeriodType(*filter.Type)
		domainFilter.Type = &periodType
	}

	periods, err := s.periodRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}

	responses := make([]*PeriodResponse, len(periods))
	for i := range periods {
		responses[i] = toPeriodResponse(&periods[i])
	}
	return responses, nil
}

// SoftClosePeriod raises the posting barrier on an open period. Regular
// postings are refused afterwards; period adjustments still pass.
func (s *PeriodService) SoftClosePeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*PeriodResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "soft_close_period")
	defer span.End()

	return s.transition(ctx, span, tenantID, periodID, func(p *ledger.AccountingPeriod) error {
		return p.SoftClose()
	})
}

// ReopenPeriod lifts the posting barrier on a soft-closed period
func (s *PeriodService) ReopenPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*PeriodResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reopen_period")
	defer span.End()

	return s.transition(ctx, span, tenantID, periodID, func(p *ledger.AccountingPeriod) error {
		return p.Reopen()
	})
}

// ClosePeriod permanently closes a soft-closed period: the closing entry
// zeroes the books, the opening entry carries balance-sheet balances into the
// next period, and the period becomes immutable.
func (s *PeriodService) ClosePeriod(ctx context.Context, tenantID, periodID uuid.UUID, req ClosePeriodRequest) (*PeriodCloseResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "close_period")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrPeriodID, periodID.String())

	var response *PeriodCloseResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationClosePeriod, ""), func(c context.Context) {
		period, err := s.periodRepo.FindByIDForTenant(c, tenantID, periodID)
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
		if period.NextPeriodID == nil {
			err := shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Period %s has no successor to carry balances into", period.Name))
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		nextPeriod, err := s.periodRepo.FindByIDForTenant(c, tenantID, *period.NextPeriodID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load next period: %w", err)
			return
		}
		if nextPeriod == nil {
			err := shared.NewDomainError("NOT_FOUND", "Next accounting period not found")
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		accounts, err := s.loadAllAccounts(c, tenantID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		rates, err := s.rateRepo.FindRatesForRange(c, tenantID, period.StartDate, nextPeriod.EndDate)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load exchange rates: %w", err)
			return
		}

		result, err := s.closeSvc.Close(ledger.PeriodCloseContext{
			Period:                period,
			NextPeriod:            nextPeriod,
			Accounts:              accounts,
			RetainedEarningsID:    req.RetainedEarningsAccountID,
			Rates:                 ledger.NewRateTable(valueobject.DefaultCurrency, rates),
			ClosingEntryNumber:    req.ClosingEntryNumber,
			OpeningEntryNumber:    req.OpeningEntryNumber,
			ClosingIdempotencyKey: req.ClosingIdempotencyKey,
			OpeningIdempotencyKey: req.OpeningIdempotencyKey,
			ClosedBy:              req.ClosedBy,
			CloseNotes:            req.Notes,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		// Both generated entries and both period rows commit or roll back
		// together; a half-closed period must never be observable.
		err = s.tx.Do(c, func(c context.Context) error {
			if err := s.entryRepo.SavePosting(c, result.ClosingResult, accounts); err != nil {
				return fmt.Errorf("failed to persist closing entry: %w", err)
			}
			if err := s.entryRepo.SavePosting(c, result.OpeningResult, accounts); err != nil {
				return fmt.Errorf("failed to persist opening entry: %w", err)
			}
			if err := s.periodRepo.SaveWithLock(c, period); err != nil {
				return fmt.Errorf("failed to persist closed period: %w", err)
			}
			if err := s.periodRepo.SaveWithLock(c, nextPeriod); err != nil {
				return fmt.Errorf("failed to persist next period: %w", err)
			}
			return nil
		})
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}
		publishEvents(c, s.eventBus, period, result.ClosingResult.Entry, result.OpeningResult.Entry)

		response = &PeriodCloseResponse{
			Period:       toPeriodResponse(period),
			NextPeriod:   toPeriodResponse(nextPeriod),
			ClosingEntry: toJournalEntryResponse(result.ClosingResult.Entry),
			OpeningEntry: toJournalEntryResponse(result.OpeningResult.Entry),
		}
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// transition loads a period, applies a state change and saves it with a
// version check
func (s *PeriodService) transition(ctx context.Context, span trace.Span, tenantID, periodID uuid.UUID, change func(*ledger.AccountingPeriod) error) (*PeriodResponse, error) {
	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, periodID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	if period == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Accounting period not found")
	}
	if err := change(period); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.periodRepo.SaveWithLock(ctx, period); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save period: %w", err)
	}
	publishEvents(ctx, s.eventBus, period)
	return toPeriodResponse(period), nil
}

// loadAllAccounts loads the full chart of accounts keyed by ID, the working
// set a period close needs
func (s *PeriodService) loadAllAccounts(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]*ledger.Account, error) {
	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, ledger.AccountFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load chart of accounts: %w", err)
	}
	byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
	for i := range accounts {
		byID[accounts[i].ID] = &accounts[i]
	}
	return byID, nil
}
