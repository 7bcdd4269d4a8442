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
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

// maxPostRetries bounds the optimistic-lock retry loop for a posting. A
// conflict means another posting touched one of our accounts between load and
// save; reloading and recomputing is cheap, so a few attempts absorb normal
// contention.
const maxPostRetries = 3

// PostingService handles application-level journal entry operations
type PostingService struct {
	entryRepo   ledger.JournalEntryRepository
	accountRepo ledger.AccountRepository
	periodRepo  ledger.PeriodRepository
	rateRepo    ledger.ExchangeRateRepository
	posting     *ledger.PostingService
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	eventBus    shared.EventPublisher
}

// NewPostingService creates a new PostingService
func NewPostingService(
	entryRepo ledger.JournalEntryRepository,
	accountRepo ledger.AccountRepository,
	periodRepo ledger.PeriodRepository,
	rateRepo ledger.ExchangeRateRepository,
	posting *ledger.PostingService,
	idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig,
	eventBus shared.EventPublisher,
) *PostingService {
	return &PostingService{
		entryRepo:   entryRepo,
		accountRepo: accountRepo,
		periodRepo:  periodRepo,
		rateRepo:    rateRepo,
		posting:     posting,
		idempotency: idempotency,
		idemConfig:  idemConfig,
		eventBus:    eventBus,
	}
}

// PostLineRequest represents one line of a posting request
type PostLineRequest struct {
	AccountID    uuid.UUID       `json:"account_id" binding:"required"`
	Direction    string          `json:"direction" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Currency     string          `json:"currency" binding:"required"`
	CostCenterID *uuid.UUID      `json:"cost_center_id"`
	Description  string          `json:"description"`
}

// PostEntryRequest represents a request to post a journal entry
type PostEntryRequest struct {
	EntryNumber    string            `json:"entry_number" binding:"required"`
	EntryDate      time.Time         `json:"entry_date" binding:"required"`
	Description    string            `json:"description"`
	SourceType     string            `json:"source_type" binding:"required"`
	SourceID       *uuid.UUID        `json:"source_id"`
	IdempotencyKey string            `json:"idempotency_key"`
	AsAdjustment   bool              `json:"as_adjustment"`
	Lines          []PostLineRequest `json:"lines" binding:"required"`
}

// ReverseEntryRequest represents a request to reverse a posted entry
type ReverseEntryRequest struct {
	EntryNumber    string    `json:"entry_number" binding:"required"`
	EntryDate      time.Time `json:"entry_date" binding:"required"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// EntryListFilter defines filters for listing journal entries
type EntryListFilter struct {
	shared.Filter
	PeriodID   *uuid.UUID `form:"period_id"`
	Status     *string    `form:"status"`
	SourceType *string    `form:"source_type"`
	SourceID   *uuid.UUID `form:"source_id"`
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
	AccountID  *uuid.UUID `form:"account_id"`
}

// PostEntry validates and posts a journal entry. Resubmitting a request with
// the same idempotency key returns the originally posted entry instead of
// posting twice.
func (s *PostingService) PostEntry(ctx context.Context, tenantID uuid.UUID, req PostEntryRequest) (*JournalEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "post_entry")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryNumber, req.EntryNumber,
		telemetry.SpanAttrSourceType, req.SourceType,
		telemetry.SpanAttrEntryDate, req.EntryDate.Format("2006-01-02"),
		telemetry.SpanAttrLineCount, len(req.Lines),
	)

	if existing, err := s.replayForKey(ctx, tenantID, req.IdempotencyKey); existing != nil || err != nil {
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		telemetry.SetAttribute(span, "idempotent_replay", true)
		return existing, nil
	}

	var response *JournalEntryResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationPostEntry, req.SourceType), func(c context.Context) {
		draft, err := s.buildDraft(tenantID, req)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		accountIDs := make([]uuid.UUID, len(draft.Lines))
		for i, line := range draft.Lines {
			accountIDs[i] = line.AccountID
		}

		result, err := s.postWithRetry(c, tenantID, req.EntryDate, req.AsAdjustment, accountIDs, func(pctx ledger.PostingContext) (*ledger.PostingResult, error) {
			return s.posting.Post(draft, pctx)
		})
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		s.rememberKey(c, span, req.IdempotencyKey, result.Entry.ID)
		response = toJournalEntryResponse(result.Entry)
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// ReverseEntry posts the reversing entry for a posted journal entry
func (s *PostingService) ReverseEntry(ctx context.Context, tenantID, entryID uuid.UUID, req ReverseEntryRequest) (*JournalEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reverse_entry")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryNumber, req.EntryNumber,
		telemetry.SpanAttrEntryDate, req.EntryDate.Format("2006-01-02"),
	)

	if existing, err := s.replayForKey(ctx, tenantID, req.IdempotencyKey); existing != nil || err != nil {
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		telemetry.SetAttribute(span, "idempotent_replay", true)
		return existing, nil
	}

	var response *JournalEntryResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationReverseEntry, ""), func(c context.Context) {
		original, err := s.entryRepo.FindByIDForTenant(c, tenantID, entryID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = fmt.Errorf("failed to load journal entry: %w", err)
			return
		}
		if original == nil {
			err := shared.NewDomainError("NOT_FOUND", "Journal entry not found")
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		accountIDs := make([]uuid.UUID, len(original.Lines))
		for i, line := range original.Lines {
			accountIDs[i] = line.AccountID
		}

		// PrepareReversal mutates the original, so each retry attempt works
		// on a freshly loaded copy
		var reversed *ledger.JournalEntry
		result, err := s.postWithRetry(c, tenantID, req.EntryDate, false, accountIDs, func(pctx ledger.PostingContext) (*ledger.PostingResult, error) {
			entry, err := s.entryRepo.FindByIDForTenant(c, tenantID, entryID)
			if err != nil {
				return nil, fmt.Errorf("failed to load journal entry: %w", err)
			}
			if entry == nil {
				return nil, shared.NewDomainError("NOT_FOUND", "Journal entry not found")
			}
			res, err := s.posting.PrepareReversal(entry, req.EntryNumber, req.EntryDate, req.IdempotencyKey, pctx)
			if err != nil {
				return nil, err
			}
			reversed = entry
			return res, nil
		})
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		// The original's reversal link and status were persisted with the
		// reversal itself; only its events remain to publish.
		publishEvents(c, s.eventBus, reversed)

		s.rememberKey(c, span, req.IdempotencyKey, result.Entry.ID)
		response = toJournalEntryResponse(result.Entry)
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// GetEntry retrieves a journal entry by ID
func (s *PostingService) GetEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*JournalEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_entry")
	defer span.End()

	entry, err := s.entryRepo.FindByIDForTenant(ctx, tenantID, entryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load journal entry: %w", err)
	}
	if entry == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Journal entry not found")
	}
	return toJournalEntryResponse(entry), nil
}

// ListEntries lists journal entries for a tenant with filtering
func (s *PostingService) ListEntries(ctx context.Context, tenantID uuid.UUID, filter EntryListFilter) ([]*JournalEntryResponse, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "list_entries")
	defer span.End()

	domainFilter := ledger.JournalEntryFilter{
		Filter:    filter.Filter,
		PeriodID:  filter.PeriodID,
		SourceID:  filter.SourceID,
		FromDate:  filter.FromDate,
		ToDate:    filter.ToDate,
		AccountID: filter.AccountID,
	}
	if filter.Status != nil {
		status := ledger.EntryStatus(*filter.Status)
		domainFilter.Status = &status
	}
	if filter.SourceType != nil {
		sourceType := ledger.EntrySourceType(*filter.SourceType)
		domainFilter.SourceType = &sourceType
	}

	entries, err := s.entryRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, fmt.Errorf("failed to list journal entries: %w", err)
	}
	total, err := s.entryRepo.Count(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	responses := make([]*JournalEntryResponse, len(entries))
	for i := range entries {
		responses[i] = toJournalEntryResponse(&entries[i])
	}
	return responses, total, nil
}

// buildDraft converts a request into a domain posting draft
func (s *PostingService) buildDraft(tenantID uuid.UUID, req PostEntryRequest) (ledger.JournalEntryDraft, error) {
	lines := make([]ledger.JournalLineDraft, len(req.Lines))
	for i, l := range req.Lines {
		amount, err := valueobject.NewMoney(l.Amount, valueobject.Currency(l.Currency))
		if err != nil {
			return ledger.JournalEntryDraft{}, err
		}
		lines[i] = ledger.JournalLineDraft{
			AccountID:    l.AccountID,
			Direction:    ledger.LineDirection(l.Direction),
			Amount:       amount,
			CostCenterID: l.CostCenterID,
			Description:  l.Description,
		}
	}
	return ledger.JournalEntryDraft{
		TenantID:       tenantID,
		EntryNumber:    req.EntryNumber,
		EntryDate:      req.EntryDate,
		Description:    req.Description,
		SourceType:     ledger.EntrySourceType(req.SourceType),
		SourceID:       req.SourceID,
		IdempotencyKey: req.IdempotencyKey,
		Lines:          lines,
	}, nil
}

// postWithRetry assembles a posting context, runs the posting computation and
// persists the result, retrying on optimistic-lock conflicts with freshly
// loaded account state. The compute callback must be safe to re-run; the
// domain posting core builds a new entry on every call.
func (s *PostingService) postWithRetry(
	ctx context.Context,
	tenantID uuid.UUID,
	entryDate time.Time,
	asAdjustment bool,
	accountIDs []uuid.UUID,
	compute func(ledger.PostingContext) (*ledger.PostingResult, error),
) (*ledger.PostingResult, error) {
	period, err := s.periodRepo.FindByDate(ctx, tenantID, entryDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounting period: %w", err)
	}
	if period == nil {
		return nil, shared.NewDomainError("PERIOD_NOT_FOUND",
			fmt.Sprintf("No accounting period covers entry date %s", entryDate.Format("2006-01-02")))
	}

	rates, err := s.loadRateTable(ctx, tenantID, period)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxPostRetries; attempt++ {
		accounts, err := s.accountRepo.FindWithAncestors(ctx, tenantID, accountIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load accounts: %w", err)
		}

		result, err := compute(ledger.PostingContext{
			Period:       period,
			Accounts:     accounts,
			Rates:        rates,
			AsAdjustment: asAdjustment,
		})
		if err != nil {
			return nil, err
		}

		if err := s.entryRepo.SavePosting(ctx, result, accounts); err != nil {
			if isConcurrencyConflict(err) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("failed to persist posting: %w", err)
		}
		publishEvents(ctx, s.eventBus, result.Entry)
		return result, nil
	}
	return nil, lastErr
}

// loadRateTable builds the rate table covering the full period so every
// entry date inside it can be converted
func (s *PostingService) loadRateTable(ctx context.Context, tenantID uuid.UUID, period *ledger.AccountingPeriod) (*ledger.RateTable, error) {
	rates, err := s.rateRepo.FindRatesForRange(ctx, tenantID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	return ledger.NewRateTable(valueobject.DefaultCurrency, rates), nil
}

// replayForKey returns the previously posted entry for an idempotency key, if any
func (s *PostingService) replayForKey(ctx context.Context, tenantID uuid.UUID, key string) (*JournalEntryResponse, error) {
	if key == "" || s.idempotency == nil || !s.idemConfig.Enabled {
		return nil, nil
	}
	entryID, found, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if !found {
		return nil, nil
	}
	entry, err := s.entryRepo.FindByIDForTenant(ctx, tenantID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entry: %w", err)
	}
	if entry == nil {
		// Stale key; treat as a fresh request
		return nil, nil
	}
	return toJournalEntryResponse(entry), nil
}

// rememberKey records the posted entry for the idempotency key. Failures are
// recorded on the span but do not fail the posting; the entry is already
// durable and the worst case is a duplicate-number rejection on resubmit.
func (s *PostingService) rememberKey(ctx context.Context, span trace.Span, key string, entryID uuid.UUID) {
	if key == "" || s.idempotency == nil || !s.idemConfig.Enabled {
		return
	}
	if _, err := s.idempotency.Remember(ctx, key, entryID, s.idemConfig.TTL); err != nil {
		telemetry.RecordError(span, err)
	}
}

func isConcurrencyConflict(err error) bool {
	domainErr, ok := err.(*shared.DomainError)
	return ok && domainErr.Code == "CONCURRENCY_CONFLICT"
}
