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
)

// RateService handles application-level exchange rate operations
type RateService struct {
	rateRepo ledger.ExchangeRateRepository
}

// NewRateService creates a new RateService
func NewRateService(rateRepo ledger.ExchangeRateRepository) *RateService {
	return &RateService{rateRepo: rateRepo}
}

// RateResponse represents an exchange rate in API responses
type RateResponse struct {
	ID             uuid.UUID       `json:"id"`
	RateDate       time.Time       `json:"rate_date"`
	SourceCurrency string          `json:"source_currency"`
	TargetCurrency string          `json:"target_currency"`
	BuyingRate     decimal.Decimal `json:"buying_rate"`
	SellingRate    decimal.Decimal `json:"selling_rate"`
	EffectiveRate  decimal.Decimal `json:"effective_rate"`
}

func toRateResponse(r *ledger.ExchangeRate) *RateResponse {
	return &RateResponse{
		ID:             r.ID,
		RateDate:       r.RateDate,
		SourceCurrency: string(r.SourceCurrency),
		TargetCurrency: string(r.TargetCurrency),
		BuyingRate:     r.BuyingRate,
		SellingRate:    r.SellingRate,
		EffectiveRate:  r.EffectiveRate,
	}
}

// SaveRateRequest represents a request to record one exchange rate
type SaveRateRequest struct {
	RateDate       time.Time       `json:"rate_date" binding:"required"`
	SourceCurrency string          `json:"source_currency" binding:"required"`
	TargetCurrency string          `json:"target_currency" binding:"required"`
	BuyingRate     decimal.Decimal `json:"buying_rate"`
	SellingRate    decimal.Decimal `json:"selling_rate"`
	EffectiveRate  decimal.Decimal `json:"effective_rate" binding:"required"`
}

// SaveRate records an exchange rate, overwriting any rate already stored for
// the same pair and date
func (s *RateService) SaveRate(ctx context.Context, tenantID uuid.UUID, req SaveRateRequest) (*RateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "save_rate")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCurrency, req.SourceCurrency,
		"rate_date", req.RateDate.Format("2006-01-02"),
	)

	rate, err := ledger.NewExchangeRate(
		tenantID,
		req.RateDate,
		valueobject.Currency(req.SourceCurrency),
		valueobject.Currency(req.TargetCurrency),
		req.BuyingRate,
		req.SellingRate,
		req.EffectiveRate,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.rateRepo.Save(ctx, rate); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save exchange rate: %w", err)
	}

	telemetry.SetOK(span)
	return toRateResponse(rate), nil
}

// SaveRates records a batch of exchange rates, e.g. a daily feed sync
func (s *RateService) SaveRates(ctx context.Context, tenantID uuid.UUID, reqs []SaveRateRequest) ([]*RateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "save_rates")
	defer span.End()

	telemetry.SetAttribute(span, "rate_count", len(reqs))

	rates := make([]*ledger.ExchangeRate, len(reqs))
	for i, req := range reqs {
		rate, err := ledger.NewExchangeRate(
			tenantID,
			req.RateDate,
			valueobject.Currency(req.SourceCurrency),
			valueobject.Currency(req.TargetCurrency),
			req.BuyingRate,
			req.SellingRate,
			req.EffectiveRate,
		)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		rates[i] = rate
	}

	if err := s.rateRepo.SaveBatch(ctx, rates); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save exchange rates: %w", err)
	}

	responses := make([]*RateResponse, len(rates))
	for i, rate := range rates {
		responses[i] = toRateResponse(rate)
	}

	telemetry.SetOK(span)
	return responses, nil
}

// GetLatestRate returns the latest rate for a pair dated on or before the
// given date
func (s *RateService) GetLatestRate(ctx context.Context, tenantID uuid.UUID, source, target string, date time.Time) (*RateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_latest_rate")
	defer span.End()

	rate, err := s.rateRepo.FindLatestBefore(ctx, tenantID, valueobject.Currency(source), valueobject.Currency(target), date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load exchange rate: %w", err)
	}
	if rate == nil {
		return nil, shared.NewDomainError("MISSING_EXCHANGE_RATE",
			fmt.Sprintf("No %s/%s rate on or before %s", source, target, date.Format("2006-01-02")))
	}
	return toRateResponse(rate), nil
}

// ListRates lists the rates dated inside a range
func (s *RateService) ListRates(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*RateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "list_rates")
	defer span.End()

	rates, err := s.rateRepo.FindRatesForRange(ctx, tenantID, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list exchange rates: %w", err)
	}

	responses := make([]*RateResponse, len(rates))
	for i, rate := range rates {
		responses[i] = toRateResponse(rate)
	}
	return responses, nil
}
