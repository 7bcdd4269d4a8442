package ratefeed

import (
	"context"
	"fmt"
	"time"

	app "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantSource lists the tenants rates should be synced for
type TenantSource interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Syncer fetches the daily feed once and stores the rates for every active
// tenant. Rates target the reporting currency.
type Syncer struct {
	client     *Client
	rates      *app.RateService
	tenants    TenantSource
	currencies []string
	logger     *zap.Logger
}

// NewSyncer creates a rate feed syncer
func NewSyncer(client *Client, rates *app.RateService, tenants TenantSource, currencies []string, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		client:     client,
		rates:      rates,
		tenants:    tenants,
		currencies: currencies,
		logger:     logger,
	}
}

// SyncDaily fetches the rates quoted for a date and persists them for all
// active tenants. A failure for one tenant does not stop the others; the
// first error is returned after the full pass.
func (s *Syncer) SyncDaily(ctx context.Context, date time.Time) error {
	rates, err := s.client.FetchDaily(ctx, date, s.currencies)
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		s.logger.Warn("rate feed returned no rates",
			zap.String("date", date.Format("2006-01-02")))
		return nil
	}

	reqs := make([]app.SaveRateRequest, len(rates))
	for i, r := range rates {
		reqs[i] = app.SaveRateRequest{
			RateDate:       r.Date,
			SourceCurrency: r.Currency,
			TargetCurrency: string(valueobject.DefaultCurrency),
			BuyingRate:     r.Buying,
			SellingRate:    r.Selling,
			EffectiveRate:  r.Effective,
		}
	}

	tenantIDs, err := s.tenants.GetActiveTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants for rate sync: %w", err)
	}

	var firstErr error
	synced := 0
	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.rates.SaveRates(ctx, tenantID, reqs); err != nil {
			s.logger.Error("rate sync failed for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		synced++
	}

	s.logger.Info("rate sync completed",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("rates", len(rates)),
		zap.Int("tenants", synced),
	)

	return firstErr
}
