// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the ledger.
// It tracks posting activity, reconciliation health, and revaluation output.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	entryPostedTotal   *Counter
	entryAmountTotal   *Counter
	entryReversedTotal *Counter
	postingFailedTotal *Counter
	reconCompleted     *Counter
	adjustmentPosted   *Counter

	// Gauge metrics (point-in-time values)
	unmatchedTransactions *Gauge
	openReconciliations   *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	ledgerProvider LedgerMetricsProvider
}

// LedgerMetricsProvider provides reconciliation state for periodic metrics
// collection. This interface allows the telemetry layer to query ledger
// state without depending on the ledger domain directly.
type LedgerMetricsProvider interface {
	// GetUnmatchedTransactionCounts returns the count of unmatched bank
	// transactions per bank account for a tenant
	GetUnmatchedTransactionCounts(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error)

	// GetOpenReconciliationCount returns the number of reconciliations
	// still open for a tenant
	GetOpenReconciliationCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	LedgerProvider  LedgerMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		ledgerProvider: cfg.LedgerProvider,
	}

	// Initialize counter metrics
	var err error

	// Posting metrics
	bm.entryPostedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_entry_posted_total",
		"Total number of journal entries posted",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	bm.entryAmountTotal, err = NewCounter(
		cfg.Meter,
		"ledger_entry_amount_total",
		"Total posted debit amount in base currency minor units",
		"{kurus}",
	)
	if err != nil {
		return nil, err
	}

	bm.entryReversedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_entry_reversed_total",
		"Total number of journal entries reversed",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	bm.postingFailedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_posting_failed_total",
		"Total number of rejected posting requests",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	// Reconciliation metrics
	bm.reconCompleted, err = NewCounter(
		cfg.Meter,
		"ledger_reconciliation_completed_total",
		"Total number of completed bank reconciliations",
		"{reconciliations}",
	)
	if err != nil {
		return nil, err
	}

	// Revaluation metrics
	bm.adjustmentPosted, err = NewCounter(
		cfg.Meter,
		"ledger_adjustment_posted_total",
		"Total number of journalized exchange rate adjustments",
		"{adjustments}",
	)
	if err != nil {
		return nil, err
	}

	// Reconciliation gauge metrics
	bm.unmatchedTransactions, err = NewGauge(
		cfg.Meter,
		"ledger_unmatched_bank_transactions",
		"Current number of unmatched bank transactions",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	bm.openReconciliations, err = NewGauge(
		cfg.Meter,
		"ledger_open_reconciliations",
		"Current number of open bank reconciliations",
		"{reconciliations}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Posting Metrics
// =============================================================================

// RecordEntryPosted records a successful journal entry posting.
// This should be called from the application layer after the entry is durable.
func (bm *BusinessMetrics) RecordEntryPosted(ctx context.Context, tenantID uuid.UUID, sourceType string) {
	bm.entryPostedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrEntrySource.String(sourceType),
	)
}

// RecordEntryAmount records the posted base-currency debit total.
// Amount is converted to the smallest currency unit (kurus).
func (bm *BusinessMetrics) RecordEntryAmount(ctx context.Context, tenantID uuid.UUID, sourceType string, amount decimal.Decimal) {
	minor := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.entryAmountTotal.Add(ctx, minor,
		AttrTenantID.String(tenantID.String()),
		AttrEntrySource.String(sourceType),
	)
}

// RecordEntryWithAmount is a convenience method that records both entry count and amount.
func (bm *BusinessMetrics) RecordEntryWithAmount(ctx context.Context, tenantID uuid.UUID, sourceType string, amount decimal.Decimal) {
	bm.RecordEntryPosted(ctx, tenantID, sourceType)
	bm.RecordEntryAmount(ctx, tenantID, sourceType, amount)
}

// RecordEntryReversed records a journal entry reversal.
func (bm *BusinessMetrics) RecordEntryReversed(ctx context.Context, tenantID uuid.UUID) {
	bm.entryReversedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordPostingFailed records a rejected posting request by failure code.
func (bm *BusinessMetrics) RecordPostingFailed(ctx context.Context, tenantID uuid.UUID, code string) {
	bm.postingFailedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrErrorCode.String(code),
	)
}

// =============================================================================
// Reconciliation Metrics
// =============================================================================

// RecordReconciliationCompleted records a completed reconciliation.
func (bm *BusinessMetrics) RecordReconciliationCompleted(ctx context.Context, tenantID, bankAccountID uuid.UUID) {
	bm.reconCompleted.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrBankAccountID.String(bankAccountID.String()),
	)
}

// RecordUnmatchedTransactions records the current unmatched transaction count
// for a bank account. This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordUnmatchedTransactions(ctx context.Context, tenantID, bankAccountID uuid.UUID, count int64) {
	bm.unmatchedTransactions.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
		AttrBankAccountID.String(bankAccountID.String()),
	)
}

// RecordOpenReconciliations records the current open reconciliation count.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOpenReconciliations(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.openReconciliations.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Revaluation Metrics
// =============================================================================

// RecordAdjustmentPosted records a journalized exchange rate adjustment.
func (bm *BusinessMetrics) RecordAdjustmentPosted(ctx context.Context, tenantID uuid.UUID, direction string) {
	bm.adjustmentPosted.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrAdjustmentSide.String(direction),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects reconciliation metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectReconciliationMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectReconciliationMetrics(ctx, tenantProvider)
		}
	}
}

// collectReconciliationMetrics collects reconciliation gauge metrics for all tenants.
func (bm *BusinessMetrics) collectReconciliationMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.ledgerProvider == nil {
		bm.logger.Debug("No ledger provider configured, skipping reconciliation metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantReconciliationMetrics(ctx, tenantID)
	}
}

// collectTenantReconciliationMetrics collects reconciliation metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantReconciliationMetrics(ctx context.Context, tenantID uuid.UUID) {
	// Collect unmatched transaction counts by bank account
	unmatchedByAccount, err := bm.ledgerProvider.GetUnmatchedTransactionCounts(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get unmatched transaction counts for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		for bankAccountID, count := range unmatchedByAccount {
			bm.RecordUnmatchedTransactions(ctx, tenantID, bankAccountID, count)
		}
	}

	// Collect open reconciliation count
	openCount, err := bm.ledgerProvider.GetOpenReconciliationCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get open reconciliation count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordOpenReconciliations(ctx, tenantID, openCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrEntrySource    = attribute.Key("entry_source")
	AttrErrorCode      = attribute.Key("error_code")
	AttrBankAccountID  = attribute.Key("bank_account_id")
	AttrAdjustmentSide = attribute.Key("adjustment_side")
)
