package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	app "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// Default revaluation gain/loss account codes, from the Turkish uniform
// chart of accounts (646 foreign exchange gains, 656 foreign exchange
// losses). Overridable per deployment.
const (
	DefaultGainAccountCode = "646"
	DefaultLossAccountCode = "656"
)

// RateSyncer runs a daily exchange-rate sync
type RateSyncer interface {
	SyncDaily(ctx context.Context, date time.Time) error
}

// LedgerJobExecutor executes ledger batch jobs: the daily rate sync and the
// scheduled revaluation run. Scheduled revaluations only produce draft
// adjustments; approving and journalizing them stays a manual step.
type LedgerJobExecutor struct {
	rateSyncer      RateSyncer
	revaluations    *app.RevaluationService
	accountRepo     ledger.AccountRepository
	gainAccountCode string
	lossAccountCode string
	logger          *zap.Logger
}

// LedgerJobExecutorOption configures the executor
type LedgerJobExecutorOption func(*LedgerJobExecutor)

// WithGainLossAccountCodes overrides the account codes scheduled
// revaluations book gains and losses to
func WithGainLossAccountCodes(gainCode, lossCode string) LedgerJobExecutorOption {
	return func(e *LedgerJobExecutor) {
		e.gainAccountCode = gainCode
		e.lossAccountCode = lossCode
	}
}

// NewLedgerJobExecutor creates a new executor for ledger batch jobs
func NewLedgerJobExecutor(
	rateSyncer RateSyncer,
	revaluations *app.RevaluationService,
	accountRepo ledger.AccountRepository,
	logger *zap.Logger,
	opts ...LedgerJobExecutorOption,
) *LedgerJobExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &LedgerJobExecutor{
		rateSyncer:      rateSyncer,
		revaluations:    revaluations,
		accountRepo:     accountRepo,
		gainAccountCode: DefaultGainAccountCode,
		lossAccountCode: DefaultLossAccountCode,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a single batch job
func (e *LedgerJobExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeRateSync:
		return e.executeRateSync(ctx, job)
	case JobTypeRevaluation:
		return e.executeRevaluation(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidJobType, job.Type)
	}
}

func (e *LedgerJobExecutor) executeRateSync(ctx context.Context, job *Job) error {
	if e.rateSyncer == nil {
		return fmt.Errorf("rate feed is not configured")
	}
	return e.rateSyncer.SyncDaily(ctx, job.RunDate)
}

// executeRevaluation computes a draft revaluation for the job's tenant as of
// the last day of the month before the run date
func (e *LedgerJobExecutor) executeRevaluation(ctx context.Context, job *Job) error {
	if job.TenantID == nil {
		return fmt.Errorf("revaluation job requires a tenant")
	}
	tenantID := *job.TenantID

	valuationDate := monthEndBefore(job.RunDate)

	gainAccount, err := e.accountRepo.FindByCode(ctx, tenantID, e.gainAccountCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Tenant opted out of scheduled revaluation by not carrying
			// the designated accounts. Not a failure.
			e.logger.Info("Skipping revaluation, no gain account",
				zap.String("tenant_id", tenantID.String()),
				zap.String("account_code", e.gainAccountCode),
			)
			return nil
		}
		return fmt.Errorf("failed to resolve gain account: %w", err)
	}

	lossAccount, err := e.accountRepo.FindByCode(ctx, tenantID, e.lossAccountCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			e.logger.Info("Skipping revaluation, no loss account",
				zap.String("tenant_id", tenantID.String()),
				zap.String("account_code", e.lossAccountCode),
			)
			return nil
		}
		return fmt.Errorf("failed to resolve loss account: %w", err)
	}

	req := app.ComputeRevaluationRequest{
		AdjustmentNumber: fmt.Sprintf("REV-%s-AUTO", valuationDate.Format("200601")),
		ValuationDate:    valuationDate,
		GainAccountID:    gainAccount.ID,
		LossAccountID:    lossAccount.ID,
		Description:      fmt.Sprintf("Scheduled revaluation as of %s", valuationDate.Format("2006-01-02")),
	}

	adjustment, err := e.revaluations.ComputeRevaluation(ctx, tenantID, req)
	if err != nil {
		return fmt.Errorf("scheduled revaluation failed: %w", err)
	}

	e.logger.Info("Scheduled revaluation computed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("adjustment_number", adjustment.AdjustmentNumber),
		zap.String("valuation_date", valuationDate.Format("2006-01-02")),
	)

	return nil
}

// monthEndBefore returns the last day of the month preceding the given date
func monthEndBefore(date time.Time) time.Time {
	firstOfMonth := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 0, -1)
}
