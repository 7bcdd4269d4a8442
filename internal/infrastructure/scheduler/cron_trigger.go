package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider provides a list of tenants for scheduling
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CronTriggerConfig holds the schedules the trigger fires on
type CronTriggerConfig struct {
	// RateSyncSchedule is when the daily rate sync job runs
	RateSyncSchedule config.Schedule

	// RevaluationSchedule is when the per-tenant revaluation jobs run
	RevaluationSchedule config.Schedule

	// CheckInterval is how often to check if a schedule matches
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration:
// rates at 06:00 daily, revaluation at 02:00 on the first of the month
func DefaultCronTriggerConfig() CronTriggerConfig {
	rateSync, _ := config.ParseSchedule("0 6 * * *")
	revaluation, _ := config.ParseSchedule("0 2 1 * *")
	return CronTriggerConfig{
		RateSyncSchedule:    rateSync,
		RevaluationSchedule: revaluation,
		CheckInterval:       time.Minute,
	}
}

// CronTrigger submits ledger batch jobs when their schedules come due
type CronTrigger struct {
	config         CronTriggerConfig
	scheduler      *Scheduler
	tenantProvider TenantProvider
	logger         *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   map[JobType]string // minute key of the last firing per job type
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	tenantProvider TenantProvider,
	logger *zap.Logger,
) *CronTrigger {
	return &CronTrigger{
		config:         config,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		logger:         logger,
		lastRun:        make(map[JobType]string),
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Duration("check_interval", c.config.CheckInterval),
	)

	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically whether a schedule has come due
func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	interval := c.config.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires every schedule matching the current minute
func (c *CronTrigger) checkAndTrigger(ctx context.Context) {
	now := time.Now()

	if c.due(JobTypeRateSync, c.config.RateSyncSchedule, now) {
		c.logger.Info("Triggering daily rate sync")
		c.triggerRateSync(now)
	}

	if c.due(JobTypeRevaluation, c.config.RevaluationSchedule, now) {
		c.logger.Info("Triggering scheduled revaluation")
		c.triggerRevaluation(ctx, now)
	}
}

// due reports whether a schedule matches the current minute and has not
// already fired in it
func (c *CronTrigger) due(jobType JobType, schedule config.Schedule, now time.Time) bool {
	if !schedule.Matches(now) {
		return false
	}

	minuteKey := now.Format("2006-01-02T15:04")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRun[jobType] == minuteKey {
		return false
	}
	c.lastRun[jobType] = minuteKey
	return true
}

// triggerRateSync submits one rate sync job; the executor fans out to
// every tenant itself
func (c *CronTrigger) triggerRateSync(now time.Time) {
	if err := c.scheduler.ScheduleJob(nil, JobTypeRateSync, now); err != nil {
		c.logger.Error("Failed to schedule rate sync job", zap.Error(err))
	}
}

// triggerRevaluation submits one revaluation job per active tenant
func (c *CronTrigger) triggerRevaluation(ctx context.Context, now time.Time) {
	tenantIDs, err := c.tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to get tenant IDs for revaluation", zap.Error(err))
		return
	}

	c.logger.Info("Scheduling revaluation for tenants",
		zap.Int("tenant_count", len(tenantIDs)),
	)

	for _, tenantID := range tenantIDs {
		tid := tenantID
		if err := c.scheduler.ScheduleJob(&tid, JobTypeRevaluation, now); err != nil {
			c.logger.Error("Failed to schedule revaluation for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}
}

// TriggerManual submits a job outside its schedule, e.g. from an operator
// action
func (c *CronTrigger) TriggerManual(tenantID *uuid.UUID, jobType JobType, runDate time.Time) error {
	switch jobType {
	case JobTypeRateSync, JobTypeRevaluation:
		return c.scheduler.ScheduleJob(tenantID, jobType, runDate)
	default:
		return ErrInvalidJobType
	}
}
