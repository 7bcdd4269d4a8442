package event

import (
	"context"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every ledger domain event to the structured log,
// giving operators a tenant-scoped audit trail of postings, closes and
// reconciliations without a separate audit store.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns an empty slice so the handler receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event, correlated with the originating trace when the
// dispatch context carries an active span
func (h *AuditLogHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	logger.WithTraceContext(ctx, h.logger).Info("ledger event",
		zap.String("event_type", e.EventType()),
		zap.String("event_id", e.EventID().String()),
		zap.String("aggregate_type", e.AggregateType()),
		zap.String("aggregate_id", e.AggregateID().String()),
		zap.String("tenant_id", e.TenantID().String()),
		zap.Time("occurred_at", e.OccurredAt()),
	)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
