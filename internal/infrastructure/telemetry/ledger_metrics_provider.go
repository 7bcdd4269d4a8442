// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLedgerMetricsProvider implements LedgerMetricsProvider using GORM.
// It queries the reconciliation tables directly for aggregated metrics.
type GormLedgerMetricsProvider struct {
	db *gorm.DB
}

// NewGormLedgerMetricsProvider creates a new GormLedgerMetricsProvider.
func NewGormLedgerMetricsProvider(db *gorm.DB) *GormLedgerMetricsProvider {
	return &GormLedgerMetricsProvider{db: db}
}

// GetUnmatchedTransactionCounts returns the count of unmatched bank
// transactions per bank account for a tenant.
func (p *GormLedgerMetricsProvider) GetUnmatchedTransactionCounts(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error) {
	type result struct {
		BankAccountID uuid.UUID `gorm:"column:bank_account_id"`
		Count         int64     `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("bank_transactions").
		Select("bank_account_id, COUNT(*) as count").
		Where("tenant_id = ? AND match_status = ?", tenantID, "UNMATCHED").
		Group("bank_account_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(results))
	for _, r := range results {
		counts[r.BankAccountID] = r.Count
	}
	return counts, nil
}

// GetOpenReconciliationCount returns the number of reconciliations still
// open for a tenant.
func (p *GormLedgerMetricsProvider) GetOpenReconciliationCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("bank_reconciliations").
		Where("tenant_id = ? AND status = ?", tenantID, "OPEN").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
