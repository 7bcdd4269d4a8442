package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantProvider lists tenants for background jobs and periodic
// metrics collection. Tenants are derived from the chart of accounts:
// a tenant with at least one active account is considered active.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns the distinct tenant IDs that own at least
// one active ledger account.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("ledger_accounts").
		Distinct("tenant_id").
		Where("is_active = ?", true).
		Find(&ids).Error

	return ids, err
}
