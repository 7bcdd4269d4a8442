package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRate is one point in the tenant's currency conversion time series.
// The upstream rate feed publishes a buying/selling pair; EffectiveRate is
// the rate used for posting-time conversion and revaluation.
type ExchangeRate struct {
	shared.TenantAggregateRoot
	RateDate       time.Time            `gorm:"not null;uniqueIndex:idx_rates_tenant_pair_date,priority:4"`
	SourceCurrency valueobject.Currency `gorm:"type:varchar(3);not null;uniqueIndex:idx_rates_tenant_pair_date,priority:2"`
	TargetCurrency valueobject.Currency `gorm:"type:varchar(3);not null;uniqueIndex:idx_rates_tenant_pair_date,priority:3"`
	BuyingRate     decimal.Decimal      `gorm:"type:decimal(18,6);not null"`
	SellingRate    decimal.Decimal      `gorm:"type:decimal(18,6);not null"`
	EffectiveRate  decimal.Decimal      `gorm:"type:decimal(18,6);not null"`
}

// TableName returns the table name for GORM
func (ExchangeRate) TableName() string {
	return "exchange_rates"
}

// NewExchangeRate creates a new exchange rate for a date
func NewExchangeRate(
	tenantID uuid.UUID,
	rateDate time.Time,
	source valueobject.Currency,
	target valueobject.Currency,
	buying decimal.Decimal,
	selling decimal.Decimal,
	effective decimal.Decimal,
) (*ExchangeRate, error) {
	if source == "" || target == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Source and target currencies are required")
	}
	if source == target {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Source and target currencies must differ")
	}
	if !effective.IsPositive() {
		return nil, shared.NewDomainError("INVALID_RATE", fmt.Sprintf("Effective rate must be positive, got %s", effective))
	}
	if buying.IsNegative() || selling.IsNegative() {
		return nil, shared.NewDomainError("INVALID_RATE", "Buying and selling rates cannot be negative")
	}

	return &ExchangeRate{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		RateDate:            rateDate.UTC().Truncate(24 * time.Hour),
		SourceCurrency:      source,
		TargetCurrency:      target,
		BuyingRate:          buying,
		SellingRate:         selling,
		EffectiveRate:       effective,
	}, nil
}

// RateTable is an in-memory snapshot of a tenant's exchange rates used for a
// single operation. Lookups resolve the latest rate dated on or before the
// requested date; a missing rate is a retryable dependency failure, never a
// silent fallback.
type RateTable struct {
	base  valueobject.Currency
	rates map[valueobject.Currency][]*ExchangeRate
}

// NewRateTable builds a rate table from rates targeting the base currency.
// Rates for other target currencies are ignored.
func NewRateTable(base valueobject.Currency, rates []*ExchangeRate) *RateTable {
	t := &RateTable{
		base:  base,
		rates: make(map[valueobject.Currency][]*ExchangeRate),
	}
	for _, r := range rates {
		if r.TargetCurrency != base {
			continue
		}
		t.rates[r.SourceCurrency] = append(t.rates[r.SourceCurrency], r)
	}
	for _, series := range t.rates {
		sort.Slice(series, func(i, j int) bool {
			return series[i].RateDate.Before(series[j].RateDate)
		})
	}
	return t
}

// BaseCurrency returns the table's base (reporting) currency
func (t *RateTable) BaseCurrency() valueobject.Currency {
	return t.base
}

// RateAt returns the effective conversion rate from the given currency into
// the base currency, using the latest rate dated on or before the given date.
func (t *RateTable) RateAt(currency valueobject.Currency, date time.Time) (decimal.Decimal, error) {
	if currency == t.base {
		return decimal.NewFromInt(1), nil
	}
	series, ok := t.rates[currency]
	if !ok || len(series) == 0 {
		return decimal.Zero, shared.NewDomainError("MISSING_EXCHANGE_RATE",
			fmt.Sprintf("No %s/%s exchange rate available on or before %s", currency, t.base, date.Format("2006-01-02")))
	}

	d := date.UTC().Truncate(24 * time.Hour)
	var found *ExchangeRate
	for _, r := range series {
		if r.RateDate.After(d) {
			break
		}
		found = r
	}
	if found == nil {
		return decimal.Zero, shared.NewDomainError("MISSING_EXCHANGE_RATE",
			fmt.Sprintf("No %s/%s exchange rate available on or before %s", currency, t.base, date.Format("2006-01-02")))
	}
	return found.EffectiveRate, nil
}

// ConvertToBase converts a Money value into the base currency at the rate in
// force on the given date
func (t *RateTable) ConvertToBase(m valueobject.Money, date time.Time) (valueobject.Money, error) {
	if m.Currency() == t.base {
		return m, nil
	}
	rate, err := t.RateAt(m.Currency(), date)
	if err != nil {
		return valueobject.Money{}, err
	}
	return m.Convert(rate, t.base)
}
