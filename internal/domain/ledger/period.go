package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// PeriodStatus represents the lifecycle state of an accounting period
type PeriodStatus string

const (
	PeriodStatusOpen       PeriodStatus = "OPEN"        // Accepts postings
	PeriodStatusSoftClosed PeriodStatus = "SOFT_CLOSED" // No new postings, authorized adjustments only
	PeriodStatusClosed     PeriodStatus = "CLOSED"      // Immutable; only reversing entries in a later open period
)

// IsValid checks if the status is a valid PeriodStatus
func (s PeriodStatus) IsValid() bool {
	switch s {
	case PeriodStatusOpen, PeriodStatusSoftClosed, PeriodStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of PeriodStatus
func (s PeriodStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the period can never accept postings again
func (s PeriodStatus) IsTerminal() bool {
	return s == PeriodStatusClosed
}

// AcceptsPosting returns true if a posting is allowed in this status.
// A soft-closed period accepts only authorized adjustments.
func (s PeriodStatus) AcceptsPosting(adjustment bool) bool {
	switch s {
	case PeriodStatusOpen:
		return true
	case PeriodStatusSoftClosed:
		return adjustment
	}
	return false
}

// PeriodType represents the span of an accounting period
type PeriodType string

const (
	PeriodTypeMonthly   PeriodType = "MONTHLY"
	PeriodTypeQuarterly PeriodType = "QUARTERLY"
	PeriodTypeAnnual    PeriodType = "ANNUAL"
)

// IsValid checks if the period type is valid
func (t PeriodType) IsValid() bool {
	switch t {
	case PeriodTypeMonthly, PeriodTypeQuarterly, PeriodTypeAnnual:
		return true
	}
	return false
}

// AccountingPeriod is a named date range gating which entry dates may receive
// postings. Lifecycle: Open -> SoftClosed -> Closed, with Reopen allowed only
// from SoftClosed back to Open. A period transitions to Closed only after its
// closing journal entry has been posted and the next period's opening entry
// generated.
type AccountingPeriod struct {
	shared.TenantAggregateRoot
	Name             string       `gorm:"type:varchar(100);not null"`
	FiscalYear       int          `gorm:"not null;uniqueIndex:idx_periods_tenant_year_number,priority:2"`
	PeriodNumber     int          `gorm:"not null;uniqueIndex:idx_periods_tenant_year_number,priority:3"`
	PeriodType       PeriodType   `gorm:"type:varchar(20);not null"`
	StartDate        time.Time    `gorm:"not null;index"`
	EndDate          time.Time    `gorm:"not null;index"`
	Status           PeriodStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	PreviousPeriodID *uuid.UUID   `gorm:"type:uuid"`
	NextPeriodID     *uuid.UUID   `gorm:"type:uuid"`
	ClosingEntryID   *uuid.UUID   `gorm:"type:uuid"`
	OpeningEntryID   *uuid.UUID   `gorm:"type:uuid"`
	ClosedBy         *uuid.UUID   `gorm:"type:uuid"`
	ClosedAt         *time.Time
	CloseNotes       string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AccountingPeriod) TableName() string {
	return "accounting_periods"
}

// NewAccountingPeriod creates a new open accounting period
func NewAccountingPeriod(
	tenantID uuid.UUID,
	name string,
	fiscalYear int,
	periodNumber int,
	periodType PeriodType,
	startDate time.Time,
	endDate time.Time,
) (*AccountingPeriod, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PERIOD_NAME", "Period name cannot be empty")
	}
	if fiscalYear < 1900 || fiscalYear > 2999 {
		return nil, shared.NewDomainError("INVALID_FISCAL_YEAR", fmt.Sprintf("Fiscal year %d is out of range", fiscalYear))
	}
	if periodNumber < 1 {
		return nil, shared.NewDomainError("INVALID_PERIOD_NUMBER", "Period number must be positive")
	}
	if !periodType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PERIOD_TYPE", fmt.Sprintf("Period type %q is not valid", periodType))
	}
	if !endDate.After(startDate) {
		return nil, shared.NewDomainError("INVALID_PERIOD_RANGE", "Period end date must be after start date")
	}

	return &AccountingPeriod{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		FiscalYear:          fiscalYear,
		PeriodNumber:        periodNumber,
		PeriodType:          periodType,
		StartDate:           startDate.UTC(),
		EndDate:             endDate.UTC(),
		Status:              PeriodStatusOpen,
	}, nil
}

// Contains reports whether the given business date falls inside the period.
// Both bounds are inclusive; comparison is on the calendar date in UTC.
func (p *AccountingPeriod) Contains(date time.Time) bool {
	d := date.UTC().Truncate(24 * time.Hour)
	start := p.StartDate.UTC().Truncate(24 * time.Hour)
	end := p.EndDate.UTC().Truncate(24 * time.Hour)
	return !d.Before(start) && !d.After(end)
}

// LinkPrevious links this period to its predecessor
func (p *AccountingPeriod) LinkPrevious(previousID uuid.UUID) {
	p.PreviousPeriodID = &previousID
	p.IncrementVersion()
}

// LinkNext links this period to its successor
func (p *AccountingPeriod) LinkNext(nextID uuid.UUID) {
	p.NextPeriodID = &nextID
	p.IncrementVersion()
}

// ValidatePosting checks that a posting dated entryDate is allowed in this period
func (p *AccountingPeriod) ValidatePosting(entryDate time.Time, adjustment bool) error {
	if !p.Contains(entryDate) {
		return shared.NewDomainError("INVALID_ENTRY_DATE",
			fmt.Sprintf("Entry date %s is outside period %s (%s - %s)",
				entryDate.Format("2006-01-02"), p.Name,
				p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02")))
	}
	if !p.Status.AcceptsPosting(adjustment) {
		return shared.NewDomainError("PERIOD_CLOSED",
			fmt.Sprintf("Period %s (%s) is %s and does not accept postings", p.Name, p.ID, p.Status))
	}
	return nil
}

// SoftClose transitions the period from Open to SoftClosed. This acts as the
// posting barrier for the close operation: new postings are rejected while
// the closing entries are generated.
func (p *AccountingPeriod) SoftClose() error {
	if p.Status != PeriodStatusOpen {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Period %s cannot be soft-closed from status %s", p.Name, p.Status))
	}
	p.Status = PeriodStatusSoftClosed
	p.IncrementVersion()
	return nil
}

// Reopen transitions the period from SoftClosed back to Open.
// A Closed period can never be reopened.
func (p *AccountingPeriod) Reopen() error {
	if p.Status != PeriodStatusSoftClosed {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Period %s cannot be reopened from status %s", p.Name, p.Status))
	}
	p.Status = PeriodStatusOpen
	p.IncrementVersion()
	p.AddDomainEvent(NewPeriodReopenedEvent(p))
	return nil
}

// Close finalizes the period after its closing entry has been posted and the
// successor's opening entry generated. Closing is all-or-nothing: callers must
// only invoke this once both generated entries validated successfully.
func (p *AccountingPeriod) Close(closingEntryID uuid.UUID, closedBy *uuid.UUID, notes string) error {
	if p.Status != PeriodStatusSoftClosed {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Period %s must be soft-closed before closing, current status is %s", p.Name, p.Status))
	}
	if closingEntryID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Closing journal entry ID is required")
	}
	now := time.Now().UTC()
	p.Status = PeriodStatusClosed
	p.ClosingEntryID = &closingEntryID
	p.ClosedBy = closedBy
	p.ClosedAt = &now
	p.CloseNotes = notes
	p.IncrementVersion()
	p.AddDomainEvent(NewPeriodClosedEvent(p))
	return nil
}

// SetOpeningEntry records the opening journal entry that carried balances
// forward into this period
func (p *AccountingPeriod) SetOpeningEntry(entryID uuid.UUID) {
	p.OpeningEntryID = &entryID
	p.IncrementVersion()
}
