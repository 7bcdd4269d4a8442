package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetStatus represents the lifecycle state of a budget
type BudgetStatus string

const (
	BudgetStatusActive BudgetStatus = "ACTIVE"
	BudgetStatusClosed BudgetStatus = "CLOSED"
)

// BudgetAlertLevel classifies how far consumption has progressed against
// the configured thresholds
type BudgetAlertLevel string

const (
	BudgetAlertNone     BudgetAlertLevel = "NONE"
	BudgetAlertWarning  BudgetAlertLevel = "WARNING"
	BudgetAlertCritical BudgetAlertLevel = "CRITICAL"
)

// CommitmentStatus tracks a reservation against a budget
type CommitmentStatus string

const (
	CommitmentStatusOpen     CommitmentStatus = "OPEN"
	CommitmentStatusConsumed CommitmentStatus = "CONSUMED"
	CommitmentStatusReleased CommitmentStatus = "RELEASED"
)

// BudgetCommitment reserves part of a budget for expected spending. The
// reservation reduces the available amount until it is consumed into actual
// spending or released.
type BudgetCommitment struct {
	ID          uuid.UUID        `json:"id"`
	Amount      decimal.Decimal  `json:"amount"`
	Consumed    decimal.Decimal  `json:"consumed"`
	Status      CommitmentStatus `json:"status"`
	Reference   string           `json:"reference"`
	CommittedAt time.Time        `json:"committed_at"`
	SettledAt   *time.Time       `json:"settled_at,omitempty"`
}

// BudgetCommitments is stored as JSONB
type BudgetCommitments []BudgetCommitment

// Value implements driver.Valuer for database storage
func (c BudgetCommitments) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal([]BudgetCommitment{})
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for database retrieval
func (c *BudgetCommitments) Scan(value interface{}) error {
	if value == nil {
		*c = BudgetCommitments{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("cannot scan %T into BudgetCommitments", value)
		}
	}
	return json.Unmarshal(bytes, c)
}

// Budget tracks committed and consumed spending against a limit for one
// account over one period. It reads the same postings as the ledger but
// keeps its own running totals: remaining = total - consumed, and
// available = remaining - committed. Both stay non-negative unless the
// budget explicitly allows overrun, in which case threshold crossings
// raise warnings instead of rejecting.
type Budget struct {
	shared.TenantAggregateRoot
	Name              string            `gorm:"not null;size:200" json:"name"`
	AccountID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"account_id"`
	PeriodID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"period_id"`
	TotalAmount       valueobject.Money `gorm:"type:decimal(18,4)" json:"total_amount"`
	OriginalAmount    valueobject.Money `gorm:"type:decimal(18,4)" json:"original_amount"`
	ConsumedAmount    valueobject.Money `gorm:"type:decimal(18,4)" json:"consumed_amount"`
	CommittedAmount   valueobject.Money `gorm:"type:decimal(18,4)" json:"committed_amount"`
	Commitments       BudgetCommitments `gorm:"type:jsonb" json:"commitments"`
	AllowOverrun      bool              `gorm:"default:false" json:"allow_overrun"`
	WarningThreshold  decimal.Decimal   `gorm:"type:decimal(5,2)" json:"warning_threshold"`
	CriticalThreshold decimal.Decimal   `gorm:"type:decimal(5,2)" json:"critical_threshold"`
	AlertLevel        BudgetAlertLevel  `gorm:"not null;size:20;default:'NONE'" json:"alert_level"`
	RevisionCount     int               `gorm:"default:0" json:"revision_count"`
	Status            BudgetStatus      `gorm:"not null;size:20;default:'ACTIVE'" json:"status"`
}

// TableName returns the table name for GORM
func (Budget) TableName() string {
	return "budgets"
}

// NewBudget creates a new active budget. Thresholds are percentages;
// the defaults follow common practice of warning at 80 and escalating at 95.
func NewBudget(
	tenantID uuid.UUID,
	name string,
	accountID uuid.UUID,
	periodID uuid.UUID,
	totalAmount valueobject.Money,
	allowOverrun bool,
) (*Budget, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Budget name is required")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Budget total must be positive")
	}
	b := &Budget{
		Name:              name,
		AccountID:         accountID,
		PeriodID:          periodID,
		TotalAmount:       totalAmount,
		OriginalAmount:    totalAmount,
		ConsumedAmount:    valueobject.Zero(totalAmount.Currency()),
		CommittedAmount:   valueobject.Zero(totalAmount.Currency()),
		Commitments:       BudgetCommitments{},
		AllowOverrun:      allowOverrun,
		WarningThreshold:  decimal.NewFromInt(80),
		CriticalThreshold: decimal.NewFromInt(95),
		AlertLevel:        BudgetAlertNone,
		Status:            BudgetStatusActive,
	}
	b.TenantAggregateRoot = shared.NewTenantAggregateRoot(tenantID)
	return b, nil
}

// RemainingAmount is the budget not yet consumed
func (b *Budget) RemainingAmount() valueobject.Money {
	return b.TotalAmount.MustSubtract(b.ConsumedAmount)
}

// AvailableAmount is the budget neither consumed nor reserved
func (b *Budget) AvailableAmount() valueobject.Money {
	return b.RemainingAmount().MustSubtract(b.CommittedAmount)
}

// UsedPercent returns consumption as a percentage of the total
func (b *Budget) UsedPercent() decimal.Decimal {
	if b.TotalAmount.IsZero() {
		return decimal.Zero
	}
	return b.ConsumedAmount.Amount().
		Div(b.TotalAmount.Amount()).
		Mul(decimal.NewFromInt(100)).
		RoundBank(2)
}

// Commit reserves an amount for expected spending. It fails with
// BUDGET_EXCEEDED when the reservation does not fit the available amount,
// unless the budget allows overrun.
func (b *Budget) Commit(amount valueobject.Money, reference string) (*BudgetCommitment, error) {
	if err := b.ensureActive(); err != nil {
		return nil, err
	}
	if amount.Currency() != b.TotalAmount.Currency() {
		return nil, shared.NewDomainError("CURRENCY_MISMATCH",
			fmt.Sprintf("Commitment currency %s does not match budget currency %s",
				amount.Currency(), b.TotalAmount.Currency()))
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Commitment amount must be positive")
	}
	if exceeds, _ := amount.GreaterThan(b.AvailableAmount()); exceeds && !b.AllowOverrun {
		return nil, shared.NewDomainError("BUDGET_EXCEEDED",
			fmt.Sprintf("Budget %s cannot commit %s, available is %s",
				b.Name, amount, b.AvailableAmount()))
	}
	commitment := BudgetCommitment{
		ID:          uuid.New(),
		Amount:      amount.Amount(),
		Consumed:    decimal.Zero,
		Status:      CommitmentStatusOpen,
		Reference:   reference,
		CommittedAt: time.Now().UTC(),
	}
	b.Commitments = append(b.Commitments, commitment)
	b.CommittedAmount = b.CommittedAmount.MustAdd(amount)
	b.IncrementVersion()
	return &b.Commitments[len(b.Commitments)-1], nil
}

// Consume settles a commitment into actual spending. Consuming less than
// was committed releases the difference back to available; consuming more
// is allowed only if the excess fits the available amount or the budget
// allows overrun. Crossing a threshold updates the alert level and raises
// a warning event.
func (b *Budget) Consume(commitmentID uuid.UUID, actual valueobject.Money) error {
	if err := b.ensureActive(); err != nil {
		return err
	}
	if actual.Currency() != b.TotalAmount.Currency() {
		return shared.NewDomainError("CURRENCY_MISMATCH",
			fmt.Sprintf("Consumption currency %s does not match budget currency %s",
				actual.Currency(), b.TotalAmount.Currency()))
	}
	if actual.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Consumption amount cannot be negative")
	}
	commitment := b.findCommitment(commitmentID)
	if commitment == nil {
		return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Commitment %s not found", commitmentID))
	}
	if commitment.Status != CommitmentStatusOpen {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Commitment %s is already %s", commitmentID, commitment.Status))
	}

	excess := actual.Amount().Sub(commitment.Amount)
	if excess.IsPositive() && !b.AllowOverrun {
		available := b.AvailableAmount().Amount()
		if excess.GreaterThan(available) {
			return shared.NewDomainError("BUDGET_EXCEEDED",
				fmt.Sprintf("Budget %s cannot absorb consumption %s against commitment of %s, available is %s",
					b.Name, actual.Amount().StringFixed(2), commitment.Amount.StringFixed(2), available.StringFixed(2)))
		}
	}

	now := time.Now().UTC()
	commitment.Consumed = actual.Amount()
	commitment.Status = CommitmentStatusConsumed
	commitment.SettledAt = &now

	released, _ := valueobject.NewMoney(commitment.Amount, b.TotalAmount.Currency())
	b.CommittedAmount = b.CommittedAmount.MustSubtract(released)
	b.ConsumedAmount = b.ConsumedAmount.MustAdd(actual)
	b.IncrementVersion()
	b.refreshAlertLevel()
	return nil
}

// Release cancels an open commitment, returning its amount to available
func (b *Budget) Release(commitmentID uuid.UUID) error {
	if err := b.ensureActive(); err != nil {
		return err
	}
	commitment := b.findCommitment(commitmentID)
	if commitment == nil {
		return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Commitment %s not found", commitmentID))
	}
	if commitment.Status != CommitmentStatusOpen {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Commitment %s is already %s", commitmentID, commitment.Status))
	}
	now := time.Now().UTC()
	commitment.Status = CommitmentStatusReleased
	commitment.SettledAt = &now
	released, _ := valueobject.NewMoney(commitment.Amount, b.TotalAmount.Currency())
	b.CommittedAmount = b.CommittedAmount.MustSubtract(released)
	b.IncrementVersion()
	return nil
}

// Revise changes the budget total, e.g. a mid-year reallocation. The new
// total must still cover everything already consumed and committed unless
// the budget allows overrun. OriginalAmount keeps the total as first
// approved, so the cumulative drift stays visible across revisions.
func (b *Budget) Revise(newTotal valueobject.Money) error {
	if err := b.ensureActive(); err != nil {
		return err
	}
	if newTotal.Currency() != b.TotalAmount.Currency() {
		return shared.NewDomainError("CURRENCY_MISMATCH",
			fmt.Sprintf("Revision currency %s does not match budget currency %s",
				newTotal.Currency(), b.TotalAmount.Currency()))
	}
	if !newTotal.IsPositive() {
		return shared.NewDomainError("INVALID_INPUT", "Budget total must be positive")
	}
	floor := b.ConsumedAmount.MustAdd(b.CommittedAmount)
	if tooSmall, _ := newTotal.LessThan(floor); tooSmall && !b.AllowOverrun {
		return shared.NewDomainError("BUDGET_EXCEEDED",
			fmt.Sprintf("Budget %s cannot shrink to %s, consumed plus committed is %s", b.Name, newTotal, floor))
	}
	b.TotalAmount = newTotal
	b.RevisionCount++
	b.IncrementVersion()
	b.refreshAlertLevel()
	return nil
}

// Close ends the budget; open commitments must be settled or released first
func (b *Budget) Close() error {
	if err := b.ensureActive(); err != nil {
		return err
	}
	for _, c := range b.Commitments {
		if c.Status == CommitmentStatusOpen {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Budget %s has open commitment %s", b.Name, c.ID))
		}
	}
	b.Status = BudgetStatusClosed
	b.IncrementVersion()
	return nil
}

// SetThresholds overrides the default warning and critical percentages
func (b *Budget) SetThresholds(warning, critical decimal.Decimal) error {
	if warning.IsNegative() || critical.IsNegative() || warning.GreaterThan(critical) {
		return shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Thresholds must satisfy 0 <= warning (%s) <= critical (%s)", warning, critical))
	}
	b.WarningThreshold = warning
	b.CriticalThreshold = critical
	b.IncrementVersion()
	b.refreshAlertLevel()
	return nil
}

func (b *Budget) ensureActive() error {
	if b.Status != BudgetStatusActive {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Budget %s is %s", b.Name, b.Status))
	}
	return nil
}

func (b *Budget) findCommitment(id uuid.UUID) *BudgetCommitment {
	for idx := range b.Commitments {
		if b.Commitments[idx].ID == id {
			return &b.Commitments[idx]
		}
	}
	return nil
}

// refreshAlertLevel recomputes the alert level and raises an event only on
// an upward crossing, so repeated consumption inside one band stays quiet.
func (b *Budget) refreshAlertLevel() {
	used := b.UsedPercent()
	level := BudgetAlertNone
	switch {
	case used.GreaterThanOrEqual(b.CriticalThreshold):
		level = BudgetAlertCritical
	case used.GreaterThanOrEqual(b.WarningThreshold):
		level = BudgetAlertWarning
	}
	if level != b.AlertLevel {
		crossed := level == BudgetAlertCritical && b.AlertLevel != BudgetAlertCritical ||
			level == BudgetAlertWarning && b.AlertLevel == BudgetAlertNone
		b.AlertLevel = level
		if crossed {
			b.AddDomainEvent(NewBudgetThresholdCrossedEvent(b, level))
		}
	}
}
