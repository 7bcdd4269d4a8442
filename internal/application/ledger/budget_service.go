package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

// BudgetService handles application-level budget operations
type BudgetService struct {
	budgetRepo  ledger.BudgetRepository
	accountRepo ledger.AccountRepository
	periodRepo  ledger.PeriodRepository
	eventBus    shared.EventPublisher
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(
	budgetRepo ledger.BudgetRepository,
	accountRepo ledger.AccountRepository,
	periodRepo ledger.PeriodRepository,
	eventBus shared.EventPublisher,
) *BudgetService {
	return &BudgetService{
		budgetRepo:  budgetRepo,
		accountRepo: accountRepo,
		periodRepo:  periodRepo,
		eventBus:    eventBus,
	}
}

// CreateBudgetRequest represents a request to create a budget
type CreateBudgetRequest struct {
	Name         string          `json:"name" binding:"required"`
	AccountID    uuid.UUID       `json:"account_id" binding:"required"`
	PeriodID     uuid.UUID       `json:"period_id" binding:"required"`
	TotalAmount  decimal.Decimal `json:"total_amount" binding:"required"`
	Currency     string          `json:"currency" binding:"required"`
	AllowOverrun bool            `json:"allow_overrun"`
}

// CommitBudgetRequest represents a request to reserve budget
type CommitBudgetRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Currency  string          `json:"currency" binding:"required"`
	Reference string          `json:"reference"`
}

// ConsumeBudgetRequest represents a request to settle a commitment
type ConsumeBudgetRequest struct {
	CommitmentID uuid.UUID       `json:"commitment_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Currency     string          `json:"currency" binding:"required"`
}

// ReviseBudgetRequest represents a request to change the budget total
type ReviseBudgetRequest struct {
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	Currency    string          `json:"currency" binding:"required"`
}

// SetThresholdsRequest represents a request to change the alert thresholds
type SetThresholdsRequest struct {
	WarningThreshold  decimal.Decimal `json:"warning_threshold" binding:"required"`
	CriticalThreshold decimal.Decimal `json:"critical_threshold" binding:"required"`
}

// BudgetListFilter defines filters for listing budgets
type BudgetListFilter struct {
	shared.Filter
	AccountID  *uuid.UUID `form:"account_id"`
	PeriodID   *uuid.UUID `form:"period_id"`
	Status     *string    `form:"status"`
	AlertLevel *string    `form:"alert_level"`
}

// CreateBudget creates a budget for an account within a period. An account
// carries at most one budget per period.
func (s *BudgetService) CreateBudget(ctx context.Context, tenantID uuid.UUID, req CreateBudgetRequest) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_budget")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, req.AccountID.String(),
		telemetry.SpanAttrPeriodID, req.PeriodID.String(),
	)

	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, req.AccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}

	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, req.PeriodID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	if period == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Accounting period not found")
	}

	existing, err := s.budgetRepo.FindByAccountAndPeriod(ctx, tenantID, req.AccountID, req.PeriodID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check existing budget: %w", err)
	}
	if existing != nil {
		err := shared.NewDomainError("ALREADY_EXISTS",
			fmt.Sprintf("Account %s already has a budget in period %s", account.Code, period.Name))
		telemetry.RecordError(span, err)
		return nil, err
	}

	total, err := valueobject.NewMoney(req.TotalAmount, valueobject.Currency(req.Currency))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	budget, err := ledger.NewBudget(tenantID, req.Name, req.AccountID, req.PeriodID, total, req.AllowOverrun)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.budgetRepo.Save(ctx, budget); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}

	telemetry.SetOK(span)
	return toBudgetResponse(budget), nil
}

// GetBudget retrieves a budget by ID
func (s *BudgetService) GetBudget(ctx context.Context, tenantID, budgetID uuid.UUID) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_budget")
	defer span.End()

	budget, err := s.loadBudget(ctx, tenantID, budgetID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toBudgetResponse(budget), nil
}

// GetBudgetForAccount retrieves the budget for an account in a period
func (s *BudgetService) GetBudgetForAccount(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_budget_for_account")
	defer span.End()

	budget, err := s.budgetRepo.FindByAccountAndPeriod(ctx, tenantID, accountID, periodID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}
	if budget == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "No budget for this account and period")
	}
	return toBudgetResponse(budget), nil
}

// ListBudgets lists budgets for a tenant with filtering
func (s *BudgetService) ListBudgets(ctx context.Context, tenantID uuid.UUID, filter BudgetListFilter) ([]*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "list_budgets")
	defer span.End()

	domainFilter := ledger.BudgetFilter{
		Filter:    filter.Filter,
		AccountID: filter.AccountID,
		PeriodID:  filter.PeriodID,
	}
	if filter.Status != nil {
		status := ledger.BudgetStatus(*filter.Status)
		domainFilter.Status = &status
	}
	if filter.AlertLevel != nil {
		level := ledger.BudgetAlertLevel(*filter.AlertLevel)
		domainFilter.AlertLevel = &level
	}

	budgets, err := s.budgetRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	responses := make([]*BudgetResponse, len(budgets))
	for i := range budgets {
		responses[i] = toBudgetResponse(&budgets[i])
	}
	return responses, nil
}

// CommitBudget reserves budget for expected spending
func (s *BudgetService) CommitBudget(ctx context.Context, tenantID, budgetID uuid.UUID, req CommitBudgetRequest) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "commit_budget")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrBudgetID, budgetID.String())

	amount, err := valueobject.NewMoney(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var response *BudgetResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationBudgetCheck, "commit"), func(c context.Context) {
		response, operationErr = s.mutate(c, span, tenantID, budgetID, func(b *ledger.Budget) error {
			_, err := b.Commit(amount, req.Reference)
			return err
		})
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// ConsumeBudget settles a commitment against actual spending
func (s *BudgetService) ConsumeBudget(ctx context.Context, tenantID, budgetID uuid.UUID, req ConsumeBudgetRequest) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "consume_budget")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrBudgetID, budgetID.String())

	amount, err := valueobject.NewMoney(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var response *BudgetResponse
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationBudgetCheck, "consume"), func(c context.Context) {
		response, operationErr = s.mutate(c, span, tenantID, budgetID, func(b *ledger.Budget) error {
			return b.Consume(req.CommitmentID, amount)
		})
	})
	if operationErr != nil {
		return nil, operationErr
	}

	telemetry.SetOK(span)
	return response, nil
}

// ReleaseBudget releases an open commitment back to the available budget
func (s *BudgetService) ReleaseBudget(ctx context.Context, tenantID, budgetID, commitmentID uuid.UUID) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "release_budget")
	defer span.End()

	return s.mutate(ctx, span, tenantID, budgetID, func(b *ledger.Budget) error {
		return b.Release(commitmentID)
	})
}

// ReviseBudget changes the budget total
func (s *BudgetService) ReviseBudget(ctx context.Context, tenantID, budgetID uuid.UUID, req ReviseBudgetRequest) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "revise_budget")
	defer span.End()

	total, err := valueobject.NewMoney(req.TotalAmount, valueobject.Currency(req.Currency))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return s.mutate(ctx, span, tenantID, budgetID, func(b *ledger.Budget) error {
		return b.Revise(total)
	})
}

// SetBudgetThresholds changes the warning and critical alert thresholds
func (s *BudgetService) SetBudgetThresholds(ctx context.Context, tenantID, budgetID uuid.UUID, req SetThresholdsRequest) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "set_budget_thresholds")
	defer span.End()

	return s.mutate(ctx, span, tenantID, budgetID, func(b *ledger.Budget) error {
		return b.SetThresholds(req.WarningThreshold, req.CriticalThreshold)
	})
}

// CloseBudget closes a budget with no open commitments
func (s *BudgetService) CloseBudget(ctx context.Context, tenantID, budgetID uuid.UUID) (*BudgetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "close_budget")
	defer span.End()

	return s.mutate(ctx, span, tenantID, budgetID, func(b *ledger.Budget) error {
		return b.Close()
	})
}

// mutate loads a budget, applies a change and saves it with a version check
func (s *BudgetService) mutate(ctx context.Context, span trace.Span, tenantID, budgetID uuid.UUID, change func(*ledger.Budget) error) (*BudgetResponse, error) {
	budget, err := s.loadBudget(ctx, tenantID, budgetID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := change(budget); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.budgetRepo.SaveWithLock(ctx, budget); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}
	publishEvents(ctx, s.eventBus, budget)
	return toBudgetResponse(budget), nil
}

func (s *BudgetService) loadBudget(ctx context.Context, tenantID, budgetID uuid.UUID) (*ledger.Budget, error) {
	budget, err := s.budgetRepo.FindByIDForTenant(ctx, tenantID, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}
	if budget == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Budget not found")
	}
	return budget, nil
}
