package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// AccountService handles application-level chart of accounts operations
type AccountService struct {
	accountRepo ledger.AccountRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo ledger.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

// CreateAccountRequest represents a request to create an account
type CreateAccountRequest struct {
	Code     string     `json:"code" binding:"required"`
	Name     string     `json:"name" binding:"required"`
	Type     string     `json:"type" binding:"required"`
	Currency string     `json:"currency" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// AccountListFilter defines filters for listing accounts
type AccountListFilter struct {
	shared.Filter
	Type     *string    `form:"type"`
	ParentID *uuid.UUID `form:"parent_id"`
	Currency *string    `form:"currency"`
	IsActive *bool      `form:"is_active"`
	LeafOnly bool       `form:"leaf_only"`
}

// CreateAccount creates an account in the chart. A parented account must
// agree with its parent's type, and the parent's child count moves with it.
func (s *AccountService) CreateAccount(ctx context.Context, tenantID uuid.UUID, req CreateAccountRequest) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_account")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrAccountCode, req.Code)

	existing, err := s.accountRepo.FindByCode(ctx, tenantID, req.Code)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check account code: %w", err)
	}
	if existing != nil {
		err := shared.NewDomainError("ALREADY_EXISTS",
			fmt.Sprintf("Account code %s is already in use", req.Code))
		telemetry.RecordError(span, err)
		return nil, err
	}

	var parent *ledger.Account
	if req.ParentID != nil {
		parent, err = s.accountRepo.FindByIDForTenant(ctx, tenantID, *req.ParentID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load parent account: %w", err)
		}
		if parent == nil {
			return nil, shared.NewDomainError("NOT_FOUND", "Parent account not found")
		}
		if string(parent.Type) != req.Type {
			err := shared.NewDomainError("INVALID_ACCOUNT_TYPE",
				fmt.Sprintf("Account type %s does not match parent type %s", req.Type, parent.Type))
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	account, err := ledger.NewAccount(
		tenantID,
		req.Code,
		req.Name,
		ledger.AccountType(req.Type),
		valueobject.Currency(req.Currency),
		req.ParentID,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	if parent != nil {
		parent.AddChild()
		if err := s.accountRepo.SaveWithLock(ctx, parent); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to update parent account: %w", err)
		}
	}

	telemetry.SetOK(span)
	return toAccountResponse(account), nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "get_account")
	defer span.End()

	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}
	return toAccountResponse(account), nil
}

// ListAccounts lists accounts for a tenant with filtering
func (s *AccountService) ListAccounts(ctx context.Context, tenantID uuid.UUID, filter AccountListFilter) ([]*AccountResponse, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "list_accounts")
	defer span.End()

	domainFilter := ledger.AccountFilter{
		Filter:   filter.Filter,
		ParentID: filter.ParentID,
		IsActive: filter.IsActive,
		LeafOnly: filter.LeafOnly,
	}
	if filter.Type != nil {
		accountType := ledger.AccountType(*filter.Type)
		domainFilter.Type = &accountType
	}
	if filter.Currency != nil {
		currency := valueobject.Currency(*filter.Currency)
		domainFilter.Currency = &currency
	}

	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	total, err := s.accountRepo.Count(ctx, tenantID, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	responses := make([]*AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = toAccountResponse(&accounts[i])
	}
	return responses, total, nil
}

// DeactivateAccount deactivates an account so it refuses further postings
func (s *AccountService) DeactivateAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "deactivate_account")
	defer span.End()

	return s.mutate(ctx, span, tenantID, accountID, func(a *ledger.Account) error {
		return a.Deactivate()
	})
}

// ActivateAccount re-activates a deactivated account
func (s *AccountService) ActivateAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "activate_account")
	defer span.End()

	return s.mutate(ctx, span, tenantID, accountID, func(a *ledger.Account) error {
		return a.Activate()
	})
}

func (s *AccountService) mutate(ctx context.Context, span trace.Span, tenantID, accountID uuid.UUID, change func(*ledger.Account) error) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}
	if err := change(account); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	return toAccountResponse(account), nil
}
