package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// MockAccountRepository is a mock implementation of ledger.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindWithAncestors(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*ledger.Account, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, parentID)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Count(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// setupTestRouter creates a test router with the tenant context set,
// mimicking what the tenant middleware does in production
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.TenantIDKey, testTenantID.String())
		c.Next()
	})
	return router
}

func setupAccountHandler(repo *MockAccountRepository) *AccountHandler {
	service := ledgerapp.NewAccountService(repo)
	return NewAccountHandler(service)
}

func newTestAccount(t *testing.T, code, name string, accountType ledger.AccountType) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(testTenantID, code, name, accountType, valueobject.Currency("USD"), nil)
	require.NoError(t, err)
	return account
}

func TestAccountHandler_CreateAccount_Success(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.POST("/accounts", handler.CreateAccount)

	repo.On("FindByCode", mock.Anything, testTenantID, "1000").Return(nil, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*ledger.Account")).Return(nil)

	body, _ := json.Marshal(map[string]any{
		"code":     "1000",
		"name":     "Cash",
		"type":     "ASSET",
		"currency": "USD",
	})
	req := httptest.NewRequest("POST", "/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	repo.AssertExpectations(t)
}

func TestAccountHandler_CreateAccount_DuplicateCode(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.POST("/accounts", handler.CreateAccount)

	existing := newTestAccount(t, "1000", "Cash", ledger.AccountTypeAsset)
	repo.On("FindByCode", mock.Anything, testTenantID, "1000").Return(existing, nil)

	body, _ := json.Marshal(map[string]any{
		"code":     "1000",
		"name":     "Cash again",
		"type":     "ASSET",
		"currency": "USD",
	})
	req := httptest.NewRequest("POST", "/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)

	repo.AssertExpectations(t)
}

func TestAccountHandler_CreateAccount_MissingFields(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.POST("/accounts", handler.CreateAccount)

	body, _ := json.Marshal(map[string]any{
		"code": "1000",
	})
	req := httptest.NewRequest("POST", "/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "Save")
}

func TestAccountHandler_CreateAccount_WithParent(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.POST("/accounts", handler.CreateAccount)

	parent := newTestAccount(t, "1000", "Current Assets", ledger.AccountTypeAsset)
	repo.On("FindByCode", mock.Anything, testTenantID, "1001").Return(nil, nil)
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, parent.ID).Return(parent, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*ledger.Account")).Return(nil)
	repo.On("SaveWithLock", mock.Anything, parent).Return(nil)

	body, _ := json.Marshal(map[string]any{
		"code":      "1001",
		"name":      "Cash",
		"type":      "ASSET",
		"currency":  "USD",
		"parent_id": parent.ID.String(),
	})
	req := httptest.NewRequest("POST", "/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, parent.ChildCount)

	repo.AssertExpectations(t)
}

func TestAccountHandler_GetAccount_Success(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.GET("/accounts/:id", handler.GetAccount)

	account := newTestAccount(t, "1000", "Cash", ledger.AccountTypeAsset)
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, account.ID).Return(account, nil)

	req := httptest.NewRequest("GET", fmt.Sprintf("/accounts/%s", account.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	repo.AssertExpectations(t)
}

func TestAccountHandler_GetAccount_NotFound(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.GET("/accounts/:id", handler.GetAccount)

	accountID := uuid.New()
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, accountID).Return(nil, nil)

	req := httptest.NewRequest("GET", fmt.Sprintf("/accounts/%s", accountID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	repo.AssertExpectations(t)
}

func TestAccountHandler_GetAccount_InvalidID(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.GET("/accounts/:id", handler.GetAccount)

	req := httptest.NewRequest("GET", "/accounts/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "FindByIDForTenant")
}

func TestAccountHandler_ListAccounts_Success(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.GET("/accounts", handler.ListAccounts)

	accounts := []ledger.Account{
		*newTestAccount(t, "1000", "Cash", ledger.AccountTypeAsset),
		*newTestAccount(t, "2000", "Payables", ledger.AccountTypeLiability),
	}
	repo.On("FindAllForTenant", mock.Anything, testTenantID, mock.AnythingOfType("ledger.AccountFilter")).Return(accounts, nil)
	repo.On("Count", mock.Anything, testTenantID, mock.AnythingOfType("ledger.AccountFilter")).Return(int64(2), nil)

	req := httptest.NewRequest("GET", "/accounts?page=1&page_size=20", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)

	repo.AssertExpectations(t)
}

func TestAccountHandler_DeactivateAccount_Success(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.POST("/accounts/:id/deactivate", handler.DeactivateAccount)

	account := newTestAccount(t, "1000", "Cash", ledger.AccountTypeAsset)
	repo.On("FindByIDForTenant", mock.Anything, testTenantID, account.ID).Return(account, nil)
	repo.On("SaveWithLock", mock.Anything, account).Return(nil)

	req := httptest.NewRequest("POST", fmt.Sprintf("/accounts/%s/deactivate", account.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, account.IsActive)

	repo.AssertExpectations(t)
}

func TestAccountHandler_ActivateAccount_Success(t *testing.T) {
	repo := new(MockAccountRepository)
	handler := setupAccountHandler(repo)

	router := setupTestRouter()
	router.POST("/accounts/:id/activate", handler.ActivateAccount)

	account := newTestAccount(t, "1000", "Cash", ledger.AccountTypeAsset)
	require.NoError(t, account.Deactivate())

	repo.On("FindByIDForTenant", mock.Anything, testTenantID, account.ID).Return(account, nil)
	repo.On("SaveWithLock", mock.Anything, account).Return(nil)

	req := httptest.NewRequest("POST", fmt.Sprintf("/accounts/%s/activate", account.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, account.IsActive)

	repo.AssertExpectations(t)
}
