package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BudgetHandler handles budget API endpoints
type BudgetHandler struct {
	BaseHandler
	budgets *ledgerapp.BudgetService
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgets *ledgerapp.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgets: budgets}
}

// CreateBudget handles POST /budgets
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ledgerapp.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	budget, err := h.budgets.CreateBudget(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, budget)
}

// GetBudget handles GET /budgets/:id
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	tenantID, budgetID, ok := h.ids(c)
	if !ok {
		return
	}

	budget, err := h.budgets.GetBudget(c.Request.Context(), tenantID, budgetID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// ListBudgets handles GET /budgets
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter ledgerapp.BudgetListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	budgets, err := h.budgets.ListBudgets(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budgets)
}

// CommitBudget handles POST /budgets/:id/commitments
func (h *BudgetHandler) CommitBudget(c *gin.Context) {
	tenantID, budgetID, ok := h.ids(c)
	if !ok {
		return
	}

	var req ledgerapp.CommitBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	budget, err := h.budgets.CommitBudget(c.Request.Context(), tenantID, budgetID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// ConsumeBudget handles POST /budgets/:id/consume
func (h *BudgetHandler) ConsumeBudget(c *gin.Context) {
	tenantID, budgetID, ok := h.ids(c)
	if !ok {
		return
	}

	var req ledgerapp.ConsumeBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	budget, err := h.budgets.ConsumeBudget(c.Request.Context(), tenantID, budgetID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// ReleaseBudget handles POST /budgets/:id/commitments/:commitmentID/release
func (h *BudgetHandler) ReleaseBudget(c *gin.Context) {
	tenantID, budgetID, ok := h.ids(c)
	if !ok {
		return
	}

	commitmentID, err := uuid.Parse(c.Param("commitmentID"))
	if err != nil {
		h.BadRequest(c, "Invalid commitment ID")
		return
	}

	budget, err := h.budgets.ReleaseBudget(c.Request.Context(), tenantID, budgetID, commitmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// ReviseBudget handles PUT /budgets/:id/total
func (h *BudgetHandler) ReviseBudget(c *gin.Context) {
	tenantID, budgetID, ok := h.ids(c)
	if !ok {
		return
	}

	var req ledgerapp.ReviseBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	budget, err := h.budgets.ReviseBudget(c.Request.Context(), tenantID, budgetID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// SetBudgetThresholds handles PUT /budgets/:id/thresholds
func (h *BudgetHandler) SetBudgetThresholds(c *gin.Context) {
	tenantID, budgetID, ok := h.ids(c)
	if !ok {
		return
	}

	var req ledgerapp.SetThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	budget, err := h.budgets.SetBudgetThresholds(c.Request.Context(), tenantID, budgetID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

// CloseBudget handles POST /budgets/:id/close
func (h *BudgetHandler) CloseBudget(c *gin.Context) {
	tenantID, budgetID, ok := h.ids(c)
	if !ok {
		return
	}

	budget, err := h.budgets.CloseBudget(c.Request.Context(), tenantID, budgetID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, budget)
}

func (h *BudgetHandler) ids(c *gin.Context) (tenantID, budgetID uuid.UUID, ok bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, uuid.Nil, false
	}

	budgetID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid budget ID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, budgetID, true
}
