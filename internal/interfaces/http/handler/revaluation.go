package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RevaluationHandler handles exchange rate adjustment API endpoints
type RevaluationHandler struct {
	BaseHandler
	revaluations *ledgerapp.RevaluationService
}

// NewRevaluationHandler creates a new RevaluationHandler
func NewRevaluationHandler(revaluations *ledgerapp.RevaluationService) *RevaluationHandler {
	return &RevaluationHandler{revaluations: revaluations}
}

// ComputeRevaluation handles POST /revaluations
func (h *RevaluationHandler) ComputeRevaluation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ledgerapp.ComputeRevaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	adjustment, err := h.revaluations.ComputeRevaluation(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, adjustment)
}

// ApproveAdjustment handles POST /revaluations/:id/approve
func (h *RevaluationHandler) ApproveAdjustment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	adjustmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid adjustment ID")
		return
	}

	approvedBy, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Approver identity required")
		return
	}

	adjustment, err := h.revaluations.ApproveAdjustment(c.Request.Context(), tenantID, adjustmentID, approvedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, adjustment)
}

// CancelAdjustment handles POST /revaluations/:id/cancel
func (h *RevaluationHandler) CancelAdjustment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	adjustmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid adjustment ID")
		return
	}

	adjustment, err := h.revaluations.CancelAdjustment(c.Request.Context(), tenantID, adjustmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, adjustment)
}

// JournalizeAdjustment handles POST /revaluations/:id/journalize
func (h *RevaluationHandler) JournalizeAdjustment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	adjustmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid adjustment ID")
		return
	}

	var req ledgerapp.JournalizeAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	adjustment, err := h.revaluations.JournalizeAdjustment(c.Request.Context(), tenantID, adjustmentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, adjustment)
}

// GetAdjustment handles GET /revaluations/:id
func (h *RevaluationHandler) GetAdjustment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	adjustmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid adjustment ID")
		return
	}

	adjustment, err := h.revaluations.GetAdjustment(c.Request.Context(), tenantID, adjustmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, adjustment)
}

// ListAdjustments handles GET /revaluations
func (h *RevaluationHandler) ListAdjustments(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter ledgerapp.AdjustmentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	adjustments, err := h.revaluations.ListAdjustments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, adjustments)
}
