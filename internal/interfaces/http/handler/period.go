package handler

import (
	"context"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PeriodHandler handles accounting period API endpoints
type PeriodHandler struct {
	BaseHandler
	periods *ledgerapp.PeriodService
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periods *ledgerapp.PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// CreatePeriod handles POST /periods
func (h *PeriodHandler) CreatePeriod(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ledgerapp.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	period, err := h.periods.CreatePeriod(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, period)
}

// GetPeriod handles GET /periods/:id
func (h *PeriodHandler) GetPeriod(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	periodID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid period ID")
		return
	}

	period, err := h.periods.GetPeriod(c.Request.Context(), tenantID, periodID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, period)
}

// GetPeriodByDate handles GET /periods/by-date?date=2026-01-31
func (h *PeriodHandler) GetPeriodByDate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	period, err := h.periods.GetPeriodByDate(c.Request.Context(), tenantID, date)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, period)
}

// ListPeriods handles GET /periods
func (h *PeriodHandler) ListPeriods(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter ledgerapp.PeriodListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	periods, err := h.periods.ListPeriods(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, periods)
}

// SoftClosePeriod handles POST /periods/:id/soft-close
func (h *PeriodHandler) SoftClosePeriod(c *gin.Context) {
	h.transition(c, h.periods.SoftClosePeriod)
}

// ReopenPeriod handles POST /periods/:id/reopen
func (h *PeriodHandler) ReopenPeriod(c *gin.Context) {
	h.transition(c, h.periods.ReopenPeriod)
}

// ClosePeriod handles POST /periods/:id/close. Closing posts the closing
// entry in this period and the opening entry in the next one.
func (h *PeriodHandler) ClosePeriod(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	periodID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid period ID")
		return
	}

	var req ledgerapp.ClosePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.ClosedBy == nil {
		if userID, err := getUserID(c); err == nil {
			req.ClosedBy = &userID
		}
	}

	result, err := h.periods.ClosePeriod(c.Request.Context(), tenantID, periodID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *PeriodHandler) transition(
	c *gin.Context,
	op func(ctx context.Context, tenantID, periodID uuid.UUID) (*ledgerapp.PeriodResponse, error),
) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	periodID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid period ID")
		return
	}

	period, err := op(c.Request.Context(), tenantID, periodID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, period)
}
