package handler

import (
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// RateHandler handles exchange rate API endpoints
type RateHandler struct {
	BaseHandler
	rates *ledgerapp.RateService
}

// NewRateHandler creates a new RateHandler
func NewRateHandler(rates *ledgerapp.RateService) *RateHandler {
	return &RateHandler{rates: rates}
}

// SaveRate handles PUT /rates. Saving a rate for a pair and date that
// already has one overwrites it.
func (h *RateHandler) SaveRate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ledgerapp.SaveRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rate, err := h.rates.SaveRate(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rate)
}

// SaveRates handles PUT /rates/batch
func (h *RateHandler) SaveRates(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var reqs []ledgerapp.SaveRateRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if len(reqs) == 0 {
		h.BadRequest(c, "Empty rate batch")
		return
	}

	rates, err := h.rates.SaveRates(c.Request.Context(), tenantID, reqs)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rates)
}

// GetLatestRate handles GET /rates/latest?source=USD&target=TRY&date=2026-01-31
func (h *RateHandler) GetLatestRate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	source := c.Query("source")
	target := c.Query("target")
	if source == "" || target == "" {
		h.BadRequest(c, "source and target are required")
		return
	}

	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
	}

	rate, err := h.rates.GetLatestRate(c.Request.Context(), tenantID, source, target, date)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rate)
}

// ListRates handles GET /rates?from=2026-01-01&to=2026-01-31
func (h *RateHandler) ListRates(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		h.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		h.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
		return
	}

	rates, err := h.rates.ListRates(c.Request.Context(), tenantID, from, to)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rates)
}
