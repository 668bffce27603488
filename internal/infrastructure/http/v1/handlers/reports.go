package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"fincore/internal/domain/reports"
	"fincore/internal/infrastructure/http/v1/dto"
)

// ReportsHandler serves the read-only reporting endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// TrialBalance aggregates posted journal lines per account for a period.
// GET /reports/trial-balance
func (h *ReportsHandler) TrialBalance(c *gin.Context) {
	var query dto.TrialBalanceQuery
	if !h.BindQuery(c, &query) {
		return
	}

	tb, err := h.service.TrialBalance(c.Request.Context(), query.From, query.To)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tb)
}

// AgedDebt returns the aged debtors summary.
// GET /reports/aged-debt
func (h *ReportsHandler) AgedDebt(c *gin.Context) {
	var query dto.AgedDebtQuery
	if !h.BindQuery(c, &query) {
		return
	}

	asOf := time.Now().UTC()
	if query.AsOf != nil {
		asOf = *query.AsOf
	}

	report, err := h.service.AgedDebt(c.Request.Context(), asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// StockValuation returns the stock valuation report.
// GET /reports/stock-valuation
func (h *ReportsHandler) StockValuation(c *gin.Context) {
	var query dto.StockValuationQuery
	if !h.BindQuery(c, &query) {
		return
	}

	asOf := time.Now().UTC()
	if query.AsOf != nil {
		asOf = *query.AsOf
	}

	report, err := h.service.StockValuation(c.Request.Context(), asOf, query.IncludeZeroStock)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
