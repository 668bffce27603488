package handlers

import (
	"github.com/gin-gonic/gin"

	"fincore/internal/domain/documents/invoice"
	"fincore/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler serves invoice generation, cancel and queries.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates an invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service}
}

// Generate runs the full invoice pipeline.
// POST /invoices
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var req dto.GenerateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	serviceReq, err := req.ToServiceRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	inv, err := h.service.Generate(c.Request.Context(), serviceReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, inv)
}

// Get returns one invoice with lines and back-orders.
// GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// List returns invoices matching the filter.
// GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var query dto.ListInvoicesQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	invoices, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OKList(c, invoices, len(invoices))
}

// Cancel voids an unpaid invoice and restores stock and balances.
// POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	invoiceID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.Cancel(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}
