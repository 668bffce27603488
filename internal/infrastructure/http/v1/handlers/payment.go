package handlers

import (
	"github.com/gin-gonic/gin"

	"fincore/internal/core/id"
	"fincore/internal/domain/documents/payment"
	"fincore/internal/infrastructure/http/v1/dto"
)

// PaymentHandler serves payment recording, allocation and reversal.
type PaymentHandler struct {
	*BaseHandler
	service *payment.Service
}

// NewPaymentHandler creates a payment handler.
func NewPaymentHandler(base *BaseHandler, service *payment.Service) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service}
}

// Create records a cash receipt.
// POST /payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	serviceReq, err := req.ToServiceRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), serviceReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, p)
}

// Get returns one payment with its allocations.
// GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	paymentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// List returns payments matching the filter.
// GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	var query dto.ListPaymentsQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	payments, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OKList(c, payments, len(payments))
}

// Allocate applies a batch of allocations against open invoices. The
// response carries a per-request status; a batch can partially succeed.
// POST /payments/:id/allocations
func (h *PaymentHandler) Allocate(c *gin.Context) {
	paymentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.AllocateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	requests, err := req.ToServiceRequests()
	if err != nil {
		h.Error(c, err)
		return
	}

	results, err := h.service.Allocate(c.Request.Context(), paymentID, requests)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OKList(c, results, len(results))
}

// Reverse undoes a payment in full, restoring invoice and customer state.
// POST /payments/:id/reverse
func (h *PaymentHandler) Reverse(c *gin.Context) {
	paymentID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.ReversePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Reverse(c.Request.Context(), paymentID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// AutoAllocate sweeps unallocated payments across open invoices,
// oldest first, without settlement discounts.
// POST /payments/auto-allocate
func (h *PaymentHandler) AutoAllocate(c *gin.Context) {
	var req dto.AutoAllocateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var customerID *id.ID
	if req.CustomerID != "" {
		parsed, err := dto.ParseID("customerId", req.CustomerID)
		if err != nil {
			h.Error(c, err)
			return
		}
		customerID = &parsed
	}

	summary, err := h.service.AutoAllocate(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}
