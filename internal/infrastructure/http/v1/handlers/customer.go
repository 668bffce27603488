package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"fincore/internal/core/security"
	"fincore/internal/domain/audit"
	"fincore/internal/domain/catalogs/customer"
	"fincore/internal/infrastructure/http/v1/dto"
)

// CustomerHandler serves the customer catalog.
type CustomerHandler struct {
	*BaseHandler
	repo   customer.Repository
	audits audit.Recorder
}

// NewCustomerHandler creates a customer handler. The recorder may be
// nil; master data changes then leave no audit trail.
func NewCustomerHandler(base *BaseHandler, repo customer.Repository, audits audit.Recorder) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, repo: repo, audits: audits}
}

// auditSnapshot captures the customer fields tracked in the audit trail.
func auditSnapshot(cust *customer.Customer) map[string]any {
	return map[string]any{
		"code":             cust.Code,
		"name":             cust.Name,
		"active":           cust.Active,
		"onHold":           cust.OnHold,
		"creditLimit":      cust.CreditLimit,
		"settlementDays":   cust.SettlementDays,
		"settlementPct":    cust.SettlementPct,
		"tradeDiscountPct": cust.TradeDiscountPct,
	}
}

func (h *CustomerHandler) recordAudit(ctx context.Context, cust *customer.Customer, action audit.Action, before map[string]any) {
	if h.audits == nil {
		return
	}
	rec := audit.NewRecord("customer", cust.ID, action,
		audit.Changes(before, auditSnapshot(cust)), security.GetUserID(ctx))
	_ = h.audits.Record(ctx, rec)
}

// Create adds a customer.
// POST /customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := cust.Validate(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), cust); err != nil {
		h.Error(c, err)
		return
	}
	h.recordAudit(c.Request.Context(), cust, audit.ActionInsert, nil)
	h.Created(c, cust.ID.String())
}

// Get returns one customer.
// GET /customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	cust, err := h.repo.GetByID(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// Update patches customer master data.
// PATCH /customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := h.repo.GetByID(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	before := auditSnapshot(cust)
	if err := req.ApplyTo(cust); err != nil {
		h.Error(c, err)
		return
	}
	if err := cust.Validate(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	cust.Touch()
	if err := h.repo.Update(c.Request.Context(), cust); err != nil {
		h.Error(c, err)
		return
	}
	h.recordAudit(c.Request.Context(), cust, audit.ActionUpdate, before)
	h.OK(c, cust)
}

// List returns customers ordered by code.
// GET /customers
func (h *CustomerHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	customers, err := h.repo.List(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OKList(c, customers, len(customers))
}
