package handlers

import (
	"github.com/gin-gonic/gin"

	"fincore/internal/domain/catalogs/stockitem"
	"fincore/internal/infrastructure/http/v1/dto"
)

// StockItemHandler serves the stock item catalog and goods receipts.
type StockItemHandler struct {
	*BaseHandler
	repo    stockitem.Repository
	service *stockitem.Service
}

// NewStockItemHandler creates a stock item handler.
func NewStockItemHandler(base *BaseHandler, repo stockitem.Repository, service *stockitem.Service) *StockItemHandler {
	return &StockItemHandler{BaseHandler: base, repo: repo, service: service}
}

// Create adds a stock item.
// POST /stock-items
func (h *StockItemHandler) Create(c *gin.Context) {
	var req dto.CreateStockItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := item.Validate(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), item); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, item.ID.String())
}

// Get returns one stock item.
// GET /stock-items/:id
func (h *StockItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	item, err := h.repo.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// List returns stock items ordered by code.
// GET /stock-items
func (h *StockItemHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	items, err := h.repo.List(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OKList(c, items, len(items))
}

// Receive books a goods receipt, creating a costing lot.
// POST /stock-items/:id/receipts
func (h *StockItemHandler) Receive(c *gin.Context) {
	var req dto.StockReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	serviceReq, err := req.ToServiceRequest(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	item, err := h.service.Receive(c.Request.Context(), serviceReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// Lots returns the open lot history for an item.
// GET /stock-items/:id/lots
func (h *StockItemHandler) Lots(c *gin.Context) {
	itemID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	lots, err := h.repo.GetOpenLots(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OKList(c, lots, len(lots))
}
