package handlers

import (
	"github.com/gin-gonic/gin"

	"fincore/internal/domain/catalogs/account"
	"fincore/internal/infrastructure/http/v1/dto"
)

// AccountHandler serves the chart of accounts.
type AccountHandler struct {
	*BaseHandler
	repo account.Repository
}

// NewAccountHandler creates an account handler.
func NewAccountHandler(base *BaseHandler, repo account.Repository) *AccountHandler {
	return &AccountHandler{BaseHandler: base, repo: repo}
}

// Create adds a chart-of-accounts entry.
// POST /accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	acct := req.ToEntity()
	if err := acct.Validate(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.repo.Create(c.Request.Context(), acct); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, acct.ID.String())
}

// Get returns one account.
// GET /accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	acct, err := h.repo.GetByID(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, acct)
}

// List returns accounts ordered by code.
// GET /accounts
func (h *AccountHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	accounts, err := h.repo.List(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OKList(c, accounts, len(accounts))
}
