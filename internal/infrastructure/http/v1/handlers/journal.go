package handlers

import (
	"github.com/gin-gonic/gin"

	"fincore/internal/domain/journal"
	"fincore/internal/infrastructure/http/v1/dto"
)

// JournalHandler serves journal entry creation, posting and reversal.
type JournalHandler struct {
	*BaseHandler
	service *journal.Service
}

// NewJournalHandler creates a journal handler.
func NewJournalHandler(base *BaseHandler, service *journal.Service) *JournalHandler {
	return &JournalHandler{BaseHandler: base, service: service}
}

// Create stores a pending entry. Unbalanced entries are rejected here and
// never stored.
// POST /journals
func (h *JournalHandler) Create(c *gin.Context) {
	var req dto.CreateJournalRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), entry); err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, entry)
}

// Get returns one entry with lines.
// GET /journals/:id
func (h *JournalHandler) Get(c *gin.Context) {
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.GetByID(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// List returns entries matching the filter.
// GET /journals
func (h *JournalHandler) List(c *gin.Context) {
	var query dto.ListJournalsQuery
	if !h.BindQuery(c, &query) {
		return
	}

	entries, err := h.service.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OKList(c, entries, len(entries))
}

// Post transitions a pending entry to POSTED.
// POST /journals/:id/post
func (h *JournalHandler) Post(c *gin.Context) {
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.Post(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// Reverse creates the linked reversal entry.
// POST /journals/:id/reverse
func (h *JournalHandler) Reverse(c *gin.Context) {
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.ReverseJournalRequest
	if !h.BindJSON(c, &req) {
		return
	}

	reversal, err := h.service.Reverse(c.Request.Context(), entryID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, reversal)
}
