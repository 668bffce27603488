package dto

import (
	"time"

	"fincore/internal/domain/documents/invoice"
	"fincore/internal/domain/vat"
)

// --- Request DTOs ---

// InvoiceLineRequest is one requested invoice line. Monetary values travel
// as decimal strings; float64 would corrupt them in transit.
type InvoiceLineRequest struct {
	StockItemID string `json:"stockItemId,omitempty"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unitPrice" binding:"required"`

	// DiscountPct overrides the customer's default trade discount when set.
	DiscountPct *string `json:"discountPct,omitempty"`

	VATCode string `json:"vatCode,omitempty"`
}

// GenerateInvoiceRequest is the invoice generation payload.
type GenerateInvoiceRequest struct {
	CustomerID        string               `json:"customerId" binding:"required"`
	Date              time.Time            `json:"date" binding:"required"`
	Lines             []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
	HeaderDiscountPct string               `json:"headerDiscountPct,omitempty"`
	ExtraCharges      string               `json:"extraCharges,omitempty"`
	Shipping          string               `json:"shipping,omitempty"`
	ReverseCharge     bool                 `json:"reverseCharge,omitempty"`
	PrepareGL         bool                 `json:"prepareGl,omitempty"`
}

// ToServiceRequest converts the payload into the domain request.
func (r *GenerateInvoiceRequest) ToServiceRequest() (invoice.GenerateRequest, error) {
	var req invoice.GenerateRequest

	customerID, err := ParseID("customerId", r.CustomerID)
	if err != nil {
		return req, err
	}
	req.CustomerID = customerID
	req.Date = r.Date
	req.ReverseCharge = r.ReverseCharge
	req.PrepareGL = r.PrepareGL

	if req.HeaderDiscountPct, err = ParseMoney("headerDiscountPct", r.HeaderDiscountPct); err != nil {
		return req, err
	}
	if req.ExtraCharges, err = ParseMoney("extraCharges", r.ExtraCharges); err != nil {
		return req, err
	}
	if req.Shipping, err = ParseMoney("shipping", r.Shipping); err != nil {
		return req, err
	}

	for _, line := range r.Lines {
		lr := invoice.LineRequest{
			Description: line.Description,
			VATCode:     vat.Code(line.VATCode),
		}
		if line.StockItemID != "" {
			itemID, err := ParseID("stockItemId", line.StockItemID)
			if err != nil {
				return req, err
			}
			lr.StockItemID = &itemID
		}
		if lr.Quantity, err = ParseMoney("quantity", line.Quantity); err != nil {
			return req, err
		}
		if lr.UnitPrice, err = ParseMoney("unitPrice", line.UnitPrice); err != nil {
			return req, err
		}
		if line.DiscountPct != nil {
			pct, err := ParseMoney("discountPct", *line.DiscountPct)
			if err != nil {
				return req, err
			}
			lr.DiscountPct = &pct
		}
		req.Lines = append(req.Lines, lr)
	}

	return req, nil
}

// ListInvoicesQuery filters the invoice list endpoint.
type ListInvoicesQuery struct {
	CustomerID string     `form:"customerId"`
	Status     string     `form:"status"`
	IsPaid     *bool      `form:"isPaid"`
	DateFrom   *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo     *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit      int        `form:"limit,default=50" binding:"min=0,max=500"`
	Offset     int        `form:"offset" binding:"min=0"`
}

// ToFilter converts query parameters into the repository filter.
func (q *ListInvoicesQuery) ToFilter() (invoice.ListFilter, error) {
	filter := invoice.ListFilter{
		IsPaid:   q.IsPaid,
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.CustomerID != "" {
		customerID, err := ParseID("customerId", q.CustomerID)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &customerID
	}
	if q.Status != "" {
		status := invoice.Status(q.Status)
		filter.Status = &status
	}
	return filter, nil
}
