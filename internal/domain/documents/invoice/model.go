// Package invoice implements sales invoice generation: line pricing,
// discount and VAT accumulation, back-order splitting, credit control and
// the transactional write-back to stock and the sales ledger.
package invoice

import (
	"context"
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/entity"
	"fincore/internal/core/id"
	"fincore/internal/core/types"
	"fincore/internal/domain/vat"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusCancelled Status = "CANCELLED"
)

// paidTolerance is the rounding slack under which an invoice counts as
// fully paid.
var paidTolerance = types.MustMoney("0.01")

// Line is one priced invoice line. All computed fields are final: lines
// are never recomputed after the invoice is created.
type Line struct {
	LineID      id.ID  `db:"line_id" json:"lineId"`
	LineNo      int    `db:"line_no" json:"lineNo"`
	StockItemID *id.ID `db:"stock_item_id" json:"stockItemId,omitempty"`
	StockCode   string `db:"stock_code" json:"stockCode,omitempty"`
	Description string `db:"description" json:"description"`

	Quantity  types.Money `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	DiscountPct    types.Money `db:"discount_pct" json:"discountPct"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	NetAmount      types.Money `db:"net_amount" json:"netAmount"`

	VATCode   vat.Code    `db:"vat_code" json:"vatCode"`
	VATRate   types.Money `db:"vat_rate" json:"vatRate"`
	VATAmount types.Money `db:"vat_amount" json:"vatAmount"`
}

// BackOrder records the un-fulfillable portion of a requested line,
// deferred rather than shipped.
type BackOrder struct {
	ID          id.ID       `db:"id" json:"id"`
	Number      string      `db:"number" json:"number"`
	InvoiceID   id.ID       `db:"invoice_id" json:"invoiceId"`
	CustomerID  id.ID       `db:"customer_id" json:"customerId"`
	StockItemID id.ID       `db:"stock_item_id" json:"stockItemId"`
	StockCode   string      `db:"stock_code" json:"stockCode"`
	Quantity    types.Money `db:"quantity" json:"quantity"`
	UnitPrice   types.Money `db:"unit_price" json:"unitPrice"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
}

// Invoice is a sales invoice header with lines and any back-orders raised
// while generating it.
type Invoice struct {
	entity.BaseDocument

	Number       string    `db:"number" json:"number"`
	CustomerID   id.ID     `db:"customer_id" json:"customerId"`
	CustomerCode string    `db:"customer_code" json:"customerCode"`
	Date         time.Time `db:"date" json:"date"`

	Status Status `db:"status" json:"status"`

	HeaderDiscountPct    types.Money `db:"header_discount_pct" json:"headerDiscountPct"`
	HeaderDiscountAmount types.Money `db:"header_discount_amount" json:"headerDiscountAmount"`
	ExtraCharges         types.Money `db:"extra_charges" json:"extraCharges"`
	Shipping             types.Money `db:"shipping" json:"shipping"`

	NetTotal   types.Money `db:"net_total" json:"netTotal"`
	VATTotal   types.Money `db:"vat_total" json:"vatTotal"`
	GrossTotal types.Money `db:"gross_total" json:"grossTotal"`

	// Settlement state
	AmountPaid types.Money `db:"amount_paid" json:"amountPaid"`
	Balance    types.Money `db:"balance" json:"balance"`
	IsPaid     bool        `db:"is_paid" json:"isPaid"`

	VATBreakdown map[vat.Code]vat.CodeTotals `db:"-" json:"vatBreakdown"`

	Lines      []Line      `db:"-" json:"lines"`
	BackOrders []BackOrder `db:"-" json:"backOrders,omitempty"`
}

// NewInvoice creates an open invoice shell for a customer.
func NewInvoice(customerID id.ID, customerCode string, date time.Time) *Invoice {
	return &Invoice{
		BaseDocument: entity.NewBaseDocument(),
		CustomerID:   customerID,
		CustomerCode: customerCode,
		Date:         date,
		Status:       StatusOpen,
		NetTotal:     types.Zero(),
		VATTotal:     types.Zero(),
		GrossTotal:   types.Zero(),
		AmountPaid:   types.Zero(),
		Balance:      types.Zero(),
		VATBreakdown: make(map[vat.Code]vat.CodeTotals),
	}
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if id.IsNil(inv.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if inv.Date.IsZero() {
		return apperror.NewValidation("invoice date is required").
			WithDetail("field", "date")
	}
	if inv.HeaderDiscountPct.IsNegative() {
		return apperror.NewValidation("header discount cannot be negative").
			WithDetail("field", "headerDiscountPct")
	}
	return nil
}

// ApplyAllocation records a payment allocation against the invoice:
// amount paid grows by allocation plus any settlement discount taken,
// balance is recomputed from the gross total, and the invoice is marked
// paid once the balance falls within rounding tolerance.
func (inv *Invoice) ApplyAllocation(amount, discountTaken types.Money) {
	inv.AmountPaid = inv.AmountPaid.Add(amount).Add(discountTaken)
	inv.recomputeBalance()
	inv.Touch()
}

// RemoveAllocation undoes a previous allocation during payment reversal.
func (inv *Invoice) RemoveAllocation(amount, discountTaken types.Money) {
	inv.AmountPaid = inv.AmountPaid.Sub(amount).Sub(discountTaken)
	inv.recomputeBalance()
	inv.Touch()
}

func (inv *Invoice) recomputeBalance() {
	inv.Balance = inv.GrossTotal.Sub(inv.AmountPaid)
	inv.IsPaid = inv.Balance.LessThanOrEqual(paidTolerance)
}
