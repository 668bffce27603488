// Package payment implements cash receipt recording and allocation of
// receipts across open invoices, including settlement discounts, full
// reversal, and the oldest-first auto-allocation sweep.
package payment

import (
	"context"
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/entity"
	"fincore/internal/core/id"
	"fincore/internal/core/types"
)

// Method is how the payment was received.
type Method string

const (
	MethodCash         Method = "CASH"
	MethodCheque       Method = "CHEQUE"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodCard         Method = "CARD"
)

// Allocation ties part of a payment to one invoice. Allocations are
// created and deleted whole, never mutated in place.
type Allocation struct {
	ID            id.ID       `db:"id" json:"id"`
	PaymentID     id.ID       `db:"payment_id" json:"paymentId"`
	InvoiceID     id.ID       `db:"invoice_id" json:"invoiceId"`
	InvoiceNumber string      `db:"invoice_number" json:"invoiceNumber"`
	Amount        types.Money `db:"amount" json:"amount"`
	DiscountTaken types.Money `db:"discount_taken" json:"discountTaken"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}

// Payment is a cash receipt from a customer.
//
// Invariant: AllocatedAmount + UnallocatedAmount == Amount after every
// allocate or reverse operation.
type Payment struct {
	entity.BaseDocument

	Number       string    `db:"number" json:"number"`
	CustomerID   id.ID     `db:"customer_id" json:"customerId"`
	CustomerCode string    `db:"customer_code" json:"customerCode"`
	Date         time.Time `db:"date" json:"date"`

	Method    Method `db:"method" json:"method"`
	Reference string `db:"reference" json:"reference,omitempty"`

	Amount            types.Money `db:"amount" json:"amount"`
	AllocatedAmount   types.Money `db:"allocated_amount" json:"allocatedAmount"`
	UnallocatedAmount types.Money `db:"unallocated_amount" json:"unallocatedAmount"`

	// Reversal is terminal: a reversed payment cannot be allocated or
	// reversed again.
	Reversed       bool       `db:"reversed" json:"reversed"`
	ReversedAt     *time.Time `db:"reversed_at" json:"reversedAt,omitempty"`
	ReversalReason string     `db:"reversal_reason" json:"reversalReason,omitempty"`

	Allocations []Allocation `db:"-" json:"allocations,omitempty"`
}

// NewPayment creates a fully unallocated payment.
func NewPayment(customerID id.ID, customerCode string, date time.Time, amount types.Money, method Method, reference string) *Payment {
	return &Payment{
		BaseDocument:      entity.NewBaseDocument(),
		CustomerID:        customerID,
		CustomerCode:      customerCode,
		Date:              date,
		Method:            method,
		Reference:         reference,
		Amount:            amount,
		AllocatedAmount:   types.Zero(),
		UnallocatedAmount: amount,
	}
}

// Validate implements entity.Validatable.
func (p *Payment) Validate(ctx context.Context) error {
	if id.IsNil(p.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if !p.Amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount").
			WithDetail("value", p.Amount.String())
	}
	if p.Date.IsZero() {
		return apperror.NewValidation("payment date is required").
			WithDetail("field", "date")
	}
	return nil
}

// ApplyAllocation moves an amount from unallocated to allocated.
func (p *Payment) ApplyAllocation(amount types.Money) {
	p.AllocatedAmount = p.AllocatedAmount.Add(amount)
	p.UnallocatedAmount = p.UnallocatedAmount.Sub(amount)
	p.Touch()
}

// MarkReversed records the terminal reversal, returning the full amount
// to the unallocated side so the conservation invariant keeps holding.
func (p *Payment) MarkReversed(reason string, at time.Time) {
	p.Reversed = true
	p.ReversedAt = &at
	p.ReversalReason = reason
	p.AllocatedAmount = types.Zero()
	p.UnallocatedAmount = p.Amount
	p.Touch()
}
