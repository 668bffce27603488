package dto

import (
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/domain/documents/payment"
)

// CreatePaymentRequest records a cash receipt.
type CreatePaymentRequest struct {
	CustomerID string    `json:"customerId" binding:"required"`
	Date       time.Time `json:"date" binding:"required"`
	Amount     string    `json:"amount" binding:"required"`
	Method     string    `json:"method" binding:"required"`
	Reference  string    `json:"reference,omitempty"`
}

// ToServiceRequest converts the payload into the domain request.
func (r *CreatePaymentRequest) ToServiceRequest() (payment.CreateRequest, error) {
	var req payment.CreateRequest

	customerID, err := ParseID("customerId", r.CustomerID)
	if err != nil {
		return req, err
	}
	req.CustomerID = customerID
	req.Date = r.Date
	req.Reference = r.Reference

	if req.Amount, err = ParseMoney("amount", r.Amount); err != nil {
		return req, err
	}

	switch method := payment.Method(r.Method); method {
	case payment.MethodCash, payment.MethodCheque, payment.MethodBankTransfer, payment.MethodCard:
		req.Method = method
	default:
		return req, apperror.NewValidation("unknown payment method").
			WithDetail("field", "method").
			WithDetail("value", r.Method)
	}

	return req, nil
}

// AllocationItemRequest targets one invoice within an allocation batch.
type AllocationItemRequest struct {
	InvoiceID         string `json:"invoiceId" binding:"required"`
	Amount            string `json:"amount" binding:"required"`
	DiscountRequested string `json:"discountRequested,omitempty"`
}

// AllocateRequest is a batch of allocation requests for one payment.
type AllocateRequest struct {
	Allocations []AllocationItemRequest `json:"allocations" binding:"required,min=1,dive"`
}

// ToServiceRequests converts the batch into domain requests.
func (r *AllocateRequest) ToServiceRequests() ([]payment.AllocationRequest, error) {
	requests := make([]payment.AllocationRequest, 0, len(r.Allocations))
	for _, item := range r.Allocations {
		invoiceID, err := ParseID("invoiceId", item.InvoiceID)
		if err != nil {
			return nil, err
		}
		amount, err := ParseMoney("amount", item.Amount)
		if err != nil {
			return nil, err
		}
		discount, err := ParseMoney("discountRequested", item.DiscountRequested)
		if err != nil {
			return nil, err
		}
		requests = append(requests, payment.AllocationRequest{
			InvoiceID:         invoiceID,
			Amount:            amount,
			DiscountRequested: discount,
		})
	}
	return requests, nil
}

// ReversePaymentRequest reverses a payment with an audit reason.
type ReversePaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AutoAllocateRequest scopes an auto-allocation sweep. Empty customer id
// sweeps all customers.
type AutoAllocateRequest struct {
	CustomerID string `json:"customerId,omitempty"`
}

// ListPaymentsQuery filters the payment list endpoint.
type ListPaymentsQuery struct {
	CustomerID string     `form:"customerId"`
	Reversed   *bool      `form:"reversed"`
	DateFrom   *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo     *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit      int        `form:"limit,default=50" binding:"min=0,max=500"`
	Offset     int        `form:"offset" binding:"min=0"`
}

// ToFilter converts query parameters into the repository filter.
func (q *ListPaymentsQuery) ToFilter() (payment.ListFilter, error) {
	filter := payment.ListFilter{
		Reversed: q.Reversed,
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
	return filter, nil
}
