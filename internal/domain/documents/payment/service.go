package payment

import (
	"context"
	"fmt"
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/id"
	"fincore/internal/core/security"
	"fincore/internal/core/tx"
	"fincore/internal/core/types"
	"fincore/internal/domain/audit"
	"fincore/internal/domain/catalogs/customer"
	"fincore/internal/domain/discount"
	"fincore/internal/domain/documents/invoice"
	"fincore/pkg/logger"
	"fincore/pkg/numerator"
)

// AllocationStatus is the per-request outcome of a batch allocation.
type AllocationStatus string

const (
	AllocSuccess            AllocationStatus = "SUCCESS"
	AllocNotFound           AllocationStatus = "NOT_FOUND"
	AllocWrongCustomer      AllocationStatus = "WRONG_CUSTOMER"
	AllocAlreadyPaid        AllocationStatus = "ALREADY_PAID"
	AllocDiscountNotAllowed AllocationStatus = "DISCOUNT_NOT_ALLOWED"
	AllocNoAmount           AllocationStatus = "NO_AMOUNT"
)

// AllocationRequest asks for part of a payment to settle one invoice.
// DiscountRequested above zero claims a settlement discount, honored only
// inside the invoice's settlement window.
type AllocationRequest struct {
	InvoiceID         id.ID
	Amount            types.Money
	DiscountRequested types.Money
}

// AllocationResult reports one request's outcome. A batch is partial
// success by design: one bad request does not abort the others.
type AllocationResult struct {
	InvoiceID     id.ID            `json:"invoiceId"`
	InvoiceNumber string           `json:"invoiceNumber,omitempty"`
	Status        AllocationStatus `json:"status"`
	Allocated     types.Money      `json:"allocated"`
	DiscountTaken types.Money      `json:"discountTaken"`
	Message       string           `json:"message,omitempty"`
}

// AutoAllocateSummary reports an auto-allocation sweep.
type AutoAllocateSummary struct {
	PaymentsProcessed  int         `json:"paymentsProcessed"`
	AllocationsCreated int         `json:"allocationsCreated"`
	TotalAllocated     types.Money `json:"totalAllocated"`
}

// Service allocates cash receipts across open invoices.
type Service struct {
	repo      Repository
	invoices  invoice.Repository
	customers customer.Repository

	discountEngine *discount.Engine
	numerator      *numerator.Service
	txManager      tx.Manager

	// audits is optional; when set, payment creation, allocation and
	// reversal leave audit trail records.
	audits audit.Recorder
}

// NewService creates a payment service.
func NewService(
	repo Repository,
	invoices invoice.Repository,
	customers customer.Repository,
	discountEngine *discount.Engine,
	num *numerator.Service,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:           repo,
		invoices:       invoices,
		customers:      customers,
		discountEngine: discountEngine,
		numerator:      num,
		txManager:      txManager,
	}
}

// WithAudit wires the audit trail recorder.
func (s *Service) WithAudit(rec audit.Recorder) *Service {
	s.audits = rec
	return s
}

// auditSnapshot captures the payment fields tracked in the audit trail.
func auditSnapshot(p *Payment) map[string]any {
	return map[string]any{
		"number":      p.Number,
		"customer":    p.CustomerCode,
		"amount":      p.Amount,
		"allocated":   p.AllocatedAmount,
		"unallocated": p.UnallocatedAmount,
		"reversed":    p.Reversed,
	}
}

func (s *Service) recordAudit(ctx context.Context, p *Payment, action audit.Action, before map[string]any) {
	if s.audits == nil {
		return
	}
	rec := audit.NewRecord("payment", p.ID, action,
		audit.Changes(before, auditSnapshot(p)), security.GetUserID(ctx))
	_ = s.audits.Record(ctx, rec)
}

// CreateRequest is the input to payment creation.
type CreateRequest struct {
	CustomerID id.ID
	Date       time.Time
	Amount     types.Money
	Method     Method
	Reference  string
}

// Create records a cash receipt and reduces the customer balance by the
// full amount. The payment starts fully unallocated.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Payment, error) {
	cust, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	p := NewPayment(cust.ID, cust.Code, req.Date, req.Amount, req.Method, req.Reference)
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PAY"), nil, req.Date)
	if err != nil {
		return nil, fmt.Errorf("generate payment number: %w", err)
	}
	p.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		locked, err := s.customers.GetForUpdate(ctx, cust.ID)
		if err != nil {
			return err
		}
		locked.Balance = locked.Balance.Sub(p.Amount)
		locked.Touch()
		if err := s.customers.Update(ctx, locked); err != nil {
			return err
		}
		s.recordAudit(ctx, p, audit.ActionInsert, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment created",
		"number", p.Number, "customer", cust.Code, "amount", p.Amount.String())
	return p, nil
}

// Allocate applies a batch of allocation requests against one payment.
// Requests are validated independently: failures are reported per request
// while the successes in the same batch still commit together.
func (s *Service) Allocate(ctx context.Context, paymentID id.ID, requests []AllocationRequest) ([]AllocationResult, error) {
	results := make([]AllocationResult, 0, len(requests))

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Reversed {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"A reversed payment cannot be allocated").
				WithDetail("payment", p.Number)
		}

		cust, err := s.customers.GetByID(ctx, p.CustomerID)
		if err != nil {
			return err
		}
		before := auditSnapshot(p)

		totalDiscount := types.Zero()
		for _, req := range requests {
			result := s.allocateOne(ctx, p, cust, req)
			results = append(results, result)
			if result.Status == AllocSuccess {
				totalDiscount = totalDiscount.Add(result.DiscountTaken)
			}
		}

		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		s.recordAudit(ctx, p, audit.ActionUpdate, before)

		// Settlement discounts forgive debt beyond the cash received.
		if totalDiscount.IsPositive() {
			locked, err := s.customers.GetForUpdate(ctx, cust.ID)
			if err != nil {
				return err
			}
			locked.Balance = locked.Balance.Sub(totalDiscount)
			locked.Touch()
			if err := s.customers.Update(ctx, locked); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// allocateOne validates and applies a single allocation request. Outcomes
// other than SUCCESS leave the payment and invoice untouched.
func (s *Service) allocateOne(ctx context.Context, p *Payment, cust *customer.Customer, req AllocationRequest) AllocationResult {
	result := AllocationResult{
		InvoiceID:     req.InvoiceID,
		Allocated:     types.Zero(),
		DiscountTaken: types.Zero(),
	}

	inv, err := s.invoices.GetForUpdate(ctx, req.InvoiceID)
	if err != nil {
		result.Status = AllocNotFound
		result.Message = "invoice not found"
		return result
	}
	result.InvoiceNumber = inv.Number

	if inv.CustomerID != p.CustomerID {
		result.Status = AllocWrongCustomer
		result.Message = "invoice belongs to another customer"
		return result
	}
	if inv.IsPaid {
		result.Status = AllocAlreadyPaid
		result.Message = "invoice is already paid"
		return result
	}

	discountTaken := types.Zero()
	if req.DiscountRequested.IsPositive() {
		eligible, maxDiscount := s.discountEngine.SettlementDiscount(
			inv.Balance, cust.SettlementPct, cust.SettlementDays, p.Date, inv.Date)
		if !eligible {
			result.Status = AllocDiscountNotAllowed
			result.Message = "settlement window has expired"
			return result
		}
		discountTaken = req.DiscountRequested
		if maxDiscount.LessThan(discountTaken) {
			discountTaken = maxDiscount
		}
	}

	// Allocation is capped by what the invoice still owes after the
	// discount and by what the payment has left.
	amount := req.Amount
	if open := inv.Balance.Sub(discountTaken); open.LessThan(amount) {
		amount = open
	}
	if p.UnallocatedAmount.LessThan(amount) {
		amount = p.UnallocatedAmount
	}
	if !amount.IsPositive() {
		result.Status = AllocNoAmount
		result.Message = "nothing to allocate"
		return result
	}

	inv.ApplyAllocation(amount, discountTaken)
	if err := s.invoices.Update(ctx, inv); err != nil {
		result.Status = AllocNotFound
		result.Message = fmt.Sprintf("update invoice: %v", err)
		return result
	}

	alloc := &Allocation{
		ID:            id.New(),
		PaymentID:     p.ID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Amount:        amount,
		DiscountTaken: discountTaken,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateAllocation(ctx, alloc); err != nil {
		result.Status = AllocNotFound
		result.Message = fmt.Sprintf("create allocation: %v", err)
		return result
	}

	p.ApplyAllocation(amount)

	result.Status = AllocSuccess
	result.Allocated = amount
	result.DiscountTaken = discountTaken
	return result
}

// Reverse undoes a payment completely: every allocation is removed with
// its invoice restored, the full payment amount (plus any forgiven
// discounts) returns to the customer balance, and the payment becomes
// terminal. A payment can be reversed exactly once.
func (s *Service) Reverse(ctx context.Context, paymentID id.ID, reason string) (*Payment, error) {
	var p *Payment

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Reversed {
			return apperror.NewAlreadyReversed("payment", p.Number)
		}
		before := auditSnapshot(p)

		allocations, err := s.repo.GetAllocations(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("get allocations: %w", err)
		}

		totalDiscount := types.Zero()
		for _, a := range allocations {
			inv, err := s.invoices.GetForUpdate(ctx, a.InvoiceID)
			if err != nil {
				return err
			}
			inv.RemoveAllocation(a.Amount, a.DiscountTaken)
			if err := s.invoices.Update(ctx, inv); err != nil {
				return fmt.Errorf("restore invoice %s: %w", inv.Number, err)
			}
			if err := s.repo.DeleteAllocation(ctx, a.ID); err != nil {
				return fmt.Errorf("delete allocation: %w", err)
			}
			totalDiscount = totalDiscount.Add(a.DiscountTaken)
		}

		locked, err := s.customers.GetForUpdate(ctx, p.CustomerID)
		if err != nil {
			return err
		}
		locked.Balance = locked.Balance.Add(p.Amount).Add(totalDiscount)
		locked.Touch()
		if err := s.customers.Update(ctx, locked); err != nil {
			return err
		}

		p.MarkReversed(reason, time.Now().UTC())
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		s.recordAudit(ctx, p, audit.ActionReverse, before)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment reversed",
		"number", p.Number, "amount", p.Amount.String(), "reason", reason)
	return p, nil
}

// AutoAllocate sweeps unallocated payments oldest-first into each
// customer's oldest unpaid invoices. No discount is applied automatically:
// settlement discounts require an explicit operator decision.
func (s *Service) AutoAllocate(ctx context.Context, customerID *id.ID) (AutoAllocateSummary, error) {
	summary := AutoAllocateSummary{TotalAllocated: types.Zero()}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		payments, err := s.repo.ListUnallocated(ctx, customerID)
		if err != nil {
			return err
		}

		for _, unlocked := range payments {
			p, err := s.repo.GetForUpdate(ctx, unlocked.ID)
			if err != nil {
				return err
			}
			if p.Reversed || !p.UnallocatedAmount.IsPositive() {
				continue
			}
			before := auditSnapshot(p)

			open, err := s.invoices.ListUnpaidByCustomer(ctx, p.CustomerID)
			if err != nil {
				return err
			}

			touched := false
			for _, candidate := range open {
				if !p.UnallocatedAmount.IsPositive() {
					break
				}

				inv, err := s.invoices.GetForUpdate(ctx, candidate.ID)
				if err != nil {
					return err
				}
				amount := inv.Balance
				if p.UnallocatedAmount.LessThan(amount) {
					amount = p.UnallocatedAmount
				}
				if !amount.IsPositive() {
					continue
				}

				inv.ApplyAllocation(amount, types.Zero())
				if err := s.invoices.Update(ctx, inv); err != nil {
					return err
				}
				if err := s.repo.CreateAllocation(ctx, &Allocation{
					ID:            id.New(),
					PaymentID:     p.ID,
					InvoiceID:     inv.ID,
					InvoiceNumber: inv.Number,
					Amount:        amount,
					DiscountTaken: types.Zero(),
					CreatedAt:     time.Now().UTC(),
				}); err != nil {
					return err
				}

				p.ApplyAllocation(amount)
				summary.AllocationsCreated++
				summary.TotalAllocated = summary.TotalAllocated.Add(amount)
				touched = true
			}

			if touched {
				if err := s.repo.Update(ctx, p); err != nil {
					return err
				}
				s.recordAudit(ctx, p, audit.ActionUpdate, before)
				summary.PaymentsProcessed++
			}
		}
		return nil
	})
	if err != nil {
		return AutoAllocateSummary{}, err
	}

	logger.Info(ctx, "auto-allocation sweep complete",
		"payments", summary.PaymentsProcessed,
		"allocations", summary.AllocationsCreated,
		"total", summary.TotalAllocated.String())
	return summary, nil
}

// GetByID retrieves a payment with its allocations.
func (s *Service) GetByID(ctx context.Context, paymentID id.ID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Allocations, err = s.repo.GetAllocations(ctx, paymentID); err != nil {
		return nil, fmt.Errorf("get allocations: %w", err)
	}
	return p, nil
}

// List retrieves payments matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Payment, error) {
	return s.repo.List(ctx, filter)
}
