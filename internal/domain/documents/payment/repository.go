package payment

import (
	"context"
	"time"

	"fincore/internal/core/id"
)

// Repository defines persistence operations for payments and allocations.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID id.ID) (*Payment, error)
	Update(ctx context.Context, p *Payment) error

	// GetForUpdate locks the payment row so concurrent allocations cannot
	// double-spend the unallocated balance.
	GetForUpdate(ctx context.Context, paymentID id.ID) (*Payment, error)

	CreateAllocation(ctx context.Context, a *Allocation) error
	GetAllocations(ctx context.Context, paymentID id.ID) ([]Allocation, error)
	DeleteAllocation(ctx context.Context, allocationID id.ID) error

	List(ctx context.Context, filter ListFilter) ([]*Payment, error)

	// ListUnallocated returns non-reversed payments with unallocated
	// amounts, oldest first — the order the auto-allocation sweep uses.
	// A nil customerID means all customers.
	ListUnallocated(ctx context.Context, customerID *id.ID) ([]*Payment, error)
}

// ListFilter for filtering payments.
type ListFilter struct {
	CustomerID *id.ID
	Reversed   *bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
