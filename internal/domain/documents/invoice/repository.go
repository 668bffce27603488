package invoice

import (
	"context"
	"time"

	"fincore/internal/core/id"
)

// Repository defines persistence operations for invoices and back-orders.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error

	// GetForUpdate locks the invoice row so concurrent payment allocations
	// cannot double-spend the same open balance.
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	GetLines(ctx context.Context, invoiceID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, invoiceID id.ID, lines []Line) error

	CreateBackOrder(ctx context.Context, bo *BackOrder) error
	GetBackOrders(ctx context.Context, invoiceID id.ID) ([]BackOrder, error)

	List(ctx context.Context, filter ListFilter) ([]*Invoice, error)

	// ListUnpaidByCustomer returns open unpaid invoices oldest-first, the
	// order auto-allocation sweeps them in.
	ListUnpaidByCustomer(ctx context.Context, customerID id.ID) ([]*Invoice, error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	CustomerID *id.ID
	Status     *Status
	IsPaid     *bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
