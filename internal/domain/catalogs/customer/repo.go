package customer

import (
	"context"

	"fincore/internal/core/id"
)

// Repository defines persistence operations for customers.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
	GetByCode(ctx context.Context, code string) (*Customer, error)
	Update(ctx context.Context, c *Customer) error

	// GetForUpdate locks the customer row for the duration of the
	// enclosing transaction. Balance updates during invoice creation and
	// payment allocation must go through this to avoid lost updates.
	GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error)

	List(ctx context.Context, limit, offset int) ([]*Customer, error)
}
