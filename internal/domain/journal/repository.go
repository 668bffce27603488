package journal

import (
	"context"
	"time"

	"fincore/internal/core/id"
)

// Repository defines persistence operations for journal entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, entryID id.ID) (*Entry, error)
	Update(ctx context.Context, entry *Entry) error

	GetLines(ctx context.Context, entryID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, entryID id.ID, lines []Line) error

	// GetReversalOf returns the reversal entry linked to the given
	// original, or nil when none exists.
	GetReversalOf(ctx context.Context, originalID id.ID) (*Entry, error)

	List(ctx context.Context, filter ListFilter) ([]*Entry, error)
}

// ListFilter for filtering journal entries.
type ListFilter struct {
	Status       *Status
	SourceModule *string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}
