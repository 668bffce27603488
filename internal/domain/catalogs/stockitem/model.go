// Package stockitem provides the stock-control item catalog and lot history.
package stockitem

import (
	"context"
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/entity"
	"fincore/internal/core/id"
	"fincore/internal/core/types"
	"fincore/internal/domain/valuation"
)

// StockItem is one stock-controlled product.
type StockItem struct {
	entity.BaseEntity

	Code        string `db:"code" json:"code"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`

	QuantityOnHand    types.Money `db:"quantity_on_hand" json:"quantityOnHand"`
	QuantityAllocated types.Money `db:"quantity_allocated" json:"quantityAllocated"`

	// Costing fields maintained by the valuation engine
	ValuationMethod valuation.Method `db:"valuation_method" json:"valuationMethod"`
	AverageCost     types.Money      `db:"average_cost" json:"averageCost"`
	StandardCost    types.Money      `db:"standard_cost" json:"standardCost"`
	LastCost        types.Money      `db:"last_cost" json:"lastCost"`
	StockValue      types.Money      `db:"stock_value" json:"stockValue"`

	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
}

// NewStockItem creates a stock item with average costing by default.
func NewStockItem(code, description string) *StockItem {
	return &StockItem{
		BaseEntity:      entity.NewBaseEntity(),
		Code:            code,
		Description:     description,
		ValuationMethod: valuation.MethodAverage,
	}
}

// Validate implements entity.Validatable.
func (s *StockItem) Validate(ctx context.Context) error {
	if s.Code == "" {
		return apperror.NewValidation("stock code is required").
			WithDetail("field", "code")
	}
	switch s.ValuationMethod {
	case valuation.MethodFIFO, valuation.MethodLIFO, valuation.MethodAverage,
		valuation.MethodStandard, valuation.MethodReplacement:
	default:
		return apperror.NewValidation("unknown valuation method").
			WithDetail("field", "valuationMethod").
			WithDetail("value", string(s.ValuationMethod))
	}
	return nil
}

// Available is the quantity free to ship: on hand minus allocated.
func (s *StockItem) Available() types.Money {
	return s.QuantityOnHand.Sub(s.QuantityAllocated)
}

// ValuationState projects the item's costing fields for the valuation engine.
func (s *StockItem) ValuationState() valuation.State {
	return valuation.State{
		QuantityOnHand: s.QuantityOnHand,
		StockValue:     s.StockValue,
		AverageCost:    s.AverageCost,
		StandardCost:   s.StandardCost,
		LastCost:       s.LastCost,
	}
}

// ApplyValuationState writes a computed valuation state back to the item.
func (s *StockItem) ApplyValuationState(state valuation.State) {
	s.QuantityOnHand = state.QuantityOnHand
	s.StockValue = state.StockValue
	s.AverageCost = state.AverageCost
	s.StandardCost = state.StandardCost
	s.LastCost = state.LastCost
}

// StockLot is one receipt batch in the item's movement history.
type StockLot struct {
	ID           id.ID       `db:"id" json:"id"`
	StockItemID  id.ID       `db:"stock_item_id" json:"stockItemId"`
	ReceivedDate time.Time   `db:"received_date" json:"receivedDate"`
	Quantity     types.Money `db:"quantity" json:"quantity"`
	UnitCost     types.Money `db:"unit_cost" json:"unitCost"`
	Remaining    types.Money `db:"remaining" json:"remaining"`
	Reference    string      `db:"reference" json:"reference"`
}

// ToValuationLot converts for the valuation engine.
func (l StockLot) ToValuationLot() valuation.Lot {
	return valuation.Lot{
		ID:           l.ID,
		ReceivedDate: l.ReceivedDate,
		Quantity:     l.Quantity,
		UnitCost:     l.UnitCost,
		Remaining:    l.Remaining,
		Reference:    l.Reference,
	}
}

// Repository defines persistence operations for stock items and lots.
type Repository interface {
	Create(ctx context.Context, item *StockItem) error
	GetByID(ctx context.Context, itemID id.ID) (*StockItem, error)
	GetByCode(ctx context.Context, code string) (*StockItem, error)
	Update(ctx context.Context, item *StockItem) error

	// GetForUpdate locks the item row before quantity changes, so
	// concurrent invoice generation against the same item cannot oversell.
	GetForUpdate(ctx context.Context, itemID id.ID) (*StockItem, error)

	List(ctx context.Context, limit, offset int) ([]*StockItem, error)
	ListAll(ctx context.Context) ([]*StockItem, error)

	// Lot history: lots are created on receipt and consumed (never
	// deleted) by FIFO/LIFO issues.
	CreateLot(ctx context.Context, lot *StockLot) error
	GetOpenLots(ctx context.Context, itemID id.ID) ([]StockLot, error)
	UpdateLotRemaining(ctx context.Context, lotID id.ID, remaining types.Money) error
}
