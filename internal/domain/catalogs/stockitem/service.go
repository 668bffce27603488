package stockitem

import (
	"context"
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/id"
	"fincore/internal/core/tx"
	"fincore/internal/core/types"
	"fincore/internal/domain/valuation"
	"fincore/pkg/logger"
)

// ReceiptRequest records goods arriving into stock.
type ReceiptRequest struct {
	StockItemID id.ID
	Quantity    types.Money
	UnitCost    types.Money
	Reference   string
	Date        time.Time
}

// Service maintains stock items: receipts feed the lot history that
// FIFO/LIFO issues later consume, and keep the costing fields current.
type Service struct {
	repo      Repository
	valEngine *valuation.Engine
	txManager tx.Manager
}

// NewService creates a stock item service.
func NewService(repo Repository, valEngine *valuation.Engine, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		valEngine: valEngine,
		txManager: txManager,
	}
}

// Receive books a goods receipt: creates a lot, reruns the valuation
// state for the item's method, and saves the updated quantities.
func (s *Service) Receive(ctx context.Context, req ReceiptRequest) (*StockItem, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewValidation("receipt quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", req.Quantity.String())
	}
	if req.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	var updated *StockItem
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetForUpdate(ctx, req.StockItemID)
		if err != nil {
			return err
		}

		lot := &StockLot{
			ID:           id.New(),
			StockItemID:  item.ID,
			ReceivedDate: date,
			Quantity:     types.RoundQuantity(req.Quantity),
			UnitCost:     types.RoundRate(req.UnitCost),
			Remaining:    types.RoundQuantity(req.Quantity),
			Reference:    req.Reference,
		}
		if err := s.repo.CreateLot(ctx, lot); err != nil {
			return err
		}

		state := s.valEngine.ProcessMovement(ctx, valuation.Movement{
			Type:     valuation.MovementReceipt,
			Quantity: lot.Quantity,
			UnitCost: lot.UnitCost,
		}, item.ValuationState(), item.ValuationMethod)
		item.ApplyValuationState(state)
		item.Touch()

		if err := s.repo.Update(ctx, item); err != nil {
			return err
		}

		logger.Info(ctx, "stock receipt booked",
			"stock_code", item.Code,
			"quantity", lot.Quantity.String(),
			"unit_cost", lot.UnitCost.String(),
		)
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
