// Package valuation implements stock costing: FIFO/LIFO lot consumption,
// weighted-average re-averaging, standard-cost variance, revaluation and
// batch valuation reports.
package valuation

import (
	"context"
	"time"

	"fincore/internal/core/id"
	"fincore/internal/core/types"
	"fincore/pkg/logger"
)

// Method is the costing method declared per stock item.
type Method string

const (
	MethodFIFO        Method = "FIFO"
	MethodLIFO        Method = "LIFO"
	MethodAverage     Method = "AVERAGE"
	MethodStandard    Method = "STANDARD"
	MethodReplacement Method = "REPLACEMENT"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementReceipt    MovementType = "RECEIPT"
	MovementIssue      MovementType = "ISSUE"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Lot is a batch of received stock at a specific unit cost and date.
// Immutable once created except for Remaining, which is decremented as
// FIFO/LIFO issues consume it. Exhausted lots stay for audit but are
// excluded from future consumption.
type Lot struct {
	ID           id.ID
	ReceivedDate time.Time
	Quantity     types.Money
	UnitCost     types.Money
	Remaining    types.Money
	Reference    string
}

// Consumption is one lot's contribution to an issue costing.
type Consumption struct {
	LotID        id.ID
	ReceivedDate time.Time
	Quantity     types.Money
	UnitCost     types.Money
	Cost         types.Money
}

// Engine performs valuation calculations. Pure computation: persistence of
// lots and item state is the caller's concern.
type Engine struct{}

// NewEngine creates a valuation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// FIFOCost values an issue by consuming lots oldest-received-first,
// decrementing each lot's remaining quantity. When the lots cannot cover
// the requested quantity the partial cost is returned silently; the caller
// compares covered against requested.
func (e *Engine) FIFOCost(lots []Lot, qty types.Money) (totalCost, covered types.Money, breakdown []Consumption) {
	order := sortedIndexes(lots, false)
	return e.consume(lots, order, qty)
}

// LIFOCost is FIFOCost with lots consumed newest-received-first.
func (e *Engine) LIFOCost(lots []Lot, qty types.Money) (totalCost, covered types.Money, breakdown []Consumption) {
	order := sortedIndexes(lots, true)
	return e.consume(lots, order, qty)
}

func sortedIndexes(lots []Lot, newestFirst bool) []int {
	order := make([]int, len(lots))
	for i := range order {
		order[i] = i
	}
	// Insertion sort: lot histories are short and already near-ordered.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0; j-- {
			a, b := lots[order[j]], lots[order[j-1]]
			before := a.ReceivedDate.Before(b.ReceivedDate)
			if newestFirst {
				before = a.ReceivedDate.After(b.ReceivedDate)
			}
			if !before {
				break
			}
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

func (e *Engine) consume(lots []Lot, order []int, qty types.Money) (totalCost, covered types.Money, breakdown []Consumption) {
	totalCost = types.Zero()
	covered = types.Zero()
	need := qty

	for _, idx := range order {
		if !need.IsPositive() {
			break
		}
		lot := &lots[idx]
		if !lot.Remaining.IsPositive() {
			continue
		}

		take := lot.Remaining
		if need.LessThan(take) {
			take = need
		}

		cost := types.RoundMoney(take.Mul(lot.UnitCost))
		breakdown = append(breakdown, Consumption{
			LotID:        lot.ID,
			ReceivedDate: lot.ReceivedDate,
			Quantity:     take,
			UnitCost:     lot.UnitCost,
			Cost:         cost,
		})

		lot.Remaining = lot.Remaining.Sub(take)
		totalCost = totalCost.Add(cost)
		covered = covered.Add(take)
		need = need.Sub(take)
	}

	return totalCost, covered, breakdown
}

// AverageCost re-averages after a receipt:
// newValue = currentValue + receiptQty*receiptCost,
// newAverage = newValue / (currentQty+receiptQty) at 4 decimals,
// or zero when the resulting quantity is zero.
func (e *Engine) AverageCost(currentQty, currentValue, receiptQty, receiptCost types.Money) (newAverage, newValue types.Money) {
	newValue = currentValue.Add(receiptQty.Mul(receiptCost))
	newQty := currentQty.Add(receiptQty)
	newAverage = types.RoundRate(types.SafeDiv(newValue, newQty))
	return newAverage, newValue
}

// State is the running valuation state of one stock item.
type State struct {
	QuantityOnHand types.Money
	StockValue     types.Money
	AverageCost    types.Money
	StandardCost   types.Money
	LastCost       types.Money
}

// Movement is one stock movement to value.
type Movement struct {
	Type     MovementType
	Quantity types.Money
	UnitCost types.Money
}

// ProcessMovement applies a movement to the item state under the given
// costing method and returns the new state.
//
// A computed stock value below zero signals an upstream inconsistency
// (e.g. issuing more than on hand under average costing). It is floored
// at zero for batch safety and reported as a warning, never masked
// silently.
func (e *Engine) ProcessMovement(ctx context.Context, mv Movement, state State, method Method) State {
	next := state

	switch mv.Type {
	case MovementReceipt:
		next.QuantityOnHand = state.QuantityOnHand.Add(mv.Quantity)
		next.LastCost = mv.UnitCost

		switch method {
		case MethodAverage:
			next.AverageCost, next.StockValue = e.AverageCost(
				state.QuantityOnHand, state.StockValue, mv.Quantity, mv.UnitCost)
		case MethodStandard:
			// Standard costing values receipts at the fixed standard
			// cost regardless of the actual receipt cost.
			next.StockValue = state.StockValue.Add(mv.Quantity.Mul(state.StandardCost))
		default:
			next.StockValue = state.StockValue.Add(mv.Quantity.Mul(mv.UnitCost))
		}

	case MovementIssue:
		next.QuantityOnHand = state.QuantityOnHand.Sub(mv.Quantity)

		switch method {
		case MethodAverage:
			next.StockValue = state.StockValue.Sub(mv.Quantity.Mul(state.AverageCost))
		case MethodStandard:
			next.StockValue = state.StockValue.Sub(mv.Quantity.Mul(state.StandardCost))
		default:
			// FIFO/LIFO issues are costed from lot consumption; the
			// caller passes the consumed unit cost.
			next.StockValue = state.StockValue.Sub(mv.Quantity.Mul(mv.UnitCost))
		}

	case MovementAdjustment:
		// Signed either direction.
		next.QuantityOnHand = state.QuantityOnHand.Add(mv.Quantity)
		cost := mv.UnitCost
		if method == MethodAverage {
			cost = state.AverageCost
		}
		if method == MethodStandard {
			cost = state.StandardCost
		}
		next.StockValue = state.StockValue.Add(mv.Quantity.Mul(cost))
	}

	if next.StockValue.IsNegative() {
		logger.Warn(ctx, "stock value floored at zero",
			"movement_type", string(mv.Type),
			"method", string(method),
			"computed_value", next.StockValue.String(),
		)
		next.StockValue = types.Zero()
	}

	return next
}

// ApplyIssueCost applies an issue valued at an exact extended cost, as
// produced by FIFO/LIFO lot consumption. Using the consumed cost directly
// avoids the rounding drift a re-derived per-unit cost would introduce.
// The same floor-at-zero guard as ProcessMovement applies.
func (e *Engine) ApplyIssueCost(ctx context.Context, qty, cost types.Money, state State) State {
	next := state
	next.QuantityOnHand = state.QuantityOnHand.Sub(qty)
	next.StockValue = state.StockValue.Sub(cost)

	if next.StockValue.IsNegative() {
		logger.Warn(ctx, "stock value floored at zero",
			"movement_type", string(MovementIssue),
			"computed_value", next.StockValue.String(),
		)
		next.StockValue = types.Zero()
	}
	return next
}

// RevalueMethod selects how a revaluation changes stock value.
type RevalueMethod string

const (
	// RevalueTotal replaces the value entirely with qty * newCost.
	RevalueTotal RevalueMethod = "TOTAL"
	// RevalueVariance adds only the delta to the current value.
	RevalueVariance RevalueMethod = "VARIANCE"
)

// Revalue recomputes stock value at a new unit cost. Both methods return
// the variance amount for GL posting.
func (e *Engine) Revalue(currentValue, currentQty, newUnitCost types.Money, method RevalueMethod) (newValue, variance types.Money) {
	target := currentQty.Mul(newUnitCost)
	variance = target.Sub(currentValue)

	switch method {
	case RevalueVariance:
		newValue = currentValue.Add(variance)
	default:
		newValue = target
	}
	return newValue, variance
}
