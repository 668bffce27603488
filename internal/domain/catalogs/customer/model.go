// Package customer provides the sales-ledger customer catalog.
package customer

import (
	"context"

	"fincore/internal/core/apperror"
	"fincore/internal/core/entity"
	"fincore/internal/core/types"
)

// Customer is a sales-ledger account holder.
type Customer struct {
	entity.BaseEntity

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	Active bool `db:"active" json:"active"`
	OnHold bool `db:"on_hold" json:"onHold"`

	// Credit control
	CreditLimit types.Money `db:"credit_limit" json:"creditLimit"`
	Balance     types.Money `db:"balance" json:"balance"`

	// Terms
	SettlementDays int         `db:"settlement_days" json:"settlementDays"`
	SettlementPct  types.Money `db:"settlement_pct" json:"settlementPct"`

	// TradeDiscountPct is the default line discount; a line-level rate
	// overrides it.
	TradeDiscountPct types.Money `db:"trade_discount_pct" json:"tradeDiscountPct"`

	// AllowPartialShipment splits short lines into shipment + back-order.
	// When false a short line is back-ordered in full.
	AllowPartialShipment bool `db:"allow_partial_shipment" json:"allowPartialShipment"`

	// CashSale customers bypass the credit-limit gate.
	CashSale bool `db:"cash_sale" json:"cashSale"`

	// Turnover per calendar quarter of the current year, bucketed by
	// invoice month.
	TurnoverQ1 types.Money `db:"turnover_q1" json:"turnoverQ1"`
	TurnoverQ2 types.Money `db:"turnover_q2" json:"turnoverQ2"`
	TurnoverQ3 types.Money `db:"turnover_q3" json:"turnoverQ3"`
	TurnoverQ4 types.Money `db:"turnover_q4" json:"turnoverQ4"`
}

// NewCustomer creates an active customer with zero balances.
func NewCustomer(code, name string) *Customer {
	return &Customer{
		BaseEntity: entity.NewBaseEntity(),
		Code:       code,
		Name:       name,
		Active:     true,
	}
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(ctx context.Context) error {
	if c.Code == "" {
		return apperror.NewValidation("customer code is required").
			WithDetail("field", "code")
	}
	if c.Name == "" {
		return apperror.NewValidation("customer name is required").
			WithDetail("field", "name")
	}
	if c.CreditLimit.IsNegative() {
		return apperror.NewValidation("credit limit cannot be negative").
			WithDetail("field", "creditLimit")
	}
	if c.SettlementDays < 0 {
		return apperror.NewValidation("settlement days cannot be negative").
			WithDetail("field", "settlementDays")
	}
	return nil
}

// AddTurnover adds an invoiced amount to the quarter bucket for the given
// invoice month (1-12).
func (c *Customer) AddTurnover(month int, amount types.Money) {
	switch {
	case month >= 1 && month <= 3:
		c.TurnoverQ1 = c.TurnoverQ1.Add(amount)
	case month >= 4 && month <= 6:
		c.TurnoverQ2 = c.TurnoverQ2.Add(amount)
	case month >= 7 && month <= 9:
		c.TurnoverQ3 = c.TurnoverQ3.Add(amount)
	case month >= 10 && month <= 12:
		c.TurnoverQ4 = c.TurnoverQ4.Add(amount)
	}
}
