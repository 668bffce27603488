// Package discount computes trade, volume, settlement and compound
// discounts, and validates discount authority levels.
package discount

import (
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/security"
	"fincore/internal/core/types"
)

// Type classifies a discount.
type Type string

const (
	TypeTrade      Type = "TRADE"
	TypeVolume     Type = "VOLUME"
	TypeSettlement Type = "SETTLEMENT"
	TypePromotion  Type = "PROMOTION"
	TypeSpecial    Type = "SPECIAL"
)

// precedence ranks cascading discounts. SETTLEMENT is evaluated
// independently of the cascade and carries no rank.
var precedence = map[Type]int{
	TypeTrade:     1,
	TypeVolume:    2,
	TypePromotion: 3,
	TypeSpecial:   4,
}

// Spec describes one discount to apply.
type Spec struct {
	Type       Type
	Percentage types.Money
}

// Method selects how compound discounts combine.
type Method string

const (
	// MethodCascade applies discounts sequentially in precedence order,
	// each against the running (already-discounted) amount.
	MethodCascade Method = "CASCADE"

	// MethodBest applies only the single highest-percentage discount,
	// once, against the original base.
	MethodBest Method = "BEST"
)

// VolumeBreak is one quantity tier of a volume discount schedule.
type VolumeBreak struct {
	MinQty     types.Money
	Percentage types.Money
}

// AppliedDiscount records one step of a compound calculation.
type AppliedDiscount struct {
	Type       Type
	Percentage types.Money
	Amount     types.Money
}

// CompoundResult is the breakdown of a compound discount calculation.
type CompoundResult struct {
	OriginalAmount types.Money
	TotalDiscount  types.Money
	FinalAmount    types.Money
	Applied        []AppliedDiscount
}

// Engine computes discounts. It is pure: all inputs are explicit.
type Engine struct {
	limits LimitTable
}

// NewEngine creates a discount engine with the given authority table.
func NewEngine(limits LimitTable) *Engine {
	return &Engine{limits: limits}
}

// TradeDiscount applies a flat percentage: returns the discount amount
// (rounded to 2 decimals) and the resulting net.
func (e *Engine) TradeDiscount(gross, pct types.Money) (discountAmount, net types.Money) {
	discountAmount = types.RoundMoney(types.Percent(gross, pct))
	net = gross.Sub(discountAmount)
	return discountAmount, net
}

// VolumeDiscount selects the highest tier whose minimum quantity the
// ordered quantity reaches. No qualifying tier means no discount.
func (e *Engine) VolumeDiscount(unitPrice, qty types.Money, breaks []VolumeBreak) (effectivePrice, discountAmount, net types.Money) {
	gross := unitPrice.Mul(qty)

	var pct types.Money
	best := types.Money{}
	for _, b := range breaks {
		if b.MinQty.LessThanOrEqual(qty) && b.MinQty.GreaterThanOrEqual(best) {
			best = b.MinQty
			pct = b.Percentage
		}
	}

	discountAmount = types.RoundMoney(types.Percent(gross, pct))
	net = gross.Sub(discountAmount)
	effectivePrice = types.RoundRate(types.SafeDiv(net, qty))
	return effectivePrice, discountAmount, net
}

// SettlementDiscount checks early-payment eligibility and computes the
// discount. The window is measured in whole days from invoice date and the
// boundary day is inclusive. An ineligible payment gets a zero discount,
// not an error.
func (e *Engine) SettlementDiscount(invoiceAmount, pct types.Money, windowDays int, paymentDate, invoiceDate time.Time) (eligible bool, discountAmount types.Money) {
	days := int(paymentDate.Sub(invoiceDate).Hours() / 24)
	if days > windowDays {
		return false, types.Zero()
	}
	return true, types.RoundMoney(types.Percent(invoiceAmount, pct))
}

// CompoundDiscount combines multiple discounts against a base amount.
//
// CASCADE orders the discounts TRADE < VOLUME < PROMOTION < SPECIAL and
// applies each to the running amount; BEST picks the single highest
// percentage and applies it once. SETTLEMENT specs are ignored here —
// settlement is evaluated independently at payment time.
func (e *Engine) CompoundDiscount(base types.Money, discounts []Spec, method Method) CompoundResult {
	result := CompoundResult{
		OriginalAmount: base,
		TotalDiscount:  types.Zero(),
		FinalAmount:    base,
	}

	cascadable := make([]Spec, 0, len(discounts))
	for _, d := range discounts {
		if _, ok := precedence[d.Type]; ok {
			cascadable = append(cascadable, d)
		}
	}
	if len(cascadable) == 0 {
		return result
	}

	switch method {
	case MethodBest:
		best := cascadable[0]
		for _, d := range cascadable[1:] {
			if d.Percentage.GreaterThan(best.Percentage) {
				best = d
			}
		}
		amount := types.RoundMoney(types.Percent(base, best.Percentage))
		result.Applied = append(result.Applied, AppliedDiscount{
			Type:       best.Type,
			Percentage: best.Percentage,
			Amount:     amount,
		})
		result.TotalDiscount = amount
		result.FinalAmount = base.Sub(amount)

	default: // MethodCascade
		ordered := make([]Spec, len(cascadable))
		copy(ordered, cascadable)
		// Insertion sort keeps equal-rank discounts in caller order.
		for i := 1; i < len(ordered); i++ {
			for j := i; j > 0 && precedence[ordered[j].Type] < precedence[ordered[j-1].Type]; j-- {
				ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
			}
		}

		running := base
		for _, d := range ordered {
			amount := types.RoundMoney(types.Percent(running, d.Percentage))
			result.Applied = append(result.Applied, AppliedDiscount{
				Type:       d.Type,
				Percentage: d.Percentage,
				Amount:     amount,
			})
			running = running.Sub(amount)
			result.TotalDiscount = result.TotalDiscount.Add(amount)
		}
		result.FinalAmount = running
	}

	return result
}

// LimitTable maps (discount type, authority level) to the maximum
// percentage that level may grant. A missing combination means no
// authority (0%).
type LimitTable map[Type]map[int]types.Money

// hardCeiling: anything above 50% requires admin level regardless of the
// per-type table.
var hardCeiling = types.MustMoney("50")

// ValidateLimits checks whether a user at the given authority level may
// grant the requested discount percentage.
func (e *Engine) ValidateLimits(pct types.Money, discountType Type, userLevel int) error {
	if pct.IsNegative() {
		return apperror.NewValidation("discount percentage cannot be negative").
			WithDetail("percentage", pct.String())
	}

	if pct.GreaterThan(hardCeiling) && userLevel != security.AdminLevel {
		return apperror.NewDiscountLimit(string(discountType), pct.String(), hardCeiling.String(), userLevel)
	}
	if userLevel == security.AdminLevel {
		return nil
	}

	maxPct := types.Zero()
	if byLevel, ok := e.limits[discountType]; ok {
		if m, ok := byLevel[userLevel]; ok {
			maxPct = m
		}
	}

	if pct.GreaterThan(maxPct) {
		return apperror.NewDiscountLimit(string(discountType), pct.String(), maxPct.String(), userLevel)
	}
	return nil
}

// DefaultLimitTable mirrors the authority matrix used by the legacy
// ledger: clerks get modest trade discounts, supervisors more, and
// promotions/specials are restricted to senior levels.
func DefaultLimitTable() LimitTable {
	return LimitTable{
		TypeTrade: {
			1: types.MustMoney("5"),
			3: types.MustMoney("10"),
			5: types.MustMoney("20"),
			7: types.MustMoney("35"),
		},
		TypeVolume: {
			3: types.MustMoney("15"),
			5: types.MustMoney("25"),
			7: types.MustMoney("40"),
		},
		TypeSettlement: {
			3: types.MustMoney("5"),
			5: types.MustMoney("7.5"),
			7: types.MustMoney("10"),
		},
		TypePromotion: {
			5: types.MustMoney("30"),
			7: types.MustMoney("50"),
		},
		TypeSpecial: {
			7: types.MustMoney("50"),
		},
	}
}
