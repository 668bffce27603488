// Package vat computes value-added tax amounts from configured rate tables.
//
// Rates are supplied by the configuration collaborator as percentage values
// with 4-decimal precision, optionally with historical effective-date
// breakpoints. This package is not a tax-jurisdiction engine: it never
// derives a rate, only resolves and applies configured ones.
package vat

import (
	"context"
	"sort"
	"time"

	"fincore/internal/core/types"
	"fincore/pkg/logger"
)

// Code is the VAT code tag attached to invoice lines and charges.
type Code string

const (
	CodeStandard Code = "STANDARD"
	CodeReduced  Code = "REDUCED"
	CodeZero     Code = "ZERO"
	CodeExempt   Code = "EXEMPT"
	CodeLocal1   Code = "LOCAL_1"
	CodeLocal2   Code = "LOCAL_2"
)

// RateBreakpoint is one (effective date, rate) pair in a rate history.
type RateBreakpoint struct {
	EffectiveFrom time.Time
	// Rate is a percentage with up to 4 decimal places (e.g. 20.0000).
	Rate types.Money
}

// RateTable maps codes to their rate history, ordered by effective date
// ascending. The last breakpoint of each code is the current rate.
type RateTable map[Code][]RateBreakpoint

// NewRateTable builds a table from current rates only (no history).
func NewRateTable(current map[Code]types.Money) RateTable {
	t := make(RateTable, len(current))
	for code, rate := range current {
		t[code] = []RateBreakpoint{{Rate: rate}}
	}
	return t
}

// Engine resolves rates and computes tax amounts.
type Engine struct {
	table RateTable
}

// NewEngine creates a VAT engine over the supplied rate table.
// Breakpoints are sorted by effective date at construction so lookups
// can binary-search.
func NewEngine(table RateTable) *Engine {
	for code := range table {
		bps := table[code]
		sort.Slice(bps, func(i, j int) bool {
			return bps[i].EffectiveFrom.Before(bps[j].EffectiveFrom)
		})
		table[code] = bps
	}
	return &Engine{table: table}
}

// Rate resolves the rate for a code at the given date. A nil date, or a
// date before every breakpoint, resolves to the current rate. An unknown
// code resolves to 0% — legacy pass-through behaviour, logged so operators
// can spot misconfigured codes.
func (e *Engine) Rate(ctx context.Context, code Code, date *time.Time) types.Money {
	bps, ok := e.table[code]
	if !ok || len(bps) == 0 {
		logger.Warn(ctx, "unknown vat code treated as zero-rated", "code", string(code))
		return types.Zero()
	}

	if date == nil {
		return bps[len(bps)-1].Rate
	}

	// Most recent breakpoint on or before the transaction date wins.
	idx := sort.Search(len(bps), func(i int) bool {
		return bps[i].EffectiveFrom.After(*date)
	})
	if idx == 0 {
		// No historical breakpoint matches; fall back to the current rate.
		return bps[len(bps)-1].Rate
	}
	return bps[idx-1].Rate
}

// Result carries the outcome of an exclusive VAT calculation.
type Result struct {
	VAT   types.Money
	Gross types.Money
	Rate  types.Money
}

// Calculate computes VAT and gross from a net amount.
//
// Under reverse charge the liability shifts to the recipient: for the
// STANDARD code no VAT is added and gross equals net. Other codes are
// unaffected by the flag.
func (e *Engine) Calculate(ctx context.Context, net types.Money, code Code, date *time.Time, reverseCharge bool) Result {
	rate := e.Rate(ctx, code, date)

	if reverseCharge && code == CodeStandard {
		return Result{VAT: types.Zero(), Gross: net, Rate: rate}
	}

	vatAmount := types.RoundMoney(types.Percent(net, rate))
	return Result{
		VAT:   vatAmount,
		Gross: net.Add(vatAmount),
		Rate:  rate,
	}
}

// CalculateInclusive extracts net and VAT from a gross (VAT-inclusive)
// amount: net = gross / (1 + rate/100), vat = gross - net.
//
// This is not an exact inverse of Calculate: each direction rounds
// independently, so round-trips may differ by up to 0.01 per step.
// Callers must treat the two as one-way operations.
func (e *Engine) CalculateInclusive(ctx context.Context, gross types.Money, code Code, date *time.Time) (net, vatAmount types.Money) {
	rate := e.Rate(ctx, code, date)

	divisor := types.Hundred.Add(rate).Div(types.Hundred)
	net = types.RoundMoney(types.SafeDiv(gross, divisor))
	vatAmount = gross.Sub(net)
	return net, vatAmount
}

// CompoundLine is one input line for an aggregate calculation.
type CompoundLine struct {
	Quantity    types.Money
	UnitPrice   types.Money
	DiscountPct types.Money
	Code        Code
}

// CodeTotals accumulates net and VAT for a single code.
type CodeTotals struct {
	Net types.Money
	VAT types.Money
}

// CompoundResult is the aggregate outcome with a per-code breakdown.
type CompoundResult struct {
	NetTotal   types.Money
	VATTotal   types.Money
	GrossTotal types.Money
	ByCode     map[Code]CodeTotals
}

// CalculateCompound processes a multi-line, multi-rate document: each line
// gets its own discount, then the header discount, then VAT, accumulated
// per code. Extra charges and shipping are always STANDARD-rated regardless
// of the items' codes — a long-standing business rule, not a bug.
func (e *Engine) CalculateCompound(
	ctx context.Context,
	lines []CompoundLine,
	headerDiscountPct types.Money,
	extraCharges types.Money,
	shipping types.Money,
	date *time.Time,
) CompoundResult {
	result := CompoundResult{
		NetTotal:   types.Zero(),
		VATTotal:   types.Zero(),
		GrossTotal: types.Zero(),
		ByCode:     make(map[Code]CodeTotals),
	}

	for _, line := range lines {
		gross := line.Quantity.Mul(line.UnitPrice)
		net := gross.Sub(types.Percent(gross, line.DiscountPct))
		if headerDiscountPct.IsPositive() {
			net = net.Sub(types.Percent(net, headerDiscountPct))
		}
		net = types.RoundMoney(net)

		calc := e.Calculate(ctx, net, line.Code, date, false)

		totals := result.ByCode[line.Code]
		totals.Net = totals.Net.Add(net)
		totals.VAT = totals.VAT.Add(calc.VAT)
		result.ByCode[line.Code] = totals

		result.NetTotal = result.NetTotal.Add(net)
		result.VATTotal = result.VATTotal.Add(calc.VAT)
	}

	for _, charge := range []types.Money{extraCharges, shipping} {
		if !charge.IsPositive() {
			continue
		}
		calc := e.Calculate(ctx, charge, CodeStandard, date, false)

		totals := result.ByCode[CodeStandard]
		totals.Net = totals.Net.Add(charge)
		totals.VAT = totals.VAT.Add(calc.VAT)
		result.ByCode[CodeStandard] = totals

		result.NetTotal = result.NetTotal.Add(charge)
		result.VATTotal = result.VATTotal.Add(calc.VAT)
	}

	result.GrossTotal = result.NetTotal.Add(result.VATTotal)
	return result
}
