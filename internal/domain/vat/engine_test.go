package vat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincore/internal/core/types"
)

func testTable() RateTable {
	return NewRateTable(map[Code]types.Money{
		CodeStandard: types.MustMoney("20.0000"),
		CodeReduced:  types.MustMoney("5.0000"),
		CodeZero:     types.MustMoney("0.0000"),
		CodeExempt:   types.MustMoney("0.0000"),
		CodeLocal1:   types.MustMoney("8.5000"),
	})
}

func TestCalculate_Standard(t *testing.T) {
	e := NewEngine(testTable())
	ctx := context.Background()

	res := e.Calculate(ctx, types.MustMoney("100.00"), CodeStandard, nil, false)

	assert.True(t, res.VAT.Equal(types.MustMoney("20.00")), "vat = %s", res.VAT)
	assert.True(t, res.Gross.Equal(types.MustMoney("120.00")), "gross = %s", res.Gross)
	assert.True(t, res.Rate.Equal(types.MustMoney("20.0000")), "rate = %s", res.Rate)
}

func TestCalculate_RoundsHalfUp(t *testing.T) {
	e := NewEngine(testTable())
	ctx := context.Background()

	// 10.03 * 20% = 2.006 -> 2.01
	res := e.Calculate(ctx, types.MustMoney("10.03"), CodeStandard, nil, false)
	assert.True(t, res.VAT.Equal(types.MustMoney("2.01")), "vat = %s", res.VAT)
}

func TestCalculate_ReverseCharge(t *testing.T) {
	e := NewEngine(testTable())
	ctx := context.Background()
	net := types.MustMoney("250.00")

	res := e.Calculate(ctx, net, CodeStandard, nil, true)
	assert.True(t, res.VAT.IsZero())
	assert.True(t, res.Gross.Equal(net))

	// Reverse charge only shifts liability for the standard code.
	res = e.Calculate(ctx, net, CodeReduced, nil, true)
	assert.True(t, res.VAT.Equal(types.MustMoney("12.50")))
}

func TestCalculate_UnknownCodeZeroRated(t *testing.T) {
	e := NewEngine(testTable())
	ctx := context.Background()

	res := e.Calculate(ctx, types.MustMoney("100.00"), Code("BOGUS"), nil, false)
	assert.True(t, res.VAT.IsZero())
	assert.True(t, res.Gross.Equal(types.MustMoney("100.00")))
}

func TestRate_EffectiveDateResolution(t *testing.T) {
	table := RateTable{
		CodeStandard: {
			{EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Rate: types.MustMoney("17.5000")},
			{EffectiveFrom: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), Rate: types.MustMoney("20.0000")},
		},
	}
	e := NewEngine(table)
	ctx := context.Background()

	cases := []struct {
		name string
		date time.Time
		want string
	}{
		{"before second breakpoint", time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), "17.5000"},
		{"on breakpoint date", time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), "20.0000"},
		{"after breakpoint", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "20.0000"},
		// No historical breakpoint matches: fall back to current rate.
		{"before all breakpoints", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), "20.0000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.date
			rate := e.Rate(ctx, CodeStandard, &d)
			assert.True(t, rate.Equal(types.MustMoney(tc.want)), "rate = %s", rate)
		})
	}

	// Nil date resolves to current rate.
	rate := e.Rate(ctx, CodeStandard, nil)
	assert.True(t, rate.Equal(types.MustMoney("20.0000")))
}

func TestCalculateInclusive(t *testing.T) {
	e := NewEngine(testTable())
	ctx := context.Background()

	net, vatAmount := e.CalculateInclusive(ctx, types.MustMoney("120.00"), CodeStandard, nil)
	assert.True(t, net.Equal(types.MustMoney("100.00")), "net = %s", net)
	assert.True(t, vatAmount.Equal(types.MustMoney("20.00")), "vat = %s", vatAmount)
}

func TestRoundTripTolerance(t *testing.T) {
	// calculate(calculateInclusive(gross).net).gross stays within 0.02 of
	// the original — the two directions round independently and are not
	// exact inverses.
	e := NewEngine(testTable())
	ctx := context.Background()
	tolerance := types.MustMoney("0.02")

	grosses := []string{"0.01", "0.03", "1.00", "19.99", "120.00", "999.37", "54321.11", "9999999.99"}
	for _, g := range grosses {
		for _, code := range []Code{CodeStandard, CodeReduced, CodeZero, CodeLocal1} {
			gross := types.MustMoney(g)
			net, _ := e.CalculateInclusive(ctx, gross, code, nil)
			back := e.Calculate(ctx, net, code, nil, false)

			diff := back.Gross.Sub(gross).Abs()
			require.True(t, diff.LessThanOrEqual(tolerance),
				"gross=%s code=%s round-trip drift %s", g, code, diff)
		}
	}
}

func TestCalculateCompound_MultiRateBreakdown(t *testing.T) {
	e := NewEngine(testTable())
	ctx := context.Background()

	lines := []CompoundLine{
		{Quantity: types.MustMoney("2"), UnitPrice: types.MustMoney("50.00"), DiscountPct: types.Zero(), Code: CodeStandard},
		{Quantity: types.MustMoney("1"), UnitPrice: types.MustMoney("80.00"), DiscountPct: types.Zero(), Code: CodeZero},
	}

	res := e.CalculateCompound(ctx, lines, types.Zero(), types.Zero(), types.Zero(), nil)

	assert.True(t, res.NetTotal.Equal(types.MustMoney("180.00")), "net = %s", res.NetTotal)
	assert.True(t, res.VATTotal.Equal(types.MustMoney("20.00")), "vat = %s", res.VATTotal)
	assert.True(t, res.GrossTotal.Equal(types.MustMoney("200.00")), "gross = %s", res.GrossTotal)

	// Per-code breakdown must sum to the totals.
	sumNet, sumVAT := types.Zero(), types.Zero()
	for _, totals := range res.ByCode {
		sumNet = sumNet.Add(totals.Net)
		sumVAT = sumVAT.Add(totals.VAT)
	}
	assert.True(t, sumNet.Equal(res.NetTotal))
	assert.True(t, sumVAT.Equal(res.VATTotal))

	assert.True(t, res.ByCode[CodeStandard].VAT.Equal(types.MustMoney("20.00")))
	assert.True(t, res.ByCode[CodeZero].VAT.IsZero())
}

func TestCalculateCompound_ChargesAlwaysStandardRated(t *testing.T) {
	e := NewEngine(testTable())
	ctx := context.Background()

	lines := []CompoundLine{
		{Quantity: types.MustMoney("1"), UnitPrice: types.MustMoney("100.00"), DiscountPct: types.Zero(), Code: CodeZero},
	}

	res := e.CalculateCompound(ctx, lines,
		types.Zero(),
		types.MustMoney("10.00"), // extra charges
		types.MustMoney("5.00"),  // shipping
		nil,
	)

	// Zero-rated goods, but charges still attract standard VAT.
	assert.True(t, res.ByCode[CodeStandard].Net.Equal(types.MustMoney("15.00")))
	assert.True(t, res.ByCode[CodeStandard].VAT.Equal(types.MustMoney("3.00")))
	assert.True(t, res.GrossTotal.Equal(types.MustMoney("118.00")), "gross = %s", res.GrossTotal)
}

func TestCalculateCompound_LineAndHeaderDiscount(t *testing.T) {
	e := NewEngine(testTable())
	ctx := context.Background()

	lines := []CompoundLine{
		{Quantity: types.MustMoney("4"), UnitPrice: types.MustMoney("25.00"), DiscountPct: types.MustMoney("10.00"), Code: CodeStandard},
	}

	// 100 - 10% line = 90, - 5% header = 85.50, VAT 17.10
	res := e.CalculateCompound(ctx, lines, types.MustMoney("5.00"), types.Zero(), types.Zero(), nil)

	assert.True(t, res.NetTotal.Equal(types.MustMoney("85.50")), "net = %s", res.NetTotal)
	assert.True(t, res.VATTotal.Equal(types.MustMoney("17.10")), "vat = %s", res.VATTotal)
}
