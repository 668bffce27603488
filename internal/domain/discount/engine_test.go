package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincore/internal/core/apperror"
	"fincore/internal/core/types"
)

func TestTradeDiscount(t *testing.T) {
	e := NewEngine(DefaultLimitTable())

	discountAmount, net := e.TradeDiscount(types.MustMoney("500.00"), types.MustMoney("10.00"))
	assert.True(t, discountAmount.Equal(types.MustMoney("50.00")), "discount = %s", discountAmount)
	assert.True(t, net.Equal(types.MustMoney("450.00")), "net = %s", net)
}

func TestVolumeDiscount_HighestQualifyingTier(t *testing.T) {
	e := NewEngine(DefaultLimitTable())
	breaks := []VolumeBreak{
		{MinQty: types.MustMoney("100"), Percentage: types.MustMoney("15")},
		{MinQty: types.MustMoney("50"), Percentage: types.MustMoney("10")},
		{MinQty: types.MustMoney("10"), Percentage: types.MustMoney("5")},
	}

	cases := []struct {
		name         string
		qty          string
		wantDiscount string
		wantNet      string
	}{
		{"below all tiers", "5", "0.00", "50.00"},
		{"first tier exactly", "10", "5.00", "95.00"},
		{"middle tier", "60", "60.00", "540.00"},
		{"top tier", "150", "225.00", "1275.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, discountAmount, net := e.VolumeDiscount(types.MustMoney("10.00"), types.MustMoney(tc.qty), breaks)
			assert.True(t, discountAmount.Equal(types.MustMoney(tc.wantDiscount)), "discount = %s", discountAmount)
			assert.True(t, net.Equal(types.MustMoney(tc.wantNet)), "net = %s", net)
		})
	}
}

func TestSettlementDiscount_WindowInclusive(t *testing.T) {
	e := NewEngine(DefaultLimitTable())
	invoiceDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	amount := types.MustMoney("1000.00")
	pct := types.MustMoney("2.50")

	// 7 days in: eligible.
	eligible, discountAmount := e.SettlementDiscount(amount, pct, 10,
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), invoiceDate)
	assert.True(t, eligible)
	assert.True(t, discountAmount.Equal(types.MustMoney("25.00")))

	// Boundary day is inclusive.
	eligible, _ = e.SettlementDiscount(amount, pct, 10,
		time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), invoiceDate)
	assert.True(t, eligible)

	// 14 days: expired, zero discount, no error.
	eligible, discountAmount = e.SettlementDiscount(amount, pct, 10,
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), invoiceDate)
	assert.False(t, eligible)
	assert.True(t, discountAmount.IsZero())
}

func TestCompoundDiscount_Cascade(t *testing.T) {
	e := NewEngine(DefaultLimitTable())
	base := types.MustMoney("1000.00")

	// Supplied out of order; cascade must apply TRADE then VOLUME then SPECIAL.
	res := e.CompoundDiscount(base, []Spec{
		{Type: TypeSpecial, Percentage: types.MustMoney("5")},
		{Type: TypeTrade, Percentage: types.MustMoney("10")},
		{Type: TypeVolume, Percentage: types.MustMoney("5")},
	}, MethodCascade)

	require.Len(t, res.Applied, 3)
	assert.Equal(t, TypeTrade, res.Applied[0].Type)
	assert.Equal(t, TypeVolume, res.Applied[1].Type)
	assert.Equal(t, TypeSpecial, res.Applied[2].Type)

	// 1000 -10% = 900, -5% = 855, -5% = 812.25
	assert.True(t, res.Applied[0].Amount.Equal(types.MustMoney("100.00")))
	assert.True(t, res.Applied[1].Amount.Equal(types.MustMoney("45.00")))
	assert.True(t, res.Applied[2].Amount.Equal(types.MustMoney("42.75")))
	assert.True(t, res.FinalAmount.Equal(types.MustMoney("812.25")), "final = %s", res.FinalAmount)
	assert.True(t, res.TotalDiscount.Equal(types.MustMoney("187.75")))
}

func TestCompoundDiscount_Best(t *testing.T) {
	e := NewEngine(DefaultLimitTable())
	base := types.MustMoney("1000.00")

	res := e.CompoundDiscount(base, []Spec{
		{Type: TypeTrade, Percentage: types.MustMoney("10")},
		{Type: TypePromotion, Percentage: types.MustMoney("15")},
		{Type: TypeVolume, Percentage: types.MustMoney("5")},
	}, MethodBest)

	require.Len(t, res.Applied, 1)
	assert.Equal(t, TypePromotion, res.Applied[0].Type)
	assert.True(t, res.FinalAmount.Equal(types.MustMoney("850.00")), "final = %s", res.FinalAmount)
}

func TestCompoundDiscount_SettlementNotCascaded(t *testing.T) {
	e := NewEngine(DefaultLimitTable())
	base := types.MustMoney("1000.00")

	res := e.CompoundDiscount(base, []Spec{
		{Type: TypeSettlement, Percentage: types.MustMoney("2.5")},
		{Type: TypeTrade, Percentage: types.MustMoney("10")},
	}, MethodCascade)

	require.Len(t, res.Applied, 1)
	assert.Equal(t, TypeTrade, res.Applied[0].Type)
	assert.True(t, res.FinalAmount.Equal(types.MustMoney("900.00")))
}

func TestValidateLimits(t *testing.T) {
	e := NewEngine(DefaultLimitTable())

	// Within authority.
	assert.NoError(t, e.ValidateLimits(types.MustMoney("5"), TypeTrade, 1))
	assert.NoError(t, e.ValidateLimits(types.MustMoney("10"), TypeTrade, 3))

	// Over per-type authority.
	err := e.ValidateLimits(types.MustMoney("12"), TypeTrade, 3)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDiscountLimit))

	// Missing (type, level) combination defaults to no authority.
	err = e.ValidateLimits(types.MustMoney("1"), TypePromotion, 1)
	require.Error(t, err)

	// Above 50% requires level 9 regardless of table.
	err = e.ValidateLimits(types.MustMoney("60"), TypeSpecial, 7)
	require.Error(t, err)
	assert.NoError(t, e.ValidateLimits(types.MustMoney("60"), TypeSpecial, 9))

	// Negative percentages always rejected.
	err = e.ValidateLimits(types.MustMoney("-5"), TypeTrade, 9)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
