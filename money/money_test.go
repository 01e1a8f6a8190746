package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centuryview/feeledger/money"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParse_PlainDecimal(t *testing.T) {
	m, err := money.Parse("1234.56")
	require.NoError(t, err)
	assert.Equal(t, "1234.56", m.String())
}

func TestParse_ThousandsSeparators(t *testing.T) {
	// Finance exports write grouped digits; both ASCII and full-width
	// commas show up in the same workbook.
	cases := map[string]string{
		"1,234.56":   "1234.56",
		"12,345,678": "12345678.00",
		"1，234.50":   "1234.50",
	}
	for raw, want := range cases {
		m, err := money.Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, m.String(), raw)
	}
}

func TestParse_CurrencyGlyphs(t *testing.T) {
	cases := map[string]string{
		"¥800":      "800.00",
		"￥1,200.5":  "1200.50",
		"$99.99":    "99.99",
		"300元":      "300.00",
		" 450.25 ":  "450.25",
		"\t120.00 ": "120.00",
	}
	for raw, want := range cases {
		m, err := money.Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, m.String(), raw)
	}
}

func TestParse_Negative(t *testing.T) {
	m, err := money.Parse("-42.10")
	require.NoError(t, err)
	assert.True(t, m.IsNegative())
	assert.Equal(t, "-42.10", m.String())
}

func TestParse_Invalid_ReturnsZeroAndError(t *testing.T) {
	for _, raw := range []string{"abc", "12.3.4", "", "--5"} {
		m, err := money.Parse(raw)
		assert.ErrorIs(t, err, money.ErrInvalidAmount, raw)
		assert.True(t, m.IsZero(), raw)
	}
}

// =============================================================================
// ARITHMETIC AND ROUNDING
// =============================================================================

func TestRound2_HalfUp(t *testing.T) {
	subCent := func(s string) money.Money {
		return money.Money{Value: decimal.RequireFromString(s)}
	}

	assert.Equal(t, "10.35", subCent("10.345").Round2().String())
	assert.Equal(t, "10.34", subCent("10.344").Round2().String())
	assert.Equal(t, "-10.35", subCent("-10.345").Round2().String())

	// Parse itself rounds, so sub-cent input never survives intake.
	assert.Equal(t, "10.35", money.MustParse("10.345").String())
}

func TestAddSub_Exact(t *testing.T) {
	sum := money.MustParse("0.10").Add(money.MustParse("0.11"))
	assert.Equal(t, "0.21", sum.String())

	diff := money.MustParse("100.00").Sub(money.MustParse("0.01"))
	assert.Equal(t, "99.99", diff.String())
}

func TestMinNeg(t *testing.T) {
	a := money.MustParse("5.00")
	b := money.MustParse("3.00")

	assert.True(t, a.Min(b).Equal(b))
	assert.True(t, b.Min(a).Equal(b))
	assert.Equal(t, "-5.00", a.Neg().String())
}

func TestComparisons(t *testing.T) {
	a := money.MustParse("1.10")
	b := money.MustParse("1.1")

	// 1.10 and 1.1 are the same amount, not the same string input.
	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Cmp(b))
	assert.True(t, money.Zero().LessThan(a))
	assert.True(t, a.GreaterThan(money.Zero()))
	assert.True(t, money.Zero().IsZero())
	assert.True(t, a.IsPositive())
}

func TestNoFloatDrift(t *testing.T) {
	// 0.1 + 0.2 is exactly 0.3 in decimal arithmetic.
	sum := money.MustParse("0.1").Add(money.MustParse("0.2"))
	assert.True(t, sum.Equal(money.MustParse("0.3")))
}
