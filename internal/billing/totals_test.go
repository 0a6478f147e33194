package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeTotals_SubtotalIsExactSumOfLines(t *testing.T) {
	lines := []LineInput{
		{Quantity: d("2"), UnitPrice: d("149.50"), TaxRate: d("5")},
		{Quantity: d("1"), UnitPrice: d("89.99"), TaxRate: d("5")},
		{Quantity: d("3"), UnitPrice: d("33.33"), TaxRate: d("12")},
	}

	totals, err := ComputeTotals(lines, decimal.Zero)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, line := range totals.Lines {
		sum = sum.Add(line.Gross)
	}
	assert.True(t, sum.Equal(totals.Subtotal), "subtotal %s != sum of lines %s", totals.Subtotal, sum)
	assert.True(t, totals.Subtotal.Equal(d("488.98")))
}

func TestComputeTotals_DiscountProRatedExactly(t *testing.T) {
	lines := []LineInput{
		{Quantity: d("1"), UnitPrice: d("100"), TaxRate: d("5")},
		{Quantity: d("1"), UnitPrice: d("200"), TaxRate: d("5")},
		{Quantity: d("1"), UnitPrice: d("33.33"), TaxRate: d("18")},
	}

	totals, err := ComputeTotals(lines, d("50"))
	require.NoError(t, err)

	shares := decimal.Zero
	for _, line := range totals.Lines {
		shares = shares.Add(line.Share)
		assert.True(t, line.Taxable.Equal(line.Gross.Sub(line.Share)))
	}
	assert.True(t, shares.Equal(d("50")), "shares %s must sum exactly to the discount", shares)

	// heavier lines carry a larger share
	assert.True(t, totals.Lines[1].Share.GreaterThan(totals.Lines[0].Share))
}

func TestComputeTotals_DiscountExceedingSubtotal(t *testing.T) {
	lines := []LineInput{{Quantity: d("1"), UnitPrice: d("40"), TaxRate: d("5")}}

	_, err := ComputeTotals(lines, d("41"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = ComputeTotals(lines, d("-1"))
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestComputeTotals_RejectsInvalidLines(t *testing.T) {
	cases := map[string]LineInput{
		"zero quantity":     {Quantity: decimal.Zero, UnitPrice: d("10"), TaxRate: d("5")},
		"negative quantity": {Quantity: d("-1"), UnitPrice: d("10"), TaxRate: d("5")},
		"negative price":    {Quantity: d("1"), UnitPrice: d("-10"), TaxRate: d("5")},
		"negative tax rate": {Quantity: d("1"), UnitPrice: d("10"), TaxRate: d("-5")},
	}

	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeTotals([]LineInput{line}, decimal.Zero)
			assert.ErrorIs(t, err, ErrInvalidLineItem)
		})
	}
}

func TestComputeTotals_EmptyOrder(t *testing.T) {
	totals, err := ComputeTotals(nil, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.IsZero())
}

func TestDerivePaymentStatus(t *testing.T) {
	total := d("100")

	assert.Equal(t, PaymentStatusUnpaid, DerivePaymentStatus(decimal.Zero, total))
	assert.Equal(t, PaymentStatusPartial, DerivePaymentStatus(d("30"), total))
	assert.Equal(t, PaymentStatusPaid, DerivePaymentStatus(d("100"), total))
	// within tolerance of the total counts as settled
	assert.Equal(t, PaymentStatusPaid, DerivePaymentStatus(d("99.99"), total))
	assert.Equal(t, PaymentStatusPartial, DerivePaymentStatus(d("99.97"), total))
}

func TestExceedsOwed(t *testing.T) {
	total := d("100")

	assert.False(t, ExceedsOwed(d("30"), d("70"), total))
	assert.False(t, ExceedsOwed(d("30"), d("70.01"), total))
	assert.True(t, ExceedsOwed(decimal.Zero, d("150"), total))
	assert.True(t, ExceedsOwed(d("99"), d("1.02"), total))
}
