package billing

import "github.com/shopspring/decimal"

// LineInput is one order or purchase line as priced at order time.
type LineInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal // percent, e.g. 5 for 5% GST
}

// TotalLine is a priced line with its pro-rated discount share applied.
type TotalLine struct {
	LineInput
	Gross   decimal.Decimal // quantity x unit price, rounded
	Share   decimal.Decimal // this line's share of the order discount
	Taxable decimal.Decimal // Gross - Share; tax is computed on this
}

// Totals aggregates priced lines before tax.
type Totals struct {
	Lines    []TotalLine
	Subtotal decimal.Decimal
	Discount decimal.Decimal
}

// ComputeTotals prices the lines and pro-rates a fixed discount across them
// by gross weight. Tax is intended to be computed per line on the discounted
// (taxable) amount, so a discount reduces tax liability proportionally. The
// last line absorbs the rounding remainder so the shares sum exactly to the
// discount.
func ComputeTotals(lines []LineInput, discount decimal.Decimal) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, ErrInvalidDiscount
	}

	out := Totals{Lines: make([]TotalLine, 0, len(lines)), Discount: discount}
	subtotal := decimal.Zero
	for _, line := range lines {
		if !line.Quantity.IsPositive() || line.UnitPrice.IsNegative() || line.TaxRate.IsNegative() {
			return Totals{}, ErrInvalidLineItem
		}
		gross := Round2(line.Quantity.Mul(line.UnitPrice))
		subtotal = subtotal.Add(gross)
		out.Lines = append(out.Lines, TotalLine{LineInput: line, Gross: gross, Taxable: gross})
	}
	out.Subtotal = subtotal

	if discount.GreaterThan(subtotal) {
		return Totals{}, ErrInvalidDiscount
	}
	if discount.IsZero() || subtotal.IsZero() {
		return out, nil
	}

	allocated := decimal.Zero
	for i := range out.Lines {
		line := &out.Lines[i]
		if i == len(out.Lines)-1 {
			line.Share = discount.Sub(allocated)
		} else {
			line.Share = Round2(discount.Mul(line.Gross).Div(subtotal))
			allocated = allocated.Add(line.Share)
		}
		line.Taxable = line.Gross.Sub(line.Share)
	}

	return out, nil
}
