// Package billing holds the money math shared by invoices, purchases and
// order finalization: 2-decimal currency rounding, payment status
// derivation and discount pro-ration.
package billing

import "github.com/shopspring/decimal"

// Epsilon absorbs rounding drift when comparing money amounts. A payment is
// considered settled when it is within one paisa of the total.
var Epsilon = decimal.New(1, -2)

// Round2 rounds to two decimal places, half up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PaymentStatus is derived from recorded payments, never set directly.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// DerivePaymentStatus computes the payment status from the cumulative paid
// amount and the total owed.
func DerivePaymentStatus(amountPaid, total decimal.Decimal) PaymentStatus {
	if amountPaid.LessThanOrEqual(decimal.Zero) {
		return PaymentStatusUnpaid
	}
	if amountPaid.GreaterThanOrEqual(total.Sub(Epsilon)) {
		return PaymentStatusPaid
	}
	return PaymentStatusPartial
}

// ExceedsOwed reports whether paying amount on top of alreadyPaid would
// push the cumulative paid beyond total plus the rounding tolerance.
func ExceedsOwed(alreadyPaid, amount, total decimal.Decimal) bool {
	return alreadyPaid.Add(amount).GreaterThan(total.Add(Epsilon))
}

// WithinEpsilon reports whether a and b differ by at most Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}
