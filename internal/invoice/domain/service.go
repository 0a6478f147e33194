package domain

import (
	"context"
	"errors"

	"github.com/masaladesk/masaladesk/internal/billing"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("not_found")
	ErrOverpayment    = billing.ErrOverpayment
	ErrInvalidPayment = errors.New("invalid_payment")
	ErrCancelled      = errors.New("invoice_cancelled")
)

type ListInvoiceRequest struct {
	Status        *InvoiceStatus
	PaymentStatus *string
}

type ApplyPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      string          `json:"method" binding:"required"`
	ReferenceNo string          `json:"reference_no"`
}

type Service interface {
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, error)
	Get(ctx context.Context, id string) (*Invoice, error)

	// ApplyPayment records a payment and rederives AmountPaid and
	// PaymentStatus in one transaction. Cumulative payments may not
	// exceed the total beyond the rounding tolerance.
	ApplyPayment(ctx context.Context, invoiceID string, req ApplyPaymentRequest) (*Invoice, error)

	// RefreshOverdue flips past-due unpaid invoices to overdue and
	// returns how many were updated.
	RefreshOverdue(ctx context.Context) (int64, error)
}
