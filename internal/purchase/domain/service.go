package domain

import (
	"context"
	"errors"

	"github.com/masaladesk/masaladesk/internal/billing"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidPurchase = errors.New("invalid_purchase")
	ErrInvalidPayment  = errors.New("invalid_payment")
	ErrOverpayment     = billing.ErrOverpayment
	ErrNotOrdered      = errors.New("not_ordered")
)

type PurchaseItemInput struct {
	ProductID string          `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type CreatePurchaseRequest struct {
	SupplierName  string              `json:"supplier_name" binding:"required"`
	SupplierPhone string              `json:"supplier_phone"`
	Items         []PurchaseItemInput `json:"items" binding:"required"`
}

type ApplyPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      string          `json:"method" binding:"required"`
	ReferenceNo string          `json:"reference_no"`
}

type ListPurchaseRequest struct {
	Status *PurchaseStatus
}

type Service interface {
	Create(ctx context.Context, req CreatePurchaseRequest) (*Purchase, error)
	Get(ctx context.Context, id string) (*Purchase, error)
	List(ctx context.Context, req ListPurchaseRequest) ([]Purchase, error)

	// Receive books the delivery: the purchase flips to received and one
	// positive movement per line enters the stock ledger, atomically.
	Receive(ctx context.Context, id string) (*Purchase, []inventorydomain.StockWarning, error)

	// ApplyPayment records a supplier payment under the same cumulative
	// overpayment rules as invoice payments.
	ApplyPayment(ctx context.Context, id string, req ApplyPaymentRequest) (*Purchase, error)

	// Cancel closes an ordered purchase before delivery.
	Cancel(ctx context.Context, id string) (*Purchase, error)
}
