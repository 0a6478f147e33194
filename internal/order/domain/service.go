package domain

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/masaladesk/masaladesk/internal/invoice/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidOrder      = errors.New("invalid_order")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrAlreadyFinalized  = errors.New("already_finalized")
	ErrSplitMismatch     = errors.New("split_mismatch")
	ErrNotServed         = errors.New("not_served")
)

type CreateOrderItemInput struct {
	MenuItemID *string         `json:"menu_item_id"`
	ProductID  *string         `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Notes      string          `json:"notes"`
}

type CreateOrderRequest struct {
	OrderType     OrderType              `json:"order_type" binding:"required"`
	TableNo       string                 `json:"table_no"`
	CustomerName  string                 `json:"customer_name"`
	CustomerState string                 `json:"customer_state"`
	Items         []CreateOrderItemInput `json:"items" binding:"required"`
}

type ListOrderRequest struct {
	Status    *OrderStatus
	OrderType *OrderType
}

// FinalizeRequest carries everything settled at the till: the discount and
// how the bill is paid. For split payments the three tender amounts must sum
// to the computed total.
type FinalizeRequest struct {
	Discount       decimal.Decimal `json:"discount"`
	DiscountReason string          `json:"discount_reason"`
	PaymentMode    PaymentMode     `json:"payment_mode" binding:"required"`
	CashAmount     decimal.Decimal `json:"cash_amount"`
	UpiAmount      decimal.Decimal `json:"upi_amount"`
	CardAmount     decimal.Decimal `json:"card_amount"`
	DueDate        *time.Time      `json:"due_date"`
}

type FinalizeResult struct {
	Order    *KOT                           `json:"order"`
	Invoice  *invoicedomain.Invoice         `json:"invoice"`
	Warnings []inventorydomain.StockWarning `json:"warnings,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (*KOT, error)
	Get(ctx context.Context, id string) (*KOT, error)
	List(ctx context.Context, req ListOrderRequest) ([]KOT, error)

	// Transition moves a KOT along the kitchen progression. It never
	// reaches served; Finalize owns that edge.
	Transition(ctx context.Context, id string, to OrderStatus) (*KOT, error)

	// Finalize computes totals and tax, records payment, emits inventory
	// movements, creates the invoice and marks the order served, all in
	// one transaction. Exactly one of two concurrent calls succeeds.
	Finalize(ctx context.Context, id string, req FinalizeRequest) (*FinalizeResult, error)

	// Cancel closes a non-terminal order with no billing or inventory
	// side effects.
	Cancel(ctx context.Context, id string) (*KOT, error)

	// ReverseServed undoes a finalized order: the invoice is cancelled
	// and compensating movements restore stock.
	ReverseServed(ctx context.Context, id string) (*KOT, error)

	// Delete removes the order and its dependent invoice rows. Inventory
	// movements are audit history and survive.
	Delete(ctx context.Context, id string) error
}
