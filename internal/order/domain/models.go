// Package domain contains the kitchen order ticket models and lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// OrderType is how the order reaches the customer.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "take_away"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

// OrderStatus is the KOT lifecycle state. Served and cancelled are terminal;
// served is only reachable through finalization.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusServed || s == OrderStatusCancelled
}

// OpenStatuses are the states a KOT can still move out of.
var OpenStatuses = []OrderStatus{OrderStatusPending, OrderStatusPreparing, OrderStatusReady}

// CanTransition reports whether the kitchen progression allows from -> to.
// Served is excluded here; it is reached through Finalize, never directly.
func CanTransition(from, to OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case OrderStatusPreparing:
		return from == OrderStatusPending
	case OrderStatusReady:
		return from == OrderStatusPreparing
	case OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentMode is how the bill is settled at finalization. Split spreads the
// total across cash, UPI and card amounts.
type PaymentMode string

const (
	PaymentModeCash  PaymentMode = "cash"
	PaymentModeUPI   PaymentMode = "upi"
	PaymentModeCard  PaymentMode = "card"
	PaymentModeSplit PaymentMode = "split"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeCard, PaymentModeSplit:
		return true
	}
	return false
}

// KOT is a kitchen order ticket. Prices and tax rates on its items are
// snapshotted at creation so later catalog edits never reprice an open order.
// Billing fields (discount, payment mode, tender amounts) are written once at
// finalization.
type KOT struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderNo        string          `gorm:"type:text;not null;uniqueIndex" json:"order_no"`
	OrderType      OrderType       `gorm:"type:text;not null" json:"order_type"`
	Status         OrderStatus     `gorm:"type:text;not null;default:'pending';index" json:"status"`
	TableNo        string          `gorm:"type:text" json:"table_no,omitempty"`
	CustomerName   string          `gorm:"type:text" json:"customer_name,omitempty"`
	CustomerState  string          `gorm:"type:text" json:"customer_state,omitempty"`
	Discount       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`
	DiscountReason string          `gorm:"type:text" json:"discount_reason,omitempty"`
	PaymentMode    PaymentMode     `gorm:"type:text" json:"payment_mode,omitempty"`
	CashAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cash_amount"`
	UpiAmount      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"upi_amount"`
	CardAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"card_amount"`
	Items          []KOTItem       `gorm:"foreignKey:KotID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (KOT) TableName() string { return "kots" }

// KOTItem is one ordered line. Exactly one of MenuItemID and ProductID is
// set; menu items consume their recipe ingredients at finalization while
// direct product lines deduct stock one to one.
type KOTItem struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	KotID      snowflake.ID    `gorm:"not null;index" json:"kot_id"`
	MenuItemID *snowflake.ID   `gorm:"index" json:"menu_item_id,omitempty"`
	ProductID  *snowflake.ID   `gorm:"index" json:"product_id,omitempty"`
	Name       string          `gorm:"type:text;not null" json:"name"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"`
	TaxRate    decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"tax_rate"`
	Notes      string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (KOTItem) TableName() string { return "kot_items" }
