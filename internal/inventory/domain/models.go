// Package domain contains the append-only inventory movement log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// MovementType classifies why stock changed.
type MovementType string

const (
	MovementPurchase    MovementType = "purchase"
	MovementSale        MovementType = "sale"
	MovementAdjustment  MovementType = "adjustment"
	MovementConsumption MovementType = "consumption"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementPurchase, MovementSale, MovementAdjustment, MovementConsumption:
		return true
	}
	return false
}

// ReferenceType discriminates which aggregate caused a movement.
type ReferenceType string

const (
	ReferenceOrder    ReferenceType = "order"
	ReferenceInvoice  ReferenceType = "invoice"
	ReferencePurchase ReferenceType = "purchase"
)

// Reference is a typed back-reference to the aggregate that caused a
// movement. Manual adjustments carry no reference.
type Reference struct {
	Type ReferenceType
	ID   snowflake.ID
}

func (r Reference) IsZero() bool {
	return r.Type == "" && r.ID == 0
}

func (r Reference) Valid() bool {
	if r.IsZero() {
		return true
	}
	switch r.Type {
	case ReferenceOrder, ReferenceInvoice, ReferencePurchase:
		return r.ID != 0
	}
	return false
}

// Movement is one signed stock change. Rows are immutable once created;
// corrections happen through compensating movements, never updates.
type Movement struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	ProductID     snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Type          MovementType    `gorm:"type:text;not null" json:"type"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"quantity"`
	ReferenceType ReferenceType   `gorm:"type:text;index:idx_movements_reference" json:"reference_type,omitempty"`
	ReferenceID   snowflake.ID    `gorm:"index:idx_movements_reference" json:"reference_id,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Movement) TableName() string { return "inventory_movements" }

// Ref returns the movement's typed back-reference.
func (m Movement) Ref() Reference {
	return Reference{Type: m.ReferenceType, ID: m.ReferenceID}
}

// SaleMovement records qtySold units leaving stock for a direct product sale.
func SaleMovement(productID snowflake.ID, qtySold decimal.Decimal, orderID snowflake.ID) *Movement {
	return &Movement{
		ProductID:     productID,
		Type:          MovementSale,
		Quantity:      qtySold.Neg(),
		ReferenceType: ReferenceOrder,
		ReferenceID:   orderID,
	}
}

// ConsumptionMovement records ingredients consumed by sold menu items.
func ConsumptionMovement(productID snowflake.ID, qtyConsumed decimal.Decimal, orderID snowflake.ID) *Movement {
	return &Movement{
		ProductID:     productID,
		Type:          MovementConsumption,
		Quantity:      qtyConsumed.Neg(),
		ReferenceType: ReferenceOrder,
		ReferenceID:   orderID,
	}
}

// PurchaseMovement records qtyReceived units entering stock from a supplier.
func PurchaseMovement(productID snowflake.ID, qtyReceived decimal.Decimal, purchaseID snowflake.ID) *Movement {
	return &Movement{
		ProductID:     productID,
		Type:          MovementPurchase,
		Quantity:      qtyReceived,
		ReferenceType: ReferencePurchase,
		ReferenceID:   purchaseID,
	}
}

// StockWarning surfaces low or negative stock to the caller. Movements are
// never rejected for stock level; kitchens run on approximate counts.
type StockWarning struct {
	ProductID    snowflake.ID    `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Stock        decimal.Decimal `json:"stock"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}
