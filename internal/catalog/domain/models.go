// Package domain contains persistence models for the product catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Product is a stocked good. StockQuantity is a cached projection owned by
// the inventory ledger; order and purchase flows never write it directly.
type Product struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"type:text;not null" json:"name"`
	Unit          string          `gorm:"type:text;not null;default:'pcs'" json:"unit"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"tax_rate"`
	StockQuantity decimal.Decimal `gorm:"type:decimal(20,3);not null;default:0" json:"stock_quantity"`
	ReorderLevel  decimal.Decimal `gorm:"type:decimal(20,3);not null;default:0" json:"reorder_level"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// MenuItem is a sellable dish. Its recipe drives ingredient consumption when
// an order is finalized. A nil TaxRate falls back to the profile default.
type MenuItem struct {
	ID          snowflake.ID         `gorm:"primaryKey" json:"id"`
	Name        string               `gorm:"type:text;not null" json:"name"`
	Price       decimal.Decimal      `gorm:"type:decimal(20,2);not null" json:"price"`
	TaxRate     *decimal.Decimal     `gorm:"type:decimal(6,2)" json:"tax_rate,omitempty"`
	IsActive    bool                 `gorm:"not null;default:true" json:"is_active"`
	Ingredients []MenuItemIngredient `gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE" json:"ingredients,omitempty"`
	CreatedAt   time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MenuItem) TableName() string { return "menu_items" }

// MenuItemIngredient is one recipe line: how much of a product one serving
// consumes.
type MenuItemIngredient struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	MenuItemID       snowflake.ID    `gorm:"not null;index" json:"menu_item_id"`
	ProductID        snowflake.ID    `gorm:"not null;index" json:"product_id"`
	QuantityRequired decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"quantity_required"`
}

func (MenuItemIngredient) TableName() string { return "menu_item_ingredients" }

// PaymentMethod is a seeded lookup of accepted tender types.
type PaymentMethod struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
