// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/masaladesk/masaladesk/internal/billing"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is the immutable billing snapshot produced when an order is
// served. Subtotal, discount and the tax components are frozen at
// finalization; AmountPaid and PaymentStatus are derived from payment rows.
//
// Invariant: Total = Subtotal - Discount + CGST + SGST + IGST.
type Invoice struct {
	ID             snowflake.ID          `gorm:"primaryKey" json:"id"`
	InvoiceNo      string                `gorm:"type:text;not null;uniqueIndex" json:"invoice_no"`
	KotID          snowflake.ID          `gorm:"not null;uniqueIndex" json:"kot_id"`
	CustomerName   string                `gorm:"type:text" json:"customer_name,omitempty"`
	CustomerState  string                `gorm:"type:text" json:"customer_state,omitempty"`
	Status         InvoiceStatus         `gorm:"type:text;not null;default:'draft'" json:"status"`
	PaymentStatus  billing.PaymentStatus `gorm:"type:text;not null;default:'unpaid'" json:"payment_status"`
	Subtotal       decimal.Decimal       `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`
	Discount       decimal.Decimal       `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`
	DiscountReason string                `gorm:"type:text" json:"discount_reason,omitempty"`
	CGST           decimal.Decimal       `gorm:"column:cgst;type:decimal(20,2);not null;default:0" json:"cgst"`
	SGST           decimal.Decimal       `gorm:"column:sgst;type:decimal(20,2);not null;default:0" json:"sgst"`
	IGST           decimal.Decimal       `gorm:"column:igst;type:decimal(20,2);not null;default:0" json:"igst"`
	Total          decimal.Decimal       `gorm:"type:decimal(20,2);not null;default:0" json:"total"`
	AmountPaid     decimal.Decimal       `gorm:"type:decimal(20,2);not null;default:0" json:"amount_paid"`
	TaxLabel       string                `gorm:"type:text" json:"tax_label,omitempty"`
	DueDate        *time.Time            `json:"due_date,omitempty"`
	Metadata       datatypes.JSONMap     `gorm:"type:json" json:"metadata,omitempty"`
	Items          []InvoiceItem         `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payments       []InvoicePayment      `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	CreatedAt      time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a line on an invoice, priced as it was on the order.
type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	MenuItemID  *snowflake.ID   `gorm:"index" json:"menu_item_id,omitempty"`
	ProductID   *snowflake.ID   `gorm:"index" json:"product_id,omitempty"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"tax_rate"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"line_total"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// InvoicePayment is one captured payment. Rows are append-only; the parent
// invoice's AmountPaid is the sum of its payment rows.
type InvoicePayment struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Method      string          `gorm:"type:text;not null" json:"method"`
	ReferenceNo string          `gorm:"type:text" json:"reference_no,omitempty"`
	PaidAt      time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InvoicePayment) TableName() string { return "invoice_payments" }
