// Package domain contains supplier purchase models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/masaladesk/masaladesk/internal/billing"
	"github.com/shopspring/decimal"
)

// PurchaseStatus is the procurement lifecycle. Stock moves only on the
// ordered -> received edge.
type PurchaseStatus string

const (
	PurchaseStatusOrdered   PurchaseStatus = "ordered"
	PurchaseStatusReceived  PurchaseStatus = "received"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// Purchase is a supplier order. Total is frozen at creation; AmountPaid and
// PaymentStatus are derived from payment rows, same rules as invoices.
type Purchase struct {
	ID            snowflake.ID          `gorm:"primaryKey" json:"id"`
	PurchaseNo    string                `gorm:"type:text;not null;uniqueIndex" json:"purchase_no"`
	SupplierName  string                `gorm:"type:text;not null" json:"supplier_name"`
	SupplierPhone string                `gorm:"type:text" json:"supplier_phone,omitempty"`
	Status        PurchaseStatus        `gorm:"type:text;not null;default:'ordered';index" json:"status"`
	Total         decimal.Decimal       `gorm:"type:decimal(20,2);not null;default:0" json:"total"`
	AmountPaid    decimal.Decimal       `gorm:"type:decimal(20,2);not null;default:0" json:"amount_paid"`
	PaymentStatus billing.PaymentStatus `gorm:"type:text;not null;default:'unpaid'" json:"payment_status"`
	ReceivedAt    *time.Time            `json:"received_at,omitempty"`
	Items         []PurchaseItem        `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payments      []PurchasePayment     `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	CreatedAt     time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Purchase) TableName() string { return "purchases" }

// PurchaseItem is one procured product line.
type PurchaseItem struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	PurchaseID snowflake.ID    `gorm:"not null;index" json:"purchase_id"`
	ProductID  snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"quantity"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_cost"`
	LineTotal  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"line_total"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PurchaseItem) TableName() string { return "purchase_items" }

// PurchasePayment is one outgoing payment to the supplier, append-only.
type PurchasePayment struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	PurchaseID  snowflake.ID    `gorm:"not null;index" json:"purchase_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Method      string          `gorm:"type:text;not null" json:"method"`
	ReferenceNo string          `gorm:"type:text" json:"reference_no,omitempty"`
	PaidAt      time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PurchasePayment) TableName() string { return "purchase_payments" }
