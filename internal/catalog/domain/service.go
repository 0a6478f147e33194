package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidProduct = errors.New("invalid_product")
	ErrInvalidMenu    = errors.New("invalid_menu_item")
)

type CreateProductRequest struct {
	Name         string          `json:"name" binding:"required"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

type UpdateProductRequest struct {
	Name         *string          `json:"name"`
	Unit         *string          `json:"unit"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	ReorderLevel *decimal.Decimal `json:"reorder_level"`
}

type IngredientInput struct {
	ProductID        string          `json:"product_id" binding:"required"`
	QuantityRequired decimal.Decimal `json:"quantity_required" binding:"required"`
}

type CreateMenuItemRequest struct {
	Name        string            `json:"name" binding:"required"`
	Price       decimal.Decimal   `json:"price"`
	TaxRate     *decimal.Decimal  `json:"tax_rate"`
	Ingredients []IngredientInput `json:"ingredients"`
}

type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	CreateMenuItem(ctx context.Context, req CreateMenuItemRequest) (*MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*MenuItem, error)
	ListMenuItems(ctx context.Context) ([]MenuItem, error)

	ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
	IsValidPaymentMethod(ctx context.Context, code string) (bool, error)
}
