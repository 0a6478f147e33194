package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	"github.com/masaladesk/masaladesk/pkg/db/option"
	"github.com/masaladesk/masaladesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	products   repository.Repository[catalogdomain.Product]
	menuItems  repository.Repository[catalogdomain.MenuItem]
	payMethods repository.Repository[catalogdomain.PaymentMethod]
}

func NewService(p ServiceParam) catalogdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,

		products:   repository.ProvideStore[catalogdomain.Product](p.DB),
		menuItems:  repository.ProvideStore[catalogdomain.MenuItem](p.DB),
		payMethods: repository.ProvideStore[catalogdomain.PaymentMethod](p.DB),
	}
}

func (s *Service) CreateProduct(ctx context.Context, req catalogdomain.CreateProductRequest) (*catalogdomain.Product, error) {
	if strings.TrimSpace(req.Name) == "" || req.UnitPrice.IsNegative() || req.TaxRate.IsNegative() {
		return nil, catalogdomain.ErrInvalidProduct
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "pcs"
	}

	product := &catalogdomain.Product{
		ID:           s.genID.Generate(),
		Name:         strings.TrimSpace(req.Name),
		Unit:         unit,
		UnitPrice:    req.UnitPrice,
		TaxRate:      req.TaxRate,
		ReorderLevel: req.ReorderLevel,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req catalogdomain.UpdateProductRequest) (*catalogdomain.Product, error) {
	productID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, catalogdomain.ErrNotFound
	}

	updates := map[string]any{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, catalogdomain.ErrInvalidProduct
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Unit != nil {
		updates["unit"] = strings.TrimSpace(*req.Unit)
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, catalogdomain.ErrInvalidProduct
		}
		updates["unit_price"] = *req.UnitPrice
	}
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() {
			return nil, catalogdomain.ErrInvalidProduct
		}
		updates["tax_rate"] = *req.TaxRate
	}
	if req.ReorderLevel != nil {
		updates["reorder_level"] = *req.ReorderLevel
	}

	// stock_quantity is ledger-owned and deliberately not updatable here
	if len(updates) > 0 {
		if err := s.products.Update(ctx, productID.String(), updates); err != nil {
			return nil, err
		}
	}
	return s.GetProduct(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*catalogdomain.Product, error) {
	productID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, catalogdomain.ErrNotFound
	}
	product, err := s.products.FindOne(ctx, &catalogdomain.Product{ID: productID})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, catalogdomain.ErrNotFound
	}
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]catalogdomain.Product, error) {
	items, err := s.products.Find(ctx, &catalogdomain.Product{}, option.WithOrder("name asc"))
	if err != nil {
		return nil, err
	}
	products := make([]catalogdomain.Product, 0, len(items))
	for _, item := range items {
		products = append(products, *item)
	}
	return products, nil
}

func (s *Service) CreateMenuItem(ctx context.Context, req catalogdomain.CreateMenuItemRequest) (*catalogdomain.MenuItem, error) {
	if strings.TrimSpace(req.Name) == "" || req.Price.IsNegative() {
		return nil, catalogdomain.ErrInvalidMenu
	}
	if req.TaxRate != nil && req.TaxRate.IsNegative() {
		return nil, catalogdomain.ErrInvalidMenu
	}

	item := &catalogdomain.MenuItem{
		ID:       s.genID.Generate(),
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price,
		TaxRate:  req.TaxRate,
		IsActive: true,
	}
	for _, ing := range req.Ingredients {
		productID, err := snowflake.ParseString(ing.ProductID)
		if err != nil || !ing.QuantityRequired.IsPositive() {
			return nil, catalogdomain.ErrInvalidMenu
		}
		product, err := s.products.FindOne(ctx, &catalogdomain.Product{ID: productID})
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, catalogdomain.ErrNotFound
		}
		item.Ingredients = append(item.Ingredients, catalogdomain.MenuItemIngredient{
			ID:               s.genID.Generate(),
			MenuItemID:       item.ID,
			ProductID:        productID,
			QuantityRequired: ing.QuantityRequired,
		})
	}

	if err := s.menuItems.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) GetMenuItem(ctx context.Context, id string) (*catalogdomain.MenuItem, error) {
	itemID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, catalogdomain.ErrNotFound
	}
	item, err := s.menuItems.FindOne(ctx, &catalogdomain.MenuItem{ID: itemID}, option.WithPreload("Ingredients"))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, catalogdomain.ErrNotFound
	}
	return item, nil
}

func (s *Service) ListMenuItems(ctx context.Context) ([]catalogdomain.MenuItem, error) {
	items, err := s.menuItems.Find(ctx, &catalogdomain.MenuItem{}, option.WithPreload("Ingredients"), option.WithOrder("name asc"))
	if err != nil {
		return nil, err
	}
	menuItems := make([]catalogdomain.MenuItem, 0, len(items))
	for _, item := range items {
		menuItems = append(menuItems, *item)
	}
	return menuItems, nil
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]catalogdomain.PaymentMethod, error) {
	items, err := s.payMethods.Find(ctx, &catalogdomain.PaymentMethod{IsActive: true})
	if err != nil {
		return nil, err
	}
	methods := make([]catalogdomain.PaymentMethod, 0, len(items))
	for _, item := range items {
		methods = append(methods, *item)
	}
	return methods, nil
}

func (s *Service) IsValidPaymentMethod(ctx context.Context, code string) (bool, error) {
	method, err := s.payMethods.FindOne(ctx, &catalogdomain.PaymentMethod{Code: strings.ToLower(strings.TrimSpace(code))})
	if err != nil {
		return false, err
	}
	return method != nil && method.IsActive, nil
}
