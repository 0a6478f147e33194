package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/masaladesk/masaladesk/internal/billing"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	inventoryservice "github.com/masaladesk/masaladesk/internal/inventory/service"
	purchasedomain "github.com/masaladesk/masaladesk/internal/purchase/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubCatalog struct {
	catalogdomain.Service
}

func (stubCatalog) IsValidPaymentMethod(ctx context.Context, code string) (bool, error) {
	return code == "cash" || code == "upi" || code == "card", nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, catalogdomain.Product) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&catalogdomain.Product{},
		&inventorydomain.Movement{},
		&purchasedomain.Purchase{},
		&purchasedomain.PurchaseItem{},
		&purchasedomain.PurchasePayment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	svc := &Service{
		db:    gdb,
		log:   log,
		genID: node,
		ledger: inventoryservice.NewService(inventoryservice.ServiceParam{
			DB:    gdb,
			Log:   log,
			GenID: node,
		}),
		catalog: stubCatalog{},
	}

	product := catalogdomain.Product{
		ID:            node.Generate(),
		Name:          "Basmati Rice",
		Unit:          "kg",
		StockQuantity: decimal.RequireFromString("5"),
		ReorderLevel:  decimal.RequireFromString("10"),
	}
	require.NoError(t, gdb.Create(&product).Error)
	return svc, gdb, product
}

func TestCreateComputesTotal(t *testing.T) {
	svc, _, product := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, purchasedomain.CreatePurchaseRequest{
		SupplierName: "Agro Traders",
		Items: []purchasedomain.PurchaseItemInput{{
			ProductID: product.ID.String(),
			Quantity:  decimal.RequireFromString("25"),
			UnitCost:  decimal.RequireFromString("82.50"),
		}},
	})
	require.NoError(t, err)
	require.Contains(t, purchase.PurchaseNo, "PUR-")
	require.Equal(t, purchasedomain.PurchaseStatusOrdered, purchase.Status)
	require.True(t, purchase.Total.Equal(decimal.RequireFromString("2062.50")))
	require.Equal(t, billing.PaymentStatusUnpaid, purchase.PaymentStatus)
}

func TestCreateValidation(t *testing.T) {
	svc, _, product := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, purchasedomain.CreatePurchaseRequest{SupplierName: "Agro Traders"})
	require.ErrorIs(t, err, purchasedomain.ErrInvalidPurchase)

	_, err = svc.Create(ctx, purchasedomain.CreatePurchaseRequest{
		SupplierName: "Agro Traders",
		Items: []purchasedomain.PurchaseItemInput{{
			ProductID: product.ID.String(),
			Quantity:  decimal.Zero,
		}},
	})
	require.ErrorIs(t, err, billing.ErrInvalidLineItem)

	_, err = svc.Create(ctx, purchasedomain.CreatePurchaseRequest{
		SupplierName: "Agro Traders",
		Items: []purchasedomain.PurchaseItemInput{{
			ProductID: "not-a-product",
			Quantity:  decimal.NewFromInt(1),
		}},
	})
	require.ErrorIs(t, err, billing.ErrInvalidLineItem)
}

func TestReceiveMovesStockOnce(t *testing.T) {
	svc, _, product := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, purchasedomain.CreatePurchaseRequest{
		SupplierName: "Agro Traders",
		Items: []purchasedomain.PurchaseItemInput{{
			ProductID: product.ID.String(),
			Quantity:  decimal.RequireFromString("25"),
			UnitCost:  decimal.RequireFromString("80"),
		}},
	})
	require.NoError(t, err)

	received, warnings, err := svc.Receive(ctx, purchase.ID.String())
	require.NoError(t, err)
	require.Equal(t, purchasedomain.PurchaseStatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)
	require.Empty(t, warnings)

	stock, err := svc.ledger.CurrentStock(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, stock.Equal(decimal.RequireFromString("30")))

	// receiving twice must not double the stock
	_, _, err = svc.Receive(ctx, purchase.ID.String())
	require.ErrorIs(t, err, purchasedomain.ErrNotOrdered)

	stock, err = svc.ledger.CurrentStock(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, stock.Equal(decimal.RequireFromString("30")))
}

func TestApplyPaymentReconciliation(t *testing.T) {
	svc, _, product := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, purchasedomain.CreatePurchaseRequest{
		SupplierName: "Agro Traders",
		Items: []purchasedomain.PurchaseItemInput{{
			ProductID: product.ID.String(),
			Quantity:  decimal.RequireFromString("10"),
			UnitCost:  decimal.RequireFromString("10"),
		}},
	})
	require.NoError(t, err)

	got, err := svc.ApplyPayment(ctx, purchase.ID.String(), purchasedomain.ApplyPaymentRequest{
		Amount: decimal.RequireFromString("40"),
		Method: "upi",
	})
	require.NoError(t, err)
	require.Equal(t, billing.PaymentStatusPartial, got.PaymentStatus)

	_, err = svc.ApplyPayment(ctx, purchase.ID.String(), purchasedomain.ApplyPaymentRequest{
		Amount: decimal.RequireFromString("70"),
		Method: "cash",
	})
	require.ErrorIs(t, err, purchasedomain.ErrOverpayment)

	got, err = svc.ApplyPayment(ctx, purchase.ID.String(), purchasedomain.ApplyPaymentRequest{
		Amount: decimal.RequireFromString("60"),
		Method: "cash",
	})
	require.NoError(t, err)
	require.Equal(t, billing.PaymentStatusPaid, got.PaymentStatus)
	require.True(t, got.AmountPaid.Equal(decimal.RequireFromString("100")))
}

func TestCancelOrderedOnly(t *testing.T) {
	svc, _, product := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, purchasedomain.CreatePurchaseRequest{
		SupplierName: "Agro Traders",
		Items: []purchasedomain.PurchaseItemInput{{
			ProductID: product.ID.String(),
			Quantity:  decimal.NewFromInt(1),
			UnitCost:  decimal.NewFromInt(50),
		}},
	})
	require.NoError(t, err)

	got, err := svc.Cancel(ctx, purchase.ID.String())
	require.NoError(t, err)
	require.Equal(t, purchasedomain.PurchaseStatusCancelled, got.Status)

	_, _, err = svc.Receive(ctx, purchase.ID.String())
	require.ErrorIs(t, err, purchasedomain.ErrNotOrdered)

	stock, err := svc.ledger.CurrentStock(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, stock.Equal(decimal.RequireFromString("5")))
}
