package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) (*Service, *gorm.DB) {
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
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := &Service{
		db:    gdb,
		log:   zap.NewNop(),
		genID: node,
	}
	return svc, gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB, node *snowflake.Node, stock, reorder string) catalogdomain.Product {
	t.Helper()
	product := catalogdomain.Product{
		ID:            node.Generate(),
		Name:          "Paneer",
		Unit:          "kg",
		StockQuantity: decimal.RequireFromString(stock),
		ReorderLevel:  decimal.RequireFromString(reorder),
	}
	require.NoError(t, gdb.Create(&product).Error)
	return product
}

func TestRecordUpdatesCachedStock(t *testing.T) {
	svc, gdb := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, svc.genID, "10", "2")

	orderID := svc.genID.Generate()
	warnings, err := svc.Record(ctx, nil,
		inventorydomain.SaleMovement(product.ID, decimal.RequireFromString("3"), orderID),
	)
	require.NoError(t, err)
	require.Empty(t, warnings)

	stock, err := svc.CurrentStock(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, stock.Equal(decimal.RequireFromString("7")), "stock = %s", stock)

	movements, err := svc.Movements(ctx, product.ID.String())
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.True(t, movements[0].Quantity.Equal(decimal.RequireFromString("-3")))
}

func TestCachedStockEqualsMovementSum(t *testing.T) {
	svc, gdb := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, svc.genID, "0", "0")

	purchaseID := svc.genID.Generate()
	orderID := svc.genID.Generate()

	_, err := svc.Record(ctx, nil,
		inventorydomain.PurchaseMovement(product.ID, decimal.RequireFromString("25.5"), purchaseID),
	)
	require.NoError(t, err)
	_, err = svc.Record(ctx, nil,
		inventorydomain.ConsumptionMovement(product.ID, decimal.RequireFromString("4.25"), orderID),
		inventorydomain.SaleMovement(product.ID, decimal.RequireFromString("1"), orderID),
	)
	require.NoError(t, err)
	_, _, err = svc.Adjust(ctx, product.ID.String(), decimal.RequireFromString("-0.75"))
	require.NoError(t, err)

	movements, err := svc.Movements(ctx, product.ID.String())
	require.NoError(t, err)
	sum := decimal.Zero
	for _, m := range movements {
		sum = sum.Add(m.Quantity)
	}

	stock, err := svc.CurrentStock(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, stock.Equal(sum), "cache %s vs ledger %s", stock, sum)
	require.True(t, stock.Equal(decimal.RequireFromString("19.5")))
	require.NoError(t, svc.Audit(ctx, product.ID.String()))
}

func TestRecordRejectsInvalidMovements(t *testing.T) {
	svc, gdb := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, svc.genID, "5", "0")

	_, err := svc.Record(ctx, nil, &inventorydomain.Movement{
		ProductID: product.ID,
		Type:      inventorydomain.MovementSale,
		Quantity:  decimal.Zero,
	})
	require.ErrorIs(t, err, inventorydomain.ErrInvalidMovement)

	// sale without a reference
	_, err = svc.Record(ctx, nil, &inventorydomain.Movement{
		ProductID: product.ID,
		Type:      inventorydomain.MovementSale,
		Quantity:  decimal.RequireFromString("-1"),
	})
	require.ErrorIs(t, err, inventorydomain.ErrUnknownReference)

	_, err = svc.Record(ctx, nil,
		inventorydomain.SaleMovement(svc.genID.Generate(), decimal.NewFromInt(1), svc.genID.Generate()),
	)
	require.ErrorIs(t, err, inventorydomain.ErrNotFound)

	stock, err := svc.CurrentStock(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, stock.Equal(decimal.RequireFromString("5")))
}

func TestOversellIsAllowedWithWarning(t *testing.T) {
	svc, gdb := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, svc.genID, "2", "1")

	warnings, err := svc.Record(ctx, nil,
		inventorydomain.SaleMovement(product.ID, decimal.RequireFromString("5"), svc.genID.Generate()),
	)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.True(t, warnings[0].Stock.Equal(decimal.RequireFromString("-3")))

	stock, err := svc.CurrentStock(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, stock.IsNegative())
}

func TestReverseNetsReferenceToZero(t *testing.T) {
	svc, gdb := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, svc.genID, "10", "0")

	orderID := svc.genID.Generate()
	_, err := svc.Record(ctx, nil,
		inventorydomain.SaleMovement(product.ID, decimal.RequireFromString("2"), orderID),
		inventorydomain.ConsumptionMovement(product.ID, decimal.RequireFromString("1.5"), orderID),
	)
	require.NoError(t, err)

	ref := inventorydomain.Reference{Type: inventorydomain.ReferenceOrder, ID: orderID}
	reversals, err := svc.Reverse(ctx, nil, ref)
	require.NoError(t, err)
	require.Len(t, reversals, 1)
	require.True(t, reversals[0].Quantity.Equal(decimal.RequireFromString("3.5")))

	stock, err := svc.CurrentStock(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, stock.Equal(decimal.RequireFromString("10")))

	// a second reversal finds a net of zero and does nothing
	again, err := svc.Reverse(ctx, nil, ref)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestAuditDetectsAndRebuildRepairsDrift(t *testing.T) {
	svc, gdb := newTestLedger(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, svc.genID, "0", "0")

	_, err := svc.Record(ctx, nil,
		inventorydomain.PurchaseMovement(product.ID, decimal.RequireFromString("8"), svc.genID.Generate()),
	)
	require.NoError(t, err)

	// corrupt the cache behind the ledger's back
	require.NoError(t, gdb.Model(&catalogdomain.Product{}).
		Where("id = ?", product.ID).
		UpdateColumn("stock_quantity", decimal.RequireFromString("99")).Error)

	require.ErrorIs(t, svc.Audit(ctx, product.ID.String()), inventorydomain.ErrCorruptionDetected)

	rebuilt, err := svc.Rebuild(ctx, product.ID.String())
	require.NoError(t, err)
	require.True(t, rebuilt.Equal(decimal.RequireFromString("8")))
	require.NoError(t, svc.Audit(ctx, product.ID.String()))
}
