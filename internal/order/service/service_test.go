package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/masaladesk/masaladesk/internal/billing"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	inventoryservice "github.com/masaladesk/masaladesk/internal/inventory/service"
	invoicedomain "github.com/masaladesk/masaladesk/internal/invoice/domain"
	orderdomain "github.com/masaladesk/masaladesk/internal/order/domain"
	"github.com/masaladesk/masaladesk/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Service
	db      *gorm.DB
	node    *snowflake.Node
	paneer  catalogdomain.Product
	tikka   catalogdomain.MenuItem
	samosa  catalogdomain.Product
	sandbox context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&catalogdomain.Product{},
		&catalogdomain.MenuItem{},
		&catalogdomain.MenuItemIngredient{},
		&inventorydomain.Movement{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.InvoicePayment{},
		&orderdomain.KOT{},
		&orderdomain.KOTItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	ledger := inventoryservice.NewService(inventoryservice.ServiceParam{
		DB:    gdb,
		Log:   log,
		GenID: node,
	})
	engine := tax.NewEngine(tax.StaticProfileHolder(tax.Profile{
		SellerState: "MH",
		DefaultRate: 5,
		Label:       "GST",
		Enabled:     true,
	}))

	svc := &Service{
		db:     gdb,
		log:    log,
		genID:  node,
		tax:    engine,
		ledger: ledger,
	}

	f := &fixture{svc: svc, db: gdb, node: node, sandbox: context.Background()}
	f.paneer = catalogdomain.Product{
		ID:            node.Generate(),
		Name:          "Paneer",
		Unit:          "kg",
		UnitPrice:     decimal.RequireFromString("400"),
		TaxRate:       decimal.RequireFromString("5"),
		StockQuantity: decimal.RequireFromString("10"),
	}
	require.NoError(t, gdb.Create(&f.paneer).Error)

	f.samosa = catalogdomain.Product{
		ID:            node.Generate(),
		Name:          "Samosa",
		Unit:          "pcs",
		UnitPrice:     decimal.RequireFromString("40"),
		TaxRate:       decimal.RequireFromString("5"),
		StockQuantity: decimal.RequireFromString("50"),
	}
	require.NoError(t, gdb.Create(&f.samosa).Error)

	rate := decimal.RequireFromString("5")
	f.tikka = catalogdomain.MenuItem{
		ID:       node.Generate(),
		Name:     "Paneer Tikka",
		Price:    decimal.RequireFromString("250"),
		TaxRate:  &rate,
		IsActive: true,
		Ingredients: []catalogdomain.MenuItemIngredient{{
			ID:               node.Generate(),
			ProductID:        f.paneer.ID,
			QuantityRequired: decimal.RequireFromString("0.2"),
		}},
	}
	require.NoError(t, gdb.Create(&f.tikka).Error)

	return f
}

func (f *fixture) createOrder(t *testing.T, state string) *orderdomain.KOT {
	t.Helper()
	menuID := f.tikka.ID.String()
	productID := f.samosa.ID.String()
	kot, err := f.svc.Create(f.sandbox, orderdomain.CreateOrderRequest{
		OrderType:     orderdomain.OrderTypeDineIn,
		TableNo:       "T4",
		CustomerState: state,
		Items: []orderdomain.CreateOrderItemInput{
			{MenuItemID: &menuID, Quantity: decimal.RequireFromString("2")},
			{ProductID: &productID, Quantity: decimal.RequireFromString("1")},
		},
	})
	require.NoError(t, err)
	return kot
}

func (f *fixture) stock(t *testing.T, productID snowflake.ID) decimal.Decimal {
	t.Helper()
	stock, err := f.svc.ledger.CurrentStock(f.sandbox, productID.String())
	require.NoError(t, err)
	return stock
}

func TestCreateSnapshotsPrices(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "")

	require.Equal(t, orderdomain.OrderStatusPending, kot.Status)
	require.Contains(t, kot.OrderNo, "KOT-")
	require.Len(t, kot.Items, 2)
	require.True(t, kot.Items[0].UnitPrice.Equal(decimal.RequireFromString("250")))
	require.True(t, kot.Items[1].UnitPrice.Equal(decimal.RequireFromString("40")))

	// repricing the menu later must not touch the open order
	require.NoError(t, f.db.Model(&catalogdomain.MenuItem{}).
		Where("id = ?", f.tikka.ID).
		Update("price", decimal.RequireFromString("300")).Error)
	got, err := f.svc.Get(f.sandbox, kot.ID.String())
	require.NoError(t, err)
	require.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("250")))
}

func TestCreateAcceptsDocumentedOrderTypes(t *testing.T) {
	f := newFixture(t)
	productID := f.samosa.ID.String()

	for _, orderType := range []string{"dine_in", "take_away", "delivery"} {
		kot, err := f.svc.Create(f.sandbox, orderdomain.CreateOrderRequest{
			OrderType: orderdomain.OrderType(orderType),
			Items: []orderdomain.CreateOrderItemInput{
				{ProductID: &productID, Quantity: decimal.NewFromInt(1)},
			},
		})
		require.NoError(t, err, orderType)
		require.Equal(t, orderType, string(kot.OrderType))
	}

	_, err := f.svc.Create(f.sandbox, orderdomain.CreateOrderRequest{
		OrderType: orderdomain.OrderType("drive_through"),
		Items: []orderdomain.CreateOrderItemInput{
			{ProductID: &productID, Quantity: decimal.NewFromInt(1)},
		},
	})
	require.ErrorIs(t, err, orderdomain.ErrInvalidOrder)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	menuID := f.tikka.ID.String()
	productID := f.samosa.ID.String()

	_, err := f.svc.Create(f.sandbox, orderdomain.CreateOrderRequest{
		OrderType: orderdomain.OrderTypeDineIn,
	})
	require.ErrorIs(t, err, orderdomain.ErrInvalidOrder)

	_, err = f.svc.Create(f.sandbox, orderdomain.CreateOrderRequest{
		OrderType: orderdomain.OrderTypeDineIn,
		Items: []orderdomain.CreateOrderItemInput{
			{MenuItemID: &menuID, ProductID: &productID, Quantity: decimal.NewFromInt(1)},
		},
	})
	require.ErrorIs(t, err, billing.ErrInvalidLineItem)

	_, err = f.svc.Create(f.sandbox, orderdomain.CreateOrderRequest{
		OrderType: orderdomain.OrderTypeDineIn,
		Items: []orderdomain.CreateOrderItemInput{
			{MenuItemID: &menuID, Quantity: decimal.Zero},
		},
	})
	require.ErrorIs(t, err, billing.ErrInvalidLineItem)

	unknown := f.node.Generate().String()
	_, err = f.svc.Create(f.sandbox, orderdomain.CreateOrderRequest{
		OrderType: orderdomain.OrderTypeDineIn,
		Items: []orderdomain.CreateOrderItemInput{
			{MenuItemID: &unknown, Quantity: decimal.NewFromInt(1)},
		},
	})
	require.ErrorIs(t, err, billing.ErrInvalidLineItem)
}

func TestKitchenTransitions(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "")

	_, err := f.svc.Transition(f.sandbox, kot.ID.String(), orderdomain.OrderStatusReady)
	require.ErrorIs(t, err, orderdomain.ErrInvalidTransition)

	_, err = f.svc.Transition(f.sandbox, kot.ID.String(), orderdomain.OrderStatusServed)
	require.ErrorIs(t, err, orderdomain.ErrInvalidTransition)

	got, err := f.svc.Transition(f.sandbox, kot.ID.String(), orderdomain.OrderStatusPreparing)
	require.NoError(t, err)
	require.Equal(t, orderdomain.OrderStatusPreparing, got.Status)

	got, err = f.svc.Transition(f.sandbox, kot.ID.String(), orderdomain.OrderStatusReady)
	require.NoError(t, err)
	require.Equal(t, orderdomain.OrderStatusReady, got.Status)
}

func TestFinalizeIntraState(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "MH")

	result, err := f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		Discount:    decimal.RequireFromString("40"),
		PaymentMode: orderdomain.PaymentModeCash,
	})
	require.NoError(t, err)
	require.Equal(t, orderdomain.OrderStatusServed, result.Order.Status)

	invoice := result.Invoice
	require.Contains(t, invoice.InvoiceNo, "INV-")
	require.True(t, invoice.Subtotal.Equal(decimal.RequireFromString("540")))
	require.True(t, invoice.Discount.Equal(decimal.RequireFromString("40")))
	// 2x250 gross 500, share 37.04, taxable 462.96 -> 11.57 per half
	// 1x40 gross 40, share 2.96, taxable 37.04 -> 0.93 per half
	require.True(t, invoice.CGST.Equal(decimal.RequireFromString("12.50")), "cgst = %s", invoice.CGST)
	require.True(t, invoice.SGST.Equal(invoice.CGST))
	require.True(t, invoice.IGST.IsZero())
	require.True(t, invoice.Total.Equal(decimal.RequireFromString("525.00")), "total = %s", invoice.Total)
	require.Equal(t, billing.PaymentStatusPaid, invoice.PaymentStatus)
	require.True(t, invoice.AmountPaid.Equal(invoice.Total))
	require.Len(t, invoice.Payments, 1)
	require.True(t, invoice.Payments[0].Amount.Equal(invoice.Total))

	// 0.2 kg paneer per plate x2, one samosa sold directly
	require.True(t, f.stock(t, f.paneer.ID).Equal(decimal.RequireFromString("9.6")))
	require.True(t, f.stock(t, f.samosa.ID).Equal(decimal.RequireFromString("49")))
}

func TestFinalizeInterStateChargesIGST(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "KA")

	result, err := f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		PaymentMode: orderdomain.PaymentModeUPI,
	})
	require.NoError(t, err)

	invoice := result.Invoice
	require.True(t, invoice.CGST.IsZero())
	require.True(t, invoice.SGST.IsZero())
	// 5% on 500 and on 40
	require.True(t, invoice.IGST.Equal(decimal.RequireFromString("27.00")), "igst = %s", invoice.IGST)
	require.True(t, invoice.Total.Equal(decimal.RequireFromString("567.00")))
}

func TestFinalizeSplitPayment(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "MH")

	// total without discount: 540 + 27 tax = 567
	_, err := f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		PaymentMode: orderdomain.PaymentModeSplit,
		CashAmount:  decimal.RequireFromString("200"),
		UpiAmount:   decimal.RequireFromString("200"),
		CardAmount:  decimal.RequireFromString("100"),
	})
	require.ErrorIs(t, err, orderdomain.ErrSplitMismatch)

	got, err := f.svc.Get(f.sandbox, kot.ID.String())
	require.NoError(t, err)
	require.Equal(t, orderdomain.OrderStatusPending, got.Status)

	result, err := f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		PaymentMode: orderdomain.PaymentModeSplit,
		CashAmount:  decimal.RequireFromString("267"),
		UpiAmount:   decimal.RequireFromString("200"),
		CardAmount:  decimal.RequireFromString("100"),
	})
	require.NoError(t, err)
	require.True(t, result.Order.CashAmount.Equal(decimal.RequireFromString("267")))
	require.Len(t, result.Invoice.Payments, 3)
}

func TestFinalizeInvalidDiscount(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "MH")

	_, err := f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		Discount:    decimal.RequireFromString("1000"),
		PaymentMode: orderdomain.PaymentModeCash,
	})
	require.ErrorIs(t, err, billing.ErrInvalidDiscount)

	got, err := f.svc.Get(f.sandbox, kot.ID.String())
	require.NoError(t, err)
	require.Equal(t, orderdomain.OrderStatusPending, got.Status)
	require.True(t, f.stock(t, f.paneer.ID).Equal(decimal.RequireFromString("10")))
}

func TestFinalizeExactlyOnceUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "MH")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
				PaymentMode: orderdomain.PaymentModeCash,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, orderdomain.ErrAlreadyFinalized)
		}
	}
	require.Equal(t, 1, succeeded)

	var invoices []invoicedomain.Invoice
	require.NoError(t, f.db.Where("kot_id = ?", kot.ID).Find(&invoices).Error)
	require.Len(t, invoices, 1)

	// movements recorded exactly once
	require.True(t, f.stock(t, f.paneer.ID).Equal(decimal.RequireFromString("9.6")))
}

func TestCancelPendingHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "MH")

	got, err := f.svc.Cancel(f.sandbox, kot.ID.String())
	require.NoError(t, err)
	require.Equal(t, orderdomain.OrderStatusCancelled, got.Status)

	require.True(t, f.stock(t, f.paneer.ID).Equal(decimal.RequireFromString("10")))
	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("kot_id = ?", kot.ID).Count(&count).Error)
	require.Zero(t, count)

	_, err = f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		PaymentMode: orderdomain.PaymentModeCash,
	})
	require.ErrorIs(t, err, orderdomain.ErrInvalidTransition)
}

func TestFinalizeServedAgainIsAlreadyFinalized(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "MH")

	_, err := f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		PaymentMode: orderdomain.PaymentModeCash,
	})
	require.NoError(t, err)

	_, err = f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		PaymentMode: orderdomain.PaymentModeCash,
	})
	require.ErrorIs(t, err, orderdomain.ErrAlreadyFinalized)
}

func TestCancelledOrderRejectsKitchenMoves(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "")

	_, err := f.svc.Cancel(f.sandbox, kot.ID.String())
	require.NoError(t, err)

	_, err = f.svc.Transition(f.sandbox, kot.ID.String(), orderdomain.OrderStatusPreparing)
	require.ErrorIs(t, err, orderdomain.ErrInvalidTransition)
}

func TestReverseServedRestoresStockAndCancelsInvoice(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "MH")

	_, err := f.svc.ReverseServed(f.sandbox, kot.ID.String())
	require.ErrorIs(t, err, orderdomain.ErrNotServed)

	result, err := f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		PaymentMode: orderdomain.PaymentModeCard,
	})
	require.NoError(t, err)

	got, err := f.svc.ReverseServed(f.sandbox, kot.ID.String())
	require.NoError(t, err)
	require.Equal(t, orderdomain.OrderStatusCancelled, got.Status)

	require.True(t, f.stock(t, f.paneer.ID).Equal(decimal.RequireFromString("10")))
	require.True(t, f.stock(t, f.samosa.ID).Equal(decimal.RequireFromString("50")))

	var invoice invoicedomain.Invoice
	require.NoError(t, f.db.First(&invoice, "id = ?", result.Invoice.ID).Error)
	require.Equal(t, invoicedomain.InvoiceStatusCancelled, invoice.Status)
}

func TestDeleteCascadesInvoiceRows(t *testing.T) {
	f := newFixture(t)
	kot := f.createOrder(t, "MH")

	result, err := f.svc.Finalize(f.sandbox, kot.ID.String(), orderdomain.FinalizeRequest{
		PaymentMode: orderdomain.PaymentModeCash,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.sandbox, kot.ID.String()))

	for _, probe := range []struct {
		model any
		where string
		arg   any
	}{
		{&orderdomain.KOT{}, "id = ?", kot.ID},
		{&orderdomain.KOTItem{}, "kot_id = ?", kot.ID},
		{&invoicedomain.Invoice{}, "id = ?", result.Invoice.ID},
		{&invoicedomain.InvoiceItem{}, "invoice_id = ?", result.Invoice.ID},
		{&invoicedomain.InvoicePayment{}, "invoice_id = ?", result.Invoice.ID},
	} {
		var count int64
		require.NoError(t, f.db.Model(probe.model).Where(probe.where, probe.arg).Count(&count).Error)
		require.Zero(t, count, "%T rows remain", probe.model)
	}

	// the movement log is audit history and survives the delete
	var movements int64
	require.NoError(t, f.db.Model(&inventorydomain.Movement{}).
		Where("reference_type = ? AND reference_id = ?", inventorydomain.ReferenceOrder, kot.ID).
		Count(&movements).Error)
	require.NotZero(t, movements)
}
