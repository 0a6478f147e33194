package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/masaladesk/masaladesk/internal/billing"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	invoicedomain "github.com/masaladesk/masaladesk/internal/invoice/domain"
	"github.com/masaladesk/masaladesk/internal/locking"
	"github.com/masaladesk/masaladesk/internal/observability/metrics"
	orderdomain "github.com/masaladesk/masaladesk/internal/order/domain"
	"github.com/masaladesk/masaladesk/internal/tax"
	"github.com/masaladesk/masaladesk/pkg/db"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const finalizeLockTTL = 10 * time.Second

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Tax     *tax.Engine
	Ledger  inventorydomain.Ledger
	Locker  *locking.Locker  `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	tax     *tax.Engine
	ledger  inventorydomain.Ledger
	locker  *locking.Locker
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) orderdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		tax:     p.Tax,
		ledger:  p.Ledger,
		locker:  p.Locker,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req orderdomain.CreateOrderRequest) (*orderdomain.KOT, error) {
	if !req.OrderType.Valid() || len(req.Items) == 0 {
		return nil, orderdomain.ErrInvalidOrder
	}

	kot := &orderdomain.KOT{
		ID:            s.genID.Generate(),
		OrderNo:       "KOT-" + ulid.Make().String(),
		OrderType:     req.OrderType,
		Status:        orderdomain.OrderStatusPending,
		TableNo:       req.TableNo,
		CustomerName:  req.CustomerName,
		CustomerState: req.CustomerState,
		Discount:      decimal.Zero,
		CashAmount:    decimal.Zero,
		UpiAmount:     decimal.Zero,
		CardAmount:    decimal.Zero,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, input := range req.Items {
			item, err := s.priceItem(ctx, tx, kot.ID, input)
			if err != nil {
				return err
			}
			kot.Items = append(kot.Items, *item)
		}
		return tx.Create(kot).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", kot.ID.String()),
		zap.String("order_no", kot.OrderNo),
		zap.String("order_type", string(kot.OrderType)),
		zap.Int("items", len(kot.Items)),
	)
	return kot, nil
}

// priceItem resolves the catalog entry and freezes its price and tax rate
// onto the line.
func (s *Service) priceItem(ctx context.Context, tx *gorm.DB, kotID snowflake.ID, input orderdomain.CreateOrderItemInput) (*orderdomain.KOTItem, error) {
	if !input.Quantity.IsPositive() {
		return nil, billing.ErrInvalidLineItem
	}
	if (input.MenuItemID == nil) == (input.ProductID == nil) {
		return nil, billing.ErrInvalidLineItem
	}

	item := &orderdomain.KOTItem{
		ID:       s.genID.Generate(),
		KotID:    kotID,
		Quantity: input.Quantity,
		Notes:    input.Notes,
	}

	if input.MenuItemID != nil {
		id, err := snowflake.ParseString(*input.MenuItemID)
		if err != nil {
			return nil, billing.ErrInvalidLineItem
		}
		var menuItem catalogdomain.MenuItem
		if err := tx.WithContext(ctx).First(&menuItem, "id = ? AND is_active = ?", id, true).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, billing.ErrInvalidLineItem
			}
			return nil, err
		}
		item.MenuItemID = &menuItem.ID
		item.Name = menuItem.Name
		item.UnitPrice = menuItem.Price
		if menuItem.TaxRate != nil {
			item.TaxRate = *menuItem.TaxRate
		} else {
			item.TaxRate = s.tax.DefaultRate()
		}
		return item, nil
	}

	id, err := snowflake.ParseString(*input.ProductID)
	if err != nil {
		return nil, billing.ErrInvalidLineItem
	}
	var product catalogdomain.Product
	if err := tx.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, billing.ErrInvalidLineItem
		}
		return nil, err
	}
	item.ProductID = &product.ID
	item.Name = product.Name
	item.UnitPrice = product.UnitPrice
	item.TaxRate = product.TaxRate
	return item, nil
}

func (s *Service) Get(ctx context.Context, id string) (*orderdomain.KOT, error) {
	kotID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, orderdomain.ErrNotFound
	}

	var kot orderdomain.KOT
	if err := s.db.WithContext(ctx).Preload("Items").First(&kot, "id = ?", kotID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, orderdomain.ErrNotFound
		}
		return nil, err
	}
	return &kot, nil
}

func (s *Service) List(ctx context.Context, req orderdomain.ListOrderRequest) ([]orderdomain.KOT, error) {
	query := s.db.WithContext(ctx).Model(&orderdomain.KOT{})
	if req.Status != nil {
		query = query.Where("status = ?", *req.Status)
	}
	if req.OrderType != nil {
		query = query.Where("order_type = ?", *req.OrderType)
	}

	var kots []orderdomain.KOT
	if err := query.Preload("Items").Order("created_at desc, id desc").Find(&kots).Error; err != nil {
		return nil, err
	}
	return kots, nil
}

func (s *Service) Transition(ctx context.Context, id string, to orderdomain.OrderStatus) (*orderdomain.KOT, error) {
	if to == orderdomain.OrderStatusServed {
		return nil, orderdomain.ErrInvalidTransition
	}
	kotID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, orderdomain.ErrNotFound
	}

	var kot orderdomain.KOT
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&kot, "id = ?", kotID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return orderdomain.ErrNotFound
			}
			return db.ClassifyErr(err)
		}
		if kot.Status == orderdomain.OrderStatusServed {
			return orderdomain.ErrAlreadyFinalized
		}
		if !orderdomain.CanTransition(kot.Status, to) {
			return orderdomain.ErrInvalidTransition
		}

		result := tx.Model(&orderdomain.KOT{}).
			Where("id = ? AND status = ?", kot.ID, kot.Status).
			Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return db.ErrContention
		}
		kot.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order transitioned",
		zap.String("order_id", kot.ID.String()),
		zap.String("status", string(kot.Status)),
	)
	return &kot, nil
}

func (s *Service) Finalize(ctx context.Context, id string, req orderdomain.FinalizeRequest) (*orderdomain.FinalizeResult, error) {
	kotID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, orderdomain.ErrNotFound
	}
	if !req.PaymentMode.Valid() {
		return nil, orderdomain.ErrInvalidOrder
	}

	release, ok, err := s.locker.TryLock(ctx, "order:finalize:"+id, finalizeLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, db.ErrContention
	}
	defer release()

	var result orderdomain.FinalizeResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var kot orderdomain.KOT
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			First(&kot, "id = ?", kotID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return orderdomain.ErrNotFound
			}
			return db.ClassifyErr(err)
		}
		if kot.Status == orderdomain.OrderStatusCancelled {
			return orderdomain.ErrInvalidTransition
		}
		if kot.Status == orderdomain.OrderStatusServed {
			return orderdomain.ErrAlreadyFinalized
		}

		lines := make([]billing.LineInput, 0, len(kot.Items))
		for _, item := range kot.Items {
			lines = append(lines, billing.LineInput{
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				TaxRate:   item.TaxRate,
			})
		}
		totals, err := billing.ComputeTotals(lines, billing.Round2(req.Discount))
		if err != nil {
			return err
		}

		breakup := tax.Breakup{}
		for _, line := range totals.Lines {
			breakup = breakup.Add(s.tax.ForLine(line.Taxable, line.TaxRate, kot.CustomerState))
		}
		total := totals.Subtotal.Sub(totals.Discount).Add(breakup.Total())

		tender, err := resolveTender(req, total)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		guarded := tx.Model(&orderdomain.KOT{}).
			Where("id = ? AND status IN ?", kot.ID, orderdomain.OpenStatuses).
			Updates(map[string]any{
				"status":          orderdomain.OrderStatusServed,
				"discount":        totals.Discount,
				"discount_reason": req.DiscountReason,
				"payment_mode":    req.PaymentMode,
				"cash_amount":     tender.cash,
				"upi_amount":      tender.upi,
				"card_amount":     tender.card,
				"updated_at":      now,
			})
		if guarded.Error != nil {
			return db.ClassifyErr(guarded.Error)
		}
		if guarded.RowsAffected == 0 {
			var current orderdomain.KOT
			if err := tx.Select("status").First(&current, "id = ?", kot.ID).Error; err != nil {
				return db.ClassifyErr(err)
			}
			if current.Status == orderdomain.OrderStatusCancelled {
				return orderdomain.ErrInvalidTransition
			}
			return orderdomain.ErrAlreadyFinalized
		}

		invoice, err := s.writeInvoice(ctx, tx, &kot, totals, breakup, total, tender, req.DueDate, now)
		if err != nil {
			return err
		}

		movements, err := s.movementsFor(ctx, tx, &kot)
		if err != nil {
			return err
		}
		warnings, err := s.ledger.Record(ctx, tx, movements...)
		if err != nil {
			return err
		}

		kot.Status = orderdomain.OrderStatusServed
		kot.Discount = totals.Discount
		kot.DiscountReason = req.DiscountReason
		kot.PaymentMode = req.PaymentMode
		kot.CashAmount = tender.cash
		kot.UpiAmount = tender.upi
		kot.CardAmount = tender.card
		result = orderdomain.FinalizeResult{Order: &kot, Invoice: invoice, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderFinalized(ctx, string(result.Order.OrderType))
	s.metrics.PaymentApplied(ctx, "order", string(req.PaymentMode))
	s.log.Info("order finalized",
		zap.String("order_id", result.Order.ID.String()),
		zap.String("invoice_no", result.Invoice.InvoiceNo),
		zap.String("total", result.Invoice.Total.String()),
		zap.String("payment_mode", string(req.PaymentMode)),
		zap.Int("warnings", len(result.Warnings)),
	)
	return &result, nil
}

type tenderSplit struct {
	cash decimal.Decimal
	upi  decimal.Decimal
	card decimal.Decimal
}

// resolveTender validates how the bill is settled. A single-mode payment
// carries the whole total; split amounts must sum to it within the rounding
// tolerance.
func resolveTender(req orderdomain.FinalizeRequest, total decimal.Decimal) (tenderSplit, error) {
	zero := decimal.Zero
	switch req.PaymentMode {
	case orderdomain.PaymentModeCash:
		return tenderSplit{cash: total, upi: zero, card: zero}, nil
	case orderdomain.PaymentModeUPI:
		return tenderSplit{cash: zero, upi: total, card: zero}, nil
	case orderdomain.PaymentModeCard:
		return tenderSplit{cash: zero, upi: zero, card: total}, nil
	case orderdomain.PaymentModeSplit:
		if req.CashAmount.IsNegative() || req.UpiAmount.IsNegative() || req.CardAmount.IsNegative() {
			return tenderSplit{}, orderdomain.ErrSplitMismatch
		}
		sum := req.CashAmount.Add(req.UpiAmount).Add(req.CardAmount)
		if !billing.WithinEpsilon(sum, total) {
			return tenderSplit{}, orderdomain.ErrSplitMismatch
		}
		return tenderSplit{cash: req.CashAmount, upi: req.UpiAmount, card: req.CardAmount}, nil
	}
	return tenderSplit{}, orderdomain.ErrInvalidOrder
}

func (s *Service) writeInvoice(ctx context.Context, tx *gorm.DB, kot *orderdomain.KOT, totals billing.Totals, breakup tax.Breakup, total decimal.Decimal, tender tenderSplit, dueDate *time.Time, now time.Time) (*invoicedomain.Invoice, error) {
	invoice := &invoicedomain.Invoice{
		ID:             s.genID.Generate(),
		InvoiceNo:      "INV-" + ulid.Make().String(),
		KotID:          kot.ID,
		CustomerName:   kot.CustomerName,
		CustomerState:  kot.CustomerState,
		Status:         invoicedomain.InvoiceStatusPaid,
		PaymentStatus:  billing.PaymentStatusPaid,
		Subtotal:       totals.Subtotal,
		Discount:       totals.Discount,
		DiscountReason: kot.DiscountReason,
		CGST:           breakup.CGST,
		SGST:           breakup.SGST,
		IGST:           breakup.IGST,
		Total:          total,
		AmountPaid:     total,
		TaxLabel:       s.tax.Label(),
		DueDate:        dueDate,
		Metadata: datatypes.JSONMap{
			"order_no":   kot.OrderNo,
			"order_type": string(kot.OrderType),
			"table_no":   kot.TableNo,
		},
	}
	if err := tx.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, db.ClassifyErr(err)
	}

	for i, item := range kot.Items {
		line := invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			InvoiceID:   invoice.ID,
			MenuItemID:  item.MenuItemID,
			ProductID:   item.ProductID,
			Description: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			LineTotal:   totals.Lines[i].Gross,
		}
		if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
			return nil, err
		}
		invoice.Items = append(invoice.Items, line)
	}

	for method, amount := range map[string]decimal.Decimal{
		"cash": tender.cash,
		"upi":  tender.upi,
		"card": tender.card,
	} {
		if amount.IsZero() {
			continue
		}
		payment := invoicedomain.InvoicePayment{
			ID:        s.genID.Generate(),
			InvoiceID: invoice.ID,
			Amount:    amount,
			Method:    method,
			PaidAt:    now,
		}
		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			return nil, err
		}
		invoice.Payments = append(invoice.Payments, payment)
	}

	return invoice, nil
}

// movementsFor expands the order into stock movements: direct product lines
// sell one to one, menu lines consume their recipe ingredients.
func (s *Service) movementsFor(ctx context.Context, tx *gorm.DB, kot *orderdomain.KOT) ([]*inventorydomain.Movement, error) {
	var movements []*inventorydomain.Movement
	for _, item := range kot.Items {
		if item.ProductID != nil {
			movements = append(movements, inventorydomain.SaleMovement(*item.ProductID, item.Quantity, kot.ID))
			continue
		}
		if item.MenuItemID == nil {
			continue
		}

		var ingredients []catalogdomain.MenuItemIngredient
		if err := tx.WithContext(ctx).
			Where("menu_item_id = ?", *item.MenuItemID).
			Find(&ingredients).Error; err != nil {
			return nil, err
		}
		for _, ingredient := range ingredients {
			movements = append(movements, inventorydomain.ConsumptionMovement(
				ingredient.ProductID,
				ingredient.QuantityRequired.Mul(item.Quantity),
				kot.ID,
			))
		}
	}
	return movements, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*orderdomain.KOT, error) {
	return s.Transition(ctx, id, orderdomain.OrderStatusCancelled)
}

func (s *Service) ReverseServed(ctx context.Context, id string) (*orderdomain.KOT, error) {
	kotID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, orderdomain.ErrNotFound
	}

	var kot orderdomain.KOT
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&kot, "id = ?", kotID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return orderdomain.ErrNotFound
			}
			return db.ClassifyErr(err)
		}
		if kot.Status != orderdomain.OrderStatusServed {
			return orderdomain.ErrNotServed
		}

		now := time.Now().UTC()
		guarded := tx.Model(&orderdomain.KOT{}).
			Where("id = ? AND status = ?", kot.ID, orderdomain.OrderStatusServed).
			Updates(map[string]any{"status": orderdomain.OrderStatusCancelled, "updated_at": now})
		if guarded.Error != nil {
			return guarded.Error
		}
		if guarded.RowsAffected == 0 {
			return db.ErrContention
		}

		if err := tx.Model(&invoicedomain.Invoice{}).
			Where("kot_id = ?", kot.ID).
			Updates(map[string]any{"status": invoicedomain.InvoiceStatusCancelled, "updated_at": now}).Error; err != nil {
			return err
		}

		ref := inventorydomain.Reference{Type: inventorydomain.ReferenceOrder, ID: kot.ID}
		if _, err := s.ledger.Reverse(ctx, tx, ref); err != nil {
			return err
		}
		kot.Status = orderdomain.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("served order reversed",
		zap.String("order_id", kot.ID.String()),
		zap.String("order_no", kot.OrderNo),
	)
	return &kot, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	kotID, err := snowflake.ParseString(id)
	if err != nil {
		return orderdomain.ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var kot orderdomain.KOT
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&kot, "id = ?", kotID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return orderdomain.ErrNotFound
			}
			return db.ClassifyErr(err)
		}

		var invoice invoicedomain.Invoice
		found := true
		if err := tx.First(&invoice, "kot_id = ?", kot.ID).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			found = false
		}
		if found {
			if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&invoicedomain.InvoicePayment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&invoicedomain.Invoice{}, "id = ?", invoice.ID).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("kot_id = ?", kot.ID).Delete(&orderdomain.KOTItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&orderdomain.KOT{}, "id = ?", kot.ID).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("order deleted", zap.String("order_id", kotID.String()))
	return nil
}
