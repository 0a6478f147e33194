package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/masaladesk/masaladesk/internal/billing"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	"github.com/masaladesk/masaladesk/internal/observability/metrics"
	purchasedomain "github.com/masaladesk/masaladesk/internal/purchase/domain"
	"github.com/masaladesk/masaladesk/pkg/db"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Ledger  inventorydomain.Ledger
	Catalog catalogdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	ledger  inventorydomain.Ledger
	catalog catalogdomain.Service
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) purchasedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("purchase.service"),
		genID:   p.GenID,
		ledger:  p.Ledger,
		catalog: p.Catalog,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req purchasedomain.CreatePurchaseRequest) (*purchasedomain.Purchase, error) {
	if strings.TrimSpace(req.SupplierName) == "" || len(req.Items) == 0 {
		return nil, purchasedomain.ErrInvalidPurchase
	}

	purchase := &purchasedomain.Purchase{
		ID:            s.genID.Generate(),
		PurchaseNo:    "PUR-" + ulid.Make().String(),
		SupplierName:  strings.TrimSpace(req.SupplierName),
		SupplierPhone: req.SupplierPhone,
		Status:        purchasedomain.PurchaseStatusOrdered,
		Total:         decimal.Zero,
		AmountPaid:    decimal.Zero,
		PaymentStatus: billing.PaymentStatusUnpaid,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, input := range req.Items {
			if !input.Quantity.IsPositive() || input.UnitCost.IsNegative() {
				return billing.ErrInvalidLineItem
			}
			productID, err := snowflake.ParseString(input.ProductID)
			if err != nil {
				return billing.ErrInvalidLineItem
			}
			var product catalogdomain.Product
			if err := tx.First(&product, "id = ?", productID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return billing.ErrInvalidLineItem
				}
				return err
			}

			lineTotal := billing.Round2(input.Quantity.Mul(input.UnitCost))
			purchase.Items = append(purchase.Items, purchasedomain.PurchaseItem{
				ID:         s.genID.Generate(),
				PurchaseID: purchase.ID,
				ProductID:  productID,
				Quantity:   input.Quantity,
				UnitCost:   input.UnitCost,
				LineTotal:  lineTotal,
			})
			purchase.Total = purchase.Total.Add(lineTotal)
		}
		return tx.Create(purchase).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("purchase created",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("purchase_no", purchase.PurchaseNo),
		zap.String("supplier", purchase.SupplierName),
		zap.String("total", purchase.Total.String()),
	)
	return purchase, nil
}

func (s *Service) Get(ctx context.Context, id string) (*purchasedomain.Purchase, error) {
	purchaseID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, purchasedomain.ErrNotFound
	}

	var purchase purchasedomain.Purchase
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&purchase, "id = ?", purchaseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, purchasedomain.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (s *Service) List(ctx context.Context, req purchasedomain.ListPurchaseRequest) ([]purchasedomain.Purchase, error) {
	query := s.db.WithContext(ctx).Model(&purchasedomain.Purchase{})
	if req.Status != nil {
		query = query.Where("status = ?", *req.Status)
	}

	var purchases []purchasedomain.Purchase
	if err := query.Order("created_at desc, id desc").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *Service) Receive(ctx context.Context, id string) (*purchasedomain.Purchase, []inventorydomain.StockWarning, error) {
	purchaseID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, nil, purchasedomain.ErrNotFound
	}

	var purchase purchasedomain.Purchase
	var warnings []inventorydomain.StockWarning
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			First(&purchase, "id = ?", purchaseID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return purchasedomain.ErrNotFound
			}
			return db.ClassifyErr(err)
		}
		if purchase.Status != purchasedomain.PurchaseStatusOrdered {
			return purchasedomain.ErrNotOrdered
		}

		now := time.Now().UTC()
		guarded := tx.Model(&purchasedomain.Purchase{}).
			Where("id = ? AND status = ?", purchase.ID, purchasedomain.PurchaseStatusOrdered).
			Updates(map[string]any{
				"status":      purchasedomain.PurchaseStatusReceived,
				"received_at": now,
				"updated_at":  now,
			})
		if guarded.Error != nil {
			return guarded.Error
		}
		if guarded.RowsAffected == 0 {
			return purchasedomain.ErrNotOrdered
		}

		movements := make([]*inventorydomain.Movement, 0, len(purchase.Items))
		for _, item := range purchase.Items {
			movements = append(movements, inventorydomain.PurchaseMovement(item.ProductID, item.Quantity, purchase.ID))
		}
		var recErr error
		warnings, recErr = s.ledger.Record(ctx, tx, movements...)
		if recErr != nil {
			return recErr
		}

		purchase.Status = purchasedomain.PurchaseStatusReceived
		purchase.ReceivedAt = &now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("purchase received",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("purchase_no", purchase.PurchaseNo),
		zap.Int("lines", len(purchase.Items)),
	)
	return &purchase, warnings, nil
}

func (s *Service) ApplyPayment(ctx context.Context, id string, req purchasedomain.ApplyPaymentRequest) (*purchasedomain.Purchase, error) {
	purchaseID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, purchasedomain.ErrNotFound
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, purchasedomain.ErrInvalidPayment
	}

	method := strings.ToLower(strings.TrimSpace(req.Method))
	ok, err := s.catalog.IsValidPaymentMethod(ctx, method)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, purchasedomain.ErrInvalidPayment
	}

	var purchase purchasedomain.Purchase
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&purchase, "id = ?", purchaseID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return purchasedomain.ErrNotFound
			}
			return db.ClassifyErr(err)
		}
		if purchase.Status == purchasedomain.PurchaseStatusCancelled {
			return purchasedomain.ErrInvalidPayment
		}

		amount := billing.Round2(req.Amount)
		if billing.ExceedsOwed(purchase.AmountPaid, amount, purchase.Total) {
			s.metrics.OverpaymentRejected(ctx, "purchase")
			return purchasedomain.ErrOverpayment
		}

		payment := purchasedomain.PurchasePayment{
			ID:          s.genID.Generate(),
			PurchaseID:  purchase.ID,
			Amount:      amount,
			Method:      method,
			ReferenceNo: req.ReferenceNo,
			PaidAt:      time.Now().UTC(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		purchase.AmountPaid = purchase.AmountPaid.Add(amount)
		purchase.PaymentStatus = billing.DerivePaymentStatus(purchase.AmountPaid, purchase.Total)
		return tx.Model(&purchasedomain.Purchase{}).
			Where("id = ?", purchase.ID).
			Updates(map[string]any{
				"amount_paid":    purchase.AmountPaid,
				"payment_status": purchase.PaymentStatus,
				"updated_at":     time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentApplied(ctx, "purchase", method)
	return &purchase, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*purchasedomain.Purchase, error) {
	purchaseID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, purchasedomain.ErrNotFound
	}

	var purchase purchasedomain.Purchase
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&purchase, "id = ?", purchaseID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return purchasedomain.ErrNotFound
			}
			return db.ClassifyErr(err)
		}
		if purchase.Status != purchasedomain.PurchaseStatusOrdered {
			return purchasedomain.ErrNotOrdered
		}

		result := tx.Model(&purchasedomain.Purchase{}).
			Where("id = ? AND status = ?", purchase.ID, purchasedomain.PurchaseStatusOrdered).
			Updates(map[string]any{"status": purchasedomain.PurchaseStatusCancelled, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return purchasedomain.ErrNotOrdered
		}
		purchase.Status = purchasedomain.PurchaseStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}
