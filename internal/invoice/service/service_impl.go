package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/masaladesk/masaladesk/internal/billing"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	invoicedomain "github.com/masaladesk/masaladesk/internal/invoice/domain"
	"github.com/masaladesk/masaladesk/internal/observability/metrics"
	"github.com/masaladesk/masaladesk/pkg/db"
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
	Catalog catalogdomain.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	catalog catalogdomain.Service
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		genID:   p.GenID,
		catalog: p.Catalog,
		metrics: p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	query := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{})
	if req.Status != nil {
		query = query.Where("status = ?", *req.Status)
	}
	if req.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *req.PaymentStatus)
	}

	var invoices []invoicedomain.Invoice
	if err := query.Order("created_at desc, id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Service) Get(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, invoicedomain.ErrNotFound
	}

	var invoice invoicedomain.Invoice
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&invoice, "id = ?", invoiceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, invoicedomain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) ApplyPayment(ctx context.Context, invoiceID string, req invoicedomain.ApplyPaymentRequest) (*invoicedomain.Invoice, error) {
	id, err := snowflake.ParseString(invoiceID)
	if err != nil {
		return nil, invoicedomain.ErrNotFound
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, invoicedomain.ErrInvalidPayment
	}

	method := strings.ToLower(strings.TrimSpace(req.Method))
	ok, err := s.catalog.IsValidPaymentMethod(ctx, method)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invoicedomain.ErrInvalidPayment
	}

	var invoice invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&invoice, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return invoicedomain.ErrNotFound
			}
			return db.ClassifyErr(err)
		}
		if invoice.Status == invoicedomain.InvoiceStatusCancelled {
			return invoicedomain.ErrCancelled
		}

		amount := billing.Round2(req.Amount)
		if billing.ExceedsOwed(invoice.AmountPaid, amount, invoice.Total) {
			s.metrics.OverpaymentRejected(ctx, "invoice")
			return invoicedomain.ErrOverpayment
		}

		payment := invoicedomain.InvoicePayment{
			ID:          s.genID.Generate(),
			InvoiceID:   invoice.ID,
			Amount:      amount,
			Method:      method,
			ReferenceNo: req.ReferenceNo,
			PaidAt:      time.Now().UTC(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		invoice.AmountPaid = invoice.AmountPaid.Add(amount)
		invoice.PaymentStatus = billing.DerivePaymentStatus(invoice.AmountPaid, invoice.Total)
		updates := map[string]any{
			"amount_paid":    invoice.AmountPaid,
			"payment_status": invoice.PaymentStatus,
			"updated_at":     time.Now().UTC(),
		}
		if invoice.PaymentStatus == billing.PaymentStatusPaid {
			invoice.Status = invoicedomain.InvoiceStatusPaid
			updates["status"] = invoice.Status
		}
		return tx.Model(&invoicedomain.Invoice{}).Where("id = ?", invoice.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentApplied(ctx, "invoice", method)
	s.log.Info("payment applied",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("method", method),
		zap.String("amount", req.Amount.String()),
		zap.String("payment_status", string(invoice.PaymentStatus)),
	)
	return &invoice, nil
}

func (s *Service) RefreshOverdue(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Where("status IN ?", []invoicedomain.InvoiceStatus{invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusSent}).
		Where("payment_status <> ?", billing.PaymentStatusPaid).
		Updates(map[string]any{"status": invoicedomain.InvoiceStatusOverdue, "updated_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("invoices marked overdue", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
