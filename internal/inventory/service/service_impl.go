package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	"github.com/masaladesk/masaladesk/internal/observability/metrics"
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
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) inventorydomain.Ledger {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("inventory.ledger"),
		genID:   p.GenID,
		metrics: p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, movements ...*inventorydomain.Movement) ([]inventorydomain.StockWarning, error) {
	if tx == nil {
		tx = s.db
	}

	touched := map[snowflake.ID]struct{}{}
	for _, m := range movements {
		if m == nil || !m.Type.Valid() || m.Quantity.IsZero() {
			return nil, inventorydomain.ErrInvalidMovement
		}
		ref := m.Ref()
		if !ref.Valid() {
			return nil, inventorydomain.ErrUnknownReference
		}
		if m.Type != inventorydomain.MovementAdjustment && ref.IsZero() {
			return nil, inventorydomain.ErrUnknownReference
		}
		if m.ID == 0 {
			m.ID = s.genID.Generate()
		}
		touched[m.ProductID] = struct{}{}
	}
	if len(movements) == 0 {
		return nil, nil
	}

	for _, m := range movements {
		result := tx.WithContext(ctx).Model(&catalogdomain.Product{}).
			Where("id = ?", m.ProductID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", m.Quantity))
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, inventorydomain.ErrNotFound
		}
		if err := tx.WithContext(ctx).Create(m).Error; err != nil {
			return nil, err
		}
	}

	warnings, err := s.collectWarnings(ctx, tx, touched)
	if err != nil {
		return nil, err
	}

	s.metrics.MovementsRecorded(ctx, string(movements[0].Type), len(movements))
	s.metrics.StockWarnings(ctx, len(warnings))
	return warnings, nil
}

func (s *Service) Reverse(ctx context.Context, tx *gorm.DB, ref inventorydomain.Reference) ([]inventorydomain.Movement, error) {
	if tx == nil {
		tx = s.db
	}
	if ref.IsZero() || !ref.Valid() {
		return nil, inventorydomain.ErrUnknownReference
	}

	var originals []inventorydomain.Movement
	if err := tx.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", ref.Type, ref.ID).
		Order("created_at asc, id asc").
		Find(&originals).Error; err != nil {
		return nil, err
	}

	// net zero means the reference was already reversed (or never moved stock)
	net := map[snowflake.ID]decimal.Decimal{}
	for _, m := range originals {
		net[m.ProductID] = net[m.ProductID].Add(m.Quantity)
	}

	reversals := make([]*inventorydomain.Movement, 0, len(net))
	for productID, qty := range net {
		if qty.IsZero() {
			continue
		}
		reversals = append(reversals, &inventorydomain.Movement{
			ProductID:     productID,
			Type:          inventorydomain.MovementAdjustment,
			Quantity:      qty.Neg(),
			ReferenceType: ref.Type,
			ReferenceID:   ref.ID,
		})
	}
	if len(reversals) == 0 {
		return nil, nil
	}

	if _, err := s.Record(ctx, tx, reversals...); err != nil {
		return nil, err
	}

	out := make([]inventorydomain.Movement, 0, len(reversals))
	for _, m := range reversals {
		out = append(out, *m)
	}
	return out, nil
}

func (s *Service) Adjust(ctx context.Context, productID string, quantity decimal.Decimal) (*inventorydomain.Movement, []inventorydomain.StockWarning, error) {
	id, err := snowflake.ParseString(productID)
	if err != nil {
		return nil, nil, inventorydomain.ErrNotFound
	}
	if quantity.IsZero() {
		return nil, nil, inventorydomain.ErrInvalidMovement
	}

	movement := &inventorydomain.Movement{
		ProductID: id,
		Type:      inventorydomain.MovementAdjustment,
		Quantity:  quantity,
	}

	var warnings []inventorydomain.StockWarning
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		warnings, txErr = s.Record(ctx, tx, movement)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	return movement, warnings, nil
}

func (s *Service) CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	id, err := snowflake.ParseString(productID)
	if err != nil {
		return decimal.Zero, inventorydomain.ErrNotFound
	}

	var product catalogdomain.Product
	if err := s.db.WithContext(ctx).Select("id", "stock_quantity").First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, inventorydomain.ErrNotFound
		}
		return decimal.Zero, err
	}
	return product.StockQuantity, nil
}

func (s *Service) Movements(ctx context.Context, productID string) ([]inventorydomain.Movement, error) {
	id, err := snowflake.ParseString(productID)
	if err != nil {
		return nil, inventorydomain.ErrNotFound
	}

	var movements []inventorydomain.Movement
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", id).
		Order("created_at asc, id asc").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Service) Audit(ctx context.Context, productID string) error {
	id, err := snowflake.ParseString(productID)
	if err != nil {
		return inventorydomain.ErrNotFound
	}

	cached, sum, err := s.cachedAndActual(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !cached.Equal(sum) {
		s.log.Error("stock cache diverged from movement log",
			zap.String("product_id", id.String()),
			zap.String("cached", cached.String()),
			zap.String("ledger_sum", sum.String()),
		)
		return inventorydomain.ErrCorruptionDetected
	}
	return nil
}

func (s *Service) Rebuild(ctx context.Context, productID string) (decimal.Decimal, error) {
	id, err := snowflake.ParseString(productID)
	if err != nil {
		return decimal.Zero, inventorydomain.ErrNotFound
	}

	var rebuilt decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product catalogdomain.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return inventorydomain.ErrNotFound
			}
			return err
		}

		_, sum, err := s.cachedAndActual(ctx, tx, id)
		if err != nil {
			return err
		}
		rebuilt = sum
		return tx.Model(&catalogdomain.Product{}).
			Where("id = ?", id).
			UpdateColumn("stock_quantity", sum).Error
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info("rebuilt stock cache from movement log",
		zap.String("product_id", id.String()),
		zap.String("stock", rebuilt.String()),
	)
	return rebuilt, nil
}

func (s *Service) cachedAndActual(ctx context.Context, tx *gorm.DB, productID snowflake.ID) (decimal.Decimal, decimal.Decimal, error) {
	var product catalogdomain.Product
	if err := tx.WithContext(ctx).Select("id", "stock_quantity").First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, decimal.Zero, inventorydomain.ErrNotFound
		}
		return decimal.Zero, decimal.Zero, err
	}

	var movements []inventorydomain.Movement
	if err := tx.WithContext(ctx).Select("quantity").Where("product_id = ?", productID).Find(&movements).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	sum := decimal.Zero
	for _, m := range movements {
		sum = sum.Add(m.Quantity)
	}
	return product.StockQuantity, sum, nil
}

func (s *Service) collectWarnings(ctx context.Context, tx *gorm.DB, touched map[snowflake.ID]struct{}) ([]inventorydomain.StockWarning, error) {
	warnings := []inventorydomain.StockWarning{}
	for productID := range touched {
		var product catalogdomain.Product
		if err := tx.WithContext(ctx).Select("id", "name", "stock_quantity", "reorder_level").
			First(&product, "id = ?", productID).Error; err != nil {
			return nil, err
		}
		if product.StockQuantity.LessThanOrEqual(product.ReorderLevel) || product.StockQuantity.IsNegative() {
			warnings = append(warnings, inventorydomain.StockWarning{
				ProductID:    product.ID,
				ProductName:  product.Name,
				Stock:        product.StockQuantity,
				ReorderLevel: product.ReorderLevel,
			})
		}
	}
	return warnings, nil
}
