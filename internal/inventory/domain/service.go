package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidMovement    = errors.New("invalid_movement")
	ErrUnknownReference   = errors.New("unknown_reference")
	ErrCorruptionDetected = errors.New("corruption_detected")
)

// Ledger owns all stock mutation. The cached product counter is updated in
// the same transaction as every appended movement; nothing else writes it.
type Ledger interface {
	// Record appends movements and bumps the cached counters inside the
	// caller's transaction. It returns warnings for products that ended at
	// or below their reorder level.
	Record(ctx context.Context, tx *gorm.DB, movements ...*Movement) ([]StockWarning, error)

	// Reverse appends compensating movements (opposite sign, same
	// reference) for everything previously recorded against ref.
	Reverse(ctx context.Context, tx *gorm.DB, ref Reference) ([]Movement, error)

	// Adjust records a manual signed stock correction in its own
	// transaction.
	Adjust(ctx context.Context, productID string, quantity decimal.Decimal) (*Movement, []StockWarning, error)

	// CurrentStock reads the cached counter; it never rescans history.
	CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error)

	Movements(ctx context.Context, productID string) ([]Movement, error)

	// Audit verifies the cached counter equals the movement sum and
	// returns ErrCorruptionDetected on divergence. It never repairs.
	Audit(ctx context.Context, productID string) error

	// Rebuild re-materializes the cached counter from the movement log,
	// the explicit repair path after a detected corruption.
	Rebuild(ctx context.Context, productID string) (decimal.Decimal, error)
}
