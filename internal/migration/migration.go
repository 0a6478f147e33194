// Package migration creates the schema on startup so a fresh install works
// out of the box. Postgres runs versioned SQL migrations; other dialects
// fall back to AutoMigrate, which is what the sqlite development setup uses.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	invoicedomain "github.com/masaladesk/masaladesk/internal/invoice/domain"
	orderdomain "github.com/masaladesk/masaladesk/internal/order/domain"
	purchasedomain "github.com/masaladesk/masaladesk/internal/purchase/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate mirrors the SQL schema through gorm for non-postgres dialects.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&catalogdomain.Product{},
		&catalogdomain.MenuItem{},
		&catalogdomain.MenuItemIngredient{},
		&catalogdomain.PaymentMethod{},
		&inventorydomain.Movement{},
		&orderdomain.KOT{},
		&orderdomain.KOTItem{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&invoicedomain.InvoicePayment{},
		&purchasedomain.Purchase{},
		&purchasedomain.PurchaseItem{},
		&purchasedomain.PurchasePayment{},
	)
}
