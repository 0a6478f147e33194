// Package seed inserts the baseline lookup rows a fresh install needs.
package seed

import (
	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	"gorm.io/gorm"
)

var defaultPaymentMethods = []struct {
	code string
	name string
}{
	{"cash", "Cash"},
	{"upi", "UPI"},
	{"card", "Card"},
}

// EnsurePaymentMethods creates the accepted tender types when missing.
// Existing rows are left untouched so operators can deactivate methods.
func EnsurePaymentMethods(conn *gorm.DB) error {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	for _, method := range defaultPaymentMethods {
		var existing catalogdomain.PaymentMethod
		if err := conn.Where("code = ?", method.code).
			Attrs(catalogdomain.PaymentMethod{
				ID:       node.Generate(),
				Code:     method.code,
				Name:     method.name,
				IsActive: true,
			}).
			FirstOrCreate(&existing).Error; err != nil {
			return err
		}
	}
	return nil
}
