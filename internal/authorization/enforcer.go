// Package authorization gates mutating operations by staff role. Identity is
// established upstream; requests arrive with a role already resolved and this
// package only answers "may this role do that".
package authorization

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var modelText string

// Roles understood by the enforcer.
const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleSalesPerson = "sales_person"
)

// Actions checked on the HTTP surface.
const (
	ActOrderCreate     = "order:create"
	ActOrderTransition = "order:transition"
	ActOrderFinalize   = "order:finalize"
	ActOrderDiscount   = "order:discount"
	ActOrderCancel     = "order:cancel"
	ActOrderReverse    = "order:reverse"
	ActOrderDelete     = "order:delete"
	ActInvoicePay      = "invoice:pay"
	ActInvoiceOverdue  = "invoice:overdue"
	ActPurchaseWrite   = "purchase:write"
	ActPurchasePay     = "purchase:pay"
	ActCatalogWrite    = "catalog:write"
	ActInventoryAdjust = "inventory:adjust"
	ActInventoryRepair = "inventory:repair"
)

// NewEnforcer builds the in-memory policy set. Admin and manager may do
// everything; the till role can run orders and take payments but cannot
// unwind or delete anything.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	policies := [][]string{
		{RoleAdmin, "*"},
		{RoleManager, "*"},
		{RoleSalesPerson, ActOrderCreate},
		{RoleSalesPerson, ActOrderTransition},
		{RoleSalesPerson, ActOrderFinalize},
		{RoleSalesPerson, ActInvoicePay},
		{RoleSalesPerson, ActPurchasePay},
	}
	if _, err := enforcer.AddPolicies(policies); err != nil {
		return nil, err
	}
	return enforcer, nil
}
