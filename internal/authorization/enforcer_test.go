package authorization

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRolePolicies(t *testing.T) {
	enforcer, err := NewEnforcer()
	require.NoError(t, err)

	cases := []struct {
		role string
		act  string
		want bool
	}{
		{RoleAdmin, ActOrderDelete, true},
		{RoleAdmin, ActInventoryRepair, true},
		{RoleManager, ActOrderReverse, true},
		{RoleManager, ActCatalogWrite, true},
		{RoleManager, ActOrderDiscount, true},
		{RoleSalesPerson, ActOrderCreate, true},
		{RoleSalesPerson, ActOrderFinalize, true},
		{RoleSalesPerson, ActInvoicePay, true},
		{RoleSalesPerson, ActOrderDiscount, false},
		{RoleSalesPerson, ActOrderCancel, false},
		{RoleSalesPerson, ActOrderReverse, false},
		{RoleSalesPerson, ActOrderDelete, false},
		{RoleSalesPerson, ActInventoryAdjust, false},
		{"waiter", ActOrderCreate, false},
	}
	for _, tc := range cases {
		ok, err := enforcer.Enforce(tc.role, tc.act)
		require.NoError(t, err)
		require.Equal(t, tc.want, ok, "%s %s", tc.role, tc.act)
	}
}
