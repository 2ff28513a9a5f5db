package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowStockStateTransitions(t *testing.T) {
	next, changed := LowStockNormal.Breach()
	assert.Equal(t, LowStockFlagged, next)
	assert.True(t, changed)

	next, changed = LowStockFlagged.Breach()
	assert.Equal(t, LowStockFlagged, next)
	assert.False(t, changed)

	next, changed = LowStockFlagged.Recover()
	assert.Equal(t, LowStockNormal, next)
	assert.True(t, changed)

	next, changed = LowStockNormal.Recover()
	assert.Equal(t, LowStockNormal, next)
	assert.False(t, changed)

	assert.True(t, LowStockFlagged.Notified())
	assert.False(t, LowStockNormal.Notified())
}

func TestProductIsLowStock(t *testing.T) {
	p := Product{StockQuantity: 10}
	assert.True(t, p.IsLowStock(10))
	p.StockQuantity = 11
	assert.False(t, p.IsLowStock(10))
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, SaleStatusPaid.Valid())
	assert.False(t, SaleStatus("refunded").Valid())
	assert.True(t, BranchInactive.Valid())
	assert.False(t, BranchStatus("closed").Valid())
	assert.True(t, InvoiceTypePurchase.Valid())
	assert.True(t, InvoiceTypeSale.Valid())
	assert.False(t, InvoiceType("credit").Valid())
	assert.True(t, RoleCashier.Valid())
	assert.False(t, UserRole("super_admin").Valid())
}
