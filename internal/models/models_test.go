package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductLowStock(t *testing.T) {
	p := &Product{Stock: 5, AlertThreshold: 5}
	assert.True(t, p.LowStock(), "stock at threshold is low")

	p.Stock = 6
	assert.False(t, p.LowStock())

	p.Stock = -2
	assert.True(t, p.LowStock())
}

func TestProductOutOfStock(t *testing.T) {
	p := &Product{Stock: 0}
	assert.True(t, p.OutOfStock())

	// A negative count means over-sold, not out of stock.
	p.Stock = -1
	assert.False(t, p.OutOfStock())

	p.Stock = 1
	assert.False(t, p.OutOfStock())
}

func TestEnumValidators(t *testing.T) {
	for _, s := range []string{OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusServed, OrderStatusCancelled} {
		assert.True(t, IsValidOrderStatus(s), s)
	}
	assert.False(t, IsValidOrderStatus("ARCHIVED"))
	assert.False(t, IsValidOrderStatus("pending"))

	for _, typ := range []string{OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery} {
		assert.True(t, IsValidOrderType(typ), typ)
	}
	assert.False(t, IsValidOrderType(""))

	for _, typ := range []string{MovementTypeIn, MovementTypeOut, MovementTypeAdjust, MovementTypeLoss, MovementTypeReturn} {
		assert.True(t, IsValidMovementType(typ), typ)
	}
	assert.False(t, IsValidMovementType("TRANSFER"))

	for _, u := range []string{UnitUnit, UnitKg, UnitLiter, UnitBox, UnitBottle} {
		assert.True(t, IsValidUnit(u), u)
	}
	assert.False(t, IsValidUnit("PALLET"))
}
